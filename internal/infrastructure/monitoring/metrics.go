package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type LoanMetrics struct {
	CreatedTotal       *prometheus.CounterVec
	ReturnedTotal      *prometheus.CounterVec
	OverdueActiveLoans prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookly_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Loans = LoanMetrics{
		CreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookly_loans_created_total",
				Help: "Total number of loan creation attempts by outcome.",
			},
			[]string{"status"},
		),
		ReturnedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookly_loans_returned_total",
				Help: "Total number of loan return attempts by outcome.",
			},
			[]string{"status"},
		),
		OverdueActiveLoans: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bookly_overdue_active_loans",
				Help: "Number of active loans past their planned return date.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordLoanCreated(status string) {
	Loans.CreatedTotal.WithLabelValues(status).Inc()
}

func RecordLoanReturned(status string) {
	Loans.ReturnedTotal.WithLabelValues(status).Inc()
}

func SetOverdueActiveLoans(count int64) {
	Loans.OverdueActiveLoans.Set(float64(count))
}
