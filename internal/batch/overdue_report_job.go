package batch

import (
	"bookly/internal/domain/loan"
	"bookly/internal/infrastructure/monitoring"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OverdueReportJob periodically counts active loans whose planned return date
// has passed and publishes the number as a gauge. It never mutates loan
// status: a loan only becomes overdue at the moment the borrower returns it
// late.
type OverdueReportJob struct {
	repo   loan.Repository
	logger *slog.Logger
}

func NewOverdueReportJob(repo loan.Repository, logger *slog.Logger) *OverdueReportJob {
	if repo == nil || logger == nil {
		panic("OverdueReportJob dependencies cannot be nil")
	}
	return &OverdueReportJob{
		repo:   repo,
		logger: logger.With("job", "OverdueReport"),
	}
}

func (j *OverdueReportJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting overdue loan report job.")

	count, err := j.repo.CountOverdueActive(ctx, startTime)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to count overdue active loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to count overdue loans: %w", err)
	}

	monitoring.SetOverdueActiveLoans(count)

	j.logger.InfoContext(ctx, "Overdue loan report job finished.",
		slog.Int64("overdue_active_loans", count),
		slog.Duration("duration", time.Since(startTime)),
	)
	return nil
}
