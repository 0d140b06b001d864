package client

import (
	"bookly/internal/config"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *LoanClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := config.ClientConfig{
		Environment:    "development",
		DevelopmentURL: server.URL,
	}
	return NewLoanClient(cfg, logger)
}

func TestGetBookLoanDates(t *testing.T) {
	bookID := uuid.New()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/loans/book/"+bookID.String(), r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]string{
				{"startDate": "2025-06-01T00:00:00Z", "endDate": "2025-06-10T00:00:00Z"},
			},
		})
	})

	ranges, err := c.GetBookLoanDates(context.Background(), bookID)

	assert.NoError(t, err)
	assert.Len(t, ranges, 1)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), ranges[0].StartDate)
}

func TestCheckAvailability(t *testing.T) {
	bookID := uuid.New()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-06-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2025-06-10", r.URL.Query().Get("endDate"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"isAvailable":false}`))
	})

	available, err := c.CheckAvailability(context.Background(), bookID,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))

	assert.NoError(t, err)
	assert.False(t, available)
}

func TestCreateLoan(t *testing.T) {
	bookID := uuid.New()
	loanID := uuid.New()

	t.Run("should send bearer token and decode created loan", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/loans", r.URL.Path)
			assert.Equal(t, "Bearer sometoken", r.Header.Get("Authorization"))

			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, bookID.String(), req["bookId"])
			assert.Equal(t, "2025-06-01", req["loanDate"])

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"message": "Book loaned successfully",
				"data":    map[string]string{"id": loanID.String(), "status": "active"},
			})
		})
		c.SetToken("sometoken")

		created, err := c.CreateLoan(context.Background(), bookID,
			time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), "")

		assert.NoError(t, err)
		assert.Equal(t, loanID.String(), created.ID)
		assert.Equal(t, "active", created.Status)
	})

	t.Run("should surface the API failure message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"message":"book is not available for the selected dates"}`))
		})
		c.SetToken("sometoken")

		_, err := c.CreateLoan(context.Background(), bookID,
			time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), "")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "book is not available")
	})

	t.Run("should refuse authenticated call without a token", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request should reach the server")
		})

		_, err := c.CreateLoan(context.Background(), bookID,
			time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), "")

		assert.Error(t, err)
	})
}

func TestGetUserLoans(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loans/user/all", r.URL.Path)
		assert.Equal(t, "Bearer sometoken", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": []map[string]string{
				{"id": uuid.NewString(), "status": "active"},
				{"id": uuid.NewString(), "status": "returned"},
			},
		})
	})
	c.SetToken("sometoken")

	loans, err := c.GetUserLoans(context.Background())

	assert.NoError(t, err)
	assert.Len(t, loans, 2)
}

func TestReturnBook(t *testing.T) {
	loanID := uuid.New()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/loans/return/"+loanID.String(), r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "Book returned successfully",
			"data":    map[string]string{"id": loanID.String(), "status": "returned"},
		})
	})
	c.SetToken("sometoken")

	returned, err := c.ReturnBook(context.Background(), loanID)

	assert.NoError(t, err)
	assert.Equal(t, "returned", returned.Status)
}

func TestGetLoanDetail(t *testing.T) {
	loanID := uuid.New()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loans/"+loanID.String(), r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id": loanID.String(),
				"book": map[string]string{
					"id":    uuid.NewString(),
					"title": "Dune",
				},
			},
		})
	})
	c.SetToken("sometoken")

	detail, err := c.GetLoanDetail(context.Background(), loanID)

	assert.NoError(t, err)
	if assert.NotNil(t, detail.Book) {
		assert.Equal(t, "Dune", detail.Book.Title)
	}
}
