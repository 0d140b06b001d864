// Package client is a small Go consumer of the loan API, used by internal
// tools and smoke tests instead of the web frontend.
package client

import (
	"bookly/internal/api/handler/dto"
	"bookly/internal/config"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const dateFormat = "2006-01-02"

type LoanClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
	logger     *slog.Logger
}

func NewLoanClient(cfg config.ClientConfig, logger *slog.Logger) *LoanClient {
	return &LoanClient{
		baseURL: cfg.BaseURL() + "/loans",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "LoanClient"),
	}
}

// SetToken sets the bearer token attached to authenticated calls.
func (c *LoanClient) SetToken(token string) {
	c.token = token
}

func (c *LoanClient) do(ctx context.Context, method, path string, body interface{}, authenticated bool) (*dto.Response, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		if c.token == "" {
			return nil, fmt.Errorf("no bearer token set for authenticated call to %s", path)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s (status %d): %w", path, resp.StatusCode, err)
	}

	if !envelope.Success {
		message := envelope.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%s %s: %s", method, path, message)
	}

	return &dto.Response{Success: true, Message: envelope.Message, Data: envelope.Data}, nil
}

func decodeData(resp *dto.Response, v interface{}) error {
	raw, ok := resp.Data.(json.RawMessage)
	if !ok || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// GetBookLoanDates fetches the unavailable date ranges for a book.
func (c *LoanClient) GetBookLoanDates(ctx context.Context, bookID uuid.UUID) ([]dto.DateRangeResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/book/"+bookID.String(), nil, false)
	if err != nil {
		return nil, err
	}

	var ranges []dto.DateRangeResponse
	if err := decodeData(resp, &ranges); err != nil {
		return nil, fmt.Errorf("failed to decode loan dates: %w", err)
	}
	return ranges, nil
}

// CheckAvailability asks whether the book is free over [start, end).
func (c *LoanClient) CheckAvailability(ctx context.Context, bookID uuid.UUID, start, end time.Time) (bool, error) {
	query := url.Values{}
	query.Set("startDate", start.Format(dateFormat))
	query.Set("endDate", end.Format(dateFormat))
	path := "/availability/" + bookID.String() + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("availability request failed: %w", err)
	}
	defer resp.Body.Close()

	var availability dto.AvailabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&availability); err != nil {
		return false, fmt.Errorf("failed to decode availability response: %w", err)
	}
	if !availability.Success {
		return false, nil
	}
	return availability.IsAvailable, nil
}

// CreateLoan reserves the book for the caller over the given window.
func (c *LoanClient) CreateLoan(ctx context.Context, bookID uuid.UUID, loanDate, returnDate time.Time, notes string) (*dto.LoanResponse, error) {
	body := dto.CreateLoanRequest{
		BookID:     bookID.String(),
		LoanDate:   loanDate.Format(dateFormat),
		ReturnDate: returnDate.Format(dateFormat),
		Notes:      notes,
	}

	resp, err := c.do(ctx, http.MethodPost, "", body, true)
	if err != nil {
		return nil, err
	}

	var created dto.LoanResponse
	if err := decodeData(resp, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created loan: %w", err)
	}
	return &created, nil
}

// GetUserLoans lists the authenticated user's loans, newest first.
func (c *LoanClient) GetUserLoans(ctx context.Context) ([]dto.LoanResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/user/all", nil, true)
	if err != nil {
		return nil, err
	}

	var loans []dto.LoanResponse
	if err := decodeData(resp, &loans); err != nil {
		return nil, fmt.Errorf("failed to decode user loans: %w", err)
	}
	return loans, nil
}

// ReturnBook marks the caller's loan as returned.
func (c *LoanClient) ReturnBook(ctx context.Context, loanID uuid.UUID) (*dto.LoanResponse, error) {
	resp, err := c.do(ctx, http.MethodPut, "/return/"+loanID.String(), nil, true)
	if err != nil {
		return nil, err
	}

	var returned dto.LoanResponse
	if err := decodeData(resp, &returned); err != nil {
		return nil, fmt.Errorf("failed to decode returned loan: %w", err)
	}
	return &returned, nil
}

// GetLoanDetail fetches a single loan with book and borrower attached.
func (c *LoanClient) GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*dto.LoanResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/"+loanID.String(), nil, true)
	if err != nil {
		return nil, err
	}

	var detail dto.LoanResponse
	if err := decodeData(resp, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode loan detail: %w", err)
	}
	return &detail, nil
}
