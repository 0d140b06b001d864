package dto

import (
	"bookly/internal/domain/loan"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse documents the failure shape of the envelope for swagger.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"book is not available for the selected dates"`
}

// AvailabilityResponse answers availability probes without the data envelope.
type AvailabilityResponse struct {
	Success     bool `json:"success"`
	IsAvailable bool `json:"isAvailable"`
}

type CreateLoanRequest struct {
	BookID     string `json:"bookId"`
	LoanDate   string `json:"loanDate"`
	ReturnDate string `json:"returnDate"`
	Notes      string `json:"notes,omitempty"`
}

func (r *CreateLoanRequest) Validate() error {
	if strings.TrimSpace(r.BookID) == "" {
		return fmt.Errorf("bookId cannot be empty")
	}
	if _, err := uuid.Parse(r.BookID); err != nil {
		return fmt.Errorf("bookId must be a valid UUID")
	}
	if strings.TrimSpace(r.LoanDate) == "" {
		return fmt.Errorf("loanDate cannot be empty")
	}
	if strings.TrimSpace(r.ReturnDate) == "" {
		return fmt.Errorf("returnDate cannot be empty")
	}
	if _, err := ParseDate(r.LoanDate); err != nil {
		return fmt.Errorf("loanDate has an invalid format: %v", err)
	}
	if _, err := ParseDate(r.ReturnDate); err != nil {
		return fmt.Errorf("returnDate has an invalid format: %v", err)
	}
	return nil
}

// ParseDate accepts calendar dates (2006-01-02) and full RFC 3339 timestamps,
// which is what the widget and API clients respectively send.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", s)
	}
	return t.UTC(), nil
}

type BookResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Image  string `json:"image,omitempty"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoanResponse struct {
	ID               string        `json:"id"`
	UserID           string        `json:"userId"`
	BookID           string        `json:"bookId"`
	LoanDate         time.Time     `json:"loanDate"`
	ReturnDate       time.Time     `json:"returnDate"`
	ActualReturnDate *time.Time    `json:"actualReturnDate,omitempty"`
	Status           string        `json:"status"`
	Notes            string        `json:"notes,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Book             *BookResponse `json:"book,omitempty"`
	User             *UserResponse `json:"user,omitempty"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	if l == nil {
		return LoanResponse{}
	}

	resp := LoanResponse{
		ID:               l.ID.String(),
		UserID:           l.UserID.String(),
		BookID:           l.BookID.String(),
		LoanDate:         l.LoanDate,
		ReturnDate:       l.ReturnDate,
		ActualReturnDate: l.ActualReturnDate,
		Status:           string(l.Status),
		Notes:            l.Notes,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}

	if l.Book != nil {
		resp.Book = &BookResponse{
			ID:     l.Book.ID.String(),
			Title:  l.Book.Title,
			Author: l.Book.Author,
			Image:  l.Book.Image,
		}
	}
	if l.User != nil {
		resp.User = &UserResponse{
			ID:    l.User.ID.String(),
			Name:  l.User.Name,
			Email: l.User.Email,
		}
	}
	return resp
}

func NewLoanResponseList(loans []*loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, len(loans))
	for i, l := range loans {
		resp[i] = NewLoanResponse(l)
	}
	return resp
}

type DateRangeResponse struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

func NewDateRangeResponseList(ranges []loan.DateRange) []DateRangeResponse {
	resp := make([]DateRangeResponse, len(ranges))
	for i, r := range ranges {
		resp[i] = DateRangeResponse{StartDate: r.StartDate, EndDate: r.EndDate}
	}
	return resp
}
