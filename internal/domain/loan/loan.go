package loan

import (
	"bookly/internal/pkg/apperrors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type LoanStatus string

const (
	StatusActive   LoanStatus = "active"
	StatusReturned LoanStatus = "returned"
	StatusOverdue  LoanStatus = "overdue"
)

// DateRange is a half-open reservation window [StartDate, EndDate).
type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Book is the catalog projection joined onto a loan for list/detail views.
// The catalog itself is owned by an external collaborator.
type Book struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	Image  string    `json:"image"`
}

// User is the identity projection joined onto a loan detail view.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type Loan struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	BookID           uuid.UUID
	LoanDate         time.Time
	ReturnDate       time.Time
	ActualReturnDate *time.Time
	Status           LoanStatus
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Book *Book
	User *User
}

func NewLoan(userID, bookID uuid.UUID, loanDate, returnDate time.Time, notes string) (*Loan, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user ID is required", apperrors.ErrValidation)
	}
	if bookID == uuid.Nil {
		return nil, fmt.Errorf("%w: book ID is required", apperrors.ErrValidation)
	}
	if loanDate.IsZero() || returnDate.IsZero() {
		return nil, fmt.Errorf("%w: loan date and return date are required", apperrors.ErrValidation)
	}
	if !loanDate.Before(returnDate) {
		return nil, fmt.Errorf("%w: return date must be after loan date", apperrors.ErrValidation)
	}

	return &Loan{
		UserID:     userID,
		BookID:     bookID,
		LoanDate:   loanDate,
		ReturnDate: returnDate,
		Status:     StatusActive,
		Notes:      notes,
	}, nil
}

// Overlaps reports whether the loan window [LoanDate, ReturnDate) shares any
// instant with [start, end). Touching boundaries do not overlap.
func (l *Loan) Overlaps(start, end time.Time) bool {
	return l.LoanDate.Before(end) && start.Before(l.ReturnDate)
}

// Blocks reports whether this loan makes its window unavailable to others.
func (l *Loan) Blocks() bool {
	return l.Status == StatusActive || l.Status == StatusOverdue
}

func (l *Loan) Window() DateRange {
	return DateRange{StartDate: l.LoanDate, EndDate: l.ReturnDate}
}

// MarkReturned closes the loan at the given instant. The status transition is
// one-way: only an active loan can be returned, and the outcome is overdue
// when the return happens after the planned return date.
func (l *Loan) MarkReturned(now time.Time) error {
	if l.Status != StatusActive {
		return apperrors.ErrAlreadyReturned
	}

	l.ActualReturnDate = &now
	if now.After(l.ReturnDate) {
		l.Status = StatusOverdue
	} else {
		l.Status = StatusReturned
	}
	l.UpdatedAt = now
	return nil
}

// HasOverlap reports whether any blocking loan in the slice overlaps
// [start, end).
func HasOverlap(loans []*Loan, start, end time.Time) bool {
	for _, l := range loans {
		if l.Blocks() && l.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// UnavailableRanges projects the blocking loans into calendar-blocking
// windows. Order is not significant.
func UnavailableRanges(loans []*Loan) []DateRange {
	ranges := make([]DateRange, 0, len(loans))
	for _, l := range loans {
		if l.Blocks() {
			ranges = append(ranges, l.Window())
		}
	}
	return ranges
}
