package loan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateLoan persists a new loan inside a single transaction. A storage
	// level exclusion violation on the overlap constraint surfaces as
	// apperrors.ErrConflict.
	CreateLoan(ctx context.Context, l *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	// GetLoanDetail returns the loan with its user and book projections.
	GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	// GetBlockingLoansByBook returns the book's loans with status in
	// {active, overdue}.
	GetBlockingLoansByBook(ctx context.Context, bookID uuid.UUID) ([]*Loan, error)

	// GetLoansByUser returns the user's loans, book-enriched, newest first.
	GetLoansByUser(ctx context.Context, userID uuid.UUID) ([]*Loan, error)

	// UpdateLoanReturn persists the return-time mutation (status and
	// actualReturnDate) and returns the stored record.
	UpdateLoanReturn(ctx context.Context, l *Loan) (*Loan, error)

	// CountOverdueActive counts active loans whose planned return date is
	// before asOf.
	CountOverdueActive(ctx context.Context, asOf time.Time) (int64, error)
}
