package loan

import (
	"bookly/internal/event"
	"bookly/internal/infrastructure/monitoring"
	"bookly/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

type LoanService interface {
	// CreateLoan validates the request, gates it on availability and
	// persists a new active loan.
	CreateLoan(ctx context.Context, userID, bookID uuid.UUID, loanDate, returnDate time.Time, notes string) (*Loan, error)

	// ReturnLoan marks the caller's loan returned (or overdue when past the
	// planned return date) and persists the mutation.
	ReturnLoan(ctx context.Context, loanID, userID uuid.UUID) (*Loan, error)

	GetUserLoans(ctx context.Context, userID uuid.UUID) ([]*Loan, error)

	GetUnavailableDates(ctx context.Context, bookID uuid.UUID) ([]DateRange, error)

	CheckAvailability(ctx context.Context, bookID uuid.UUID, start, end time.Time) (bool, error)

	GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*Loan, error)
}

var _ LoanService = (*loanServiceImpl)(nil)

type loanServiceImpl struct {
	repo   Repository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewLoanService(r Repository, pub event.EventPublisher, logger *slog.Logger) LoanService {
	if r == nil {
		panic("loan repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewLoanService, using default stderr handler")
	}
	return &loanServiceImpl{repo: r, pub: pub, logger: logger.With("component", "loanService")}
}

func newLoanEventPayload(l *Loan) event.LoanEventPayload {
	return event.LoanEventPayload{
		LoanID:           l.ID,
		UserID:           l.UserID,
		BookID:           l.BookID,
		LoanDate:         l.LoanDate,
		ReturnDate:       l.ReturnDate,
		ActualReturnDate: l.ActualReturnDate,
		Status:           string(l.Status),
	}
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, userID, bookID uuid.UUID, loanDate, returnDate time.Time, notes string) (*Loan, error) {
	s.logger.InfoContext(ctx, "Creating new loan", "bookID", bookID, "userID", userID)

	newLoan, err := NewLoan(userID, bookID, loanDate, returnDate, notes)
	if err != nil {
		s.logger.WarnContext(ctx, "Loan request failed validation", slog.Any("error", err))
		monitoring.RecordLoanCreated("failure_validation")
		return nil, err
	}

	available, err := s.CheckAvailability(ctx, bookID, loanDate, returnDate)
	if err != nil {
		monitoring.RecordLoanCreated("failure_internal")
		return nil, err
	}
	if !available {
		s.logger.InfoContext(ctx, "Requested window overlaps an existing loan", "bookID", bookID)
		monitoring.RecordLoanCreated("failure_conflict")
		return nil, apperrors.ErrBookUnavailable
	}

	createdLoan, err := s.repo.CreateLoan(ctx, newLoan)
	if err != nil {
		// A concurrent writer can win the window between the availability
		// check and the insert; the storage exclusion constraint reports
		// that as a conflict.
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.InfoContext(ctx, "Overlap constraint rejected concurrent loan", "bookID", bookID)
			monitoring.RecordLoanCreated("failure_conflict")
			return nil, apperrors.ErrBookUnavailable
		}
		s.logger.ErrorContext(ctx, "Failed to save loan", slog.Any("error", err))
		monitoring.RecordLoanCreated("failure_internal")
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	s.publishLoanCreated(ctx, createdLoan)
	monitoring.RecordLoanCreated("success")
	s.logger.InfoContext(ctx, "Loan created successfully", "loanID", createdLoan.ID)
	return createdLoan, nil
}

func (s *loanServiceImpl) ReturnLoan(ctx context.Context, loanID, userID uuid.UUID) (*Loan, error) {
	s.logger.InfoContext(ctx, "Returning loan", "loanID", loanID, "userID", userID)

	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			monitoring.RecordLoanReturned("failure_not_found")
			return nil, fmt.Errorf("%w: loan %s not found", apperrors.ErrNotFound, loanID)
		}
		monitoring.RecordLoanReturned("failure_internal")
		return nil, fmt.Errorf("failed to load loan %s: %w", loanID, err)
	}

	if l.UserID != userID {
		s.logger.WarnContext(ctx, "Return attempted by non-owner", "loanID", loanID, "userID", userID)
		monitoring.RecordLoanReturned("failure_forbidden")
		return nil, fmt.Errorf("%w: not authorized to return this loan", apperrors.ErrForbidden)
	}

	if err := l.MarkReturned(time.Now()); err != nil {
		s.logger.InfoContext(ctx, "Loan is not active anymore", "loanID", loanID, "status", l.Status)
		monitoring.RecordLoanReturned("failure_conflict")
		return nil, err
	}

	updated, err := s.repo.UpdateLoanReturn(ctx, l)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist loan return", slog.Any("error", err))
		monitoring.RecordLoanReturned("failure_internal")
		return nil, fmt.Errorf("failed to persist loan return: %w", err)
	}

	s.publishLoanReturned(ctx, updated)
	monitoring.RecordLoanReturned("success")
	s.logger.InfoContext(ctx, "Loan returned", "loanID", updated.ID, "status", updated.Status)
	return updated, nil
}

func (s *loanServiceImpl) GetUserLoans(ctx context.Context, userID uuid.UUID) ([]*Loan, error) {
	s.logger.InfoContext(ctx, "Listing loans for user", "userID", userID)
	loans, err := s.repo.GetLoansByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for user %s: %w", userID, err)
	}
	return loans, nil
}

func (s *loanServiceImpl) GetUnavailableDates(ctx context.Context, bookID uuid.UUID) ([]DateRange, error) {
	s.logger.InfoContext(ctx, "Listing unavailable dates for book", "bookID", bookID)
	loans, err := s.repo.GetBlockingLoansByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load loans for book %s: %w", bookID, err)
	}
	return UnavailableRanges(loans), nil
}

func (s *loanServiceImpl) CheckAvailability(ctx context.Context, bookID uuid.UUID, start, end time.Time) (bool, error) {
	if start.IsZero() || end.IsZero() {
		return false, fmt.Errorf("%w: start date and end date are required", apperrors.ErrValidation)
	}
	if !start.Before(end) {
		return false, fmt.Errorf("%w: end date must be after start date", apperrors.ErrValidation)
	}

	loans, err := s.repo.GetBlockingLoansByBook(ctx, bookID)
	if err != nil {
		return false, fmt.Errorf("failed to load loans for book %s: %w", bookID, err)
	}
	return !HasOverlap(loans, start, end), nil
}

func (s *loanServiceImpl) GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	s.logger.InfoContext(ctx, "Getting loan detail", "loanID", loanID)
	l, err := s.repo.GetLoanDetail(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan %s not found", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("failed to load loan %s: %w", loanID, err)
	}
	return l, nil
}

// Event publication is best-effort: a broker outage must not fail the write
// that already committed.
func (s *loanServiceImpl) publishLoanCreated(ctx context.Context, l *Loan) {
	if s.pub == nil {
		return
	}
	evt := event.LoanCreatedEvent{Timestamp: time.Now(), Payload: newLoanEventPayload(l)}
	if err := s.pub.PublishLoanCreated(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan created event", slog.Any("error", err))
	}
}

func (s *loanServiceImpl) publishLoanReturned(ctx context.Context, l *Loan) {
	if s.pub == nil {
		return
	}
	evt := event.LoanReturnedEvent{Timestamp: time.Now(), Payload: newLoanEventPayload(l)}
	if err := s.pub.PublishLoanReturned(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan returned event", slog.Any("error", err))
	}
}
