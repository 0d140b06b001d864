package loan

import (
	"bookly/internal/event"
	"bookly/internal/pkg/apperrors"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateLoan(ctx context.Context, l *Loan) (*Loan, error) {
	args := m.Called(ctx, l)
	if created, ok := args.Get(0).(*Loan); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetLoanByID(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetBlockingLoansByBook(ctx context.Context, bookID uuid.UUID) ([]*Loan, error) {
	args := m.Called(ctx, bookID)
	if loans, ok := args.Get(0).([]*Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetLoansByUser(ctx context.Context, userID uuid.UUID) ([]*Loan, error) {
	args := m.Called(ctx, userID)
	if loans, ok := args.Get(0).([]*Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) UpdateLoanReturn(ctx context.Context, l *Loan) (*Loan, error) {
	args := m.Called(ctx, l)
	if updated, ok := args.Get(0).(*Loan); ok {
		return updated, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) CountOverdueActive(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishLoanCreated(ctx context.Context, evt event.LoanCreatedEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishLoanReturned(ctx context.Context, evt event.LoanReturnedEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func TestCreateLoan(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	bookID := uuid.New()

	t.Run("creates loan for a free window", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockPub := new(MockEventPublisher)
		service := NewLoanService(mockRepo, mockPub, logger)

		created := &Loan{ID: uuid.New(), UserID: userID, BookID: bookID, Status: StatusActive}
		mockRepo.On("GetBlockingLoansByBook", ctx, bookID).Return([]*Loan{}, nil)
		mockRepo.On("CreateLoan", ctx, mock.Anything).Return(created, nil)
		mockPub.On("PublishLoanCreated", ctx, mock.Anything).Return(nil)

		result, err := service.CreateLoan(ctx, userID, bookID, date(2024, 6, 1), date(2024, 6, 10), "")

		assert.NoError(t, err)
		assert.Equal(t, created, result)
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("rejects invalid date ordering", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		_, err := service.CreateLoan(ctx, userID, bookID, date(2024, 6, 10), date(2024, 6, 1), "")

		assert.ErrorIs(t, err, apperrors.ErrValidation)
		mockRepo.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
	})

	t.Run("rejects overlapping window", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		existing := &Loan{LoanDate: date(2024, 6, 1), ReturnDate: date(2024, 6, 10), Status: StatusActive}
		mockRepo.On("GetBlockingLoansByBook", ctx, bookID).Return([]*Loan{existing}, nil)

		_, err := service.CreateLoan(ctx, userID, bookID, date(2024, 6, 5), date(2024, 6, 7), "")

		assert.ErrorIs(t, err, apperrors.ErrBookUnavailable)
		mockRepo.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
	})

	t.Run("touching boundary is accepted", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		existing := &Loan{LoanDate: date(2024, 6, 1), ReturnDate: date(2024, 6, 10), Status: StatusActive}
		created := &Loan{ID: uuid.New(), Status: StatusActive}
		mockRepo.On("GetBlockingLoansByBook", ctx, bookID).Return([]*Loan{existing}, nil)
		mockRepo.On("CreateLoan", ctx, mock.Anything).Return(created, nil)

		result, err := service.CreateLoan(ctx, userID, bookID, date(2024, 6, 10), date(2024, 6, 15), "")

		assert.NoError(t, err)
		assert.Equal(t, created, result)
	})

	t.Run("maps storage conflict to unavailable", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		mockRepo.On("GetBlockingLoansByBook", ctx, bookID).Return([]*Loan{}, nil)
		mockRepo.On("CreateLoan", ctx, mock.Anything).Return(nil, apperrors.ErrConflict)

		_, err := service.CreateLoan(ctx, userID, bookID, date(2024, 6, 1), date(2024, 6, 10), "")

		assert.ErrorIs(t, err, apperrors.ErrBookUnavailable)
	})

	t.Run("propagates storage failure", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		mockRepo.On("GetBlockingLoansByBook", ctx, bookID).Return([]*Loan{}, nil)
		mockRepo.On("CreateLoan", ctx, mock.Anything).Return(nil, apperrors.ErrDatabase)

		_, err := service.CreateLoan(ctx, userID, bookID, date(2024, 6, 1), date(2024, 6, 10), "")

		assert.ErrorIs(t, err, apperrors.ErrDatabase)
	})
}

func TestReturnLoan(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	loanID := uuid.New()

	t.Run("returns an active loan", func(t *testing.T) {
		mockRepo := new(MockRepository)
		mockPub := new(MockEventPublisher)
		service := NewLoanService(mockRepo, mockPub, logger)

		l := &Loan{
			ID:         loanID,
			UserID:     userID,
			LoanDate:   time.Now().AddDate(0, 0, -3),
			ReturnDate: time.Now().AddDate(0, 0, 3),
			Status:     StatusActive,
		}
		mockRepo.On("GetLoanByID", ctx, loanID).Return(l, nil)
		mockRepo.On("UpdateLoanReturn", ctx, l).Return(l, nil)
		mockPub.On("PublishLoanReturned", ctx, mock.Anything).Return(nil)

		result, err := service.ReturnLoan(ctx, loanID, userID)

		assert.NoError(t, err)
		assert.Equal(t, StatusReturned, result.Status)
		assert.NotNil(t, result.ActualReturnDate)
		mockRepo.AssertExpectations(t)
	})

	t.Run("late return becomes overdue", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		l := &Loan{
			ID:         loanID,
			UserID:     userID,
			LoanDate:   time.Now().AddDate(0, 0, -10),
			ReturnDate: time.Now().AddDate(0, 0, -2),
			Status:     StatusActive,
		}
		mockRepo.On("GetLoanByID", ctx, loanID).Return(l, nil)
		mockRepo.On("UpdateLoanReturn", ctx, l).Return(l, nil)

		result, err := service.ReturnLoan(ctx, loanID, userID)

		assert.NoError(t, err)
		assert.Equal(t, StatusOverdue, result.Status)
	})

	t.Run("unknown loan", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		mockRepo.On("GetLoanByID", ctx, loanID).Return(nil, apperrors.ErrNotFound)

		_, err := service.ReturnLoan(ctx, loanID, userID)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("loan owned by a different user", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		l := &Loan{ID: loanID, UserID: uuid.New(), Status: StatusActive}
		mockRepo.On("GetLoanByID", ctx, loanID).Return(l, nil)

		_, err := service.ReturnLoan(ctx, loanID, userID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "UpdateLoanReturn", mock.Anything, mock.Anything)
	})

	t.Run("already returned loan", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		l := &Loan{ID: loanID, UserID: userID, Status: StatusReturned}
		mockRepo.On("GetLoanByID", ctx, loanID).Return(l, nil)

		_, err := service.ReturnLoan(ctx, loanID, userID)

		assert.ErrorIs(t, err, apperrors.ErrAlreadyReturned)
	})
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	bookID := uuid.New()

	t.Run("missing dates rejected", func(t *testing.T) {
		service := NewLoanService(new(MockRepository), nil, logger)

		_, err := service.CheckAvailability(ctx, bookID, time.Time{}, date(2024, 6, 10))

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("free window is available", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		existing := &Loan{LoanDate: date(2024, 6, 1), ReturnDate: date(2024, 6, 10), Status: StatusActive}
		mockRepo.On("GetBlockingLoansByBook", ctx, bookID).Return([]*Loan{existing}, nil)

		available, err := service.CheckAvailability(ctx, bookID, date(2024, 5, 1), date(2024, 6, 1))

		assert.NoError(t, err)
		assert.True(t, available)
	})

	t.Run("overlapping window is unavailable", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		existing := &Loan{LoanDate: date(2024, 6, 1), ReturnDate: date(2024, 6, 10), Status: StatusOverdue}
		mockRepo.On("GetBlockingLoansByBook", ctx, bookID).Return([]*Loan{existing}, nil)

		available, err := service.CheckAvailability(ctx, bookID, date(2024, 6, 9), date(2024, 6, 12))

		assert.NoError(t, err)
		assert.False(t, available)
	})
}

func TestGetUnavailableDates(t *testing.T) {
	ctx := context.Background()
	bookID := uuid.New()

	mockRepo := new(MockRepository)
	service := NewLoanService(mockRepo, nil, logger)

	loans := []*Loan{
		{LoanDate: date(2024, 6, 1), ReturnDate: date(2024, 6, 10), Status: StatusActive},
	}
	mockRepo.On("GetBlockingLoansByBook", ctx, bookID).Return(loans, nil)

	ranges, err := service.GetUnavailableDates(ctx, bookID)

	assert.NoError(t, err)
	assert.Equal(t, []DateRange{{StartDate: date(2024, 6, 1), EndDate: date(2024, 6, 10)}}, ranges)
}

func TestGetLoanDetail(t *testing.T) {
	ctx := context.Background()
	loanID := uuid.New()

	t.Run("enriched detail", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		detail := &Loan{
			ID:   loanID,
			Book: &Book{Title: "The Go Programming Language", Author: "Donovan & Kernighan"},
			User: &User{Name: "Ada", Email: "ada@example.com"},
		}
		mockRepo.On("GetLoanDetail", ctx, loanID).Return(detail, nil)

		result, err := service.GetLoanDetail(ctx, loanID)

		assert.NoError(t, err)
		assert.Equal(t, detail, result)
	})

	t.Run("unknown loan", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewLoanService(mockRepo, nil, logger)

		mockRepo.On("GetLoanDetail", ctx, loanID).Return(nil, apperrors.ErrNotFound)

		_, err := service.GetLoanDetail(ctx, loanID)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
