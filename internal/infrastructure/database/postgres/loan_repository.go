package postgres

import (
	"bookly/internal/domain/loan"
	"bookly/internal/infrastructure/monitoring"
	"bookly/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

// exclusionViolation is SQLSTATE 23P01, raised by the no-overlap constraint.
const exclusionViolation = "23P01"

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

const loanColumns = `id, user_id, book_id, loan_date, return_date, actual_return_date, status, notes, created_at, updated_at`

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.UserID, &l.BookID, &l.LoanDate, &l.ReturnDate,
		&l.ActualReturnDate, &l.Status, &l.Notes, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan) (*loan.Loan, error) {
	insertSQL := `
        INSERT INTO loans (user_id, book_id, loan_date, return_date, status, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING ` + loanColumns

	status := "success"
	startTime := time.Now()

	created, err := scanLoan(r.db.QueryRow(ctx, insertSQL,
		newLoan.UserID, newLoan.BookID, newLoan.LoanDate, newLoan.ReturnDate,
		newLoan.Status, newLoan.Notes,
	))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateLoan", status, time.Since(startTime))

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			r.logger.WarnContext(ctx, "Overlapping loan rejected by exclusion constraint",
				"book_id", newLoan.BookID, "constraint", pgErr.ConstraintName)
			return nil, fmt.Errorf("%w: overlapping loan window for book %s", apperrors.ErrConflict, newLoan.BookID)
		}
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return created, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	status := "success"
	startTime := time.Now()

	l, err := scanLoan(r.db.QueryRow(ctx, query, loanID))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	query := `
        SELECT l.id, l.user_id, l.book_id, l.loan_date, l.return_date, l.actual_return_date,
               l.status, l.notes, l.created_at, l.updated_at,
               u.name, u.email,
               b.title, b.author, b.image
        FROM loans l
        JOIN users u ON u.id = l.user_id
        JOIN books b ON b.id = l.book_id
        WHERE l.id = $1`

	status := "success"
	startTime := time.Now()

	var l loan.Loan
	var u loan.User
	var b loan.Book
	err := r.db.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.UserID, &l.BookID, &l.LoanDate, &l.ReturnDate, &l.ActualReturnDate,
		&l.Status, &l.Notes, &l.CreatedAt, &l.UpdatedAt,
		&u.Name, &u.Email,
		&b.Title, &b.Author, &b.Image,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanDetail", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan detail", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	u.ID = l.UserID
	b.ID = l.BookID
	l.User = &u
	l.Book = &b
	return &l, nil
}

func (r *LoanRepository) GetBlockingLoansByBook(ctx context.Context, bookID uuid.UUID) ([]*loan.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE book_id = $1 AND status IN ('active', 'overdue')`

	status := "success"
	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, bookID)
	if err != nil {
		monitoring.RecordDBQuery("GetBlockingLoansByBook", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query blocking loans", "book_id", bookID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			monitoring.RecordDBQuery("GetBlockingLoansByBook", "error", time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "book_id", bookID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, l)
	}

	if err = rows.Err(); err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetBlockingLoansByBook", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "book_id", bookID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return loans, nil
}

func (r *LoanRepository) GetLoansByUser(ctx context.Context, userID uuid.UUID) ([]*loan.Loan, error) {
	query := `
        SELECT l.id, l.user_id, l.book_id, l.loan_date, l.return_date, l.actual_return_date,
               l.status, l.notes, l.created_at, l.updated_at,
               b.title, b.author, b.image
        FROM loans l
        JOIN books b ON b.id = l.book_id
        WHERE l.user_id = $1
        ORDER BY l.created_at DESC`

	status := "success"
	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		monitoring.RecordDBQuery("GetLoansByUser", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query user loans", "user_id", userID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		var l loan.Loan
		var b loan.Book
		err := rows.Scan(
			&l.ID, &l.UserID, &l.BookID, &l.LoanDate, &l.ReturnDate, &l.ActualReturnDate,
			&l.Status, &l.Notes, &l.CreatedAt, &l.UpdatedAt,
			&b.Title, &b.Author, &b.Image,
		)
		if err != nil {
			monitoring.RecordDBQuery("GetLoansByUser", "error", time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan user loan row", "user_id", userID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		b.ID = l.BookID
		l.Book = &b
		loans = append(loans, &l)
	}

	if err = rows.Err(); err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoansByUser", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating user loan rows", "user_id", userID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return loans, nil
}

func (r *LoanRepository) UpdateLoanReturn(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	updateSQL := `
        UPDATE loans
        SET status = $1, actual_return_date = $2, updated_at = NOW()
        WHERE id = $3
        RETURNING ` + loanColumns

	status := "success"
	startTime := time.Now()

	updated, err := scanLoan(r.db.QueryRow(ctx, updateSQL, l.Status, l.ActualReturnDate, l.ID))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("UpdateLoanReturn", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found for return update", "loan_id", l.ID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to update loan return", "loan_id", l.ID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loan return persisted", "loan_id", updated.ID, "status", updated.Status)
	return updated, nil
}

func (r *LoanRepository) CountOverdueActive(ctx context.Context, asOf time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM loans WHERE status = 'active' AND return_date < $1`

	status := "success"
	startTime := time.Now()

	var count int64
	err := r.db.QueryRow(ctx, query, asOf).Scan(&count)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CountOverdueActive", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count overdue active loans", "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}
