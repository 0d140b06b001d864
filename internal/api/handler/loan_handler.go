package handler

import (
	"bookly/internal/api/handler/dto"
	"bookly/internal/api/middleware"
	"bookly/internal/domain/loan"
	"bookly/internal/pkg/apperrors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"success":false,"message":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message := http.StatusInternalServerError, "An unexpected error occurred."
	var validationError *apperrors.ValidationError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, apperrors.ErrBookUnavailable), errors.Is(err, apperrors.ErrAlreadyReturned):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &validationError):
		status, message = http.StatusBadRequest, validationError.Message
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	respondJSON(w, status, dto.Response{Success: false, Message: message})
}

func getUUIDFromURL(r *http.Request, param string) (uuid.UUID, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, param)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s format in URL path: %s", apperrors.ErrInvalidArgument, param, idStr)
	}
	return id, nil
}

func requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, dto.Response{Success: false, Message: "Unauthorized"})
		return uuid.Nil, false
	}
	return userID, true
}

// CreateLoan handles POST /loans
// @Summary Reserve a book for a date window
// @Description Creates an active loan for the authenticated user if the book is free over the requested window. Two loans overlap when their half-open windows intersect; a loan ending on the day another starts does not conflict.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan creation request"
// @Success 201 {object} dto.Response "Loan successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload, misordered dates, or the book is already reserved for an overlapping window"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid bearer token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Create loan validation failed", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	bookID, _ := uuid.Parse(req.BookID)
	loanDate, _ := dto.ParseDate(req.LoanDate)
	returnDate, _ := dto.ParseDate(req.ReturnDate)

	createdLoan, err := h.service.CreateLoan(r.Context(), userID, bookID, loanDate, returnDate, req.Notes)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrBookUnavailable) && !errors.Is(err, apperrors.ErrValidation) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to create loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan created successfully", slog.String("loanID", createdLoan.ID.String()))
	respondJSON(w, http.StatusCreated, dto.Response{
		Success: true,
		Message: "Book loaned successfully",
		Data:    dto.NewLoanResponse(createdLoan),
	})
}

// GetBookLoans handles GET /loans/book/{bookID}
// @Summary List unavailable date ranges for a book
// @Description Returns the loan windows of every active or overdue loan on the book, so the calendar widget can block those dates.
// @Tags Loans
// @Produce json
// @Param bookID path string true "Book ID" format(uuid)
// @Success 200 {object} dto.Response "Unavailable date ranges"
// @Failure 400 {object} dto.ErrorResponse "Invalid book ID format"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/book/{bookID} [get]
func (h *LoanHandler) GetBookLoans(w http.ResponseWriter, r *http.Request) {
	bookID, err := getUUIDFromURL(r, "bookID")
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get book ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	ranges, err := h.service.GetUnavailableDates(r.Context(), bookID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to get unavailable dates", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.Response{
		Success: true,
		Data:    dto.NewDateRangeResponseList(ranges),
	})
}

// GetUserLoans handles GET /loans/user/all
// @Summary List the authenticated user's loans
// @Description Returns every loan of the calling user, newest first, with book details attached.
// @Tags Loans
// @Produce json
// @Success 200 {object} dto.Response "User's loans"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid bearer token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/user/all [get]
// @Security BearerAuth
func (h *LoanHandler) GetUserLoans(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	loans, err := h.service.GetUserLoans(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list user loans", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User loans listed successfully", slog.Int("count", len(loans)))
	respondJSON(w, http.StatusOK, dto.Response{
		Success: true,
		Data:    dto.NewLoanResponseList(loans),
	})
}

// CheckAvailability handles GET /loans/availability/{bookID}
// @Summary Check whether a book is free over a window
// @Description Probes the book's blocking loans against the half-open window [startDate, endDate).
// @Tags Loans
// @Produce json
// @Param bookID path string true "Book ID" format(uuid)
// @Param startDate query string true "Window start (YYYY-MM-DD or RFC 3339)"
// @Param endDate query string true "Window end (YYYY-MM-DD or RFC 3339)"
// @Success 200 {object} dto.AvailabilityResponse "Availability verdict"
// @Failure 400 {object} dto.ErrorResponse "Invalid book ID, missing dates, or misordered window"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/availability/{bookID} [get]
func (h *LoanHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	bookID, err := getUUIDFromURL(r, "bookID")
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get book ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	startStr := r.URL.Query().Get("startDate")
	endStr := r.URL.Query().Get("endDate")
	if startStr == "" || endStr == "" {
		respondError(w, fmt.Errorf("%w: startDate and endDate query parameters are required", apperrors.ErrInvalidArgument))
		return
	}

	start, err := dto.ParseDate(startStr)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid startDate: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	end, err := dto.ParseDate(endStr)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid endDate: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	available, err := h.service.CheckAvailability(r.Context(), bookID, start, end)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrValidation) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to check availability", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.AvailabilityResponse{Success: true, IsAvailable: available})
}

// ReturnLoan handles PUT /loans/return/{loanID}
// @Summary Return a borrowed book
// @Description Marks the caller's active loan as returned, or overdue when returned past the planned date. Only the borrower may return a loan.
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID" format(uuid)
// @Success 200 {object} dto.Response "Loan marked returned"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or the loan is already returned"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid bearer token"
// @Failure 403 {object} dto.ErrorResponse "The loan belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/return/{loanID} [put]
// @Security BearerAuth
func (h *LoanHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	loanID, err := getUUIDFromURL(r, "loanID")
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get loan ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	returnedLoan, err := h.service.ReturnLoan(r.Context(), loanID, userID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) &&
			!errors.Is(err, apperrors.ErrForbidden) &&
			!errors.Is(err, apperrors.ErrAlreadyReturned) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to return loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan returned successfully",
		slog.String("loanID", returnedLoan.ID.String()), slog.String("status", string(returnedLoan.Status)))
	respondJSON(w, http.StatusOK, dto.Response{
		Success: true,
		Message: "Book returned successfully",
		Data:    dto.NewLoanResponse(returnedLoan),
	})
}

// GetLoanDetail handles GET /loans/{loanID}
// @Summary Retrieve loan details
// @Description Returns a single loan with its book and borrower attached.
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID" format(uuid)
// @Success 200 {object} dto.Response "Loan details"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID format"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid bearer token"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoanDetail(w http.ResponseWriter, r *http.Request) {
	loanID, err := getUUIDFromURL(r, "loanID")
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get loan ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	detail, err := h.service.GetLoanDetail(r.Context(), loanID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get loan detail", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.Response{
		Success: true,
		Data:    dto.NewLoanResponse(detail),
	})
}
