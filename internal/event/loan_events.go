package event

import (
	"time"

	"github.com/google/uuid"
)

type LoanEventPayload struct {
	LoanID           uuid.UUID  `json:"loanId"`
	UserID           uuid.UUID  `json:"userId"`
	BookID           uuid.UUID  `json:"bookId"`
	LoanDate         time.Time  `json:"loanDate"`
	ReturnDate       time.Time  `json:"returnDate"`
	ActualReturnDate *time.Time `json:"actualReturnDate,omitempty"`
	Status           string     `json:"status"`
}

type LoanCreatedEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}

type LoanReturnedEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}
