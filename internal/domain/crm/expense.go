package crm

import (
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseStatus represents the review state of an expense
type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "pending"
	ExpenseStatusApproved ExpenseStatus = "approved"
	ExpenseStatusRejected ExpenseStatus = "rejected"
)

// IsValid checks if the status is a valid ExpenseStatus
func (s ExpenseStatus) IsValid() bool {
	return s == ExpenseStatusPending || s == ExpenseStatusApproved || s == ExpenseStatusRejected
}

// Expense is a cost submitted by a user for review
type Expense struct {
	shared.BaseAggregateRoot
	Title       string
	Category    string
	Amount      decimal.Decimal
	Currency    string
	IncurredOn  time.Time
	Status      ExpenseStatus
	SubmittedBy uuid.UUID
	ReviewedBy  *uuid.UUID
	ReviewedAt  *time.Time
	ReviewNote  string
	ReceiptKey  string // Object storage key of the attached receipt
}

// NewExpense creates a new pending expense
func NewExpense(submittedBy uuid.UUID, title, category string, amount decimal.Decimal, currency string, incurredOn time.Time) (*Expense, error) {
	if err := validateRequired("INVALID_EXPENSE_TITLE", "Expense title", title, 200); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Expense amount must be positive")
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "other"
	}

	return &Expense{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             strings.TrimSpace(title),
		Category:          category,
		Amount:            RoundMoney(amount),
		Currency:          code,
		IncurredOn:        incurredOn.UTC(),
		Status:            ExpenseStatusPending,
		SubmittedBy:       submittedBy,
	}, nil
}

// UpdateDetails edits a pending expense
func (e *Expense) UpdateDetails(title, category string, amount decimal.Decimal, currency string, incurredOn time.Time) error {
	if e.Status != ExpenseStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending expenses can be edited")
	}
	updated, err := NewExpense(e.SubmittedBy, title, category, amount, currency, incurredOn)
	if err != nil {
		return err
	}
	e.Title = updated.Title
	e.Category = updated.Category
	e.Amount = updated.Amount
	e.Currency = updated.Currency
	e.IncurredOn = updated.IncurredOn
	e.IncrementVersion()
	return nil
}

// Approve approves a pending expense
func (e *Expense) Approve(reviewer uuid.UUID, note string) error {
	return e.review(reviewer, ExpenseStatusApproved, note)
}

// Reject rejects a pending expense
func (e *Expense) Reject(reviewer uuid.UUID, note string) error {
	if strings.TrimSpace(note) == "" {
		return shared.NewDomainError("INVALID_REVIEW_NOTE", "A reason is required to reject an expense")
	}
	return e.review(reviewer, ExpenseStatusRejected, note)
}

func (e *Expense) review(reviewer uuid.UUID, status ExpenseStatus, note string) error {
	if e.Status != ExpenseStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending expenses can be reviewed")
	}
	if reviewer == e.SubmittedBy {
		return shared.NewDomainError("SELF_REVIEW", "Expenses cannot be reviewed by their submitter")
	}
	now := time.Now().UTC()
	e.Status = status
	e.ReviewedBy = &reviewer
	e.ReviewedAt = &now
	e.ReviewNote = strings.TrimSpace(note)
	e.IncrementVersion()
	return nil
}

// AttachReceipt records the storage key of an uploaded receipt and returns
// the key it replaces, if any. Receipts are frozen once reviewed.
func (e *Expense) AttachReceipt(key string) (string, error) {
	if e.Status != ExpenseStatusPending {
		return "", shared.NewDomainError("INVALID_STATE", "Receipts can only be attached to pending expenses")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", shared.NewDomainError("INVALID_RECEIPT", "Receipt key cannot be empty")
	}
	previous := e.ReceiptKey
	e.ReceiptKey = key
	e.IncrementVersion()
	return previous, nil
}

// HasReceipt reports whether a receipt is attached
func (e *Expense) HasReceipt() bool {
	return e.ReceiptKey != ""
}
