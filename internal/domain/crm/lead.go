package crm

import (
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeadStatus represents the qualification stage of a lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusLost      LeadStatus = "lost"
	LeadStatusConverted LeadStatus = "converted"
)

// AllLeadStatuses lists statuses in funnel order
var AllLeadStatuses = []LeadStatus{
	LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusLost, LeadStatusConverted,
}

// IsValid checks if the status is a valid LeadStatus
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusLost, LeadStatusConverted:
		return true
	}
	return false
}

// IsTerminal returns true for converted and lost leads
func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusConverted || s == LeadStatusLost
}

// Lead is a prospective customer
type Lead struct {
	shared.OwnedAggregateRoot
	Name           string
	Company        string
	Email          string
	Phone          string
	Source         string
	Status         LeadStatus
	EstimatedValue decimal.Decimal
	Currency       string
	AssignedTo     uuid.UUID
	ConvertedDeal  *uuid.UUID
}

// NewLead creates a new lead assigned to its creator
func NewLead(createdBy uuid.UUID, name string) (*Lead, error) {
	if err := validateRequired("INVALID_LEAD_NAME", "Lead name", name, 200); err != nil {
		return nil, err
	}

	return &Lead{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		Name:               strings.TrimSpace(name),
		Status:             LeadStatusNew,
		EstimatedValue:     decimal.Zero,
		Currency:           DefaultCurrency,
		AssignedTo:         createdBy,
	}, nil
}

// UpdateDetails updates the contact information of the lead
func (l *Lead) UpdateDetails(name, company, email, phone, source string) error {
	if err := validateRequired("INVALID_LEAD_NAME", "Lead name", name, 200); err != nil {
		return err
	}
	l.Name = strings.TrimSpace(name)
	l.Company = strings.TrimSpace(company)
	l.Email = strings.ToLower(strings.TrimSpace(email))
	l.Phone = strings.TrimSpace(phone)
	l.Source = strings.TrimSpace(source)
	l.IncrementVersion()
	return nil
}

// SetEstimatedValue sets the expected value of the lead
func (l *Lead) SetEstimatedValue(value decimal.Decimal, currency string) error {
	if err := validateNonNegative("Estimated value", value); err != nil {
		return err
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return err
	}
	l.EstimatedValue = RoundMoney(value)
	l.Currency = code
	l.IncrementVersion()
	return nil
}

// ChangeStatus moves the lead to another status.
// Converted and lost are terminal; conversion goes through Convert.
func (l *Lead) ChangeStatus(status LeadStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_LEAD_STATUS", "Invalid lead status")
	}
	if l.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Lead is already "+string(l.Status))
	}
	if status == LeadStatusConverted {
		return shared.NewDomainError("INVALID_STATE", "Use conversion to convert a lead")
	}
	l.Status = status
	l.IncrementVersion()
	return nil
}

// Assign hands the lead to another user
func (l *Lead) Assign(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_ASSIGNEE", "Assignee cannot be empty")
	}
	if l.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot reassign a closed lead")
	}
	l.AssignedTo = userID
	l.IncrementVersion()
	return nil
}

// Convert marks a qualified lead as converted into the given deal
func (l *Lead) Convert(dealID uuid.UUID) error {
	if l.Status != LeadStatusQualified {
		return shared.NewDomainError("INVALID_STATE", "Only qualified leads can be converted")
	}
	l.Status = LeadStatusConverted
	l.ConvertedDeal = &dealID
	l.IncrementVersion()
	return nil
}
