package crm

import (
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DealStage represents the pipeline stage of a deal
type DealStage string

const (
	DealStageProspecting   DealStage = "prospecting"
	DealStageQualification DealStage = "qualification"
	DealStageProposal      DealStage = "proposal"
	DealStageNegotiation   DealStage = "negotiation"
	DealStageWon           DealStage = "won"
	DealStageLost          DealStage = "lost"
)

// AllDealStages lists stages in pipeline order
var AllDealStages = []DealStage{
	DealStageProspecting, DealStageQualification, DealStageProposal,
	DealStageNegotiation, DealStageWon, DealStageLost,
}

// IsValid checks if the stage is a valid DealStage
func (s DealStage) IsValid() bool {
	switch s {
	case DealStageProspecting, DealStageQualification, DealStageProposal,
		DealStageNegotiation, DealStageWon, DealStageLost:
		return true
	}
	return false
}

// IsClosed returns true for won and lost deals
func (s DealStage) IsClosed() bool {
	return s == DealStageWon || s == DealStageLost
}

// Deal is a sales opportunity moving through the pipeline
type Deal struct {
	shared.OwnedAggregateRoot
	Title             string
	LeadID            *uuid.UUID
	Stage             DealStage
	Value             decimal.Decimal
	Currency          string
	ExpectedCloseDate *time.Time
	ClosedAt          *time.Time
	AssignedTo        uuid.UUID
}

// NewDeal creates a new deal in the prospecting stage
func NewDeal(createdBy uuid.UUID, title string, value decimal.Decimal, currency string) (*Deal, error) {
	if err := validateRequired("INVALID_DEAL_TITLE", "Deal title", title, 200); err != nil {
		return nil, err
	}
	if err := validateNonNegative("Deal value", value); err != nil {
		return nil, err
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	return &Deal{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		Title:              strings.TrimSpace(title),
		Stage:              DealStageProspecting,
		Value:              RoundMoney(value),
		Currency:           code,
		AssignedTo:         createdBy,
	}, nil
}

// NewDealFromLead creates a deal carrying over the lead's value and assignee
func NewDealFromLead(createdBy uuid.UUID, lead *Lead, title string) (*Deal, error) {
	if strings.TrimSpace(title) == "" {
		title = lead.Name
		if lead.Company != "" {
			title = lead.Company + " - " + lead.Name
		}
	}
	deal, err := NewDeal(createdBy, title, lead.EstimatedValue, lead.Currency)
	if err != nil {
		return nil, err
	}
	leadID := lead.ID
	deal.LeadID = &leadID
	deal.AssignedTo = lead.AssignedTo
	deal.Stage = DealStageQualification
	return deal, nil
}

// UpdateDetails updates the editable fields of an open deal
func (d *Deal) UpdateDetails(title string, value decimal.Decimal, currency string, expectedClose *time.Time) error {
	if d.Stage.IsClosed() {
		return shared.NewDomainError("INVALID_STATE", "Closed deals cannot be edited")
	}
	if err := validateRequired("INVALID_DEAL_TITLE", "Deal title", title, 200); err != nil {
		return err
	}
	if err := validateNonNegative("Deal value", value); err != nil {
		return err
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return err
	}
	d.Title = strings.TrimSpace(title)
	d.Value = RoundMoney(value)
	d.Currency = code
	d.ExpectedCloseDate = expectedClose
	d.IncrementVersion()
	return nil
}

// MoveStage moves the deal along the pipeline. Won and lost are terminal.
func (d *Deal) MoveStage(stage DealStage) error {
	if !stage.IsValid() {
		return shared.NewDomainError("INVALID_DEAL_STAGE", "Invalid deal stage")
	}
	if d.Stage.IsClosed() {
		return shared.NewDomainError("INVALID_STATE", "Deal is already "+string(d.Stage))
	}
	if stage == d.Stage {
		return nil
	}
	d.Stage = stage
	if stage.IsClosed() {
		now := time.Now().UTC()
		d.ClosedAt = &now
	}
	d.IncrementVersion()
	return nil
}

// Assign hands the deal to another user
func (d *Deal) Assign(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_ASSIGNEE", "Assignee cannot be empty")
	}
	d.AssignedTo = userID
	d.IncrementVersion()
	return nil
}
