package crm

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LeadService handles lead operations within the caller's access scope
type LeadService struct {
	leadRepo crm.LeadRepository
	dealRepo crm.DealRepository
	deps     Collaborators
	logger   *zap.Logger
}

// NewLeadService creates a new LeadService
func NewLeadService(leadRepo crm.LeadRepository, dealRepo crm.DealRepository, deps Collaborators) *LeadService {
	return &LeadService{
		leadRepo: leadRepo,
		dealRepo: dealRepo,
		deps:     deps,
		logger:   deps.Logger,
	}
}

// Create creates a lead owned by the actor, optionally assigned to someone in scope
func (s *LeadService) Create(ctx context.Context, actor identity.Actor, input CreateLeadInput) (*LeadDTO, error) {
	lead, err := crm.NewLead(actor.UserID, input.Name)
	if err != nil {
		return nil, err
	}
	if err := lead.UpdateDetails(input.Name, input.Company, input.Email, input.Phone, input.Source); err != nil {
		return nil, err
	}
	if err := lead.SetEstimatedValue(input.EstimatedValue, input.Currency); err != nil {
		return nil, err
	}
	if input.AssignedTo != nil && *input.AssignedTo != actor.UserID {
		if err := s.deps.checkAssignee(ctx, actor, *input.AssignedTo); err != nil {
			return nil, err
		}
		if err := lead.Assign(*input.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, internalError(s.logger, err, "create lead")
	}
	if lead.AssignedTo != actor.UserID {
		s.announceAssignment(ctx, lead)
	}

	s.logger.Info("Lead created",
		zap.String("lead_id", lead.ID.String()),
		zap.String("assigned_to", lead.AssignedTo.String()))
	return toLeadDTO(lead), nil
}

// GetByID returns a visible lead
func (s *LeadService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*LeadDTO, error) {
	lead, err := s.leadRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "lead")
	}
	return toLeadDTO(lead), nil
}

// List returns the visible leads matching the filter
func (s *LeadService) List(ctx context.Context, actor identity.Actor, filter crm.LeadFilter) (*shared.Paginated[LeadDTO], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LeadService", "List",
		telemetry.AttrUserID.String(actor.UserID.String()),
		telemetry.AttrScopeSize.Int(actor.Scope.Len()))
	defer span.End()

	filter.Filter = filter.Normalize()
	leads, total, err := s.leadRepo.FindAll(ctx, actor.Scope, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, internalError(s.logger, err, "list leads")
	}

	items := make([]LeadDTO, len(leads))
	for i, lead := range leads {
		items[i] = *toLeadDTO(lead)
	}
	span.SetAttributes(telemetry.AttrItemsCount.Int(len(items)))
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update edits the contact details and value of a visible lead
func (s *LeadService) Update(ctx context.Context, actor identity.Actor, input UpdateLeadInput) (*LeadDTO, error) {
	lead, err := s.leadRepo.FindByID(ctx, actor.Scope, input.ID)
	if err != nil {
		return nil, lookupError(s.logger, err, "lead")
	}
	if lead.Status == crm.LeadStatusConverted {
		return nil, shared.NewDomainError("INVALID_STATE", "Converted leads cannot be edited")
	}
	if err := lead.UpdateDetails(input.Name, input.Company, input.Email, input.Phone, input.Source); err != nil {
		return nil, err
	}
	if err := lead.SetEstimatedValue(input.EstimatedValue, input.Currency); err != nil {
		return nil, err
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, internalError(s.logger, err, "update lead")
	}
	return toLeadDTO(lead), nil
}

// Delete soft-deletes a visible lead
func (s *LeadService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := s.leadRepo.Delete(ctx, actor.Scope, id); err != nil {
		return lookupError(s.logger, err, "lead")
	}
	s.logger.Info("Lead deleted", zap.String("lead_id", id.String()))
	return nil
}

// ChangeStatus moves a visible lead through the funnel
func (s *LeadService) ChangeStatus(ctx context.Context, actor identity.Actor, id uuid.UUID, status string) (*LeadDTO, error) {
	lead, err := s.leadRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "lead")
	}
	if err := lead.ChangeStatus(crm.LeadStatus(status)); err != nil {
		return nil, err
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, internalError(s.logger, err, "update lead status")
	}
	return toLeadDTO(lead), nil
}

// Assign reassigns a visible lead to a user inside the actor's scope
func (s *LeadService) Assign(ctx context.Context, actor identity.Actor, id, assignee uuid.UUID) (*LeadDTO, error) {
	lead, err := s.leadRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "lead")
	}
	if err := s.deps.checkAssignee(ctx, actor, assignee); err != nil {
		return nil, err
	}
	if lead.AssignedTo == assignee {
		return toLeadDTO(lead), nil
	}
	if err := lead.Assign(assignee); err != nil {
		return nil, err
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, internalError(s.logger, err, "assign lead")
	}
	if assignee != actor.UserID {
		s.announceAssignment(ctx, lead)
	}

	s.logger.Info("Lead assigned",
		zap.String("lead_id", lead.ID.String()),
		zap.String("assigned_to", assignee.String()))
	return toLeadDTO(lead), nil
}

// ConvertToDeal turns a qualified lead into a deal. The deal inherits the
// lead's value and assignee.
func (s *LeadService) ConvertToDeal(ctx context.Context, actor identity.Actor, input ConvertLeadInput) (*DealDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "LeadService", "ConvertToDeal",
		telemetry.AttrUserID.String(actor.UserID.String()))
	defer span.End()

	lead, err := s.leadRepo.FindByID(ctx, actor.Scope, input.LeadID)
	if err != nil {
		return nil, lookupError(s.logger, err, "lead")
	}
	if lead.Status != crm.LeadStatusQualified {
		return nil, shared.NewDomainError("INVALID_STATE", "Only qualified leads can be converted")
	}

	deal, err := crm.NewDealFromLead(actor.UserID, lead, input.Title)
	if err != nil {
		return nil, err
	}
	if err := lead.Convert(deal.ID); err != nil {
		return nil, err
	}

	if err := s.dealRepo.Create(ctx, deal); err != nil {
		telemetry.RecordError(span, err)
		return nil, internalError(s.logger, err, "create deal")
	}
	if err := s.leadRepo.Update(ctx, lead); err != nil {
		telemetry.RecordError(span, err)
		// Roll back the deal so the lead can be converted again
		if delErr := s.dealRepo.Delete(ctx, identity.Unrestricted(), deal.ID); delErr != nil {
			s.logger.Error("Failed to remove deal after lead update failure", zap.Error(delErr))
		}
		return nil, internalError(s.logger, err, "convert lead")
	}

	s.deps.publish(ctx, shared.NewDomainEvent(EventLeadConverted, "lead", lead.ID, map[string]any{
		"deal_id":     deal.ID.String(),
		"assigned_to": deal.AssignedTo.String(),
	}))

	s.logger.Info("Lead converted",
		zap.String("lead_id", lead.ID.String()),
		zap.String("deal_id", deal.ID.String()))
	return toDealDTO(deal), nil
}

func (s *LeadService) announceAssignment(ctx context.Context, lead *crm.Lead) {
	s.deps.notify(ctx, lead.AssignedTo, crm.NotificationLeadAssigned,
		"New lead assigned", "You are now responsible for lead \""+lead.Name+"\"")
	s.deps.publish(ctx, shared.NewDomainEvent(EventLeadAssigned, "lead", lead.ID, map[string]any{
		"assigned_to": lead.AssignedTo.String(),
	}))
}
