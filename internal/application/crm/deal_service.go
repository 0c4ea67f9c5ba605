package crm

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DealService handles deal operations within the caller's access scope
type DealService struct {
	dealRepo crm.DealRepository
	leadRepo crm.LeadRepository
	deps     Collaborators
	logger   *zap.Logger
}

// NewDealService creates a new DealService
func NewDealService(dealRepo crm.DealRepository, leadRepo crm.LeadRepository, deps Collaborators) *DealService {
	return &DealService{
		dealRepo: dealRepo,
		leadRepo: leadRepo,
		deps:     deps,
		logger:   deps.Logger,
	}
}

// Create creates a deal. A linked lead must be visible to the actor.
func (s *DealService) Create(ctx context.Context, actor identity.Actor, input CreateDealInput) (*DealDTO, error) {
	if input.LeadID != nil {
		if _, err := s.leadRepo.FindByID(ctx, actor.Scope, *input.LeadID); err != nil {
			return nil, lookupError(s.logger, err, "lead")
		}
	}

	deal, err := crm.NewDeal(actor.UserID, input.Title, input.Value, input.Currency)
	if err != nil {
		return nil, err
	}
	deal.LeadID = input.LeadID
	deal.ExpectedCloseDate = input.ExpectedCloseDate
	if input.AssignedTo != nil && *input.AssignedTo != actor.UserID {
		if err := s.deps.checkAssignee(ctx, actor, *input.AssignedTo); err != nil {
			return nil, err
		}
		if err := deal.Assign(*input.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.dealRepo.Create(ctx, deal); err != nil {
		return nil, internalError(s.logger, err, "create deal")
	}

	s.logger.Info("Deal created", zap.String("deal_id", deal.ID.String()))
	return toDealDTO(deal), nil
}

// GetByID returns a visible deal
func (s *DealService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*DealDTO, error) {
	deal, err := s.dealRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "deal")
	}
	return toDealDTO(deal), nil
}

// List returns the visible deals matching the filter
func (s *DealService) List(ctx context.Context, actor identity.Actor, filter crm.DealFilter) (*shared.Paginated[DealDTO], error) {
	filter.Filter = filter.Normalize()
	deals, total, err := s.dealRepo.FindAll(ctx, actor.Scope, filter)
	if err != nil {
		return nil, internalError(s.logger, err, "list deals")
	}

	items := make([]DealDTO, len(deals))
	for i, deal := range deals {
		items[i] = *toDealDTO(deal)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update edits an open visible deal
func (s *DealService) Update(ctx context.Context, actor identity.Actor, input UpdateDealInput) (*DealDTO, error) {
	deal, err := s.dealRepo.FindByID(ctx, actor.Scope, input.ID)
	if err != nil {
		return nil, lookupError(s.logger, err, "deal")
	}
	if err := deal.UpdateDetails(input.Title, input.Value, input.Currency, input.ExpectedCloseDate); err != nil {
		return nil, err
	}
	if input.AssignedTo != nil && *input.AssignedTo != deal.AssignedTo {
		if err := s.deps.checkAssignee(ctx, actor, *input.AssignedTo); err != nil {
			return nil, err
		}
		if err := deal.Assign(*input.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, internalError(s.logger, err, "update deal")
	}
	return toDealDTO(deal), nil
}

// Delete soft-deletes a visible deal
func (s *DealService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := s.dealRepo.Delete(ctx, actor.Scope, id); err != nil {
		return lookupError(s.logger, err, "deal")
	}
	s.logger.Info("Deal deleted", zap.String("deal_id", id.String()))
	return nil
}

// MoveStage moves a visible deal along the pipeline
func (s *DealService) MoveStage(ctx context.Context, actor identity.Actor, id uuid.UUID, stage string) (*DealDTO, error) {
	deal, err := s.dealRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "deal")
	}
	from := deal.Stage
	if err := deal.MoveStage(crm.DealStage(stage)); err != nil {
		return nil, err
	}
	if deal.Stage == from {
		return toDealDTO(deal), nil
	}

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, internalError(s.logger, err, "move deal stage")
	}

	s.deps.publish(ctx, shared.NewDomainEvent(EventDealStageChanged, "deal", deal.ID, map[string]any{
		"from":  string(from),
		"to":    string(deal.Stage),
		"value": deal.Value.String(),
	}))

	s.logger.Info("Deal stage changed",
		zap.String("deal_id", deal.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(deal.Stage)))
	return toDealDTO(deal), nil
}
