package crm

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NoteService handles notes attached to leads
type NoteService struct {
	noteRepo crm.NoteRepository
	leadRepo crm.LeadRepository
	logger   *zap.Logger
}

// NewNoteService creates a new NoteService
func NewNoteService(noteRepo crm.NoteRepository, leadRepo crm.LeadRepository, logger *zap.Logger) *NoteService {
	return &NoteService{
		noteRepo: noteRepo,
		leadRepo: leadRepo,
		logger:   logger,
	}
}

// Create adds a note to a lead the actor can see
func (s *NoteService) Create(ctx context.Context, actor identity.Actor, leadID uuid.UUID, body string) (*NoteDTO, error) {
	if _, err := s.leadRepo.FindByID(ctx, actor.Scope, leadID); err != nil {
		return nil, lookupError(s.logger, err, "lead")
	}

	note, err := crm.NewNote(actor.UserID, leadID, body)
	if err != nil {
		return nil, err
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, internalError(s.logger, err, "create note")
	}
	return toNoteDTO(note), nil
}

// GetByID returns a visible note
func (s *NoteService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*NoteDTO, error) {
	note, err := s.noteRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "note")
	}
	return toNoteDTO(note), nil
}

// ListByLead returns the visible notes of a lead, newest first
func (s *NoteService) ListByLead(ctx context.Context, actor identity.Actor, leadID uuid.UUID, filter shared.Filter) (*shared.Paginated[NoteDTO], error) {
	if _, err := s.leadRepo.FindByID(ctx, actor.Scope, leadID); err != nil {
		return nil, lookupError(s.logger, err, "lead")
	}

	filter = filter.Normalize()
	notes, total, err := s.noteRepo.FindByLead(ctx, actor.Scope, leadID, filter)
	if err != nil {
		return nil, internalError(s.logger, err, "list notes")
	}

	items := make([]NoteDTO, len(notes))
	for i, note := range notes {
		items[i] = *toNoteDTO(note)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update replaces the text of a note. Only its author may edit it.
func (s *NoteService) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, body string) (*NoteDTO, error) {
	note, err := s.noteRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "note")
	}
	if note.CreatedBy != actor.UserID {
		return nil, shared.NewDomainError("FORBIDDEN", "Only the author can edit a note")
	}
	if err := note.Edit(body); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, internalError(s.logger, err, "update note")
	}
	return toNoteDTO(note), nil
}

// Delete soft-deletes a visible note
func (s *NoteService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := s.noteRepo.Delete(ctx, actor.Scope, id); err != nil {
		return lookupError(s.logger, err, "note")
	}
	return nil
}
