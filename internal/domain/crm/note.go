package crm

import (
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Note is free text attached to a lead
type Note struct {
	shared.OwnedAggregateRoot
	LeadID uuid.UUID
	Body   string
}

// NewNote creates a note on a lead
func NewNote(createdBy, leadID uuid.UUID, body string) (*Note, error) {
	if leadID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LEAD_ID", "Lead ID cannot be empty")
	}
	if err := validateRequired("INVALID_NOTE_BODY", "Note body", body, 10000); err != nil {
		return nil, err
	}
	return &Note{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		LeadID:             leadID,
		Body:               strings.TrimSpace(body),
	}, nil
}

// Edit replaces the note text
func (n *Note) Edit(body string) error {
	if err := validateRequired("INVALID_NOTE_BODY", "Note body", body, 10000); err != nil {
		return err
	}
	n.Body = strings.TrimSpace(body)
	n.IncrementVersion()
	return nil
}
