package shared

import "github.com/google/uuid"

// BaseAggregateRoot adds a version counter bumped on every change
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// NewBaseAggregateRoot starts at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// IncrementVersion is called by every mutating method of an aggregate
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// OwnedAggregateRoot records the creator, one of the ownership columns the
// access scope filters on
type OwnedAggregateRoot struct {
	BaseAggregateRoot
	CreatedBy uuid.UUID
}

func NewOwnedAggregateRoot(createdBy uuid.UUID) OwnedAggregateRoot {
	return OwnedAggregateRoot{BaseAggregateRoot: NewBaseAggregateRoot(), CreatedBy: createdBy}
}
