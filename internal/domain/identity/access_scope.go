package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// AccessScope is the set of user IDs whose records a caller may see.
// It is either unrestricted or a finite set that always contains the
// caller. The zero value is restricted to nobody and matches no records.
type AccessScope struct {
	unrestricted bool
	ids          map[uuid.UUID]struct{}
}

// Unrestricted returns the scope of global-tier callers
func Unrestricted() AccessScope {
	return AccessScope{unrestricted: true}
}

// SelfOnly returns a scope that contains the caller alone
func SelfOnly(callerID uuid.UUID) AccessScope {
	return RestrictedTo(callerID)
}

// RestrictedTo returns a restricted scope containing the caller and the given users
func RestrictedTo(callerID uuid.UUID, userIDs ...uuid.UUID) AccessScope {
	ids := make(map[uuid.UUID]struct{}, len(userIDs)+1)
	ids[callerID] = struct{}{}
	for _, id := range userIDs {
		ids[id] = struct{}{}
	}
	return AccessScope{ids: ids}
}

// IsUnrestricted reports whether the scope is the unrestricted sentinel
func (s AccessScope) IsUnrestricted() bool {
	return s.unrestricted
}

// Contains reports whether records owned by userID are visible
func (s AccessScope) Contains(userID uuid.UUID) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.ids[userID]
	return ok
}

// ContainsAny reports whether any of the owners is visible
func (s AccessScope) ContainsAny(userIDs ...uuid.UUID) bool {
	if s.unrestricted {
		return true
	}
	for _, id := range userIDs {
		if _, ok := s.ids[id]; ok {
			return true
		}
	}
	return false
}

// UserIDs returns the members of a restricted scope in a stable order.
// It returns nil for an unrestricted scope.
func (s AccessScope) UserIDs() []uuid.UUID {
	if s.unrestricted {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// Len returns the number of members of a restricted scope, or -1 when unrestricted
func (s AccessScope) Len() int {
	if s.unrestricted {
		return -1
	}
	return len(s.ids)
}

type accessScopeJSON struct {
	Unrestricted bool        `json:"unrestricted"`
	UserIDs      []uuid.UUID `json:"user_ids,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (s AccessScope) MarshalJSON() ([]byte, error) {
	return json.Marshal(accessScopeJSON{Unrestricted: s.unrestricted, UserIDs: s.UserIDs()})
}

// UnmarshalJSON implements json.Unmarshaler
func (s *AccessScope) UnmarshalJSON(data []byte) error {
	var raw accessScopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Unrestricted {
		*s = Unrestricted()
		return nil
	}
	ids := make(map[uuid.UUID]struct{}, len(raw.UserIDs))
	for _, id := range raw.UserIDs {
		ids[id] = struct{}{}
	}
	*s = AccessScope{ids: ids}
	return nil
}

// ReportingLink is one edge of the reporting hierarchy
type ReportingLink struct {
	UserID    uuid.UUID
	ManagerID uuid.UUID
}

// HierarchyReader is the read side of the user/role store used to resolve scopes
type HierarchyReader interface {
	// FindEnabledRoles returns the enabled roles of a user.
	// Returns shared.ErrNotFound when the user does not exist or is deleted.
	FindEnabledRoles(ctx context.Context, userID uuid.UUID) ([]*Role, error)

	// ListReportingLinks returns a link for every non-deleted user that has a manager
	ListReportingLinks(ctx context.Context) ([]ReportingLink, error)
}

// ScopeResolver computes the access scope of a caller
type ScopeResolver interface {
	Resolve(ctx context.Context, callerID uuid.UUID) AccessScope
}

// ScopeInvalidator drops cached scopes after role or hierarchy changes
type ScopeInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// Actor is the authenticated caller of an operation together with its scope
type Actor struct {
	UserID uuid.UUID
	Scope  AccessScope
}

// NewActor creates an actor
func NewActor(userID uuid.UUID, scope AccessScope) Actor {
	return Actor{UserID: userID, Scope: scope}
}

// CanSee reports whether a record owned by any of the given users is visible to the actor
func (a Actor) CanSee(owners ...uuid.UUID) bool {
	return a.Scope.ContainsAny(owners...)
}

type actorContextKey struct{}

// ContextWithActor stores the actor in the context
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored by ContextWithActor
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
