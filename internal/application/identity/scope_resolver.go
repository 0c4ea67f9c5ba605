package identity

import (
	"context"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccessScopeResolver computes which users' records a caller may see.
//
// Global-tier roles see everything, hierarchical-tier roles see their
// transitive reports, everyone else sees only themselves. Store failures
// never surface to the caller: they are logged and the scope falls back to
// the caller alone, so a broken store can only narrow visibility.
type AccessScopeResolver struct {
	store  identity.HierarchyReader
	logger *zap.Logger
}

// NewAccessScopeResolver creates a new resolver
func NewAccessScopeResolver(store identity.HierarchyReader, logger *zap.Logger) *AccessScopeResolver {
	return &AccessScopeResolver{
		store:  store,
		logger: logger,
	}
}

// Resolve returns the access scope of the caller
func (r *AccessScopeResolver) Resolve(ctx context.Context, callerID uuid.UUID) identity.AccessScope {
	roles, err := r.store.FindEnabledRoles(ctx, callerID)
	if err != nil {
		r.logger.Warn("Failed to load caller roles, restricting scope to caller",
			zap.String("user_id", callerID.String()),
			zap.Error(err))
		return identity.SelfOnly(callerID)
	}

	switch highestTier(roles) {
	case identity.RoleTierGlobal:
		return identity.Unrestricted()
	case identity.RoleTierHierarchical:
		return r.resolveSubtree(ctx, callerID)
	default:
		return identity.SelfOnly(callerID)
	}
}

func (r *AccessScopeResolver) resolveSubtree(ctx context.Context, callerID uuid.UUID) identity.AccessScope {
	links, err := r.store.ListReportingLinks(ctx)
	if err != nil {
		r.logger.Warn("Failed to load reporting links, restricting scope to caller",
			zap.String("user_id", callerID.String()),
			zap.Error(err))
		return identity.SelfOnly(callerID)
	}

	reports, truncated := CollectReports(callerID, links)
	if truncated {
		r.logger.Warn("Reporting hierarchy contains a cycle, returning partial scope",
			zap.String("user_id", callerID.String()),
			zap.Int("reports", len(reports)))
	}
	return identity.RestrictedTo(callerID, reports...)
}

// CollectReports walks the reporting links breadth-first from root and
// returns every transitive report. The walk keeps a visited set and runs at
// most len(links)+1 rounds; truncated is true when a cycle was met.
func CollectReports(root uuid.UUID, links []identity.ReportingLink) (reports []uuid.UUID, truncated bool) {
	children := make(map[uuid.UUID][]uuid.UUID, len(links))
	for _, link := range links {
		children[link.ManagerID] = append(children[link.ManagerID], link.UserID)
	}

	visited := map[uuid.UUID]bool{root: true}
	frontier := []uuid.UUID{root}
	maxRounds := len(links) + 1

	for round := 0; len(frontier) > 0; round++ {
		if round >= maxRounds {
			return reports, true
		}
		var next []uuid.UUID
		for _, manager := range frontier {
			for _, child := range children[manager] {
				if visited[child] {
					truncated = true
					continue
				}
				visited[child] = true
				reports = append(reports, child)
				next = append(next, child)
			}
		}
		frontier = next
	}
	return reports, truncated
}

func highestTier(roles []*identity.Role) identity.RoleTier {
	tier := identity.RoleTierSelf
	for _, role := range roles {
		if role == nil || !role.IsEnabled {
			continue
		}
		switch role.Tier {
		case identity.RoleTierGlobal:
			return identity.RoleTierGlobal
		case identity.RoleTierHierarchical:
			tier = identity.RoleTierHierarchical
		}
	}
	return tier
}
