package identity

import (
	"regexp"
	"strings"

	"github.com/crm/backend/internal/domain/shared"
)

// RoleTier decides how much of the user base a role can see.
// The tier is resolved once when a role is defined and stored with it.
type RoleTier string

const (
	RoleTierGlobal       RoleTier = "global"       // Sees every record
	RoleTierHierarchical RoleTier = "hierarchical" // Sees own reporting subtree
	RoleTierSelf         RoleTier = "self"         // Sees own records only
)

var (
	roleCodeRegex   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	permissionRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Well-known role codes and the tier they map to
var knownRoleTiers = map[string]RoleTier{
	"ADMIN":         RoleTierGlobal,
	"SUPER_ADMIN":   RoleTierGlobal,
	"SUPERADMIN":    RoleTierGlobal,
	"MANAGER":       RoleTierHierarchical,
	"SALES_MANAGER": RoleTierHierarchical,
	"TEAM_LEAD":     RoleTierHierarchical,
	"HEAD":          RoleTierHierarchical,
}

// ClassifyRoleCode maps a role code to its tier, case-insensitively.
// Unknown codes are self tier.
func ClassifyRoleCode(code string) RoleTier {
	if tier, ok := knownRoleTiers[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return tier
	}
	return RoleTierSelf
}

// ParseRoleTier parses a stored or requested tier value
func ParseRoleTier(value string) (RoleTier, error) {
	tier := RoleTier(strings.ToLower(strings.TrimSpace(value)))
	if !tier.IsValid() {
		return "", shared.NewDomainError("INVALID_ROLE_TIER", "Role tier must be one of global, hierarchical, self")
	}
	return tier, nil
}

// IsValid reports whether the tier is one of the known values
func (t RoleTier) IsValid() bool {
	switch t {
	case RoleTierGlobal, RoleTierHierarchical, RoleTierSelf:
		return true
	}
	return false
}

// String implements fmt.Stringer
func (t RoleTier) String() string {
	return string(t)
}

// Permission represents a functional permission (resource:action pattern)
type Permission struct {
	Code     string // e.g., "lead:create"
	Resource string // e.g., "lead"
	Action   string // e.g., "create"
}

// NewPermissionFromCode creates a Permission from a code string (e.g., "lead:create")
func NewPermissionFromCode(code string) (Permission, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(code)), ":", 2)
	if len(parts) != 2 {
		return Permission{}, shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission code must be in format 'resource:action'")
	}
	if !permissionRegex.MatchString(parts[0]) || !permissionRegex.MatchString(parts[1]) {
		return Permission{}, shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission resource and action must be lowercase identifiers")
	}
	return Permission{
		Code:     parts[0] + ":" + parts[1],
		Resource: parts[0],
		Action:   parts[1],
	}, nil
}

// Role represents a role in the RBAC system
type Role struct {
	shared.BaseAggregateRoot
	Code         string
	Name         string
	Description  string
	Tier         RoleTier
	IsSystemRole bool // System roles cannot be deleted
	IsEnabled    bool
	Permissions  []Permission // Stored in role_permissions
}

// NewRole creates a new role whose tier is classified from its code
func NewRole(code, name string) (*Role, error) {
	return NewRoleWithTier(code, name, ClassifyRoleCode(code))
}

// NewRoleWithTier creates a new role with an explicit tier
func NewRoleWithTier(code, name string, tier RoleTier) (*Role, error) {
	if err := validateRoleCode(code); err != nil {
		return nil, err
	}
	if err := validateRoleName(name); err != nil {
		return nil, err
	}
	if !tier.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE_TIER", "Role tier must be one of global, hierarchical, self")
	}

	return &Role{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(strings.TrimSpace(code)),
		Name:              strings.TrimSpace(name),
		Tier:              tier,
		IsEnabled:         true,
		Permissions:       make([]Permission, 0),
	}, nil
}

// NewSystemRole creates a new system role (cannot be deleted)
func NewSystemRole(code, name string) (*Role, error) {
	role, err := NewRole(code, name)
	if err != nil {
		return nil, err
	}
	role.IsSystemRole = true
	return role, nil
}

// Update updates the role's basic information
func (r *Role) Update(name, description string) error {
	if err := validateRoleName(name); err != nil {
		return err
	}
	r.Name = strings.TrimSpace(name)
	r.Description = strings.TrimSpace(description)
	r.IncrementVersion()
	return nil
}

// SetTier overrides the classified tier
func (r *Role) SetTier(tier RoleTier) error {
	if !tier.IsValid() {
		return shared.NewDomainError("INVALID_ROLE_TIER", "Role tier must be one of global, hierarchical, self")
	}
	r.Tier = tier
	r.IncrementVersion()
	return nil
}

// Enable enables the role
func (r *Role) Enable() error {
	if r.IsEnabled {
		return shared.NewDomainError("ALREADY_ENABLED", "Role is already enabled")
	}
	r.IsEnabled = true
	r.IncrementVersion()
	return nil
}

// Disable disables the role
func (r *Role) Disable() error {
	if !r.IsEnabled {
		return shared.NewDomainError("ALREADY_DISABLED", "Role is already disabled")
	}
	if r.IsSystemRole {
		return shared.NewDomainError("CANNOT_DISABLE_SYSTEM_ROLE", "System roles cannot be disabled")
	}
	r.IsEnabled = false
	r.IncrementVersion()
	return nil
}

// SetPermissionCodes replaces the role's permissions
func (r *Role) SetPermissionCodes(codes []string) error {
	seen := make(map[string]bool, len(codes))
	perms := make([]Permission, 0, len(codes))
	for _, code := range codes {
		perm, err := NewPermissionFromCode(code)
		if err != nil {
			return err
		}
		if !seen[perm.Code] {
			seen[perm.Code] = true
			perms = append(perms, perm)
		}
	}

	r.Permissions = perms
	r.IncrementVersion()
	return nil
}

// PermissionCodes returns the permission codes of the role
func (r *Role) PermissionCodes() []string {
	codes := make([]string, len(r.Permissions))
	for i, p := range r.Permissions {
		codes[i] = p.Code
	}
	return codes
}

// HasPermission checks if the role has a specific permission
func (r *Role) HasPermission(code string) bool {
	for _, p := range r.Permissions {
		if p.Code == code {
			return true
		}
	}
	return false
}

// CanDelete returns true if the role can be deleted
func (r *Role) CanDelete() bool {
	return !r.IsSystemRole
}

func validateRoleCode(code string) error {
	code = strings.TrimSpace(code)
	if len(code) < 2 {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code must be at least 2 characters")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code cannot exceed 50 characters")
	}
	if !roleCodeRegex.MatchString(code) {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

func validateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 100 characters")
	}
	return nil
}
