package authz

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResourceType identifies a category of protected object. The enumeration is
// versioned: new values require a migration of the permission catalog.
type ResourceType int

const (
	ResourceTypePermission ResourceType = iota + 1
	ResourceTypeUser
	ResourceTypeProfile
	ResourceTypeContact
	ResourceTypeApplication
	ResourceTypeScope
	ResourceTypeAuthorization
)

var resourceTypeNames = map[ResourceType]string{
	ResourceTypePermission:    "permission",
	ResourceTypeUser:          "user",
	ResourceTypeProfile:       "profile",
	ResourceTypeContact:       "contact",
	ResourceTypeApplication:   "application",
	ResourceTypeScope:         "scope",
	ResourceTypeAuthorization: "authorization",
}

// ResourceTypes returns every known resource type in ascending order.
func ResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceTypePermission,
		ResourceTypeUser,
		ResourceTypeProfile,
		ResourceTypeContact,
		ResourceTypeApplication,
		ResourceTypeScope,
		ResourceTypeAuthorization,
	}
}

// Valid reports whether t is part of the known enumeration.
func (t ResourceType) Valid() bool {
	_, ok := resourceTypeNames[t]
	return ok
}

func (t ResourceType) String() string {
	if name, ok := resourceTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// ParseResourceType accepts either the numeric value or the name of a resource type.
func ParseResourceType(value string) (ResourceType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if n, err := strconv.Atoi(value); err == nil {
		t := ResourceType(n)
		if !t.Valid() {
			return 0, fmt.Errorf("authz: unknown resource type %d", n)
		}
		return t, nil
	}
	for t, name := range resourceTypeNames {
		if name == value {
			return t, nil
		}
	}
	return 0, fmt.Errorf("authz: unknown resource type %q", value)
}

// Action names an operation on a resource type.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Permission is a catalog entry, unique per (ResourceType, Action).
type Permission struct {
	ID           int64        `json:"id"`
	ResourceType ResourceType `json:"resource_type"`
	Action       Action       `json:"action"`
}

// Role owns a set of permissions. Names are unique.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AdminRoleName is the well-known seeded role. It is not structurally special.
const AdminRoleName = "admin"

// Status is the stored state of an authorization ledger row. Only StatusActive
// authorizes; every other value, including ones this build does not know, is
// treated as an opaque inactive state.
type Status int

const (
	StatusActive  Status = 0
	StatusRevoked Status = 1
)

// IsActive reports whether the status grants access.
func (s Status) IsActive() bool {
	return s == StatusActive
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRevoked:
		return "revoked"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// GrantKey is the unique (user, client, scope) triple of the ledger.
type GrantKey struct {
	UserID   int64 `json:"user_id"`
	ClientID int64 `json:"client_id"`
	ScopeID  int64 `json:"scope_id"`
}

// Authorization is one ledger row. At most one row exists per GrantKey.
type Authorization struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	ClientID    int64      `json:"client_id"`
	ScopeID     int64      `json:"scope_id"`
	CreatedTime time.Time  `json:"created_time"`
	UpdatedTime *time.Time `json:"updated_time,omitempty"`
	RemovedTime *time.Time `json:"removed_time,omitempty"`
	Status      Status     `json:"status"`
}

// Key returns the row's unique triple.
func (a Authorization) Key() GrantKey {
	return GrantKey{UserID: a.UserID, ClientID: a.ClientID, ScopeID: a.ScopeID}
}

// Decision is the outcome of a permission check.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// ScopeState describes a requested scope relative to the ledger.
type ScopeState string

const (
	ScopeStateNew      ScopeState = "new"
	ScopeStateGranted  ScopeState = "granted"
	ScopeStateRevoked  ScopeState = "revoked"
	ScopeStateInactive ScopeState = "inactive"
)

// ScopeDecision is one entry of a consent preview.
type ScopeDecision struct {
	ScopeID       int64          `json:"scope_id"`
	State         ScopeState     `json:"state"`
	Authorization *Authorization `json:"authorization,omitempty"`
}
