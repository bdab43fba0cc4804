// Package memstore is an in-process authz.Store. Transactions run one at a
// time against a private copy of the state that is published only when the
// callback succeeds and the context is still live.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charlesng35/authzd/internal/authz"
)

type state struct {
	nextPermissionID    int64
	nextRoleID          int64
	nextAuthorizationID int64

	permissions     map[int64]authz.Permission
	roles           map[int64]authz.Role
	rolePermissions map[int64]map[int64]struct{}
	userRoles       map[int64]map[int64]struct{}
	authorizations  map[int64]authz.Authorization
}

func newState() *state {
	return &state{
		permissions:     make(map[int64]authz.Permission),
		roles:           make(map[int64]authz.Role),
		rolePermissions: make(map[int64]map[int64]struct{}),
		userRoles:       make(map[int64]map[int64]struct{}),
		authorizations:  make(map[int64]authz.Authorization),
	}
}

func (s *state) clone() *state {
	out := newState()
	out.nextPermissionID = s.nextPermissionID
	out.nextRoleID = s.nextRoleID
	out.nextAuthorizationID = s.nextAuthorizationID
	for id, p := range s.permissions {
		out.permissions[id] = p
	}
	for id, r := range s.roles {
		out.roles[id] = r
	}
	for id, set := range s.rolePermissions {
		out.rolePermissions[id] = cloneSet(set)
	}
	for id, set := range s.userRoles {
		out.userRoles[id] = cloneSet(set)
	}
	for id, a := range s.authorizations {
		out.authorizations[id] = cloneAuthorization(a)
	}
	return out
}

func cloneSet(in map[int64]struct{}) map[int64]struct{} {
	out := make(map[int64]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneAuthorization(a authz.Authorization) authz.Authorization {
	if a.UpdatedTime != nil {
		t := *a.UpdatedTime
		a.UpdatedTime = &t
	}
	if a.RemovedTime != nil {
		t := *a.RemovedTime
		a.RemovedTime = &t
	}
	return a
}

// Store keeps all engine state in memory.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: newState()}
}

// WithinTx runs fn against a snapshot and commits it when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx authz.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&tx{state: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = working
	return nil
}

type tx struct {
	state *state
}

func (t *tx) FindPermission(resourceType authz.ResourceType, action authz.Action) (authz.Permission, error) {
	for _, p := range t.state.permissions {
		if p.ResourceType == resourceType && p.Action == action {
			return p, nil
		}
	}
	return authz.Permission{}, authz.ErrRecordNotFound
}

func (t *tx) PermissionsByIDs(ids []int64) ([]authz.Permission, error) {
	out := make([]authz.Permission, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := t.state.permissions[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *tx) ListPermissions() ([]authz.Permission, error) {
	out := make([]authz.Permission, 0, len(t.state.permissions))
	for _, p := range t.state.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) InsertPermission(p *authz.Permission) error {
	if _, err := t.FindPermission(p.ResourceType, p.Action); err == nil {
		return authz.ErrUniqueViolation
	}
	t.state.nextPermissionID++
	p.ID = t.state.nextPermissionID
	t.state.permissions[p.ID] = *p
	return nil
}

func (t *tx) FindRole(id int64, _ bool) (authz.Role, error) {
	if r, ok := t.state.roles[id]; ok {
		return r, nil
	}
	return authz.Role{}, authz.ErrRecordNotFound
}

func (t *tx) FindRoleByName(name string) (authz.Role, error) {
	for _, r := range t.state.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return authz.Role{}, authz.ErrRecordNotFound
}

func (t *tx) ListRoles() ([]authz.Role, error) {
	out := make([]authz.Role, 0, len(t.state.roles))
	for _, r := range t.state.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) InsertRole(r *authz.Role) error {
	if _, err := t.FindRoleByName(r.Name); err == nil {
		return authz.ErrUniqueViolation
	}
	t.state.nextRoleID++
	r.ID = t.state.nextRoleID
	t.state.roles[r.ID] = *r
	return nil
}

func (t *tx) DeleteRole(id int64) error {
	if _, ok := t.state.roles[id]; !ok {
		return authz.ErrRecordNotFound
	}
	delete(t.state.roles, id)
	delete(t.state.rolePermissions, id)
	for _, roles := range t.state.userRoles {
		delete(roles, id)
	}
	return nil
}

func (t *tx) RolePermissions(roleID int64) ([]authz.Permission, error) {
	held := t.state.rolePermissions[roleID]
	out := make([]authz.Permission, 0, len(held))
	for id := range held {
		if p, ok := t.state.permissions[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) AddRolePermissions(roleID int64, permissionIDs []int64) (int64, error) {
	held, ok := t.state.rolePermissions[roleID]
	if !ok {
		held = make(map[int64]struct{})
		t.state.rolePermissions[roleID] = held
	}
	var added int64
	for _, id := range permissionIDs {
		if _, exists := held[id]; exists {
			continue
		}
		held[id] = struct{}{}
		added++
	}
	return added, nil
}

func (t *tx) DeleteRolePermissions(roleID int64, permissionIDs []int64) (int64, error) {
	held := t.state.rolePermissions[roleID]
	var deleted int64
	for _, id := range permissionIDs {
		if _, ok := held[id]; ok {
			delete(held, id)
			deleted++
		}
	}
	return deleted, nil
}

func (t *tx) UserRoles(userID int64) ([]authz.Role, error) {
	assigned := t.state.userRoles[userID]
	out := make([]authz.Role, 0, len(assigned))
	for id := range assigned {
		if r, ok := t.state.roles[id]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) AddUserRole(userID, roleID int64) (bool, error) {
	assigned, ok := t.state.userRoles[userID]
	if !ok {
		assigned = make(map[int64]struct{})
		t.state.userRoles[userID] = assigned
	}
	if _, exists := assigned[roleID]; exists {
		return false, nil
	}
	assigned[roleID] = struct{}{}
	return true, nil
}

func (t *tx) DeleteUserRole(userID, roleID int64) (bool, error) {
	assigned := t.state.userRoles[userID]
	if _, ok := assigned[roleID]; !ok {
		return false, nil
	}
	delete(assigned, roleID)
	return true, nil
}

func (t *tx) PermissionIDsForRoles(roleIDs []int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	var out []int64
	for _, roleID := range roleIDs {
		for id := range t.state.rolePermissions[roleID] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *tx) FindAuthorization(key authz.GrantKey, _ bool) (authz.Authorization, error) {
	for _, a := range t.state.authorizations {
		if a.Key() == key {
			return cloneAuthorization(a), nil
		}
	}
	return authz.Authorization{}, authz.ErrRecordNotFound
}

func (t *tx) InsertAuthorization(a *authz.Authorization) error {
	if _, err := t.FindAuthorization(a.Key(), false); err == nil {
		return authz.ErrUniqueViolation
	}
	t.state.nextAuthorizationID++
	a.ID = t.state.nextAuthorizationID
	t.state.authorizations[a.ID] = cloneAuthorization(*a)
	return nil
}

func (t *tx) UpdateAuthorization(a *authz.Authorization) error {
	current, ok := t.state.authorizations[a.ID]
	if !ok {
		return authz.ErrRecordNotFound
	}
	if current.Key() != a.Key() {
		if _, err := t.FindAuthorization(a.Key(), false); err == nil {
			return authz.ErrUniqueViolation
		}
	}
	t.state.authorizations[a.ID] = cloneAuthorization(*a)
	return nil
}

func (t *tx) ListAuthorizations(userID int64, status authz.Status) ([]authz.Authorization, error) {
	var out []authz.Authorization
	for _, a := range t.state.authorizations {
		if a.UserID == userID && a.Status == status {
			out = append(out, cloneAuthorization(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedTime.Equal(out[j].CreatedTime) {
			return out[i].CreatedTime.Before(out[j].CreatedTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) PurgeRevokedAuthorizations(cutoff time.Time) (int64, error) {
	var purged int64
	for id, a := range t.state.authorizations {
		if a.Status == authz.StatusRevoked && a.RemovedTime != nil && a.RemovedTime.Before(cutoff) {
			delete(t.state.authorizations, id)
			purged++
		}
	}
	return purged, nil
}
