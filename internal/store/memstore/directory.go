package memstore

import (
	"context"
	"sync"
)

// Directory is an in-memory authz.Directory populated by the caller.
type Directory struct {
	mu      sync.RWMutex
	users   map[int64]struct{}
	clients map[int64]struct{}
	scopes  map[int64]int64
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		users:   make(map[int64]struct{}),
		clients: make(map[int64]struct{}),
		scopes:  make(map[int64]int64),
	}
}

// AddUser registers user ids.
func (d *Directory) AddUser(ids ...int64) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		d.users[id] = struct{}{}
	}
	return d
}

// AddClient registers client ids.
func (d *Directory) AddClient(ids ...int64) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		d.clients[id] = struct{}{}
	}
	return d
}

// AddScope registers scopeID as belonging to clientID.
func (d *Directory) AddScope(scopeID, clientID int64) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scopes[scopeID] = clientID
	return d
}

func (d *Directory) UserExists(_ context.Context, userID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[userID]
	return ok, nil
}

func (d *Directory) ClientExists(_ context.Context, clientID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.clients[clientID]
	return ok, nil
}

func (d *Directory) ScopeExists(_ context.Context, scopeID, clientID int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	owner, ok := d.scopes[scopeID]
	return ok && owner == clientID, nil
}
