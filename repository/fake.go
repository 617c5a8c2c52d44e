package repository

import (
	"context"
	"sync"

	"github.com/jmazzahacks/api-gatekeeper/model"
)

// Fake is an in-memory Repository for tests: the authorization core is
// parameterized over the interface (spec.md §6.2), never a concrete store, so
// exercising it against a map-backed fake needs no database.
type Fake struct {
	mu          sync.RWMutex
	routes      map[string]model.Route
	clients     map[string]model.Client
	permissions map[string]model.Permission
}

// NewFake builds an empty Fake.
func NewFake() *Fake {
	return &Fake{
		routes:      map[string]model.Route{},
		clients:     map[string]model.Client{},
		permissions: map[string]model.Permission{},
	}
}

var _ Repository = (*Fake)(nil)

// PutRoute registers or replaces a route.
func (f *Fake) PutRoute(r model.Route) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[r.ID] = r
}

// PutClient registers or replaces a client.
func (f *Fake) PutClient(c model.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[c.ID] = c
}

// PutPermission registers or replaces a permission grant.
func (f *Fake) PutPermission(p model.Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions[p.ClientID+"::"+p.RouteID] = p
}

// CandidateRoutes returns every registered route; the caller narrows.
func (f *Fake) CandidateRoutes(_ context.Context, _, _ string) ([]model.Route, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	routes := make([]model.Route, 0, len(f.routes))
	for _, r := range f.routes {
		routes = append(routes, r)
	}
	return routes, nil
}

// ClientByAPIKey scans for the client holding key.
func (f *Fake) ClientByAPIKey(_ context.Context, key string) (*model.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.clients {
		if c.APIKey != nil && *c.APIKey == key {
			client := c
			return &client, nil
		}
	}
	return nil, nil
}

// ClientBySharedSecret scans for the client holding secret.
func (f *Fake) ClientBySharedSecret(_ context.Context, secret string) (*model.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.clients {
		if c.SharedSecret != nil && *c.SharedSecret == secret {
			client := c
			return &client, nil
		}
	}
	return nil, nil
}

// ClientByID looks up a client by its primary key.
func (f *Fake) ClientByID(_ context.Context, id string) (*model.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if c, ok := f.clients[id]; ok {
		client := c
		return &client, nil
	}
	return nil, nil
}

// CandidateSecrets returns every client's shared secret.
func (f *Fake) CandidateSecrets(_ context.Context) ([]SecretCandidate, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var candidates []SecretCandidate
	for _, c := range f.clients {
		if c.SharedSecret != nil && *c.SharedSecret != "" {
			candidates = append(candidates, SecretCandidate{ClientID: c.ID, Secret: *c.SharedSecret})
		}
	}
	return candidates, nil
}

// Permission returns the grant for (clientID, routeID), if any.
func (f *Fake) Permission(_ context.Context, clientID, routeID string) (*model.Permission, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if p, ok := f.permissions[clientID+"::"+routeID]; ok {
		perm := p
		return &perm, nil
	}
	return nil, nil
}
