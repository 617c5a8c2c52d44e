// Package storage adapts the repository.Repository boundary (spec.md §6.2)
// onto gorm, backing it with Postgres or SQLite. It owns the schema,
// migrations, and the seed-config bootstrap path; the authorize package never
// imports it directly, only through the repository interface.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmazzahacks/api-gatekeeper/model"
)

// dbRoute is the DB entry for a Route. Methods is stored as a JSON blob:
// gorm has no first-class map column portable across Postgres and SQLite.
type dbRoute struct {
	// ID is the route's opaque stable identifier, reused as the DB primary key.
	ID string `gorm:"primaryKey"`
	// Pattern is the route's URL path pattern.
	Pattern string `gorm:"index:idx_route_pattern"`
	// Domain is the route's domain spec.
	Domain string `gorm:"index:idx_route_domain"`
	// ServiceName is carried through to the caller on allow.
	ServiceName string
	// MethodsJSON is the serialized map[string]model.MethodPolicy.
	MethodsJSON string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (dbRoute) TableName() string { return "routes" }

// dbMethodPolicy is the JSON-serializable shape of model.MethodPolicy.
type dbMethodPolicy struct {
	AuthRequired bool   `json:"auth_required"`
	AuthType     string `json:"auth_type,omitempty"`
}

func (e dbRoute) toModel() (model.Route, error) {
	var raw map[string]dbMethodPolicy
	if e.MethodsJSON != "" {
		if err := json.Unmarshal([]byte(e.MethodsJSON), &raw); err != nil {
			return model.Route{}, fmt.Errorf("route %s: decode methods: %w", e.ID, err)
		}
	}
	methods := make(map[string]model.MethodPolicy, len(raw))
	for method, policy := range raw {
		methods[method] = model.MethodPolicy{
			AuthRequired: policy.AuthRequired,
			AuthType:     model.AuthType(policy.AuthType),
		}
	}
	return model.Route{
		ID:          e.ID,
		Pattern:     e.Pattern,
		Domain:      e.Domain,
		Methods:     methods,
		ServiceName: e.ServiceName,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}, nil
}

func dbRouteFromModel(r model.Route) (dbRoute, error) {
	raw := make(map[string]dbMethodPolicy, len(r.Methods))
	for method, policy := range r.Methods {
		raw[method] = dbMethodPolicy{AuthRequired: policy.AuthRequired, AuthType: string(policy.AuthType)}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return dbRoute{}, fmt.Errorf("route %s: encode methods: %w", r.ID, err)
	}
	return dbRoute{
		ID:          r.ID,
		Pattern:     r.Pattern,
		Domain:      r.Domain,
		ServiceName: r.ServiceName,
		MethodsJSON: string(encoded),
	}, nil
}

// dbClient is the DB entry for a Client.
type dbClient struct {
	// ID is the client's opaque stable identifier, reused as the DB primary key.
	ID string `gorm:"primaryKey"`
	// Name is human-readable.
	Name string
	// APIKey is nullable and globally unique when set.
	APIKey *string `gorm:"uniqueIndex:idx_client_api_key"`
	// SharedSecret is nullable and globally unique when set.
	SharedSecret *string `gorm:"uniqueIndex:idx_client_shared_secret"`
	// Status is the client's lifecycle status.
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (dbClient) TableName() string { return "clients" }

func (e dbClient) toModel() model.Client {
	return model.Client{
		ID:           e.ID,
		Name:         e.Name,
		APIKey:       e.APIKey,
		SharedSecret: e.SharedSecret,
		Status:       model.ClientStatus(e.Status),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func dbClientFromModel(c model.Client) dbClient {
	return dbClient{
		ID:           c.ID,
		Name:         c.Name,
		APIKey:       c.APIKey,
		SharedSecret: c.SharedSecret,
		Status:       string(c.Status),
	}
}

// dbPermission is the DB entry for a (client, route) permission grant.
type dbPermission struct {
	// ClientID is half of the composite primary key.
	ClientID string `gorm:"primaryKey"`
	// RouteID is half of the composite primary key.
	RouteID string `gorm:"primaryKey"`
	// AllowedMethodsJSON is the serialized []string of allowed method tokens.
	AllowedMethodsJSON string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (dbPermission) TableName() string { return "permissions" }

func (e dbPermission) toModel() (model.Permission, error) {
	var methods []string
	if e.AllowedMethodsJSON != "" {
		if err := json.Unmarshal([]byte(e.AllowedMethodsJSON), &methods); err != nil {
			return model.Permission{}, fmt.Errorf(
				"permission %s/%s: decode methods: %w", e.ClientID, e.RouteID, err,
			)
		}
	}
	allowed := make(map[string]bool, len(methods))
	for _, m := range methods {
		allowed[m] = true
	}
	return model.Permission{ClientID: e.ClientID, RouteID: e.RouteID, AllowedMethods: allowed}, nil
}

func dbPermissionFromModel(p model.Permission) (dbPermission, error) {
	methods := make([]string, 0, len(p.AllowedMethods))
	for m, ok := range p.AllowedMethods {
		if ok {
			methods = append(methods, m)
		}
	}
	encoded, err := json.Marshal(methods)
	if err != nil {
		return dbPermission{}, fmt.Errorf("permission %s/%s: encode methods: %w", p.ClientID, p.RouteID, err)
	}
	return dbPermission{ClientID: p.ClientID, RouteID: p.RouteID, AllowedMethodsJSON: string(encoded)}, nil
}
