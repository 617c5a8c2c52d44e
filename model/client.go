package model

import (
	"fmt"
	"time"
)

// ClientStatus is a client's lifecycle state. Only ClientStatusActive may
// authenticate.
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "active"
	ClientStatusSuspended ClientStatus = "suspended"
	ClientStatusRevoked   ClientStatus = "revoked"
)

// Client is an identified caller holding one or two credentials and a
// lifecycle status. See spec.md §3.
type Client struct {
	// ID is the opaque stable identifier.
	ID string `validate:"required"`
	// Name is human-readable, returned on allow.
	Name string `validate:"required"`
	// APIKey is an optional opaque token, globally unique when present.
	APIKey *string
	// SharedSecret is an optional opaque token, globally unique when present.
	SharedSecret *string
	// Status is the client's lifecycle state.
	Status    ClientStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCredential reports whether the client carries at least one of the two
// credential forms, per the "at least one of {api_key, shared_secret}" invariant.
func (c Client) HasCredential() bool {
	return (c.APIKey != nil && *c.APIKey != "") || (c.SharedSecret != nil && *c.SharedSecret != "")
}

// IsActive reports whether the client's status authenticates.
func (c Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

func (c Client) String() string {
	return fmt.Sprintf("CLIENT[%s %q %s]", c.ID, c.Name, c.Status)
}

// Permission is the (client, route, method-set) triple that grants access.
// Unique per (ClientID, RouteID).
type Permission struct {
	ClientID       string `validate:"required"`
	RouteID        string `validate:"required"`
	AllowedMethods map[string]bool `validate:"required,min=1"`
}

// Allows reports whether method is present in the permission's allowed set.
func (p Permission) Allows(method string) bool {
	return p.AllowedMethods[method]
}

func (p Permission) String() string {
	return fmt.Sprintf("PERMISSION[client=%s route=%s]", p.ClientID, p.RouteID)
}
