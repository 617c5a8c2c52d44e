// Package repository defines the narrow, read-only interface the
// authorization core is parameterized over (spec.md §6.2). The core never
// owns a Repository and never writes through it; persistence, caching, and
// connection-pool policy are all the caller's concern.
package repository

import (
	"context"

	"github.com/jmazzahacks/api-gatekeeper/model"
)

// SecretCandidate pairs a client id with its shared secret, as returned by
// CandidateSecrets for the signature scan path (spec.md §4.3, §9).
type SecretCandidate struct {
	ClientID string
	Secret   string
}

// Repository is the core's sole collaborator for configuration and identity
// data. Every method must be cancellable via ctx: the spec requires every
// repository call to be a potential suspension point that a deadline or
// cancellation can interrupt (spec.md §5).
type Repository interface {
	// CandidateRoutes returns routes that might serve (domain, path). The
	// repository may over-approximate (e.g. return everything for the
	// domain); the Route Matcher performs the authoritative filter and
	// ordering. See spec.md §4.4 and §6.2.
	CandidateRoutes(ctx context.Context, domain, path string) ([]model.Route, error)

	// ClientByAPIKey returns the client owning key, or (nil, nil) if none
	// does. API keys are globally unique, so at most one client can match.
	ClientByAPIKey(ctx context.Context, key string) (*model.Client, error)

	// ClientBySharedSecret returns the client owning secret, or (nil, nil)
	// if none does. Shared secrets are globally unique.
	ClientBySharedSecret(ctx context.Context, secret string) (*model.Client, error)

	// ClientByID returns the client by its opaque id, used by the indexed
	// signature-verification path when the caller supplies X-Client-Id
	// (spec.md §9). Returns (nil, nil) if unknown.
	ClientByID(ctx context.Context, id string) (*model.Client, error)

	// CandidateSecrets returns a bounded set of (client id, shared secret)
	// pairs for the signature scan path used when no client-id hint is
	// available (spec.md §4.3, §9).
	CandidateSecrets(ctx context.Context) ([]SecretCandidate, error)

	// Permission returns the permission record for (clientID, routeID), or
	// (nil, nil) if none exists.
	Permission(ctx context.Context, clientID, routeID string) (*model.Permission, error)
}
