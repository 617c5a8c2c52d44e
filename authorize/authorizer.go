// Package authorize implements the Authorizer (spec.md §4.1): the decision
// state machine that orchestrates the Credential Parser, Route Matcher,
// Method Policy Resolver, Signature Verifier, Client Resolver, and Permission
// Checker as a short-circuiting pipeline producing a single Decision.
//
// The Authorizer holds no mutable state of its own; every field set at
// construction is read-only thereafter, so one instance is safe to share
// across goroutines (spec.md §5).
package authorize

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"

	"github.com/jmazzahacks/api-gatekeeper/clock"
	"github.com/jmazzahacks/api-gatekeeper/common"
	"github.com/jmazzahacks/api-gatekeeper/credential"
	"github.com/jmazzahacks/api-gatekeeper/model"
	"github.com/jmazzahacks/api-gatekeeper/permcheck"
	"github.com/jmazzahacks/api-gatekeeper/repository"
	"github.com/jmazzahacks/api-gatekeeper/routematch"
	"github.com/jmazzahacks/api-gatekeeper/signature"
)

// Request is everything the Authorizer needs to reach a Decision (spec.md §6.1).
type Request struct {
	// Domain is the request's target host, with any ":port" suffix and
	// casing already stripped by the adapter. Empty means "no domain known".
	Domain string
	// Path is the request path, beginning with "/".
	Path string
	// Method is the HTTP method token.
	Method string
	// Headers is a case-insensitive header lookup.
	Headers credential.Headers
	// Query is the request's query parameters.
	Query map[string]string
	// Body is the raw request body, possibly empty.
	Body []byte
}

// Config tunes the Authorizer's behavior beyond its Repository dependency.
type Config struct {
	// SignatureTolerance is the freshness window for signature timestamps.
	// Zero means signature.DefaultTolerance.
	SignatureTolerance time.Duration
}

// Authorizer evaluates requests against routes, clients, and permissions
// served by a Repository, producing a typed Decision for every input.
type Authorizer struct {
	goutils.Component
	repo   repository.Repository
	clock  clock.Clock
	config Config
}

// New builds an Authorizer. repo and clk are borrowed, not owned: the caller
// is responsible for their lifecycle (spec.md §5, §9).
func New(repo repository.Repository, clk clock.Clock, cfg Config) *Authorizer {
	return &Authorizer{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "authorize", "component": "authorizer"},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
				common.ModifyLogMetadataByAuthorizeRequestParam,
			},
		},
		repo:   repo,
		clock:  clk,
		config: cfg,
	}
}

// Authorize runs the pipeline of spec.md §4.1 against req and returns exactly
// one Decision. It never panics outward and never returns a zero Decision:
// any unrecovered condition surfaces as ReasonInternalError with SubReasonPanic.
func (a *Authorizer) Authorize(ctx context.Context, req Request) (decision model.Decision) {
	logTags := a.GetLogTagsForContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logTags).Errorf("authorize: recovered panic: %v", r)
			decision = model.DenyInternal(model.SubReasonPanic)
		}
	}()

	if err := ctx.Err(); err != nil {
		return model.DenyInternal(model.SubReasonTimeout)
	}

	// Step 1: match route.
	route, err := a.matchRoute(ctx, req.Domain, req.Path)
	if err != nil {
		return repositoryFailure(ctx, err)
	}
	if route == nil {
		log.WithFields(logTags).Debugf("no route for %s %s@%s", req.Method, req.Path, req.Domain)
		return model.Deny(model.ReasonNoRoute)
	}

	// Step 2: resolve method policy.
	policy, ok := route.MethodPolicyFor(req.Method)
	if !ok {
		return model.DenyWithRoute(model.ReasonMethodNotConfigured, route.ID)
	}

	// Step 3: public method short-circuits immediately.
	if !policy.AuthRequired {
		return model.Allow(model.ReasonNoAuthRequired, route.ID)
	}

	// Step 4: parse credentials.
	creds := credential.Parse(req.Headers, req.Query)

	// Step 5: authenticate, per the route's auth_type.
	client, reason, err := a.authenticate(ctx, req, creds, policy)
	if err != nil {
		return repositoryFailure(ctx, err)
	}
	if reason != "" {
		return model.DenyWithRoute(reason, route.ID)
	}

	// Step 6: client status.
	if !client.IsActive() {
		reason := model.ReasonClientSuspended
		if client.Status == model.ClientStatusRevoked {
			reason = model.ReasonClientRevoked
		}
		return model.DenyWithRoute(reason, route.ID)
	}

	// Step 7: permission.
	perm, err := a.repo.Permission(ctx, client.ID, route.ID)
	if err != nil {
		return repositoryFailure(ctx, err)
	}
	switch permcheck.Check(perm, req.Method) {
	case permcheck.NoPermission:
		return model.DenyWithRoute(model.ReasonNoPermission, route.ID)
	case permcheck.MethodNotAllowed:
		return model.DenyWithRoute(model.ReasonMethodNotAllowed, route.ID)
	}

	// Step 8: allow.
	return model.AllowAuthenticated(route.ID, client.ID, client.Name)
}

// matchRoute fetches candidate routes for (domain, path) and runs the Route
// Matcher over them.
func (a *Authorizer) matchRoute(ctx context.Context, domain, path string) (*model.Route, error) {
	candidates, err := a.repo.CandidateRoutes(ctx, domain, path)
	if err != nil {
		return nil, err
	}
	route, ok := routematch.Match(domain, path, candidates)
	if !ok {
		return nil, nil
	}
	return route, nil
}

// authenticate runs step 5 of the pipeline: it resolves credentials per
// policy.AuthType and returns either a resolved, non-nil client (reason ==
// ""), or a deny reason (client == nil). A non-nil error means a repository
// fault occurred and must become an internal_error decision.
func (a *Authorizer) authenticate(
	ctx context.Context, req Request, creds credential.Credentials, policy model.MethodPolicy,
) (*model.Client, model.ReasonTag, error) {
	authType := policy.AuthType

	// "Either" policies prefer a signature bundle when present, else a key.
	// A route configured with AuthType == "" but AuthRequired == true is
	// treated the same as "either" would be: try whichever credential form
	// the caller actually supplied.
	preferSignature := authType == model.AuthTypeSignature
	preferKey := authType == model.AuthTypeKey
	if !preferSignature && !preferKey {
		preferSignature = creds.HasBundle()
		preferKey = !preferSignature
	}

	if preferSignature {
		return a.authenticateBySignature(ctx, req, creds)
	}
	return a.authenticateByKey(ctx, creds)
}

// authenticateByKey implements the "key" path of spec.md §4.1 step 5.
func (a *Authorizer) authenticateByKey(
	ctx context.Context, creds credential.Credentials,
) (*model.Client, model.ReasonTag, error) {
	if !creds.HasAPIKey() {
		return nil, model.ReasonMissingCredentials, nil
	}
	client, err := a.repo.ClientByAPIKey(ctx, creds.APIKey)
	if err != nil {
		return nil, "", err
	}
	if client == nil {
		return nil, model.ReasonInvalidCredentials, nil
	}
	return client, "", nil
}

// authenticateBySignature implements the "signature" path of spec.md §4.1
// step 5, including the indexed vs scan secret-discovery modes of §4.3/§9.
func (a *Authorizer) authenticateBySignature(
	ctx context.Context, req Request, creds credential.Credentials,
) (*model.Client, model.ReasonTag, error) {
	if !creds.HasBundle() {
		return nil, model.ReasonMissingCredentials, nil
	}

	canonical := signature.CanonicalRequest{
		Method:    req.Method,
		Path:      req.Path,
		Timestamp: creds.Bundle.Timestamp,
		Body:      req.Body,
	}

	candidates, err := a.secretCandidates(ctx, creds.ClientIDHint)
	if err != nil {
		return nil, "", err
	}
	if len(candidates) == 0 {
		return nil, model.ReasonInvalidSignature, nil
	}

	result := signature.Verify(
		canonical, creds.Bundle.Signature, creds.Bundle.BodyHash,
		candidates, a.clock, a.config.SignatureTolerance,
	)
	if !result.OK {
		return nil, result.Reason, nil
	}

	client, err := a.repo.ClientByID(ctx, result.ClientID)
	if err != nil {
		return nil, "", err
	}
	if client == nil {
		// The secret matched but the owning client vanished between the two
		// lookups; treat as a repository inconsistency, not a credential
		// failure the caller can do anything about.
		return nil, "", fmt.Errorf("client %s not found after signature match", result.ClientID)
	}
	return client, "", nil
}

// secretCandidates resolves the candidate set for signature verification: a
// single-entry set via indexed lookup when a client-id hint was supplied,
// otherwise the repository's bounded scan set (spec.md §4.3, §9).
func (a *Authorizer) secretCandidates(ctx context.Context, hint string) ([]signature.Candidate, error) {
	if hint != "" {
		client, err := a.repo.ClientByID(ctx, hint)
		if err != nil {
			return nil, err
		}
		if client == nil || client.SharedSecret == nil || *client.SharedSecret == "" {
			return nil, nil
		}
		return []signature.Candidate{{ClientID: client.ID, Secret: *client.SharedSecret}}, nil
	}

	scanned, err := a.repo.CandidateSecrets(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]signature.Candidate, 0, len(scanned))
	for _, s := range scanned {
		candidates = append(candidates, signature.Candidate{ClientID: s.ClientID, Secret: s.Secret})
	}
	return candidates, nil
}

// repositoryFailure classifies a repository error as either a cancellation
// (ctx was done) or a generic repository fault, per spec.md §5 and §7.
func repositoryFailure(ctx context.Context, err error) model.Decision {
	if ctx.Err() != nil {
		return model.DenyInternal(model.SubReasonTimeout)
	}
	log.WithError(err).Error("authorize: repository call failed")
	return model.DenyInternal(model.SubReasonRepositoryError)
}
