package authorize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jmazzahacks/api-gatekeeper/clock"
	"github.com/jmazzahacks/api-gatekeeper/credential"
	"github.com/jmazzahacks/api-gatekeeper/model"
	"github.com/jmazzahacks/api-gatekeeper/repository"
	"github.com/jmazzahacks/api-gatekeeper/signature"
)

func strPtr(s string) *string { return &s }

func publicRoute() model.Route {
	return model.Route{
		ID: "route-public", Pattern: "/public/*", Domain: "api.unittest.org",
		Methods: map[string]model.MethodPolicy{"GET": {AuthRequired: false}},
	}
}

func keyRoute() model.Route {
	return model.Route{
		ID: "route-key", Pattern: "/private/*", Domain: "api.unittest.org",
		Methods: map[string]model.MethodPolicy{
			"GET":  {AuthRequired: true, AuthType: model.AuthTypeKey},
			"POST": {AuthRequired: true, AuthType: model.AuthTypeKey},
		},
	}
}

func sigRoute() model.Route {
	return model.Route{
		ID: "route-sig", Pattern: "/signed/*", Domain: "api.unittest.org",
		Methods: map[string]model.MethodPolicy{
			"POST": {AuthRequired: true, AuthType: model.AuthTypeSignature},
		},
	}
}

func activeClientWithKey() model.Client {
	return model.Client{ID: "client1", Name: "Client One", APIKey: strPtr("key1"), Status: model.ClientStatusActive}
}

func TestAuthorizeNoRoute(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{Domain: "api.unittest.org", Path: "/nothing", Method: "GET"})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonNoRoute, decision.Reason)
}

func TestAuthorizeMethodNotConfigured(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(publicRoute())
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{Domain: "api.unittest.org", Path: "/public/x", Method: "DELETE"})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonMethodNotConfigured, decision.Reason)
	assert.Equal("route-public", decision.RouteID)
}

func TestAuthorizePublicMethod(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(publicRoute())
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{Domain: "api.unittest.org", Path: "/public/x", Method: "GET"})
	assert.True(decision.Allowed)
	assert.Equal(model.ReasonNoAuthRequired, decision.Reason)
	assert.Equal("route-public", decision.RouteID)
	assert.Empty(decision.ClientID)
}

func TestAuthorizeKeyMissingCredentials(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(keyRoute())
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/private/x", Method: "GET", Headers: credential.MapHeaders{},
	})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonMissingCredentials, decision.Reason)
}

func TestAuthorizeKeyInvalidCredentials(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(keyRoute())
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/private/x", Method: "GET",
		Headers: credential.MapHeaders{"Authorization": "Bearer nope"},
	})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonInvalidCredentials, decision.Reason)
}

func TestAuthorizeKeyAllow(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(keyRoute())
	repo.PutClient(activeClientWithKey())
	repo.PutPermission(model.Permission{ClientID: "client1", RouteID: "route-key", AllowedMethods: map[string]bool{"GET": true}})
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/private/x", Method: "GET",
		Headers: credential.MapHeaders{"Authorization": "Bearer key1"},
	})
	assert.True(decision.Allowed)
	assert.Equal(model.ReasonAuthenticated, decision.Reason)
	assert.Equal("client1", decision.ClientID)
	assert.Equal("Client One", decision.ClientName)
	assert.Equal("route-key", decision.RouteID)
}

func TestAuthorizeClientSuspended(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(keyRoute())
	client := activeClientWithKey()
	client.Status = model.ClientStatusSuspended
	repo.PutClient(client)
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/private/x", Method: "GET",
		Headers: credential.MapHeaders{"Authorization": "Bearer key1"},
	})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonClientSuspended, decision.Reason)
}

func TestAuthorizeClientRevoked(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(keyRoute())
	client := activeClientWithKey()
	client.Status = model.ClientStatusRevoked
	repo.PutClient(client)
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/private/x", Method: "GET",
		Headers: credential.MapHeaders{"Authorization": "Bearer key1"},
	})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonClientRevoked, decision.Reason)
}

func TestAuthorizeNoPermission(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(keyRoute())
	repo.PutClient(activeClientWithKey())
	// No permission record registered at all.
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/private/x", Method: "GET",
		Headers: credential.MapHeaders{"Authorization": "Bearer key1"},
	})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonNoPermission, decision.Reason)
}

func TestAuthorizeMethodNotAllowed(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	repo.PutRoute(keyRoute())
	repo.PutClient(activeClientWithKey())
	repo.PutPermission(model.Permission{ClientID: "client1", RouteID: "route-key", AllowedMethods: map[string]bool{"GET": true}})
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/private/x", Method: "POST",
		Headers: credential.MapHeaders{"Authorization": "Bearer key1"},
	})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonMethodNotAllowed, decision.Reason)
}

func TestAuthorizeSignatureAllow(t *testing.T) {
	assert := assert.New(t)

	now := time.Unix(1700000000, 0)
	frozen := clock.NewFrozen(now)

	repo := repository.NewFake()
	repo.PutRoute(sigRoute())
	client := model.Client{ID: "client1", Name: "Client One", SharedSecret: strPtr("shh"), Status: model.ClientStatusActive}
	repo.PutClient(client)
	repo.PutPermission(model.Permission{ClientID: "client1", RouteID: "route-sig", AllowedMethods: map[string]bool{"POST": true}})
	core := New(repo, frozen, Config{})

	body := []byte(`{"a":1}`)
	canonical := signature.CanonicalRequest{Method: "POST", Path: "/signed/x", Timestamp: "1700000000", Body: body}
	sig := signature.Sign(canonical, "shh")

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/signed/x", Method: "POST", Body: body,
		Headers: credential.MapHeaders{
			"X-Signature": sig,
			"X-Timestamp": "1700000000",
			"X-Body-Hash": signature.BodyHash(body),
			"X-Client-Id": "client1",
		},
	})
	assert.True(decision.Allowed)
	assert.Equal(model.ReasonAuthenticated, decision.Reason)
	assert.Equal("client1", decision.ClientID)
}

func TestAuthorizeSignatureExpired(t *testing.T) {
	assert := assert.New(t)

	frozen := clock.NewFrozen(time.Unix(1700010000, 0))

	repo := repository.NewFake()
	repo.PutRoute(sigRoute())
	client := model.Client{ID: "client1", Name: "Client One", SharedSecret: strPtr("shh"), Status: model.ClientStatusActive}
	repo.PutClient(client)
	core := New(repo, frozen, Config{})

	body := []byte(`{}`)
	canonical := signature.CanonicalRequest{Method: "POST", Path: "/signed/x", Timestamp: "1700000000", Body: body}
	sig := signature.Sign(canonical, "shh")

	decision := core.Authorize(context.Background(), Request{
		Domain: "api.unittest.org", Path: "/signed/x", Method: "POST", Body: body,
		Headers: credential.MapHeaders{
			"X-Signature": sig,
			"X-Timestamp": "1700000000",
			"X-Body-Hash": signature.BodyHash(body),
			"X-Client-Id": "client1",
		},
	})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonSignatureExpired, decision.Reason)
}

// errRepo wraps a Fake and fails CandidateRoutes, to exercise the
// internal_error path.
type errRepo struct {
	*repository.Fake
}

func (e errRepo) CandidateRoutes(ctx context.Context, domain, path string) ([]model.Route, error) {
	return nil, errors.New("boom")
}

func TestAuthorizeRepositoryFailure(t *testing.T) {
	assert := assert.New(t)

	repo := errRepo{Fake: repository.NewFake()}
	core := New(repo, clock.New(), Config{})

	decision := core.Authorize(context.Background(), Request{Domain: "api.unittest.org", Path: "/x", Method: "GET"})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonInternalError, decision.Reason)
	assert.Equal(model.SubReasonRepositoryError, decision.SubReason)
}

func TestAuthorizeContextAlreadyCanceled(t *testing.T) {
	assert := assert.New(t)

	repo := repository.NewFake()
	core := New(repo, clock.New(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	decision := core.Authorize(ctx, Request{Domain: "api.unittest.org", Path: "/x", Method: "GET"})
	assert.False(decision.Allowed)
	assert.Equal(model.ReasonInternalError, decision.Reason)
	assert.Equal(model.SubReasonTimeout, decision.SubReason)
}
