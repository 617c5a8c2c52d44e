package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestClientHasCredential(t *testing.T) {
	assert := assert.New(t)

	assert.False(Client{}.HasCredential())
	assert.False(Client{APIKey: strPtr("")}.HasCredential())
	assert.True(Client{APIKey: strPtr("key")}.HasCredential())
	assert.True(Client{SharedSecret: strPtr("secret")}.HasCredential())
}

func TestClientIsActive(t *testing.T) {
	assert := assert.New(t)

	assert.True(Client{Status: ClientStatusActive}.IsActive())
	assert.False(Client{Status: ClientStatusSuspended}.IsActive())
	assert.False(Client{Status: ClientStatusRevoked}.IsActive())
	assert.False(Client{}.IsActive())
}

func TestPermissionAllows(t *testing.T) {
	assert := assert.New(t)

	perm := Permission{ClientID: "c1", RouteID: "r1", AllowedMethods: map[string]bool{"GET": true}}
	assert.True(perm.Allows("GET"))
	assert.False(perm.Allows("POST"))
	assert.False(perm.Allows("get"))
}

func TestRouteMatchesPath(t *testing.T) {
	assert := assert.New(t)

	exact := Route{Pattern: "/accounts/1"}
	assert.True(exact.MatchesPath("/accounts/1"))
	assert.False(exact.MatchesPath("/accounts/1/sub"))

	wild := Route{Pattern: "/accounts/*"}
	assert.True(wild.MatchesPath("/accounts"))
	assert.True(wild.MatchesPath("/accounts/1"))
	assert.True(wild.MatchesPath("/accounts/1/sub"))
	assert.False(wild.MatchesPath("/accountsXYZ"))
}

func TestRouteMatchesDomain(t *testing.T) {
	assert := assert.New(t)

	exact := Route{Domain: "api.unittest.org"}
	assert.True(exact.MatchesDomain("api.unittest.org"))
	assert.False(exact.MatchesDomain("other.unittest.org"))

	wild := Route{Domain: "*.unittest.org"}
	assert.True(wild.MatchesDomain("api.unittest.org"))
	assert.False(wild.MatchesDomain("unittest.org"))

	any := Route{Domain: "*"}
	assert.True(any.MatchesDomain("anything.example.com"))
}

func TestRouteMethodPolicyFor(t *testing.T) {
	assert := assert.New(t)

	r := Route{Methods: map[string]MethodPolicy{"GET": {AuthRequired: false}}}

	policy, ok := r.MethodPolicyFor("get")
	assert.True(ok)
	assert.False(policy.AuthRequired)

	_, ok = r.MethodPolicyFor("POST")
	assert.False(ok)
}

func TestRouteSpecificityKeyOrdering(t *testing.T) {
	assert := assert.New(t)

	exactDomainExactPath := Route{Domain: "api.unittest.org", Pattern: "/accounts/1"}
	wildDomainWildPath := Route{Domain: "*", Pattern: "/accounts/*"}
	assert.True(wildDomainWildPath.SpecificityKey().Less(exactDomainExactPath.SpecificityKey()))

	shortPrefix := Route{Domain: "api.unittest.org", Pattern: "/accounts/*"}
	longPrefix := Route{Domain: "api.unittest.org", Pattern: "/accounts/sub/*"}
	assert.True(shortPrefix.SpecificityKey().Less(longPrefix.SpecificityKey()))
}
