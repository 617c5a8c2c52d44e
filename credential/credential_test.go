package credential

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert := assert.New(t)

	// Case 0: nothing supplied
	{
		creds := Parse(http.Header{}, map[string]string{})
		assert.False(creds.HasAPIKey())
		assert.False(creds.HasBundle())
	}

	// Case 1: API key via "Bearer" scheme
	{
		h := http.Header{}
		h.Set(HeaderAuthorization, "Bearer abc123")
		creds := Parse(h, map[string]string{})
		assert.True(creds.HasAPIKey())
		assert.Equal("abc123", creds.APIKey)
	}

	// Case 2: API key via "ApiKey" scheme
	{
		h := http.Header{}
		h.Set(HeaderAuthorization, "ApiKey xyz789")
		creds := Parse(h, map[string]string{})
		assert.Equal("xyz789", creds.APIKey)
	}

	// Case 3: bare token with no scheme prefix
	{
		h := http.Header{}
		h.Set(HeaderAuthorization, "bare-token")
		creds := Parse(h, map[string]string{})
		assert.Equal("bare-token", creds.APIKey)
	}

	// Case 4: header takes precedence over query when both present
	{
		h := http.Header{}
		h.Set(HeaderAuthorization, "Bearer from-header")
		creds := Parse(h, map[string]string{QueryAPIKey: "from-query"})
		assert.Equal("from-header", creds.APIKey)
	}

	// Case 5: falls back to query when no Authorization header
	{
		creds := Parse(http.Header{}, map[string]string{QueryAPIKey: "from-query"})
		assert.Equal("from-query", creds.APIKey)
	}

	// Case 6: full signature bundle plus client-id hint
	{
		h := http.Header{}
		h.Set(HeaderSignature, "sig")
		h.Set(HeaderTimestamp, "123456")
		h.Set(HeaderBodyHash, "hash")
		h.Set(HeaderClientID, "client1")
		creds := Parse(h, map[string]string{})
		assert.True(creds.HasBundle())
		assert.Equal("client1", creds.ClientIDHint)
	}

	// Case 7: partial bundle is not complete
	{
		h := http.Header{}
		h.Set(HeaderSignature, "sig")
		creds := Parse(h, map[string]string{})
		assert.False(creds.HasBundle())
	}
}
