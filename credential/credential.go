// Package credential implements the Credential Parser (spec.md §4.2): pure
// extraction of either a bearer-style opaque key or a signature bundle from
// request headers and query parameters. It performs no I/O and holds no state.
package credential

import "strings"

// Header names the parser looks for. Case-insensitivity is handled by Headers
// below, so these are written in canonical form only for documentation.
const (
	HeaderAuthorization = "Authorization"
	HeaderSignature     = "X-Signature"
	HeaderTimestamp     = "X-Timestamp"
	HeaderBodyHash      = "X-Body-Hash"
	// HeaderClientID is the optional indexed-lookup hint (spec.md §9 design
	// note): when present, the signature verifier can resolve the client in
	// one step instead of scanning every candidate secret.
	HeaderClientID = "X-Client-Id"

	// QueryAPIKey is the query-parameter form of an API key.
	QueryAPIKey = "api_key"
)

// Headers is a case-insensitive header lookup. Implementations adapt whatever
// map type the HTTP layer hands them; nil is treated the same as empty.
type Headers interface {
	// Get returns the header value, or "" if absent. Lookup is case-insensitive.
	Get(name string) string
}

// MapHeaders adapts a plain map[string]string into Headers with
// case-insensitive lookup.
type MapHeaders map[string]string

// Get implements Headers.
func (h MapHeaders) Get(name string) string {
	if h == nil {
		return ""
	}
	lower := strings.ToLower(name)
	for k, v := range h {
		if strings.ToLower(k) == lower {
			return v
		}
	}
	return ""
}

// Bundle is a signature bundle: (signature, timestamp, body-digest). A
// partial bundle (any field empty) is treated as missing on the signature
// auth path, per spec.md §4.2.
type Bundle struct {
	Signature string
	Timestamp string
	BodyHash  string
}

// Complete reports whether all three fields of the bundle are present.
func (b Bundle) Complete() bool {
	return b.Signature != "" && b.Timestamp != "" && b.BodyHash != ""
}

// Credentials is everything the parser could extract from one request.
type Credentials struct {
	// APIKey is the opaque bearer-style key, if any was supplied.
	APIKey string
	// Bundle is the signature bundle, if any headers for it were present.
	Bundle Bundle
	// ClientIDHint is the optional X-Client-Id value for indexed secret lookup.
	ClientIDHint string
}

// HasAPIKey reports whether an API key was found (empty strings count as absent).
func (c Credentials) HasAPIKey() bool { return c.APIKey != "" }

// HasBundle reports whether a complete signature bundle was found.
func (c Credentials) HasBundle() bool { return c.Bundle.Complete() }

// Parse extracts Credentials from request headers and query parameters.
// Tokens are treated as opaque bytes; no normalization beyond trimming the
// "Bearer "/"ApiKey " scheme prefix from the Authorization header. Header
// form takes precedence over the query form, per spec.md §4.2.
func Parse(headers Headers, query map[string]string) Credentials {
	creds := Credentials{
		Bundle: Bundle{
			Signature: headers.Get(HeaderSignature),
			Timestamp: headers.Get(HeaderTimestamp),
			BodyHash:  headers.Get(HeaderBodyHash),
		},
		ClientIDHint: headers.Get(HeaderClientID),
	}

	if key := apiKeyFromAuthorizationHeader(headers.Get(HeaderAuthorization)); key != "" {
		creds.APIKey = key
	} else if key := query[QueryAPIKey]; key != "" {
		creds.APIKey = key
	}

	return creds
}

// apiKeyFromAuthorizationHeader recognizes "Bearer <token>", "ApiKey <token>",
// or a bare token with no scheme prefix.
func apiKeyFromAuthorizationHeader(value string) string {
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) == 2 {
		switch strings.ToLower(parts[0]) {
		case "bearer", "apikey":
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(value)
}
