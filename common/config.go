package common

import "github.com/spf13/viper"

// ===============================================================================
// Utility Config

// CustomValidationsConfig provides the custom validation regex pattern for
// opaque ids.
type CustomValidationsConfig struct {
	// IDRegex is the regex pattern for opaque route/client/permission ids. It
	// must compile, but no config field is checked against it.
	IDRegex string `mapstructure:"id" json:"id" validate:"required"`
}

/*
DefineCustomFieldValidator defines a CustomFieldValidator based on the config parameters

	@return the defined CustomFieldValidator
*/
func (c CustomValidationsConfig) DefineCustomFieldValidator() (CustomFieldValidator, error) {
	return GetCustomFieldValidator(c.IDRegex)
}

// ===============================================================================
// Common Submodule Config

// HTTPServerTimeoutConfig defines the timeout settings for HTTP server
type HTTPServerTimeoutConfig struct {
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body in seconds. A zero or negative
	// value means there will be no timeout.
	ReadTimeout int `mapstructure:"read" json:"read" validate:"gte=0"`
	// WriteTimeout is the maximum duration before timing out
	// writes of the response in seconds. A zero or negative value
	// means there will be no timeout.
	WriteTimeout int `mapstructure:"write" json:"write" validate:"gte=0"`
	// IdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled in seconds. If
	// IdleTimeout is zero, the value of ReadTimeout is used. If
	// both are zero, there is no timeout.
	IdleTimeout int `mapstructure:"idle" json:"idle" validate:"gte=0"`
}

// HTTPServerConfig defines the HTTP server parameters
type HTTPServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listenOn" json:"listenOn" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"appPort" json:"appPort" validate:"required,gt=0,lt=65536"`
	// Timeouts sets the HTTP timeout settings
	Timeouts HTTPServerTimeoutConfig `mapstructure:"timeoutSecs" json:"timeoutSecs" validate:"required,dive"`
}

// HTTPRequestLogging defines HTTP request logging parameters
type HTTPRequestLogging struct {
	// RequestIDHeader is the HTTP header containing the API request ID
	RequestIDHeader string `mapstructure:"requestIDHeader" json:"requestIDHeader"`
	// DoNotLogHeaders is the list of headers to not include in logging metadata
	DoNotLogHeaders []string `mapstructure:"skipHeaders" json:"skipHeaders"`
}

// EndpointConfig defines API endpoint config
type EndpointConfig struct {
	// PathPrefix is the end-point path prefix for the APIs
	PathPrefix string `mapstructure:"pathPrefix" json:"pathPrefix" validate:"required"`
}

// APIConfig defines API settings for a submodule
type APIConfig struct {
	// Endpoint sets API endpoint related parameters
	Endpoint EndpointConfig `mapstructure:"endPoint" json:"endPoint" validate:"required,dive"`
	// RequestLogging sets API request logging parameters
	RequestLogging HTTPRequestLogging `mapstructure:"requestLogging" json:"requestLogging" validate:"required,dive"`
}

// APIServerConfig defines HTTP API / server parameters
type APIServerConfig struct {
	// Enabled whether this API is enabled
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"service" json:"service" validate:"required_with=Enabled,dive"`
	// APIs defines API settings for a submodule
	APIs APIConfig `mapstructure:"apis" json:"apis" validate:"required_with=Enabled,dive"`
}

// ===============================================================================
// Database Config

// DatabaseConfig database related configuration
type DatabaseConfig struct {
	// Host is the DB host
	Host string `mapstructure:"host" json:"host" validate:"required"`
	// DB is the database name
	DB string `mapstructure:"db" json:"db" validate:"required"`
	// User is the database user
	User string `mapstructure:"user" json:"user" validate:"required"`
}

// ===============================================================================
// Route / Client / Permission seed config
//
// Provisioning routes, clients, and permissions is an external collaborator's
// job, not this service's (spec.md §1 Non-goals). The seed config below is
// only bootstrap data that main.go upserts into the store at every startup;
// it is not a management API.

// MethodPolicyConfig is one method's authorization policy on a route.
type MethodPolicyConfig struct {
	// Method is the HTTP method token this policy applies to.
	Method string `mapstructure:"method" json:"method" validate:"required,method_token"`
	// AuthRequired is false for a public method.
	AuthRequired bool `mapstructure:"authRequired" json:"authRequired"`
	// AuthType is "key" or "signature"; ignored when AuthRequired is false.
	AuthType string `mapstructure:"authType" json:"authType" validate:"omitempty,oneof=key signature"`
}

// RouteConfig describes one route to seed.
type RouteConfig struct {
	// ID is the route's opaque stable identifier.
	ID string `mapstructure:"id" json:"id" validate:"required"`
	// Pattern is the route's URL path pattern.
	Pattern string `mapstructure:"pattern" json:"pattern" validate:"required,route_pattern"`
	// Domain is the route's domain spec.
	Domain string `mapstructure:"domain" json:"domain" validate:"required,route_domain"`
	// ServiceName is carried through to the caller on allow.
	ServiceName string `mapstructure:"serviceName" json:"serviceName"`
	// Methods is the per-method policy table; must be non-empty.
	Methods []MethodPolicyConfig `mapstructure:"methods" json:"methods" validate:"required,gte=1,dive"`
}

// ClientConfig describes one client to seed.
type ClientConfig struct {
	// ID is the client's opaque stable identifier.
	ID string `mapstructure:"id" json:"id" validate:"required"`
	// Name is human-readable.
	Name string `mapstructure:"name" json:"name" validate:"required"`
	// APIKey is an optional opaque token; must be globally unique when present.
	APIKey string `mapstructure:"apiKey" json:"apiKey"`
	// SharedSecret is an optional opaque token; must be globally unique when present.
	SharedSecret string `mapstructure:"sharedSecret" json:"sharedSecret"`
	// Status is the client's lifecycle status.
	Status string `mapstructure:"status" json:"status" validate:"required,oneof=active suspended revoked"`
}

// PermissionConfig describes one (client, route) permission grant to seed.
type PermissionConfig struct {
	// ClientID references a ClientConfig.ID.
	ClientID string `mapstructure:"clientID" json:"clientID" validate:"required"`
	// RouteID references a RouteConfig.ID.
	RouteID string `mapstructure:"routeID" json:"routeID" validate:"required"`
	// AllowedMethods is the non-empty set of permitted method tokens.
	AllowedMethods []string `mapstructure:"allowedMethods" json:"allowedMethods" validate:"required,gte=1,dive,method_token"`
}

// SeedConfig is bootstrap data upserted into the store at startup.
type SeedConfig struct {
	Routes      []RouteConfig      `mapstructure:"routes" json:"routes"`
	Clients     []ClientConfig     `mapstructure:"clients" json:"clients"`
	Permissions []PermissionConfig `mapstructure:"permissions" json:"permissions"`
}

// ===============================================================================
// Signature verification config

// SignatureConfig tunes the Signature Verifier (spec.md §4.3).
type SignatureConfig struct {
	// ToleranceSecs is the maximum absolute deviation, in seconds, between a
	// request's timestamp and the verifier's clock.
	ToleranceSecs int `mapstructure:"toleranceSecs" json:"toleranceSecs" validate:"gte=0"`
}

// ===============================================================================
// REST API Authorization Config

// AuthorizeRequestParamLocConfig defines which HTTP headers to parse to get
// the parameters of a REST request to authorize. It is expected that the
// component (i.e. a proxy) requesting authorization for a request will
// provide the needed values through these headers when it contacts the
// authorization server (spec.md §6.1).
type AuthorizeRequestParamLocConfig struct {
	// OriginalHostHeader carries the request's target host.
	OriginalHostHeader string `mapstructure:"originalHost" json:"originalHost" validate:"required"`
	// OriginalPathHeader carries the request's URI path.
	OriginalPathHeader string `mapstructure:"originalPath" json:"originalPath" validate:"required"`
	// OriginalMethodHeader carries the request's HTTP method.
	OriginalMethodHeader string `mapstructure:"originalMethod" json:"originalMethod" validate:"required"`
}

// AuthorizationConfig holds the authorize submodule's own tunables, distinct
// from the seed data it loads at startup.
type AuthorizationConfig struct {
	// RequestParamLocation sets which HTTP headers to parse to get the
	// parameters of a REST request to authorize.
	RequestParamLocation AuthorizeRequestParamLocConfig `mapstructure:"requestParamHeaders" json:"requestParamHeaders" validate:"required,dive"`
	// Signature tunes signature verification.
	Signature SignatureConfig `mapstructure:"signature" json:"signature" validate:"required,dive"`
}

// AuthorizationSubmodule defines authorization submodule config
type AuthorizationSubmodule struct {
	APIServerConfig     `mapstructure:",squash"`
	AuthorizationConfig `mapstructure:",squash"`
}

// ===============================================================================
// Complete Configuration Structure

// GatekeeperServerConfig is the complete application config.
type GatekeeperServerConfig struct {
	// CustomRegex sets custom regex used by validator for custom field tags
	CustomRegex CustomValidationsConfig `mapstructure:"customValidationRegex" json:"customValidationRegex" validate:"required,dive"`
	// Authorization are the authorization submodule configs
	Authorization AuthorizationSubmodule `mapstructure:"authorize" json:"authorize" validate:"required,dive"`
	// Database is the storage backend config
	Database DatabaseConfig `mapstructure:"database" json:"database" validate:"required,dive"`
	// Seed is the bootstrap data to populate an empty store with.
	Seed SeedConfig `mapstructure:"seed" json:"seed" validate:"dive"`
}

// ===============================================================================

// InstallDefaultGatekeeperServerConfigValues installs default config parameters in viper
func InstallDefaultGatekeeperServerConfigValues() {
	// Default custom validation REGEX patterns
	viper.SetDefault("customValidationRegex.id", "^([[:alnum:]]|-|_)+$")

	// Default authorization submodule config
	viper.SetDefault("authorize.enabled", true)
	viper.SetDefault("authorize.service.listenOn", "0.0.0.0")
	viper.SetDefault("authorize.service.appPort", 3001)
	viper.SetDefault("authorize.service.timeoutSecs.read", 60)
	viper.SetDefault("authorize.service.timeoutSecs.write", 60)
	viper.SetDefault("authorize.service.timeoutSecs.idle", 600)
	viper.SetDefault("authorize.apis.requestLogging.requestIDHeader", "Gatekeeper-Request-ID")
	viper.SetDefault(
		"authorize.apis.requestLogging.skipHeaders", []string{
			"WWW-Authenticate", "Authorization", "Proxy-Authenticate", "Proxy-Authorization",
			"X-Signature",
		},
	)
	viper.SetDefault("authorize.apis.endPoint.pathPrefix", "/")
	viper.SetDefault("authorize.requestParamHeaders.originalHost", "X-Original-Host")
	viper.SetDefault("authorize.requestParamHeaders.originalPath", "X-Original-URI")
	viper.SetDefault("authorize.requestParamHeaders.originalMethod", "X-Original-Method")
	viper.SetDefault("authorize.signature.toleranceSecs", 300)

	// Default database config
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.db", "gatekeeper")
	viper.SetDefault("database.user", "gatekeeper")
}
