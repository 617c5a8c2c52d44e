package common

import (
	"context"
	"fmt"

	"github.com/apex/log"
)

// AuthorizeRequestParamKey is the context key AuthorizeRequestParam is stored
// under, so log tag modifiers can recover it for any request in flight.
type AuthorizeRequestParamKey struct{}

// AuthorizeRequestParam carries the subset of an in-flight authorize request
// worth attaching to every log line emitted while handling it.
type AuthorizeRequestParam struct {
	// Domain is the request's target host.
	Domain string
	// Path is the request path being authorized.
	Path string
	// Method is the request method.
	Method string
	// RouteID is added to the log tags when non-empty. ParamReadMiddleware
	// does not set it, and the Authorizer does not write it back after
	// matching a route.
	RouteID string
}

// String implements toString for the parameter set.
func (p AuthorizeRequestParam) String() string {
	return fmt.Sprintf("%s http://%s%s", p.Method, p.Domain, p.Path)
}

// UpdateLogTags merges this request's identifying fields into an Apex
// log.Fields map.
func (p AuthorizeRequestParam) UpdateLogTags(tags log.Fields) {
	tags["auth_domain"] = p.Domain
	tags["auth_method"] = p.Method
	tags["auth_path"] = fmt.Sprintf("'%s'", p.Path)
	if p.RouteID != "" {
		tags["auth_route_id"] = p.RouteID
	}
}

// ModifyLogMetadataByAuthorizeRequestParam is a goutils.LogMetadataModifier
// that enriches log metadata with the AuthorizeRequestParam stashed in ctx,
// if any.
func ModifyLogMetadataByAuthorizeRequestParam(ctxt context.Context, theTags log.Fields) {
	if ctxt.Value(AuthorizeRequestParamKey{}) != nil {
		v, ok := ctxt.Value(AuthorizeRequestParamKey{}).(AuthorizeRequestParam)
		if ok {
			v.UpdateLogTags(theTags)
		}
	}
}
