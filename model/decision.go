package model

// ReasonTag is the closed vocabulary of decision attributions from spec.md §7.
// Changing these strings is a breaking change for observability dashboards
// that key off them, so treat the set as closed: add, never rename.
type ReasonTag string

const (
	// Deny — configuration.
	ReasonNoRoute               ReasonTag = "no_route"
	ReasonMethodNotConfigured   ReasonTag = "method_not_configured"

	// Deny — credential.
	ReasonMissingCredentials ReasonTag = "missing_credentials"
	ReasonInvalidCredentials ReasonTag = "invalid_credentials"
	ReasonInvalidSignature   ReasonTag = "invalid_signature"
	ReasonSignatureExpired   ReasonTag = "signature_expired"
	ReasonBodyTampered       ReasonTag = "body_tampered"

	// Deny — identity.
	ReasonClientSuspended ReasonTag = "client_suspended"
	ReasonClientRevoked   ReasonTag = "client_revoked"

	// Deny — authorization.
	ReasonNoPermission     ReasonTag = "no_permission"
	ReasonMethodNotAllowed ReasonTag = "method_not_allowed"

	// Allow.
	ReasonNoAuthRequired ReasonTag = "no_auth_required"
	ReasonAuthenticated  ReasonTag = "authenticated"

	// Internal.
	ReasonInternalError ReasonTag = "internal_error"
)

// InternalSubReason further classifies a ReasonInternalError decision. It is
// not part of the externally observable reason tag itself (§7 treats the tag
// as the sole externally observable indicator) but is useful for logs.
type InternalSubReason string

const (
	SubReasonTimeout         InternalSubReason = "timeout"
	SubReasonRepositoryError InternalSubReason = "repository_error"
	SubReasonPanic           InternalSubReason = "panic"
)

// Decision is the Authorizer's sole output. Exactly one Reason is ever set.
type Decision struct {
	Allowed bool
	Reason  ReasonTag
	// SubReason is populated only for ReasonInternalError, for logs.
	SubReason InternalSubReason

	// Populated on allow.
	ClientID   string
	ClientName string
	RouteID    string
}

// Deny builds a deny Decision with no route/client fields set.
func Deny(reason ReasonTag) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// DenyWithRoute builds a deny Decision that still surfaces the matched route
// id for observability (spec.md §6.1: "route_id may be populated on some deny
// reasons ... e.g. no_permission").
func DenyWithRoute(reason ReasonTag, routeID string) Decision {
	return Decision{Allowed: false, Reason: reason, RouteID: routeID}
}

// DenyInternal builds an internal_error Decision with a sub-reason for logs.
func DenyInternal(sub InternalSubReason) Decision {
	return Decision{Allowed: false, Reason: ReasonInternalError, SubReason: sub}
}

// Allow builds an allow Decision with no client fields set (public route).
func Allow(reason ReasonTag, routeID string) Decision {
	return Decision{Allowed: true, Reason: reason, RouteID: routeID}
}

// AllowAuthenticated builds an allow Decision identifying the authenticated client.
func AllowAuthenticated(routeID, clientID, clientName string) Decision {
	return Decision{
		Allowed:    true,
		Reason:     ReasonAuthenticated,
		RouteID:    routeID,
		ClientID:   clientID,
		ClientName: clientName,
	}
}
