// Package permcheck implements the Permission Checker (spec.md §4.7): given
// the permission record for a (client, route) pair, tests whether a method is
// a member of the allowed set.
package permcheck

import "github.com/jmazzahacks/api-gatekeeper/model"

// Verdict is the outcome of a permission check.
type Verdict int

const (
	// NoPermission means no permission record exists for this (client, route).
	NoPermission Verdict = iota
	// MethodNotAllowed means a permission record exists but does not list method.
	MethodNotAllowed
	// Granted means the permission record lists method.
	Granted
)

// Check tests whether method is permitted under perm. perm may be nil when no
// permission record was found for (client, route).
func Check(perm *model.Permission, method string) Verdict {
	if perm == nil {
		return NoPermission
	}
	if !perm.Allows(method) {
		return MethodNotAllowed
	}
	return Granted
}
