package common

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomFieldValidator registers the field-level validators the config and
// storage layers need beyond what go-playground/validator ships: the
// restricted route pattern grammar (exact or trailing "/*") and the
// restricted domain grammar (exact FQDN, "*.example.com", or "*") of
// spec.md §3 and §9.
type CustomFieldValidator interface {
	// RegisterWithValidator registers this validator's custom tags.
	RegisterWithValidator(v *validator.Validate) error

	// ValidateRoutePattern enforces the two permitted route pattern forms.
	ValidateRoutePattern(fl validator.FieldLevel) bool

	// ValidateRouteDomain enforces the three permitted route domain forms.
	ValidateRouteDomain(fl validator.FieldLevel) bool

	// ValidateMethodToken enforces membership in the canonical HTTP method set.
	ValidateMethodToken(fl validator.FieldLevel) bool
}

// customValidatorImpl implements CustomFieldValidator.
type customValidatorImpl struct {
	idMatcher RegexCheck
}

// GetCustomFieldValidator builds a CustomFieldValidator. idRegex is compiled
// here, so an invalid pattern is an error, and kept on the validator; none of
// the three registered tags below applies it, so no id field is checked
// against it.
func GetCustomFieldValidator(idRegex string) (CustomFieldValidator, error) {
	idMatch, err := NewRegexCheck(idRegex)
	if err != nil {
		return nil, err
	}
	return &customValidatorImpl{idMatcher: idMatch}, nil
}

// RegisterWithValidator registers this validator's custom tags.
func (m *customValidatorImpl) RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation("route_pattern", m.ValidateRoutePattern); err != nil {
		return err
	}
	if err := v.RegisterValidation("route_domain", m.ValidateRouteDomain); err != nil {
		return err
	}
	if err := v.RegisterValidation("method_token", m.ValidateMethodToken); err != nil {
		return err
	}
	return nil
}

// ValidateRoutePattern enforces spec.md §3: must begin with "/"; either an
// exact path or a trailing "/*" wildcard. Bare "*" and multiple "*" are
// rejected (spec.md §9 REDESIGN note).
func (m *customValidatorImpl) ValidateRoutePattern(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	pattern := fl.Field().String()
	if !strings.HasPrefix(pattern, "/") {
		return false
	}
	if strings.Count(pattern, "*") > 1 {
		return false
	}
	if strings.Contains(pattern, "*") && !strings.HasSuffix(pattern, "/*") {
		return false
	}
	return true
}

// ValidateRouteDomain enforces spec.md §3: exact FQDN, "*.example.com", or "*".
func (m *customValidatorImpl) ValidateRouteDomain(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	domain := fl.Field().String()
	if domain == "*" {
		return true
	}
	if strings.HasPrefix(domain, "*.") {
		domain = domain[2:]
	}
	if domain == "" {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return false
		}
	}
	return true
}

// ValidateMethodToken enforces membership in the canonical HTTP method set.
func (m *customValidatorImpl) ValidateMethodToken(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	token := fl.Field().String()
	switch token {
	case "GET", "HEAD", "PUT", "POST", "PATCH", "DELETE", "OPTIONS":
		return true
	default:
		return false
	}
}
