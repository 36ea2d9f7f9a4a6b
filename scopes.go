package authx

import (
	"strings"
)

// A scope is a string of three colon-separated dimensions: realm, resource
// and action. Resource and action are dot-separated token sequences whose
// arity is fixed by the entity kind being described. Each token is one of:
//
//   - "" (empty)       the slot is unused for this pattern
//   - a literal value  matches exactly ([A-Za-z0-9_-])
//   - "*"              matches any single token value, including empty
//   - "{template}"     a placeholder resolved against caller context before
//     comparison, e.g. "{current_user_id}"
//
// Anything else fails validation. Scopes are compared positionally and per
// dimension; a shorter token sequence is padded with empty tokens, so a
// trailing run of dots is optional.

// Template placeholders recognized in scope patterns.
const (
	TemplateCurrentAuthorizationID = "{current_authorization_id}"
	TemplateCurrentUserID          = "{current_user_id}"
	TemplateCurrentGrantID         = "{current_grant_id}"
	TemplateCurrentClientID        = "{current_client_id}"
)

// ContextValues carries the caller identity used to resolve template
// placeholders in scope patterns. Empty fields cause patterns referencing the
// corresponding placeholder to be dropped rather than matched.
type ContextValues struct {
	CurrentAuthorizationID string
	CurrentUserID          string
	CurrentGrantID         string
	CurrentClientID        string
}

// parsedScope holds the three dimensions of a scope, each split into tokens.
type parsedScope struct {
	realm    []string
	resource []string
	action   []string
}

func parseScope(s string) (parsedScope, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return parsedScope{}, false
	}
	return parsedScope{
		realm:    strings.Split(parts[0], "."),
		resource: strings.Split(parts[1], "."),
		action:   strings.Split(parts[2], "."),
	}, true
}

func (p parsedScope) dimensions() [3][]string {
	return [3][]string{p.realm, p.resource, p.action}
}

func isLiteralToken(t string) bool {
	for _, c := range t {
		ok := (c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '_' || c == '-'
		if !ok {
			return false
		}
	}
	return true
}

func isTemplateToken(t string) bool {
	switch t {
	case TemplateCurrentAuthorizationID,
		TemplateCurrentUserID,
		TemplateCurrentGrantID,
		TemplateCurrentClientID:
		return true
	}
	return false
}

func isPatternToken(t string) bool {
	return t == "*" || isTemplateToken(t) || isLiteralToken(t)
}

// IsValidScopePattern reports whether s has the three-dimension token-sequence
// shape and contains only empty, literal, wildcard or template tokens.
// Unrecognized syntax is invalid rather than interpreted.
func IsValidScopePattern(s string) bool {
	p, ok := parseScope(s)
	if !ok {
		return false
	}
	for _, dim := range p.dimensions() {
		for _, t := range dim {
			if !isPatternToken(t) {
				return false
			}
		}
	}
	return true
}

// IsValidScopeLiteral reports whether s is a fully concrete scope: the
// three-dimension shape with no wildcards and no unresolved template
// placeholders. Only literals may participate in token payloads or stored
// authorization scopes.
func IsValidScopeLiteral(s string) bool {
	p, ok := parseScope(s)
	if !ok {
		return false
	}
	for _, dim := range p.dimensions() {
		for _, t := range dim {
			if !isLiteralToken(t) {
				return false
			}
		}
	}
	return true
}

// AreValidScopeLiterals reports whether every scope in the set is a valid
// literal.
func AreValidScopeLiterals(scopes []string) bool {
	for _, s := range scopes {
		if !IsValidScopeLiteral(s) {
			return false
		}
	}
	return true
}

// tokenCovers reports whether the possessed token covers the required token:
// a wildcard covers anything (including empty); literals must match exactly.
func tokenCovers(possessed, required string) bool {
	return possessed == "*" || possessed == required
}

func tokenAt(dim []string, i int) string {
	if i < len(dim) {
		return dim[i]
	}
	return ""
}

func dimensionCovers(possessed, required []string) bool {
	n := len(possessed)
	if len(required) > n {
		n = len(required)
	}
	for i := 0; i < n; i++ {
		if !tokenCovers(tokenAt(possessed, i), tokenAt(required, i)) {
			return false
		}
	}
	return true
}

// scopeCovers reports whether pattern a covers pattern b in every token
// position of every dimension. Malformed scopes cover nothing and are covered
// by nothing.
func scopeCovers(a, b string) bool {
	pa, ok := parseScope(a)
	if !ok {
		return false
	}
	pb, ok := parseScope(b)
	if !ok {
		return false
	}
	return dimensionCovers(pa.realm, pb.realm) &&
		dimensionCovers(pa.resource, pb.resource) &&
		dimensionCovers(pa.action, pb.action)
}

// IsSuperset reports whether every pattern in required is covered by some
// pattern in possessed. A possessed wildcard or matching literal covers the
// corresponding required token; literals must match exactly. Malformed
// required scopes are never covered.
func IsSuperset(possessed []string, required ...string) bool {
	for _, req := range required {
		covered := false
		for _, p := range possessed {
			if scopeCovers(p, req) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// IsStrictSuperset reports whether possessed covers required but not the
// reverse: possessed grants something beyond required.
func IsStrictSuperset(possessed, required []string) bool {
	return IsSuperset(possessed, required...) && !IsSuperset(required, possessed...)
}

func intersectToken(a, b string) (string, bool) {
	switch {
	case a == b:
		return a, true
	case a == "*":
		return b, true
	case b == "*":
		return a, true
	}
	return "", false
}

func intersectDimension(a, b []string) ([]string, bool) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		t, ok := intersectToken(tokenAt(a, i), tokenAt(b, i))
		if !ok {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

func intersectScope(a, b string) (string, bool) {
	pa, ok := parseScope(a)
	if !ok {
		return "", false
	}
	pb, ok := parseScope(b)
	if !ok {
		return "", false
	}
	realm, ok := intersectDimension(pa.realm, pb.realm)
	if !ok {
		return "", false
	}
	resource, ok := intersectDimension(pa.resource, pb.resource)
	if !ok {
		return "", false
	}
	action, ok := intersectDimension(pa.action, pb.action)
	if !ok {
		return "", false
	}
	return strings.Join(realm, ".") + ":" +
		strings.Join(resource, ".") + ":" +
		strings.Join(action, "."), true
}

// GetIntersection computes, for every pair of patterns drawn from a and b,
// the per-position intersection (wildcard ∩ x = x; equal literals intersect;
// different literals do not), and returns the simplified union of all
// non-empty pairwise intersections. It is used to bound delegated capability
// to what the delegator actually possesses. Malformed patterns contribute
// nothing.
func GetIntersection(a, b []string) []string {
	var out []string
	for _, sa := range a {
		for _, sb := range b {
			if s, ok := intersectScope(sa, sb); ok {
				out = append(out, s)
			}
		}
	}
	return Simplify(out)
}

// Simplify removes any scope in the set that is already covered by another
// scope in the same set, and collapses duplicates. The result is
// order-independent in content and idempotent.
func Simplify(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for i, s := range scopes {
		redundant := false
		for j, t := range scopes {
			if i == j {
				continue
			}
			if scopeCovers(t, s) {
				// Mutual coverage means the two are equivalent; keep only
				// the first occurrence.
				if !scopeCovers(s, t) || j < i {
					redundant = true
					break
				}
			}
		}
		if !redundant {
			out = append(out, s)
		}
	}
	return out
}

// substituteTemplates resolves template placeholders in a pattern against the
// caller's context values. It reports false when the pattern references a
// placeholder for which no value is available; such patterns are dropped
// rather than matched.
func substituteTemplates(pattern string, v ContextValues) (string, bool) {
	p, ok := parseScope(pattern)
	if !ok {
		return "", false
	}
	dims := p.dimensions()
	out := make([][]string, 3)
	for d, dim := range dims {
		tokens := make([]string, len(dim))
		for i, t := range dim {
			if !isTemplateToken(t) {
				tokens[i] = t
				continue
			}
			var value string
			switch t {
			case TemplateCurrentAuthorizationID:
				value = v.CurrentAuthorizationID
			case TemplateCurrentUserID:
				value = v.CurrentUserID
			case TemplateCurrentGrantID:
				value = v.CurrentGrantID
			case TemplateCurrentClientID:
				value = v.CurrentClientID
			}
			if value == "" {
				return "", false
			}
			tokens[i] = value
		}
		out[d] = tokens
	}
	return strings.Join(out[0], ".") + ":" +
		strings.Join(out[1], ".") + ":" +
		strings.Join(out[2], "."), true
}
