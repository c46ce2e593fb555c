package auth

import "context"

// RoleAdmin is the role tag granting unrestricted catalog scope.
const RoleAdmin = "admin"

// Claims is the identity handed to the catalog by the OIDC layer. The
// catalog consumes it as opaque input; it never issues or validates
// credentials itself.
type Claims struct {
	Subject  string
	Email    string
	Username string
	Roles    []string
	// AssignedNodeID restricts non-admin callers to the subtree rooted at
	// this node. Nil when the identity carries no assignment.
	AssignedNodeID *int64
	Raw            map[string]any
}

// HasRole reports whether the identity carries the given role tag.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type claimsCtxKey struct{}

// ToContext stores claims on the context.
func ToContext(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, claims)
}

// FromContext retrieves claims previously stored by the middleware.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey{}).(Claims)
	return c, ok
}
