package catalog

import "github.com/openlibops/stacks/internal/auth"

// Scope captures what a caller may see or create. Admins are unrestricted.
// A non-admin with an assigned node is confined to that node's subtree. A
// non-admin without an assignment falls through to unrestricted visibility,
// matching the identity layer's default.
type Scope struct {
	admin          bool
	assignedNodeID *int64
}

// ScopeFor derives the caller's scope from their identity claims.
func ScopeFor(claims auth.Claims) Scope {
	return Scope{
		admin:          claims.HasRole(auth.RoleAdmin),
		assignedNodeID: claims.AssignedNodeID,
	}
}

// Restricted reports whether the caller is confined to an assigned subtree.
func (s Scope) Restricted() bool {
	return !s.admin && s.assignedNodeID != nil
}

// Root returns the assigned subtree root for a restricted caller.
func (s Scope) Root() (int64, bool) {
	if !s.Restricted() {
		return 0, false
	}
	return *s.assignedNodeID, true
}

// CheckCreate enforces the create rule: a restricted caller may only attach
// a node directly under their assigned node. Deeper descendants do not
// qualify; the parent must equal the assigned node id exactly.
func (s Scope) CheckCreate(parentID *int64) error {
	if !s.Restricted() {
		return nil
	}
	if parentID == nil || *parentID != *s.assignedNodeID {
		return &PermissionDeniedError{AssignedNodeID: *s.assignedNodeID}
	}
	return nil
}
