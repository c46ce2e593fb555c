package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested node does not exist.
var ErrNotFound = errors.New("node not found")

// ErrParentNotFound indicates the parent referenced on create does not exist.
var ErrParentNotFound = errors.New("parent node not found")

// ErrAssignedScopeNotFound indicates a scoped caller's assigned node no
// longer exists, leaving them without a tree to view.
var ErrAssignedScopeNotFound = errors.New("assigned node context not found")

// PermissionDeniedError reports a create attempt outside the caller's scope,
// naming the node the caller is restricted to.
type PermissionDeniedError struct {
	AssignedNodeID int64
}

// Error implements the error interface.
func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: you can only create direct child nodes of your assigned node (ID: %d)", e.AssignedNodeID)
}
