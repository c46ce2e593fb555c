package hierarchy

import (
	"fmt"
	"strings"
)

// PlacementError reports an illegal parent/child pairing together with the
// child types that would have been accepted at that position.
type PlacementError struct {
	Parent  *NodeType
	Child   NodeType
	Allowed []NodeType
}

// Error implements the error interface with a caller-facing message.
func (e *PlacementError) Error() string {
	if e.Parent == nil {
		return fmt.Sprintf("only %q can be a root node", RootType)
	}
	return fmt.Sprintf("invalid hierarchy: %s cannot have child of type %s. Allowed: %s",
		*e.Parent, e.Child, joinTypes(e.Allowed))
}

func joinTypes(types []NodeType) string {
	if len(types) == 0 {
		return "none"
	}
	tags := make([]string, len(types))
	for i, t := range types {
		tags[i] = t.String()
	}
	return strings.Join(tags, ", ")
}

// CheckPlacement decides whether a node of type child may be created under a
// parent of the given type. A nil parent denotes root creation, legal only
// for RootType. The check is pure; it does not consult storage.
func CheckPlacement(parent *NodeType, child NodeType) error {
	if parent == nil {
		if child == RootType {
			return nil
		}
		return &PlacementError{Child: child}
	}
	for _, allowed := range ruleTable[*parent] {
		if allowed == child {
			return nil
		}
	}
	p := *parent
	return &PlacementError{Parent: &p, Child: child, Allowed: AllowedChildren(p)}
}
