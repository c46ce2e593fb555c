package hierarchy

// ruleTable declares which node types may sit directly beneath which
// parents. Types absent from a value set are leaves. The table is fixed at
// compile time; there is no mutation path.
var ruleTable = map[NodeType][]NodeType{
	TypeLibrary: {TypeSection, TypeLibraryOperations, TypeUserServices},
	TypeSection: {TypeShelf, TypeReferenceUnit, TypePeriodicalsUnit, TypeDigitalResources},
	TypeShelf:   {TypeCategory, TypeBookFormat},
	TypeLibraryOperations: {
		TypeIssueReturnDesk,
		TypeMembershipManagement,
		TypeFineManagement,
		TypeInventoryControl,
	},
	TypeUserServices: {
		TypeReadingRooms,
		TypeReservationSystem,
		TypeHelpDesk,
	},
}

// AllowedChildren returns the node types that may be created directly under
// a parent of type t. Leaf and unknown types yield an empty slice. The
// result is a copy; callers may not reach the underlying table.
func AllowedChildren(t NodeType) []NodeType {
	allowed, ok := ruleTable[t]
	if !ok {
		return nil
	}
	out := make([]NodeType, len(allowed))
	copy(out, allowed)
	return out
}

// IsLeaf reports whether nodes of type t may never have children.
func IsLeaf(t NodeType) bool {
	return len(ruleTable[t]) == 0
}
