package hierarchy

import (
	"encoding/json"
	"fmt"
)

// NodeType identifies the kind of catalog node. The set is closed; the
// database stores the display tag and ParseType is the only way back in.
type NodeType int

const (
	TypeLibrary NodeType = iota
	TypeSection
	TypeShelf
	TypeReferenceUnit
	TypePeriodicalsUnit
	TypeDigitalResources
	TypeCategory
	TypeBookFormat
	TypeLibraryOperations
	TypeIssueReturnDesk
	TypeMembershipManagement
	TypeFineManagement
	TypeInventoryControl
	TypeUserServices
	TypeReadingRooms
	TypeReservationSystem
	TypeHelpDesk
)

// RootType is the only type permitted to exist without a parent.
const RootType = TypeLibrary

var typeTags = [...]string{
	TypeLibrary:              "Library",
	TypeSection:              "Section",
	TypeShelf:                "Shelf",
	TypeReferenceUnit:        "Reference Unit",
	TypePeriodicalsUnit:      "Periodicals Unit",
	TypeDigitalResources:     "Digital Resources",
	TypeCategory:             "Category",
	TypeBookFormat:           "Book Format",
	TypeLibraryOperations:    "Library Operations",
	TypeIssueReturnDesk:      "Issue & Return Desk",
	TypeMembershipManagement: "Membership Management",
	TypeFineManagement:       "Fine Management",
	TypeInventoryControl:     "Inventory Control",
	TypeUserServices:         "User Services",
	TypeReadingRooms:         "Reading Rooms",
	TypeReservationSystem:    "Reservation System",
	TypeHelpDesk:             "Help Desk",
}

var tagIndex = func() map[string]NodeType {
	m := make(map[string]NodeType, len(typeTags))
	for i, tag := range typeTags {
		m[tag] = NodeType(i)
	}
	return m
}()

// String implements fmt.Stringer, returning the display tag.
func (t NodeType) String() string {
	if t < 0 || int(t) >= len(typeTags) {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return typeTags[t]
}

// Valid reports whether t is one of the declared node types.
func (t NodeType) Valid() bool {
	return t >= 0 && int(t) < len(typeTags)
}

// ParseType resolves a display tag to its NodeType.
func ParseType(tag string) (NodeType, error) {
	t, ok := tagIndex[tag]
	if !ok {
		return 0, fmt.Errorf("hierarchy: unknown node type %q", tag)
	}
	return t, nil
}

// Types returns every declared node type in declaration order.
func Types() []NodeType {
	out := make([]NodeType, len(typeTags))
	for i := range typeTags {
		out[i] = NodeType(i)
	}
	return out
}

// MarshalJSON encodes the display tag.
func (t NodeType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("hierarchy: cannot marshal invalid node type %d", int(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a display tag, rejecting unknown values.
func (t *NodeType) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	parsed, err := ParseType(tag)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
