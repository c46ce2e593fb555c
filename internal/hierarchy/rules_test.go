package hierarchy

import "testing"

func TestAllowedChildrenTable(t *testing.T) {
	cases := map[NodeType][]NodeType{
		TypeLibrary: {TypeSection, TypeLibraryOperations, TypeUserServices},
		TypeSection: {TypeShelf, TypeReferenceUnit, TypePeriodicalsUnit, TypeDigitalResources},
		TypeShelf:   {TypeCategory, TypeBookFormat},
		TypeLibraryOperations: {
			TypeIssueReturnDesk, TypeMembershipManagement, TypeFineManagement, TypeInventoryControl,
		},
		TypeUserServices: {TypeReadingRooms, TypeReservationSystem, TypeHelpDesk},
	}
	for parent, want := range cases {
		got := AllowedChildren(parent)
		if len(got) != len(want) {
			t.Fatalf("AllowedChildren(%v) = %v, want %v", parent, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("AllowedChildren(%v)[%d] = %v, want %v", parent, i, got[i], want[i])
			}
		}
	}
}

func TestLeafTypesHaveNoChildren(t *testing.T) {
	leaves := []NodeType{
		TypeReferenceUnit, TypePeriodicalsUnit, TypeDigitalResources,
		TypeCategory, TypeBookFormat,
		TypeIssueReturnDesk, TypeMembershipManagement, TypeFineManagement, TypeInventoryControl,
		TypeReadingRooms, TypeReservationSystem, TypeHelpDesk,
	}
	for _, leaf := range leaves {
		if got := AllowedChildren(leaf); len(got) != 0 {
			t.Fatalf("AllowedChildren(%v) = %v, want empty", leaf, got)
		}
		if !IsLeaf(leaf) {
			t.Fatalf("IsLeaf(%v) = false, want true", leaf)
		}
	}
	if IsLeaf(TypeLibrary) {
		t.Fatal("IsLeaf(Library) = true, want false")
	}
}

func TestEveryTypeReachableFromRoot(t *testing.T) {
	seen := map[NodeType]bool{RootType: true}
	queue := []NodeType{RootType}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, child := range AllowedChildren(next) {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	for _, typ := range Types() {
		if !seen[typ] {
			t.Fatalf("type %v unreachable from %v", typ, RootType)
		}
	}
}

func TestAllowedChildrenReturnsCopy(t *testing.T) {
	first := AllowedChildren(TypeLibrary)
	first[0] = TypeHelpDesk
	second := AllowedChildren(TypeLibrary)
	if second[0] != TypeSection {
		t.Fatal("mutating the returned slice leaked into the rule table")
	}
}
