package catalog

import (
	"context"

	"github.com/openlibops/stacks/internal/hierarchy"
)

// Store is the durable home of the node table. Implementations must treat
// DeleteCascade as a single atomic unit: a failure partway through a
// multi-row cascade leaves the store unchanged.
type Store interface {
	// Insert persists a new node. A non-nil parentID that does not resolve
	// to an existing row fails with ErrParentNotFound.
	Insert(ctx context.Context, name string, typ hierarchy.NodeType, parentID *int64, createdBy string) (*Node, error)
	// GetAll returns every node. Order is not significant; the tree
	// builder re-derives structure.
	GetAll(ctx context.Context) ([]*Node, error)
	// GetByID fails with ErrNotFound when the node does not exist.
	GetByID(ctx context.Context, id int64) (*Node, error)
	// GetChildren returns the direct children of parentID ordered by name
	// ascending. The ordering is an observable contract of the detail view.
	GetChildren(ctx context.Context, parentID int64) ([]*Node, error)
	// Rename updates the node's name. Fails with ErrNotFound.
	Rename(ctx context.Context, id int64, name string) error
	// DeleteCascade removes the node and every transitive descendant.
	// Fails with ErrNotFound when the node does not exist.
	DeleteCascade(ctx context.Context, id int64) error
	// CountByType tallies nodes per type for the dashboard stats view.
	CountByType(ctx context.Context) (map[hierarchy.NodeType]int, error)
}
