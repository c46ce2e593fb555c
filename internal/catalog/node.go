package catalog

import (
	"time"

	"github.com/openlibops/stacks/internal/hierarchy"
)

// Node is one entry in the organizational hierarchy. ID, Type, ParentID and
// CreatedAt are write-once; only Name may change after creation.
type Node struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Type      hierarchy.NodeType `json:"type"`
	ParentID  *int64             `json:"parent_id"`
	CreatedBy string             `json:"created_by,omitempty"`
	CreatedAt time.Time          `json:"created_at"`

	// Children is derived by the tree builder for presentation; it is
	// never persisted. Tree reads guarantee a non-nil slice on every node.
	Children []*Node `json:"children"`
}
