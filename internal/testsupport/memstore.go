// Package testsupport provides in-memory doubles shared by service and
// handler tests.
package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openlibops/stacks/internal/catalog"
	"github.com/openlibops/stacks/internal/hierarchy"
)

// MemStore is an in-memory catalog.Store with the same observable contracts
// as the Postgres store: referential parent checks on insert, name-ordered
// children, and atomic cascade deletes.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	nodes  map[int64]*catalog.Node
}

var _ catalog.Store = (*MemStore)(nil)

// NewMemStore returns an empty store. IDs are assigned from 1 and never
// reused.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[int64]*catalog.Node)}
}

func cloneNode(n *catalog.Node) *catalog.Node {
	out := *n
	if n.ParentID != nil {
		parent := *n.ParentID
		out.ParentID = &parent
	}
	out.Children = nil
	return &out
}

// Insert implements catalog.Store.
func (s *MemStore) Insert(_ context.Context, name string, typ hierarchy.NodeType, parentID *int64, createdBy string) (*catalog.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if parentID != nil {
		if _, ok := s.nodes[*parentID]; !ok {
			return nil, catalog.ErrParentNotFound
		}
	}
	s.nextID++
	node := &catalog.Node{
		ID:        s.nextID,
		Name:      name,
		Type:      typ,
		ParentID:  parentID,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	s.nodes[node.ID] = cloneNode(node)
	return cloneNode(node), nil
}

// GetAll implements catalog.Store.
func (s *MemStore) GetAll(_ context.Context) ([]*catalog.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*catalog.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		out = append(out, cloneNode(node))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByID implements catalog.Store.
func (s *MemStore) GetByID(_ context.Context, id int64) (*catalog.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return cloneNode(node), nil
}

// GetChildren implements catalog.Store.
func (s *MemStore) GetChildren(_ context.Context, parentID int64) ([]*catalog.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*catalog.Node
	for _, node := range s.nodes {
		if node.ParentID != nil && *node.ParentID == parentID {
			out = append(out, cloneNode(node))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Rename implements catalog.Store.
func (s *MemStore) Rename(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return catalog.ErrNotFound
	}
	node.Name = name
	return nil
}

// DeleteCascade implements catalog.Store.
func (s *MemStore) DeleteCascade(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return catalog.ErrNotFound
	}
	doomed := []int64{id}
	for len(doomed) > 0 {
		next := doomed[0]
		doomed = doomed[1:]
		delete(s.nodes, next)
		for _, node := range s.nodes {
			if node.ParentID != nil && *node.ParentID == next {
				doomed = append(doomed, node.ID)
			}
		}
	}
	return nil
}

// CountByType implements catalog.Store.
func (s *MemStore) CountByType(_ context.Context) (map[hierarchy.NodeType]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[hierarchy.NodeType]int)
	for _, node := range s.nodes {
		out[node.Type]++
	}
	return out, nil
}
