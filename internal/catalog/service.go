package catalog

import (
	"context"
	"errors"

	"github.com/openlibops/stacks/internal/auth"
	"github.com/openlibops/stacks/internal/cache"
	"github.com/openlibops/stacks/internal/hierarchy"
	"github.com/openlibops/stacks/internal/observability/tracing"
	"github.com/openlibops/stacks/internal/validation"
)

const treeCacheKey = "catalog:tree:full"

var nameRule = validation.String("name").Required().MaxLen(120)

// CreateInput carries the caller-supplied fields for node creation.
type CreateInput struct {
	Name     string
	Type     hierarchy.NodeType
	ParentID *int64
}

// Stats summarises the catalog for the dashboard.
type Stats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// Service orchestrates permission scoping, hierarchy validation and the
// store into the public catalog operations.
type Service struct {
	store  Store
	cache  cache.Store
	tracer tracing.Tracer
}

// ServiceOption configures optional service collaborators.
type ServiceOption func(*Service)

// WithCache caches the full-forest tree between writes.
func WithCache(store cache.Store) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.cache = store
		}
	}
}

// WithTracer traces service operations.
func WithTracer(tracer tracing.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = tracing.OrNoop(tracer) }
}

// NewService builds a Service over the provided store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		cache:  cache.Nop(),
		tracer: tracing.NoopTracer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create validates and persists a new node. Checks run in order: the
// caller's scope, the name, parent existence, then hierarchy legality. No
// write happens once any check fails.
func (s *Service) Create(ctx context.Context, in CreateInput, claims auth.Claims) (*Node, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.create",
		tracing.String("node.type", in.Type.String()))
	node, err := s.create(ctx, in, claims)
	span.End(err)
	return node, err
}

func (s *Service) create(ctx context.Context, in CreateInput, claims auth.Claims) (*Node, error) {
	if err := ScopeFor(claims).CheckCreate(in.ParentID); err != nil {
		return nil, err
	}
	if err := nameRule.Validate(in.Name); err != nil {
		return nil, err
	}

	var parentType *hierarchy.NodeType
	if in.ParentID != nil {
		parent, err := s.store.GetByID(ctx, *in.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		parentType = &parent.Type
	}
	if err := hierarchy.CheckPlacement(parentType, in.Type); err != nil {
		return nil, err
	}

	node, err := s.store.Insert(ctx, in.Name, in.Type, in.ParentID, claims.Subject)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, treeCacheKey)
	return node, nil
}

// Tree returns the forest visible to the caller: the full forest for
// unrestricted callers, or a single-element slice holding the assigned
// node's subtree for restricted ones.
func (s *Service) Tree(ctx context.Context, claims auth.Claims) ([]*Node, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.tree")
	forest, err := s.tree(ctx, claims)
	span.End(err)
	return forest, err
}

func (s *Service) tree(ctx context.Context, claims auth.Claims) ([]*Node, error) {
	scope := ScopeFor(claims)

	if root, ok := scope.Root(); ok {
		// Fetch the assigned node fresh so a deleted assignment surfaces
		// as a missing scope, not an empty tree.
		node, err := s.store.GetByID(ctx, root)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrAssignedScopeNotFound
			}
			return nil, err
		}
		all, err := s.store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		node.Children = BuildTree(all, &root)
		return []*Node{node}, nil
	}

	if cached, ok, err := s.cache.Get(ctx, treeCacheKey); err == nil && ok {
		if forest, ok := cached.([]*Node); ok {
			return forest, nil
		}
	}
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	forest := BuildTree(all, nil)
	_ = s.cache.Set(ctx, treeCacheKey, forest)
	return forest, nil
}

// Get returns a single node with its direct children attached, ordered by
// name ascending.
func (s *Service) Get(ctx context.Context, id int64) (*Node, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.get", tracing.Int64("node.id", id))
	node, err := s.get(ctx, id)
	span.End(err)
	return node, err
}

func (s *Service) get(ctx context.Context, id int64) (*Node, error) {
	node, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	children, err := s.store.GetChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	node.Children = children
	return node, nil
}

// Rename updates a node's label. Structure is untouched; re-parenting is
// not supported anywhere.
func (s *Service) Rename(ctx context.Context, id int64, name string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.rename", tracing.Int64("node.id", id))
	err := s.rename(ctx, id, name)
	span.End(err)
	return err
}

func (s *Service) rename(ctx context.Context, id int64, name string) error {
	if err := nameRule.Validate(name); err != nil {
		return err
	}
	if err := s.store.Rename(ctx, id, name); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, treeCacheKey)
	return nil
}

// Delete removes a node and its entire descendant subtree. Irreversible.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "catalog.delete", tracing.Int64("node.id", id))
	err := s.delete(ctx, id)
	span.End(err)
	return err
}

func (s *Service) delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCascade(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, treeCacheKey)
	return nil
}

// Stats tallies nodes per type for the dashboard KPIs.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.stats")
	stats, err := s.stats(ctx)
	span.End(err)
	return stats, err
}

func (s *Service) stats(ctx context.Context) (Stats, error) {
	counts, err := s.store.CountByType(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{ByType: make(map[string]int, len(counts))}
	for typ, count := range counts {
		stats.ByType[typ.String()] = count
		stats.Total += count
	}
	return stats, nil
}
