// Package pgstore persists the node catalog in Postgres.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openlibops/stacks/internal/catalog"
	"github.com/openlibops/stacks/internal/hierarchy"
	"github.com/openlibops/stacks/internal/pg"
)

const (
	table = "library_nodes"

	insertSQL = "INSERT INTO library_nodes (name, type, parent_id, created_by) VALUES ($1, $2, $3, $4) RETURNING id, created_at"
	renameSQL = "UPDATE library_nodes SET name = $1 WHERE id = $2"
	deleteSQL = "DELETE FROM library_nodes WHERE id = $1"
)

var columns = []string{"id", "name", "type", "parent_id", "created_by", "created_at"}

// pgcodeForeignKeyViolation is raised when an insert references a missing
// parent row.
const pgcodeForeignKeyViolation = "23503"

// Store implements catalog.Store over a traced pgx pool. Cascade deletes
// ride on the parent_id foreign key's ON DELETE CASCADE, so removing a
// subtree is a single atomic statement.
type Store struct {
	db *pg.DB
}

var _ catalog.Store = (*Store)(nil)

// New builds a Store over the given database handle.
func New(db *pg.DB) *Store {
	return &Store{db: db}
}

// Insert implements catalog.Store.
func (s *Store) Insert(ctx context.Context, name string, typ hierarchy.NodeType, parentID *int64, createdBy string) (*catalog.Node, error) {
	node := &catalog.Node{
		Name:      name,
		Type:      typ,
		ParentID:  parentID,
		CreatedBy: createdBy,
		Children:  []*catalog.Node{},
	}
	row := s.db.QueryRow(ctx, table, insertSQL, name, typ.String(), parentID, createdBy)
	if err := row.Scan(&node.ID, &node.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgcodeForeignKeyViolation {
			return nil, catalog.ErrParentNotFound
		}
		return nil, fmt.Errorf("insert node: %w", err)
	}
	return node, nil
}

// GetAll implements catalog.Store. Rows come back in id order so tree
// assembly is deterministic.
func (s *Store) GetAll(ctx context.Context) ([]*catalog.Node, error) {
	rows, err := s.db.Select(ctx, pg.SelectSpec{
		Table:   table,
		Columns: columns,
		Orders:  []pg.Order{{Column: "id", Direction: pg.SortAsc}},
	})
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return scanNodes(rows)
}

// GetByID implements catalog.Store.
func (s *Store) GetByID(ctx context.Context, id int64) (*catalog.Node, error) {
	rows, err := s.db.Select(ctx, pg.SelectSpec{
		Table:      table,
		Columns:    columns,
		Predicates: []pg.Predicate{{Column: "id", Operator: pg.OpEqual, Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, catalog.ErrNotFound
	}
	return nodes[0], nil
}

// GetChildren implements catalog.Store. Children come back ordered by name
// ascending.
func (s *Store) GetChildren(ctx context.Context, parentID int64) ([]*catalog.Node, error) {
	rows, err := s.db.Select(ctx, pg.SelectSpec{
		Table:      table,
		Columns:    columns,
		Predicates: []pg.Predicate{{Column: "parent_id", Operator: pg.OpEqual, Value: parentID}},
		Orders:     []pg.Order{{Column: "name", Direction: pg.SortAsc}},
	})
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return scanNodes(rows)
}

// Rename implements catalog.Store.
func (s *Store) Rename(ctx context.Context, id int64, name string) error {
	tag, err := s.db.Exec(ctx, table, renameSQL, name, id)
	if err != nil {
		return fmt.Errorf("rename node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DeleteCascade implements catalog.Store. The schema's ON DELETE CASCADE
// removes the whole subtree in the same statement.
func (s *Store) DeleteCascade(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, table, deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// CountByType implements catalog.Store.
func (s *Store) CountByType(ctx context.Context) (map[hierarchy.NodeType]int, error) {
	rows, err := s.db.AggregateRows(ctx, pg.AggregateSpec{
		Table:   table,
		Func:    pg.AggCount,
		GroupBy: "type",
	})
	if err != nil {
		return nil, fmt.Errorf("count nodes: %w", err)
	}
	defer rows.Close()

	counts := make(map[hierarchy.NodeType]int)
	for rows.Next() {
		var (
			tag   string
			count int
		)
		if err := rows.Scan(&tag, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		typ, err := hierarchy.ParseType(tag)
		if err != nil {
			return nil, fmt.Errorf("count nodes: %w", err)
		}
		counts[typ] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count nodes: %w", err)
	}
	return counts, nil
}

func scanNodes(rows pgx.Rows) ([]*catalog.Node, error) {
	defer rows.Close()
	var out []*catalog.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}
	return out, nil
}

func scanNode(rows pgx.Rows) (*catalog.Node, error) {
	var (
		node      catalog.Node
		tag       string
		createdAt time.Time
	)
	if err := rows.Scan(&node.ID, &node.Name, &tag, &node.ParentID, &node.CreatedBy, &createdAt); err != nil {
		return nil, fmt.Errorf("scan node: %w", err)
	}
	typ, err := hierarchy.ParseType(tag)
	if err != nil {
		return nil, fmt.Errorf("scan node: %w", err)
	}
	node.Type = typ
	node.CreatedAt = createdAt
	node.Children = []*catalog.Node{}
	return &node, nil
}
