package pg

import (
	"strconv"
	"strings"
)

type Operator string

const (
	OpEqual  Operator = "="
	OpIsNull Operator = "IS NULL"
)

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Predicate is a single WHERE clause condition. OpIsNull takes no value.
type Predicate struct {
	Column   string
	Operator Operator
	Value    any
}

type Order struct {
	Column    string
	Direction SortDirection
}

// SelectSpec describes a SELECT without hand-writing SQL at call sites.
type SelectSpec struct {
	Table      string
	Columns    []string
	Predicates []Predicate
	Orders     []Order
	Limit      int
}

type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
)

// AggregateSpec describes a single-value aggregate query, optionally
// grouped by a column.
type AggregateSpec struct {
	Table      string
	Predicates []Predicate
	Func       AggregateFunc
	Column     string
	GroupBy    string
}

// BuildSelectSQL renders the spec to SQL plus positional arguments.
func BuildSelectSQL(spec SelectSpec) (string, []any) {
	columns := spec.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(spec.Table)

	args := writePredicates(&sb, spec.Predicates)

	if len(spec.Orders) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, order := range spec.Orders {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(order.Column)
			sb.WriteByte(' ')
			sb.WriteString(string(order.Direction))
		}
	}

	if spec.Limit > 0 {
		sb.WriteString(" LIMIT $")
		sb.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, spec.Limit)
	}

	return sb.String(), args
}

// BuildAggregateSQL renders the aggregate spec to SQL plus positional arguments.
func BuildAggregateSQL(spec AggregateSpec) (string, []any) {
	column := spec.Column
	if column == "" {
		column = "*"
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if spec.GroupBy != "" {
		sb.WriteString(spec.GroupBy)
		sb.WriteString(", ")
	}
	sb.WriteString(string(spec.Func))
	sb.WriteByte('(')
	sb.WriteString(column)
	sb.WriteString(") FROM ")
	sb.WriteString(spec.Table)

	args := writePredicates(&sb, spec.Predicates)

	if spec.GroupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(spec.GroupBy)
	}

	return sb.String(), args
}

func writePredicates(sb *strings.Builder, predicates []Predicate) []any {
	if len(predicates) == 0 {
		return nil
	}
	args := make([]any, 0, len(predicates))
	sb.WriteString(" WHERE ")
	for i, pred := range predicates {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(pred.Column)
		if pred.Operator == OpIsNull {
			sb.WriteString(" IS NULL")
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(string(pred.Operator))
		sb.WriteString(" $")
		sb.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, pred.Value)
	}
	return args
}
