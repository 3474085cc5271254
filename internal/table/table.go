// Package table presents a parsed JSON tree as rows and columns.
//
// A top-level array is a table with one row per element; any other root is a
// table with a single row. Tables are read-only after construction and may be
// shared between goroutines.
package table

import (
	"github.com/mcncl/sqj/internal/models"
	"github.com/mcncl/sqj/internal/resolver"
	"github.com/mcncl/sqj/internal/schema"
)

// Option configures a Table.
type Option func(*Table)

// WithPolicy selects how the schema of a top-level array is derived.
func WithPolicy(p schema.Policy) Option {
	return func(t *Table) { t.policy = p }
}

// Table is a relational view over a tree.
type Table struct {
	root    models.Node
	records []models.Node
	schema  schema.Schema
	policy  schema.Policy
}

// New builds a table whose records are the top-level values of root.
func New(root models.Node, opts ...Option) *Table {
	t := &Table{root: root, policy: schema.PolicyFirst}
	for _, opt := range opts {
		opt(t)
	}
	if arr, ok := root.(*models.Array); ok {
		t.records = arr.Values
	} else {
		t.records = []models.Node{root}
	}
	t.schema = schema.Build(root, t.policy)
	return t
}

// Nested builds a table from the arrays found at column in every record of
// parent. The rows are the array elements, in record order.
func Nested(parent *Table, column string) *Table {
	values := make([]models.Node, 0)
	for _, record := range parent.records {
		n, ok := resolver.Resolve(record, column)
		if !ok {
			continue
		}
		if arr, ok := n.(*models.Array); ok {
			values = append(values, arr.Values...)
		}
	}
	return New(&models.Array{Values: values}, WithPolicy(parent.policy))
}

// ArrayColumns lists the columns whose value in the representative record is
// an array.
func (t *Table) ArrayColumns() []string {
	var columns []string
	for _, c := range t.schema.Columns {
		if k, ok := t.Kind(c); ok && k == models.KindArray {
			columns = append(columns, c)
		}
	}
	return columns
}

// Schema returns the ordered column names.
func (t *Table) Schema() schema.Schema { return t.schema }

// Root returns the tree the table was built from.
func (t *Table) Root() models.Node { return t.root }

// Count returns the number of rows.
func (t *Table) Count() int { return len(t.records) }

// Record returns the tree of row i.
func (t *Table) Record(i int) models.Node { return t.records[i] }

// Value returns the node for column col of row.
func (t *Table) Value(row, col int) (models.Node, bool) {
	if row < 0 || row >= len(t.records) || col < 0 || col >= len(t.schema.Columns) {
		return nil, false
	}
	return lookup(t.records[row], t.schema.Columns[col])
}

// Lookup resolves a column by name against row.
func (t *Table) Lookup(row int, column string) (models.Node, bool) {
	if row < 0 || row >= len(t.records) {
		return nil, false
	}
	return lookup(t.records[row], column)
}

// lookup resolves column against record. The placeholder names a non-object
// record itself, or the member with the empty key of an object record.
func lookup(record models.Node, column string) (models.Node, bool) {
	if column == schema.Placeholder {
		obj, ok := record.(*models.Object)
		if !ok {
			return record, true
		}
		if v, ok := obj.Get(""); ok {
			return v, true
		}
	}
	return resolver.Resolve(record, column)
}

// Kind returns the kind of column in the first record that has it.
func (t *Table) Kind(column string) (models.Kind, bool) {
	for _, record := range t.representatives() {
		if n, ok := lookup(record, column); ok {
			return n.Kind(), true
		}
	}
	return 0, false
}

func (t *Table) representatives() []models.Node {
	return schema.Representatives(t.root, t.policy)
}
