// Package schema derives a flat, ordered column list from a JSON tree.
//
// Column names join the member names along a path with '$'. Named objects are
// columns themselves and contribute their members' columns after their own;
// arrays and scalars are leaves. The traversal root has no name and adds no
// segment.
package schema

import (
	"fmt"

	"github.com/mcncl/sqj/internal/models"
)

// Separator joins path segments in a column name.
const Separator = "$"

// Placeholder is the single column declared when the representative record has
// no columns of its own, so that a table can still be declared.
const Placeholder = "INTERNAL_PLACEHOLDER"

// Policy selects which records of a top-level array contribute columns.
type Policy string

const (
	// PolicyFirst derives the columns from the first element only.
	PolicyFirst Policy = "first"
	// PolicyUnion walks every element and appends columns in first-seen order.
	PolicyUnion Policy = "union"
)

// ParsePolicy validates a policy name. The empty string selects PolicyFirst.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFirst:
		return PolicyFirst, nil
	case PolicyUnion:
		return PolicyUnion, nil
	}
	return "", fmt.Errorf("unknown schema policy %q: must be %q or %q", s, PolicyFirst, PolicyUnion)
}

// Schema is an ordered list of unique column names. It is not modified after
// Build returns.
type Schema struct {
	Columns []string
	// Degenerate is set when the representative record contributed no
	// columns and Columns holds only the Placeholder.
	Degenerate bool
}

// Index returns the position of a column, or -1.
func (s Schema) Index(column string) int {
	for i, c := range s.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Concat appends name to prefix with the separator. An empty name leaves the
// prefix unchanged.
func Concat(prefix, name string) string {
	if name == "" {
		return prefix
	}
	if prefix == "" {
		return name
	}
	return prefix + Separator + name
}

// Build derives the schema of a tree. A top-level array is described by its
// representative record(s) according to policy; any other root is its own
// record.
func Build(root models.Node, policy Policy) Schema {
	b := newBuilder()
	for _, record := range Representatives(root, policy) {
		b.collect(record, "", "")
	}
	return b.schema()
}

// Representatives returns the records whose columns make up the schema.
func Representatives(root models.Node, policy Policy) []models.Node {
	arr, ok := root.(*models.Array)
	if !ok {
		return []models.Node{root}
	}
	if len(arr.Values) == 0 {
		return nil
	}
	if policy == PolicyUnion {
		return arr.Values
	}
	return arr.Values[:1]
}

type builder struct {
	columns []string
	seen    map[string]struct{}
}

func newBuilder() *builder {
	return &builder{seen: make(map[string]struct{})}
}

// add registers a column once. Empty names come from records that are not
// objects and stand for the record itself.
func (b *builder) add(column string) {
	if column == "" {
		column = Placeholder
	}
	if _, dup := b.seen[column]; dup {
		return
	}
	b.seen[column] = struct{}{}
	b.columns = append(b.columns, column)
}

func (b *builder) collect(n models.Node, prefix, name string) {
	column := Concat(prefix, name)
	obj, ok := n.(*models.Object)
	if !ok {
		b.add(column)
		return
	}
	if name != "" {
		b.add(column)
	}
	for _, m := range obj.Members {
		b.collect(m.Value, column, m.Name)
	}
}

func (b *builder) schema() Schema {
	if len(b.columns) == 0 {
		return Schema{Columns: []string{Placeholder}, Degenerate: true}
	}
	return Schema{Columns: b.columns}
}
