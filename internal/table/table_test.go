package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/sqj/internal/models"
	"github.com/mcncl/sqj/internal/parser"
	"github.com/mcncl/sqj/internal/schema"
)

func mustNew(t *testing.T, input string, opts ...Option) *Table {
	t.Helper()
	root, err := parser.ParseString(input)
	require.NoError(t, err)
	return New(root, opts...)
}

func TestNew_ArrayRoot(t *testing.T) {
	tbl := mustNew(t, `[{"id": 1, "user": {"name": "a"}}, {"id": 2}, {"user": {"name": "c"}}]`)

	assert.Equal(t, 3, tbl.Count())
	assert.Equal(t, []string{"id", "user", "user$name"}, tbl.Schema().Columns)

	v, ok := tbl.Value(0, 2)
	require.True(t, ok)
	assert.Equal(t, models.String("a"), v)

	_, ok = tbl.Value(1, 2)
	assert.False(t, ok, "row without the column")

	v, ok = tbl.Lookup(2, "user$name")
	require.True(t, ok)
	assert.Equal(t, models.String("c"), v)

	_, ok = tbl.Value(3, 0)
	assert.False(t, ok)
	_, ok = tbl.Value(0, 3)
	assert.False(t, ok)
	_, ok = tbl.Lookup(-1, "id")
	assert.False(t, ok)
}

func TestNew_ObjectRoot(t *testing.T) {
	tbl := mustNew(t, `{"a": {"b": 1, "c": 2}}`)

	assert.Equal(t, 1, tbl.Count())
	assert.Equal(t, []string{"a", "a$b", "a$c"}, tbl.Schema().Columns)
	assert.Same(t, tbl.Root(), tbl.Record(0))

	v, ok := tbl.Value(0, 1)
	require.True(t, ok)
	assert.Equal(t, models.Number(1), v)
}

func TestNew_ScalarRecords(t *testing.T) {
	tbl := mustNew(t, `[1, "two", null]`)

	require.Equal(t, []string{schema.Placeholder}, tbl.Schema().Columns)
	for i, expected := range []models.Node{models.Number(1), models.String("two"), models.Null{}} {
		v, ok := tbl.Value(i, 0)
		require.True(t, ok)
		assert.Equal(t, expected, v)
	}
}

func TestNew_Degenerate(t *testing.T) {
	empty := mustNew(t, `[]`)
	assert.Equal(t, 0, empty.Count())
	assert.True(t, empty.Schema().Degenerate)

	obj := mustNew(t, `{}`)
	assert.Equal(t, 1, obj.Count())
	assert.True(t, obj.Schema().Degenerate)
	_, ok := obj.Value(0, 0)
	assert.False(t, ok, "the placeholder of an object record has no value")
}

func TestNew_UnionPolicy(t *testing.T) {
	input := `[{"id": 1}, {"name": "b"}]`

	assert.Equal(t, []string{"id"}, mustNew(t, input).Schema().Columns)
	assert.Equal(t, []string{"id", "name"}, mustNew(t, input, WithPolicy(schema.PolicyUnion)).Schema().Columns)
}

func TestTable_Kind(t *testing.T) {
	tbl := mustNew(t, `[{"id": 1, "ok": false, "tags": [], "meta": {}, "n": null}, {"id": "x"}]`)

	tests := []struct {
		column string
		kind   models.Kind
	}{
		{"id", models.KindNumber},
		{"ok", models.KindFalse},
		{"tags", models.KindArray},
		{"meta", models.KindObject},
		{"n", models.KindNull},
	}
	for _, tt := range tests {
		k, ok := tbl.Kind(tt.column)
		require.True(t, ok, tt.column)
		assert.Equal(t, tt.kind, k, tt.column)
	}

	_, ok := tbl.Kind("missing")
	assert.False(t, ok)
}

func TestTable_ArrayColumns(t *testing.T) {
	tbl := mustNew(t, `[{"id": 1, "tags": ["a"], "user": {"roles": [{"r": 1}]}}]`)
	assert.Equal(t, []string{"tags", "user$roles"}, tbl.ArrayColumns())

	assert.Empty(t, mustNew(t, `{"a": 1}`).ArrayColumns())
}

func TestNested(t *testing.T) {
	parent := mustNew(t, `[
		{"id": 1, "items": [{"sku": "x"}, {"sku": "y"}]},
		{"id": 2},
		{"id": 3, "items": "not an array"},
		{"id": 4, "items": [{"sku": "z", "qty": 2}]}
	]`)

	nested := Nested(parent, "items")
	assert.Equal(t, 3, nested.Count())
	assert.Equal(t, []string{"sku"}, nested.Schema().Columns)

	v, ok := nested.Lookup(2, "sku")
	require.True(t, ok)
	assert.Equal(t, models.String("z"), v)

	empty := Nested(parent, "missing")
	assert.Equal(t, 0, empty.Count())
	assert.True(t, empty.Schema().Degenerate)
}

func TestTable_EmptyKeyMember(t *testing.T) {
	tbl := mustNew(t, `[{"": 5, "a": 1}, {"a": 2}]`)
	require.Equal(t, []string{schema.Placeholder, "a"}, tbl.Schema().Columns)

	v, ok := tbl.Value(0, 0)
	require.True(t, ok)
	assert.Equal(t, models.Number(5), v)

	_, ok = tbl.Value(1, 0)
	assert.False(t, ok)

	k, ok := tbl.Kind(schema.Placeholder)
	require.True(t, ok)
	assert.Equal(t, models.KindNumber, k)
}
