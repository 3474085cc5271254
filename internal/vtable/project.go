package vtable

import (
	"fmt"
	"time"

	"github.com/mcncl/sqj/internal/lexer"
	"github.com/mcncl/sqj/internal/models"
	"github.com/mcncl/sqj/internal/parser"
)

// project turns one result row into a JSON value: the bare value for a single
// column, otherwise an object keyed by column name.
func (e *Engine) project(columns []string, values []any) models.Node {
	if len(columns) == 1 {
		return e.toNode(columns[0], values[0])
	}
	obj := &models.Object{Members: make([]models.Member, 0, len(columns))}
	for i, c := range columns {
		obj.Members = append(obj.Members, models.Member{Name: c, Value: e.toNode(c, values[i])})
	}
	return obj
}

// toNode converts a value scanned from SQLite. SQLite has no boolean or JSON
// types, so the kind of the matching schema column decides how integers and
// text are read back.
func (e *Engine) toNode(column string, value any) models.Node {
	kind, known := e.kind(column)

	switch v := value.(type) {
	case nil:
		return models.Null{}
	case int64:
		if known && (kind == models.KindTrue || kind == models.KindFalse) && (v == 0 || v == 1) {
			return models.Bool(v == 1)
		}
		return models.Number(float64(v))
	case float64:
		return models.Number(v)
	case bool:
		return models.Bool(v)
	case string:
		return textNode(v, known && kind.Composite())
	case []byte:
		return textNode(string(v), known && kind.Composite())
	case time.Time:
		return models.String(v.Format(time.RFC3339Nano))
	default:
		return models.String(fmt.Sprint(v))
	}
}

// textNode re-parses serialized composites. Text that does not parse to an
// object or array stays a string.
func textNode(s string, composite bool) models.Node {
	if !composite {
		return models.String(s)
	}
	tokens, err := lexer.Tokenize(s)
	if err != nil {
		return models.String(s)
	}
	n, err := parser.Parse(tokens)
	if err != nil || !n.Kind().Composite() {
		return models.String(s)
	}
	return n
}
