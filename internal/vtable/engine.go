// Package vtable runs SQL against JSON tables through SQLite virtual tables.
//
// The SQLite module needs github.com/mattn/go-sqlite3 built with the
// sqlite_vtable tag. Without the tag Query reports
// errors.ErrQueryUnsupported; table registration and result projection work
// either way.
package vtable

import (
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/mcncl/sqj/internal/generator"
	"github.com/mcncl/sqj/internal/models"
	"github.com/mcncl/sqj/internal/table"
)

// ModuleName is the SQLite module that backs every registered table.
const ModuleName = "sqj"

type registration struct {
	name  string
	table *table.Table
	// columns are the declared identifiers, one per schema column.
	columns []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for table declarations and query statistics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine owns one in-memory SQLite database with a virtual table per
// registered JSON table. It is not safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	tables []registration
	conn   *conn
}

// New creates an engine with no tables.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register exposes t to queries as name. Tables must be registered before the
// first query.
func (e *Engine) Register(name string, t *table.Table) error {
	if e.conn != nil {
		return fmt.Errorf("table %q registered after the first query", name)
	}
	for _, r := range e.tables {
		if r.name == name {
			return fmt.Errorf("table %q already registered", name)
		}
	}

	columns := t.Schema().Columns
	declared := generator.DistinctColumns(columns)
	for i, c := range declared {
		if c != columns[i] {
			e.logger.Debug("renamed column", "table", name, "column", columns[i], "declared", c)
		}
	}
	e.tables = append(e.tables, registration{name: name, table: t, columns: declared})
	e.logger.Debug("registered table",
		"table", name,
		"rows", t.Count(),
		"columns", len(t.Schema().Columns))
	return nil
}

// Tables returns the registered table names in registration order.
func (e *Engine) Tables() []string {
	names := make([]string, len(e.tables))
	for i, r := range e.tables {
		names[i] = r.name
	}
	return names
}

// kind looks a result column up in the registered tables, by schema name or
// by declared identifier. Names are compared in NFC so that composed and
// decomposed keys match.
func (e *Engine) kind(column string) (models.Kind, bool) {
	column = norm.NFC.String(column)
	for _, r := range e.tables {
		for i, c := range r.table.Schema().Columns {
			if norm.NFC.String(c) == column || norm.NFC.String(r.columns[i]) == column {
				return r.table.Kind(c)
			}
		}
	}
	return 0, false
}
