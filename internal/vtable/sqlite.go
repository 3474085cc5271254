//go:build sqlite_vtable || vtable

package vtable

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/mcncl/sqj/internal/errors"
	"github.com/mcncl/sqj/internal/formatter"
	"github.com/mcncl/sqj/internal/generator"
	"github.com/mcncl/sqj/internal/models"
	"github.com/mcncl/sqj/internal/schema"
	"github.com/mcncl/sqj/internal/table"
)

// Supported reports whether this build can run queries.
const Supported = true

type conn struct {
	db *sql.DB
}

// connector opens in-memory databases through a private driver, so every
// engine gets its own module without a global driver registration.
type connector struct {
	driver *sqlite3.SQLiteDriver
}

func (c connector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(":memory:")
}

func (c connector) Driver() driver.Driver { return c.driver }

func (e *Engine) open(ctx context.Context) error {
	if e.conn != nil {
		return nil
	}

	drv := &sqlite3.SQLiteDriver{
		ConnectHook: func(c *sqlite3.SQLiteConn) error {
			return c.CreateModule(ModuleName, &module{engine: e})
		},
	}
	db := sql.OpenDB(connector{driver: drv})
	// Each connection is a separate in-memory database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for i, r := range e.tables {
		stmt := generator.CreateVirtualTable(r.name, ModuleName, strconv.Itoa(i))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return errors.NewQueryError(fmt.Sprintf("failed to declare table %s", r.name), err)
		}
		e.logger.Debug("declared virtual table", "table", r.name, "statement", stmt)
	}

	e.conn = &conn{db: db}
	return nil
}

// Query runs a SQL statement and returns one JSON value per result row.
func (e *Engine) Query(ctx context.Context, query string) ([]models.Node, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.NewQueryError("query is empty", errors.ErrNoQuery)
	}
	if err := e.open(ctx); err != nil {
		return nil, err
	}

	rows, err := e.conn.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewQueryError("failed to run query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.NewQueryError("failed to read result columns", err)
	}

	results := make([]models.Node, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewQueryError("failed to read result row", err)
		}
		results = append(results, e.project(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryError("failed to read results", err)
	}

	e.logger.Debug("query finished", "columns", len(columns), "rows", len(results))
	return results, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	if e.conn == nil {
		return nil
	}
	err := e.conn.db.Close()
	e.conn = nil
	return err
}

type module struct {
	engine *Engine
}

// Create declares a registered table. args holds the module name, the
// database name, the table name and the module arguments; the single module
// argument is the registration index.
func (m *module) Create(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	if len(args) < 4 {
		return nil, fmt.Errorf("%s: missing table key", ModuleName)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(args[3]))
	if err != nil || idx < 0 || idx >= len(m.engine.tables) {
		return nil, fmt.Errorf("%s: unknown table key %q", ModuleName, args[3])
	}

	r := m.engine.tables[idx]
	declared := schema.Schema{Columns: r.columns, Degenerate: r.table.Schema().Degenerate}
	if err := c.DeclareVTab(generator.CreateTable(r.name, declared)); err != nil {
		return nil, err
	}
	return &vtab{table: r.table}, nil
}

func (m *module) Connect(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	return m.Create(c, args)
}

func (m *module) DestroyModule() {}

type vtab struct {
	table *table.Table
}

// BestIndex uses no constraints: every query is a full scan and SQLite
// applies the filters itself.
func (v *vtab) BestIndex(csts []sqlite3.InfoConstraint, ob []sqlite3.InfoOrderBy) (*sqlite3.IndexResult, error) {
	return &sqlite3.IndexResult{Used: make([]bool, len(csts))}, nil
}

func (v *vtab) Open() (sqlite3.VTabCursor, error) {
	return &cursor{table: v.table}, nil
}

func (v *vtab) Disconnect() error { return nil }
func (v *vtab) Destroy() error    { return nil }

// cursor walks the rows of a table. Each cursor keeps its own position, so
// self-joins see independent scans over the shared tree.
type cursor struct {
	table *table.Table
	row   int
}

func (c *cursor) Filter(idxNum int, idxStr string, vals []any) error {
	c.row = 0
	return nil
}

func (c *cursor) Next() error {
	c.row++
	return nil
}

func (c *cursor) EOF() bool {
	return c.row >= c.table.Count()
}

func (c *cursor) Rowid() (int64, error) {
	return int64(c.row), nil
}

func (c *cursor) Close() error { return nil }

func (c *cursor) Column(ctx *sqlite3.SQLiteContext, col int) error {
	n, ok := c.table.Value(c.row, col)
	if !ok {
		ctx.ResultNull()
		return nil
	}

	switch v := n.(type) {
	case models.Number:
		ctx.ResultDouble(float64(v))
	case models.String:
		ctx.ResultText(string(v))
	case models.True:
		ctx.ResultBool(true)
	case models.False:
		ctx.ResultBool(false)
	case models.Null:
		ctx.ResultNull()
	default:
		ctx.ResultText(formatter.Compact(n))
	}
	return nil
}
