//go:build !(sqlite_vtable || vtable)

package vtable

import (
	"context"

	"github.com/mcncl/sqj/internal/errors"
	"github.com/mcncl/sqj/internal/models"
)

// Supported reports whether this build can run queries.
const Supported = false

type conn struct{}

// Query always fails: this build has no SQLite virtual table support.
func (e *Engine) Query(ctx context.Context, query string) ([]models.Node, error) {
	return nil, errors.NewQueryError("virtual tables are not available", errors.ErrQueryUnsupported)
}

// Close releases the database.
func (e *Engine) Close() error { return nil }
