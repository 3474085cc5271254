// Command sqj runs SQL queries over JSON input.
//
// Queries run on SQLite virtual tables, which github.com/mattn/go-sqlite3 only
// provides when built with the sqlite_vtable tag:
//
//	go install -tags sqlite_vtable github.com/mcncl/sqj@latest
//
// A build without the tag can still print schemas with --schema, but every
// query fails with errors.ErrQueryUnsupported.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/mcncl/sqj/internal/config"
	"github.com/mcncl/sqj/internal/errors"
	"github.com/mcncl/sqj/internal/formatter"
	"github.com/mcncl/sqj/internal/generator"
	"github.com/mcncl/sqj/internal/models"
	"github.com/mcncl/sqj/internal/parser"
	"github.com/mcncl/sqj/internal/table"
	"github.com/mcncl/sqj/internal/vtable"
)

// CLI defines the command-line interface
var CLI struct {
	Query string `arg:"" optional:"" help:"SQL query to run, e.g. 'SELECT name FROM []'."`
	File  string `arg:"" optional:"" help:"Path to input JSON file. Reads stdin when omitted or '-'."`

	Compact     bool   `help:"Format output without any extraneous whitespace." short:"c"`
	Nth         int    `help:"Print only the nth result (0-based). Negative prints all results." short:"n" default:"-1"`
	Table       string `help:"Table name the input is exposed as (default '[]')." short:"t"`
	UnionSchema bool   `help:"Derive columns from every element of a top-level array, not just the first." name:"union-schema"`
	MaxDepth    int    `help:"Maximum nesting depth of the input (0 for unbounded)." name:"max-depth" default:"-1"`
	StrictKeys  bool   `help:"Reject objects with duplicate keys." name:"strict-keys"`
	Schema      bool   `help:"Print the inferred columns and table declaration instead of running a query. The query argument may then be omitted." short:"s"`
	Config      string `help:"Path to a config file. Defaults to the nearest .sqj.yml." type:"path"`
	Debug       bool   `help:"Enable debug logging." short:"d"`
	Version     bool   `help:"Show version information." short:"v"`
}

// Context holds the runtime context
type Context struct {
	Debug  bool
	Config *config.Config
	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

// Version information
const (
	Version = "0.2.0"
)

func main() {
	k := kong.Must(&CLI,
		kong.Name("sqj"),
		kong.Description("Query JSON with SQL"),
		kong.UsageOnError(),
	)

	_, err := k.Parse(os.Args[1:])
	if err != nil {
		// kong.UsageOnError() has already printed the usage
		os.Exit(1)
	}

	if CLI.Version {
		fmt.Printf("sqj version %s\n", Version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		os.Exit(1)
	}

	ctx := &Context{
		Debug:  cfg.Dev.Debug,
		Config: cfg,
		In:     os.Stdin,
		Out:    os.Stdout,
		Logger: newLogger(os.Stderr, cfg.Dev.Debug),
	}
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: sqj --help\n")
		os.Exit(1)
	}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig merges the config file, if any, with the command line flags.
// Flags left at their defaults do not override the file.
func loadConfig() (*config.Config, error) {
	path := CLI.Config
	if path == "" {
		path = config.FindConfigFile()
	}

	var overrides config.Overrides
	if CLI.Compact {
		overrides.Compact = &CLI.Compact
	}
	if CLI.Table != "" {
		overrides.Table = &CLI.Table
	}
	if CLI.UnionSchema {
		overrides.UnionSchema = &CLI.UnionSchema
	}
	if CLI.MaxDepth >= 0 {
		overrides.MaxDepth = &CLI.MaxDepth
	}
	if CLI.StrictKeys {
		overrides.StrictKeys = &CLI.StrictKeys
	}
	if CLI.Debug {
		overrides.Debug = &CLI.Debug
	}

	cfg, err := config.LoadConfigWithCLI(path, overrides)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("failed to load configuration from '%s'", path), err)
	}
	return cfg, nil
}

// run executes the main program logic
func run(ctx *Context) error {
	if ctx.Logger == nil {
		ctx.Logger = slog.New(slog.DiscardHandler)
	}
	if CLI.Schema && CLI.File == "" {
		// With --schema no query is needed and the only argument is the file.
		CLI.File, CLI.Query = CLI.Query, ""
	}
	if !CLI.Schema && CLI.Query == "" {
		return errors.NewInputError("no query provided", errors.ErrNoQuery)
	}

	// 1. Parse JSON input
	root, err := parseInput(ctx)
	if err != nil {
		return err
	}

	// 2. Build the table view
	records := table.New(root, table.WithPolicy(ctx.Config.SchemaPolicy()))
	ctx.Logger.Debug("built table",
		"rows", records.Count(),
		"columns", len(records.Schema().Columns),
		"degenerate", records.Schema().Degenerate)

	if CLI.Schema {
		return writeSchema(ctx, records)
	}

	// 3. Run the query
	engine := vtable.New(vtable.WithLogger(ctx.Logger))
	defer func() { _ = engine.Close() }()

	if err := registerTables(ctx, engine, records); err != nil {
		return err
	}

	results, err := engine.Query(context.Background(), CLI.Query)
	if err != nil {
		return err
	}

	// 4. Output the results
	return writeOutput(ctx, results)
}

// registerTables exposes the input under its configured name, its file alias
// and, when enabled, a nested table per array column.
func registerTables(ctx *Context, engine *vtable.Engine, records *table.Table) error {
	name := ctx.Config.Table.Name
	if err := engine.Register(name, records); err != nil {
		return errors.NewSchemaError("failed to register table", err)
	}

	if alias := ctx.Config.TableAlias(CLI.File); alias != "" {
		if err := engine.Register(alias, records); err != nil {
			return errors.NewSchemaError("failed to register table alias", err)
		}
	}

	if !ctx.Config.Table.Nested {
		return nil
	}
	taken := make(map[string]bool)
	for _, n := range engine.Tables() {
		taken[n] = true
	}
	for _, column := range records.ArrayColumns() {
		nestedName := generator.NestedTableName(column)
		if taken[nestedName] {
			ctx.Logger.Debug("skipping nested table", "table", nestedName, "reason", "name in use")
			continue
		}
		if err := engine.Register(nestedName, table.Nested(records, column)); err != nil {
			return errors.NewSchemaError("failed to register nested table", err)
		}
		taken[nestedName] = true
	}
	return nil
}

func parseOptions(cfg *config.Config) []parser.Option {
	return []parser.Option{
		parser.WithMaxDepth(cfg.Parse.MaxDepth),
		parser.WithStrictKeys(cfg.Parse.StrictKeys),
	}
}

// parseInput reads JSON from file or stdin
func parseInput(ctx *Context) (models.Node, error) {
	opts := parseOptions(ctx.Config)
	if CLI.File != "" && CLI.File != "-" {
		return parser.ParseFile(CLI.File, opts...)
	}

	if f, ok := ctx.In.(*os.File); ok {
		stdinInfo, err := f.Stat()
		if err != nil {
			return nil, errors.NewInputError("failed to access stdin", err)
		}
		if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
			// Terminal is interactive (not piped)
			return nil, errors.NewInputError("no input provided", errors.ErrNoInput)
		}
	}

	return parser.ParseReader(ctx.In, opts...)
}

// writeSchema prints one column per line followed by the table declaration
func writeSchema(ctx *Context, t *table.Table) error {
	s := t.Schema()
	for _, column := range s.Columns {
		if _, err := fmt.Fprintln(ctx.Out, column); err != nil {
			return errors.NewOutputError("failed to write schema", err)
		}
	}
	if _, err := fmt.Fprintln(ctx.Out, generator.CreateTable(ctx.Config.Table.Name, s)); err != nil {
		return errors.NewOutputError("failed to write schema", err)
	}
	return nil
}

// writeOutput renders the results, or only the nth one when requested
func writeOutput(ctx *Context, results []models.Node) error {
	if CLI.Nth >= 0 {
		if CLI.Nth >= len(results) {
			return errors.NewOutputError(
				fmt.Sprintf("result %d requested but the query returned %d results", CLI.Nth, len(results)),
				nil,
			)
		}
		results = results[CLI.Nth : CLI.Nth+1]
	}

	f := &formatter.Formatter{Indent: ctx.Config.Output.Indent}
	compact := ctx.Config.Output.Compact
	for _, n := range results {
		if err := f.Write(ctx.Out, n, compact); err != nil {
			return errors.NewOutputError("failed to write to output", err)
		}
		if compact {
			if _, err := io.WriteString(ctx.Out, "\n"); err != nil {
				return errors.NewOutputError("failed to write to output", err)
			}
		}
	}
	return nil
}
