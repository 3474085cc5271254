package generator

import (
	"fmt"
	"strings"

	"github.com/mcncl/sqj/internal/schema"
)

// QuoteIdentifier quotes a SQL identifier, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteTable quotes a table name. The names "[]" and "[...]" are already
// bracket-quoted and are left alone.
func QuoteTable(name string) string {
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") && !strings.Contains(name[1:len(name)-1], "]") {
		return name
	}
	return QuoteIdentifier(name)
}

// CreateTable renders the table declaration for a schema.
func CreateTable(table string, s schema.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(QuoteTable(table))
	b.WriteString(" (")
	for i, column := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdentifier(column))
	}
	b.WriteString(")")
	return b.String()
}

// CreateVirtualTable renders the statement that instantiates a virtual table
// from module, passing key as the single module argument.
func CreateVirtualTable(table, module, key string) string {
	return fmt.Sprintf("CREATE VIRTUAL TABLE %s USING %s(%s)", QuoteTable(table), module, key)
}

// NestedTableName returns the bracketed table name for an array column.
func NestedTableName(column string) string {
	return "[" + column + "]"
}

// DistinctColumns returns the identifiers to declare for columns. SQLite
// compares identifiers without regard to ASCII case, so a column that folds to
// an earlier one gets the first free "_N" suffix. Positions are unchanged:
// declared[i] stands for columns[i].
func DistinctColumns(columns []string) []string {
	declared := make([]string, len(columns))
	taken := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		taken[foldASCII(c)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		name := c
		if _, dup := seen[foldASCII(c)]; dup {
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", c, n)
				if _, used := taken[foldASCII(name)]; !used {
					break
				}
			}
			taken[foldASCII(name)] = struct{}{}
		}
		seen[foldASCII(name)] = struct{}{}
		declared[i] = name
	}
	return declared
}

func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
