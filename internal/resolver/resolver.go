// Package resolver maps a flattened column name back to the node it denotes.
package resolver

import (
	"github.com/mcncl/sqj/internal/models"
	"github.com/mcncl/sqj/internal/schema"
)

// Resolve finds the node that column names within record. It visits nodes in
// the order schema.Build emits columns, so the first match is the node the
// schema describes. The returned node is part of record and must not be
// modified. A missing column is reported with ok == false.
func Resolve(record models.Node, column string) (node models.Node, ok bool) {
	if record == nil {
		return nil, false
	}
	return find(record, column, "", "")
}

func find(n models.Node, target, prefix, name string) (models.Node, bool) {
	column := schema.Concat(prefix, name)
	if column == target {
		return n, true
	}

	obj, ok := n.(*models.Object)
	if !ok {
		return nil, false
	}
	for _, m := range obj.Members {
		if found, ok := find(m.Value, target, column, m.Name); ok {
			return found, true
		}
	}
	return nil, false
}
