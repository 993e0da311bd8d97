// Package order computes a document's sort position relative to a parent
// context and a globally comparable hierarchical sort key for tree display.
// A document has one order under its primary parent and an independent one
// under each navigation relation.
package order

import (
	"fmt"
	"math"
	"strings"

	"notarium/internal/note"
)

// RelativeOrder resolves the document's sort order under parentID. An unset
// (zero) order falls back to the negated creation timestamp, so untouched
// documents sort newest-first deterministically.
func RelativeOrder(d *note.Document, parentID string) int64 {
	if parentID == d.Parent {
		return orderOrDefault(d.Order, d)
	}
	for _, rel := range d.NavRelations {
		if rel.ParentID == parentID {
			return orderOrDefault(rel.Order, d)
		}
	}
	return -d.Timestamp
}

// SetRelativeOrder assigns the document's order under parentID: in place for
// the primary parent, find-or-insert for a navigation relation.
func SetRelativeOrder(d *note.Document, parentID string, order int64) {
	if parentID == d.Parent {
		d.Order = order
		return
	}
	for i := range d.NavRelations {
		if d.NavRelations[i].ParentID == parentID {
			d.NavRelations[i].Order = order
			return
		}
	}
	d.NavRelations = append(d.NavRelations, note.NavRelation{ParentID: parentID, Order: order})
}

func orderOrDefault(order int64, d *note.Document) int64 {
	if order != 0 {
		return order
	}
	return -d.Timestamp
}

// HierarchicalSortKey builds a lexicographically comparable key for d from
// its ancestor chain (root first, d excluded). Each segment is the zero-
// padded relative order under that level's parent followed by a five
// character slice of the name, so equal orders tie-break on name, ascending.
// The key is display-only and never persisted.
func HierarchicalSortKey(d *note.Document, chain []*note.Document) string {
	var b strings.Builder
	parent := ""
	for _, ancestor := range chain {
		writeSegment(&b, ancestor, parent)
		parent = ancestor.ID
	}
	writeSegment(&b, d, parent)
	return b.String()
}

func writeSegment(b *strings.Builder, d *note.Document, parentID string) {
	// Shift the signed order into unsigned space so negative orders
	// (timestamp fallbacks) compare correctly as strings.
	biased := uint64(RelativeOrder(d, parentID)) + uint64(math.MaxInt64) + 1
	fmt.Fprintf(b, "%020d%-5.5s/", biased, strings.ToLower(d.Name))
}
