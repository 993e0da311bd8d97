package check

import (
	"sort"

	"notarium/internal/note"
	"notarium/internal/repair"
)

// TreeRoots walks each document's primary-parent chain and reports every
// document that cannot reach the root: self-parented, orphaned by a missing
// ancestor, or caught in a cycle. Every member of a cycle is reported, never
// silently accepted. The corpus is a read-only snapshot keyed by id.
func TreeRoots(corpus map[string]*note.Document) []Finding {
	var out []Finding
	for id, d := range corpus {
		if f, bad := walkToRoot(corpus, d); bad {
			f.SubjectID = id
			out = append(out, f)
		}
	}
	sortFindings(out)
	return out
}

func walkToRoot(corpus map[string]*note.Document, d *note.Document) (Finding, bool) {
	visited := map[string]struct{}{d.ID: {}}
	cur := d
	for cur.Parent != "" {
		if cur.Parent == cur.ID {
			if cur.ID == d.ID {
				// Self-parenting is mechanically repairable: cutting the
				// loop re-roots the document.
				return repairable(Error, "",
					repair.Set(repair.FieldParent, ""),
					"tree walk lost at %s: document is its own parent", cur.ID), true
			}
			// The defect sits on the ancestor, which carries its own
			// receipt; this walk recovers once that repair lands.
			return finding(Warning, "", "tree walk lost at %s: document is its own parent", cur.ID), true
		}
		next, ok := corpus[cur.Parent]
		if !ok {
			return finding(Error, "", "tree walk lost at %s: parent %s does not exist", cur.ID, cur.Parent), true
		}
		if _, seen := visited[next.ID]; seen {
			return finding(Error, "", "tree walk lost at %s: parent cycle through %s", cur.ID, next.ID), true
		}
		visited[next.ID] = struct{}{}
		cur = next
	}
	return Finding{}, false
}

// References verifies the reference and navigation-relation invariants over
// the corpus: every reference target resolves, references stay leaves, and
// navigation relations point at existing parents. Broken navigation
// relations are soft failures, reported with a receipt that drops the
// dangling entries.
func References(corpus map[string]*note.Document) []Finding {
	var out []Finding

	children := make(map[string]int, len(corpus))
	for _, d := range corpus {
		if d.Parent != "" {
			children[d.Parent]++
		}
	}

	for id, d := range corpus {
		if d.Kind == note.KindReference && d.Reference != nil {
			target := d.Reference.TargetID
			if target == "" {
				out = append(out, finding(Error, id, "reference has no target"))
			} else if _, ok := corpus[target]; !ok {
				out = append(out, finding(Error, id, "reference target %s does not exist", target))
			}
			if n := children[id]; n > 0 {
				out = append(out, finding(Warning, id, "reference has %d children, references are leaves", n))
			}
		}

		if kept, dropped := liveRelations(corpus, d.NavRelations); dropped > 0 {
			out = append(out, repairable(Warning, id,
				repair.Set(repair.FieldNavRelations, kept),
				"%d navigation relations point at missing parents", dropped))
		}
	}
	sortFindings(out)
	return out
}

func liveRelations(corpus map[string]*note.Document, rels []note.NavRelation) ([]note.NavRelation, int) {
	kept := make([]note.NavRelation, 0, len(rels))
	dropped := 0
	for _, rel := range rels {
		if _, ok := corpus[rel.ParentID]; ok {
			kept = append(kept, rel)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

// sortFindings orders findings by subject id then message, so corpus sweeps
// report deterministically regardless of map iteration order.
func sortFindings(fs []Finding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].SubjectID != fs[j].SubjectID {
			return fs[i].SubjectID < fs[j].SubjectID
		}
		return fs[i].Message < fs[j].Message
	})
}
