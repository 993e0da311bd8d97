package check

import (
	"slices"

	"notarium/internal/meta"
	"notarium/internal/note"
	"notarium/internal/repair"
)

// Checker runs per-document consistency checks. It re-derives metadata
// through the same engine the write path uses, so a clean diff here means
// the stored document is exactly what a fresh recomputation would produce.
type Checker struct {
	engine *meta.Engine
}

// New creates a checker over the given metadata engine.
func New(engine *meta.Engine) *Checker {
	return &Checker{engine: engine}
}

// Structural verifies the invariants that do not depend on content: valid
// kind, matching variant payload, no self-parenting, reference target rules,
// recognized editor mode. A stub is itself a structural finding; the
// remaining checks need a loaded document and are skipped for stubs.
func (c *Checker) Structural(d *note.Document) []Finding {
	var out []Finding
	if d.Stub {
		out = append(out, finding(Error, d.ID, "document is a stub, structural checks need a loaded document"))
		return out
	}
	if !d.Kind.Valid() {
		out = append(out, finding(Error, d.ID, "unknown document kind %q", d.Kind))
		return out
	}
	if !variantMatches(d) {
		out = append(out, finding(Error, d.ID, "document kind %q has no matching payload", d.Kind))
		return out
	}
	if d.Parent == d.ID {
		out = append(out, repairable(Error, d.ID,
			repair.Set(repair.FieldParent, ""),
			"document is its own parent"))
	}

	switch d.Kind {
	case note.KindReference:
		if d.Reference.TargetID == "" {
			out = append(out, finding(Error, d.ID, "reference has no target"))
		} else if d.Reference.TargetID == d.ID {
			out = append(out, finding(Error, d.ID, "reference targets itself"))
		}
	case note.KindNote:
		mode := d.Note.EditorMode
		if mode == "" {
			out = append(out, repairable(Error, d.ID,
				repair.Set(repair.FieldEditorMode, note.EditorMarkdown),
				"note has no editor mode"))
		} else if _, ok := note.EditorModes[mode]; !ok {
			out = append(out, repairable(Error, d.ID,
				repair.Set(repair.FieldEditorMode, note.EditorMarkdown),
				"unrecognized editor mode %q", mode))
		}
	}
	return out
}

// Metadata diffs every derived field against a fresh recomputation on a
// clone. Each mismatch is an Error finding carrying the receipt that sets
// the field to the recomputed value. Checking a stub is a precondition
// violation, not a finding.
func (c *Checker) Metadata(d *note.Document) ([]Finding, error) {
	if d.Stub {
		return nil, note.ErrNotLoaded
	}
	fresh := d.Clone()
	if err := c.engine.Recompute(fresh); err != nil {
		return nil, err
	}

	var out []Finding
	drift := func(field repair.Field, stored, computed any, equal bool) {
		if equal {
			return
		}
		out = append(out, repairable(Error, d.ID,
			repair.Set(field, computed),
			"%s drift: stored %v, computed %v", field, stored, computed))
	}

	drift(repair.FieldContentSize, d.Meta.ContentSize, fresh.Meta.ContentSize,
		d.Meta.ContentSize == fresh.Meta.ContentSize)
	drift(repair.FieldAttachmentSize, d.Meta.AttachmentSize, fresh.Meta.AttachmentSize,
		d.Meta.AttachmentSize == fresh.Meta.AttachmentSize)
	drift(repair.FieldChangeLogSize, d.Meta.ChangeLogSize, fresh.Meta.ChangeLogSize,
		d.Meta.ChangeLogSize == fresh.Meta.ChangeLogSize)
	drift(repair.FieldBackImageSize, d.Meta.BackImageSize, fresh.Meta.BackImageSize,
		d.Meta.BackImageSize == fresh.Meta.BackImageSize)
	drift(repair.FieldPreview, d.Meta.Preview, fresh.Meta.Preview,
		d.Meta.Preview == fresh.Meta.Preview)
	drift(repair.FieldLinks, d.Meta.Links, fresh.Meta.Links,
		slices.Equal(d.Meta.Links, fresh.Meta.Links))
	drift(repair.FieldTags, d.Meta.Tags, fresh.Meta.Tags,
		slices.Equal(d.Meta.Tags, fresh.Meta.Tags))
	return out, nil
}

func variantMatches(d *note.Document) bool {
	switch d.Kind {
	case note.KindNote:
		return d.Note != nil && d.Attachment == nil && d.Reference == nil
	case note.KindAttachment:
		return d.Attachment != nil && d.Note == nil && d.Reference == nil
	case note.KindReference:
		return d.Reference != nil && d.Note == nil && d.Attachment == nil
	}
	return false
}
