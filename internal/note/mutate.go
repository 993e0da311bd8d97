package note

import (
	"encoding/json"
	"fmt"
)

// New creates a loaded document of the given kind under parent, with the
// matching variant initialized and a created event in the log. Notes start in
// markdown mode.
func New(kind Kind, name, parent, user string) (*Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("create %q: %w", kind, ErrInvalidKind)
	}
	d := &Document{
		ID:        NewID(name),
		Kind:      kind,
		Name:      name,
		Parent:    parent,
		Timestamp: Now(),
	}
	switch kind {
	case KindNote:
		d.Note = &NoteFields{EditorMode: EditorMarkdown}
	case KindAttachment:
		d.Attachment = &AttachmentFields{}
	case KindReference:
		d.Reference = &ReferenceFields{}
	}
	if err := AppendChange(d, user, ChangeCreated, nil); err != nil {
		return nil, err
	}
	return d, nil
}

// Rename changes the document's display name and records the old one.
func Rename(d *Document, user, name string) error {
	if d.Stub {
		return ErrNotLoaded
	}
	if name == d.Name {
		return nil
	}
	data, _ := json.Marshal(map[string]string{"from": d.Name, "to": name})
	d.Name = name
	return AppendChange(d, user, ChangeRenamed, data)
}

// Move reparents the document. A document can never be its own parent; the
// checker catches replicated documents that arrive that way, Move refuses to
// create one.
func Move(d *Document, user, parent string) error {
	if d.Stub {
		return ErrNotLoaded
	}
	if parent == d.ID {
		return fmt.Errorf("move %s: %w", d.ID, ErrSelfReference)
	}
	if parent == d.Parent {
		return nil
	}
	data, _ := json.Marshal(map[string]string{"from": d.Parent, "to": parent})
	d.Parent = parent
	return AppendChange(d, user, ChangeMoved, data)
}

// SetEditorMode switches a note's editor. Only notes carry an editor mode.
func SetEditorMode(d *Document, mode string) error {
	if d.Stub {
		return ErrNotLoaded
	}
	if d.Note == nil {
		return fmt.Errorf("set editor on %s document: %w", d.Kind, ErrInvalidEditorMode)
	}
	if _, ok := EditorModes[mode]; !ok {
		return fmt.Errorf("set editor %q: %w", mode, ErrInvalidEditorMode)
	}
	d.Note.EditorMode = mode
	return nil
}

// SetContent replaces a note's content and records the edit. Derived
// metadata is stale afterwards until the metadata engine recomputes it.
func SetContent(d *Document, user, content string) error {
	if d.Stub {
		return ErrNotLoaded
	}
	if d.Note == nil {
		return nil
	}
	if content == d.Note.Content {
		return nil
	}
	d.Note.Content = content
	return AppendChange(d, user, ChangeModified, nil)
}
