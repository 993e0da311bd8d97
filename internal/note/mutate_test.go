package note

import (
	"errors"
	"testing"
)

func TestNewDocument(t *testing.T) {
	d, err := New(KindNote, "Shopping List", "root", "alice")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Kind != KindNote || d.Note == nil || d.Note.EditorMode != EditorMarkdown {
		t.Fatalf("doc = %+v", d)
	}
	if d.ID == "" || d.Parent != "root" || d.Timestamp == 0 {
		t.Fatalf("doc = %+v", d)
	}
	if len(d.ChangeLog) != 1 || d.ChangeLog[0].Type != ChangeCreated || d.ChangeLog[0].User != "alice" {
		t.Fatalf("changeLog = %+v", d.ChangeLog)
	}

	if _, err := New(Kind("scribble"), "X", "", "alice"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("err = %v, want ErrInvalidKind", err)
	}

	ref, err := New(KindReference, "See also", "", "alice")
	if err != nil {
		t.Fatalf("New reference: %v", err)
	}
	if ref.Reference == nil || ref.Note != nil {
		t.Fatalf("reference variant = %+v", ref)
	}
}

func TestRenameAndMove(t *testing.T) {
	d, err := New(KindNote, "Old", "root", "alice")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := Rename(d, "alice", "Old"); err != nil {
		t.Fatalf("no-op rename: %v", err)
	}
	if len(d.ChangeLog) != 1 {
		t.Fatalf("no-op rename logged: %+v", d.ChangeLog)
	}
	if err := Rename(d, "alice", "New"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if d.Name != "New" || d.ChangeLog[len(d.ChangeLog)-1].Type != ChangeRenamed {
		t.Fatalf("after rename: %+v", d)
	}

	if err := Move(d, "alice", d.ID); !errors.Is(err, ErrSelfReference) {
		t.Fatalf("self move err = %v, want ErrSelfReference", err)
	}
	if err := Move(d, "alice", "elsewhere"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if d.Parent != "elsewhere" || d.ChangeLog[len(d.ChangeLog)-1].Type != ChangeMoved {
		t.Fatalf("after move: %+v", d)
	}
}

func TestSetEditorMode(t *testing.T) {
	d, err := New(KindNote, "N", "", "alice")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := SetEditorMode(d, EditorPlain); err != nil {
		t.Fatalf("SetEditorMode: %v", err)
	}
	if d.Note.EditorMode != EditorPlain {
		t.Fatalf("mode = %q", d.Note.EditorMode)
	}
	if err := SetEditorMode(d, "wysiwyg"); !errors.Is(err, ErrInvalidEditorMode) {
		t.Fatalf("err = %v, want ErrInvalidEditorMode", err)
	}

	att, err := New(KindAttachment, "A", "", "alice")
	if err != nil {
		t.Fatalf("New attachment: %v", err)
	}
	if err := SetEditorMode(att, EditorMarkdown); !errors.Is(err, ErrInvalidEditorMode) {
		t.Fatalf("attachment err = %v, want ErrInvalidEditorMode", err)
	}
}

func TestSetContent(t *testing.T) {
	d, err := New(KindNote, "N", "", "alice")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := SetContent(d, "alice", "hello"); err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	if d.Note.Content != "hello" || d.ChangeLog[len(d.ChangeLog)-1].Type != ChangeModified {
		t.Fatalf("after edit: %+v", d)
	}
	before := len(d.ChangeLog)
	if err := SetContent(d, "alice", "hello"); err != nil {
		t.Fatalf("no-op edit: %v", err)
	}
	if len(d.ChangeLog) != before {
		t.Fatalf("no-op edit logged")
	}

	stub := d.StubCopy()
	if err := SetContent(stub, "alice", "x"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("stub err = %v, want ErrNotLoaded", err)
	}
}
