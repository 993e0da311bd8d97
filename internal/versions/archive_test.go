package versions

import (
	"encoding/json"
	"errors"
	"testing"

	"notarium/internal/note"
)

func TestArchiveStoreAndSnapshot(t *testing.T) {
	archive := NewArchive(t.TempDir())
	doc := &note.Document{
		ID:   "n1",
		Kind: note.KindNote,
		Name: "N",
		Note: &note.NoteFields{Content: "body", EditorMode: "markdown"},
		Versions: map[int64]json.RawMessage{
			1000: json.RawMessage(`{"content":"old","editor":"markdown"}`),
			2000: json.RawMessage(`{"content":"older","editor":"markdown"}`),
		},
	}

	if err := archive.Store(doc, []int64{1000, 2000}, "alice"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	blob, err := archive.Snapshot("n1", 1000)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if string(blob) != `{"content":"old","editor":"markdown"}` {
		t.Fatalf("blob = %s", blob)
	}

	// Second commit into the same repository.
	doc.Versions[3000] = json.RawMessage(`{"content":"oldest","editor":"markdown"}`)
	if err := archive.Store(doc, []int64{3000}, "alice"); err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if _, err := archive.Snapshot("n1", 3000); err != nil {
		t.Fatalf("Snapshot after second store: %v", err)
	}
}

func TestArchiveSnapshotMissing(t *testing.T) {
	archive := NewArchive(t.TempDir())
	if _, err := archive.Snapshot("nobody", 5); !errors.Is(err, note.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestArchiveStoreUnknownTimestamp(t *testing.T) {
	archive := NewArchive(t.TempDir())
	doc := &note.Document{ID: "n1", Kind: note.KindNote, Versions: map[int64]json.RawMessage{}}
	if err := archive.Store(doc, []int64{42}, "alice"); err == nil {
		t.Fatalf("expected error for missing snapshot")
	}
}

func TestPruneArchivesBeforeDeleting(t *testing.T) {
	archive := NewArchive(t.TempDir())
	doc := &note.Document{
		ID:   "n1",
		Kind: note.KindNote,
		Note: &note.NoteFields{Content: "body", EditorMode: "markdown"},
		Versions: map[int64]json.RawMessage{
			0:       json.RawMessage(`{"content":"ancient","editor":"markdown"}`),
			30_000:  json.RawMessage(`{"content":"old","editor":"markdown"}`),
			700_000: json.RawMessage(`{"content":"recent","editor":"markdown"}`),
		},
	}

	removed, err := Prune(doc, 1_000_000, archive, "alice")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 1 || removed[0] != 0 {
		t.Fatalf("removed = %v, want [0]", removed)
	}
	if _, ok := doc.Versions[0]; ok {
		t.Fatalf("pruned snapshot still on document")
	}
	blob, err := archive.Snapshot("n1", 0)
	if err != nil {
		t.Fatalf("Snapshot of pruned blob: %v", err)
	}
	if string(blob) != `{"content":"ancient","editor":"markdown"}` {
		t.Fatalf("archived blob = %s", blob)
	}
}

func TestPruneStub(t *testing.T) {
	d := &note.Document{ID: "n1", Stub: true}
	if _, err := Prune(d, 1_000_000, nil, "alice"); !errors.Is(err, note.ErrNotLoaded) {
		t.Fatalf("err = %v, want ErrNotLoaded", err)
	}
}

func TestTakeSnapshot(t *testing.T) {
	d := &note.Document{
		ID:   "n1",
		Kind: note.KindNote,
		Note: &note.NoteFields{Content: "hello", EditorMode: "markdown"},
	}
	if err := TakeSnapshot(d, 5000); err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	blob, ok := d.Versions[5000]
	if !ok {
		t.Fatalf("snapshot not recorded")
	}
	var got struct {
		Content string `json:"content"`
		Editor  string `json:"editor"`
	}
	if err := json.Unmarshal(blob, &got); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if got.Content != "hello" || got.Editor != "markdown" {
		t.Fatalf("snapshot = %+v", got)
	}
}
