package note

import (
	"errors"
	"testing"
)

func TestTryLock(t *testing.T) {
	r := NewRegistry()

	guard, err := r.TryLock("d1", "alice")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := r.TryLock("d1", "bob"); !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("second user lock err = %v, want ErrAlreadyLocked", err)
	}

	// Same user re-enters.
	again, err := r.TryLock("d1", "alice")
	if err != nil {
		t.Fatalf("re-entrant lock: %v", err)
	}
	again.Release()

	guard.Release()
	guard.Release() // double release is harmless

	if _, err := r.TryLock("d1", "bob"); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
}

func TestUnlockWhenUnlockedIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unlock("never-locked")
	if h := r.Holder("never-locked"); h != "" {
		t.Fatalf("holder = %q, want empty", h)
	}
}

func TestChangeLogAppend(t *testing.T) {
	d := &Document{ID: "n1", Kind: KindNote, Note: &NoteFields{}}
	if err := AppendChange(d, "alice", ChangeModified, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(d.ChangeLog) != 1 || d.ChangeLog[0].Type != ChangeModified || d.ChangeLog[0].User != "alice" {
		t.Fatalf("change log = %+v", d.ChangeLog)
	}

	stub := &Document{ID: "n2", Stub: true}
	if err := AppendChange(stub, "alice", ChangeModified, nil); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("append on stub err = %v, want ErrNotLoaded", err)
	}
}

func TestClearChangeLogLeavesOneEvent(t *testing.T) {
	d := &Document{ID: "n1", Kind: KindNote, Note: &NoteFields{}}
	for i := 0; i < 5; i++ {
		if err := AppendChange(d, "alice", ChangeModified, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := ClearChangeLog(d, "alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(d.ChangeLog) != 1 || d.ChangeLog[0].Type != ChangeHistoryCleared {
		t.Fatalf("change log after clear = %+v", d.ChangeLog)
	}
}

func TestSoftDeleteUndelete(t *testing.T) {
	d := &Document{ID: "n1", Kind: KindNote, Note: &NoteFields{}}
	if err := SoftDelete(d, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !d.Deleted {
		t.Fatal("not marked deleted")
	}
	if err := SoftDelete(d, "alice"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if err := Undelete(d, "alice"); err != nil {
		t.Fatalf("undelete: %v", err)
	}
	if d.Deleted {
		t.Fatal("still marked deleted")
	}
	types := make([]ChangeType, len(d.ChangeLog))
	for i, ev := range d.ChangeLog {
		types[i] = ev.Type
	}
	if len(types) != 2 || types[0] != ChangeDeleted || types[1] != ChangeUndeleted {
		t.Fatalf("events = %v", types)
	}
}

func TestNewID(t *testing.T) {
	a := NewID("My First Note!")
	b := NewID("My First Note!")
	if a == b {
		t.Fatalf("ids collide: %q", a)
	}
	const prefix = "my-first-note-"
	if len(a) <= len(prefix) || a[:len(prefix)] != prefix {
		t.Fatalf("id = %q, want %q prefix", a, prefix)
	}
	if empty := NewID("!!!"); empty == "" {
		t.Fatal("id for unslugable name must still be non-empty")
	}
}
