package gateway

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"notarium/internal/note"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	g, err := OpenSQLite(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func testNote(id string) *note.Document {
	return &note.Document{
		ID:        id,
		Kind:      note.KindNote,
		Name:      strings.ToUpper(id),
		Parent:    "",
		Timestamp: 1000,
		Note:      &note.NoteFields{Content: "body of " + id, EditorMode: "markdown"},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	g := openTestDB(t)
	ctx := context.Background()

	d := testNote("n1")
	rev, err := g.Put(ctx, d)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(rev, "1-") {
		t.Fatalf("rev = %q, want generation 1", rev)
	}

	got, err := g.Get(ctx, "n1", GetOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Rev != rev || got.Name != "N1" || got.Note == nil || got.Note.Content != "body of n1" {
		t.Fatalf("got = %+v", got)
	}
}

func TestPutConflicts(t *testing.T) {
	g := openTestDB(t)
	ctx := context.Background()

	d := testNote("n1")
	rev, err := g.Put(ctx, d)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Stale revision.
	stale := testNote("n1")
	stale.Rev = "1-deadbeef"
	if _, err := g.Put(ctx, stale); !errors.Is(err, note.ErrConflict) {
		t.Fatalf("stale put err = %v, want conflict", err)
	}

	// New document claiming a revision it never had.
	fresh := testNote("n2")
	fresh.Rev = "3-deadbeef"
	if _, err := g.Put(ctx, fresh); !errors.Is(err, note.ErrConflict) {
		t.Fatalf("fresh-with-rev put err = %v, want conflict", err)
	}

	// Correct revision advances the generation.
	d.Rev = rev
	rev2, err := g.Put(ctx, d)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if !strings.HasPrefix(rev2, "2-") {
		t.Fatalf("rev2 = %q, want generation 2", rev2)
	}
}

func TestGetMissing(t *testing.T) {
	g := openTestDB(t)
	if _, err := g.Get(context.Background(), "nope", GetOptions{}); !errors.Is(err, note.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := g.GetRaw(context.Background(), "nope"); !errors.Is(err, note.ErrNotFound) {
		t.Fatalf("GetRaw err = %v, want ErrNotFound", err)
	}
}

func TestQueryViews(t *testing.T) {
	g := openTestDB(t)
	ctx := context.Background()

	live := testNote("live")
	gone := testNote("gone")
	gone.Deleted = true
	art := testNote("art")
	art.BackImage = []byte(`{"strokes":[]}`)

	for _, d := range []*note.Document{live, gone, art} {
		if _, err := g.Put(ctx, d); err != nil {
			t.Fatalf("Put %s: %v", d.ID, err)
		}
	}

	cases := []struct {
		view View
		want []string
	}{
		{ViewTOC, []string{"art", "live"}},
		{ViewDeleted, []string{"gone"}},
		{ViewBGImage, []string{"art"}},
	}
	for _, tc := range cases {
		docs, err := g.QueryView(ctx, tc.view, ViewOptions{})
		if err != nil {
			t.Fatalf("QueryView(%s): %v", tc.view, err)
		}
		var ids []string
		for _, d := range docs {
			if !d.Stub {
				t.Fatalf("view %s returned a loaded document %s", tc.view, d.ID)
			}
			ids = append(ids, d.ID)
		}
		if len(ids) != len(tc.want) {
			t.Fatalf("view %s ids = %v, want %v", tc.view, ids, tc.want)
		}
		for i := range tc.want {
			if ids[i] != tc.want[i] {
				t.Fatalf("view %s ids = %v, want %v", tc.view, ids, tc.want)
			}
		}
	}

	limited, err := g.QueryView(ctx, ViewTOC, ViewOptions{Limit: 1})
	if err != nil {
		t.Fatalf("limited QueryView: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d rows", len(limited))
	}
}

func TestBulkPut(t *testing.T) {
	g := openTestDB(t)
	ctx := context.Background()

	seeded := testNote("seeded")
	if _, err := g.Put(ctx, seeded); err != nil {
		t.Fatalf("seed Put: %v", err)
	}

	stale := testNote("seeded")
	stale.Rev = "1-ffffffff"
	results := g.BulkPut(ctx, []*note.Document{testNote("a"), stale, testNote("b")})
	if len(results) != 3 {
		t.Fatalf("results = %v", results)
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("clean puts failed: %v / %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, note.ErrConflict) {
		t.Fatalf("stale bulk put err = %v, want conflict", results[1].Err)
	}
}

func TestDelete(t *testing.T) {
	g := openTestDB(t)
	ctx := context.Background()

	d := testNote("n1")
	rev, err := g.Put(ctx, d)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := g.Delete(ctx, "n1", "1-wrong"); !errors.Is(err, note.ErrConflict) {
		t.Fatalf("wrong-rev delete err = %v, want conflict", err)
	}
	if err := g.Delete(ctx, "n1", rev); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := g.Delete(ctx, "n1", rev); !errors.Is(err, note.ErrNotFound) {
		t.Fatalf("repeat delete err = %v, want ErrNotFound", err)
	}
}

func TestGateSave(t *testing.T) {
	g := openTestDB(t)
	ctx := context.Background()
	locks := note.NewRegistry()
	gate := NewGate(g, locks, "alice")

	var hookID string
	gate.OnSave(func(_ context.Context, d *note.Document) { hookID = d.ID })

	d := testNote("n1")
	if err := gate.Save(ctx, d); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(d.Rev, "1-") {
		t.Fatalf("rev not updated in place: %q", d.Rev)
	}
	if hookID != "n1" {
		t.Fatalf("after-save hook saw %q", hookID)
	}

	loaded, err := gate.Load(ctx, "n1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Stub {
		t.Fatalf("loaded document still a stub")
	}

	// Another user's lock blocks the save.
	if _, err := locks.TryLock("n1", "bob"); err != nil {
		t.Fatalf("bob TryLock: %v", err)
	}
	if err := gate.Save(ctx, loaded); !errors.Is(err, note.ErrAlreadyLocked) {
		t.Fatalf("locked save err = %v, want ErrAlreadyLocked", err)
	}

	// Stubs never reach the store.
	if err := gate.Save(ctx, loaded.StubCopy()); !errors.Is(err, note.ErrNotLoaded) {
		t.Fatalf("stub save err = %v, want ErrNotLoaded", err)
	}
}
