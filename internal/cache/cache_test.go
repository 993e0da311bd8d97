package cache

import (
	"context"
	"testing"

	"notarium/internal/note"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func testCache(t *testing.T) (*StubCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := NewWithClient(client, zerolog.Nop())
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func stub(id string) *note.Document {
	return &note.Document{ID: id, Kind: note.KindNote, Name: id, Timestamp: 50, Stub: true}
}

func TestGetMiss(t *testing.T) {
	c, _ := testCache(t)
	if docs, ok := c.Get(context.Background(), "toc"); ok || docs != nil {
		t.Fatalf("cold cache returned %v, %v", docs, ok)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Set(ctx, "toc", []*note.Document{stub("a"), stub("b")})

	docs, ok := c.Get(ctx, "toc")
	if !ok || len(docs) != 2 {
		t.Fatalf("Get = %v, %v", docs, ok)
	}
	if docs[0].ID != "a" || docs[1].ID != "b" {
		t.Fatalf("ids = %s, %s", docs[0].ID, docs[1].ID)
	}
	if !docs[0].Stub {
		t.Fatalf("cached row lost its stub flag")
	}

	// Other views stay independent.
	if _, ok := c.Get(ctx, "deleted"); ok {
		t.Fatalf("unrelated view was populated")
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Set(ctx, "toc", []*note.Document{stub("a")})
	c.Set(ctx, "deleted", []*note.Document{stub("b")})
	c.Invalidate(ctx)

	for _, view := range []string{"toc", "deleted"} {
		if _, ok := c.Get(ctx, view); ok {
			t.Fatalf("view %s survived invalidation", view)
		}
	}
}

func TestCorruptPayloadTreatedAsMiss(t *testing.T) {
	c, srv := testCache(t)
	ctx := context.Background()

	srv.Set("notarium:view:toc", "not json")
	if _, ok := c.Get(ctx, "toc"); ok {
		t.Fatalf("corrupt payload served as a hit")
	}
	// The corrupt key is dropped, not left to fail every read.
	if srv.Exists("notarium:view:toc") {
		t.Fatalf("corrupt key not dropped")
	}
}
