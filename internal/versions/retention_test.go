package versions

import (
	"encoding/json"
	"slices"
	"testing"
	"time"
)

func versionSet(timestamps ...int64) map[int64]json.RawMessage {
	m := make(map[int64]json.RawMessage, len(timestamps))
	for _, ts := range timestamps {
		m[ts] = json.RawMessage(`{"content":"x"}`)
	}
	return m
}

func TestReduceSparseHistory(t *testing.T) {
	// Snapshots at 0s, 30s and 700s, judged at 1000s: the newest is kept,
	// the 30s one survives because it sits 670s below it, and the oldest is
	// only 30s below that — too dense for its age.
	vs := versionSet(0, 30_000, 700_000)
	removed := Reduce(vs, 1_000_000)
	if !slices.Equal(removed, []int64{0}) {
		t.Fatalf("removed = %v, want [0]", removed)
	}
	for _, want := range []int64{30_000, 700_000} {
		if _, ok := vs[want]; !ok {
			t.Fatalf("snapshot %d missing after reduce", want)
		}
	}
}

func TestReduceEditGuard(t *testing.T) {
	// Everything inside the last minute is untouchable no matter how dense.
	ref := int64(10_000_000)
	vs := versionSet(ref-1000, ref-2000, ref-3000, ref-59_000)
	if removed := Reduce(vs, ref); len(removed) != 0 {
		t.Fatalf("removed = %v, want none", removed)
	}
}

func TestReduceFutureSnapshots(t *testing.T) {
	// Clock skew puts a snapshot ahead of the reference time. It must be
	// kept, and it anchors the spacing for everything below it.
	ref := int64(1_000_000)
	vs := versionSet(ref+5000, ref-120_000)
	removed := Reduce(vs, ref)
	if len(removed) != 0 {
		t.Fatalf("removed = %v, want none", removed)
	}
}

func TestReduceDenseCluster(t *testing.T) {
	// Ten snapshots five minutes old, one second apart: only the newest of
	// the cluster survives the one-minute spacing demanded at that age.
	ref := 100 * time.Minute.Milliseconds()
	base := ref - 5*time.Minute.Milliseconds()
	var stamps []int64
	for i := int64(0); i < 10; i++ {
		stamps = append(stamps, base-i*1000)
	}
	vs := versionSet(stamps...)
	removed := Reduce(vs, ref)
	if len(removed) != 9 {
		t.Fatalf("removed %d snapshots, want 9: %v", len(removed), removed)
	}
	if _, ok := vs[base]; !ok {
		t.Fatalf("newest cluster member was removed")
	}
}

func TestRequiredGapMonotonic(t *testing.T) {
	cases := []struct {
		age  time.Duration
		want time.Duration
	}{
		{5 * time.Minute, time.Minute},
		{10 * time.Minute, time.Minute},
		{30 * time.Minute, 10 * time.Minute},
		{time.Hour, 10 * time.Minute},
		{5 * time.Hour, time.Hour},
		{24 * time.Hour, time.Hour},
		{48 * time.Hour, 24 * time.Hour},
	}
	for _, tc := range cases {
		if got := requiredGap(tc.age); got != tc.want {
			t.Fatalf("requiredGap(%v) = %v, want %v", tc.age, got, tc.want)
		}
	}
}

func TestReduceEmpty(t *testing.T) {
	if removed := Reduce(map[int64]json.RawMessage{}, 1_000_000); len(removed) != 0 {
		t.Fatalf("removed = %v", removed)
	}
}
