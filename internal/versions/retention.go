// Package versions governs a document's historical snapshots: the tiered
// time-decay schedule deciding which snapshots survive, and a git-backed
// archive that preserves pruned snapshots outside the live document.
package versions

import (
	"encoding/json"
	"sort"
	"time"
)

// Retention tiers. A snapshot's age selects the minimum spacing required
// between it and the next newer kept snapshot; anything inside the last
// minute is untouchable so an in-flight edit can never lose history.
const (
	editGuard = time.Minute

	tier10Min = 10 * time.Minute
	tier1Hour = time.Hour
	tier1Day  = 24 * time.Hour
)

// requiredGap returns the minimum spacing demanded at the given age.
func requiredGap(age time.Duration) time.Duration {
	switch {
	case age <= tier10Min:
		return time.Minute
	case age <= tier1Hour:
		return 10 * time.Minute
	case age <= tier1Day:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// Reduce applies the decay schedule to versions (keyed by creation time in
// unix milliseconds) against referenceTime, deleting snapshots packed more
// densely than their age allows. It returns the removed keys, oldest last.
// Snapshots newer than referenceTime are kept unconditionally and count as
// spacing anchors, which keeps clock skew from triggering deletions. One
// pass over the timestamps sorted descending; deterministic for a given
// input set and reference time.
func Reduce(versions map[int64]json.RawMessage, referenceTime int64) []int64 {
	timestamps := make([]int64, 0, len(versions))
	for ts := range versions {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] > timestamps[j] })

	var removed []int64
	lastKept := referenceTime
	for _, ts := range timestamps {
		if ts > referenceTime {
			lastKept = ts
			continue
		}
		age := time.Duration(referenceTime-ts) * time.Millisecond
		if age <= editGuard {
			lastKept = ts
			continue
		}
		gap := time.Duration(lastKept-ts) * time.Millisecond
		if gap < requiredGap(age) {
			delete(versions, ts)
			removed = append(removed, ts)
			continue
		}
		lastKept = ts
	}
	return removed
}
