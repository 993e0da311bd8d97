package versions

import (
	"encoding/json"
	"fmt"

	"notarium/internal/note"
)

// Prune applies the retention schedule to the document's snapshots,
// archiving each doomed snapshot before removing it. archive may be nil, in
// which case pruned snapshots are simply dropped. Returns the removed
// timestamps.
func Prune(d *note.Document, referenceTime int64, archive *Archive, author string) ([]int64, error) {
	if d.Stub {
		return nil, note.ErrNotLoaded
	}
	if len(d.Versions) == 0 {
		return nil, nil
	}

	// Decide on a scratch copy first so the archive write happens while
	// every doomed snapshot is still intact on the document.
	scratch := make(map[int64]json.RawMessage, len(d.Versions))
	for ts, blob := range d.Versions {
		scratch[ts] = blob
	}
	removed := Reduce(scratch, referenceTime)
	if len(removed) == 0 {
		return nil, nil
	}

	if archive != nil {
		if err := archive.Store(d, removed, author); err != nil {
			return nil, fmt.Errorf("archive before prune: %w", err)
		}
	}
	for _, ts := range removed {
		delete(d.Versions, ts)
	}
	return removed, nil
}

// TakeSnapshot records the document's current content as a historical
// version keyed at ts. Only loaded notes carry snapshots.
func TakeSnapshot(d *note.Document, ts int64) error {
	if d.Stub {
		return note.ErrNotLoaded
	}
	if d.Note == nil {
		return nil
	}
	blob, err := json.Marshal(map[string]any{
		"content": d.Note.Content,
		"editor":  d.Note.EditorMode,
	})
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", d.ID, err)
	}
	if d.Versions == nil {
		d.Versions = make(map[int64]json.RawMessage)
	}
	d.Versions[ts] = blob
	return nil
}
