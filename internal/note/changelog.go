package note

import "encoding/json"

// AppendChange pushes one event onto the document's change log. The log is
// append-only: events are never reordered or edited in place.
func AppendChange(d *Document, user string, change ChangeType, data json.RawMessage) error {
	if d.Stub {
		return ErrNotLoaded
	}
	d.ChangeLog = append(d.ChangeLog, ChangeEvent{
		Timestamp: Now(),
		User:      user,
		Type:      change,
		Data:      data,
	})
	return nil
}

// ClearChangeLog is the one sanctioned wholesale truncation of the log: the
// history is dropped and replaced by a single event recording that it was
// cleared, so the truncation itself stays visible.
func ClearChangeLog(d *Document, user string) error {
	if d.Stub {
		return ErrNotLoaded
	}
	d.ChangeLog = nil
	return AppendChange(d, user, ChangeHistoryCleared, nil)
}

// SoftDelete marks the document deleted. It stays addressable for trash and
// undelete until a hard delete removes it from the store.
func SoftDelete(d *Document, user string) error {
	if d.Stub {
		return ErrNotLoaded
	}
	if d.Deleted {
		return nil
	}
	d.Deleted = true
	return AppendChange(d, user, ChangeDeleted, nil)
}

// Undelete clears the soft-delete flag.
func Undelete(d *Document, user string) error {
	if d.Stub {
		return ErrNotLoaded
	}
	if !d.Deleted {
		return nil
	}
	d.Deleted = false
	return AppendChange(d, user, ChangeUndeleted, nil)
}
