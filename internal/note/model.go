// Package note defines the document model shared by every engine in this
// module: the tagged document kinds, the append-only change log, advisory
// per-document locks, and the revision gate that loads and saves documents
// through a persistence gateway.
package note

import (
	"encoding/json"
	"time"
)

// Kind discriminates the three document variants.
type Kind string

const (
	KindNote       Kind = "note"
	KindAttachment Kind = "attachment"
	KindReference  Kind = "reference"
)

// Valid reports whether k is one of the three recognized kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNote, KindAttachment, KindReference:
		return true
	}
	return false
}

// Editor modes recognized for note documents.
const (
	EditorMarkdown = "markdown"
	EditorRichText = "richtext"
	EditorPlain    = "plain"
)

// EditorModes lists the recognized editor modes for note documents.
var EditorModes = map[string]struct{}{
	EditorMarkdown: {},
	EditorRichText: {},
	EditorPlain:    {},
}

// NavRelation positions a document under a parent other than its primary
// tree parent, with an independent sort order.
type NavRelation struct {
	ParentID string `json:"parent"`
	Order    int64  `json:"order"`
}

// NoteFields carries the fields valid only for Kind == KindNote.
type NoteFields struct {
	Content      string
	EditorMode   string
	EditorParams json.RawMessage
}

// AttachmentFields carries the fields valid only for Kind == KindAttachment.
type AttachmentFields struct {
	ContentType string
	Filename    string
	Size        int64
}

// ReferenceFields carries the fields valid only for Kind == KindReference.
type ReferenceFields struct {
	TargetID string
}

// Attachment is one named binary carried by a document. Data is inline
// content; Length is the authoritative byte count when the data itself is
// held by the persistence layer.
type Attachment struct {
	ContentType string `json:"content_type,omitempty"`
	Length      int64  `json:"length,omitempty"`
	Digest      string `json:"digest,omitempty"`
	Data        []byte `json:"data,omitempty"`
	Stubbed     bool   `json:"stub,omitempty"`
}

// ChangeEvent is one entry of a document's append-only change log.
type ChangeEvent struct {
	Timestamp int64           `json:"ts"`
	User      string          `json:"user"`
	Type      ChangeType      `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ChangeType names the semantic mutation a change event records.
type ChangeType string

const (
	ChangeCreated        ChangeType = "created"
	ChangeModified       ChangeType = "modified"
	ChangeRenamed        ChangeType = "renamed"
	ChangeMoved          ChangeType = "moved"
	ChangeDeleted        ChangeType = "deleted"
	ChangeUndeleted      ChangeType = "undeleted"
	ChangeRepaired       ChangeType = "repaired"
	ChangeHistoryCleared ChangeType = "historyCleared"
)

// Metadata holds every derived field. The metadata engine overwrites all of
// them from the authoritative fields; the consistency checker diffs them.
type Metadata struct {
	ContentSize    int64
	AttachmentSize int64
	ChangeLogSize  int64
	BackImageSize  int64
	Preview        string
	Links          []string
	Tags           []string
}

// Document is the central entity. A document with Stub == true carries only
// the list/tree subset: content, attachments, change log and versions are
// undefined and must not be read or written until the document is loaded.
type Document struct {
	ID        string
	Rev       string
	Kind      Kind
	Name      string
	Parent    string // empty = root
	Order     int64
	Timestamp int64 // unix millis at creation
	Deleted   bool
	Stub      bool

	NavRelations []NavRelation
	Conflicts    []string

	// Exactly one of the following is non-nil for a valid document,
	// matching Kind.
	Note       *NoteFields
	Attachment *AttachmentFields
	Reference  *ReferenceFields

	Attachments map[string]Attachment
	ChangeLog   []ChangeEvent
	Versions    map[int64]json.RawMessage
	BackImage   json.RawMessage

	Meta Metadata

	// Unknown wire fields, preserved verbatim across load/save.
	extra map[string]json.RawMessage
}

// Loaded reports whether the document is fully materialized.
func (d *Document) Loaded() bool { return !d.Stub }

// Now returns the current time in unix milliseconds, the timestamp unit used
// throughout the document model.
func Now() int64 { return time.Now().UnixMilli() }

// Clone returns a deep copy of d. The copy shares no mutable state with the
// original, so engines can recompute against it freely.
func (d *Document) Clone() *Document {
	c := *d
	c.NavRelations = append([]NavRelation(nil), d.NavRelations...)
	c.Conflicts = append([]string(nil), d.Conflicts...)
	if d.Note != nil {
		n := *d.Note
		n.EditorParams = append(json.RawMessage(nil), d.Note.EditorParams...)
		c.Note = &n
	}
	if d.Attachment != nil {
		a := *d.Attachment
		c.Attachment = &a
	}
	if d.Reference != nil {
		r := *d.Reference
		c.Reference = &r
	}
	if d.Attachments != nil {
		c.Attachments = make(map[string]Attachment, len(d.Attachments))
		for name, att := range d.Attachments {
			att.Data = append([]byte(nil), att.Data...)
			c.Attachments[name] = att
		}
	}
	c.ChangeLog = make([]ChangeEvent, len(d.ChangeLog))
	for i, ev := range d.ChangeLog {
		ev.Data = append(json.RawMessage(nil), ev.Data...)
		c.ChangeLog[i] = ev
	}
	if d.Versions != nil {
		c.Versions = make(map[int64]json.RawMessage, len(d.Versions))
		for ts, blob := range d.Versions {
			c.Versions[ts] = append(json.RawMessage(nil), blob...)
		}
	}
	c.BackImage = append(json.RawMessage(nil), d.BackImage...)
	c.Meta.Links = append([]string(nil), d.Meta.Links...)
	c.Meta.Tags = append([]string(nil), d.Meta.Tags...)
	if d.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(d.extra))
		for k, v := range d.extra {
			c.extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// StubCopy returns the list/tree projection of d: identity, kind, name,
// placement and derived sizes, with the heavy fields dropped.
func (d *Document) StubCopy() *Document {
	s := &Document{
		ID:           d.ID,
		Rev:          d.Rev,
		Kind:         d.Kind,
		Name:         d.Name,
		Parent:       d.Parent,
		Order:        d.Order,
		Timestamp:    d.Timestamp,
		Deleted:      d.Deleted,
		Stub:         true,
		NavRelations: append([]NavRelation(nil), d.NavRelations...),
		Conflicts:    append([]string(nil), d.Conflicts...),
		Meta:         d.Meta,
	}
	if d.Reference != nil {
		r := *d.Reference
		s.Reference = &r
	}
	s.Meta.Links = append([]string(nil), d.Meta.Links...)
	s.Meta.Tags = append([]string(nil), d.Meta.Tags...)
	return s
}
