package note

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Wire field names. The representation is fixed by the replicated store and
// shared with every peer, so the codec never renames or drops fields it does
// not understand: unknown keys round-trip untouched.
const (
	wireID             = "_id"
	wireRev            = "_rev"
	wireConflicts      = "_conflicts"
	wireAttachments    = "_attachments"
	wireType           = "type"
	wireName           = "name"
	wireParent         = "parent"
	wireOrder          = "order"
	wireNavRelations   = "navRelations"
	wireRef            = "ref"
	wireTimestamp      = "timestamp"
	wireContent        = "content"
	wireEditor         = "editor"
	wireEditorParams   = "editorParams"
	wireContentType    = "contentType"
	wireFilename       = "filename"
	wireSize           = "size"
	wireChangeLog      = "changeLog"
	wireVersions       = "versions"
	wireBackImage      = "backImage"
	wireContentSize    = "contentSize"
	wireAttachmentSize = "attachmentSize"
	wireChangeLogSize  = "changeLogSize"
	wireBackImageSize  = "backImageSize"
	wirePreview        = "preview"
	wireLinks          = "links"
	wireTags           = "tags"
	wireDeleted        = "deleted"
	wireStub           = "stub"

	versionPrefix = "version_"
)

// DecodeWire parses the wire representation of a document. Fields this core
// does not know about are preserved and written back verbatim by EncodeWire.
func DecodeWire(raw []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	d := &Document{}
	take := func(key string, dst any) error {
		v, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("decode field %q: %w", key, err)
		}
		return nil
	}

	var kind string
	steps := []struct {
		key string
		dst any
	}{
		{wireID, &d.ID},
		{wireRev, &d.Rev},
		{wireType, &kind},
		{wireName, &d.Name},
		{wireParent, &d.Parent},
		{wireOrder, &d.Order},
		{wireNavRelations, &d.NavRelations},
		{wireTimestamp, &d.Timestamp},
		{wireDeleted, &d.Deleted},
		{wireStub, &d.Stub},
		{wireConflicts, &d.Conflicts},
		{wireAttachments, &d.Attachments},
		{wireChangeLog, &d.ChangeLog},
		{wireBackImage, &d.BackImage},
		{wireContentSize, &d.Meta.ContentSize},
		{wireAttachmentSize, &d.Meta.AttachmentSize},
		{wireChangeLogSize, &d.Meta.ChangeLogSize},
		{wireBackImageSize, &d.Meta.BackImageSize},
		{wirePreview, &d.Meta.Preview},
		{wireLinks, &d.Meta.Links},
		{wireTags, &d.Meta.Tags},
	}
	for _, s := range steps {
		if err := take(s.key, s.dst); err != nil {
			return nil, err
		}
	}
	d.Kind = Kind(kind)

	switch d.Kind {
	case KindNote:
		n := &NoteFields{}
		if err := take(wireContent, &n.Content); err != nil {
			return nil, err
		}
		if err := take(wireEditor, &n.EditorMode); err != nil {
			return nil, err
		}
		if v, ok := fields[wireEditorParams]; ok {
			delete(fields, wireEditorParams)
			n.EditorParams = append(json.RawMessage(nil), v...)
		}
		d.Note = n
	case KindAttachment:
		a := &AttachmentFields{}
		if err := take(wireContentType, &a.ContentType); err != nil {
			return nil, err
		}
		if err := take(wireFilename, &a.Filename); err != nil {
			return nil, err
		}
		if err := take(wireSize, &a.Size); err != nil {
			return nil, err
		}
		d.Attachment = a
	case KindReference:
		r := &ReferenceFields{}
		if err := take(wireRef, &r.TargetID); err != nil {
			return nil, err
		}
		d.Reference = r
	}

	if v, ok := fields[wireVersions]; ok {
		delete(fields, wireVersions)
		var named map[string]json.RawMessage
		if err := json.Unmarshal(v, &named); err != nil {
			return nil, fmt.Errorf("decode field %q: %w", wireVersions, err)
		}
		d.Versions = make(map[int64]json.RawMessage, len(named))
		for name, blob := range named {
			ts, err := ParseVersionName(name)
			if err != nil {
				return nil, err
			}
			d.Versions[ts] = blob
		}
	}

	if len(fields) > 0 {
		d.extra = fields
	}
	return d, nil
}

// EncodeWire renders d back into its wire representation, including any
// unknown fields captured at decode time. Parent is always written, even
// when empty: peers treat a missing parent field as corruption rather than
// as root placement.
func EncodeWire(d *Document) ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(d.extra)+24)
	for k, v := range d.extra {
		fields[k] = v
	}

	set := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", key, err)
		}
		fields[key] = raw
		return nil
	}

	core := []struct {
		key  string
		v    any
		omit bool
	}{
		{wireID, d.ID, d.ID == ""},
		{wireRev, d.Rev, d.Rev == ""},
		{wireType, string(d.Kind), false},
		{wireName, d.Name, false},
		{wireParent, d.Parent, false},
		{wireOrder, d.Order, false},
		{wireTimestamp, d.Timestamp, false},
		{wireNavRelations, d.NavRelations, len(d.NavRelations) == 0},
		{wireConflicts, d.Conflicts, len(d.Conflicts) == 0},
		{wireDeleted, d.Deleted, !d.Deleted},
		{wireStub, d.Stub, !d.Stub},
		{wireContentSize, d.Meta.ContentSize, false},
		{wireAttachmentSize, d.Meta.AttachmentSize, false},
		{wireChangeLogSize, d.Meta.ChangeLogSize, false},
		{wireBackImageSize, d.Meta.BackImageSize, false},
		{wirePreview, d.Meta.Preview, false},
		{wireLinks, emptyIfNil(d.Meta.Links), false},
		{wireTags, emptyIfNil(d.Meta.Tags), false},
	}
	for _, c := range core {
		if c.omit {
			continue
		}
		if err := set(c.key, c.v); err != nil {
			return nil, err
		}
	}

	switch {
	case d.Kind == KindNote && d.Note != nil:
		if !d.Stub {
			if err := set(wireContent, d.Note.Content); err != nil {
				return nil, err
			}
		}
		if err := set(wireEditor, d.Note.EditorMode); err != nil {
			return nil, err
		}
		if len(d.Note.EditorParams) > 0 {
			fields[wireEditorParams] = d.Note.EditorParams
		}
	case d.Kind == KindAttachment && d.Attachment != nil:
		if err := set(wireContentType, d.Attachment.ContentType); err != nil {
			return nil, err
		}
		if err := set(wireFilename, d.Attachment.Filename); err != nil {
			return nil, err
		}
		if err := set(wireSize, d.Attachment.Size); err != nil {
			return nil, err
		}
	case d.Kind == KindReference && d.Reference != nil:
		if err := set(wireRef, d.Reference.TargetID); err != nil {
			return nil, err
		}
	}

	if !d.Stub {
		if len(d.Attachments) > 0 {
			if err := set(wireAttachments, d.Attachments); err != nil {
				return nil, err
			}
		}
		if err := set(wireChangeLog, emptyLogIfNil(d.ChangeLog)); err != nil {
			return nil, err
		}
		if len(d.BackImage) > 0 {
			fields[wireBackImage] = d.BackImage
		}
		if len(d.Versions) > 0 {
			named := make(map[string]json.RawMessage, len(d.Versions))
			for ts, blob := range d.Versions {
				named[VersionName(ts)] = blob
			}
			if err := set(wireVersions, named); err != nil {
				return nil, err
			}
		}
	}

	return json.Marshal(orderedFields(fields))
}

// VersionName returns the wire key for a historical snapshot taken at ts.
func VersionName(ts int64) string {
	return versionPrefix + strconv.FormatInt(ts, 10)
}

// ParseVersionName extracts the timestamp from a version_<timestamp> key.
func ParseVersionName(name string) (int64, error) {
	rest, ok := strings.CutPrefix(name, versionPrefix)
	if !ok {
		return 0, fmt.Errorf("malformed version name %q", name)
	}
	ts, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed version name %q: %w", name, err)
	}
	return ts, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyLogIfNil(log []ChangeEvent) []ChangeEvent {
	if log == nil {
		return []ChangeEvent{}
	}
	return log
}

// orderedFields marshals with deterministic key order so the same document
// always serializes to the same bytes.
type orderedFields map[string]json.RawMessage

func (f orderedFields) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(f[k])
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
