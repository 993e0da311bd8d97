// Package meta implements the metadata engine: recomputation of every
// derived field a document carries from its authoritative content. The
// recomputation is a pure function of the loaded document, cheap enough for
// the consistency checker to run it again just to diff.
package meta

import (
	"encoding/json"
	"fmt"

	"notarium/internal/note"

	"github.com/gowebpki/jcs"
	"github.com/rs/zerolog"
)

// PreviewLength is the number of characters of stripped note content kept as
// the list-view preview.
const PreviewLength = 1000

// Parser extracts cross-links and hashtags from note content. The engine
// treats it as an external collaborator; Default() is the built-in one.
type Parser interface {
	Links(content string) []string
	Tags(content string) []string
}

// Engine recomputes derived fields. It performs no I/O; the only side
// channel is the logger, used when an attachment's size cannot be
// determined.
type Engine struct {
	log    zerolog.Logger
	parser Parser
}

// New creates an engine with the given parser. A nil parser falls back to
// the built-in link/hashtag syntax.
func New(log zerolog.Logger, parser Parser) *Engine {
	if parser == nil {
		parser = Default()
	}
	return &Engine{log: log, parser: parser}
}

// Recompute overwrites every derived field of d from its authoritative
// fields. It fails only on the programmer-error precondition of being handed
// a stub; data problems (an attachment with no determinable size) are logged
// and left for the consistency checker to flag.
func (e *Engine) Recompute(d *note.Document) error {
	if d.Stub {
		return note.ErrNotLoaded
	}

	d.Meta.ContentSize = 0
	if d.Kind != note.KindAttachment && d.Note != nil {
		d.Meta.ContentSize = int64(len(d.Note.Content))
	}

	d.Meta.AttachmentSize = e.attachmentTotal(d)
	d.Meta.ChangeLogSize = e.canonicalSize(d.ID, "changeLog", logValue(d.ChangeLog))

	d.Meta.BackImageSize = 0
	if len(d.BackImage) > 0 {
		d.Meta.BackImageSize = e.canonicalSize(d.ID, "backImage", d.BackImage)
	}

	if d.Kind == note.KindNote && d.Note != nil {
		d.Meta.Preview = Preview(d.Note.Content, PreviewLength)
		d.Meta.Links = e.parser.Links(d.Note.Content)
		d.Meta.Tags = e.parser.Tags(d.Note.Content)
	} else {
		d.Meta.Preview = ""
		d.Meta.Links = []string{}
		d.Meta.Tags = []string{}
	}
	if d.Meta.Links == nil {
		d.Meta.Links = []string{}
	}
	if d.Meta.Tags == nil {
		d.Meta.Tags = []string{}
	}
	return nil
}

// attachmentTotal sums attachment byte lengths, preferring the explicit
// length field and falling back to inline data. An attachment with neither
// is skipped and logged; the checker reports the resulting drift.
func (e *Engine) attachmentTotal(d *note.Document) int64 {
	var total int64
	for name, att := range d.Attachments {
		switch {
		case att.Length > 0:
			total += att.Length
		case len(att.Data) > 0:
			total += int64(len(att.Data))
		case att.Length == 0 && att.Data != nil:
			// Zero-byte inline attachment, nothing to add.
		default:
			e.log.Warn().
				Str("doc", d.ID).
				Str("attachment", name).
				Msg("attachment size indeterminable, excluded from sum")
		}
	}
	return total
}

// canonicalSize measures a field's serialized byte length over its RFC 8785
// canonical form, so every replica computes the same size for the same
// value.
func (e *Engine) canonicalSize(id, field string, raw json.RawMessage) int64 {
	canonical, err := jcs.Transform(raw)
	if err != nil {
		e.log.Warn().Str("doc", id).Str("field", field).Err(err).
			Msg("canonicalization failed, using plain serialized length")
		return int64(len(raw))
	}
	return int64(len(canonical))
}

func logValue(log []note.ChangeEvent) json.RawMessage {
	if log == nil {
		log = []note.ChangeEvent{}
	}
	raw, err := json.Marshal(log)
	if err != nil {
		// ChangeEvent marshals from plain fields; this cannot fail.
		panic(fmt.Sprintf("marshal change log: %v", err))
	}
	return raw
}
