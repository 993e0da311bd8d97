// Package repair applies declarative repair receipts to a document. A
// receipt is a closed description of one fix — set a field to a known-good
// value, or delete it — so a repair is auditable and replayable, and an
// unrecognized receipt is an error instead of a silent no-op.
package repair

import (
	"errors"
	"fmt"

	"notarium/internal/note"
)

// ErrInvalidReceipt is returned when a receipt names an unknown field, an
// unknown operation, or carries a value of the wrong type.
var ErrInvalidReceipt = errors.New("invalid repair receipt")

// Op is the receipt operation.
type Op int

const (
	// OpSet overwrites the named field with Value.
	OpSet Op = iota
	// OpDelete clears the named field.
	OpDelete
)

// Field names a repairable document field.
type Field string

const (
	FieldParent         Field = "parent"
	FieldOrder          Field = "order"
	FieldNavRelations   Field = "navRelations"
	FieldEditorMode     Field = "editor"
	FieldRef            Field = "ref"
	FieldBackImage      Field = "backImage"
	FieldContentSize    Field = "contentSize"
	FieldAttachmentSize Field = "attachmentSize"
	FieldChangeLogSize  Field = "changeLogSize"
	FieldBackImageSize  Field = "backImageSize"
	FieldPreview        Field = "preview"
	FieldLinks          Field = "links"
	FieldTags           Field = "tags"
)

// Receipt is one declarative repair instruction. Receipts are idempotent:
// applying the same receipt twice leaves the document in the same state.
type Receipt struct {
	Op    Op
	Field Field
	Value any
}

// Set builds an OpSet receipt.
func Set(field Field, value any) Receipt {
	return Receipt{Op: OpSet, Field: field, Value: value}
}

// Delete builds an OpDelete receipt.
func Delete(field Field) Receipt {
	return Receipt{Op: OpDelete, Field: field}
}

func (r Receipt) String() string {
	if r.Op == OpDelete {
		return fmt.Sprintf("delete %s", r.Field)
	}
	return fmt.Sprintf("set %s = %v", r.Field, r.Value)
}

// Apply runs the receipts against d in order. Structural receipts can change
// what the derived metadata should be, so callers re-run the metadata engine
// before persisting.
func Apply(d *note.Document, receipts []Receipt) error {
	if d.Stub {
		return note.ErrNotLoaded
	}
	for _, r := range receipts {
		if err := apply(d, r); err != nil {
			return err
		}
	}
	return nil
}

func apply(d *note.Document, r Receipt) error {
	switch r.Op {
	case OpSet, OpDelete:
	default:
		return fmt.Errorf("%w: unknown op %d", ErrInvalidReceipt, r.Op)
	}

	switch r.Field {
	case FieldParent:
		return setString(r, &d.Parent)
	case FieldOrder:
		return setInt(r, &d.Order)
	case FieldNavRelations:
		if r.Op == OpDelete {
			d.NavRelations = nil
			return nil
		}
		rels, ok := r.Value.([]note.NavRelation)
		if !ok {
			return typeErr(r)
		}
		d.NavRelations = append([]note.NavRelation(nil), rels...)
		return nil
	case FieldEditorMode:
		if d.Note == nil {
			return fmt.Errorf("%w: %s on %s document", ErrInvalidReceipt, r.Field, d.Kind)
		}
		return setString(r, &d.Note.EditorMode)
	case FieldRef:
		if d.Reference == nil {
			return fmt.Errorf("%w: %s on %s document", ErrInvalidReceipt, r.Field, d.Kind)
		}
		return setString(r, &d.Reference.TargetID)
	case FieldBackImage:
		if r.Op != OpDelete {
			return fmt.Errorf("%w: %s only supports delete", ErrInvalidReceipt, r.Field)
		}
		d.BackImage = nil
		return nil
	case FieldContentSize:
		return setInt(r, &d.Meta.ContentSize)
	case FieldAttachmentSize:
		return setInt(r, &d.Meta.AttachmentSize)
	case FieldChangeLogSize:
		return setInt(r, &d.Meta.ChangeLogSize)
	case FieldBackImageSize:
		return setInt(r, &d.Meta.BackImageSize)
	case FieldPreview:
		return setString(r, &d.Meta.Preview)
	case FieldLinks:
		return setStrings(r, &d.Meta.Links)
	case FieldTags:
		return setStrings(r, &d.Meta.Tags)
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidReceipt, r.Field)
	}
}

func setString(r Receipt, dst *string) error {
	if r.Op == OpDelete {
		*dst = ""
		return nil
	}
	v, ok := r.Value.(string)
	if !ok {
		return typeErr(r)
	}
	*dst = v
	return nil
}

func setInt(r Receipt, dst *int64) error {
	if r.Op == OpDelete {
		*dst = 0
		return nil
	}
	v, ok := r.Value.(int64)
	if !ok {
		return typeErr(r)
	}
	*dst = v
	return nil
}

func setStrings(r Receipt, dst *[]string) error {
	if r.Op == OpDelete {
		*dst = []string{}
		return nil
	}
	v, ok := r.Value.([]string)
	if !ok {
		return typeErr(r)
	}
	*dst = append([]string(nil), v...)
	return nil
}

func typeErr(r Receipt) error {
	return fmt.Errorf("%w: %s value %T", ErrInvalidReceipt, r.Field, r.Value)
}
