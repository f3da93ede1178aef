package picker

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

var (
	ErrNameRequired    = errors.New("picker: field name is required")
	ErrServiceRequired = errors.New("picker: draft service is required")
)

// Template types reported to the host form layout.
const (
	TemplateDefault   = "default"
	TemplateNoDisplay = "nodisplay"
)

// Field is a single file picker bound to a draft area slot. A Field is
// request scoped and not safe for concurrent use.
type Field struct {
	name  string
	label string
	id    string

	opts Options
	svc  draft.Service

	value  draft.ItemID
	frozen bool
}

// New constructs a picker field. The draft slot is allocated on first render.
func New(name, label string, svc draft.Service, opts ...Option) (*Field, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if svc == nil {
		return nil, ErrServiceRequired
	}

	options := NewOptions(opts...)
	id := options.ID
	if id == "" {
		id = "id_" + name
	}
	return &Field{
		name:  name,
		label: label,
		id:    id,
		opts:  options,
		svc:   svc,
	}, nil
}

func (f *Field) Name() string  { return f.name }
func (f *Field) Label() string { return f.label }

// ID returns the DOM id of the hidden input.
func (f *Field) ID() string { return f.id }

// Options returns the normalised field options.
func (f *Field) Options() Options { return f.opts }

// Value returns the bound draft item id, or draft.NoItem.
func (f *Field) Value() draft.ItemID { return f.value }

// SetValue binds the field to an existing draft slot, typically one echoed
// back by a previous submission.
func (f *Field) SetValue(item draft.ItemID) {
	if item < draft.NoItem {
		item = draft.NoItem
	}
	f.value = item
}

// Freeze switches the field to its read-only representation.
func (f *Field) Freeze()   { f.frozen = true }
func (f *Field) Unfreeze() { f.frozen = false }
func (f *Field) Frozen() bool {
	return f.frozen
}

// TemplateType tells the host layout how to wrap the field.
func (f *Field) TemplateType() string {
	if f.frozen {
		return TemplateNoDisplay
	}
	return TemplateDefault
}

// HelpButton returns the sanitized help icon markup.
func (f *Field) HelpButton() string { return f.opts.HelpButton }

func newClientID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
