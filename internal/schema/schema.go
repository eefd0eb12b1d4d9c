// Package schema declares the descriptors that drive form and table rendering:
// field specs for editable forms and column specs for tabular display.
//
// Kinds are closed enums. Parsing an unknown kind name is an error rather than
// a silent fallback to plain text.
package schema

import (
	"fmt"
	"strings"

	"backoffice/internal/core"
)

// Record is one row of entity data as handed to the table and form engines.
type Record map[string]any

// ID returns the record's canonical identity.
func (r Record) ID() string {
	if id, ok := r["_id"]; ok {
		return core.NormalizeID(id)
	}
	return core.NormalizeID(r["id"])
}

// FieldKind selects the input control and value coercion of a form field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
	FieldMultiline
	FieldDate
	FieldFile
	FieldMultiSelect
)

var fieldKindNames = [...]string{
	FieldText:        "text",
	FieldNumber:      "number",
	FieldMultiline:   "multiline",
	FieldDate:        "date",
	FieldFile:        "file",
	FieldMultiSelect: "multiselect",
}

func (k FieldKind) String() string {
	if k < 0 || int(k) >= len(fieldKindNames) {
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
	return fieldKindNames[k]
}

// ParseFieldKind maps a kind name to its FieldKind. An empty name is text.
func ParseFieldKind(s string) (FieldKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FieldText, nil
	}
	for k, name := range fieldKindNames {
		if name == s {
			return FieldKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: field kind %q", ErrUnknownKind, s)
}

// ColumnKind selects the built-in cell rendering of a table column.
type ColumnKind int

const (
	ColumnPlain ColumnKind = iota
	ColumnCurrency
	ColumnDate
	ColumnImage
)

var columnKindNames = [...]string{
	ColumnPlain:    "plain",
	ColumnCurrency: "currency",
	ColumnDate:     "date",
	ColumnImage:    "image",
}

func (k ColumnKind) String() string {
	if k < 0 || int(k) >= len(columnKindNames) {
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
	return columnKindNames[k]
}

// ParseColumnKind maps a kind name to its ColumnKind. An empty name is plain.
func ParseColumnKind(s string) (ColumnKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ColumnPlain, nil
	}
	for k, name := range columnKindNames {
		if name == s {
			return ColumnKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: column kind %q", ErrUnknownKind, s)
}

// Option is a selectable entry of a multi-select field.
type Option struct {
	ID    string
	Label string
}

// NewOption builds an option, normalizing the identity.
func NewOption(id any, label string) Option {
	return Option{ID: core.NormalizeID(id), Label: label}
}

// OptionLabeler derives the display label of an option.
type OptionLabeler func(Option) string

// DefaultOptionLabel shows the label, or the id when no label is set.
func DefaultOptionLabel(o Option) string {
	if o.Label != "" {
		return o.Label
	}
	return o.ID
}

// Constraints are presentation hints for a field's control.
type Constraints struct {
	Rows     int    `yaml:"rows"`
	Accept   string `yaml:"accept"`
	GridSpan int    `yaml:"grid_span"`
}

// FieldSpec describes one editable attribute.
type FieldSpec struct {
	Name        string
	Label       string
	Kind        FieldKind
	Required    bool
	Options     []Option
	OptionLabel OptionLabeler
	Constraints Constraints
}

// LabelFor renders an option of this field.
func (f FieldSpec) LabelFor(o Option) string {
	if f.OptionLabel != nil {
		return f.OptionLabel(o)
	}
	return DefaultOptionLabel(o)
}

// OptionByID looks an option up by normalized identity.
func (f FieldSpec) OptionByID(id any) (Option, bool) {
	want := core.NormalizeID(id)
	for _, o := range f.Options {
		if core.NormalizeID(o.ID) == want {
			return o, true
		}
	}
	return Option{}, false
}

// Formatter renders a cell from its value and the full record.
type Formatter func(value any, rec Record) string

// ColumnSpec describes one displayed attribute.
type ColumnSpec struct {
	ID        string
	Label     string
	Kind      ColumnKind
	Align     string
	Formatter Formatter
}

// PageState is the pagination position of a table. The engine does not check
// that PageIndex lies inside TotalCount.
type PageState struct {
	PageIndex  int
	PageSize   int
	TotalCount int
}
