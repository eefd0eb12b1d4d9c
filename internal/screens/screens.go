// Package screens binds the schema-driven form and table engines to the
// catalog backend. Each screen owns the data it fetched, derives its columns
// and fields from the loaded descriptors and refetches after every mutation.
//
// A screen is owned by one caller at a time and is not safe for concurrent use.
package screens

import (
	"errors"
	"fmt"

	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/schema"
	"backoffice/internal/table"
)

// Descriptor names in the embedded screen catalog.
const (
	ScreenCategories  = "categories"
	ScreenProducts    = "products"
	ScreenOrders      = "orders"
	ScreenTopProducts = "top_products"
)

var ErrNoDialog = errors.New("no form open")

// Mode tells what the open form does on submit.
type Mode int

const (
	ModeClosed Mode = iota
	ModeCreate
	ModeEdit
)

// Dialog is a snapshot of the form open on a screen.
type Dialog struct {
	Mode   Mode
	ID     string
	Title  string
	Fields []schema.FieldSpec
	State  form.State
}

// Open reports whether a form is shown.
func (d Dialog) Open() bool {
	return d.Mode != ModeClosed
}

type dialog struct {
	engine *form.Engine
	mode   Mode
	id     string
}

func newDialog() dialog {
	return dialog{engine: form.New()}
}

func (d *dialog) open(mode Mode, id string, fields []schema.FieldSpec, initial form.Values) {
	d.mode = mode
	d.id = core.NormalizeID(id)
	d.engine.Initialize(fields, initial)
}

func (d *dialog) close() {
	d.mode = ModeClosed
	d.id = ""
}

func (d *dialog) snapshot(createTitle, editTitle string) Dialog {
	out := Dialog{Mode: d.mode, ID: d.id}
	switch d.mode {
	case ModeCreate:
		out.Title = createTitle
	case ModeEdit:
		out.Title = editTitle
	case ModeClosed:
		return out
	}
	out.Fields = d.engine.Fields()
	out.State = d.engine.State()
	return out
}

func (d *dialog) submit() (form.Values, error) {
	if d.mode == ModeClosed {
		return nil, ErrNoDialog
	}
	return d.engine.Submit()
}

func loadScreen(schemas *schema.Catalog, name string) (schema.Screen, error) {
	s, err := schemas.Screen(name)
	if err != nil {
		return schema.Screen{}, fmt.Errorf("screens: %w", err)
	}
	return s, nil
}

// withField returns fields with the named spec replaced by fn's result.
func withField(fields []schema.FieldSpec, name string, fn func(schema.FieldSpec) schema.FieldSpec) []schema.FieldSpec {
	out := append([]schema.FieldSpec(nil), fields...)
	for i := range out {
		if out[i].Name == name {
			out[i] = fn(out[i])
		}
	}
	return out
}

func withFormatter(columns []schema.ColumnSpec, id string, f schema.Formatter) []schema.ColumnSpec {
	out := append([]schema.ColumnSpec(nil), columns...)
	for i := range out {
		if out[i].ID == id {
			out[i].Formatter = f
		}
	}
	return out
}

// renderPage slices records to the requested page and lets the table engine
// build the footer from the full count. Pages past the end render empty.
func renderPage(columns []schema.ColumnSpec, records []schema.Record, opts table.Options, index, size int) table.View {
	index, size = max(index, 0), max(size, 1)
	total := len(records)
	start := min(index*size, total)
	end := min(start+size, total)
	opts.Pagination = &schema.PageState{PageIndex: index, PageSize: size, TotalCount: total}
	return table.Render(columns, records[start:end], opts)
}

// namesOf lists the names of the entities whose ids appear in ids, in the
// entities' own order.
func namesOf[T any](items []T, ids any, idOf func(T) string, nameOf func(T) string) []string {
	want := make(map[string]bool)
	for _, id := range core.NormalizeIDs(ids) {
		want[id] = true
	}
	var names []string
	for _, it := range items {
		if want[idOf(it)] {
			names = append(names, nameOf(it))
		}
	}
	return names
}
