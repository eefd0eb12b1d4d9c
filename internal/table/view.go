package table

import (
	"errors"
	"fmt"

	"backoffice/internal/schema"
)

// DefaultEmptyMessage is shown when a table has no records and the caller did
// not supply its own message.
const DefaultEmptyMessage = "Nenhum registro encontrado."

// ActionsHeader labels the trailing column of row controls.
const ActionsHeader = "Ações"

// RowsPerPageOptions are the page sizes offered by the pagination footer.
var RowsPerPageOptions = []int{5, 10, 25, 50, 100}

// Window is the 1-based record range shown on the current page.
type Window struct {
	From  int
	To    int
	Total int
}

// ComputePageWindow derives the displayed range from a page state. Pages past
// the end are not rejected; they yield From > To.
func ComputePageWindow(p schema.PageState) Window {
	if p.TotalCount <= 0 {
		return Window{}
	}
	from := p.PageIndex*p.PageSize + 1
	to := min((p.PageIndex+1)*p.PageSize, p.TotalCount)
	return Window{From: from, To: to, Total: p.TotalCount}
}

// Label renders the window as "from-to de total".
func (w Window) Label() string {
	return fmt.Sprintf("%d-%d de %d", w.From, w.To, w.Total)
}

// Handler receives the record a row action was triggered on.
type Handler func(rec schema.Record) error

// Options tune Render. Nil handlers hide the matching control.
type Options struct {
	EmptyMessage string
	OnEdit       Handler
	OnDelete     Handler
	OnViewImage  Handler
	Pagination   *schema.PageState
}

// Row is one rendered record.
type Row struct {
	Key     string
	Record  schema.Record
	Cells   []Cell
	Actions []Action
}

// Footer is the pagination control state.
type Footer struct {
	Page        schema.PageState
	Window      Window
	Label       string
	RowsPerPage []int
}

// View is the renderable table.
type View struct {
	Headers      []string
	Aligns       []string
	Rows         []Row
	Empty        bool
	EmptyMessage string
	HasActions   bool
	Caption      string
	Footer       *Footer

	handlers map[Action]Handler
	byKey    map[string]schema.Record
}

// Render resolves every cell of every record. The order of records is kept.
func Render(columns []schema.ColumnSpec, records []schema.Record, opts Options) View {
	v := View{
		Headers:  make([]string, 0, len(columns)+1),
		Aligns:   make([]string, 0, len(columns)+1),
		Rows:     make([]Row, 0, len(records)),
		handlers: make(map[Action]Handler),
		byKey:    make(map[string]schema.Record, len(records)),
	}

	var rowActions []Action
	if opts.OnEdit != nil {
		rowActions = append(rowActions, ActionEdit)
		v.handlers[ActionEdit] = opts.OnEdit
	}
	if opts.OnDelete != nil {
		rowActions = append(rowActions, ActionDelete)
		v.handlers[ActionDelete] = opts.OnDelete
	}
	if opts.OnViewImage != nil {
		v.handlers[ActionViewImage] = opts.OnViewImage
	}
	v.HasActions = len(rowActions) > 0

	for _, c := range columns {
		v.Headers = append(v.Headers, c.Label)
		v.Aligns = append(v.Aligns, c.Align)
	}
	if v.HasActions {
		v.Headers = append(v.Headers, ActionsHeader)
		v.Aligns = append(v.Aligns, "center")
	}

	if opts.Pagination != nil {
		w := ComputePageWindow(*opts.Pagination)
		v.Footer = &Footer{
			Page:        *opts.Pagination,
			Window:      w,
			Label:       w.Label(),
			RowsPerPage: append([]int(nil), RowsPerPageOptions...),
		}
	}

	if len(records) == 0 {
		v.Empty = true
		v.EmptyMessage = opts.EmptyMessage
		if v.EmptyMessage == "" {
			v.EmptyMessage = DefaultEmptyMessage
		}
		return v
	}

	for i, rec := range records {
		key := rec.ID()
		if key == "" {
			key = fmt.Sprintf("row-%d", i)
		}
		row := Row{
			Key:     key,
			Record:  rec,
			Cells:   make([]Cell, 0, len(columns)),
			Actions: append([]Action(nil), rowActions...),
		}
		for _, c := range columns {
			row.Cells = append(row.Cells, ResolveCell(rec, c))
		}
		v.Rows = append(v.Rows, row)
		v.byKey[key] = rec
	}
	v.Caption = CountCaption(len(records))
	return v
}

// CountCaption renders the record count shown under a table.
func CountCaption(n int) string {
	if n == 1 {
		return "1 registro"
	}
	return fmt.Sprintf("%d registros", n)
}

// ErrNoHandler is returned by Dispatch when the action has no callback.
var ErrNoHandler = errors.New("table: no handler for action")

// ErrUnknownRow is returned by Dispatch when the key matches no rendered row.
var ErrUnknownRow = errors.New("table: unknown row")

// Dispatch runs the callback of action for the row rendered under key.
func (v View) Dispatch(action Action, key string) error {
	h, ok := v.handlers[action]
	if !ok {
		return fmt.Errorf("%w %q", ErrNoHandler, action)
	}
	rec, ok := v.byKey[key]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownRow, key)
	}
	return h(rec)
}
