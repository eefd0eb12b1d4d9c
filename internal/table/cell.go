// Package table turns column specs and records into a renderable view: resolved
// cells, per-row actions, an empty-state message and an optional pagination
// footer. It performs no I/O.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/schema"
)

// DateLayout is the pt-BR short date used for date columns.
const DateLayout = "02/01/2006"

var dateInputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Action names a per-row control.
type Action string

const (
	ActionNone      Action = ""
	ActionEdit      Action = "edit"
	ActionDelete    Action = "delete"
	ActionViewImage Action = "view_image"
)

// Cell is a resolved table cell: either text or an action control bound to
// its record.
type Cell struct {
	Text   string
	Action Action
	Record schema.Record
}

// IsAction reports whether the cell renders a control rather than text.
func (c Cell) IsAction() bool {
	return c.Action != ActionNone
}

// ResolveCell renders one cell. A column formatter wins over everything; then
// the column kind decides. Currency, date and image only apply to present
// values; anything else falls back to the raw value, or "" when absent.
func ResolveCell(rec schema.Record, col schema.ColumnSpec) Cell {
	value, ok := rec[col.ID]
	present := ok && value != nil

	if col.Formatter != nil {
		return Cell{Text: col.Formatter(value, rec)}
	}

	switch col.Kind {
	case schema.ColumnCurrency:
		if present {
			if n, ok := numeric(value); ok {
				return Cell{Text: core.FormatCurrency(n)}
			}
		}
	case schema.ColumnDate:
		if present {
			return Cell{Text: FormatDate(value)}
		}
	case schema.ColumnImage:
		if truthy(value) {
			return Cell{Action: ActionViewImage, Record: rec}
		}
	case schema.ColumnPlain:
	}

	if !present {
		return Cell{}
	}
	return Cell{Text: raw(value)}
}

// FormatDate renders a date value as dd/mm/yyyy using the value's own calendar
// date. Values that cannot be read as a date are returned raw.
func FormatDate(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.Format(DateLayout)
	case *time.Time:
		if v != nil {
			return v.Format(DateLayout)
		}
		return ""
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateInputLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(DateLayout)
			}
		}
		return v
	}
	return raw(value)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	}
	return true
}

func raw(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
