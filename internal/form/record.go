package form

import (
	"fmt"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/schema"
)

// FromRecord builds the initial values of an edit form from an existing
// record. Multi-select ids are mapped back to the field's options by
// normalized identity; ids without a matching option keep the bare id.
// File fields start empty.
func FromRecord(fields []schema.FieldSpec, rec schema.Record) Values {
	vals := Values{}
	for _, f := range fields {
		raw, ok := rec[f.Name]
		if !ok || raw == nil {
			continue
		}
		switch f.Kind {
		case schema.FieldNumber:
			if n, ok := toFloat(raw); ok {
				vals[f.Name] = NumberValue(n)
			}
		case schema.FieldMultiSelect:
			ids := core.NormalizeIDs(raw)
			sel := make([]schema.Option, 0, len(ids))
			for _, id := range ids {
				if o, ok := f.OptionByID(id); ok {
					sel = append(sel, o)
					continue
				}
				sel = append(sel, schema.Option{ID: id})
			}
			vals[f.Name] = OptionsValue(sel)
		case schema.FieldDate:
			vals[f.Name] = StringValue(dateText(raw))
		case schema.FieldFile:
		case schema.FieldText, schema.FieldMultiline:
			vals[f.Name] = StringValue(fmt.Sprint(raw))
		}
	}
	return vals
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func dateText(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return fmt.Sprint(v)
}
