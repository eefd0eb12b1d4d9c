package table

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"backoffice/internal/schema"
)

func TestResolveCell(t *testing.T) {
	tests := []struct {
		name string
		rec  schema.Record
		col  schema.ColumnSpec
		want Cell
	}{
		{
			name: "currency",
			rec:  schema.Record{"price": 1299.9},
			col:  schema.ColumnSpec{ID: "price", Kind: schema.ColumnCurrency},
			want: Cell{Text: "R$ 1299.90"},
		},
		{
			name: "currency zero",
			rec:  schema.Record{"price": 0.0},
			col:  schema.ColumnSpec{ID: "price", Kind: schema.ColumnCurrency},
			want: Cell{Text: "R$ 0.00"},
		},
		{
			name: "currency absent",
			rec:  schema.Record{},
			col:  schema.ColumnSpec{ID: "price", Kind: schema.ColumnCurrency},
			want: Cell{},
		},
		{
			name: "currency non numeric",
			rec:  schema.Record{"price": "grátis"},
			col:  schema.ColumnSpec{ID: "price", Kind: schema.ColumnCurrency},
			want: Cell{Text: "grátis"},
		},
		{
			name: "date iso string",
			rec:  schema.Record{"date": "2024-03-05T14:30:00"},
			col:  schema.ColumnSpec{ID: "date", Kind: schema.ColumnDate},
			want: Cell{Text: "05/03/2024"},
		},
		{
			name: "date time value",
			rec:  schema.Record{"date": time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)},
			col:  schema.ColumnSpec{ID: "date", Kind: schema.ColumnDate},
			want: Cell{Text: "31/12/2024"},
		},
		{
			name: "date unparseable",
			rec:  schema.Record{"date": "ontem"},
			col:  schema.ColumnSpec{ID: "date", Kind: schema.ColumnDate},
			want: Cell{Text: "ontem"},
		},
		{
			name: "image empty url",
			rec:  schema.Record{"image_url": ""},
			col:  schema.ColumnSpec{ID: "image_url", Kind: schema.ColumnImage},
			want: Cell{Text: ""},
		},
		{
			name: "plain absent",
			rec:  schema.Record{},
			col:  schema.ColumnSpec{ID: "name"},
			want: Cell{},
		},
		{
			name: "plain number",
			rec:  schema.Record{"count": 3},
			col:  schema.ColumnSpec{ID: "count"},
			want: Cell{Text: "3"},
		},
		{
			name: "plain id list",
			rec:  schema.Record{"category_ids": []string{"1", "2"}},
			col:  schema.ColumnSpec{ID: "category_ids"},
			want: Cell{Text: "1, 2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCell(tt.rec, tt.col)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolveCell() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveCellFormatterWins(t *testing.T) {
	col := schema.ColumnSpec{
		ID:   "price",
		Kind: schema.ColumnCurrency,
		Formatter: func(v any, rec schema.Record) string {
			return rec["name"].(string) + "!"
		},
	}
	got := ResolveCell(schema.Record{"name": "Mouse", "price": 10.0}, col)
	if got.Text != "Mouse!" || got.IsAction() {
		t.Errorf("ResolveCell() = %+v, want formatter output", got)
	}
}

func TestResolveCellImageAction(t *testing.T) {
	rec := schema.Record{"_id": "p1", "image_url": "http://localhost:4566/bucket/products/a.png"}
	got := ResolveCell(rec, schema.ColumnSpec{ID: "image_url", Kind: schema.ColumnImage})
	if got.Action != ActionViewImage {
		t.Fatalf("ResolveCell() action = %q, want %q", got.Action, ActionViewImage)
	}
	if got.Record.ID() != "p1" {
		t.Errorf("action bound to record %q, want p1", got.Record.ID())
	}
}

func TestComputePageWindow(t *testing.T) {
	tests := []struct {
		page      schema.PageState
		want      Window
		wantLabel string
	}{
		{schema.PageState{PageIndex: 0, PageSize: 10, TotalCount: 0}, Window{}, "0-0 de 0"},
		{schema.PageState{PageIndex: 0, PageSize: 10, TotalCount: 7}, Window{1, 7, 7}, "1-7 de 7"},
		{schema.PageState{PageIndex: 1, PageSize: 5, TotalCount: 12}, Window{6, 10, 12}, "6-10 de 12"},
		{schema.PageState{PageIndex: 2, PageSize: 5, TotalCount: 12}, Window{11, 12, 12}, "11-12 de 12"},
		{schema.PageState{PageIndex: 4, PageSize: 5, TotalCount: 12}, Window{21, 12, 12}, "21-12 de 12"},
	}
	for _, tt := range tests {
		t.Run(tt.wantLabel, func(t *testing.T) {
			got := ComputePageWindow(tt.page)
			if got != tt.want {
				t.Errorf("ComputePageWindow(%+v) = %+v, want %+v", tt.page, got, tt.want)
			}
			if got.Label() != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", got.Label(), tt.wantLabel)
			}
		})
	}
}

func TestRenderEmpty(t *testing.T) {
	cols := []schema.ColumnSpec{{ID: "name", Label: "Nome"}}

	v := Render(cols, nil, Options{})
	if !v.Empty || v.EmptyMessage != DefaultEmptyMessage || len(v.Rows) != 0 {
		t.Errorf("Render(empty) = %+v", v)
	}

	v = Render(cols, []schema.Record{}, Options{EmptyMessage: "Nenhuma venda no período."})
	if v.EmptyMessage != "Nenhuma venda no período." {
		t.Errorf("EmptyMessage = %q", v.EmptyMessage)
	}
}

func TestRenderActionsOnlyWithCallbacks(t *testing.T) {
	cols := []schema.ColumnSpec{{ID: "name", Label: "Nome"}}
	recs := []schema.Record{{"_id": "c1", "name": "Casa"}}

	v := Render(cols, recs, Options{})
	if v.HasActions || len(v.Rows[0].Actions) != 0 {
		t.Errorf("actions rendered without callbacks: %+v", v.Rows[0].Actions)
	}
	if diff := cmp.Diff([]string{"Nome"}, v.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	noop := func(schema.Record) error { return nil }
	v = Render(cols, recs, Options{OnDelete: noop})
	if diff := cmp.Diff([]Action{ActionDelete}, v.Rows[0].Actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Nome", ActionsHeader}, v.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderCaptionAndFooter(t *testing.T) {
	cols := []schema.ColumnSpec{{ID: "name", Label: "Nome"}}

	one := Render(cols, []schema.Record{{"_id": "a"}}, Options{})
	if one.Caption != "1 registro" {
		t.Errorf("Caption = %q, want 1 registro", one.Caption)
	}
	if one.Footer != nil {
		t.Error("Footer rendered without pagination")
	}

	recs := []schema.Record{{"_id": "a"}, {"_id": "b"}, {"_id": "c"}}
	v := Render(cols, recs, Options{Pagination: &schema.PageState{PageIndex: 0, PageSize: 10, TotalCount: 3}})
	if v.Caption != "3 registros" {
		t.Errorf("Caption = %q, want 3 registros", v.Caption)
	}
	if v.Footer == nil || v.Footer.Label != "1-3 de 3" {
		t.Fatalf("Footer = %+v", v.Footer)
	}
	if diff := cmp.Diff(RowsPerPageOptions, v.Footer.RowsPerPage); diff != "" {
		t.Errorf("rows per page mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch(t *testing.T) {
	cols := []schema.ColumnSpec{{ID: "name", Label: "Nome"}}
	recs := []schema.Record{{"_id": "c1", "name": "Casa"}, {"_id": "c2", "name": "Jardim"}}

	var deleted string
	v := Render(cols, recs, Options{OnDelete: func(r schema.Record) error {
		deleted = r.ID()
		return nil
	}})

	if err := v.Dispatch(ActionDelete, "c2"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if deleted != "c2" {
		t.Errorf("deleted = %q, want c2", deleted)
	}
	if err := v.Dispatch(ActionEdit, "c1"); !errors.Is(err, ErrNoHandler) {
		t.Errorf("Dispatch(edit) error = %v, want ErrNoHandler", err)
	}
	if err := v.Dispatch(ActionDelete, "zz"); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("Dispatch(unknown) error = %v, want ErrUnknownRow", err)
	}
}
