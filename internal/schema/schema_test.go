package schema

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestParseFieldKind(t *testing.T) {
	tests := []struct {
		in      string
		want    FieldKind
		wantErr bool
	}{
		{"", FieldText, false},
		{"text", FieldText, false},
		{"Number", FieldNumber, false},
		{" multiline ", FieldMultiline, false},
		{"date", FieldDate, false},
		{"file", FieldFile, false},
		{"multiselect", FieldMultiSelect, false},
		{"autocomplete", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownKind) {
					t.Fatalf("ParseFieldKind(%q) error = %v, want ErrUnknownKind", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseFieldKind(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if got := FieldMultiSelect.String(); got != "multiselect" {
		t.Errorf("FieldMultiSelect.String() = %q", got)
	}
	if got := ColumnCurrency.String(); got != "currency" {
		t.Errorf("ColumnCurrency.String() = %q", got)
	}
	if got := ColumnKind(42).String(); got != "ColumnKind(42)" {
		t.Errorf("ColumnKind(42).String() = %q", got)
	}
}

func TestParseColumnKindUnknown(t *testing.T) {
	if _, err := ParseColumnKind("sparkline"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"schemas/a.yaml": {Data: []byte(`
screens:
  - name: products
    title: Produtos
    columns:
      - id: price
        label: Preço
        kind: currency
        align: right
    fields:
      - name: price
        label: Preço
        kind: number
        required: true
        grid_span: 6
      - name: description
        kind: multiline
        rows: 3
`)},
		"schemas/readme.txt": {Data: []byte("ignored")},
	}

	cat, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	screen, err := cat.Screen("products")
	if err != nil {
		t.Fatalf("Screen() error = %v", err)
	}

	wantColumns := []ColumnSpec{{ID: "price", Label: "Preço", Kind: ColumnCurrency, Align: "right"}}
	if diff := cmp.Diff(wantColumns, screen.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	price, ok := screen.Field("price")
	if !ok || price.Kind != FieldNumber || !price.Required || price.Constraints.GridSpan != 6 {
		t.Errorf("price field = %+v", price)
	}
	desc, _ := screen.Field("description")
	if desc.Kind != FieldMultiline || desc.Constraints.Rows != 3 {
		t.Errorf("description field = %+v", desc)
	}
}

func TestLoadFSErrors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want error
	}{
		{
			name: "unknown field kind",
			fsys: fstest.MapFS{"x.yaml": {Data: []byte("screens:\n  - name: a\n    fields:\n      - name: f\n        kind: slider\n")}},
			want: ErrUnknownKind,
		},
		{
			name: "duplicate screen across files",
			fsys: fstest.MapFS{
				"a.yaml": {Data: []byte("screens:\n  - name: dup\n")},
				"b.yml":  {Data: []byte("screens:\n  - name: dup\n")},
			},
			want: ErrDuplicateScreen,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(tt.fsys)
			if !errors.Is(err, tt.want) {
				t.Fatalf("LoadFS() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCatalogScreenIsCopy(t *testing.T) {
	cat, err := Parse([]byte("screens:\n  - name: orders\n    fields:\n      - name: product_ids\n        kind: multiselect\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	s1, _ := cat.Screen("orders")
	s1.Fields[0].Options = []Option{NewOption("p1", "Mouse")}

	s2, _ := cat.Screen("orders")
	if len(s2.Fields[0].Options) != 0 {
		t.Fatalf("catalog mutated through a returned screen: %+v", s2.Fields[0])
	}

	if _, err := cat.Screen("missing"); !errors.Is(err, ErrUnknownScreen) {
		t.Fatalf("expected ErrUnknownScreen, got %v", err)
	}
}

func TestFieldSpecOptions(t *testing.T) {
	f := FieldSpec{
		Name:    "category_ids",
		Kind:    FieldMultiSelect,
		Options: []Option{NewOption(7, "Casa"), NewOption(" x ", "")},
	}
	if o, ok := f.OptionByID("7"); !ok || o.Label != "Casa" {
		t.Fatalf("OptionByID(7) = %+v, %v", o, ok)
	}
	if got := f.LabelFor(Option{ID: "x"}); got != "x" {
		t.Errorf("LabelFor default = %q, want id", got)
	}
	f.OptionLabel = func(o Option) string { return "[" + o.Label + "]" }
	if got := f.LabelFor(Option{ID: "7", Label: "Casa"}); got != "[Casa]" {
		t.Errorf("LabelFor custom = %q", got)
	}
}
