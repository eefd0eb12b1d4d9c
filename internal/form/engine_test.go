package form

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"backoffice/internal/schema"
)

func productFields() []schema.FieldSpec {
	return []schema.FieldSpec{
		{Name: "name", Label: "Nome", Kind: schema.FieldText, Required: true},
		{Name: "description", Label: "Descrição", Kind: schema.FieldMultiline},
		{Name: "price", Label: "Preço", Kind: schema.FieldNumber, Required: true},
		{Name: "category_ids", Label: "Categorias", Kind: schema.FieldMultiSelect},
		{Name: "image", Label: "Imagem", Kind: schema.FieldFile, Required: true},
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	initial := Values{"name": StringValue("Mouse"), "price": NumberValue(59.9)}

	e := New()
	first := e.Initialize(productFields(), initial)
	e.SetValue("name", "changed")
	e.Validate()
	second := e.Initialize(productFields(), initial)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Initialize() not idempotent (-first +second):\n%s", diff)
	}
	if len(second.Errors) != 0 {
		t.Errorf("Initialize() errors = %v, want none", second.Errors)
	}
}

func TestInitializeCopiesInitial(t *testing.T) {
	initial := Values{"name": StringValue("Mouse")}
	e := New()
	e.Initialize(productFields(), initial)
	e.SetValue("name", "Teclado")

	if got := initial["name"].Str; got != "Mouse" {
		t.Errorf("caller's initial values mutated: name = %q", got)
	}
}

func TestSetValueNumberCoercion(t *testing.T) {
	tests := []struct {
		raw      string
		wantKind ValueKind
		wantNum  float64
	}{
		{"", KindEmptyNumber, 0},
		{"0", KindNumber, 0},
		{"12.5", KindNumber, 12.5},
		{"abc", KindMalformedNumber, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			e := New()
			e.Initialize(productFields(), nil)
			st := e.SetValue("price", tt.raw)
			got := st.Values["price"]
			if got.Kind != tt.wantKind || got.Num != tt.wantNum {
				t.Errorf("SetValue(price, %q) = %+v, want kind %v num %v", tt.raw, got, tt.wantKind, tt.wantNum)
			}
		})
	}
}

func TestZeroPriceIsPresent(t *testing.T) {
	e := New()
	e.Initialize(productFields(), nil)
	e.SetValue("name", "Brinde")
	e.SetValue("price", "0")
	e.SetFileValue("image", []FileHandle{{Name: "a.png"}})

	st, ok := e.Validate()
	if !ok {
		t.Fatalf("Validate() = false, errors %v", st.Errors)
	}
}

func TestClearedNumberIsAbsent(t *testing.T) {
	e := New()
	e.Initialize(productFields(), Values{"price": NumberValue(10)})
	e.SetValue("price", "")

	st, ok := e.Validate()
	if ok {
		t.Fatal("Validate() = true with cleared price")
	}
	if st.Error("price") != RequiredMessage {
		t.Errorf("price error = %q, want %q", st.Error("price"), RequiredMessage)
	}
}

func TestValidateReplacesErrors(t *testing.T) {
	e := New()
	e.Initialize(productFields(), nil)

	st, ok := e.Validate()
	if ok {
		t.Fatal("Validate() = true on empty form")
	}
	want := map[string]string{
		"name":  RequiredMessage,
		"price": RequiredMessage,
		"image": RequiredMessage,
	}
	if diff := cmp.Diff(want, st.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	st = e.SetValue("name", "Mouse")
	if _, has := st.Errors["name"]; has {
		t.Error("SetValue() did not clear the field's error")
	}
	if st.Error("price") == "" {
		t.Error("SetValue() cleared an unrelated field's error")
	}

	e.SetValue("price", "1")
	e.SetFileValue("image", []FileHandle{{Name: "a.png"}})
	st, ok = e.Validate()
	if !ok || len(st.Errors) != 0 {
		t.Errorf("Validate() = %v, errors %v; want clean", ok, st.Errors)
	}
}

func TestSubmitReturnsExactValues(t *testing.T) {
	e := New()
	e.Initialize(productFields(), nil)
	e.SetValue("name", "Mouse")
	e.SetValue("price", "59.9")
	e.SetMultiSelectValue("category_ids", []schema.Option{{ID: "c1", Label: "Periféricos"}})
	e.SetFileValue("image", []FileHandle{{Name: "mouse.png", ContentType: "image/png"}})

	got, err := e.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	want := Values{
		"name":         StringValue("Mouse"),
		"price":        NumberValue(59.9),
		"category_ids": OptionsValue([]schema.Option{{ID: "c1", Label: "Periféricos"}}),
		"image":        FileValue(FileHandle{Name: "mouse.png", ContentType: "image/png"}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Submit() values mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitValidationFailed(t *testing.T) {
	e := New()
	e.Initialize(productFields(), nil)
	e.SetValue("name", "Mouse")

	_, err := e.Submit()
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Submit() error = %v, want ErrValidationFailed", err)
	}
	var vf *ValidationFailed
	if !errors.As(err, &vf) {
		t.Fatalf("Submit() error is %T, want *ValidationFailed", err)
	}
	if _, ok := vf.Errors["price"]; !ok {
		t.Errorf("ValidationFailed.Errors = %v, missing price", vf.Errors)
	}
	if got := e.State().Error("image"); got != RequiredMessage {
		t.Errorf("state error for image = %q, want it kept for rendering", got)
	}
}

func TestSetFileValueKeepsFirst(t *testing.T) {
	e := New()
	e.Initialize(productFields(), nil)

	st := e.SetFileValue("image", []FileHandle{{Name: "a.png"}, {Name: "b.png"}})
	if got := st.Values["image"].File.Name; got != "a.png" {
		t.Errorf("file = %q, want a.png", got)
	}

	st = e.SetFileValue("image", nil)
	if got := st.Values["image"].File.Name; got != "a.png" {
		t.Errorf("empty selection replaced file: %q", got)
	}
}

func TestEmptyMultiSelectIsAbsent(t *testing.T) {
	fields := []schema.FieldSpec{{Name: "product_ids", Kind: schema.FieldMultiSelect, Required: true}}
	e := New()
	e.Initialize(fields, nil)
	e.SetMultiSelectValue("product_ids", []schema.Option{})

	if _, ok := e.Validate(); ok {
		t.Error("Validate() = true with an empty required selection")
	}
}

func TestSingleOptionPresence(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"selected", OptionValue(schema.NewOption("c1", "Livros")), true},
		{"blank id", OptionValue(schema.Option{Label: "Nenhuma"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Present(); got != tt.want {
				t.Errorf("Present() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := OptionValue(schema.NewOption("c1", "Livros")).Text(); got != "c1" {
		t.Errorf("Text() = %q, want c1", got)
	}
}

func TestFromRecord(t *testing.T) {
	fields := productFields()
	fields[3].Options = []schema.Option{{ID: "1", Label: "Casa"}, {ID: "2", Label: "Escritório"}}

	rec := schema.Record{
		"_id":          "p1",
		"name":         "Cadeira",
		"price":        350.0,
		"category_ids": []any{2, "9"},
		"image_url":    "http://x/y.png",
	}
	got := FromRecord(fields, rec)
	want := Values{
		"name":         StringValue("Cadeira"),
		"price":        NumberValue(350),
		"category_ids": OptionsValue([]schema.Option{{ID: "2", Label: "Escritório"}, {ID: "9"}}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromRecord() mismatch (-want +got):\n%s", diff)
	}
}
