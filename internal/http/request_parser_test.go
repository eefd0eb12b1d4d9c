package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"backoffice/internal/aggregate"
	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/schema"
)

func TestParseSalesQuery(t *testing.T) {
	q, err := ParseSalesQuery(url.Values{
		"start_date":   {"2024-03-01"},
		"end_date":     {"2024-03-31T23:59:59Z"},
		"category_ids": {" c1 ", ""},
		"product_ids":  {"p1", "p2"},
	})
	if err != nil {
		t.Fatalf("ParseSalesQuery() error = %v", err)
	}
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !q.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", q.Start, want)
	}
	if want := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC); !q.End.Equal(want) {
		t.Errorf("End = %v, want %v", q.End, want)
	}
	if diff := cmp.Diff([]string{"c1"}, q.CategoryIDs); diff != "" {
		t.Errorf("CategoryIDs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p1", "p2"}, q.ProductIDs); diff != "" {
		t.Errorf("ProductIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSalesQuery_OpenRange(t *testing.T) {
	q, err := ParseSalesQuery(url.Values{})
	if err != nil {
		t.Fatalf("ParseSalesQuery() error = %v", err)
	}
	if !q.Start.IsZero() || !q.End.IsZero() {
		t.Errorf("expected open range, got %v..%v", q.Start, q.End)
	}
	if len(q.CategoryIDs) != 0 || len(q.ProductIDs) != 0 {
		t.Errorf("expected no id filters, got %v %v", q.CategoryIDs, q.ProductIDs)
	}
}

func TestParseSalesQuery_InvalidDate(t *testing.T) {
	_, err := ParseSalesQuery(url.Values{"start_date": {"yesterday"}})
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("error = %v, want ErrInvalidDate", err)
	}
	if got := statusFor(err); got != http.StatusBadRequest {
		t.Errorf("statusFor() = %d, want %d", got, http.StatusBadRequest)
	}
}

func TestParseDashboardFilters(t *testing.T) {
	now := time.Date(2024, 6, 18, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      url.Values
		wantStart  string
		wantEnd    string
		wantPeriod aggregate.Period
		wantErr    bool
	}{
		{
			name:       "defaults to current month",
			query:      url.Values{},
			wantStart:  "2024-06-01",
			wantEnd:    "2024-06-18",
			wantPeriod: aggregate.Daily,
		},
		{
			name:       "explicit range and period",
			query:      url.Values{"start_date": {"2024-01-10"}, "end_date": {"2024-02-20"}, "period": {"monthly"}},
			wantStart:  "2024-01-10",
			wantEnd:    "2024-02-20",
			wantPeriod: aggregate.Monthly,
		},
		{
			name:       "period is case insensitive",
			query:      url.Values{"period": {"Weekly"}},
			wantStart:  "2024-06-01",
			wantEnd:    "2024-06-18",
			wantPeriod: aggregate.Weekly,
		},
		{
			name:    "bad date",
			query:   url.Values{"start_date": {"10/01/2024"}},
			wantErr: true,
		},
		{
			name:    "unknown period",
			query:   url.Values{"period": {"hourly"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, p, err := ParseDashboardFilters(tt.query, now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if got := statusFor(err); got != http.StatusBadRequest {
					t.Errorf("statusFor() = %d, want %d", got, http.StatusBadRequest)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := f.StartDate.Format(filterDateLayout); got != tt.wantStart {
				t.Errorf("StartDate = %s, want %s", got, tt.wantStart)
			}
			if got := f.EndDate.Format(filterDateLayout); got != tt.wantEnd {
				t.Errorf("EndDate = %s, want %s", got, tt.wantEnd)
			}
			if p != tt.wantPeriod {
				t.Errorf("period = %v, want %v", p, tt.wantPeriod)
			}
		})
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		query    string
		wantPage int
		wantSize int
	}{
		{"", 0, 0},
		{"page=2&size=25", 2, 25},
		{"page=-1&size=abc", 0, 0},
		{"page=x&size=-5", 0, 0},
	}
	for _, tt := range tests {
		q, err := url.ParseQuery(tt.query)
		if err != nil {
			t.Fatal(err)
		}
		page, size := ParsePage(q)
		if page != tt.wantPage || size != tt.wantSize {
			t.Errorf("ParsePage(%q) = %d, %d, want %d, %d", tt.query, page, size, tt.wantPage, tt.wantSize)
		}
	}
}

func TestParseCategoryIDs(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    []string
		wantErr bool
	}{
		{name: "json array", values: []string{`["a", " b ", ""]`}, want: []string{"a", "b"}},
		{name: "repeated ids", values: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "none", values: nil, want: []string{}},
		{name: "broken json", values: []string{`["a"`}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategoryIDs(tt.values)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("error = %v, want errBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func multipartRequest(t *testing.T, fields map[string]string, file string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if file != "" {
		fw, err := mw.CreateFormFile("image", file)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestParseProductMultipart(t *testing.T) {
	req := multipartRequest(t, map[string]string{
		"name":         "Mouse",
		"description":  "Sem fio",
		"price":        "79,90",
		"category_ids": `["c1","c2"]`,
	}, "mouse.png", pngHeader)

	in, img, err := ParseProductMultipart(req)
	if err != nil {
		t.Fatalf("ParseProductMultipart() error = %v", err)
	}
	want := catalog.ProductInput{Name: "Mouse", Description: "Sem fio", Price: 79.9, CategoryIDs: []string{"c1", "c2"}}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("input mismatch (-want +got):\n%s", diff)
	}
	if img.Filename != "mouse.png" {
		t.Errorf("Filename = %q", img.Filename)
	}
	if img.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", img.ContentType)
	}
	if !bytes.Equal(img.Data, pngHeader) {
		t.Errorf("Data not preserved")
	}
}

func TestParseProductMultipart_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		file    string
		wantErr error
	}{
		{
			name:    "missing image",
			fields:  map[string]string{"name": "Mouse", "price": "10"},
			wantErr: catalog.ErrImageRequired,
		},
		{
			name:    "bad price",
			fields:  map[string]string{"name": "Mouse", "price": "dez"},
			file:    "a.png",
			wantErr: core.ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, tt.fields, tt.file, pngHeader)
			_, _, err := ParseProductMultipart(req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got := statusFor(err); got != http.StatusBadRequest {
				t.Errorf("statusFor() = %d, want %d", got, http.StatusBadRequest)
			}
		})
	}
}

func TestParseOrderInput(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"date":"2024-05-02","product_ids":["p1","p1"]}`))

	in, err := ParseOrderInput(w, req)
	if err != nil {
		t.Fatalf("ParseOrderInput() error = %v", err)
	}
	if want := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC); !in.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", in.Date, want)
	}
	if diff := cmp.Diff([]string{"p1", "p1"}, in.ProductIDs); diff != "" {
		t.Errorf("ProductIDs mismatch (-want +got):\n%s", diff)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_ids":["p1"],"extra":1}`))
	if _, err := ParseOrderInput(httptest.NewRecorder(), req); !errors.Is(err, errBadRequest) {
		t.Errorf("unknown field error = %v, want errBadRequest", err)
	}
}

func productFields() []schema.FieldSpec {
	return []schema.FieldSpec{
		{Name: "name", Label: "Nome", Kind: schema.FieldText, Required: true},
		{Name: "price", Label: "Preço", Kind: schema.FieldNumber, Required: true},
		{Name: "category_ids", Label: "Categorias", Kind: schema.FieldMultiSelect, Options: []schema.Option{
			{ID: "c1", Label: "Eletrônicos"},
			{ID: "c2", Label: "Livros"},
		}},
		{Name: "image", Label: "Imagem", Kind: schema.FieldFile},
	}
}

func TestApplyFormValues_URLEncoded(t *testing.T) {
	engine := form.New()
	engine.Initialize(productFields(), nil)

	body := url.Values{
		"name":         {"Teclado"},
		"price":        {"150.5"},
		"category_ids": {"c2", "missing"},
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := ApplyFormValues(engine, req); err != nil {
		t.Fatalf("ApplyFormValues() error = %v", err)
	}
	values := engine.State().Values
	if got := values.Get("name").Text(); got != "Teclado" {
		t.Errorf("name = %q", got)
	}
	if n, ok := values.Get("price").Number(); !ok || n != 150.5 {
		t.Errorf("price = %v (ok=%v), want 150.5", n, ok)
	}
	if diff := cmp.Diff([]string{"c2"}, values.Get("category_ids").OptionIDs()); diff != "" {
		t.Errorf("category ids mismatch (-want +got):\n%s", diff)
	}
	if values.Get("image").File != nil {
		t.Error("image should stay empty without an upload")
	}
}

func TestApplyFormValues_Multipart(t *testing.T) {
	engine := form.New()
	engine.Initialize(productFields(), nil)

	req := multipartRequest(t, map[string]string{"name": "Monitor", "price": "999"}, "monitor.png", pngHeader)
	if err := ApplyFormValues(engine, req); err != nil {
		t.Fatalf("ApplyFormValues() error = %v", err)
	}
	f := engine.State().Values.Get("image").File
	if f == nil {
		t.Fatal("image not set")
	}
	if f.Name != "monitor.png" || f.ContentType != "image/png" {
		t.Errorf("file = %q %q", f.Name, f.ContentType)
	}
}
