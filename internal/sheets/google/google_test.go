package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ports "backoffice/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the two Values endpoints the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	column  [][]any
	updates []gsheet.ValueRange
	paths   []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.column})
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var vr gsheet.ValueRange
		_ = json.Unmarshal(body, &vr)
		f.updates = append(f.updates, vr)
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(vr.Values)})
	default:
		http.Error(w, "unexpected", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "")
}

func testRow() ports.OrderRow {
	return ports.OrderRow{
		OrderID:     "o1",
		Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Products:    []string{"Mouse", "Teclado"},
		Total:       209.8,
		ProcessedAt: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestAppendOrder_EmptySheetWritesHeader(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	ref, err := c.AppendOrder(context.Background(), testRow())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Pedidos!A2:E2" {
		t.Fatalf("ref = %q, want Pedidos!A2:E2", ref)
	}
	if len(fake.updates) != 1 || len(fake.updates[0].Values) != 2 {
		t.Fatalf("expected header and row in one update, got %+v", fake.updates)
	}
	if got := fake.updates[0].Values[0][0]; got != "Pedido" {
		t.Fatalf("header cell = %v", got)
	}
	if got := fake.updates[0].Values[1][2]; got != "Mouse, Teclado" {
		t.Fatalf("products cell = %v", got)
	}
}

func TestAppendOrder_AfterExistingRows(t *testing.T) {
	fake := &fakeSheets{column: [][]any{{"Pedido"}, {"o0"}, {"o9"}}}
	c := newTestClient(t, fake)

	ref, err := c.AppendOrder(context.Background(), testRow())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Pedidos!A4:E4" {
		t.Fatalf("ref = %q, want Pedidos!A4:E4", ref)
	}
	if len(fake.updates[0].Values) != 1 {
		t.Fatalf("expected a single row, got %d", len(fake.updates[0].Values))
	}
}

func TestAppendOrder_Validation(t *testing.T) {
	c := &Client{ordersSheet: DefaultSheetName}
	if _, err := c.AppendOrder(context.Background(), ports.OrderRow{}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := c.AppendOrder(context.Background(), testRow()); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected not initialized error, got %v", err)
	}
}

func TestExportedOrderIDs(t *testing.T) {
	fake := &fakeSheets{column: [][]any{{"Pedido"}, {"o1"}, {"o2"}}}
	c := newTestClient(t, fake)

	ids, err := c.ExportedOrderIDs(context.Background())
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 || !ids["o1"] || !ids["o2"] {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestSheetName(t *testing.T) {
	if got := sheetName("  "); got != DefaultSheetName {
		t.Errorf("sheetName(blank) = %q", got)
	}
	if got := sheetName("Vendas"); got != "Vendas" {
		t.Errorf("sheetName(Vendas) = %q", got)
	}
}
