package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	ports "backoffice/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetName = "Pedidos"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ordersSheet   string
}

// Ensure interface conformance
var (
	_ ports.OrderExporter = (*Client)(nil)
	_ ports.OrderIndex    = (*Client)(nil)
)

type Options struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON is an inline service account key. When empty the key
	// is read from GOOGLE_APPLICATION_CREDENTIALS.
	CredentialsJSON string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := loadCredentials(ctx, opts.CredentialsJSON)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", sheetName(opts.SheetName))
	return NewWithService(svc, spreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, ordersSheet: sheetName(sheet)}
}

func loadCredentials(ctx context.Context, inline string) ([]byte, error) {
	if inline = strings.TrimSpace(inline); inline != "" {
		slog.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func sheetName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return DefaultSheetName
}

// AppendOrder writes the row below the last used row of column A. An empty
// sheet gets the header first.
func (c *Client) AppendOrder(ctx context.Context, row ports.OrderRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.ordersSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.ordersSheet, err)
	}

	values := [][]any{row.Values()}
	nextRow := len(resp.Values) + 1
	startRow := nextRow
	if nextRow == 1 {
		values = [][]any{ports.Header, row.Values()}
		nextRow = 2
	}

	dataRange := fmt.Sprintf("%s!A%d:E%d", c.ordersSheet, startRow, nextRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return fmt.Sprintf("%s!A%d:E%d", c.ordersSheet, nextRow, nextRow), nil
}

// ExportedOrderIDs reads the order id column.
func (c *Client) ExportedOrderIDs(ctx context.Context) (map[string]bool, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:A", c.ordersSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseOrderIDs(resp.Values), nil
}
