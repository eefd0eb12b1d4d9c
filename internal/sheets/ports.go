// Package sheets exports processed orders to a spreadsheet.
package sheets

import (
	"context"
	"errors"
	"strings"
	"time"

	"backoffice/internal/table"
)

var ErrMissingOrderID = errors.New("missing order id")

// Header is the first row of an order sheet.
var Header = []any{"Pedido", "Data", "Produtos", "Total", "Processado em"}

// OrderRow is one processed order as it appears in the sheet.
type OrderRow struct {
	OrderID     string
	Date        time.Time
	Products    []string
	Total       float64
	ProcessedAt time.Time
}

func (r OrderRow) Validate() error {
	if strings.TrimSpace(r.OrderID) == "" {
		return ErrMissingOrderID
	}
	return nil
}

// Values lays the row out in Header order.
func (r OrderRow) Values() []any {
	return []any{
		r.OrderID,
		r.Date.Format(table.DateLayout),
		strings.Join(r.Products, ", "),
		r.Total,
		r.ProcessedAt.UTC().Format(time.RFC3339),
	}
}

// Ports for outbound adapters.
type (
	OrderExporter interface {
		AppendOrder(ctx context.Context, row OrderRow) (rowRef string, err error)
	}

	// OrderIndex lists the order ids already exported, so redelivered
	// messages do not produce duplicate rows.
	OrderIndex interface {
		ExportedOrderIDs(ctx context.Context) (map[string]bool, error)
	}
)
