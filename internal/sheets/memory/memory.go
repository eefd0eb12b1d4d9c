package memory

import (
	"context"
	"fmt"
	"sync"

	"backoffice/internal/sheets"
)

// Store keeps exported rows in memory. Used when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows []sheets.OrderRow
}

func New() *Store {
	return &Store{}
}

// AppendOrder stores the row and returns a synthetic row reference.
func (s *Store) AppendOrder(_ context.Context, row sheets.OrderRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row.Products = append([]string(nil), row.Products...)
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) ExportedOrderIDs(_ context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]bool, len(s.rows))
	for _, r := range s.rows {
		ids[r.OrderID] = true
	}
	return ids, nil
}

// Rows returns a copy of everything exported so far.
func (s *Store) Rows() []sheets.OrderRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.OrderRow(nil), s.rows...)
}

var (
	_ sheets.OrderExporter = (*Store)(nil)
	_ sheets.OrderIndex    = (*Store)(nil)
)
