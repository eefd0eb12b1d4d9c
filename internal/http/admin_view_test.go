package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/schema"
	"backoffice/internal/table"
)

func footer(index, size, total int) table.Footer {
	p := schema.PageState{PageIndex: index, PageSize: size, TotalCount: total}
	w := table.ComputePageWindow(p)
	return table.Footer{Page: p, Window: w, Label: w.Label(), RowsPerPage: table.RowsPerPageOptions}
}

func TestNewPagerModel(t *testing.T) {
	tests := []struct {
		name      string
		footer    table.Footer
		wantLabel string
		wantPrev  string
		wantNext  string
	}{
		{
			name: "first page", footer: footer(0, 10, 23),
			wantLabel: "1-10 de 23",
			wantNext:  "/admin/orders?page=1&size=10",
		},
		{
			name: "last partial page", footer: footer(2, 10, 23),
			wantLabel: "21-23 de 23",
			wantPrev:  "/admin/orders?page=1&size=10",
		},
		{
			name: "empty", footer: footer(0, 5, 0),
			wantLabel: "0-0 de 0",
		},
		{
			name: "past the end", footer: footer(3, 5, 4),
			wantLabel: "16-4 de 4",
			wantPrev:  "/admin/orders?page=0&size=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPagerModel("/admin/orders", tt.footer)
			assert.Equal(t, tt.wantLabel, p.Label)
			assert.Equal(t, tt.wantPrev, p.PrevURL)
			assert.Equal(t, tt.wantNext, p.NextURL)
		})
	}
}

func TestNewPagerModel_SelectsSize(t *testing.T) {
	p := newPagerModel("/admin/categories", footer(0, 25, 3))

	var selected []int
	for _, s := range p.Sizes {
		if s.Selected {
			selected = append(selected, s.Value)
		}
	}
	assert.Equal(t, []int{25}, selected)
	assert.Len(t, p.Sizes, len(table.RowsPerPageOptions))
}

func TestNewTableModelUsesEngineFooter(t *testing.T) {
	cols := []schema.ColumnSpec{{ID: "name", Label: "Nome"}}
	recs := []schema.Record{{"_id": "a", "name": "A"}}
	v := table.Render(cols, recs, table.Options{
		Pagination: &schema.PageState{PageIndex: 1, PageSize: 5, TotalCount: 6},
	})

	m := newTableModel("categories", v)
	require.NotNil(t, m.Pager)
	assert.Equal(t, v.Footer.Label, m.Pager.Label)
	assert.Equal(t, "6-6 de 6", m.Pager.Label)
	assert.Len(t, m.Rows, 1)

	assert.Nil(t, newTableModel("top", table.Render(cols, recs, table.Options{})).Pager)
}

func TestPageSize(t *testing.T) {
	assert.Equal(t, 25, pageSize(25))
	assert.Equal(t, defaultPageSize, pageSize(7))
	assert.Equal(t, defaultPageSize, pageSize(0))
}
