package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"time"

	"backoffice/internal/aggregate"
	"backoffice/internal/core"
	"backoffice/internal/log"
	"backoffice/internal/schema"
	"backoffice/internal/screens"
	"backoffice/internal/table"
)

var templateFuncs = template.FuncMap{
	"currency": core.FormatCurrency,
}

type navItem struct {
	Path   string
	Label  string
	Active bool
}

func navFor(active string) []navItem {
	items := []navItem{
		{Path: "/admin/dashboard", Label: "Dashboard"},
		{Path: "/admin/categories", Label: "Categorias"},
		{Path: "/admin/products", Label: "Produtos"},
		{Path: "/admin/orders", Label: "Pedidos"},
	}
	for i := range items {
		items[i].Active = items[i].Path == active
	}
	return items
}

type cellModel struct {
	Text     string
	Align    string
	ImageURL string
}

type rowModel struct {
	Key       string
	Cells     []cellModel
	Edit      bool
	Delete    bool
	EditURL   string
	DeleteURL string
}

type tableModel struct {
	Kind         string
	Headers      []string
	Aligns       []string
	Rows         []rowModel
	Empty        bool
	EmptyMessage string
	Caption      string
	HasActions   bool
	ColSpan      int
	Pager        *pagerModel
}

type sizeModel struct {
	Value    int
	Selected bool
}

type pagerModel struct {
	Label   string
	Path    string
	Sizes   []sizeModel
	PrevURL string
	NextURL string
}

const defaultPageSize = 10

// newTableModel flattens a rendered view for the templates. Image cells link
// to the preview endpoint of their row.
func newTableModel(kind string, v table.View) tableModel {
	m := tableModel{
		Kind:         kind,
		Headers:      v.Headers,
		Aligns:       v.Aligns,
		Empty:        v.Empty,
		EmptyMessage: v.EmptyMessage,
		Caption:      v.Caption,
		HasActions:   v.HasActions,
		ColSpan:      max(len(v.Headers), 1),
	}
	if v.Footer != nil {
		m.Pager = newPagerModel("/admin/"+kind, *v.Footer)
	}
	for _, row := range v.Rows {
		rm := rowModel{
			Key:       row.Key,
			Edit:      slices.Contains(row.Actions, table.ActionEdit),
			Delete:    slices.Contains(row.Actions, table.ActionDelete),
			EditURL:   fmt.Sprintf("/admin/%s/%s/edit", kind, row.Key),
			DeleteURL: fmt.Sprintf("/admin/%s/%s", kind, row.Key),
		}
		for i, c := range row.Cells {
			cm := cellModel{Text: c.Text}
			if i < len(v.Aligns) {
				cm.Align = v.Aligns[i]
			}
			if c.Action == table.ActionViewImage {
				cm.ImageURL = fmt.Sprintf("/admin/%s/%s/image", kind, row.Key)
			}
			rm.Cells = append(rm.Cells, cm)
		}
		m.Rows = append(m.Rows, rm)
	}
	return m
}

// pageSize falls back to the default for sizes the footer does not offer.
func pageSize(size int) int {
	if !slices.Contains(table.RowsPerPageOptions, size) {
		return defaultPageSize
	}
	return size
}

// newPagerModel adds the prev/next links to the engine's footer.
func newPagerModel(path string, f table.Footer) *pagerModel {
	p := &pagerModel{Label: f.Label, Path: path}
	page, size, total := f.Page.PageIndex, f.Page.PageSize, f.Page.TotalCount
	for _, n := range f.RowsPerPage {
		p.Sizes = append(p.Sizes, sizeModel{Value: n, Selected: n == size})
	}
	if page > 0 {
		p.PrevURL = fmt.Sprintf("%s?page=%d&size=%d", path, min(page-1, max(total-1, 0)/size), size)
	}
	if (page+1)*size < total {
		p.NextURL = fmt.Sprintf("%s?page=%d&size=%d", path, page+1, size)
	}
	return p
}

type optionModel struct {
	ID       string
	Label    string
	Selected bool
}

type fieldModel struct {
	Name     string
	Label    string
	Kind     string
	Required bool
	Value    string
	Error    string
	Rows     int
	Accept   string
	Span     int
	Options  []optionModel
}

type formModel struct {
	Kind      string
	Title     string
	Action    string
	Multipart bool
	Fields    []fieldModel
	Error     string
}

// newFormModel renders the open dialog of a screen. Selected options come from
// the form state by normalized id.
func newFormModel(kind string, d screens.Dialog) formModel {
	m := formModel{Kind: kind, Title: d.Title, Action: "/admin/" + kind}
	if d.Mode == screens.ModeEdit {
		m.Action = fmt.Sprintf("/admin/%s/%s", kind, d.ID)
	}
	for _, f := range d.Fields {
		v := d.State.Values.Get(f.Name)
		fm := fieldModel{
			Name:     f.Name,
			Label:    f.Label,
			Kind:     f.Kind.String(),
			Required: f.Required,
			Error:    d.State.Error(f.Name),
			Rows:     f.Constraints.Rows,
			Accept:   f.Constraints.Accept,
			Span:     f.Constraints.GridSpan,
		}
		switch f.Kind {
		case schema.FieldMultiSelect:
			selected := v.OptionIDs()
			for _, o := range f.Options {
				fm.Options = append(fm.Options, optionModel{
					ID:       o.ID,
					Label:    f.LabelFor(o),
					Selected: slices.Contains(selected, core.NormalizeID(o.ID)),
				})
			}
		case schema.FieldFile:
			m.Multipart = true
		default:
			fm.Value = v.Text()
		}
		if fm.Span == 0 {
			fm.Span = 12
		}
		m.Fields = append(m.Fields, fm)
	}
	return m
}

type screenPage struct {
	Title string
	Nav   []navItem
	Kind  string
	Table tableModel
}

type periodModel struct {
	Value  string
	Label  string
	Active bool
}

type metricModel struct {
	Label string
	Value string
}

type barModel struct {
	Label   string
	Orders  int
	Revenue string
	Width   int
}

type dashboardModel struct {
	StartDate  string
	EndDate    string
	Categories []optionModel
	Products   []optionModel
	Periods    []periodModel
	Period     string
	Metrics    []metricModel
	Chart      []barModel
	Buckets    []barModel
	Top        tableModel
	Error      string
}

type dashboardPage struct {
	Title string
	Nav   []navItem
	Body  dashboardModel
}

var periodLabels = []struct {
	Period aggregate.Period
	Label  string
}{
	{aggregate.Daily, "Diário"},
	{aggregate.Weekly, "Semanal"},
	{aggregate.Monthly, "Mensal"},
}

func newDashboardModel(d *screens.Dashboard) dashboardModel {
	f := d.Filters()
	m := dashboardModel{
		StartDate: dateInput(f.StartDate),
		EndDate:   dateInput(f.EndDate),
		Period:    d.Period().String(),
		Top:       newTableModel("top_products", d.TopProducts()),
	}
	m.Categories = selectable(d.CategoryOptions(), f.CategoryIDs)
	m.Products = selectable(d.ProductOptions(), f.ProductIDs)
	for _, p := range periodLabels {
		m.Periods = append(m.Periods, periodModel{
			Value:  p.Period.String(),
			Label:  p.Label,
			Active: p.Period == d.Period(),
		})
	}

	metrics := d.Metrics()
	m.Metrics = []metricModel{
		{Label: "Total de Pedidos", Value: fmt.Sprint(metrics.TotalOrders)},
		{Label: "Receita Total", Value: core.FormatCurrency(metrics.TotalRevenue)},
		{Label: "Ticket Médio", Value: core.FormatCurrency(metrics.AvgOrderValue)},
		{Label: "Menor Pedido", Value: core.FormatCurrency(metrics.MinOrderValue)},
		{Label: "Maior Pedido", Value: core.FormatCurrency(metrics.MaxOrderValue)},
	}

	points := d.Chart()
	chart := make([]barInput, 0, len(points))
	for _, p := range points {
		chart = append(chart, barInput{p.Label, p.Orders, p.Revenue})
	}
	m.Chart = bars(chart)

	buckets := d.Buckets()
	grouped := make([]barInput, 0, len(buckets))
	for _, b := range buckets {
		grouped = append(grouped, barInput{b.Key, b.Orders, b.Revenue})
	}
	m.Buckets = bars(grouped)
	return m
}

type barInput struct {
	label   string
	orders  int
	revenue float64
}

// bars scales revenue to a percentage of the largest value. Non-zero values
// stay visible at 2%.
func bars(items []barInput) []barModel {
	var maxRevenue float64
	for _, it := range items {
		maxRevenue = max(maxRevenue, it.revenue)
	}
	out := make([]barModel, 0, len(items))
	for _, it := range items {
		width := 0
		if maxRevenue > 0 && it.revenue > 0 {
			width = int(it.revenue/maxRevenue*100 + 0.5)
			width = min(max(width, 2), 100)
		}
		out = append(out, barModel{
			Label:   it.label,
			Orders:  it.orders,
			Revenue: core.FormatCurrency(it.revenue),
			Width:   width,
		})
	}
	return out
}

func selectable(options []schema.Option, selected []string) []optionModel {
	out := make([]optionModel, 0, len(options))
	for _, o := range options {
		out = append(out, optionModel{
			ID:       o.ID,
			Label:    schema.DefaultOptionLabel(o),
			Selected: slices.Contains(selected, o.ID),
		})
	}
	return out
}

func dateInput(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(filterDateLayout)
}

// render executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(r *http.Request, name string, data any) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
		return "", err
	}
	return buf.String(), nil
}

// writePage renders name and writes it with status, or a plain 500.
func (s *Server) writePage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	html, err := s.render(r, name, data)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(html).Write(w)
}
