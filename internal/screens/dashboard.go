package screens

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"backoffice/internal/aggregate"
	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/log"
	"backoffice/internal/schema"
	"backoffice/internal/table"
)

// Filters narrow the dashboard report. Dates are calendar days; the end day is
// included whole.
type Filters struct {
	StartDate   time.Time
	EndDate     time.Time
	CategoryIDs []string
	ProductIDs  []string
}

// DefaultFilters spans the first day of now's month through now's day.
func DefaultFilters(now time.Time) Filters {
	y, m, d := now.Date()
	return Filters{
		StartDate: time.Date(y, m, 1, 0, 0, 0, 0, now.Location()),
		EndDate:   time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
	}
}

// Query converts the filters to the backend query.
func (f Filters) Query() core.SalesQuery {
	q := core.SalesQuery{
		CategoryIDs: slices.Clone(f.CategoryIDs),
		ProductIDs:  slices.Clone(f.ProductIDs),
	}
	if !f.StartDate.IsZero() {
		y, m, d := f.StartDate.Date()
		q.Start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	if !f.EndDate.IsZero() {
		y, m, d := f.EndDate.Date()
		q.End = time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
	}
	return q
}

// Dashboard shows sales metrics, a daily line chart and period buckets for
// the filtered orders.
type Dashboard struct {
	backend    catalog.Backend
	top        schema.Screen
	logger     *log.Logger
	now        func() time.Time
	filters    Filters
	period     aggregate.Period
	categories []core.Category
	products   []core.Product
	report     core.SalesReport
	entries    []aggregate.Entry
	buckets    []aggregate.Bucket
}

func NewDashboard(b catalog.Backend, schemas *schema.Catalog, logger *log.Logger) (*Dashboard, error) {
	top, err := loadScreen(schemas, ScreenTopProducts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	d := &Dashboard{
		backend: b,
		top:     top,
		logger:  logger.WithComponent(log.ComponentDashboard),
		now:     time.Now,
		period:  aggregate.Daily,
		report:  core.EmptySalesReport(),
	}
	d.filters = DefaultFilters(d.now())
	return d, nil
}

// SetClock replaces the time source and resets the filters to its defaults.
func (d *Dashboard) SetClock(now func() time.Time) {
	d.now = now
	d.filters = DefaultFilters(now())
}

func (d *Dashboard) Filters() Filters { return d.filters }

// SetFilters replaces the filters. Call Load to fetch the matching report.
func (d *Dashboard) SetFilters(f Filters) { d.filters = f }

// ResetFilters restores the default range and clears the selections.
func (d *Dashboard) ResetFilters() { d.filters = DefaultFilters(d.now()) }

// Load fetches categories, products and the report concurrently, then
// regroups the series by the current period.
func (d *Dashboard) Load(ctx context.Context) error {
	var (
		categories []core.Category
		products   []core.Product
		report     core.SalesReport
	)
	q := d.filters.Query()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = d.backend.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = d.backend.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		report, err = d.backend.SalesReport(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		d.logger.ErrorContext(ctx, "Failed to load dashboard", log.FieldError, err)
		return err
	}

	d.categories, d.products, d.report = categories, products, report
	d.entries = aggregate.FromSeries(report.TimeSeries)
	d.buckets = aggregate.Group(d.entries, d.period)
	d.logger.DebugContext(ctx, "Dashboard loaded",
		log.FieldRecordCount, len(d.entries),
		log.FieldPeriod, d.period.String())
	return nil
}

func (d *Dashboard) Period() aggregate.Period { return d.period }

// SetPeriod regroups the loaded series without fetching.
func (d *Dashboard) SetPeriod(p aggregate.Period) []aggregate.Bucket {
	d.period = p
	d.buckets = aggregate.Group(d.entries, p)
	return d.Buckets()
}

func (d *Dashboard) Buckets() []aggregate.Bucket {
	return slices.Clone(d.buckets)
}

// Chart is the raw daily series for the line chart.
func (d *Dashboard) Chart() []aggregate.Point {
	return aggregate.ChartPoints(d.entries)
}

func (d *Dashboard) Metrics() core.SalesMetrics { return d.report.Metrics }

// TopProducts renders the ranking table. It has no row actions.
func (d *Dashboard) TopProducts() table.View {
	records := make([]schema.Record, 0, len(d.report.TopProducts))
	for _, p := range d.report.TopProducts {
		records = append(records, schema.Record{
			"_id":           p.ProductID,
			"name":          p.Name,
			"order_count":   p.OrderCount,
			"total_revenue": p.TotalRevenue,
		})
	}
	return table.Render(d.top.Columns, records, table.Options{EmptyMessage: d.top.EmptyMessage})
}

func (d *Dashboard) CategoryOptions() []schema.Option {
	out := make([]schema.Option, 0, len(d.categories))
	for _, c := range d.categories {
		out = append(out, schema.NewOption(c.ID, c.Name))
	}
	return out
}

func (d *Dashboard) ProductOptions() []schema.Option {
	out := make([]schema.Option, 0, len(d.products))
	for _, p := range d.products {
		out = append(out, schema.NewOption(p.ID, p.Name))
	}
	return out
}
