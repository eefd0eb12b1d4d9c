package core

import (
	"sort"
	"time"
)

// TopProductsLimit caps the ranking returned with a sales report.
const TopProductsLimit = 5

// SalesQuery filters the orders a sales report is computed over. Zero times
// leave that side of the range open.
type SalesQuery struct {
	Start       time.Time
	End         time.Time
	CategoryIDs []string
	ProductIDs  []string
}

type SalesMetrics struct {
	TotalOrders   int     `json:"total_orders"`
	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`
	MinOrderValue float64 `json:"min_order_value"`
	MaxOrderValue float64 `json:"max_order_value"`
}

// SalesPoint is one day of the report's time series.
type SalesPoint struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
	Orders  int       `json:"orders"`
}

type TopProduct struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	OrderCount   int     `json:"order_count"`
	TotalRevenue float64 `json:"total_revenue"`
}

type SalesReport struct {
	Metrics     SalesMetrics `json:"metrics"`
	TimeSeries  []SalesPoint `json:"time_series"`
	TopProducts []TopProduct `json:"top_products"`
}

// EmptySalesReport is the report for a query that matches nothing.
func EmptySalesReport() SalesReport {
	return SalesReport{TimeSeries: []SalesPoint{}, TopProducts: []TopProduct{}}
}

// HasProductFilter reports whether the query narrows the product set.
func (q SalesQuery) HasProductFilter() bool {
	return len(q.CategoryIDs) > 0 || len(q.ProductIDs) > 0
}

// InRange reports whether t falls inside the query's date range (inclusive).
func (q SalesQuery) InRange(t time.Time) bool {
	if !q.Start.IsZero() && t.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && t.After(q.End) {
		return false
	}
	return true
}

// MatchProducts returns the ids of products matching both the product-id and
// the category filters of the query. Every product matches an empty filter.
func (q SalesQuery) MatchProducts(products []Product) map[string]bool {
	wantIDs := toSet(q.ProductIDs)
	wantCats := toSet(q.CategoryIDs)
	out := make(map[string]bool)
	for _, p := range products {
		id := NormalizeID(p.ID)
		if len(wantIDs) > 0 && !wantIDs[id] {
			continue
		}
		if len(wantCats) > 0 {
			hit := false
			for _, c := range p.CategoryIDs {
				if wantCats[NormalizeID(c)] {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
		}
		out[id] = true
	}
	return out
}

// BuildSalesReport rolls orders up into metrics, a per-day series sorted by
// date and the most ordered products. Orders outside the query's range are
// ignored; with a product filter, only orders containing a matching product
// count, and the ranking only lists matching products.
func BuildSalesReport(orders []Order, products []Product, q SalesQuery) SalesReport {
	var matched map[string]bool
	if q.HasProductFilter() {
		matched = q.MatchProducts(products)
		if len(matched) == 0 {
			return EmptySalesReport()
		}
	}

	names := make(map[string]string, len(products))
	for _, p := range products {
		names[NormalizeID(p.ID)] = p.Name
	}

	report := EmptySalesReport()
	days := make(map[time.Time]*SalesPoint)
	ranking := make(map[string]*TopProduct)

	for _, o := range orders {
		if !q.InRange(o.Date) {
			continue
		}
		if matched != nil && !containsAny(o.ProductIDs, matched) {
			continue
		}

		m := &report.Metrics
		if m.TotalOrders == 0 || o.Total < m.MinOrderValue {
			m.MinOrderValue = o.Total
		}
		if m.TotalOrders == 0 || o.Total > m.MaxOrderValue {
			m.MaxOrderValue = o.Total
		}
		m.TotalOrders++
		m.TotalRevenue += o.Total

		y, mo, d := o.Date.UTC().Date()
		day := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
		pt, ok := days[day]
		if !ok {
			pt = &SalesPoint{Date: day}
			days[day] = pt
		}
		pt.Revenue += o.Total
		pt.Orders++

		for _, raw := range o.ProductIDs {
			id := NormalizeID(raw)
			if matched != nil && !matched[id] {
				continue
			}
			name, known := names[id]
			if !known {
				continue
			}
			tp, ok := ranking[id]
			if !ok {
				tp = &TopProduct{ProductID: id, Name: name}
				ranking[id] = tp
			}
			tp.OrderCount++
			tp.TotalRevenue += o.Total
		}
	}

	if report.Metrics.TotalOrders > 0 {
		report.Metrics.AvgOrderValue = report.Metrics.TotalRevenue / float64(report.Metrics.TotalOrders)
	}

	for _, pt := range days {
		report.TimeSeries = append(report.TimeSeries, *pt)
	}
	sort.Slice(report.TimeSeries, func(i, j int) bool {
		return report.TimeSeries[i].Date.Before(report.TimeSeries[j].Date)
	})

	for _, tp := range ranking {
		report.TopProducts = append(report.TopProducts, *tp)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		a, b := report.TopProducts[i], report.TopProducts[j]
		if a.OrderCount != b.OrderCount {
			return a.OrderCount > b.OrderCount
		}
		return a.ProductID < b.ProductID
	})
	if len(report.TopProducts) > TopProductsLimit {
		report.TopProducts = report.TopProducts[:TopProductsLimit]
	}

	return report
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if n := NormalizeID(id); n != "" {
			set[n] = true
		}
	}
	return set
}

func containsAny(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if set[NormalizeID(id)] {
			return true
		}
	}
	return false
}
