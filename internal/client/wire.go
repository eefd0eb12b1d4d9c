package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/core"
)

// apiTime accepts RFC 3339 as well as the zone-less ISO timestamps some
// backends emit for naive datetimes.
type apiTime struct {
	time.Time
}

var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

type orderDTO struct {
	ID          string   `json:"_id"`
	Date        apiTime  `json:"date"`
	ProductIDs  []string `json:"product_ids"`
	Total       float64  `json:"total"`
	ProcessedAt *apiTime `json:"processed_at,omitempty"`
}

func (d orderDTO) order() core.Order {
	o := core.Order{
		ID:         d.ID,
		Date:       d.Date.Time,
		ProductIDs: d.ProductIDs,
		Total:      d.Total,
	}
	if o.ProductIDs == nil {
		o.ProductIDs = []string{}
	}
	if d.ProcessedAt != nil && !d.ProcessedAt.IsZero() {
		at := d.ProcessedAt.Time
		o.ProcessedAt = &at
	}
	return o
}

type salesPointDTO struct {
	Date    apiTime `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type salesReportDTO struct {
	Metrics     core.SalesMetrics `json:"metrics"`
	TimeSeries  []salesPointDTO   `json:"time_series"`
	TopProducts []core.TopProduct `json:"top_products"`
}

func (d salesReportDTO) report() core.SalesReport {
	r := core.EmptySalesReport()
	r.Metrics = d.Metrics
	for _, p := range d.TimeSeries {
		r.TimeSeries = append(r.TimeSeries, core.SalesPoint{Date: p.Date.Time, Revenue: p.Revenue, Orders: p.Orders})
	}
	r.TopProducts = append(r.TopProducts, d.TopProducts...)
	return r
}

type orderRequest struct {
	Date       string   `json:"date"`
	ProductIDs []string `json:"product_ids"`
}

var _ json.Unmarshaler = (*apiTime)(nil)
