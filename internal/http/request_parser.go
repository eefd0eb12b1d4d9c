// Package http serves the backoffice REST API and the admin console.
//
// This file turns query strings, JSON bodies and multipart forms into the
// values the catalog backend and the screens accept.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/aggregate"
	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/schema"
	"backoffice/internal/screens"
)

const (
	maxMultipartMemory = 10 << 20
	maxImageSize       = 5 << 20

	// filterDateLayout is the value format of HTML date inputs.
	filterDateLayout = "2006-01-02"
)

// ParseSalesQuery reads the dashboard query parameters. Repeated
// category_ids and product_ids narrow the product set; blank ids are dropped.
func ParseSalesQuery(query url.Values) (core.SalesQuery, error) {
	var q core.SalesQuery
	if v := strings.TrimSpace(query.Get("start_date")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return core.SalesQuery{}, fmt.Errorf("start_date: %w", err)
		}
		q.Start = t
	}
	if v := strings.TrimSpace(query.Get("end_date")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return core.SalesQuery{}, fmt.Errorf("end_date: %w", err)
		}
		q.End = t
	}
	q.CategoryIDs = idList(query["category_ids"])
	q.ProductIDs = idList(query["product_ids"])
	return q, nil
}

// ParseDashboardFilters reads the console filter form. Missing dates fall
// back to the current month; an unknown period is an error.
func ParseDashboardFilters(query url.Values, now time.Time) (screens.Filters, aggregate.Period, error) {
	f := screens.DefaultFilters(now)
	if v := strings.TrimSpace(query.Get("start_date")); v != "" {
		t, err := time.Parse(filterDateLayout, v)
		if err != nil {
			return screens.Filters{}, 0, fmt.Errorf("%w: start_date %q", core.ErrInvalidDate, v)
		}
		f.StartDate = t
	}
	if v := strings.TrimSpace(query.Get("end_date")); v != "" {
		t, err := time.Parse(filterDateLayout, v)
		if err != nil {
			return screens.Filters{}, 0, fmt.Errorf("%w: end_date %q", core.ErrInvalidDate, v)
		}
		f.EndDate = t
	}
	f.CategoryIDs = idList(query["category_ids"])
	f.ProductIDs = idList(query["product_ids"])

	period := aggregate.Daily
	if v := strings.TrimSpace(query.Get("period")); v != "" {
		p, err := aggregate.ParsePeriod(v)
		if err != nil {
			return screens.Filters{}, 0, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		period = p
	}
	return f, period, nil
}

// ParsePage reads the list page and size. Missing or malformed values give
// the first page and a zero size, which the table falls back from.
func ParsePage(query url.Values) (page, size int) {
	page, _ = strconv.Atoi(query.Get("page"))
	size, _ = strconv.Atoi(query.Get("size"))
	return max(page, 0), max(size, 0)
}

// ParseOrderInput decodes an order body. The date is optional and accepts the
// same layouts as the dashboard parameters.
func ParseOrderInput(w http.ResponseWriter, r *http.Request) (catalog.OrderInput, error) {
	var body struct {
		Date       string   `json:"date"`
		ProductIDs []string `json:"product_ids"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		return catalog.OrderInput{}, err
	}
	in := catalog.OrderInput{ProductIDs: body.ProductIDs}
	if strings.TrimSpace(body.Date) != "" {
		t, err := parseDate(body.Date)
		if err != nil {
			return catalog.OrderInput{}, err
		}
		in.Date = t
	}
	return in, nil
}

// ParseProductMultipart reads the product-with-image form: text fields, the
// category ids as a JSON array and the image file.
func ParseProductMultipart(r *http.Request) (catalog.ProductInput, catalog.Image, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return catalog.ProductInput{}, catalog.Image{}, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
	}

	in := catalog.ProductInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}
	price, err := core.ParseAmount(r.FormValue("price"))
	if err != nil {
		return catalog.ProductInput{}, catalog.Image{}, fmt.Errorf("%w: %v", core.ErrInvalidPrice, err)
	}
	in.Price = price

	ids, err := ParseCategoryIDs(r.MultipartForm.Value["category_ids"])
	if err != nil {
		return catalog.ProductInput{}, catalog.Image{}, err
	}
	in.CategoryIDs = ids

	img, err := readImage(r, "image")
	if err != nil {
		return catalog.ProductInput{}, catalog.Image{}, err
	}
	return in, img, nil
}

// ParseCategoryIDs accepts either a single JSON array or plain repeated ids.
func ParseCategoryIDs(values []string) ([]string, error) {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var ids []string
		if err := json.Unmarshal([]byte(values[0]), &ids); err != nil {
			return nil, fmt.Errorf("%w: category_ids must be a JSON array of ids", errBadRequest)
		}
		return idList(ids), nil
	}
	return idList(values), nil
}

func readImage(r *http.Request, field string) (catalog.Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return catalog.Image{}, catalog.ErrImageRequired
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return catalog.Image{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageSize {
		return catalog.Image{}, fmt.Errorf("%w: image larger than %d bytes", errBadRequest, maxImageSize)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return catalog.Image{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

// ApplyFormValues copies a submitted console form into the engine, field by
// field. Multi-select ids map onto the field's options; unknown ids are
// dropped. A file input without an upload leaves the field untouched.
func ApplyFormValues(engine *form.Engine, r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
		}
	} else if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: invalid form: %v", errBadRequest, err)
	}

	for _, f := range engine.Fields() {
		switch f.Kind {
		case schema.FieldMultiSelect:
			var selection []schema.Option
			for _, id := range idList(r.PostForm[f.Name]) {
				if o, ok := f.OptionByID(id); ok {
					selection = append(selection, o)
				}
			}
			engine.SetMultiSelectValue(f.Name, selection)
		case schema.FieldFile:
			if r.MultipartForm == nil || len(r.MultipartForm.File[f.Name]) == 0 {
				continue
			}
			img, err := readImage(r, f.Name)
			if err != nil {
				return err
			}
			engine.SetFileValue(f.Name, []form.FileHandle{{
				Name:        img.Filename,
				ContentType: img.ContentType,
				Data:        img.Data,
			}})
		default:
			engine.SetValue(f.Name, r.PostFormValue(f.Name))
		}
	}
	return nil
}

// idList trims ids and drops blanks, keeping order.
func idList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if id := core.NormalizeID(v); id != "" {
			out = append(out, id)
		}
	}
	return out
}
