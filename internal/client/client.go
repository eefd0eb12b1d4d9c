// Package client talks to a remote backoffice API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/log"
)

const (
	// Dashboard bounds cover whole days.
	startOfDaySuffix = "T00:00:00"
	endOfDaySuffix   = "T23:59:59"

	maxErrorBody = 4 << 10
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8000/api/v1.
func New(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithComponent(log.ComponentClient),
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	if err := c.getJSON(ctx, "/categories/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, in catalog.CategoryInput) (core.Category, error) {
	var out core.Category
	err := c.sendJSON(ctx, http.MethodPost, "/categories/", in, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id string, in catalog.CategoryInput) (core.Category, error) {
	var out core.Category
	err := c.sendJSON(ctx, http.MethodPut, "/categories/"+url.PathEscape(id), in, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListProducts(ctx context.Context) ([]core.Product, error) {
	var out []core.Product
	if err := c.getJSON(ctx, "/products/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in catalog.ProductInput) (core.Product, error) {
	var out core.Product
	err := c.sendJSON(ctx, http.MethodPost, "/products/", in, &out)
	return out, err
}

// CreateProductWithImage posts a multipart form: the text fields, the
// category ids as a JSON array and the image file.
func (c *Client) CreateProductWithImage(ctx context.Context, in catalog.ProductInput, img catalog.Image) (core.Product, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	categoryIDs := in.CategoryIDs
	if categoryIDs == nil {
		categoryIDs = []string{}
	}
	ids, err := json.Marshal(categoryIDs)
	if err != nil {
		return core.Product{}, fmt.Errorf("encode category ids: %w", err)
	}
	fields := [][2]string{
		{"name", in.Name},
		{"description", in.Description},
		{"price", strconv.FormatFloat(in.Price, 'f', -1, 64)},
		{"category_ids", string(ids)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return core.Product{}, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	part, err := mw.CreateFormFile("image", img.Filename)
	if err != nil {
		return core.Product{}, fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return core.Product{}, fmt.Errorf("write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return core.Product{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/products/with-image/", nil, &buf)
	if err != nil {
		return core.Product{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out core.Product
	err = c.do(req, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in catalog.ProductInput) (core.Product, error) {
	var out core.Product
	err := c.sendJSON(ctx, http.MethodPut, "/products/"+url.PathEscape(id), in, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListOrders(ctx context.Context) ([]core.Order, error) {
	var dtos []orderDTO
	if err := c.getJSON(ctx, "/orders/", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Order, len(dtos))
	for i, d := range dtos {
		out[i] = d.order()
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, in catalog.OrderInput) (core.Order, error) {
	var dto orderDTO
	if err := c.sendJSON(ctx, http.MethodPost, "/orders/", orderBody(in), &dto); err != nil {
		return core.Order{}, err
	}
	return dto.order(), nil
}

func (c *Client) UpdateOrder(ctx context.Context, id string, in catalog.OrderInput) (core.Order, error) {
	var dto orderDTO
	if err := c.sendJSON(ctx, http.MethodPut, "/orders/"+url.PathEscape(id), orderBody(in), &dto); err != nil {
		return core.Order{}, err
	}
	return dto.order(), nil
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/orders/"+url.PathEscape(id), nil, nil)
}

// SalesReport queries the dashboard endpoint. Range bounds are sent as dates
// widened to the start and end of their day.
func (c *Client) SalesReport(ctx context.Context, q core.SalesQuery) (core.SalesReport, error) {
	var dto salesReportDTO
	if err := c.getJSON(ctx, "/dashboard/sales", SalesParams(q), &dto); err != nil {
		return core.SalesReport{}, err
	}
	return dto.report(), nil
}

// SalesParams encodes a query the way the dashboard endpoint expects it.
func SalesParams(q core.SalesQuery) url.Values {
	v := url.Values{}
	if !q.Start.IsZero() {
		v.Set("start_date", q.Start.Format("2006-01-02")+startOfDaySuffix)
	}
	if !q.End.IsZero() {
		v.Set("end_date", q.End.Format("2006-01-02")+endOfDaySuffix)
	}
	for _, id := range q.CategoryIDs {
		v.Add("category_ids", id)
	}
	for _, id := range q.ProductIDs {
		v.Add("product_ids", id)
	}
	return v
}

func orderBody(in catalog.OrderInput) orderRequest {
	body := orderRequest{ProductIDs: in.ProductIDs}
	if body.ProductIDs == nil {
		body.ProductIDs = []string{}
	}
	if !in.Date.IsZero() {
		body.Date = in.Date.Format(time.RFC3339)
	}
	return body
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and decodes a 2xx body into out. Anything else becomes a
// *TransportFailure carrying the response body, which is also logged.
func (c *Client) do(req *http.Request, out any) error {
	ctx := req.Context()
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Request failed",
			log.FieldMethod, req.Method, log.FieldPath, req.URL.Path, log.FieldError, err)
		return &TransportFailure{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.ErrorContext(ctx, "Request rejected",
			log.FieldMethod, req.Method,
			log.FieldPath, req.URL.Path,
			log.FieldStatusCode, resp.StatusCode,
			"body", string(body))
		return &TransportFailure{
			Method: req.Method,
			URL:    req.URL.String(),
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	c.logger.DebugContext(ctx, "Request completed",
		log.FieldMethod, req.Method,
		log.FieldPath, req.URL.Path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

var _ catalog.Backend = (*Client)(nil)
