package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1/", 5*time.Second, nil)
}

func TestListCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/categories/", r.URL.Path)
		_, _ = io.WriteString(w, `[{"_id":"c1","name":"Eletrônicos"}]`)
	})

	got, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.Category{{ID: "c1", Name: "Eletrônicos"}}, got)
}

func TestNon2xxIsTransportFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Category not found"}`, http.StatusNotFound)
	})

	err := c.DeleteCategory(context.Background(), "c9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))

	var tf *TransportFailure
	require.True(t, errors.As(err, &tf))
	assert.Equal(t, http.StatusNotFound, tf.Status)
	assert.Equal(t, `{"detail":"Category not found"}`, tf.Body)
	assert.Equal(t, http.MethodDelete, tf.Method)
}

func TestNetworkErrorIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, time.Second, nil)

	_, err := c.ListProducts(context.Background())
	var tf *TransportFailure
	require.True(t, errors.As(err, &tf))
	assert.Zero(t, tf.Status)
	assert.NotNil(t, tf.Err)
}

func TestCreateProductSendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in catalog.ProductInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Mouse", in.Name)
		assert.Equal(t, []string{"c1"}, in.CategoryIDs)
		_, _ = io.WriteString(w, `{"_id":"p1","name":"Mouse","price":59.9,"category_ids":["c1"]}`)
	})

	p, err := c.CreateProduct(context.Background(), catalog.ProductInput{Name: "Mouse", Price: 59.9, CategoryIDs: []string{"c1"}})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestCreateProductWithImageIsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/with-image/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Mouse", r.FormValue("name"))
		assert.Equal(t, "59.9", r.FormValue("price"))
		assert.Equal(t, `["c1","c2"]`, r.FormValue("category_ids"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "mouse.png", hdr.Filename)
		assert.Equal(t, "png-bytes", string(data))

		_, _ = io.WriteString(w, `{"_id":"p1","name":"Mouse","image_url":"http://img/products/mouse.png"}`)
	})

	p, err := c.CreateProductWithImage(context.Background(),
		catalog.ProductInput{Name: "Mouse", Price: 59.9, CategoryIDs: []string{"c1", "c2"}},
		catalog.Image{Filename: "mouse.png", ContentType: "image/png", Data: []byte("png-bytes")})
	require.NoError(t, err)
	assert.Equal(t, "http://img/products/mouse.png", p.ImageURL)
}

func TestOrdersAcceptNaiveDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"_id":"o1","date":"2024-03-05T14:30:00","product_ids":["p1"],"total":10},
			{"_id":"o2","date":"2024-03-06T09:00:00Z","product_ids":null,"total":0,"processed_at":"2024-03-06T09:05:00Z"}
		]`)
	})

	got, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), got[0].Date)
	assert.Nil(t, got[0].ProcessedAt)
	assert.Equal(t, []string{}, got[1].ProductIDs)
	require.NotNil(t, got[1].ProcessedAt)
}

func TestCreateOrderBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-03-05T00:00:00Z", body["date"])
		assert.Equal(t, []any{"p1", "p1"}, body["product_ids"])
		_, _ = io.WriteString(w, `{"_id":"o1","date":"2024-03-05T00:00:00Z","product_ids":["p1","p1"],"total":20}`)
	})

	o, err := c.CreateOrder(context.Background(), catalog.OrderInput{
		Date:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		ProductIDs: []string{"p1", "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, o.Total)
}

func TestSalesReportQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/dashboard/sales", r.URL.Path)
		assert.Equal(t, "2024-03-01T00:00:00", q.Get("start_date"))
		assert.Equal(t, "2024-03-15T23:59:59", q.Get("end_date"))
		assert.Equal(t, []string{"c1", "c2"}, q["category_ids"])
		assert.Empty(t, q["product_ids"])
		_, _ = io.WriteString(w, `{
			"metrics":{"total_orders":2,"total_revenue":30,"avg_order_value":15,"min_order_value":10,"max_order_value":20},
			"time_series":[{"date":"2024-03-02","revenue":30,"orders":2}],
			"top_products":[{"product_id":"p1","name":"Mouse","order_count":2,"total_revenue":30}]
		}`)
	})

	got, err := c.SalesReport(context.Background(), core.SalesQuery{
		Start:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		CategoryIDs: []string{"c1", "c2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Metrics.TotalOrders)
	require.Len(t, got.TimeSeries, 1)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), got.TimeSeries[0].Date)
	require.Len(t, got.TopProducts, 1)
}

func TestSalesParamsOpenRange(t *testing.T) {
	assert.Empty(t, SalesParams(core.SalesQuery{}).Encode())
}

func TestApiTimeRejectsGarbage(t *testing.T) {
	var at apiTime
	assert.Error(t, at.UnmarshalJSON([]byte(`"yesterday"`)))
	require.NoError(t, at.UnmarshalJSON([]byte(`null`)))
	assert.True(t, at.IsZero())
}
