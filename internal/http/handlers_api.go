package http

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
)

// orderGetter is implemented by backends that can fetch one order directly.
type orderGetter interface {
	GetOrder(ctx context.Context, id string) (core.Order, error)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Backend.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(items))
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Backend.CreateCategory(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, c)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Backend.UpdateCategory(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Backend.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Backend.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(items))
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Backend.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, p)
}

func (s *Server) createProductWithImage(w http.ResponseWriter, r *http.Request) {
	in, img, err := ParseProductMultipart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Backend.CreateProductWithImage(r.Context(), in, img)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Backend.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Backend.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Backend.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(items))
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.findOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, o)
}

// findOrder asks the backend for one order, scanning the list when the
// backend has no direct lookup.
func (s *Server) findOrder(ctx context.Context, id string) (core.Order, error) {
	if g, ok := s.deps.Backend.(orderGetter); ok {
		return g.GetOrder(ctx, id)
	}
	orders, err := s.deps.Backend.ListOrders(ctx)
	if err != nil {
		return core.Order{}, err
	}
	id = core.NormalizeID(id)
	i := slices.IndexFunc(orders, func(o core.Order) bool { return o.ID == id })
	if i < 0 {
		return core.Order{}, fmt.Errorf("order %q: %w", id, catalog.ErrNotFound)
	}
	return orders[i], nil
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	in, err := ParseOrderInput(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.deps.Backend.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.ordersCreated.Add(1)
	writeJSON(w, r, http.StatusCreated, o)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	in, err := ParseOrderInput(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.deps.Backend.UpdateOrder(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, o)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Backend.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// processOrder runs the order pipeline inline and returns its insights.
func (s *Server) processOrder(w http.ResponseWriter, r *http.Request) {
	if s.deps.Processor == nil {
		writeDetail(w, r, http.StatusServiceUnavailable, "order processing not available")
		return
	}
	insights, err := s.deps.Processor.Process(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, insights)
}

func (s *Server) salesReport(w http.ResponseWriter, r *http.Request) {
	q, err := ParseSalesQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.deps.Backend.SalesReport(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
