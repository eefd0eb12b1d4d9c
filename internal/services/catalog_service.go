package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"backoffice/internal/blob"
	"backoffice/internal/cache"
	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/log"
)

const defaultContentType = "application/octet-stream"

// CatalogService serves catalog.Backend in-process. Writes go to the
// repository first; images go to the blob store and new orders are
// announced on the publisher when those are configured.
type CatalogService struct {
	repo      catalog.Repository
	blobs     catalog.BlobStore
	publisher catalog.OrderPublisher
	reports   cache.Cache[core.SalesReport]
	logger    *log.Logger
	now       func() time.Time
}

type Option func(*CatalogService)

func WithBlobStore(b catalog.BlobStore) Option {
	return func(s *CatalogService) { s.blobs = b }
}

func WithPublisher(p catalog.OrderPublisher) Option {
	return func(s *CatalogService) { s.publisher = p }
}

// WithReportCache memoizes sales reports until the next write.
func WithReportCache(c cache.Cache[core.SalesReport]) Option {
	return func(s *CatalogService) { s.reports = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) { s.now = now }
}

func NewCatalogService(repo catalog.Repository, logger *log.Logger, opts ...Option) *CatalogService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &CatalogService{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentCatalog),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in catalog.CategoryInput) (core.Category, error) {
	c, err := s.repo.CreateCategory(ctx, core.Category{Name: sanitizeText(in.Name)})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(ctx, "category", c.ID)
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, in catalog.CategoryInput) (core.Category, error) {
	c, err := s.repo.UpdateCategory(ctx, core.Category{ID: core.NormalizeID(id), Name: sanitizeText(in.Name)})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.invalidate(ctx, "category", c.ID)
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, core.NormalizeID(id)); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(ctx, "category", id)
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]core.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in catalog.ProductInput) (core.Product, error) {
	p, err := s.productFromInput(ctx, "", in)
	if err != nil {
		return core.Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx, "product", created.ID)
	return created, nil
}

// CreateProductWithImage uploads the image before inserting the product, so
// a failed upload leaves no product behind.
func (s *CatalogService) CreateProductWithImage(ctx context.Context, in catalog.ProductInput, img catalog.Image) (core.Product, error) {
	if s.blobs == nil {
		return core.Product{}, catalog.ErrBlobDisabled
	}
	if len(img.Data) == 0 {
		return core.Product{}, catalog.ErrImageRequired
	}
	p, err := s.productFromInput(ctx, "", in)
	if err != nil {
		return core.Product{}, err
	}

	key := blob.ProductImageKey(img.Filename)
	contentType := img.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	url, err := s.blobs.Upload(ctx, key, contentType, bytes.NewReader(img.Data))
	if err != nil {
		s.logger.ErrorContext(ctx, "Image upload failed",
			log.FieldBlobKey, key, log.FieldError, err)
		return core.Product{}, fmt.Errorf("upload image: %w", err)
	}
	s.logger.InfoContext(ctx, "Image uploaded",
		log.FieldOperation, log.OpUpload, log.FieldBlobKey, key)

	p.ImageURL = url
	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx, "product", created.ID)
	return created, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in catalog.ProductInput) (core.Product, error) {
	id = core.NormalizeID(id)
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return core.Product{}, fmt.Errorf("update product: %w", err)
	}
	p, err := s.productFromInput(ctx, id, in)
	if err != nil {
		return core.Product{}, err
	}
	if p.ImageURL == "" {
		p.ImageURL = current.ImageURL
	}
	updated, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx, "product", id)
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, core.NormalizeID(id)); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate(ctx, "product", id)
	return nil
}

// productFromInput sanitizes the text fields, dedupes category ids and
// checks every one of them exists.
func (s *CatalogService) productFromInput(ctx context.Context, id string, in catalog.ProductInput) (core.Product, error) {
	p := core.Product{
		ID:          id,
		Name:        sanitizeText(in.Name),
		Description: sanitizeText(in.Description),
		Price:       in.Price,
		CategoryIDs: dedupe(core.NormalizeIDs(in.CategoryIDs)),
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	if len(p.CategoryIDs) == 0 {
		return p, nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return core.Product{}, fmt.Errorf("list categories: %w", err)
	}
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[core.NormalizeID(c.ID)] = true
	}
	for _, cid := range p.CategoryIDs {
		if !known[cid] {
			return core.Product{}, fmt.Errorf("%w: %s", catalog.ErrUnknownCategory, cid)
		}
	}
	return p, nil
}

func (s *CatalogService) ListOrders(ctx context.Context) ([]core.Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *CatalogService) GetOrder(ctx context.Context, id string) (core.Order, error) {
	return s.repo.GetOrder(ctx, core.NormalizeID(id))
}

// CreateOrder prices the order from the current product list, stores it and
// publishes it for processing. A publish failure is logged, not returned.
func (s *CatalogService) CreateOrder(ctx context.Context, in catalog.OrderInput) (core.Order, error) {
	o, err := s.orderFromInput(ctx, "", in)
	if err != nil {
		return core.Order{}, err
	}
	created, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		return core.Order{}, fmt.Errorf("create order: %w", err)
	}
	s.invalidate(ctx, "order", created.ID)

	log.NewStructuredLogger(s.logger).LogOrderCreated(ctx, created.ID, created.Total, len(created.ProductIDs))

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping order message", log.FieldOrderID, created.ID)
		return created, nil
	}
	if err := s.publisher.PublishOrder(ctx, created); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish order message",
			log.FieldOrderID, created.ID, log.FieldError, err)
	}
	return created, nil
}

func (s *CatalogService) UpdateOrder(ctx context.Context, id string, in catalog.OrderInput) (core.Order, error) {
	id = core.NormalizeID(id)
	current, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return core.Order{}, fmt.Errorf("update order: %w", err)
	}
	o, err := s.orderFromInput(ctx, id, in)
	if err != nil {
		return core.Order{}, err
	}
	o.ProcessedAt = current.ProcessedAt
	updated, err := s.repo.UpdateOrder(ctx, o)
	if err != nil {
		return core.Order{}, fmt.Errorf("update order: %w", err)
	}
	s.invalidate(ctx, "order", id)
	return updated, nil
}

func (s *CatalogService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.repo.DeleteOrder(ctx, core.NormalizeID(id)); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	s.invalidate(ctx, "order", id)
	return nil
}

func (s *CatalogService) orderFromInput(ctx context.Context, id string, in catalog.OrderInput) (core.Order, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return core.Order{}, fmt.Errorf("list products: %w", err)
	}
	ids := core.NormalizeIDs(in.ProductIDs)
	total, err := core.OrderTotal(ids, core.PriceIndex(products))
	if err != nil {
		return core.Order{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	return core.Order{ID: id, Date: date.UTC(), ProductIDs: ids, Total: total}, nil
}

// SalesReport loads orders and products concurrently and rolls them up.
// Reports are cached per query until the next write.
func (s *CatalogService) SalesReport(ctx context.Context, q core.SalesQuery) (core.SalesReport, error) {
	key := reportKey(q)
	if s.reports != nil {
		if r, ok := s.reports.Get(key); ok {
			return r, nil
		}
	}

	var (
		orders   []core.Order
		products []core.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.repo.ListOrders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.repo.ListProducts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.SalesReport{}, fmt.Errorf("sales report: %w", err)
	}

	report := core.BuildSalesReport(orders, products, q)
	fields := log.NewFields().
		WithOperation(log.OpReport).
		WithDateRange(logDate(q.Start), logDate(q.End))
	fields[log.FieldRecordCount] = report.Metrics.TotalOrders
	s.logger.DebugContext(ctx, "Sales report computed", fields.ToSlice()...)

	if s.reports != nil {
		s.reports.Set(key, report)
	}
	return report, nil
}

func (s *CatalogService) invalidate(ctx context.Context, entity, id string) {
	if s.reports != nil {
		s.reports.Clear()
	}
	s.logger.DebugContext(ctx, "Catalog changed", log.NewFields().WithEntity(entity, id).ToSlice()...)
}

func logDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// Close releases the publisher when it holds a connection.
func (s *CatalogService) Close() error {
	var errs []error
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}

func reportKey(q core.SalesQuery) string {
	cats := slices.Clone(q.CategoryIDs)
	prods := slices.Clone(q.ProductIDs)
	slices.Sort(cats)
	slices.Sort(prods)
	return fmt.Sprintf("%s|%s|%s|%s",
		formatBound(q.Start), formatBound(q.End),
		strings.Join(cats, ","), strings.Join(prods, ","))
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

var _ catalog.Backend = (*CatalogService)(nil)
