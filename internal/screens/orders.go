package screens

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/log"
	"backoffice/internal/schema"
	"backoffice/internal/table"
)

const (
	fieldProductIDs = "product_ids"

	noProducts = "Sem produtos"
	noDate     = "Sem data"
)

// Orders lists orders with their product names. Saving an order stamps it
// with the current time; the backend computes the total.
type Orders struct {
	backend  catalog.Backend
	screen   schema.Screen
	logger   *log.Logger
	now      func() time.Time
	items    []core.Order
	products []core.Product
	dialog   dialog
}

func NewOrders(b catalog.Backend, schemas *schema.Catalog, logger *log.Logger) (*Orders, error) {
	screen, err := loadScreen(schemas, ScreenOrders)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Orders{
		backend: b,
		screen:  screen,
		logger:  logger.WithComponent(log.ComponentScreen).With(log.FieldScreen, ScreenOrders),
		now:     time.Now,
		dialog:  newDialog(),
	}, nil
}

// SetClock replaces the time source used to stamp saved orders.
func (s *Orders) SetClock(now func() time.Time) { s.now = now }

func (s *Orders) Title() string { return s.screen.Title }

func (s *Orders) Load(ctx context.Context) error {
	var orders []core.Order
	var products []core.Product
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.backend.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.backend.ListOrders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load orders", log.FieldError, err)
		return err
	}
	s.items, s.products = orders, products
	return nil
}

func (s *Orders) Items() []core.Order {
	return slices.Clone(s.items)
}

func (s *Orders) Records() []schema.Record {
	out := make([]schema.Record, 0, len(s.items))
	for _, o := range s.items {
		out = append(out, orderRecord(o))
	}
	return out
}

func (s *Orders) Columns() []schema.ColumnSpec {
	cols := withFormatter(s.screen.Columns, "date", func(value any, _ schema.Record) string {
		if value == nil {
			return noDate
		}
		return table.FormatDate(value)
	})
	return withFormatter(cols, fieldProductIDs, func(value any, _ schema.Record) string {
		names := namesOf(s.products, value,
			func(p core.Product) string { return p.ID },
			func(p core.Product) string { return p.Name })
		if len(names) == 0 {
			return noProducts
		}
		return strings.Join(names, ", ")
	})
}

func (s *Orders) Table(ctx context.Context) table.View {
	return table.Render(s.Columns(), s.Records(), s.options(ctx))
}

func (s *Orders) Page(ctx context.Context, index, size int) table.View {
	return renderPage(s.Columns(), s.Records(), s.options(ctx), index, size)
}

func (s *Orders) options(ctx context.Context) table.Options {
	return table.Options{
		EmptyMessage: s.screen.EmptyMessage,
		OnEdit: func(rec schema.Record) error {
			_, err := s.OpenEdit(rec.ID())
			return err
		},
		OnDelete: func(rec schema.Record) error {
			return s.Delete(ctx, rec.ID())
		},
	}
}

// ProductOptions are the choices of the product field.
func (s *Orders) ProductOptions() []schema.Option {
	out := make([]schema.Option, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, schema.NewOption(p.ID, p.Name))
	}
	return out
}

// Fields binds the products to the descriptor fields. Options read as
// "name - R$ price".
func (s *Orders) Fields() []schema.FieldSpec {
	prices := core.PriceIndex(s.products)
	return withField(s.screen.Fields, fieldProductIDs, func(f schema.FieldSpec) schema.FieldSpec {
		f.Options = s.ProductOptions()
		f.OptionLabel = func(o schema.Option) string {
			return fmt.Sprintf("%s - %s", o.Label, core.FormatCurrency(prices[o.ID]))
		}
		return f
	})
}

func (s *Orders) OpenCreate() Dialog {
	s.dialog.open(ModeCreate, "", s.Fields(), nil)
	return s.Dialog()
}

func (s *Orders) OpenEdit(id string) (Dialog, error) {
	i := slices.IndexFunc(s.items, func(o core.Order) bool { return o.ID == core.NormalizeID(id) })
	if i < 0 {
		return Dialog{}, catalog.ErrNotFound
	}
	fields := s.Fields()
	s.dialog.open(ModeEdit, id, fields, form.FromRecord(fields, orderRecord(s.items[i])))
	return s.Dialog(), nil
}

func (s *Orders) Dialog() Dialog {
	return s.dialog.snapshot("Novo Pedido", "Editar Pedido")
}

func (s *Orders) Form() *form.Engine { return s.dialog.engine }

func (s *Orders) Close() { s.dialog.close() }

func (s *Orders) Submit(ctx context.Context) error {
	values, err := s.dialog.submit()
	if err != nil {
		return err
	}
	in := catalog.OrderInput{
		Date:       s.now(),
		ProductIDs: values.Get(fieldProductIDs).OptionIDs(),
	}

	if s.dialog.mode == ModeEdit {
		_, err = s.backend.UpdateOrder(ctx, s.dialog.id, in)
	} else {
		_, err = s.backend.CreateOrder(ctx, in)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save order", log.FieldError, err, log.FieldEntityID, s.dialog.id)
		return err
	}
	s.dialog.close()
	return s.Load(ctx)
}

func (s *Orders) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteOrder(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete order", log.FieldError, err, log.FieldEntityID, id)
		return err
	}
	return s.Load(ctx)
}

func orderRecord(o core.Order) schema.Record {
	rec := schema.Record{
		"_id":         o.ID,
		"total":       o.Total,
		"product_ids": slices.Clone(o.ProductIDs),
	}
	if !o.Date.IsZero() {
		rec["date"] = o.Date
	}
	return rec
}
