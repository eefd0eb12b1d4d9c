package screens

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/log"
	"backoffice/internal/schema"
	"backoffice/internal/table"
)

const (
	fieldCategoryIDs = "category_ids"
	fieldImage       = "image"

	noCategories         = "Sem categorias"
	unnamedCategoryLabel = "Categoria sem nome"
)

// Products lists products with their category names and image links.
type Products struct {
	backend    catalog.Backend
	screen     schema.Screen
	logger     *log.Logger
	items      []core.Product
	categories []core.Category
	dialog     dialog
	preview    string
}

func NewProducts(b catalog.Backend, schemas *schema.Catalog, logger *log.Logger) (*Products, error) {
	screen, err := loadScreen(schemas, ScreenProducts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Products{
		backend: b,
		screen:  screen,
		logger:  logger.WithComponent(log.ComponentScreen).With(log.FieldScreen, ScreenProducts),
		dialog:  newDialog(),
	}, nil
}

func (s *Products) Title() string { return s.screen.Title }

// Load fetches products and categories together.
func (s *Products) Load(ctx context.Context) error {
	var products []core.Product
	var categories []core.Category
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.backend.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.backend.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load products", log.FieldError, err)
		return err
	}
	s.items, s.categories = products, categories
	return nil
}

func (s *Products) Items() []core.Product {
	return slices.Clone(s.items)
}

func (s *Products) Records() []schema.Record {
	out := make([]schema.Record, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, productRecord(p))
	}
	return out
}

// Columns binds the category-name formatter to the descriptor columns.
func (s *Products) Columns() []schema.ColumnSpec {
	return withFormatter(s.screen.Columns, fieldCategoryIDs, func(value any, _ schema.Record) string {
		names := namesOf(s.categories, value,
			func(c core.Category) string { return c.ID },
			func(c core.Category) string { return c.Name })
		if len(names) == 0 {
			return noCategories
		}
		return strings.Join(names, ", ")
	})
}

func (s *Products) Table(ctx context.Context) table.View {
	return table.Render(s.Columns(), s.Records(), s.options(ctx))
}

func (s *Products) Page(ctx context.Context, index, size int) table.View {
	return renderPage(s.Columns(), s.Records(), s.options(ctx), index, size)
}

func (s *Products) options(ctx context.Context) table.Options {
	return table.Options{
		EmptyMessage: s.screen.EmptyMessage,
		OnEdit: func(rec schema.Record) error {
			_, err := s.OpenEdit(rec.ID())
			return err
		},
		OnDelete: func(rec schema.Record) error {
			return s.Delete(ctx, rec.ID())
		},
		OnViewImage: func(rec schema.Record) error {
			url, _ := rec["image_url"].(string)
			s.preview = url
			return nil
		},
	}
}

// ImagePreview is the image URL of the last row whose image was opened.
func (s *Products) ImagePreview() string { return s.preview }

// CategoryOptions are the choices of the category field.
func (s *Products) CategoryOptions() []schema.Option {
	out := make([]schema.Option, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, schema.NewOption(c.ID, c.Name))
	}
	return out
}

// Fields returns the form fields for mode. The image is only required when
// creating.
func (s *Products) Fields(mode Mode) []schema.FieldSpec {
	fields := withField(s.screen.Fields, fieldCategoryIDs, func(f schema.FieldSpec) schema.FieldSpec {
		f.Options = s.CategoryOptions()
		f.OptionLabel = func(o schema.Option) string {
			if o.Label == "" {
				return unnamedCategoryLabel
			}
			return o.Label
		}
		return f
	})
	if mode == ModeEdit {
		fields = withField(fields, fieldImage, func(f schema.FieldSpec) schema.FieldSpec {
			f.Required = false
			return f
		})
	}
	return fields
}

func (s *Products) OpenCreate() Dialog {
	s.dialog.open(ModeCreate, "", s.Fields(ModeCreate), nil)
	return s.Dialog()
}

func (s *Products) OpenEdit(id string) (Dialog, error) {
	i := slices.IndexFunc(s.items, func(p core.Product) bool { return p.ID == core.NormalizeID(id) })
	if i < 0 {
		return Dialog{}, catalog.ErrNotFound
	}
	fields := s.Fields(ModeEdit)
	s.dialog.open(ModeEdit, id, fields, form.FromRecord(fields, productRecord(s.items[i])))
	return s.Dialog(), nil
}

func (s *Products) Dialog() Dialog {
	return s.dialog.snapshot("Novo Produto", "Editar Produto")
}

func (s *Products) Form() *form.Engine { return s.dialog.engine }

func (s *Products) Close() { s.dialog.close() }

// Submit creates the product with its image, or updates it keeping the stored
// image, then refetches.
func (s *Products) Submit(ctx context.Context) error {
	values, err := s.dialog.submit()
	if err != nil {
		return err
	}
	price, _ := values.Get("price").Number()
	in := catalog.ProductInput{
		Name:        values.Get("name").Text(),
		Description: values.Get("description").Text(),
		Price:       price,
		CategoryIDs: values.Get(fieldCategoryIDs).OptionIDs(),
	}

	switch {
	case s.dialog.mode == ModeEdit:
		_, err = s.backend.UpdateProduct(ctx, s.dialog.id, in)
	case values.Get(fieldImage).File != nil:
		f := values.Get(fieldImage).File
		_, err = s.backend.CreateProductWithImage(ctx, in, catalog.Image{
			Filename:    f.Name,
			ContentType: f.ContentType,
			Data:        f.Data,
		})
	default:
		_, err = s.backend.CreateProduct(ctx, in)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save product", log.FieldError, err, log.FieldEntityID, s.dialog.id)
		return err
	}
	s.dialog.close()
	return s.Load(ctx)
}

func (s *Products) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete product", log.FieldError, err, log.FieldEntityID, id)
		return err
	}
	return s.Load(ctx)
}

func productRecord(p core.Product) schema.Record {
	rec := schema.Record{
		"_id":          p.ID,
		"name":         p.Name,
		"description":  p.Description,
		"price":        p.Price,
		"category_ids": slices.Clone(p.CategoryIDs),
	}
	if p.ImageURL != "" {
		rec["image_url"] = p.ImageURL
	}
	return rec
}
