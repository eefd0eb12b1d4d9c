package screens

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/catalog"
	"backoffice/internal/catalog/memory"
	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/schema"
	"backoffice/internal/services"
	"backoffice/internal/table"
	"backoffice/web"
)

type fakeBlobs struct{ keys []string }

func (f *fakeBlobs) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "http://localhost:4566/ecommerce-products/" + key, nil
}

func loadSchemas(t *testing.T) *schema.Catalog {
	t.Helper()
	cat, err := schema.LoadFS(web.SchemasFS)
	require.NoError(t, err)
	return cat
}

func newBackend(t *testing.T) *services.CatalogService {
	t.Helper()
	return services.NewCatalogService(memory.New(), nil, services.WithBlobStore(&fakeBlobs{}))
}

func TestCategoriesCreateEditDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewCategories(newBackend(t), loadSchemas(t), nil)
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx))

	view := s.Table(ctx)
	assert.True(t, view.Empty)
	assert.Equal(t, table.DefaultEmptyMessage, view.EmptyMessage)

	d := s.OpenCreate()
	assert.Equal(t, "Nova Categoria", d.Title)
	s.Form().SetValue("name", "Livros")
	require.NoError(t, s.Submit(ctx))
	assert.False(t, s.Dialog().Open())
	require.Len(t, s.Items(), 1)

	id := s.Items()[0].ID
	view = s.Table(ctx)
	require.NoError(t, view.Dispatch(table.ActionEdit, id))
	d = s.Dialog()
	assert.Equal(t, ModeEdit, d.Mode)
	assert.Equal(t, "Livros", d.State.Values.Get("name").Text())

	s.Form().SetValue("name", "Livros e Revistas")
	require.NoError(t, s.Submit(ctx))
	assert.Equal(t, "Livros e Revistas", s.Items()[0].Name)

	require.NoError(t, s.Table(ctx).Dispatch(table.ActionDelete, id))
	assert.Empty(t, s.Items())
}

func TestCategoriesPageSlicesRecords(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		_, err := backend.CreateCategory(ctx, catalog.CategoryInput{Name: name})
		require.NoError(t, err)
	}
	s, err := NewCategories(backend, loadSchemas(t), nil)
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx))

	view := s.Page(ctx, 1, 5)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "F", view.Rows[0].Cells[0].Text)
	require.NotNil(t, view.Footer)
	assert.Equal(t, "6-7 de 7", view.Footer.Label)
	assert.Equal(t, table.RowsPerPageOptions, view.Footer.RowsPerPage)

	past := s.Page(ctx, 4, 5)
	assert.True(t, past.Empty)
	assert.Equal(t, 7, past.Footer.Page.TotalCount)

	assert.Nil(t, s.Table(ctx).Footer)
}

func TestCategoriesSubmitRequiresName(t *testing.T) {
	ctx := context.Background()
	s, err := NewCategories(newBackend(t), loadSchemas(t), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Submit(ctx), ErrNoDialog)

	s.OpenCreate()
	err = s.Submit(ctx)
	var vf *form.ValidationFailed
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, form.RequiredMessage, s.Dialog().State.Error("name"))
	assert.True(t, s.Dialog().Open())
}

func TestProductsFieldsAndColumns(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	home, err := backend.CreateCategory(ctx, catalog.CategoryInput{Name: "Casa"})
	require.NoError(t, err)
	chair, err := backend.CreateProduct(ctx, catalog.ProductInput{Name: "Cadeira", Price: 350, CategoryIDs: []string{home.ID}})
	require.NoError(t, err)
	_, err = backend.CreateProduct(ctx, catalog.ProductInput{Name: "Mesa", Price: 900})
	require.NoError(t, err)

	s, err := NewProducts(backend, loadSchemas(t), nil)
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx))

	create, _ := schema.Screen{Fields: s.Fields(ModeCreate)}.Field("image")
	edit, _ := schema.Screen{Fields: s.Fields(ModeEdit)}.Field("image")
	assert.True(t, create.Required)
	assert.False(t, edit.Required)

	view := s.Table(ctx)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "R$ 350.00", view.Rows[0].Cells[2].Text)
	assert.Equal(t, "Casa", view.Rows[0].Cells[3].Text)
	assert.Equal(t, noCategories, view.Rows[1].Cells[3].Text)
	assert.Equal(t, "2 registros", view.Caption)

	d, err := s.OpenEdit(chair.ID)
	require.NoError(t, err)
	sel := d.State.Values.Get("category_ids").Options
	require.Len(t, sel, 1)
	assert.Equal(t, schema.Option{ID: home.ID, Label: "Casa"}, sel[0])
}

func TestProductsCreateWithImageAndEdit(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	s, err := NewProducts(backend, loadSchemas(t), nil)
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx))

	s.OpenCreate()
	s.Form().SetValue("name", "Luminária")
	s.Form().SetValue("price", "0")
	err = s.Submit(ctx)
	var vf *form.ValidationFailed
	require.ErrorAs(t, err, &vf)
	assert.Contains(t, vf.Errors, "image")
	assert.NotContains(t, vf.Errors, "price")

	s.Form().SetFileValue("image", []form.FileHandle{{Name: "lamp.png", ContentType: "image/png", Data: []byte("png")}})
	require.NoError(t, s.Submit(ctx))
	require.Len(t, s.Items(), 1)
	p := s.Items()[0]
	assert.Equal(t, "http://localhost:4566/ecommerce-products/products/lamp.png", p.ImageURL)

	require.NoError(t, s.Table(ctx).Dispatch(table.ActionViewImage, p.ID))
	assert.Equal(t, p.ImageURL, s.ImagePreview())

	_, err = s.OpenEdit(p.ID)
	require.NoError(t, err)
	s.Form().SetValue("price", "120.5")
	require.NoError(t, s.Submit(ctx))
	got := s.Items()[0]
	assert.Equal(t, 120.5, got.Price)
	assert.Equal(t, p.ImageURL, got.ImageURL)
}

func TestOrdersColumnsAndSubmit(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	mouse, err := backend.CreateProduct(ctx, catalog.ProductInput{Name: "Mouse", Price: 59.9})
	require.NoError(t, err)
	pad, err := backend.CreateProduct(ctx, catalog.ProductInput{Name: "Mousepad", Price: 20})
	require.NoError(t, err)

	s, err := NewOrders(backend, loadSchemas(t), nil)
	require.NoError(t, err)
	stamp := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return stamp })
	require.NoError(t, s.Load(ctx))

	d := s.OpenCreate()
	f, ok := schema.Screen{Fields: d.Fields}.Field("product_ids")
	require.True(t, ok)
	assert.Equal(t, "Mouse - R$ 59.90", f.LabelFor(f.Options[0]))

	s.Form().SetMultiSelectValue("product_ids", f.Options)
	require.NoError(t, s.Submit(ctx))
	require.Len(t, s.Items(), 1)
	o := s.Items()[0]
	assert.InDelta(t, 79.9, o.Total, 0.001)
	assert.True(t, o.Date.Equal(stamp))

	view := s.Table(ctx)
	assert.Equal(t, "15/03/2024", view.Rows[0].Cells[0].Text)
	assert.Equal(t, "R$ 79.90", view.Rows[0].Cells[1].Text)
	assert.Equal(t, "Mouse, Mousepad", view.Rows[0].Cells[2].Text)

	require.NoError(t, backend.DeleteProduct(ctx, mouse.ID))
	require.NoError(t, backend.DeleteProduct(ctx, pad.ID))
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, noProducts, s.Table(ctx).Rows[0].Cells[2].Text)
}

func TestOrdersDateFormatter(t *testing.T) {
	s, err := NewOrders(newBackend(t), loadSchemas(t), nil)
	require.NoError(t, err)
	view := table.Render(s.Columns(), []schema.Record{orderRecord(core.Order{ID: "o1"})}, table.Options{})
	assert.Equal(t, noDate, view.Rows[0].Cells[0].Text)
}

type failingBackend struct {
	catalog.Backend
	err error
}

func (f failingBackend) ListCategories(context.Context) ([]core.Category, error) {
	return nil, f.err
}

func (f failingBackend) ListProducts(context.Context) ([]core.Product, error) {
	return []core.Product{}, nil
}

func TestLoadPropagatesBackendErrors(t *testing.T) {
	boom := errors.New("connection refused")
	b := failingBackend{err: boom}

	cats, err := NewCategories(b, loadSchemas(t), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, cats.Load(context.Background()), boom)

	products, err := NewProducts(b, loadSchemas(t), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, products.Load(context.Background()), boom)
}

func TestUnknownScreen(t *testing.T) {
	_, err := NewCategories(newBackend(t), &schema.Catalog{}, nil)
	assert.ErrorIs(t, err, schema.ErrUnknownScreen)
}
