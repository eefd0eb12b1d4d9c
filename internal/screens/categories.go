package screens

import (
	"context"
	"slices"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/log"
	"backoffice/internal/schema"
	"backoffice/internal/table"
)

// Categories lists categories and edits them one at a time.
type Categories struct {
	backend catalog.Backend
	screen  schema.Screen
	logger  *log.Logger
	items   []core.Category
	dialog  dialog
}

func NewCategories(b catalog.Backend, schemas *schema.Catalog, logger *log.Logger) (*Categories, error) {
	screen, err := loadScreen(schemas, ScreenCategories)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Categories{
		backend: b,
		screen:  screen,
		logger:  logger.WithComponent(log.ComponentScreen).With(log.FieldScreen, ScreenCategories),
		dialog:  newDialog(),
	}, nil
}

func (s *Categories) Title() string { return s.screen.Title }

func (s *Categories) Load(ctx context.Context) error {
	items, err := s.backend.ListCategories(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load categories", log.FieldError, err)
		return err
	}
	s.items = items
	return nil
}

func (s *Categories) Items() []core.Category {
	return slices.Clone(s.items)
}

func (s *Categories) Records() []schema.Record {
	out := make([]schema.Record, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, categoryRecord(c))
	}
	return out
}

// Table renders the list. Edit opens the form on the row; delete removes the
// category and refetches using ctx.
func (s *Categories) Table(ctx context.Context) table.View {
	return table.Render(s.screen.Columns, s.Records(), s.options(ctx))
}

// Page renders one page of the list with the pagination footer.
func (s *Categories) Page(ctx context.Context, index, size int) table.View {
	return renderPage(s.screen.Columns, s.Records(), s.options(ctx), index, size)
}

func (s *Categories) options(ctx context.Context) table.Options {
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

func (s *Categories) Fields() []schema.FieldSpec {
	return append([]schema.FieldSpec(nil), s.screen.Fields...)
}

func (s *Categories) OpenCreate() Dialog {
	s.dialog.open(ModeCreate, "", s.Fields(), nil)
	return s.Dialog()
}

func (s *Categories) OpenEdit(id string) (Dialog, error) {
	i := slices.IndexFunc(s.items, func(c core.Category) bool { return c.ID == core.NormalizeID(id) })
	if i < 0 {
		return Dialog{}, catalog.ErrNotFound
	}
	fields := s.Fields()
	s.dialog.open(ModeEdit, id, fields, form.FromRecord(fields, categoryRecord(s.items[i])))
	return s.Dialog(), nil
}

func (s *Categories) Dialog() Dialog {
	return s.dialog.snapshot("Nova Categoria", "Editar Categoria")
}

// Form exposes the engine of the open dialog for input.
func (s *Categories) Form() *form.Engine { return s.dialog.engine }

func (s *Categories) Close() { s.dialog.close() }

// Submit saves the open form and refetches. On a validation failure the form
// stays open with its errors.
func (s *Categories) Submit(ctx context.Context) error {
	values, err := s.dialog.submit()
	if err != nil {
		return err
	}
	in := catalog.CategoryInput{Name: values.Get("name").Text()}

	if s.dialog.mode == ModeEdit {
		_, err = s.backend.UpdateCategory(ctx, s.dialog.id, in)
	} else {
		_, err = s.backend.CreateCategory(ctx, in)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save category", log.FieldError, err, log.FieldEntityID, s.dialog.id)
		return err
	}
	s.dialog.close()
	return s.Load(ctx)
}

func (s *Categories) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteCategory(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete category", log.FieldError, err, log.FieldEntityID, id)
		return err
	}
	return s.Load(ctx)
}

func categoryRecord(c core.Category) schema.Record {
	return schema.Record{"_id": c.ID, "name": c.Name}
}
