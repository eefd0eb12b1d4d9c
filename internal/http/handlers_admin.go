package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/aggregate"
	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/form"
	"backoffice/internal/log"
	"backoffice/internal/screens"
	"backoffice/internal/table"
)

// crudScreen is what the console pages need from a list-and-edit screen.
type crudScreen interface {
	Title() string
	Load(ctx context.Context) error
	Table(ctx context.Context) table.View
	Page(ctx context.Context, index, size int) table.View
	OpenCreate() screens.Dialog
	OpenEdit(id string) (screens.Dialog, error)
	Dialog() screens.Dialog
	Form() *form.Engine
	Submit(ctx context.Context) error
}

var (
	errUnknownScreen = errors.New("unknown screen")

	_ crudScreen = (*screens.Categories)(nil)
	_ crudScreen = (*screens.Products)(nil)
	_ crudScreen = (*screens.Orders)(nil)
)

// entityNames label notifications per screen.
var entityNames = map[string]string{
	screens.ScreenCategories: "Categoria",
	screens.ScreenProducts:   "Produto",
	screens.ScreenOrders:     "Pedido",
}

// newScreen builds a fresh screen for one request.
func (s *Server) newScreen(ctx context.Context, kind string) (crudScreen, error) {
	logger := log.FromContext(ctx)
	switch kind {
	case screens.ScreenCategories:
		return screens.NewCategories(s.deps.Backend, s.deps.Schemas, logger)
	case screens.ScreenProducts:
		return screens.NewProducts(s.deps.Backend, s.deps.Schemas, logger)
	case screens.ScreenOrders:
		o, err := screens.NewOrders(s.deps.Backend, s.deps.Schemas, logger)
		if err != nil {
			return nil, err
		}
		o.SetClock(s.now)
		return o, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownScreen, kind)
}

// loadScreen builds and loads the screen named in the URL.
func (s *Server) loadScreen(r *http.Request) (string, crudScreen, error) {
	kind := chi.URLParam(r, "kind")
	sc, err := s.newScreen(r.Context(), kind)
	if err != nil {
		return kind, nil, err
	}
	if err := sc.Load(r.Context()); err != nil {
		return kind, nil, err
	}
	return kind, sc, nil
}

// adminError answers a console request that could not be served.
func (s *Server) adminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errUnknownScreen), errors.Is(err, table.ErrUnknownRow), errors.Is(err, catalog.ErrNotFound):
		NotFoundError("Registro não encontrado").Write(w)
	default:
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Console request failed",
				log.FieldError, err, log.FieldPath, r.URL.Path)
		}
		ErrorResponse(status, "Erro ao carregar os dados").
			TriggerErrorNotification("Erro ao carregar os dados").
			Write(w)
	}
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	kind, sc, err := s.loadScreen(r)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	pageIdx, size := ParsePage(r.URL.Query())
	tm := newTableModel(kind, sc.Page(r.Context(), pageIdx, pageSize(size)))
	if r.Header.Get("HX-Request") != "" {
		s.writePage(w, r, http.StatusOK, "table", tm)
		return
	}
	page := screenPage{
		Title: sc.Title(),
		Nav:   navFor("/admin/" + kind),
		Kind:  kind,
		Table: tm,
	}
	s.writePage(w, r, http.StatusOK, "screen.html", page)
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	kind, sc, err := s.loadScreen(r)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	s.writePage(w, r, http.StatusOK, "form", newFormModel(kind, sc.OpenCreate()))
}

// handleEditForm opens the form through the table's edit action, so the row
// must be in the freshly loaded list.
func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	kind, sc, err := s.loadScreen(r)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	if err := sc.Table(r.Context()).Dispatch(table.ActionEdit, core.NormalizeID(chi.URLParam(r, "id"))); err != nil {
		s.adminError(w, r, err)
		return
	}
	s.writePage(w, r, http.StatusOK, "form", newFormModel(kind, sc.Dialog()))
}

// handleSubmit saves a create (no id) or edit form. Validation failures
// re-render the form with 422; success swaps in the refreshed table.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, sc, err := s.loadScreen(r)
	if err != nil {
		s.adminError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		sc.OpenCreate()
	} else if _, err := sc.OpenEdit(id); err != nil {
		s.adminError(w, r, err)
		return
	}

	if err := ApplyFormValues(sc.Form(), r); err != nil {
		s.formError(w, r, kind, sc, err)
		return
	}
	if err := sc.Submit(ctx); err != nil {
		s.formError(w, r, kind, sc, err)
		return
	}

	action, message := "created", entityNames[kind]+" criado(a) com sucesso"
	if id != "" {
		action, message = "updated", entityNames[kind]+" atualizado(a) com sucesso"
	}
	b := NewHTMXResponse().
		TriggerDialogClose().
		TriggerEntityChanged(kind, action).
		TriggerSuccessNotification(message)
	if id == "" {
		b.TriggerFormReset()
	}
	if kind == screens.ScreenOrders {
		if id == "" {
			s.ordersCreated.Add(1)
		}
		b.TriggerDashboardRefresh()
	}
	s.writeTable(w, r, kind, sc, b)
}

// formError re-renders the open form in place of the table target.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, kind string, sc crudScreen, err error) {
	model := newFormModel(kind, sc.Dialog())
	status := http.StatusUnprocessableEntity
	if !errors.Is(err, form.ErrValidationFailed) {
		status = statusFor(err)
		model.Error = saveErrorMessage(err)
	}
	html, rerr := s.render(r, "form", model)
	if rerr != nil {
		InternalServerError("Erro ao exibir o formulário").Write(w)
		return
	}
	b := NewHTMXResponse().
		Status(status).
		Header("HX-Retarget", "#dialog").
		Header("HX-Reswap", "innerHTML").
		BodyHTML(html)
	if model.Error != "" {
		b.TriggerErrorNotification(model.Error)
	}
	b.Write(w)
}

// handleDelete removes the row through the table's delete action and returns
// the refreshed table.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, sc, err := s.loadScreen(r)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	if err := sc.Table(r.Context()).Dispatch(table.ActionDelete, core.NormalizeID(chi.URLParam(r, "id"))); err != nil {
		s.adminError(w, r, err)
		return
	}
	b := NewHTMXResponse().
		TriggerEntityChanged(kind, "deleted").
		TriggerSuccessNotification(entityNames[kind] + " excluído(a) com sucesso")
	if kind == screens.ScreenOrders {
		b.TriggerDashboardRefresh()
	}
	s.writeTable(w, r, kind, sc, b)
}

func (s *Server) handleImagePreview(w http.ResponseWriter, r *http.Request) {
	p, err := screens.NewProducts(s.deps.Backend, s.deps.Schemas, log.FromContext(r.Context()))
	if err == nil {
		err = p.Load(r.Context())
	}
	if err == nil {
		err = p.Table(r.Context()).Dispatch(table.ActionViewImage, core.NormalizeID(chi.URLParam(r, "id")))
	}
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	url := p.ImagePreview()
	if url == "" {
		NotFoundError("Imagem não encontrada").Write(w)
		return
	}
	s.writePage(w, r, http.StatusOK, "image_preview", struct{ URL string }{URL: url})
}

func (s *Server) writeTable(w http.ResponseWriter, r *http.Request, kind string, sc crudScreen, b *HTMXResponseBuilder) {
	tm := newTableModel(kind, sc.Page(r.Context(), 0, defaultPageSize))
	html, err := s.render(r, "table", tm)
	if err != nil {
		InternalServerError("Erro ao exibir a tabela").Write(w)
		return
	}
	b.BodyHTML(html).Write(w)
}

// handleDashboard renders the whole page, or only its body for HTMX requests.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := screens.NewDashboard(s.deps.Backend, s.deps.Schemas, log.FromContext(ctx))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	d.SetClock(s.now)

	query := r.URL.Query()
	period := aggregate.Daily
	if query.Get("reset") != "" {
		d.ResetFilters()
	} else {
		filters, p, err := ParseDashboardFilters(query, s.now())
		if err != nil {
			BadRequestError("Filtros inválidos").Write(w)
			return
		}
		d.SetFilters(filters)
		period = p
	}
	if err := d.Load(ctx); err != nil {
		s.adminError(w, r, err)
		return
	}
	d.SetPeriod(period)

	body := newDashboardModel(d)
	if r.Header.Get("HX-Request") != "" {
		s.writePage(w, r, http.StatusOK, "dashboard_body", body)
		return
	}
	s.writePage(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		Title: "Dashboard",
		Nav:   navFor("/admin/dashboard"),
		Body:  body,
	})
}

// saveErrorMessage turns a backend failure into the message shown on the form.
func saveErrorMessage(err error) string {
	switch {
	case errors.Is(err, catalog.ErrBlobDisabled):
		return "Armazenamento de imagens não configurado"
	case errors.Is(err, core.ErrUnknownProduct):
		return "Produto inexistente no pedido"
	case errors.Is(err, catalog.ErrUnknownCategory):
		return "Categoria inexistente"
	case errors.Is(err, core.ErrInvalidPrice):
		return "Preço inválido"
	case errors.Is(err, catalog.ErrNotFound):
		return "Registro não encontrado"
	case statusFor(err) == http.StatusBadRequest:
		return "Dados inválidos"
	}
	return "Erro ao salvar"
}
