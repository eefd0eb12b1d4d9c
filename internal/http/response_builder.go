package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Events raised on the console through HX-Trigger. web/static/app.js listens
// for these names.
const (
	EventCatalogChanged   = "catalog:changed"
	EventDialogClose      = "dialog:close"
	EventFormReset        = "form:reset"
	EventDashboardRefresh = "dashboard:refresh"
	EventNotification     = "show-notification"
)

// Notification kinds understood by the console toast, with how long each
// stays on screen.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"

	successDurationMs = 3000
	errorDurationMs   = 5000
)

// HTMXResponseBuilder collects the status, headers, HX-Trigger events and
// HTML body of one console response.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// Trigger queues an event. A later event with the same name replaces the
// earlier one.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerEntityChanged tells listeners which list changed and how
// (created, updated, deleted).
func (b *HTMXResponseBuilder) TriggerEntityChanged(entity, action string) *HTMXResponseBuilder {
	return b.Trigger(EventCatalogChanged, map[string]string{"entity": entity, "action": action})
}

func (b *HTMXResponseBuilder) TriggerDialogClose() *HTMXResponseBuilder {
	return b.Trigger(EventDialogClose, struct{}{})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

// TriggerDashboardRefresh makes an open dashboard reload with its current
// filters. Sent after order writes.
func (b *HTMXResponseBuilder) TriggerDashboardRefresh() *HTMXResponseBuilder {
	return b.Trigger(EventDashboardRefresh, struct{}{})
}

func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, successDurationMs)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, errorDurationMs)
}

// BodyHTML sets an HTML fragment as the body.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the response. Events that fail to encode are dropped rather
// than failing the response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if events, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(events))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders message, escaped, in the console's error banner.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
