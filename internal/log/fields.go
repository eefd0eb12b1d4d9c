package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldReferer      = "referer"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldEntity       = "entity"
	FieldEntityID     = "entity_id"
	FieldOrderID      = "order_id"
	FieldOrderTotal   = "order_total"
	FieldProductCount = "product_count"
	FieldRecordCount  = "record_count"
	FieldStartDate    = "start_date"
	FieldEndDate      = "end_date"
	FieldPeriod       = "period"
	FieldBlobKey      = "blob_key"
	FieldSheetsRef    = "sheets_ref"
	FieldScreen       = "screen"
	FieldErrorType    = "error_type"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentCatalog   = "catalog"
	ComponentOrder     = "order"
	ComponentDashboard = "dashboard"
	ComponentClient    = "client"
	ComponentScreen    = "screen"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate  = "create"
	OpProcess = "process"
	OpUpload  = "upload"
	OpReport  = "report"
	OpSeed    = "seed"
	OpRender  = "render"
)

// ErrorTypes categorise logged failures
const (
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntity adds the kind and id of the entity being handled
func (f LogFields) WithEntity(entity, id string) LogFields {
	f[FieldEntity] = entity
	if id != "" {
		f[FieldEntityID] = id
	}
	return f
}

// WithOrder adds order-related fields
func (f LogFields) WithOrder(id string, total float64, productCount int) LogFields {
	f[FieldOrderID] = id
	f[FieldOrderTotal] = total
	f[FieldProductCount] = productCount
	return f
}

// WithDateRange adds report range fields; zero times are omitted
func (f LogFields) WithDateRange(start, end string) LogFields {
	if start != "" {
		f[FieldStartDate] = start
	}
	if end != "" {
		f[FieldEndDate] = end
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}