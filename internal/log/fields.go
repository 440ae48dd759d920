package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldFilter        = "filter"
	FieldGeneration    = "generation"
	FieldSnapshotID    = "snapshot_id"
	FieldTransactionID = "transaction_id"
	FieldAccountID     = "account_id"
	FieldCategoryID    = "category_id"
	FieldAmount        = "amount"
	FieldPeriodStart   = "period_start"
	FieldPeriodEnd     = "period_end"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentExport  = "export"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpLoad     = "load"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpExport   = "export"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
