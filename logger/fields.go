package logger

// Standard field names for structured logging.
// Use these constants instead of raw strings so queries over logs stay stable.
const (
	FieldRequestID = "request_id"
	FieldBatchID   = "batch_id"
	FieldComponent = "component"

	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldBytes      = "bytes"

	FieldError = "error"
	FieldCount = "count"
	FieldFile  = "file"
	FieldLine  = "line"

	FieldDate      = "date"
	FieldStudentID = "student_id"
	FieldAddress   = "address"
)
