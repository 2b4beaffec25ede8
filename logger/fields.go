package logger

// Standard field names for consistent structured logging across go-ews.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and correlation
	FieldRequestID = "request_id"
	FieldFolder    = "folder"
	FieldItemID    = "item_id"
	FieldShape     = "shape"

	// Query
	FieldQuery      = "query"
	FieldField      = "field"
	FieldOperator   = "operator"
	FieldPageSize   = "page_size"
	FieldOffset     = "offset"
	FieldProjection = "projection"

	// Bulk
	FieldChunk      = "chunk"
	FieldChunkSize  = "chunk_size"
	FieldBatchSize  = "batch_size"
	FieldTotalCount = "total_count"
	FieldKind       = "kind"

	// Fault handling
	FieldAttempt   = "attempt"
	FieldBackoff   = "backoff"
	FieldError     = "error"
	FieldErrorKind = "error_kind"
	FieldRetryable = "retryable"

	// Timing
	FieldDurationMS = "duration_ms"

	// Counts
	FieldCount = "count"
)
