package logger

import "go.uber.org/zap"

// Standard field names for consistent structured logging across sitrack.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldComponent = "component"

	// Tracking
	FieldTrackID      = "track_id"
	FieldLocationID   = "location_id"
	FieldInstanceType = "instance_type"
	FieldRecordID     = "record_id"
	FieldTimestamp    = "timestamp"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount     = "count"
	FieldBatchSize = "batch_size"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	ledger := storage.NewPresenceStore(db, logger.ComponentLogger("track.ledger"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context fields.
//
// Example:
//
//	reqLogger := logger.ChildLogger(base, logger.FieldRequestID, reqID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
