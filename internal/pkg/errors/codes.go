package errors

// Error code constants. Errors carry code + params; log output stays English.

// Ledger error codes.
const (
	CodeActorRequired     = "ACTOR_REQUIRED"
	CodeEventKindUnknown  = "EVENT_KIND_UNKNOWN"
	CodeLedgerAppendFail  = "LEDGER_APPEND_FAILED"
	CodeLedgerExportFail  = "LEDGER_EXPORT_FAILED"
	CodeExportFormat      = "EXPORT_FORMAT_UNSUPPORTED"
	CodeRetentionRange    = "RETENTION_OUT_OF_RANGE"
	CodeLedgerVerifyFail  = "LEDGER_VERIFY_FAILED"
	CodeLedgerPurgeFail   = "LEDGER_PURGE_FAILED"
	CodeLedgerQueryFail   = "LEDGER_QUERY_FAILED"
)

// Record store error codes.
const (
	CodeRecordNotFound   = "RECORD_NOT_FOUND"
	CodeRecordCreateFail = "RECORD_CREATE_FAILED"
	CodeRecordUpdateFail = "RECORD_UPDATE_FAILED"
	CodeRecordDeleteFail = "RECORD_DELETE_FAILED"
	CodePatientNameEmpty = "PATIENT_NAME_REQUIRED"
)

// Retention / cleanup error codes.
const (
	CodeCleanupFail = "CLEANUP_FAILED"
)

// Encryption error codes.
const (
	CodeCipherKeyInvalid = "CIPHER_KEY_INVALID"
	CodeDecryptFail      = "DECRYPT_FAILED"
)

// Convenience constructors using predefined codes.

// ErrActorRequired rejects an audit write with an empty actor id.
func ErrActorRequired() *AppError {
	return Validation(CodeActorRequired, "actor id must not be empty")
}

// ErrEventKindUnknown rejects an event kind outside the closed enumeration.
func ErrEventKindUnknown(kind string) *AppError {
	return Validation(CodeEventKindUnknown, "unknown audit event kind").
		WithParams(map[string]interface{}{"event_kind": kind})
}

// ErrRetentionOutOfRange rejects a retention period outside [1,10] years.
func ErrRetentionOutOfRange(years int) *AppError {
	return Validation(CodeRetentionRange, "retention period must be between 1 and 10 years").
		WithParams(map[string]interface{}{"retention_years": years})
}

// ErrExportFormat rejects an unsupported export format.
func ErrExportFormat(format string) *AppError {
	return Validation(CodeExportFormat, "unsupported export format").
		WithParams(map[string]interface{}{"format": format})
}
