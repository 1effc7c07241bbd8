// Package domain provides the persisted models for ChartVault.
//
// Store and ledger methods return domain types only; callers never see
// database handles or driver rows.
package domain

import "time"

// AuditRecord is one immutable entry in the hash-chained audit trail.
//
// AuditHash covers a canonical serialization of the entry's own fields and
// PreviousHash links it to the prior entry, so any out-of-band edit to a
// persisted row is detectable on verification.
type AuditRecord struct {
	SequenceID     int64     `gorm:"column:audit_id;primaryKey;autoIncrement" json:"audit_id"`
	EventTimestamp time.Time `gorm:"column:event_timestamp;index:idx_audit_log_timestamp" json:"event_timestamp"`
	UserID         string    `gorm:"column:user_id;size:255;not null;index:idx_audit_log_user_id" json:"user_id"`
	SessionID      string    `gorm:"column:session_id;size:255" json:"session_id,omitempty"`
	EventType      EventType `gorm:"column:event_type;size:50;not null;index:idx_audit_log_event_type" json:"event_type"`

	// EntityTable and RecordID are a weak back-reference: ledger entries
	// outlive the rows they describe.
	EntityTable string `gorm:"column:table_name;size:100;index:idx_audit_log_table_name" json:"table_name,omitempty"`
	RecordID    string `gorm:"column:record_id;size:255;index:idx_audit_log_record_id" json:"record_id,omitempty"`

	// OperationDetails holds serialized JSON, commonly {"before":…,"after":…}.
	OperationDetails string `gorm:"column:operation_details" json:"operation_details,omitempty"`

	IPAddress string `gorm:"column:ip_address;size:45" json:"ip_address,omitempty"`
	UserAgent string `gorm:"column:user_agent;size:500" json:"user_agent,omitempty"`

	FileOperation bool   `gorm:"column:file_operation;default:false" json:"file_operation"`
	FilePath      string `gorm:"column:file_path;size:500" json:"file_path,omitempty"`
	FileHash      string `gorm:"column:file_hash;size:64" json:"file_hash,omitempty"`

	// PreviousHash is nil only for the first entry of the chain (or the
	// first entry surviving a retention purge).
	PreviousHash *string `gorm:"column:previous_hash;size:64" json:"previous_hash"`
	AuditHash    string  `gorm:"column:audit_hash;size:64;not null;index:idx_audit_log_audit_hash" json:"audit_hash"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName maps AuditRecord to the audit_log table.
func (AuditRecord) TableName() string { return "audit_log" }

// Appointment is the primary clinical record.
//
// Soft deletion flips IsDeleted and stamps provenance; the row and its
// versions stay in place until a hard delete or retention purge removes them.
type Appointment struct {
	AppointmentID   int64  `gorm:"column:appointment_id;primaryKey;autoIncrement" json:"appointment_id"`
	AppointmentCode string `gorm:"column:appointment_code;size:50;not null;uniqueIndex:idx_appointments_code" json:"appointment_code"`
	PatientName     string `gorm:"column:patient_name;size:200;not null;index:idx_appointments_patient" json:"patient_name"`
	AppointmentDate string `gorm:"column:appointment_date;size:10;not null;index:idx_appointments_date" json:"appointment_date"`
	AppointmentTime string `gorm:"column:appointment_time;size:5;not null" json:"appointment_time"`
	AppointmentType string `gorm:"column:appointment_type;size:50" json:"appointment_type,omitempty"`
	Notes           string `gorm:"column:notes" json:"notes,omitempty"`
	FolderPath      string `gorm:"column:folder_path;size:500" json:"folder_path,omitempty"`

	CreatedDate time.Time  `gorm:"column:created_date;autoCreateTime" json:"created_date"`
	UpdatedAt   *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`
	UpdatedBy   string     `gorm:"column:updated_by;size:255" json:"updated_by,omitempty"`

	IsDeleted bool       `gorm:"column:is_deleted;default:false;index:idx_appointments_deleted" json:"is_deleted"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	DeletedBy string     `gorm:"column:deleted_by;size:255" json:"deleted_by,omitempty"`
}

// TableName maps Appointment to the appointments table.
func (Appointment) TableName() string { return "appointments" }

// AppointmentVersion is an append-only snapshot of an appointment's state
// immediately before an update. VersionNumber starts at 1 and increases
// strictly per appointment.
type AppointmentVersion struct {
	VersionID     int64 `gorm:"column:version_id;primaryKey;autoIncrement" json:"version_id"`
	AppointmentID int64 `gorm:"column:appointment_id;not null;index:idx_appointment_versions_appointment" json:"appointment_id"`
	VersionNumber int   `gorm:"column:version_number;not null" json:"version_number"`

	PatientName     string `gorm:"column:patient_name;size:200" json:"patient_name"`
	AppointmentDate string `gorm:"column:appointment_date;size:10" json:"appointment_date"`
	AppointmentTime string `gorm:"column:appointment_time;size:5" json:"appointment_time"`
	AppointmentType string `gorm:"column:appointment_type;size:50" json:"appointment_type,omitempty"`
	Notes           string `gorm:"column:notes" json:"notes,omitempty"`
	FolderPath      string `gorm:"column:folder_path;size:500" json:"folder_path,omitempty"`

	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreatedBy    string    `gorm:"column:created_by;size:255" json:"created_by"`
	ChangeReason string    `gorm:"column:change_reason;size:500" json:"change_reason,omitempty"`
}

// TableName maps AppointmentVersion to the appointment_versions table.
func (AppointmentVersion) TableName() string { return "appointment_versions" }

// AttachedFile ties a stored artifact (recording, transcript, extraction,
// filled form) to an appointment.
type AttachedFile struct {
	FileID        int64  `gorm:"column:file_id;primaryKey;autoIncrement" json:"file_id"`
	AppointmentID int64  `gorm:"column:appointment_id;not null;index:idx_files_appointment" json:"appointment_id"`
	FileType      string `gorm:"column:file_type;size:50;not null" json:"file_type"`
	FilePath      string `gorm:"column:file_path;size:500;not null" json:"file_path"`
	FileSize      int64  `gorm:"column:file_size" json:"file_size"`

	// FileHash is the SHA-256 content fingerprint used for audit correlation.
	FileHash string `gorm:"column:file_hash;size:64" json:"file_hash,omitempty"`

	CreatedDate  time.Time  `gorm:"column:created_date;autoCreateTime" json:"created_date"`
	LastAccessed *time.Time `gorm:"column:last_accessed" json:"last_accessed,omitempty"`

	RetentionPolicy RetentionPolicy `gorm:"column:retention_policy;size:20;not null;index:idx_files_retention" json:"retention_policy"`
	RetentionDate   string          `gorm:"column:retention_date;size:10;not null" json:"retention_date"`

	UpdatedAt *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`
	UpdatedBy string     `gorm:"column:updated_by;size:255" json:"updated_by,omitempty"`

	IsDeleted bool       `gorm:"column:is_deleted;default:false;index:idx_files_deleted" json:"is_deleted"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	DeletedBy string     `gorm:"column:deleted_by;size:255" json:"deleted_by,omitempty"`
}

// TableName maps AttachedFile to the files table.
func (AttachedFile) TableName() string { return "files" }

// FileVersion snapshots an attached file's metadata before an update.
type FileVersion struct {
	VersionID     int64 `gorm:"column:version_id;primaryKey;autoIncrement" json:"version_id"`
	FileID        int64 `gorm:"column:file_id;not null;index:idx_file_versions_file" json:"file_id"`
	VersionNumber int   `gorm:"column:version_number;not null" json:"version_number"`

	FileType        string          `gorm:"column:file_type;size:50" json:"file_type"`
	FilePath        string          `gorm:"column:file_path;size:500" json:"file_path"`
	FileSize        int64           `gorm:"column:file_size" json:"file_size"`
	FileHash        string          `gorm:"column:file_hash;size:64" json:"file_hash,omitempty"`
	RetentionPolicy RetentionPolicy `gorm:"column:retention_policy;size:20" json:"retention_policy"`

	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreatedBy    string    `gorm:"column:created_by;size:255" json:"created_by"`
	ChangeReason string    `gorm:"column:change_reason;size:500" json:"change_reason,omitempty"`
}

// TableName maps FileVersion to the file_versions table.
func (FileVersion) TableName() string { return "file_versions" }

// ProcessingStatus tracks per-step pipeline progress for an appointment
// (transcription, extraction, form filling).
type ProcessingStatus struct {
	StatusID      int64  `gorm:"column:status_id;primaryKey;autoIncrement" json:"status_id"`
	AppointmentID int64  `gorm:"column:appointment_id;not null;uniqueIndex:idx_processing_status_step" json:"appointment_id"`
	StepName      string `gorm:"column:step_name;size:50;not null;uniqueIndex:idx_processing_status_step" json:"step_name"`
	Status        string `gorm:"column:status;size:20;not null" json:"status"`

	StartTime    *time.Time `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime      *time.Time `gorm:"column:end_time" json:"end_time,omitempty"`
	ErrorMessage string     `gorm:"column:error_message" json:"error_message,omitempty"`

	CreatedDate time.Time `gorm:"column:created_date;autoCreateTime" json:"created_date"`
}

// TableName maps ProcessingStatus to the processing_status table.
func (ProcessingStatus) TableName() string { return "processing_status" }

// Processing step states.
const (
	StepStatusProcessing = "processing"
	StepStatusCompleted  = "completed"
	StepStatusFailed     = "failed"
)
