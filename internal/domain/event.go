package domain

// EventType classifies an audit trail entry.
//
// The set is closed: Append rejects any value not listed here so the trail
// stays queryable by a fixed vocabulary.
type EventType string

const (
	// Record lifecycle
	EventCreate     EventType = "CREATE"
	EventRead       EventType = "READ"
	EventUpdate     EventType = "UPDATE"
	EventDelete     EventType = "DELETE"
	EventSoftDelete EventType = "SOFT_DELETE"
	EventExport     EventType = "EXPORT"

	// Session events
	EventLogin  EventType = "LOGIN"
	EventLogout EventType = "LOGOUT"

	// Cryptography events
	EventEncrypt     EventType = "ENCRYPT"
	EventDecrypt     EventType = "DECRYPT"
	EventKeyRotation EventType = "KEY_ROTATION"

	// File events
	EventFileAccess EventType = "FILE_ACCESS"
	EventFileDelete EventType = "FILE_DELETE"

	// Maintenance events
	EventBackupCreate  EventType = "BACKUP_CREATE"
	EventBackupRestore EventType = "BACKUP_RESTORE"
	EventMigration     EventType = "MIGRATION"
	EventSystemEvent   EventType = "SYSTEM_EVENT"
)

var knownEventTypes = map[EventType]struct{}{
	EventCreate:        {},
	EventRead:          {},
	EventUpdate:        {},
	EventDelete:        {},
	EventSoftDelete:    {},
	EventExport:        {},
	EventLogin:         {},
	EventLogout:        {},
	EventEncrypt:       {},
	EventDecrypt:       {},
	EventKeyRotation:   {},
	EventFileAccess:    {},
	EventFileDelete:    {},
	EventBackupCreate:  {},
	EventBackupRestore: {},
	EventMigration:     {},
	EventSystemEvent:   {},
}

// IsValid reports whether t is a member of the closed event type set.
func (t EventType) IsValid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// String implements fmt.Stringer.
func (t EventType) String() string { return string(t) }

// EventTypes returns the full closed set, in declaration order.
func EventTypes() []EventType {
	return []EventType{
		EventCreate, EventRead, EventUpdate, EventDelete,
		EventSoftDelete, EventExport,
		EventLogin, EventLogout,
		EventEncrypt, EventDecrypt, EventKeyRotation,
		EventFileAccess, EventFileDelete,
		EventBackupCreate, EventBackupRestore,
		EventMigration, EventSystemEvent,
	}
}
