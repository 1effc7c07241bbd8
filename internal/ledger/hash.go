package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"chartvault.io/vault/internal/domain"
)

// EntryHash computes the SHA-256 digest of a record's canonical form:
// a key-sorted, compact JSON object over the content fields.
//
// The storage-assigned sequence id and timestamps are excluded so the digest
// is deterministic before insertion and recomputable from a persisted row.
// Optional fields serialize as null when unset so absent and empty collapse
// to the same canonical form.
func EntryHash(r *domain.AuditRecord) string {
	payload := map[string]interface{}{
		"user_id":           r.UserID,
		"session_id":        nullable(r.SessionID),
		"event_type":        string(r.EventType),
		"table_name":        nullable(r.EntityTable),
		"record_id":         nullable(r.RecordID),
		"operation_details": nullable(r.OperationDetails),
		"ip_address":        nullable(r.IPAddress),
		"user_agent":        nullable(r.UserAgent),
		"file_operation":    r.FileOperation,
		"file_path":         nullable(r.FilePath),
		"file_hash":         nullable(r.FileHash),
		"previous_hash":     r.PreviousHash,
	}

	// json.Marshal emits map keys in sorted order with no extra whitespace,
	// which is exactly the canonical form the digest is defined over.
	canonical, err := json.Marshal(payload)
	if err != nil {
		// A map of strings, bools, and nils cannot fail to marshal.
		panic("ledger: canonical serialization failed: " + err.Error())
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
