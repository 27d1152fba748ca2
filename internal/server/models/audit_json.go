package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuditTimeLayout is the ISO-8601 layout used for the timestamp field.
const AuditTimeLayout = time.RFC3339Nano

type auditRecordJSON struct {
	Timestamp string `json:"timestamp"`
	auditRecordAlias
}

type auditRecordAlias AuditRecord

// MarshalJSON renders the record with the timestamp first, in UTC.
func (r AuditRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(auditRecordJSON{
		Timestamp:        r.Timestamp.UTC().Format(AuditTimeLayout),
		auditRecordAlias: auditRecordAlias(r),
	})
}

func (r *AuditRecord) UnmarshalJSON(b []byte) error {
	var raw auditRecordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = AuditRecord(raw.auditRecordAlias)
	if raw.Timestamp == "" {
		return nil
	}
	ts, err := time.Parse(AuditTimeLayout, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("audit timestamp: %w", err)
	}
	r.Timestamp = ts.UTC()
	return nil
}
