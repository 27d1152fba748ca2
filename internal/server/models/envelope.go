package models

import "time"

// Envelope is one routed unit of ciphertext. The relay reads only To and
// From; every other field is a Blob carried verbatim.
type Envelope struct {
	To               string
	From             string
	EncryptedMessage Blob
	EncryptedKeys    Blob
	IV               Blob
	Timestamp        Blob
}

// AuditRecord is one line of the append-only audit log.
type AuditRecord struct {
	Timestamp        time.Time `json:"-"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	EncryptedMessage Blob      `json:"encrypted_message"`
	IV               Blob      `json:"iv"`
	EncryptedKeys    Blob      `json:"encrypted_keys"`
}

// NewAuditRecord stamps env with the given instant, normalized to UTC.
func NewAuditRecord(env Envelope, at time.Time) AuditRecord {
	return AuditRecord{
		Timestamp:        at.UTC(),
		From:             env.From,
		To:               env.To,
		EncryptedMessage: env.EncryptedMessage,
		IV:               env.IV,
		EncryptedKeys:    env.EncryptedKeys,
	}
}
