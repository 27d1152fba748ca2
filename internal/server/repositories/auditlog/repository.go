// Package auditlog stores audit records in PostgreSQL. It is write-only:
// nothing in the relay reads the records back.
package auditlog

import (
	"context"

	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, rec models.AuditRecord) (int64, error)
}
