package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cipherrelay/internal/dbx"
	"github.com/dmitrijs2005/cipherrelay/internal/server/repositories/auditlog"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	AuditLog(db dbx.DBTX) auditlog.Repository
}
