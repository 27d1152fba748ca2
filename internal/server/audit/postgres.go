package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/cipherrelay/internal/dbx"
	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
	"github.com/dmitrijs2005/cipherrelay/internal/server/repositories/repomanager"
)

// PostgresSink inserts records into the audit_records table.
type PostgresSink struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPostgresSink(db *sql.DB, m repomanager.RepositoryManager) *PostgresSink {
	return &PostgresSink{db: db, repomanager: m}
}

func (s *PostgresSink) Append(ctx context.Context, rec models.AuditRecord) error {
	if _, err := s.repomanager.AuditLog(s.db).Insert(ctx, rec); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// AppendBatch inserts all records in one transaction.
func (s *PostgresSink) AppendBatch(ctx context.Context, recs []models.AuditRecord) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.AuditLog(tx)
		for _, rec := range recs {
			if _, err := repo.Insert(ctx, rec); err != nil {
				return fmt.Errorf("insert audit record: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
