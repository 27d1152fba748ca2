package auditlog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cipherrelay/internal/dbx"
	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, rec models.AuditRecord) (int64, error) {
	keys := `{}`
	if !rec.EncryptedKeys.IsZero() {
		keys = string(rec.EncryptedKeys)
	}

	query :=
		`INSERT INTO audit_records (recorded_at, sender, recipient, encrypted_message, iv, encrypted_keys)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rec.Timestamp.UTC(), rec.From, rec.To,
		string(rec.EncryptedMessage.JSON()), string(rec.IV.JSON()), keys).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return id, nil
}
