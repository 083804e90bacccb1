package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

const auditColumns = "id, actor_id, action, entity_type, entity_id, details, created_at"

// AuditRepository is the append-only audit trail sink. Rows are never
// updated or deleted.
type AuditRepository struct {
	ext sqlx.ExtContext
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{ext: db}
}

func auditRepoWith(ext sqlx.ExtContext) *AuditRepository {
	return &AuditRepository{ext: ext}
}

// Append writes one audit record.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, details, created_at)
		VALUES (:id, :actor_id, :action, :entity_type, :entity_id, :details, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.ext, query, entry); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// ListRecent returns the newest audit records, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT %s FROM audit_logs ORDER BY created_at DESC LIMIT %d", auditColumns, limit)
	var entries []models.AuditLog
	if err := sqlx.SelectContext(ctx, r.ext, &entries, query); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
