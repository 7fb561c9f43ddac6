package repository

import (
	"context"
	"fmt"
	"strings"

	"giveaway/database"
	"giveaway/models"

	"github.com/jackc/pgx/v5"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
)

// AuditRepository implements service.AuditRepository.
// It always runs on the pool: audit rows are written after the business transaction commits.
type AuditRepository struct {
	q queryable
}

// NewAuditRepository creates an audit repository on the pool
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{q: db.Pool}
}

// Append inserts an audit row. The caller assigns ID and CreatedAt.
func (r *AuditRepository) Append(ctx context.Context, entry *models.GiveawayAudit) error {
	query := `
		INSERT INTO giveaway_audit (id, giveaway_id, action, actor_id, target_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.q.Exec(ctx, query,
		entry.ID,
		entry.GiveawayID,
		entry.Action,
		entry.ActorID,
		entry.TargetID,
		entry.Note,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry %s: %w", entry.ID, err)
	}

	return nil
}

// List returns one page of audit rows matching filter, oldest first, plus the total match count
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]*models.GiveawayAudit, int64, error) {
	where, args := buildAuditWhere(filter)

	var total int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM giveaway_audit`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, giveaway_id, action, actor_id, target_id, note, created_at
		FROM giveaway_audit%s
		ORDER BY created_at ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.GiveawayAudit, error) {
		var e models.GiveawayAudit
		err := row.Scan(&e.ID, &e.GiveawayID, &e.Action, &e.ActorID, &e.TargetID, &e.Note, &e.CreatedAt)
		return &e, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan audit entries: %w", err)
	}

	return entries, total, nil
}

func buildAuditWhere(filter models.AuditFilter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.GiveawayID != nil {
		add("giveaway_id = $%d", *filter.GiveawayID)
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(actor_id = $%d OR target_id = $%d)", n, n))
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
