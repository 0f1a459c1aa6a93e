// Package shareevents appends share events to PostgreSQL.
package shareevents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/kinlink/internal/dbx"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Create(ctx context.Context, ev *models.ShareEvent) (bool, error) {
	query := `
		INSERT INTO share_events (id, target_profile_id, target_share_code, referrer_profile_id, scanner_profile_id, method, occurred_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		ev.ID, ev.TargetProfileID, ev.TargetShareCode,
		nullable(ev.ReferrerProfileID), nullable(ev.ScannerProfileID),
		ev.Method, ev.OccurredAt, ev.ReceivedAt).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) CountForTarget(ctx context.Context, targetID string) (int64, error) {
	query := `
		SELECT count(*) FROM share_events
		WHERE target_profile_id = $1
	`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, targetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
