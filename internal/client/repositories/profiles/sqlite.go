package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/dbx"
)

// SQLiteRepository implements Repository over a dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.Profile) error {
	var deletedAt sql.NullInt64
	if p.DeletedAt != nil {
		deletedAt = sql.NullInt64{Int64: p.DeletedAt.UnixNano(), Valid: true}
	}

	var enrichment any
	if p.Enrichment != nil {
		b, err := json.Marshal(p.Enrichment)
		if err != nil {
			return fmt.Errorf("failed to encode enrichment: %w", err)
		}
		enrichment = b
	}

	query := `INSERT INTO profiles (id, share_code, legacy_id, display_name, deleted_at, enrichment)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET share_code = excluded.share_code,
				legacy_id = excluded.legacy_id,
				display_name = excluded.display_name,
				deleted_at = excluded.deleted_at,
				enrichment = excluded.enrichment
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.ShareCode, p.LegacyID, p.DisplayName, deletedAt, enrichment)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, ps []*models.Profile) error {
	if err := r.Clear(ctx); err != nil {
		return err
	}
	for _, p := range ps {
		if err := r.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Profile, error) {
	query := `SELECT id, share_code, legacy_id, display_name, deleted_at, enrichment FROM profiles ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select profiles: %w", err)
	}
	defer rows.Close()

	var result []*models.Profile
	for rows.Next() {
		var (
			p          models.Profile
			deletedAt  sql.NullInt64
			enrichment []byte
		)
		if err := rows.Scan(&p.ID, &p.ShareCode, &p.LegacyID, &p.DisplayName, &deletedAt, &enrichment); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		if deletedAt.Valid {
			t := time.Unix(0, deletedAt.Int64).UTC()
			p.DeletedAt = &t
		}
		if enrichment != nil {
			var e models.Enrichment
			if err := json.Unmarshal(enrichment, &e); err != nil {
				return nil, fmt.Errorf("failed to decode enrichment of %s: %w", p.ID, err)
			}
			p.Enrichment = &e
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}
	return nil
}
