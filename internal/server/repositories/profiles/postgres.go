// Package profiles stores registry profiles in PostgreSQL.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/dbx"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
)

const selectColumns = `SELECT id, share_code, legacy_id, display_name, biography, photo_key, version, deleted_at, created_at
		FROM profiles`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts p with the id and share code already set. A share code
// collision is reported as ErrShareCodeTaken without failing the
// surrounding transaction. An empty legacy id is stored as NULL.
func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, share_code, legacy_id, display_name, biography, photo_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (share_code) DO NOTHING
		RETURNING version, created_at
	`

	legacy := sql.NullString{String: p.LegacyID, Valid: p.LegacyID != ""}
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.ShareCode, legacy, p.DisplayName, p.Biography, p.PhotoKey).Scan(&p.Version, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShareCodeTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByShareCode(ctx context.Context, code string) (*models.Profile, error) {
	return r.getOne(ctx, selectColumns+` WHERE share_code = $1`, code)
}

func (r *PostgresRepository) GetByLegacyID(ctx context.Context, legacyID string) (*models.Profile, error) {
	return r.getOne(ctx, selectColumns+` WHERE legacy_id = $1`, legacyID)
}

// GetMany returns the profiles among ids that exist, in no particular order.
func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) ([]*models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := selectColumns + ` WHERE id IN (` + strings.Join(marks, ", ") + `)`
	return r.getMany(ctx, query, args...)
}

// List returns up to limit profiles, oldest first. Deleted profiles are
// included so that clients learn about deletions.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.Profile, error) {
	return r.getMany(ctx, selectColumns+` ORDER BY created_at, id LIMIT $1`, limit)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*models.Profile, error) {
	var (
		p       models.Profile
		legacy  sql.NullString
		deleted sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.ShareCode, &legacy, &p.DisplayName, &p.Biography, &p.PhotoKey, &p.Version, &deleted, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.LegacyID = legacy.String
	if deleted.Valid {
		t := deleted.Time
		p.DeletedAt = &t
	}
	return &p, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) getMany(ctx context.Context, query string, args ...any) ([]*models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
