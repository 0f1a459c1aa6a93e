// Package permissions stores explicit per-pair access levels.
package permissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/dbx"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Find(ctx context.Context, callerID, targetID string) (*models.Permission, error) {
	query := `
		SELECT caller_id, target_id, level FROM permissions
		WHERE caller_id = $1 AND target_id = $2
	`

	p := &models.Permission{}
	var level string
	err := r.db.QueryRowContext(ctx, query, callerID, targetID).Scan(&p.CallerID, &p.TargetID, &level)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Level = models.PermissionLevel(level)
	return p, nil
}
