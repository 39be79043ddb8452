// Package resources provides the PostgreSQL-backed repository for the slice
// of listing data the messaging core needs.
package resources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/common"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/dbx"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Resource, error) {
	query := `SELECT id, user_id, title, city, status, created_at FROM resources WHERE id=$1`

	var (
		res    models.Resource
		status string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&res.ID, &res.UserID, &res.Title, &res.City, &status, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select resource: %w", err)
	}

	parsed, err := models.ParseResourceStatus(status)
	if err != nil {
		return nil, fmt.Errorf("stored resource %d: %w", res.ID, err)
	}
	res.Status = parsed
	return &res, nil
}
