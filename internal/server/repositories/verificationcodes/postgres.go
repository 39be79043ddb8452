// Package verificationcodes provides the PostgreSQL-backed repository for
// short-lived email verification codes.
package verificationcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Replace(ctx context.Context, code *models.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (id, user_id, code, type, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, type)
		DO UPDATE SET id = EXCLUDED.id, code = EXCLUDED.code,
			expires_at = EXCLUDED.expires_at, created_at = now();
	`
	_, err := r.db.ExecContext(ctx, query,
		code.ID, code.UserID, code.Code, string(code.Type), code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert verification code: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetActive(ctx context.Context, userID int64, t models.VerificationType) (*models.VerificationCode, error) {
	query := `SELECT id, user_id, code, type, expires_at, created_at
		FROM verification_codes WHERE user_id=$1 AND type=$2`

	var (
		vc       models.VerificationCode
		codeType string
	)
	err := r.db.QueryRowContext(ctx, query, userID, string(t)).Scan(
		&vc.ID, &vc.UserID, &vc.Code, &codeType, &vc.ExpiresAt, &vc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select verification code: %w", err)
	}
	vc.Type = models.VerificationType(codeType)
	return &vc, nil
}

func (r *PostgresRepository) DeleteByUserAndType(ctx context.Context, userID int64, t models.VerificationType) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE user_id=$1 AND type=$2`, userID, string(t))
	if err != nil {
		return fmt.Errorf("failed to delete verification code: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired codes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
