package verificationcodes

import (
	"context"
	"time"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
)

type Repository interface {
	// Replace upserts the active code for (user, type); a previous code for
	// the same pair is overwritten.
	Replace(ctx context.Context, code *models.VerificationCode) error
	GetActive(ctx context.Context, userID int64, t models.VerificationType) (*models.VerificationCode, error)
	DeleteByUserAndType(ctx context.Context, userID int64, t models.VerificationType) error
	// DeleteExpired removes every code whose expiry is before now and
	// returns the number of rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
