package users

import (
	"context"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// ListActiveRegular returns enabled role-USER accounts, excluding the
	// given account id. Used to build the available-recipients listing.
	ListActiveRegular(ctx context.Context, excludeID int64) ([]*models.User, error)
	SetVerified(ctx context.Context, id int64) error
}
