package resources

import (
	"context"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*models.Resource, error)
}
