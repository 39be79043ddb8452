package messages

import (
	"context"
	"time"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
)

// Repository is the persistence contract for message records. List queries
// exclude rows the viewing party has deleted and order newest first.
type Repository interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	ListInbox(ctx context.Context, recipientID int64, limit, offset int) ([]*models.Message, error)
	ListSent(ctx context.Context, senderID int64, limit, offset int) ([]*models.Message, error)
	ListUnread(ctx context.Context, recipientID int64, limit, offset int) ([]*models.Message, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
	MarkRead(ctx context.Context, id int64, readAt time.Time) error
	SetDeletionFlags(ctx context.Context, id int64, bySender, byRecipient bool) error
	Delete(ctx context.Context, id int64) error
}
