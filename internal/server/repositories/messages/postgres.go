// Package messages provides the PostgreSQL-backed repository for message
// persistence and inbox/sent/unread queries.
package messages

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

// PostgresRepository implements message storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const messageColumns = `id, sender_id, recipient_id, resource_id, subject, encrypted_content,
	is_read, priority, contact_method, sender_phone, created_at, read_at,
	deleted_by_sender, deleted_by_recipient`

// Create inserts the message and returns it with the generated id and
// creation timestamp filled in.
func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, recipient_id, resource_id, subject, encrypted_content,
			is_read, priority, contact_method, sender_phone, deleted_by_sender, deleted_by_recipient)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at;
	`
	var resourceID sql.NullInt64
	if m.ResourceID != nil {
		resourceID = sql.NullInt64{Int64: *m.ResourceID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		m.SenderID, m.RecipientID, resourceID, m.Subject, m.EncryptedContent,
		m.IsRead, m.Priority.String(), m.ContactMethod, m.SenderPhone,
		m.DeletedBySender, m.DeletedByRecipient,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select message: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListInbox(ctx context.Context, recipientID int64, limit, offset int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE recipient_id=$1 AND deleted_by_recipient=false
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, recipientID, limit, offset)
}

func (r *PostgresRepository) ListSent(ctx context.Context, senderID int64, limit, offset int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE sender_id=$1 AND deleted_by_sender=false
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, senderID, limit, offset)
}

func (r *PostgresRepository) ListUnread(ctx context.Context, recipientID int64, limit, offset int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE recipient_id=$1 AND is_read=false AND deleted_by_recipient=false
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, recipientID, limit, offset)
}

func (r *PostgresRepository) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM messages
		WHERE recipient_id=$1 AND is_read=false AND deleted_by_recipient=false`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

// MarkRead sets the read flag; read_at keeps its first value so repeated
// calls are no-ops.
func (r *PostgresRepository) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	query := `UPDATE messages SET is_read=true, read_at=COALESCE(read_at, $2) WHERE id=$1`
	return r.execOne(ctx, query, id, readAt)
}

// SetDeletionFlags raises the given deletion flags; flags already set stay
// set.
func (r *PostgresRepository) SetDeletionFlags(ctx context.Context, id int64, bySender, byRecipient bool) error {
	query := `UPDATE messages SET
		deleted_by_sender = deleted_by_sender OR $2,
		deleted_by_recipient = deleted_by_recipient OR $3
		WHERE id=$1`
	return r.execOne(ctx, query, id, bySender, byRecipient)
}

// Delete physically removes the record.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM messages WHERE id=$1`, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m          models.Message
		resourceID sql.NullInt64
		priority   string
		readAt     sql.NullTime
	)
	if err := row.Scan(
		&m.ID, &m.SenderID, &m.RecipientID, &resourceID, &m.Subject, &m.EncryptedContent,
		&m.IsRead, &priority, &m.ContactMethod, &m.SenderPhone, &m.CreatedAt, &readAt,
		&m.DeletedBySender, &m.DeletedByRecipient,
	); err != nil {
		return nil, err
	}
	if resourceID.Valid {
		m.ResourceID = &resourceID.Int64
	}
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	p, err := models.ParsePriority(priority)
	if err != nil {
		return nil, fmt.Errorf("stored message %d: %w", m.ID, err)
	}
	m.Priority = p
	return &m, nil
}
