// Package services contains the domain services orchestrating validation,
// encryption, persistence and notification on top of the repositories.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/common"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/cryptox"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/dbx"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/logging"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/notify"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/repomanager"
)

// UnreadablePlaceholder replaces a body that no longer decrypts under the
// current key. The exact text is part of the API surface: clients match it.
const UnreadablePlaceholder = "[Message content unavailable - encrypted with previous key]"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type SendMessageRequest struct {
	RecipientID   int64
	ResourceID    *int64
	Subject       string
	Content       string
	Priority      string
	ContactMethod string
	SenderPhone   string
}

type UserInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ResourceInfo struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	City  string `json:"city"`
}

type MessageResponse struct {
	ID            int64         `json:"id"`
	Sender        UserInfo      `json:"sender"`
	Recipient     UserInfo      `json:"recipient"`
	Resource      *ResourceInfo `json:"resource,omitempty"`
	Subject       string        `json:"subject"`
	Content       string        `json:"content"`
	IsRead        bool          `json:"isRead"`
	Priority      string        `json:"priority"`
	ContactMethod string        `json:"contactMethod,omitempty"`
	SenderPhone   string        `json:"senderPhone,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	ReadAt        *time.Time    `json:"readAt,omitempty"`
}

type RecipientSummary struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Email       string `json:"email"`
}

// MessageService implements the message lifecycle: validate, encrypt,
// persist, notify, and the read/delete paths with their authorization
// rules.
type MessageService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	cipher   *cryptox.Cipher
	notifier notify.Notifier
	logger   logging.Logger

	// seam for tests
	withTx func(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx dbx.DBTX) error) error
}

func NewMessageService(db *sql.DB, repos repomanager.RepositoryManager, cipher *cryptox.Cipher,
	notifier notify.Notifier, logger logging.Logger) *MessageService {
	return &MessageService{
		db:       db,
		repos:    repos,
		cipher:   cipher,
		notifier: notifier,
		logger:   logger.With("component", "messages"),
		withTx:   dbx.WithTx,
	}
}

// Send validates the request, encrypts the body, persists the record and
// then attempts the notification email. Persistence happens strictly before
// notification; a Notifier failure is logged and discarded, so a successful
// return always means the message is durably stored.
func (s *MessageService) Send(ctx context.Context, sender *models.User, req SendMessageRequest) (*MessageResponse, error) {
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if req.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", common.ErrorValidation)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", common.ErrorValidation)
	}

	usersRepo := s.repos.Users(s.db)

	recipient, err := usersRepo.GetByID(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: recipient not found with id %d", common.ErrorValidation, req.RecipientID)
		}
		return nil, err
	}
	if recipient.ID == sender.ID {
		return nil, fmt.Errorf("%w: you cannot send a message to yourself", common.ErrorValidation)
	}

	var resource *models.Resource
	if req.ResourceID != nil {
		resource, err = s.repos.Resources(s.db).GetByID(ctx, *req.ResourceID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, fmt.Errorf("%w: resource not found with id %d", common.ErrorValidation, *req.ResourceID)
			}
			return nil, err
		}
		if !resource.PubliclyVisible() {
			return nil, fmt.Errorf("%w: this resource is not available for messaging", common.ErrorValidation)
		}
		if resource.UserID == sender.ID && recipient.ID == sender.ID {
			return nil, fmt.Errorf("%w: you cannot message yourself about your own resource", common.ErrorValidation)
		}
	}

	// Encrypt before the record is built; plaintext never reaches the store.
	encrypted, err := s.cipher.Encrypt(req.Content)
	if err != nil {
		return nil, fmt.Errorf("encrypting message body: %w", err)
	}

	m := &models.Message{
		SenderID:         sender.ID,
		RecipientID:      recipient.ID,
		ResourceID:       req.ResourceID,
		Subject:          req.Subject,
		EncryptedContent: encrypted,
		Priority:         priority,
		ContactMethod:    req.ContactMethod,
		SenderPhone:      req.SenderPhone,
	}

	m, err = s.repos.Messages(s.db).Create(ctx, m)
	if err != nil {
		return nil, err
	}

	// The notifier gets the plaintext body. The error is deliberately
	// discarded here and nowhere else: notification is fire-and-forget
	// and must never fail or roll back a persisted send.
	if err := s.notifier.SendMessageNotification(ctx, buildNotification(m, sender, recipient, resource, req.Content)); err != nil {
		s.logger.Error(ctx, "failed to send message notification email",
			"message_id", m.ID, "error", err)
	}

	return s.mapToResponse(ctx, m, sender, recipient, resource)
}

func buildNotification(m *models.Message, sender, recipient *models.User,
	resource *models.Resource, plainContent string) notify.MessageNotification {
	n := notify.MessageNotification{
		RecipientEmail: recipient.Email,
		RecipientName:  recipient.DisplayName(),
		SenderName:     sender.DisplayName(),
		Subject:        m.Subject,
		Body:           plainContent,
		Priority:       m.Priority.String(),
		ContactMethod:  m.ContactMethod,
		SenderPhone:    m.SenderPhone,
	}
	if resource != nil {
		n.ResourceTitle = resource.Title
		n.ResourceCity = resource.City
	}
	return n
}

// ListInbox returns messages received by the user and not deleted by them,
// newest first.
func (s *MessageService) ListInbox(ctx context.Context, user *models.User, limit, offset int) ([]*MessageResponse, error) {
	limit, offset = normalizePage(limit, offset)
	msgs, err := s.repos.Messages(s.db).ListInbox(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.mapAll(ctx, msgs)
}

func (s *MessageService) ListSent(ctx context.Context, user *models.User, limit, offset int) ([]*MessageResponse, error) {
	limit, offset = normalizePage(limit, offset)
	msgs, err := s.repos.Messages(s.db).ListSent(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.mapAll(ctx, msgs)
}

func (s *MessageService) ListUnread(ctx context.Context, user *models.User, limit, offset int) ([]*MessageResponse, error) {
	limit, offset = normalizePage(limit, offset)
	msgs, err := s.repos.Messages(s.db).ListUnread(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.mapAll(ctx, msgs)
}

func (s *MessageService) UnreadCount(ctx context.Context, user *models.User) (int64, error) {
	return s.repos.Messages(s.db).CountUnread(ctx, user.ID)
}

// MarkAsRead marks the message read. Only the recipient may do so; repeat
// calls are no-ops (read_at keeps its first value).
func (s *MessageService) MarkAsRead(ctx context.Context, messageID int64, user *models.User) (*MessageResponse, error) {
	repo := s.repos.Messages(s.db)

	m, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.RecipientID != user.ID {
		return nil, fmt.Errorf("%w: only the recipient can mark a message as read", common.ErrorUnauthorized)
	}

	now := time.Now()
	if err := repo.MarkRead(ctx, m.ID, now); err != nil {
		return nil, err
	}
	m.IsRead = true
	if m.ReadAt == nil {
		m.ReadAt = &now
	}

	return s.mapMessage(ctx, m)
}

// Delete applies the deletion policy: a sender delete retracts the message
// from both inboxes, a recipient delete hides it from the recipient only.
// The record is physically removed once both flags are set.
func (s *MessageService) Delete(ctx context.Context, messageID int64, user *models.User) error {
	m, err := s.repos.Messages(s.db).GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	isSender := m.SenderID == user.ID
	isRecipient := m.RecipientID == user.ID
	if !isSender && !isRecipient {
		return fmt.Errorf("%w: you are not the sender or recipient of this message", common.ErrorUnauthorized)
	}

	bySender := isSender
	byRecipient := isSender || isRecipient

	return s.withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Messages(tx)
		if err := repo.SetDeletionFlags(ctx, m.ID, bySender, byRecipient); err != nil {
			return err
		}
		cur, err := repo.GetByID(ctx, m.ID)
		if err != nil {
			return err
		}
		if cur.DeletedBySender && cur.DeletedByRecipient {
			return repo.Delete(ctx, m.ID)
		}
		return nil
	})
}

// AvailableRecipients lists enabled role-USER accounts excluding the
// caller, with only non-sensitive fields.
func (s *MessageService) AvailableRecipients(ctx context.Context, user *models.User) ([]*RecipientSummary, error) {
	candidates, err := s.repos.Users(s.db).ListActiveRegular(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	result := make([]*RecipientSummary, 0, len(candidates))
	for _, u := range candidates {
		result = append(result, &RecipientSummary{
			ID:          u.ID,
			DisplayName: u.DisplayName(),
			Username:    u.Username,
			Email:       u.Email,
		})
	}
	return result, nil
}

// decryptContent decrypts a stored body for display. A stale-key failure is
// tolerated: the message becomes permanently unreadable but the surrounding
// operation continues with the placeholder text. Any other failure kind
// indicates corruption and propagates.
func (s *MessageService) decryptContent(ctx context.Context, m *models.Message) (string, error) {
	content, err := s.cipher.Decrypt(m.EncryptedContent)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, cryptox.ErrInvalidCiphertext) {
		s.logger.Warn(ctx, "cannot decrypt message under current key",
			"message_id", m.ID)
		return UnreadablePlaceholder, nil
	}
	return "", fmt.Errorf("decrypting message %d: %w", m.ID, err)
}

func (s *MessageService) mapAll(ctx context.Context, msgs []*models.Message) ([]*MessageResponse, error) {
	result := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp, err := s.mapMessage(ctx, m)
		if err != nil {
			return nil, err
		}
		result = append(result, resp)
	}
	return result, nil
}

// mapMessage resolves the sender/recipient/resource references and builds
// the response DTO.
func (s *MessageService) mapMessage(ctx context.Context, m *models.Message) (*MessageResponse, error) {
	usersRepo := s.repos.Users(s.db)

	sender, err := usersRepo.GetByID(ctx, m.SenderID)
	if err != nil {
		return nil, fmt.Errorf("resolving sender of message %d: %w", m.ID, err)
	}
	recipient, err := usersRepo.GetByID(ctx, m.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("resolving recipient of message %d: %w", m.ID, err)
	}

	var resource *models.Resource
	if m.ResourceID != nil {
		resource, err = s.repos.Resources(s.db).GetByID(ctx, *m.ResourceID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("resolving resource of message %d: %w", m.ID, err)
		}
	}

	return s.mapToResponse(ctx, m, sender, recipient, resource)
}

func (s *MessageService) mapToResponse(ctx context.Context, m *models.Message,
	sender, recipient *models.User, resource *models.Resource) (*MessageResponse, error) {

	content, err := s.decryptContent(ctx, m)
	if err != nil {
		return nil, err
	}

	resp := &MessageResponse{
		ID:            m.ID,
		Sender:        UserInfo{ID: sender.ID, Name: sender.DisplayName(), Email: sender.Email},
		Recipient:     UserInfo{ID: recipient.ID, Name: recipient.DisplayName(), Email: recipient.Email},
		Subject:       m.Subject,
		Content:       content,
		IsRead:        m.IsRead,
		Priority:      m.Priority.String(),
		ContactMethod: m.ContactMethod,
		SenderPhone:   m.SenderPhone,
		CreatedAt:     m.CreatedAt,
		ReadAt:        m.ReadAt,
	}
	if resource != nil {
		resp.Resource = &ResourceInfo{ID: resource.ID, Title: resource.Title, City: resource.City}
	}
	return resp, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
