package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/common"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/logging"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/notify"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/repomanager"
)

const (
	verificationCodeLength = 6
	verificationCodeTTL    = time.Hour
)

// VerificationService issues and checks the short-lived email codes that
// gate account activation.
type VerificationService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	notifier notify.Notifier
	logger   logging.Logger

	now func() time.Time
}

func NewVerificationService(db *sql.DB, repos repomanager.RepositoryManager,
	notifier notify.Notifier, logger logging.Logger) *VerificationService {
	return &VerificationService{
		db:       db,
		repos:    repos,
		notifier: notifier,
		logger:   logger.With("component", "verification"),
		now:      time.Now,
	}
}

// Issue generates a fresh code for the user, replacing any previous code of
// the same type, and mails it. Unlike message notifications, a delivery
// failure here is returned to the caller: without the email the code is
// useless.
func (s *VerificationService) Issue(ctx context.Context, user *models.User, t models.VerificationType) error {
	code, err := common.MakeRandDigitCode(verificationCodeLength)
	if err != nil {
		return fmt.Errorf("generating verification code: %w", err)
	}

	now := s.now()
	vc := &models.VerificationCode{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Code:      code,
		Type:      t,
		ExpiresAt: now.Add(verificationCodeTTL),
		CreatedAt: now,
	}

	if err := s.repos.VerificationCodes(s.db).Replace(ctx, vc); err != nil {
		return err
	}

	return s.notifier.SendVerificationCode(ctx, user.Email, user.DisplayName(), code)
}

// Confirm checks the submitted code. On success the account is marked
// verified and the code is consumed; it cannot be used twice.
func (s *VerificationService) Confirm(ctx context.Context, user *models.User, t models.VerificationType, code string) error {
	repo := s.repos.VerificationCodes(s.db)

	vc, err := repo.GetActive(ctx, user.ID, t)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: no active verification code", common.ErrInvalidToken)
		}
		return err
	}

	if vc.Expired(s.now()) {
		return common.ErrVerificationCodeExpired
	}
	if vc.Code != code {
		return fmt.Errorf("%w: verification code does not match", common.ErrInvalidToken)
	}

	if t == models.VerificationEmail {
		if err := s.repos.Users(s.db).SetVerified(ctx, user.ID); err != nil {
			return err
		}
	}

	return repo.DeleteByUserAndType(ctx, user.ID, t)
}

// CleanupExpired removes every code past its expiry.
func (s *VerificationService) CleanupExpired(ctx context.Context) error {
	n, err := s.repos.VerificationCodes(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info(ctx, "removed expired verification codes", "count", n)
	}
	return nil
}

// RunCleanup runs CleanupExpired on the given interval until the context is
// cancelled. Meant to be started once as a background goroutine.
func (s *VerificationService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.CleanupExpired(ctx); err != nil {
				s.logger.Error(ctx, "verification code cleanup failed", "error", err)
			}
		}
	}
}
