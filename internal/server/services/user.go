package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/common"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/auth"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/repomanager"
)

// UserService handles authentication: credential checks and token issuance.
type UserService struct {
	db            *sql.DB
	repos         repomanager.RepositoryManager
	secretKey     []byte
	tokenValidity time.Duration
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, secretKey []byte, tokenValidity time.Duration) *UserService {
	return &UserService{db: db, repos: repos, secretKey: secretKey, tokenValidity: tokenValidity}
}

type LoginResult struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// Login verifies the email/password pair and returns a signed access token.
// An unknown email and a wrong password produce the same error, so the
// response does not reveal which accounts exist.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	if !user.Enabled {
		return nil, fmt.Errorf("%w: account is not verified", common.ErrorUnauthorized)
	}

	token, err := auth.GenerateToken(user.ID, s.secretKey, s.tokenValidity)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token: token,
		User:  UserInfo{ID: user.ID, Name: user.DisplayName(), Email: user.Email},
	}, nil
}

// GetByID loads an account; the HTTP middleware uses it to resolve the
// token subject on every authenticated request.
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repos.Users(s.db).GetByID(ctx, id)
}

// GetByEmail loads an account by email. Used by the verification endpoints,
// which run before the caller has a token.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repos.Users(s.db).GetByEmail(ctx, email)
}
