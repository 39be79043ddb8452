package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/common"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/cryptox"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/dbx"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/logging"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/auth"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/notify"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/messages"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/resources"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/users"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/repositories/verificationcodes"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/services"
)

var testJWTSecret = []byte("handler-test-secret")

type memUsersRepo struct {
	users.Repository
	byID map[int64]*models.User
}

func (f *memUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *memUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *memUsersRepo) ListActiveRegular(_ context.Context, excludeID int64) ([]*models.User, error) {
	var result []*models.User
	for _, u := range f.byID {
		if u.ID != excludeID && u.Enabled && u.Role == models.RoleUser {
			result = append(result, u)
		}
	}
	return result, nil
}

type memMessagesRepo struct {
	messages.Repository
	byID   map[int64]*models.Message
	nextID int64
}

func (f *memMessagesRepo) Create(_ context.Context, m *models.Message) (*models.Message, error) {
	f.nextID++
	stored := *m
	stored.ID = f.nextID
	stored.CreatedAt = time.Now()
	f.byID[stored.ID] = &stored
	return &stored, nil
}

func (f *memMessagesRepo) GetByID(_ context.Context, id int64) (*models.Message, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *memMessagesRepo) ListInbox(_ context.Context, recipientID int64, _, _ int) ([]*models.Message, error) {
	var result []*models.Message
	for _, m := range f.byID {
		if m.RecipientID == recipientID && !m.DeletedByRecipient {
			copied := *m
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (f *memMessagesRepo) CountUnread(_ context.Context, recipientID int64) (int64, error) {
	var n int64
	for _, m := range f.byID {
		if m.RecipientID == recipientID && !m.IsRead && !m.DeletedByRecipient {
			n++
		}
	}
	return n, nil
}

func (f *memMessagesRepo) MarkRead(_ context.Context, id int64, readAt time.Time) error {
	m, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	m.IsRead = true
	if m.ReadAt == nil {
		at := readAt
		m.ReadAt = &at
	}
	return nil
}

func (f *memMessagesRepo) SetDeletionFlags(_ context.Context, id int64, bySender, byRecipient bool) error {
	m, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	m.DeletedBySender = m.DeletedBySender || bySender
	m.DeletedByRecipient = m.DeletedByRecipient || byRecipient
	return nil
}

func (f *memMessagesRepo) Delete(_ context.Context, id int64) error {
	delete(f.byID, id)
	return nil
}

type memRepoManager struct {
	usersRepo    *memUsersRepo
	messagesRepo *memMessagesRepo
}

func (f *memRepoManager) Users(dbx.DBTX) users.Repository       { return f.usersRepo }
func (f *memRepoManager) Messages(dbx.DBTX) messages.Repository { return f.messagesRepo }
func (f *memRepoManager) Resources(dbx.DBTX) resources.Repository {
	return nil
}
func (f *memRepoManager) VerificationCodes(dbx.DBTX) verificationcodes.Repository {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) SendMessageNotification(context.Context, notify.MessageNotification) error {
	return nil
}
func (noopNotifier) SendVerificationCode(context.Context, string, string, string) error {
	return nil
}

type handlerFixture struct {
	server *Server
	repos  *memRepoManager
	mock   sqlmock.Sqlmock
	alice  *models.User
	bob    *models.User
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	alice := &models.User{ID: 1, Username: "alice", Email: "alice@example.com",
		PasswordHash: string(hash), Role: models.RoleUser, Enabled: true, Verified: true}
	bob := &models.User{ID: 2, Username: "bob", Email: "bob@example.com",
		PasswordHash: string(hash), Role: models.RoleUser, Enabled: true, Verified: true}

	repos := &memRepoManager{
		usersRepo:    &memUsersRepo{byID: map[int64]*models.User{1: alice, 2: bob}},
		messagesRepo: &memMessagesRepo{byID: map[int64]*models.Message{}},
	}

	key, err := cryptox.DeriveKey("test-secret", "test-salt")
	require.NoError(t, err)
	cipher, err := cryptox.NewCipher(key)
	require.NoError(t, err)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	// the fake repos ignore the handle; sqlmock only backs the
	// begin/commit of the deletion transaction
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userSvc := services.NewUserService(db, repos, testJWTSecret, 15*time.Minute)
	msgSvc := services.NewMessageService(db, repos, cipher, noopNotifier{}, logger)
	verSvc := services.NewVerificationService(db, repos, noopNotifier{}, logger)

	server := NewServer(":0", logger, testJWTSecret, userSvc, msgSvc, verSvc, nil)
	return &handlerFixture{server: server, repos: repos, mock: mock, alice: alice, bob: bob}
}

func (fx *handlerFixture) do(t *testing.T, method, path string, body any, asUser *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if asUser != nil {
		token, err := auth.GenerateToken(asUser.ID, testJWTSecret, time.Minute)
		require.NoError(t, err)
		req.Header.Set(common.AuthHeaderName, common.BearerPrefix+token)
	}

	w := httptest.NewRecorder()
	fx.server.router.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	fx := newHandlerFixture(t)
	w := fx.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleLogin(t *testing.T) {
	fx := newHandlerFixture(t)

	t.Run("valid", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/auth/login",
			gin.H{"email": "alice@example.com", "password": "correct horse"}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var res services.LoginResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, int64(1), res.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/auth/login",
			gin.H{"email": "alice@example.com", "password": "nope"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "not-an-email"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	fx := newHandlerFixture(t)

	t.Run("missing token", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/api/messages/inbox", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/messages/inbox", nil)
		req.Header.Set(common.AuthHeaderName, common.BearerPrefix+"not-a-jwt")
		w := httptest.NewRecorder()
		fx.server.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("disabled account", func(t *testing.T) {
		fx.repos.usersRepo.byID[3] = &models.User{ID: 3, Email: "off@example.com",
			Role: models.RoleUser, Enabled: false}
		w := fx.do(t, http.MethodGet, "/api/messages/inbox", nil, fx.repos.usersRepo.byID[3])
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandleSendMessage(t *testing.T) {
	fx := newHandlerFixture(t)

	t.Run("created", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/messages",
			gin.H{"recipientId": fx.bob.ID, "subject": "hi", "content": "hello bob"}, fx.alice)
		require.Equal(t, http.StatusCreated, w.Code)

		var resp services.MessageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "hello bob", resp.Content)
		assert.Equal(t, "NORMAL", resp.Priority)
	})

	t.Run("self send is a 400", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/messages",
			gin.H{"recipientId": fx.alice.ID, "subject": "hi", "content": "hello me"}, fx.alice)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/api/messages", gin.H{"recipientId": fx.bob.ID}, fx.alice)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleMarkAsReadAndCount(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodPost, "/api/messages",
		gin.H{"recipientId": fx.bob.ID, "subject": "hi", "content": "hello"}, fx.alice)
	require.Equal(t, http.StatusCreated, w.Code)

	var created services.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Run("sender gets 403", func(t *testing.T) {
		w := fx.do(t, http.MethodPut, fmt.Sprintf("/api/messages/%d/read", created.ID), nil, fx.alice)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("recipient marks read", func(t *testing.T) {
		w := fx.do(t, http.MethodPut, fmt.Sprintf("/api/messages/%d/read", created.ID), nil, fx.bob)
		require.Equal(t, http.StatusOK, w.Code)

		w = fx.do(t, http.MethodGet, "/api/messages/unread/count", nil, fx.bob)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"count":0}`, w.Body.String())
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		w := fx.do(t, http.MethodPut, "/api/messages/999/read", nil, fx.bob)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		w := fx.do(t, http.MethodPut, "/api/messages/abc/read", nil, fx.bob)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleDeleteMessage(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodPost, "/api/messages",
		gin.H{"recipientId": fx.bob.ID, "subject": "hi", "content": "hello"}, fx.alice)
	require.Equal(t, http.StatusCreated, w.Code)
	var created services.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	w = fx.do(t, http.MethodDelete, fmt.Sprintf("/api/messages/%d", created.ID), nil, fx.alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, fx.repos.messagesRepo.byID[created.ID])
}

func TestHandleAvailableRecipients(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.do(t, http.MethodGet, "/api/messages/users", nil, fx.alice)
	require.Equal(t, http.StatusOK, w.Code)

	var list []services.RecipientSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, fx.bob.ID, list[0].ID)
}
