package verificationcodes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/common"
	"github.com/Bobbyxz16/backend-neighbourlyunion/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestReplace_Upserts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour)
	mock.ExpectExec(`INSERT INTO verification_codes .* ON CONFLICT \(user_id, type\)`).
		WithArgs("row-id", int64(1), "123456", "EMAIL", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Replace(context.Background(), &models.VerificationCode{
		ID: "row-id", UserID: 1, Code: "123456",
		Type: models.VerificationEmail, ExpiresAt: expires,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM verification_codes WHERE user_id=\$1 AND type=\$2`).
		WithArgs(int64(1), "EMAIL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "code", "type", "expires_at", "created_at"}).
			AddRow("row-id", int64(1), "123456", "EMAIL", now.Add(time.Hour), now))

	vc, err := repo.GetActive(context.Background(), 1, models.VerificationEmail)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vc.Code != "123456" || vc.Type != models.VerificationEmail {
		t.Fatalf("unexpected code: %+v", vc)
	}
}

func TestGetActive_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM verification_codes`).
		WithArgs(int64(9), "EMAIL").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActive(context.Background(), 9, models.VerificationEmail)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDeleteExpired_ReturnsCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`DELETE FROM verification_codes WHERE expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 removed, got %d", n)
	}
}
