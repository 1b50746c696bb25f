package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var (
	testNow      = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tokenColumns = []string{"id", "user_id", "token_hash", "device_info", "expires_at", "created_at"}
)

const (
	insertQuery  = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s*\(id,\s*user_id,\s*token_hash,\s*device_info,\s*expires_at,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*$`
	findQuery    = `(?s)^\s*SELECT\s+id,\s*user_id,\s*token_hash,\s*device_info,\s*expires_at,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2\s*$`
	consumeQuery = `(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2\s+RETURNING\s+id,\s*user_id,\s*token_hash,\s*device_info,\s*expires_at,\s*created_at\s*$`
	deleteQuery  = `(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token_hash\s*=\s*\$1\s*$`
	byUserQuery  = `(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	expiredQuery = `(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+expires_at\s*<=\s*\$1\s*$`
)

func testToken() *models.RefreshToken {
	return &models.RefreshToken{
		ID:         "rt-1",
		UserID:     "u1",
		TokenHash:  "hash123",
		DeviceInfo: models.DeviceInfo{UserAgent: "curl/8", IP: "10.0.0.1"},
		ExpiresAt:  testNow.Add(time.Hour),
		CreatedAt:  testNow,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	tok := testToken()
	mock.ExpectExec(insertQuery).
		WithArgs("rt-1", "u1", "hash123", []byte(`{"user_agent":"curl/8","ip":"10.0.0.1"}`), tok.ExpiresAt, tok.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQuery).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectExec(insertQuery).WillReturnError(errors.New("db down"))

	if err := repo.Create(context.Background(), testToken()); !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
	err := repo.Create(context.Background(), testToken())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFind_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	tok := testToken()
	rows := sqlmock.NewRows(tokenColumns).
		AddRow(tok.ID, tok.UserID, tok.TokenHash, []byte(`{"user_agent":"curl/8","ip":"10.0.0.1"}`), tok.ExpiresAt, tok.CreatedAt)
	mock.ExpectQuery(findQuery).WithArgs("hash123", testNow).WillReturnRows(rows)

	got, err := repo.Find(context.Background(), "hash123", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != *tok {
		t.Fatalf("unexpected token: %+v", got)
	}
}

func TestFind_NotFoundOrExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// expired rows are filtered by the WHERE clause and look like no rows
	mock.ExpectQuery(findQuery).WithArgs("old", testNow).WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "old", testNow)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFind_BadDeviceInfo(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(tokenColumns).
		AddRow("rt-1", "u1", "hash123", []byte(`{`), testNow, testNow)
	mock.ExpectQuery(findQuery).WithArgs("hash123", testNow).WillReturnRows(rows)

	if _, err := repo.Find(context.Background(), "hash123", testNow); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestConsume(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	tok := testToken()
	mock.ExpectQuery(consumeQuery).WithArgs("hash123", testNow).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(tok.ID, tok.UserID, tok.TokenHash, []byte(`{}`), tok.ExpiresAt, tok.CreatedAt))
	mock.ExpectQuery(consumeQuery).WithArgs("hash123", testNow).WillReturnError(sql.ErrNoRows)

	got, err := repo.Consume(context.Background(), "hash123", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("unexpected token: %+v", got)
	}

	if _, err := repo.Consume(context.Background(), "hash123", testNow); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("second consume: want common.ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQuery).WithArgs("hash123").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQuery).WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(deleteQuery).WithArgs("boom").WillReturnError(errors.New("db err"))

	if err := repo.Delete(context.Background(), "hash123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("deleting a missing token must not fail: %v", err)
	}
	err := repo.Delete(context.Background(), "boom")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestDeleteByUserAndExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(byUserQuery).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(expiredQuery).WithArgs(testNow).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(expiredQuery).WithArgs(testNow).WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))

	n, err := repo.DeleteByUser(context.Background(), "u1")
	if err != nil || n != 3 {
		t.Fatalf("DeleteByUser = %d, %v", n, err)
	}
	n, err = repo.DeleteExpired(context.Background(), testNow)
	if err != nil || n != 2 {
		t.Fatalf("DeleteExpired = %d, %v", n, err)
	}
	if _, err := repo.DeleteExpired(context.Background(), testNow); err == nil {
		t.Fatalf("expected RowsAffected error")
	}
}
