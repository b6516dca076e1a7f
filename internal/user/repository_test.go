// internal/user/repository_test.go
//
// Unit-tests for FindByEmail using sqlmock.
//
// Run: go test ./internal/user -v

package user

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

const findQuery = `SELECT id, email, name, password_hash, email_verified_at, created_at, updated_at FROM user WHERE email = ? LIMIT 1`

var columns = []string{
	"id", "email", "name", "password_hash", "email_verified_at", "created_at", "updated_at",
}

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	return NewRepository(sqlx.NewDb(raw, "sqlmock")), mock
}

func TestFindByEmail_Hit(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(findQuery)).
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "a@b.com", "Ada", []byte("$2a$hash"), nil, now, now))

	rec, ok, err := repo.FindByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if !ok || rec == nil {
		t.Fatalf("expected a record, got ok=%v rec=%v", ok, rec)
	}
	if rec.ID != 7 || rec.Email != "a@b.com" || rec.Name != "Ada" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.HasPassword() {
		t.Fatalf("expected password hash")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestFindByEmail_MissIsAbsence(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(findQuery)).
		WithArgs("nobody@b.com").
		WillReturnRows(sqlmock.NewRows(columns))

	rec, ok, err := repo.FindByEmail(context.Background(), "nobody@b.com")
	if err != nil {
		t.Fatalf("miss must not be an error: %v", err)
	}
	if ok || rec != nil {
		t.Fatalf("expected absence, got ok=%v rec=%+v", ok, rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestFindByEmail_StoreErrorPropagates(t *testing.T) {
	repo, mock := newMock(t)
	down := errors.New("driver: bad connection")

	mock.ExpectQuery(regexp.QuoteMeta(findQuery)).
		WithArgs("a@b.com").
		WillReturnError(down)

	_, ok, err := repo.FindByEmail(context.Background(), "a@b.com")
	if !errors.Is(err, down) {
		t.Fatalf("err = %v, want wrapped %v", err, down)
	}
	if ok {
		t.Fatalf("ok must be false on error")
	}
}

func TestFindByEmail_Idempotent(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(findQuery)).
			WithArgs("a@b.com").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(1, "a@b.com", "", nil, nil, now, now))
	}

	first, _, err := repo.FindByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := repo.FindByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || first.HasPassword() || second.HasPassword() {
		t.Fatalf("lookups disagree: %+v vs %+v", first, second)
	}
}
