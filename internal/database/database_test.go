package database

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := OpenWithOptions(context.Background(), "", DefaultOptions()); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("err = %v, want ErrNoDSN", err)
	}
	if err := Migrate(""); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("Migrate err = %v, want ErrNoDSN", err)
	}
}

func TestPing_RetriesThenSucceeds(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	opts := Options{Retries: 2, RetryBackoff: time.Millisecond}
	if err := ping(context.Background(), db, opts); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPing_GivesUp(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	refused := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(refused)
	mock.ExpectPing().WillReturnError(refused)

	err = ping(context.Background(), db, Options{Retries: 1, RetryBackoff: time.Millisecond})
	if !errors.Is(err, refused) {
		t.Fatalf("err = %v, want wrapped refusal", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	if up == 0 || up != down {
		t.Fatalf("up=%d down=%d, want matching non-zero counts", up, down)
	}
}
