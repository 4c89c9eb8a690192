package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMigrationFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_indexes.sql", "001_init.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "old.sql"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := migrationFiles(dir)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) != 2 || files[0] != "001_init.sql" || files[1] != "002_indexes.sql" {
		t.Fatalf("files = %v", files)
	}
}

func TestApplyRecordsMigration(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE contacts`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations \(name\) VALUES \(\$1\)`).
		WithArgs("001_init.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := apply(context.Background(), db, "001_init.sql", "CREATE TABLE contacts (id TEXT)"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestApplyRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	if err := apply(context.Background(), db, "001_init.sql", "CREATE TABLE broken ("); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAppliedMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT name, applied_at FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "applied_at"}).
			AddRow("001_init.sql", mustTime(t, "2024-01-01T00:00:00Z")))

	applied, err := appliedMigrations(context.Background(), db)
	if err != nil {
		t.Fatalf("appliedMigrations: %v", err)
	}
	if _, ok := applied["001_init.sql"]; !ok || len(applied) != 1 {
		t.Fatalf("applied = %v", applied)
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return at
}
