package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/ignite/campaign-mailer/internal/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if err := ensureLedger(ctx, db); err != nil {
		logger.Error("create schema_migrations failed", "error", err)
		os.Exit(1)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		logger.Error("read schema_migrations failed", "error", err)
		os.Exit(1)
	}

	if listOnly {
		names := make([]string, 0, len(applied))
		for name := range applied {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s  %s\n", applied[name].Format(time.RFC3339), name)
		}
		fmt.Printf("Total: %d applied\n", len(names))
		return
	}

	files, err := migrationFiles(dir)
	if err != nil {
		logger.Error("read migrations dir failed", "dir", dir, "error", err)
		os.Exit(1)
	}

	var okCount, skipCount int
	for _, f := range files {
		if _, done := applied[f]; done {
			skipCount++
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			logger.Error("read migration failed", "file", f, "error", err)
			os.Exit(1)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if err := apply(ctx, db, f, string(data)); err != nil {
			logger.Error("migration failed", "file", f, "error", err)
			os.Exit(1)
		}
		logger.Info("migration applied", "file", f)
		okCount++
	}
	logger.Info("migrations complete", "applied", okCount, "skipped", skipCount)
}

func ensureLedger(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]time.Time, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var at time.Time
		if err := rows.Scan(&name, &at); err != nil {
			return nil, err
		}
		applied[name] = at
	}
	return applied, rows.Err()
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// apply runs one migration and records it in the same transaction.
func apply(ctx context.Context, db *sql.DB, name, content string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, content); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
