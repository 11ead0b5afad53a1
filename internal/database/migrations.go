package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Migrate applies every pending .sql file from source in lexical order.
// The source is an fs.FS so the schema ships inside the binary; the
// applied set is tracked in schema_migrations, making Migrate safe to
// run on every startup.
func (db *DB) Migrate(ctx context.Context, source fs.FS) error {
	if err := db.ensureVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	names, err := migrationNames(source)
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	applied, err := db.appliedSet(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := db.apply(ctx, source, name); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		db.logger.Info("migration_applied", fmt.Sprintf("Applied migration: %s", name), "startup", nil)
	}

	return nil
}

func (db *DB) ensureVersionTable(ctx context.Context) error {
	return db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`)
}

// migrationNames returns the .sql entries of the source, sorted so the
// numeric filename prefixes decide application order.
func migrationNames(source fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	return names, nil
}

func (db *DB) appliedSet(ctx context.Context) (map[string]bool, error) {
	rows, err := db.Query(ctx, "SELECT migration_name FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}

	return applied, rows.Err()
}

// apply runs one migration and records it, both in the same
// transaction, so a failed migration leaves no trace in the applied set.
func (db *DB) apply(ctx context.Context, source fs.FS, name string) error {
	body, err := fs.ReadFile(source, name)
	if err != nil {
		return fmt.Errorf("failed to read migration: %w", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (migration_name) VALUES ($1)", name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit(ctx)
}
