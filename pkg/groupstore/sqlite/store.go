package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/miketth/kbindicator/pkg/groupstore/sqlite/migrations"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	selectLastGroup = `SELECT name FROM last_groups WHERE keyboard = ?`
	upsertLastGroup = `
INSERT INTO last_groups (keyboard, name, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (keyboard) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`
)

type GroupStore struct {
	db *sql.DB
}

func NewGroupStore(filename string, log *zap.SugaredLogger) (*GroupStore, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrations.Migrate(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &GroupStore{db: db}, nil
}

func (s *GroupStore) Close() error {
	return s.db.Close()
}

func (s *GroupStore) LastGroup(ctx context.Context, keyboard string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, selectLastGroup, keyboard).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("sqlite select: %w", err)
	}

	return name, true, nil
}

func (s *GroupStore) SetLastGroup(ctx context.Context, keyboard string, name string) error {
	if _, err := s.db.ExecContext(ctx, upsertLastGroup, keyboard, name); err != nil {
		return fmt.Errorf("sqlite upsert: %w", err)
	}

	return nil
}
