package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// URLStore persists cached signed URLs in an embedded SQLite database so a
// restarted client does not refetch URLs still inside their validity
// window. The cache is advisory: losing or clearing the database only
// costs refetches.
type URLStore struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt    *sql.Stmt
	putStmt    *sql.Stmt
	deleteStmt *sql.Stmt
}

// OpenURLStore opens (creating if needed) the URL cache database at dbPath
// and applies migrations. Use ":memory:" for tests.
func OpenURLStore(dbPath string, logger *slog.Logger) (*URLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("media: creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("media: open sqlite: %w", err)
	}

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("media: set WAL mode: %w", err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &URLStore{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("media: prepare statements: %w", err)
	}

	logger.Debug("URL cache database ready", slog.String("path", dbPath))

	return s, nil
}

func (s *URLStore) prepareStatements(ctx context.Context) error {
	var err error

	s.getStmt, err = s.db.PrepareContext(ctx,
		`SELECT url, fetched_at, ttl_seconds FROM url_cache WHERE key = ?`)
	if err != nil {
		return err
	}

	s.putStmt, err = s.db.PrepareContext(ctx,
		`INSERT INTO url_cache (key, url, fetched_at, ttl_seconds)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   url = excluded.url,
		   fetched_at = excluded.fetched_at,
		   ttl_seconds = excluded.ttl_seconds`)
	if err != nil {
		return err
	}

	s.deleteStmt, err = s.db.PrepareContext(ctx, `DELETE FROM url_cache`)

	return err
}

// Get returns the persisted entry for key, with ok=false when absent.
func (s *URLStore) Get(ctx context.Context, key string) (string, time.Time, time.Duration, bool, error) {
	var (
		url     string
		fetched int64
		ttlSecs int64
	)

	err := s.getStmt.QueryRowContext(ctx, key).Scan(&url, &fetched, &ttlSecs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, 0, false, nil
	}

	if err != nil {
		return "", time.Time{}, 0, false, fmt.Errorf("media: reading cached URL: %w", err)
	}

	return url, time.Unix(fetched, 0), time.Duration(ttlSecs) * time.Second, true, nil
}

// Put upserts the persisted entry for key.
func (s *URLStore) Put(ctx context.Context, key, url string, fetchedAt time.Time, ttl time.Duration) error {
	_, err := s.putStmt.ExecContext(ctx, key, url, fetchedAt.Unix(), int64(ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("media: writing cached URL: %w", err)
	}

	return nil
}

// DeleteAll removes every persisted entry.
func (s *URLStore) DeleteAll(ctx context.Context) error {
	if _, err := s.deleteStmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("media: clearing cached URLs: %w", err)
	}

	return nil
}

// Close releases prepared statements and the database handle.
func (s *URLStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.putStmt, s.deleteStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}

	return s.db.Close()
}
