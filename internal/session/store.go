package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FilePerms restricts session files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the session directory.
const DirPerms = 0o700

// file is the on-disk format for session files.
type file struct {
	Session *Session `json:"session"`
}

// Store provides thread-safe access to the current Session, backed by a
// JSON file on disk so the session survives process restarts. The in-memory
// copy is the authoritative one; disk is written through on every mutation.
//
// Only the refresh coordinator and the invalidator mutate the store. The
// gateway and UI callers read through Current().
type Store struct {
	mu     sync.RWMutex
	cur    *Session
	path   string // immutable after construction
	logger *slog.Logger
}

// NewStore creates a Store backed by the session file at path and seeds the
// in-memory session from disk. A missing file means "not logged in" and is
// not an error.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{path: path, logger: logger}

	sess, err := readFile(path)
	if err != nil {
		return nil, err
	}

	s.cur = sess

	if sess != nil {
		logger.Info("loaded saved session",
			slog.String("path", path),
			slog.String("user_id", sess.UserID),
		)
	}

	return s, nil
}

// Current returns a snapshot of the session, or nil if not logged in.
// The returned value is a copy; mutating it has no effect on the store.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cur == nil {
		return nil
	}

	cp := *s.cur

	return &cp
}

// Path returns the session file path. Immutable after construction, so no
// locking is needed.
func (s *Store) Path() string {
	return s.path
}

// Replace installs a new authoritative session, in memory and on disk, as
// one atomic step under the write lock. No reader ever observes a
// half-updated session.
func (s *Store) Replace(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFile(s.path, &sess); err != nil {
		return err
	}

	s.cur = &sess

	return nil
}

// Clear removes the session from memory and disk. Safe to call when no
// session exists (idempotent).
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur = nil

	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("session: removing %s: %w", s.path, err)
	}

	return nil
}

// reload re-reads the session file and replaces the in-memory copy.
// Called by the watcher when another process rewrites the file.
func (s *Store) reload() error {
	sess, err := readFile(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()

	return nil
}

// readFile loads a session file from disk. Returns (nil, nil) if the file
// does not exist.
func readFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not logged in"
	}

	if err != nil {
		return nil, fmt.Errorf("session: reading %s: %w", path, err)
	}

	var sf file
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("session: decoding %s: %w", path, err)
	}

	if sf.Session == nil {
		return nil, fmt.Errorf("session: %s missing session field (re-login required)", path)
	}

	return sf.Session, nil
}

// writeFile persists a session atomically (write-to-temp + rename) with
// 0600 permissions. Never logs token values.
func writeFile(path string, sess *Session) error {
	data, err := json.MarshalIndent(file{Session: sess}, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("session: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("session: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("session: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session: writing: %w", err)
	}

	// Flush to stable storage before rename so a crash between close and
	// rename cannot leave an empty or partial session file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("session: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("session: renaming: %w", err)
	}

	success = true

	return nil
}
