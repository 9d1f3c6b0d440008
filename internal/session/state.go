package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	stateDir  = ".parley"
	stateFile = "current_session"
)

// stateFilePath returns the full path to the current session state file
// under baseDir, creating the state directory if needed. Pass the user's
// home directory in production; tests pass a temp dir.
func stateFilePath(baseDir string) (string, error) {
	dir := filepath.Join(baseDir, stateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	return filepath.Join(dir, stateFile), nil
}

// LoadCurrentSessionID loads the active session ID from the state file
// under baseDir. A missing or empty file means no current session and
// returns (nil, nil).
func LoadCurrentSessionID(baseDir string) (*uuid.UUID, error) {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID in state file: %w", err)
	}
	return &id, nil
}

// SaveCurrentSessionID records sessionID as the active session under
// baseDir. The write goes through a temp file plus rename under an
// advisory file lock, so concurrent CLI invocations never observe a
// half-written ID.
func SaveCurrentSessionID(baseDir string, sessionID uuid.UUID) error {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sessionID.String()), 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// ClearCurrentSessionID removes the state file under baseDir. Clearing
// when no current session exists is not an error.
func ClearCurrentSessionID(baseDir string) error {
	path, err := stateFilePath(baseDir)
	if err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}
