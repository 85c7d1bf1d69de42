package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

// FileRecoveryRegistry implements interfaces.RecoveryRegistry on the local
// file system. Records live under baseDir, one directory per user keyed by
// the hash of the user id so arbitrary ids cannot traverse paths.
type FileRecoveryRegistry struct {
	codeIssuer

	baseDir string
	log     *slog.Logger
}

// NewFileRecoveryRegistry creates a registry rooted at baseDir, creating
// it if needed. Record files are written 0600.
func NewFileRecoveryRegistry(baseDir string, log *slog.Logger) (*FileRecoveryRegistry, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FileRecoveryRegistry{baseDir: baseDir, log: log}, nil
}

// StoreRecoveryData implements interfaces.RecoveryRegistry. The write is
// atomic: data lands in a temp file first and is renamed into place.
func (r *FileRecoveryRegistry) StoreRecoveryData(ctx context.Context, userID string, record *interfaces.RecoveryRecord) error {
	recordPath := r.recordPath(userID, record.Type)

	if err := os.MkdirAll(filepath.Dir(recordPath), 0700); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode recovery record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(recordPath), ".record-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write recovery record: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set record permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, recordPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to place recovery record: %w", err)
	}

	r.log.Debug("Stored recovery record",
		slog.String("type", record.Type),
		slog.String("path", recordPath))
	return nil
}

// GetRecoveryData implements interfaces.RecoveryRegistry.
func (r *FileRecoveryRegistry) GetRecoveryData(ctx context.Context, userID string, recordType string) (*interfaces.RecoveryRecord, error) {
	recordPath := r.recordPath(userID, recordType)

	data, err := os.ReadFile(recordPath)
	if os.IsNotExist(err) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recovery record: %w", err)
	}

	var record interfaces.RecoveryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode recovery record: %w", err)
	}
	return &record, nil
}

// Available checks that the base directory still exists.
func (r *FileRecoveryRegistry) Available(ctx context.Context) bool {
	_, err := os.Stat(r.baseDir)
	if err != nil {
		r.log.Debug("File registry unavailable", "err", err)
		return false
	}
	return true
}

func (r *FileRecoveryRegistry) recordPath(userID, recordType string) string {
	userHash := sha256.Sum256([]byte(userID))
	return filepath.Join(r.baseDir, fmt.Sprintf("%x", userHash), recordType+".json")
}
