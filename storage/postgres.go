package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

// shardSchema is applied at startup. The unique constraint makes writes
// last-write-wins per (user_id, shard_type).
const shardSchema = `
CREATE TABLE IF NOT EXISTS key_shards (
	user_id         TEXT        NOT NULL,
	shard_type      TEXT        NOT NULL,
	encrypted_shard TEXT        NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, shard_type)
);
`

// PostgresShardStore implements interfaces.ShardStore on top of a
// PostgreSQL database. The driver is registered by the importing binary
// (github.com/lib/pq).
type PostgresShardStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresShardStore opens the database at dsn, verifies connectivity,
// and ensures the shard table exists.
func NewPostgresShardStore(dsn string, log *slog.Logger) (*PostgresShardStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, shardSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply shard schema: %w", err)
	}

	return &PostgresShardStore{db: db, log: log}, nil
}

// UpsertShard implements interfaces.ShardStore.
func (s *PostgresShardStore) UpsertShard(ctx context.Context, userID string, shardType interfaces.ShardType, encryptedShard string) error {
	const q = `
		INSERT INTO key_shards (user_id, shard_type, encrypted_shard)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, shard_type)
		DO UPDATE SET encrypted_shard = EXCLUDED.encrypted_shard, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, q, userID, string(shardType), encryptedShard); err != nil {
		return fmt.Errorf("failed to upsert shard: %w", err)
	}

	s.log.Debug("Upserted shard",
		slog.String("user_id", userID),
		slog.String("shard_type", string(shardType)))
	return nil
}

// GetShard implements interfaces.ShardStore.
func (s *PostgresShardStore) GetShard(ctx context.Context, userID string, shardType interfaces.ShardType) (string, error) {
	const q = `SELECT encrypted_shard FROM key_shards WHERE user_id = $1 AND shard_type = $2`

	var encryptedShard string
	err := s.db.QueryRowContext(ctx, q, userID, string(shardType)).Scan(&encryptedShard)
	if errors.Is(err, sql.ErrNoRows) {
		return "", interfaces.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query shard: %w", err)
	}
	return encryptedShard, nil
}

// Available checks connectivity to the database.
func (s *PostgresShardStore) Available(ctx context.Context) bool {
	if err := s.db.PingContext(ctx); err != nil {
		s.log.Debug("Shard store unavailable", "err", err)
		return false
	}
	return true
}

// Close releases the database connection pool.
func (s *PostgresShardStore) Close() error {
	return s.db.Close()
}
