package interfaces

import "context"

// ShardStore is the relational store for encrypted server shards. The
// backing table is key_shards(user_id, shard_type, encrypted_shard,
// created_at) with a unique constraint on (user_id, shard_type); writes are
// last-write-wins upserts and never partial.
type ShardStore interface {
	// UpsertShard stores or replaces the encrypted shard for (userID, shardType).
	UpsertShard(ctx context.Context, userID string, shardType ShardType, encryptedShard string) error

	// GetShard returns the encrypted shard for (userID, shardType), or
	// ErrNotFound if absent.
	GetShard(ctx context.Context, userID string, shardType ShardType) (string, error)
}

// RecoveryRegistry manages recovery passphrases and encrypted recovery
// records. Codes are generated with independent entropy and validated by
// format only; possession of the code is proven cryptographically by
// decrypting the recovery record, not by the registry.
type RecoveryRegistry interface {
	// GenerateRecoveryCode returns a fresh human-readable recovery code.
	GenerateRecoveryCode() (string, error)

	// ValidateRecoveryCode reports whether code is well-formed.
	ValidateRecoveryCode(code string) bool

	// StoreRecoveryData stores or replaces the record of record.Type for userID.
	StoreRecoveryData(ctx context.Context, userID string, record *RecoveryRecord) error

	// GetRecoveryData returns the record of recordType for userID, or
	// ErrNotFound if absent.
	GetRecoveryData(ctx context.Context, userID string, recordType string) (*RecoveryRecord, error)
}

// BlobProtector is the generic at-rest protection layer beneath the shard
// AEAD. Persisted records hold tokens, never the AEAD blob directly, so
// compromise of a store alone yields doubly protected material.
type BlobProtector interface {
	// Protect encrypts data and returns an opaque token.
	Protect(ctx context.Context, data []byte) (string, error)

	// Unprotect reverses Protect. The error is opaque on authentication
	// failure.
	Unprotect(ctx context.Context, token string) ([]byte, error)
}

// MasterKeyProvider supplies the operator master secret used to derive
// server-shard encryption keys. A provider that is not ready (for example
// a locked escrow awaiting administrator shares) returns ErrConfiguration.
type MasterKeyProvider interface {
	MasterSecret() ([]byte, error)
}
