package interfaces

import (
	"fmt"
	"time"
)

// ShardType identifies the role of a key shard.
type ShardType string

const (
	// ShardTypeDevice is the shard returned to the caller and persisted
	// client-side. This backend never stores it.
	ShardTypeDevice ShardType = "device"
	// ShardTypeServer is the shard persisted in the relational shard store,
	// encrypted under a key derived from the operator master secret.
	ShardTypeServer ShardType = "server"
	// ShardTypeRecovery is the shard persisted in the recovery registry,
	// encrypted under a key derived from the user's recovery passphrase.
	ShardTypeRecovery ShardType = "recovery"
)

// Valid reports whether the shard type is one of the three known roles.
func (t ShardType) Valid() bool {
	switch t {
	case ShardTypeDevice, ShardTypeServer, ShardTypeRecovery:
		return true
	default:
		return false
	}
}

// ShardDataSize is the encoded size of a shard: a 1-byte x-coordinate
// followed by a 32-byte polynomial evaluation.
const ShardDataSize = 33

// Shard is one point of the secret-sharing polynomial together with its
// role and integrity tag. Index is the x-coordinate (1-based, never 0 —
// a share at x=0 would reveal the secret directly).
type Shard struct {
	Type     ShardType `json:"type"`
	Index    int       `json:"index"`
	Data     []byte    `json:"data"`
	Checksum string    `json:"checksum"`
}

// Clone returns a deep copy of the shard.
func (s *Shard) Clone() *Shard {
	data := make([]byte, len(s.Data))
	copy(data, s.Data)
	return &Shard{Type: s.Type, Index: s.Index, Data: data, Checksum: s.Checksum}
}

// KeyGenerationResult is returned exactly once per generation or rotation.
// The caller owns persisting the device shard; the recovery passphrase is
// displayed once and never stored in plaintext anywhere in this backend.
type KeyGenerationResult struct {
	PublicKey          string `json:"public_key"`
	Address            string `json:"address"`
	DeviceShard        *Shard `json:"device_shard"`
	ServerShard        *Shard `json:"server_shard"`
	RecoveryShard      *Shard `json:"recovery_shard"`
	RecoveryPassphrase string `json:"recovery_passphrase"`
}

// RecoveredKey holds a reconstructed private key. It exists only on the
// call stack of a single operation; the holder must call Destroy as soon
// as the key has been used.
type RecoveredKey struct {
	PrivateKey []byte
	PublicKey  string
	Address    string
}

// Destroy zero-fills the private key buffer. Safe to call more than once.
func (k *RecoveredKey) Destroy() {
	for i := range k.PrivateKey {
		k.PrivateKey[i] = 0
	}
	k.PrivateKey = nil
}

// RecoverRequest names the inputs to key recovery. Exactly two shards with
// distinct indices are required. A server shard slot is always resolved
// from the shard store regardless of caller-supplied bytes; a recovery
// shard slot is resolved from the recovery registry when a passphrase is
// supplied.
type RecoverRequest struct {
	UserID             string
	Shard1             *Shard
	Shard2             *Shard
	RecoveryPassphrase string
}

// MPCSignature is a 64-byte compact ECDSA signature plus its recovery id.
type MPCSignature struct {
	Signature  []byte `json:"signature"`
	RecoveryID int    `json:"recovery_id"`
}

// RecoveryRecordWalletShard is the record type under which the encrypted
// recovery shard is filed in the recovery registry.
const RecoveryRecordWalletShard = "wallet-shard"

// RecoveryRecord is an encrypted record held by the recovery registry.
// EncryptedData is an opaque token produced by the blob protector over the
// AEAD blob; Metadata carries non-secret bookkeeping such as the shard
// index and checksum.
type RecoveryRecord struct {
	Type          string            `json:"type"`
	EncryptedData string            `json:"encrypted_data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// String implements fmt.Stringer without exposing record contents.
func (r *RecoveryRecord) String() string {
	return fmt.Sprintf("RecoveryRecord{type=%s, created=%s}", r.Type, r.CreatedAt.Format(time.RFC3339))
}
