package cryptoutils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

// checksumSize is the truncation length of the shard integrity tag.
const checksumSize = 4

// ShardChecksum computes the integrity tag for shard bytes: SHA-256 over
// shardBytes ∥ serverSalt, truncated to 4 bytes and hex-encoded (8 chars).
// The salt keeps the tag unforgeable by parties that only see shard bytes.
func ShardChecksum(shardBytes, serverSalt []byte) string {
	h := sha256.New()
	h.Write(shardBytes)
	h.Write(serverSalt)
	return hex.EncodeToString(h.Sum(nil)[:checksumSize])
}

// VerifyShardChecksum recomputes a shard's checksum and compares in
// constant time. A mismatch is fatal — it signals corruption or tampering,
// never a transient condition — and must be treated as non-retryable.
func VerifyShardChecksum(shard *interfaces.Shard, serverSalt []byte) error {
	if shard == nil {
		return fmt.Errorf("%w: nil shard", interfaces.ErrInvalidChecksum)
	}
	expected := ShardChecksum(shard.Data, serverSalt)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(shard.Checksum)) != 1 {
		return fmt.Errorf("%w: %s shard index %d", interfaces.ErrInvalidChecksum, shard.Type, shard.Index)
	}
	return nil
}
