package cryptoutils

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

func TestShardChecksum_Format(t *testing.T) {
	salt := []byte("server-salt")
	data := make([]byte, interfaces.ShardDataSize)
	_, err := rand.Read(data)
	require.NoError(t, err)

	sum := ShardChecksum(data, salt)
	assert.Len(t, sum, 8, "checksum must be 8 hex characters")
	assert.Regexp(t, "^[0-9a-f]{8}$", sum)

	assert.Equal(t, sum, ShardChecksum(data, salt), "checksum must be deterministic")
	assert.NotEqual(t, sum, ShardChecksum(data, []byte("other-salt")),
		"checksum must depend on the salt")
}

func TestVerifyShardChecksum(t *testing.T) {
	salt := []byte("server-salt")
	data := make([]byte, interfaces.ShardDataSize)
	_, err := rand.Read(data)
	require.NoError(t, err)

	shard := &interfaces.Shard{
		Type:     interfaces.ShardTypeDevice,
		Index:    1,
		Data:     data,
		Checksum: ShardChecksum(data, salt),
	}
	assert.NoError(t, VerifyShardChecksum(shard, salt))

	// A single flipped bit in the data must be detected.
	tampered := shard.Clone()
	tampered.Data[7] ^= 0x10
	assert.ErrorIs(t, VerifyShardChecksum(tampered, salt), interfaces.ErrInvalidChecksum)

	// A modified tag must be detected.
	badTag := shard.Clone()
	badTag.Checksum = "00000000"
	assert.ErrorIs(t, VerifyShardChecksum(badTag, salt), interfaces.ErrInvalidChecksum)

	assert.ErrorIs(t, VerifyShardChecksum(nil, salt), interfaces.ErrInvalidChecksum)
}
