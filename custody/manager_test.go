package custody

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclave/wallet-custody-backend/blobguard"
	"github.com/openclave/wallet-custody-backend/interfaces"
	"github.com/openclave/wallet-custody-backend/storage"
)

var testChecksumSalt = []byte("unit-test-checksum-salt")

// countingShardStore wraps a ShardStore and counts reads, so tests can
// assert that validation failures never reach the store.
type countingShardStore struct {
	interfaces.ShardStore
	gets int
}

func (s *countingShardStore) GetShard(ctx context.Context, userID string, shardType interfaces.ShardType) (string, error) {
	s.gets++
	return s.ShardStore.GetShard(ctx, userID, shardType)
}

func newTestManager(t *testing.T) (*Manager, *countingShardStore) {
	t.Helper()

	master, err := NewStaticMasterKey([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	store := &countingShardStore{ShardStore: storage.NewMemoryShardStore()}
	manager, err := NewManager(
		Config{ChecksumSalt: testChecksumSalt},
		master,
		store,
		storage.NewMemoryRecoveryRegistry(),
		blobguard.NoopProtector{},
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, err)
	return manager, store
}

func TestNewManager_Validation(t *testing.T) {
	master, err := NewStaticMasterKey([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	store := storage.NewMemoryShardStore()
	registry := storage.NewMemoryRecoveryRegistry()
	logger := slog.New(slog.DiscardHandler)

	_, err = NewManager(Config{ChecksumSalt: testChecksumSalt, TotalShares: 5, Threshold: 3}, master, store, registry, blobguard.NoopProtector{}, logger)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration, "lifecycle roles require exactly three shares")

	_, err = NewManager(Config{}, master, store, registry, blobguard.NoopProtector{}, logger)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration, "checksum salt is required")

	_, err = NewManager(Config{ChecksumSalt: testChecksumSalt}, nil, store, registry, blobguard.NoopProtector{}, logger)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)
}

func TestGenerateKey(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	shards := []*interfaces.Shard{result.DeviceShard, result.ServerShard, result.RecoveryShard}
	wantTypes := []interfaces.ShardType{interfaces.ShardTypeDevice, interfaces.ShardTypeServer, interfaces.ShardTypeRecovery}
	for i, shard := range shards {
		assert.Equal(t, wantTypes[i], shard.Type)
		assert.Equal(t, i+1, shard.Index)
		assert.Len(t, shard.Data, interfaces.ShardDataSize)
		assert.Len(t, shard.Checksum, 8)
	}

	pub, err := hex.DecodeString(result.PublicKey)
	require.NoError(t, err)
	require.Len(t, pub, 65)
	assert.Equal(t, DeriveAddress(pub), result.Address)

	assert.True(t, storage.ValidateRecoveryCode(result.RecoveryPassphrase))
}

func TestGenerateKey_DistinctUsersDistinctKeys(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	alice, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)
	bob, err := manager.GenerateKey(ctx, "bob")
	require.NoError(t, err)

	assert.NotEqual(t, alice.Address, bob.Address)
	assert.NotEqual(t, alice.PublicKey, bob.PublicKey)
}

func TestRecoverKey_DeviceAndServer(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	recovered, err := manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: result.DeviceShard,
		Shard2: result.ServerShard,
	})
	require.NoError(t, err)
	defer recovered.Destroy()

	assert.Equal(t, result.Address, recovered.Address)
	assert.Equal(t, result.PublicKey, recovered.PublicKey)
	assert.Len(t, recovered.PrivateKey, 32)
}

func TestRecoverKey_DeviceAndRecoveryPassphrase(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	recovered, err := manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID:             "alice",
		Shard1:             result.DeviceShard,
		Shard2:             result.RecoveryShard,
		RecoveryPassphrase: result.RecoveryPassphrase,
	})
	require.NoError(t, err)
	defer recovered.Destroy()

	assert.Equal(t, result.Address, recovered.Address)
}

func TestRecoverKey_ServerAndRecoveryPassphrase(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	recovered, err := manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID:             "alice",
		Shard1:             result.ServerShard,
		Shard2:             result.RecoveryShard,
		RecoveryPassphrase: result.RecoveryPassphrase,
	})
	require.NoError(t, err)
	defer recovered.Destroy()

	assert.Equal(t, result.Address, recovered.Address)
}

func TestRecoverKey_WrongPassphrase(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	_, err = manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID:             "alice",
		Shard1:             result.DeviceShard,
		Shard2:             result.RecoveryShard,
		RecoveryPassphrase: "AAAA-BBBB-CCCC-DDDD",
	})
	assert.ErrorIs(t, err, interfaces.ErrDecryptionFailed)
}

func TestRecoverKey_DuplicateShardIndex(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	_, err = manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: result.DeviceShard,
		Shard2: result.DeviceShard.Clone(),
	})
	assert.ErrorIs(t, err, interfaces.ErrDuplicateShareIndex)
}

func TestRecoverKey_TamperedChecksumFailsBeforeStoreAccess(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	tampered := result.DeviceShard.Clone()
	tampered.Data[5] ^= 0x01
	store.gets = 0

	_, err = manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: tampered,
		Shard2: result.ServerShard,
	})
	assert.ErrorIs(t, err, interfaces.ErrInvalidChecksum)
	assert.Zero(t, store.gets, "integrity failures must not touch the store")
}

func TestRecoverKey_UnknownUser(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	_, err = manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID: "mallory",
		Shard1: result.DeviceShard,
		Shard2: result.ServerShard,
	})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestRecoverKey_InsufficientShards(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	_, err = manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: result.DeviceShard,
	})
	assert.ErrorIs(t, err, interfaces.ErrInsufficientShares)
}

func TestRotateShards(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	original, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	rotated, err := manager.RotateShards(ctx, "alice", &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: original.DeviceShard,
		Shard2: original.ServerShard,
	})
	require.NoError(t, err)

	// Identity survives rotation.
	assert.Equal(t, original.Address, rotated.Address)
	assert.Equal(t, original.PublicKey, rotated.PublicKey)

	// The polynomial does not.
	assert.NotEqual(t, original.DeviceShard.Data, rotated.DeviceShard.Data)
	assert.NotEqual(t, original.ServerShard.Data, rotated.ServerShard.Data)
	assert.NotEqual(t, original.RecoveryShard.Data, rotated.RecoveryShard.Data)
	assert.NotEqual(t, original.RecoveryPassphrase, rotated.RecoveryPassphrase)

	// The fresh shards recover the same key.
	recovered, err := manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: rotated.DeviceShard,
		Shard2: rotated.ServerShard,
	})
	require.NoError(t, err)
	defer recovered.Destroy()
	assert.Equal(t, original.Address, recovered.Address)

	// An old device shard mixed with the rotated server shard cannot yield
	// the wallet key.
	stale, err := manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: original.DeviceShard,
		Shard2: rotated.ServerShard,
	})
	if err == nil {
		defer stale.Destroy()
		assert.NotEqual(t, original.Address, stale.Address)
	}
}

func TestSignWithMPC(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	messageHash := sha256.Sum256([]byte("Hello, MPC!"))
	sig, err := manager.SignWithMPC(ctx, "alice", messageHash[:], &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: result.DeviceShard,
		Shard2: result.ServerShard,
	})
	require.NoError(t, err)

	assert.Len(t, sig.Signature, 64)
	assert.Contains(t, []int{0, 1}, sig.RecoveryID)

	pub, err := hex.DecodeString(result.PublicKey)
	require.NoError(t, err)
	assert.True(t, crypto.VerifySignature(pub, messageHash[:], sig.Signature))
}

func TestSignWithMPC_Validation(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)
	req := &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: result.DeviceShard,
		Shard2: result.ServerShard,
	}

	_, err = manager.SignWithMPC(ctx, "alice", []byte("not a digest"), req)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)

	messageHash := sha256.Sum256([]byte("Hello, MPC!"))
	_, err = manager.SignWithMPC(ctx, "bob", messageHash[:], req)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)
}

// Failure paths must never echo key or shard material.
func TestErrors_NeverLeakShardBytes(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	result, err := manager.GenerateKey(ctx, "alice")
	require.NoError(t, err)

	longHex := regexp.MustCompile(`[0-9a-fA-F]{64}`)

	_, err = manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID:             "alice",
		Shard1:             result.DeviceShard,
		Shard2:             result.RecoveryShard,
		RecoveryPassphrase: "AAAA-BBBB-CCCC-DDDD",
	})
	require.Error(t, err)
	assert.NotRegexp(t, longHex, err.Error())
	assert.NotContains(t, err.Error(), hex.EncodeToString(result.DeviceShard.Data))
	assert.NotContains(t, err.Error(), "AAAA-BBBB-CCCC-DDDD")

	tampered := result.DeviceShard.Clone()
	tampered.Data[0] ^= 0x01
	_, err = manager.RecoverKey(ctx, &interfaces.RecoverRequest{
		UserID: "alice",
		Shard1: tampered,
		Shard2: result.ServerShard,
	})
	require.Error(t, err)
	assert.NotRegexp(t, longHex, err.Error())
}
