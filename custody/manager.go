package custody

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/openclave/wallet-custody-backend/cryptoutils"
	"github.com/openclave/wallet-custody-backend/interfaces"
	"github.com/openclave/wallet-custody-backend/shamir"
)

// shardRoles maps share positions to shard roles. The scheme is 2-of-3 by
// default; the splitter itself supports wider schemes, but the lifecycle
// assigns exactly these three roles.
var shardRoles = []interfaces.ShardType{
	interfaces.ShardTypeDevice,
	interfaces.ShardTypeServer,
	interfaces.ShardTypeRecovery,
}

// Config carries the operator-supplied parameters of the lifecycle manager.
type Config struct {
	// TotalShares and Threshold configure the sharing scheme. Zero values
	// default to (3, 2). TotalShares must be 3: the lifecycle assigns
	// exactly one device, one server, and one recovery role.
	TotalShares int
	Threshold   int

	// ChecksumSalt is the server-side salt mixed into shard checksums.
	ChecksumSalt []byte
}

// Manager orchestrates the wallet key lifecycle. It holds no persistent
// state of its own; all durable records live behind the injected
// collaborators.
type Manager struct {
	cfg      Config
	splitter *shamir.Splitter
	master   interfaces.MasterKeyProvider
	shards   interfaces.ShardStore
	recovery interfaces.RecoveryRegistry
	blobs    interfaces.BlobProtector
	log      *slog.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewManager wires a lifecycle manager with its collaborators. There is no
// process-wide state: two managers over the same stores behave like two
// replicas and must be serialized externally per user.
func NewManager(
	cfg Config,
	master interfaces.MasterKeyProvider,
	shards interfaces.ShardStore,
	recovery interfaces.RecoveryRegistry,
	blobs interfaces.BlobProtector,
	log *slog.Logger,
) (*Manager, error) {
	if cfg.TotalShares == 0 {
		cfg.TotalShares = shamir.DefaultTotalShares
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = shamir.DefaultThreshold
	}
	if cfg.TotalShares != len(shardRoles) {
		return nil, fmt.Errorf("%w: total shares must be %d (device, server, recovery)", interfaces.ErrConfiguration, len(shardRoles))
	}
	if len(cfg.ChecksumSalt) == 0 {
		return nil, fmt.Errorf("%w: checksum salt is required", interfaces.ErrConfiguration)
	}
	if master == nil || shards == nil || recovery == nil || blobs == nil {
		return nil, fmt.Errorf("%w: all collaborators are required", interfaces.ErrConfiguration)
	}

	splitter, err := shamir.NewSplitter(cfg.TotalShares, cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrConfiguration, err)
	}

	return &Manager{
		cfg:       cfg,
		splitter:  splitter,
		master:    master,
		shards:    shards,
		recovery:  recovery,
		blobs:     blobs,
		log:       log,
		userLocks: make(map[string]*sync.Mutex),
	}, nil
}

// userLock returns the mutex serializing lifecycle operations for a user
// within this process.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.userLocks[userID] = lock
	}
	return lock
}

// GenerateKey creates a fresh signing key for userID, splits it into three
// shards, persists the server and recovery shards encrypted, and returns
// the triple. The device shard is the caller's to store; this backend never
// persists it. The raw secret is zeroed before the call returns.
func (m *Manager) GenerateKey(ctx context.Context, userID string) (*interfaces.KeyGenerationResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", interfaces.ErrConfiguration)
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	secret, err := sampleScalar()
	if err != nil {
		return nil, err
	}
	defer secret.Destroy()

	result, err := m.splitAndPersist(ctx, userID, secret.Bytes())
	if err != nil {
		return nil, err
	}

	m.log.Info("generated wallet key",
		slog.String("user_id", userID),
		slog.String("address", result.Address),
		slog.String("op", uuid.NewString()))

	return result, nil
}

// RecoverKey reconstructs the signing key from any two shards with distinct
// indices. Checksums are verified before any store is touched; a server
// shard slot is always resolved from the shard store, and a recovery shard
// slot is resolved from the registry when a passphrase is supplied. The
// returned key exists only on the call stack: the caller must Destroy it
// immediately after use.
func (m *Manager) RecoverKey(ctx context.Context, req *interfaces.RecoverRequest) (*interfaces.RecoveredKey, error) {
	lock := m.userLock(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	return m.recoverLocked(ctx, req)
}

// RotateShards recovers the existing key and re-splits it with fresh
// random coefficients, persisting new server and recovery shards. The old
// shard bytes become permanently invalid; address and public key are
// unchanged.
func (m *Manager) RotateShards(ctx context.Context, userID string, req *interfaces.RecoverRequest) (*interfaces.KeyGenerationResult, error) {
	if req == nil || req.UserID != userID {
		return nil, fmt.Errorf("%w: rotation request user mismatch", interfaces.ErrConfiguration)
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	recovered, err := m.recoverLocked(ctx, req)
	if err != nil {
		return nil, err
	}
	defer recovered.Destroy()

	result, err := m.splitAndPersist(ctx, userID, recovered.PrivateKey)
	if err != nil {
		return nil, err
	}

	m.log.Info("rotated wallet shards",
		slog.String("user_id", userID),
		slog.String("address", result.Address))

	return result, nil
}

// SignWithMPC recovers the key, signs a 32-byte digest, zeroes the key,
// and returns the 64-byte compact signature with its recovery id. If
// recovery fails no signature is produced and the error propagates
// unchanged.
func (m *Manager) SignWithMPC(ctx context.Context, userID string, messageHash []byte, req *interfaces.RecoverRequest) (*interfaces.MPCSignature, error) {
	if len(messageHash) != 32 {
		return nil, fmt.Errorf("%w: message hash must be 32 bytes", interfaces.ErrConfiguration)
	}
	if req == nil || req.UserID != userID {
		return nil, fmt.Errorf("%w: signing request user mismatch", interfaces.ErrConfiguration)
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	recovered, err := m.recoverLocked(ctx, req)
	if err != nil {
		return nil, err
	}
	defer recovered.Destroy()

	priv, err := crypto.ToECDSA(recovered.PrivateKey)
	if err != nil {
		return nil, interfaces.ErrInvalidReconstruction
	}
	defer priv.D.SetInt64(0)

	// Signature layout from the curve library is r ∥ s ∥ v with v in {0,1}.
	sig, err := crypto.Sign(messageHash, priv)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	return &interfaces.MPCSignature{
		Signature:  sig[:64],
		RecoveryID: int(sig[64]),
	}, nil
}

// splitAndPersist runs the shared tail of generation and rotation: derive
// the public identity, split the secret with fresh coefficients, checksum
// each shard, persist the server and recovery shards, and assemble the
// result. The secret buffer is owned by the caller.
func (m *Manager) splitAndPersist(ctx context.Context, userID string, secret []byte) (*interfaces.KeyGenerationResult, error) {
	masterSecret, err := m.master.MasterSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: master secret unavailable", interfaces.ErrConfiguration)
	}

	pubKeyHex, address, err := derivePublic(secret)
	if err != nil {
		return nil, err
	}

	shares, err := m.splitter.Split(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to split secret: %w", err)
	}

	shards := make([]*interfaces.Shard, len(shares))
	for i, share := range shares {
		shards[i] = &interfaces.Shard{
			Type:     shardRoles[i],
			Index:    i + 1,
			Data:     share,
			Checksum: cryptoutils.ShardChecksum(share, m.cfg.ChecksumSalt),
		}
	}

	passphrase, err := m.persistShards(ctx, userID, masterSecret, shards[1], shards[2])
	if err != nil {
		return nil, err
	}

	return &interfaces.KeyGenerationResult{
		PublicKey:          pubKeyHex,
		Address:            address,
		DeviceShard:        shards[0],
		ServerShard:        shards[1],
		RecoveryShard:      shards[2],
		RecoveryPassphrase: passphrase,
	}, nil
}

// persistShards encrypts and stores the server shard (master-secret
// context) and the recovery shard (fresh passphrase context). Both pass
// through the blob protector before hitting their stores.
func (m *Manager) persistShards(ctx context.Context, userID string, masterSecret []byte, serverShard, recoveryShard *interfaces.Shard) (string, error) {
	serverKey := cryptoutils.DeriveKey(masterSecret, serverShardSalt(userID))
	defer cryptoutils.Wipe(serverKey)

	serverBlob, err := cryptoutils.Encrypt(serverShard.Data, serverKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt server shard: %w", err)
	}

	serverToken, err := m.blobs.Protect(ctx, []byte(serverBlob))
	if err != nil {
		return "", fmt.Errorf("failed to protect server shard: %w", err)
	}

	if err := m.shards.UpsertShard(ctx, userID, interfaces.ShardTypeServer, serverToken); err != nil {
		return "", fmt.Errorf("failed to store server shard: %w", err)
	}

	passphrase, err := m.recovery.GenerateRecoveryCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate recovery passphrase: %w", err)
	}

	recoveryKey := cryptoutils.DeriveKey([]byte(passphrase), recoveryShardSalt(userID))
	defer cryptoutils.Wipe(recoveryKey)

	recoveryBlob, err := cryptoutils.Encrypt(recoveryShard.Data, recoveryKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt recovery shard: %w", err)
	}

	recoveryToken, err := m.blobs.Protect(ctx, []byte(recoveryBlob))
	if err != nil {
		return "", fmt.Errorf("failed to protect recovery shard: %w", err)
	}

	record := &interfaces.RecoveryRecord{
		Type:          interfaces.RecoveryRecordWalletShard,
		EncryptedData: recoveryToken,
		Metadata: map[string]string{
			"share_index": strconv.Itoa(recoveryShard.Index),
			"checksum":    recoveryShard.Checksum,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := m.recovery.StoreRecoveryData(ctx, userID, record); err != nil {
		return "", fmt.Errorf("failed to store recovery record: %w", err)
	}

	return passphrase, nil
}

// recoverLocked implements recovery. The caller holds the user lock.
func (m *Manager) recoverLocked(ctx context.Context, req *interfaces.RecoverRequest) (*interfaces.RecoveredKey, error) {
	if req == nil || req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", interfaces.ErrConfiguration)
	}
	if req.Shard1 == nil || req.Shard2 == nil {
		return nil, fmt.Errorf("%w: two shards are required", interfaces.ErrInsufficientShares)
	}
	if !req.Shard1.Type.Valid() || !req.Shard2.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown shard type", interfaces.ErrInsufficientShares)
	}

	// Integrity first, before touching any store.
	if err := cryptoutils.VerifyShardChecksum(req.Shard1, m.cfg.ChecksumSalt); err != nil {
		return nil, err
	}
	if err := cryptoutils.VerifyShardChecksum(req.Shard2, m.cfg.ChecksumSalt); err != nil {
		return nil, err
	}

	// A caller passing the same shard twice would make interpolation
	// degenerate; reject before any I/O.
	if req.Shard1.Index == req.Shard2.Index {
		return nil, fmt.Errorf("%w: index %d", interfaces.ErrDuplicateShareIndex, req.Shard1.Index)
	}

	points := make([]shamir.SharePoint, 0, 2)
	for _, shard := range []*interfaces.Shard{req.Shard1, req.Shard2} {
		point, err := m.resolveShard(ctx, req.UserID, shard, req.RecoveryPassphrase)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	defer func() {
		for _, p := range points {
			cryptoutils.Wipe(p.Value)
		}
	}()

	secretBytes, err := m.splitter.Reconstruct(points)
	if err != nil {
		return nil, err
	}
	secret := cryptoutils.NewSecret(secretBytes)
	defer secret.Destroy()

	if err := validateScalar(secret.Bytes()); err != nil {
		return nil, err
	}

	pubKeyHex, address, err := derivePublic(secret.Bytes())
	if err != nil {
		return nil, err
	}

	privateKey := make([]byte, len(secretBytes))
	copy(privateKey, secret.Bytes())

	return &interfaces.RecoveredKey{
		PrivateKey: privateKey,
		PublicKey:  pubKeyHex,
		Address:    address,
	}, nil
}

// resolveShard turns a caller-supplied shard into a polynomial point.
// Server shards are always re-read from the shard store; recovery shards
// are read from the registry when a passphrase was supplied; device shards
// are used as given.
func (m *Manager) resolveShard(ctx context.Context, userID string, shard *interfaces.Shard, passphrase string) (shamir.SharePoint, error) {
	switch {
	case shard.Type == interfaces.ShardTypeServer:
		data, err := m.fetchServerShard(ctx, userID)
		if err != nil {
			return shamir.SharePoint{}, err
		}
		defer cryptoutils.Wipe(data)
		return shamir.ParseShare(data)

	case shard.Type == interfaces.ShardTypeRecovery && passphrase != "":
		data, err := m.fetchRecoveryShard(ctx, userID, passphrase)
		if err != nil {
			return shamir.SharePoint{}, err
		}
		defer cryptoutils.Wipe(data)
		return shamir.ParseShare(data)

	default:
		return shamir.ParseShare(shard.Data)
	}
}

// fetchServerShard loads and decrypts the persisted server shard.
func (m *Manager) fetchServerShard(ctx context.Context, userID string) ([]byte, error) {
	token, err := m.shards.GetShard(ctx, userID, interfaces.ShardTypeServer)
	if err != nil {
		return nil, fmt.Errorf("server shard: %w", err)
	}

	blob, err := m.blobs.Unprotect(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to unprotect server shard: %w", err)
	}

	masterSecret, err := m.master.MasterSecret()
	if err != nil {
		return nil, fmt.Errorf("%w: master secret unavailable", interfaces.ErrConfiguration)
	}

	serverKey := cryptoutils.DeriveKey(masterSecret, serverShardSalt(userID))
	defer cryptoutils.Wipe(serverKey)

	return cryptoutils.Decrypt(string(blob), serverKey)
}

// fetchRecoveryShard loads and decrypts the persisted recovery shard with
// the passphrase-derived key. A wrong passphrase is indistinguishable from
// a corrupted record.
func (m *Manager) fetchRecoveryShard(ctx context.Context, userID, passphrase string) ([]byte, error) {
	record, err := m.recovery.GetRecoveryData(ctx, userID, interfaces.RecoveryRecordWalletShard)
	if err != nil {
		return nil, fmt.Errorf("recovery shard: %w", err)
	}

	blob, err := m.blobs.Unprotect(ctx, record.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("failed to unprotect recovery shard: %w", err)
	}

	recoveryKey := cryptoutils.DeriveKey([]byte(passphrase), recoveryShardSalt(userID))
	defer cryptoutils.Wipe(recoveryKey)

	return cryptoutils.Decrypt(string(blob), recoveryKey)
}
