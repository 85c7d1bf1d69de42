package custody

import (
	"fmt"
	"sync"

	"github.com/hashicorp/vault/shamir"

	"github.com/openclave/wallet-custody-backend/cryptoutils"
	"github.com/openclave/wallet-custody-backend/interfaces"
)

// StaticMasterKey is a MasterKeyProvider backed by a fixed secret, supplied
// through environment configuration.
type StaticMasterKey struct {
	secret []byte
}

// NewStaticMasterKey copies the given secret. The secret must be at least
// 32 bytes.
func NewStaticMasterKey(secret []byte) (*StaticMasterKey, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("%w: master secret must be at least 32 bytes", interfaces.ErrConfiguration)
	}
	c := make([]byte, len(secret))
	copy(c, secret)
	return &StaticMasterKey{secret: c}, nil
}

// MasterSecret implements interfaces.MasterKeyProvider.
func (s *StaticMasterKey) MasterSecret() ([]byte, error) {
	return s.secret, nil
}

// MasterKeyEscrow guards the operator master secret with Shamir's Secret
// Sharing. At setup the secret is split into administrator shares and then
// erased from wherever it came from; at startup a recovery-mode escrow
// collects shares and reconstructs the secret in memory once the threshold
// is met. The reconstructed secret never reaches persistent storage.
//
// The escrow implements interfaces.MasterKeyProvider: while locked,
// MasterSecret returns a configuration error.
type MasterKeyEscrow struct {
	mu             sync.RWMutex
	masterSecret   []byte
	unlocked       bool
	threshold      int
	receivedShares map[int][]byte
}

// SplitMasterSecret splits a master secret into totalShares administrator
// shares with the given threshold. The caller distributes the shares and
// erases the original secret.
func SplitMasterSecret(masterSecret []byte, totalShares, threshold int) ([][]byte, error) {
	if len(masterSecret) < 32 {
		return nil, fmt.Errorf("%w: master secret must be at least 32 bytes", interfaces.ErrConfiguration)
	}
	if threshold < 2 {
		return nil, fmt.Errorf("%w: escrow threshold must be at least 2", interfaces.ErrConfiguration)
	}
	if totalShares < threshold {
		return nil, fmt.Errorf("%w: escrow shares must be at least the threshold", interfaces.ErrConfiguration)
	}

	shares, err := shamir.Split(masterSecret, totalShares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split master secret: %w", err)
	}
	return shares, nil
}

// NewMasterKeyEscrow returns an unlocked escrow holding an in-memory copy
// of the master secret, for operators that bootstrap with the secret in
// hand and split it in the same process.
func NewMasterKeyEscrow(masterSecret []byte, threshold int) (*MasterKeyEscrow, error) {
	if len(masterSecret) < 32 {
		return nil, fmt.Errorf("%w: master secret must be at least 32 bytes", interfaces.ErrConfiguration)
	}
	c := make([]byte, len(masterSecret))
	copy(c, masterSecret)
	return &MasterKeyEscrow{
		masterSecret:   c,
		unlocked:       true,
		threshold:      threshold,
		receivedShares: make(map[int][]byte),
	}, nil
}

// NewRecoveryEscrow returns a locked escrow that unlocks after threshold
// distinct shares are submitted.
func NewRecoveryEscrow(threshold int) (*MasterKeyEscrow, error) {
	if threshold < 2 {
		return nil, fmt.Errorf("%w: escrow threshold must be at least 2", interfaces.ErrConfiguration)
	}
	return &MasterKeyEscrow{
		threshold:      threshold,
		receivedShares: make(map[int][]byte),
	}, nil
}

// SubmitShare stores an administrator share and attempts reconstruction
// once the threshold is reached. Submitting to an unlocked escrow is an
// error; submitting the same index twice overwrites the previous share.
func (e *MasterKeyEscrow) SubmitShare(shareIndex int, share []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unlocked {
		return fmt.Errorf("escrow is already unlocked")
	}
	if len(share) == 0 {
		return fmt.Errorf("share must not be empty")
	}

	c := make([]byte, len(share))
	copy(c, share)
	e.receivedShares[shareIndex] = c

	return e.tryReconstruct()
}

// tryReconstruct combines the received shares once the threshold is met,
// then wipes them. Not enough shares is not an error. Caller holds e.mu.
func (e *MasterKeyEscrow) tryReconstruct() error {
	if len(e.receivedShares) < e.threshold {
		return nil
	}

	shares := make([][]byte, 0, len(e.receivedShares))
	for _, share := range e.receivedShares {
		shares = append(shares, share)
	}

	masterSecret, err := shamir.Combine(shares)
	if err != nil {
		return fmt.Errorf("failed to reconstruct master secret: %w", err)
	}

	e.masterSecret = masterSecret
	e.unlocked = true

	for i := range e.receivedShares {
		cryptoutils.Wipe(e.receivedShares[i])
	}
	e.receivedShares = make(map[int][]byte)

	return nil
}

// IsUnlocked reports whether the master secret is available.
func (e *MasterKeyEscrow) IsUnlocked() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.unlocked
}

// ShareCount returns how many shares the locked escrow has collected.
func (e *MasterKeyEscrow) ShareCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.receivedShares)
}

// MasterSecret implements interfaces.MasterKeyProvider.
func (e *MasterKeyEscrow) MasterSecret() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.unlocked {
		return nil, fmt.Errorf("%w: escrow is locked, more shares required", interfaces.ErrConfiguration)
	}
	return e.masterSecret, nil
}
