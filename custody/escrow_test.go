package custody

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

func TestStaticMasterKey(t *testing.T) {
	_, err := NewStaticMasterKey([]byte("short"))
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)

	secret := make([]byte, 32)
	_, err = rand.Read(secret)
	require.NoError(t, err)

	provider, err := NewStaticMasterKey(secret)
	require.NoError(t, err)

	got, err := provider.MasterSecret()
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	// The provider holds its own copy.
	secret[0] ^= 0xff
	got, err = provider.MasterSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret[0], got[0])
}

func TestMasterKeyEscrow_SplitAndRecover(t *testing.T) {
	masterSecret := make([]byte, 32)
	_, err := rand.Read(masterSecret)
	require.NoError(t, err)

	shares, err := SplitMasterSecret(masterSecret, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	escrow, err := NewRecoveryEscrow(3)
	require.NoError(t, err)
	assert.False(t, escrow.IsUnlocked())

	_, err = escrow.MasterSecret()
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)

	require.NoError(t, escrow.SubmitShare(1, shares[0]))
	require.NoError(t, escrow.SubmitShare(4, shares[3]))
	assert.False(t, escrow.IsUnlocked())
	assert.Equal(t, 2, escrow.ShareCount())

	require.NoError(t, escrow.SubmitShare(2, shares[1]))
	require.True(t, escrow.IsUnlocked())

	got, err := escrow.MasterSecret()
	require.NoError(t, err)
	assert.Equal(t, masterSecret, got)

	// Collected shares are wiped once reconstruction succeeds.
	assert.Equal(t, 0, escrow.ShareCount())

	// An unlocked escrow rejects further shares.
	assert.Error(t, escrow.SubmitShare(5, shares[4]))
}

func TestMasterKeyEscrow_DuplicateIndexOverwrites(t *testing.T) {
	masterSecret := make([]byte, 32)
	_, err := rand.Read(masterSecret)
	require.NoError(t, err)

	shares, err := SplitMasterSecret(masterSecret, 3, 2)
	require.NoError(t, err)

	escrow, err := NewRecoveryEscrow(2)
	require.NoError(t, err)

	require.NoError(t, escrow.SubmitShare(1, shares[0]))
	require.NoError(t, escrow.SubmitShare(1, shares[1]))
	assert.False(t, escrow.IsUnlocked(), "one distinct index is below threshold")
	assert.Equal(t, 1, escrow.ShareCount())

	require.NoError(t, escrow.SubmitShare(2, shares[2]))
	assert.True(t, escrow.IsUnlocked())
}

func TestMasterKeyEscrow_Bootstrap(t *testing.T) {
	masterSecret := make([]byte, 32)
	_, err := rand.Read(masterSecret)
	require.NoError(t, err)

	escrow, err := NewMasterKeyEscrow(masterSecret, 2)
	require.NoError(t, err)
	assert.True(t, escrow.IsUnlocked())

	got, err := escrow.MasterSecret()
	require.NoError(t, err)
	assert.Equal(t, masterSecret, got)
}

func TestSplitMasterSecret_Validation(t *testing.T) {
	secret := make([]byte, 32)

	_, err := SplitMasterSecret(secret[:16], 3, 2)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)

	_, err = SplitMasterSecret(secret, 3, 1)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)

	_, err = SplitMasterSecret(secret, 2, 3)
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)
}
