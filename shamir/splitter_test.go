package shamir

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

func randomSecret(t *testing.T) []byte {
	t.Helper()
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	require.NoError(t, err, "failed to generate test secret")
	// Clamp below the field prime by clearing the top byte; real secrets are
	// curve scalars which are always below the prime.
	secret[0] = 0x7f
	return secret
}

func TestNewSplitter(t *testing.T) {
	s, err := NewSplitter(3, 2)
	require.NoError(t, err, "2-of-3 should be a valid scheme")
	assert.Equal(t, 3, s.TotalShares())
	assert.Equal(t, 2, s.Threshold())

	_, err = NewSplitter(3, 1)
	assert.Error(t, err, "threshold below 2 must be rejected")

	_, err = NewSplitter(2, 3)
	assert.Error(t, err, "total shares below threshold must be rejected")

	_, err = NewSplitter(256, 2)
	assert.Error(t, err, "more than 255 shares must be rejected")
}

func TestSplit_ShareFormat(t *testing.T) {
	s := DefaultSplitter()
	secret := randomSecret(t)

	shares, err := s.Split(secret)
	require.NoError(t, err)
	require.Len(t, shares, 3, "should produce exactly 3 shares")

	for i, share := range shares {
		assert.Len(t, share, interfaces.ShardDataSize, "share %d has wrong size", i)
		assert.Equal(t, byte(i+1), share[0], "share %d has wrong x-coordinate", i)
		assert.NotEqual(t, secret, share[1:], "share %d must not equal the secret", i)
	}
}

func TestSplit_RejectsBadSecret(t *testing.T) {
	s := DefaultSplitter()

	_, err := s.Split([]byte("short"))
	assert.Error(t, err, "secret of wrong length must be rejected")

	_, err = s.Split(nil)
	assert.Error(t, err, "nil secret must be rejected")
}

func TestReconstruct_AllIndexPairs(t *testing.T) {
	s := DefaultSplitter()
	secret := randomSecret(t)

	shares, err := s.Split(secret)
	require.NoError(t, err)

	pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	for _, pair := range pairs {
		p1, err := ParseShare(shares[pair[0]])
		require.NoError(t, err)
		p2, err := ParseShare(shares[pair[1]])
		require.NoError(t, err)

		recovered, err := s.Reconstruct([]SharePoint{p1, p2})
		require.NoError(t, err, "reconstruction with indices {%d,%d} failed", pair[0]+1, pair[1]+1)
		assert.True(t, bytes.Equal(secret, recovered),
			"indices {%d,%d} recovered a different secret", pair[0]+1, pair[1]+1)
	}
}

func TestReconstruct_OrderIndependent(t *testing.T) {
	s := DefaultSplitter()
	secret := randomSecret(t)

	shares, err := s.Split(secret)
	require.NoError(t, err)

	p1, _ := ParseShare(shares[0])
	p3, _ := ParseShare(shares[2])

	forward, err := s.Reconstruct([]SharePoint{p1, p3})
	require.NoError(t, err)
	backward, err := s.Reconstruct([]SharePoint{p3, p1})
	require.NoError(t, err)
	assert.Equal(t, forward, backward, "share order must not affect the result")
}

func TestReconstruct_InsufficientShares(t *testing.T) {
	s := DefaultSplitter()
	secret := randomSecret(t)

	shares, err := s.Split(secret)
	require.NoError(t, err)

	p1, _ := ParseShare(shares[0])
	_, err = s.Reconstruct([]SharePoint{p1})
	assert.ErrorIs(t, err, interfaces.ErrInsufficientShares, "a single share must not reconstruct")

	_, err = s.Reconstruct(nil)
	assert.ErrorIs(t, err, interfaces.ErrInsufficientShares, "no shares must not reconstruct")
}

func TestReconstruct_DuplicateIndexRejected(t *testing.T) {
	s := DefaultSplitter()
	secret := randomSecret(t)

	shares, err := s.Split(secret)
	require.NoError(t, err)

	p1, _ := ParseShare(shares[0])
	dup, _ := ParseShare(shares[0])

	_, err = s.Reconstruct([]SharePoint{p1, dup})
	assert.ErrorIs(t, err, interfaces.ErrDuplicateShareIndex,
		"the same share twice must be rejected, not silently deduplicated")
}

func TestReconstruct_WrongShareYieldsWrongSecret(t *testing.T) {
	s := DefaultSplitter()
	secretA := randomSecret(t)
	secretB := randomSecret(t)

	sharesA, err := s.Split(secretA)
	require.NoError(t, err)
	sharesB, err := s.Split(secretB)
	require.NoError(t, err)

	// Mixing shares of two different polynomials reconstructs garbage, not
	// either secret.
	p1, _ := ParseShare(sharesA[0])
	p2, _ := ParseShare(sharesB[1])
	recovered, err := s.Reconstruct([]SharePoint{p1, p2})
	require.NoError(t, err)
	assert.NotEqual(t, secretA, recovered)
	assert.NotEqual(t, secretB, recovered)
}

func TestSplit_FreshPolynomialEachCall(t *testing.T) {
	s := DefaultSplitter()
	secret := randomSecret(t)

	first, err := s.Split(secret)
	require.NoError(t, err)
	second, err := s.Split(secret)
	require.NoError(t, err)

	for i := range first {
		assert.NotEqual(t, first[i], second[i],
			"re-splitting the same secret must use fresh coefficients (share %d)", i)
	}
}

func TestConfigurableScheme(t *testing.T) {
	s, err := NewSplitter(5, 3)
	require.NoError(t, err)

	secret := randomSecret(t)
	shares, err := s.Split(secret)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	p1, _ := ParseShare(shares[0])
	p3, _ := ParseShare(shares[2])
	p5, _ := ParseShare(shares[4])

	recovered, err := s.Reconstruct([]SharePoint{p1, p3, p5})
	require.NoError(t, err)
	assert.Equal(t, secret, recovered, "3-of-5 reconstruction failed")

	_, err = s.Reconstruct([]SharePoint{p1, p3})
	assert.ErrorIs(t, err, interfaces.ErrInsufficientShares,
		"two shares must not satisfy a threshold of three")
}

func TestParseShare(t *testing.T) {
	_, err := ParseShare(make([]byte, 10))
	assert.Error(t, err, "short share must be rejected")

	zeroIndex := make([]byte, interfaces.ShardDataSize)
	_, err = ParseShare(zeroIndex)
	assert.Error(t, err, "x=0 share must be rejected")

	valid := make([]byte, interfaces.ShardDataSize)
	valid[0] = 2
	valid[5] = 0xab
	p, err := ParseShare(valid)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Index)
	assert.Equal(t, valid[1:], p.Value)
}
