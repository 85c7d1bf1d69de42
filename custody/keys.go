package custody

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/openclave/wallet-custody-backend/cryptoutils"
	"github.com/openclave/wallet-custody-backend/interfaces"
)

const scalarSize = 32

// sampleScalar draws a uniformly random valid secp256k1 scalar in [1, N)
// by rejection sampling raw random bytes. The returned Secret owns the
// buffer; the caller must Destroy it.
func sampleScalar() (*cryptoutils.Secret, error) {
	order := crypto.S256().Params().N
	buf := make([]byte, scalarSize)
	k := new(big.Int)
	defer k.SetInt64(0)

	for {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return nil, fmt.Errorf("failed to read randomness: %w", err)
		}
		k.SetBytes(buf)
		if k.Sign() > 0 && k.Cmp(order) < 0 {
			return cryptoutils.NewSecret(buf), nil
		}
	}
}

// validateScalar checks that a reconstructed 32-byte value is a valid
// private key for the curve: 1 <= value < N.
func validateScalar(secret []byte) error {
	if len(secret) != scalarSize {
		return fmt.Errorf("%w: wrong length", interfaces.ErrInvalidReconstruction)
	}
	k := new(big.Int).SetBytes(secret)
	defer k.SetInt64(0)
	if k.Sign() <= 0 || k.Cmp(crypto.S256().Params().N) >= 0 {
		return interfaces.ErrInvalidReconstruction
	}
	return nil
}

// derivePublic computes the uncompressed public key (65 bytes, 0x04 prefix)
// and the wallet address for a secret scalar. The private key structure is
// zeroed before returning.
func derivePublic(secret []byte) (pubKeyHex string, address string, err error) {
	priv, err := crypto.ToECDSA(secret)
	if err != nil {
		return "", "", interfaces.ErrInvalidReconstruction
	}
	defer priv.D.SetInt64(0)

	pub := crypto.FromECDSAPub(&priv.PublicKey)
	return hex.EncodeToString(pub), DeriveAddress(pub), nil
}

// DeriveAddress maps an uncompressed public key to a wallet address:
// SHA-256 over the 65-byte encoding, truncated to the first 20 bytes, hex
// with a 0x prefix.
//
// This is deliberately not the keccak-based scheme of the wider chain
// family. The derivation is part of the deployed identity namespace and is
// pinned by tests; do not "fix" it to match another chain's convention.
func DeriveAddress(uncompressedPubKey []byte) string {
	sum := sha256.Sum256(uncompressedPubKey)
	return "0x" + hex.EncodeToString(sum[:20])
}

// serverShardSalt returns the stable per-user salt for the server-shard
// key derivation context.
func serverShardSalt(userID string) []byte {
	sum := sha256.Sum256([]byte("server-shard:" + userID))
	return sum[:]
}

// recoveryShardSalt returns the stable per-user salt for the
// recovery-shard key derivation context. Distinct from the server context
// so the two derived keys never coincide even for equal inputs.
func recoveryShardSalt(userID string) []byte {
	sum := sha256.Sum256([]byte("recovery-shard:" + userID))
	return sum[:]
}
