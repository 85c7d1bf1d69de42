package interfaces

import "errors"

// Sentinel errors for the custody error taxonomy. Callers match with
// errors.Is; implementations wrap these with fmt.Errorf("%w: ...") but must
// never include raw key, shard, or passphrase bytes in the added context.
var (
	// ErrInvalidChecksum indicates a shard failed integrity verification.
	// It signals corruption or tampering and is never retried.
	ErrInvalidChecksum = errors.New("shard checksum verification failed")

	// ErrInsufficientShares indicates fewer distinct share indices were
	// supplied than the reconstruction threshold requires.
	ErrInsufficientShares = errors.New("insufficient shares for reconstruction")

	// ErrDuplicateShareIndex indicates two supplied shares carry the same
	// x-coordinate. Interpolation with a repeated point is degenerate and
	// can produce a plausible-looking wrong secret, so duplicates are
	// rejected rather than deduplicated.
	ErrDuplicateShareIndex = errors.New("duplicate share index")

	// ErrInvalidReconstruction indicates the reconstructed scalar is outside
	// the valid curve range, which signals shard mismatch or corruption.
	ErrInvalidReconstruction = errors.New("reconstructed key outside valid curve range")

	// ErrNotFound indicates a persisted server shard or recovery record is
	// absent from its store.
	ErrNotFound = errors.New("requested record not found")

	// ErrDecryptionFailed indicates AEAD authentication failure. It is
	// intentionally the same for a wrong key and a corrupted ciphertext.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrConfiguration indicates missing or invalid operator configuration,
	// such as absent master-key material.
	ErrConfiguration = errors.New("missing or invalid configuration")
)

// IsValidationError reports whether err belongs to the validation class of
// the taxonomy: failures that are detected before any store I/O and are
// never retried.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidChecksum) ||
		errors.Is(err, ErrInsufficientShares) ||
		errors.Is(err, ErrDuplicateShareIndex) ||
		errors.Is(err, ErrInvalidReconstruction)
}
