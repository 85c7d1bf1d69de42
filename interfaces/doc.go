// Package interfaces defines shared types, error values, and collaborator
// contracts used across the wallet custody backend.
//
// The package deliberately has no third-party dependencies so that every
// other package in the module can import it without cycles.
//
// # Core Types
//
// A wallet signing key never exists in durable storage. At generation time
// it is split into three shards under a 2-of-3 threshold:
//
//   - Device shard (index 1): returned to the caller, persisted client-side.
//   - Server shard (index 2): encrypted and stored in the relational shard store.
//   - Recovery shard (index 3): encrypted under a user passphrase and stored
//     in the recovery registry.
//
// Any two shards with distinct indices reconstruct the key; one shard alone
// reveals nothing.
//
// # Collaborators
//
// The lifecycle manager consumes four collaborator contracts defined here:
// ShardStore (relational storage for the server shard), RecoveryRegistry
// (recovery codes and encrypted recovery records), BlobProtector (generic
// at-rest protection beneath the shard AEAD), and MasterKeyProvider (source
// of the operator master secret).
//
// # Error Taxonomy
//
// Failures surface as one of the sentinel errors in this package, wrapped
// with context. Validation failures (checksum, duplicate or insufficient
// shares, out-of-range scalar) are fast and occur before any I/O. AEAD
// failures are deliberately opaque: a wrong passphrase and a corrupted
// ciphertext produce the same error so the system cannot be used as a
// password-guessing oracle. No error message ever contains raw key, shard,
// or passphrase bytes.
package interfaces
