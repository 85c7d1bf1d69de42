// Package custody implements the key lifecycle manager for wallet signing
// keys: generation, recovery, shard rotation, and signing.
//
// The raw signing key never reaches durable storage. At generation it is
// split into three shards under a 2-of-3 threshold; the server shard is
// encrypted under a key derived from the operator master secret and
// upserted into the relational shard store, the recovery shard is encrypted
// under a key derived from a one-time recovery passphrase and filed in the
// recovery registry, and the device shard is returned to the caller. Both
// persisted shards pass through the blob protector for an additional
// at-rest layer beneath the AEAD.
//
// # Lifecycle
//
//	GenerateKey  — sample a fresh curve scalar, split, persist, return the triple.
//	RecoverKey   — verify checksums, resolve persisted shards, reconstruct,
//	               validate the scalar, return an ephemeral RecoveredKey.
//	RotateShards — recover, then re-split the same secret with fresh
//	               coefficients; old shard bytes become permanently invalid
//	               while address and public key are unchanged.
//	SignWithMPC  — recover, ECDSA-sign a 32-byte digest, zero the key, return
//	               the compact signature and recovery id.
//
// Every operation either fully completes or fails with no partial store
// state: persistence is idempotent last-write-wins upserts. Secret buffers
// are zeroed on all exit paths via deferred destruction.
//
// # Concurrency
//
// The manager serializes lifecycle operations per user with an in-process
// mutex, so a recovery cannot interleave with a rotation for the same user
// within one process. Deployments running multiple replicas must still
// serialize rotations for a user externally; the manager performs no
// cross-process locking.
//
// # Master Secret Escrow
//
// The operator master secret can be supplied statically (environment) or
// through MasterKeyEscrow, which splits it into administrator shares and
// reconstructs it in memory once a threshold of shares is submitted. The
// escrowed secret never reaches persistent storage.
package custody
