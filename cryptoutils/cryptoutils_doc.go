// Package cryptoutils provides the symmetric cryptography used to protect
// key shards at rest: PBKDF2 key derivation, AES-256-GCM authenticated
// encryption with the custody blob format, salted truncated-SHA-256 shard
// checksums, and scoped zeroization of secret buffers.
package cryptoutils
