// Package storage provides the persistence backends for encrypted key
// shards and recovery records, plus a URI-based factory for selecting
// them at startup.
//
// Shard stores (interfaces.ShardStore):
//   - PostgresShardStore: relational store backed by database/sql, the
//     production default.
//   - MemoryShardStore: in-process map, for tests and development.
//
// Recovery registries (interfaces.RecoveryRegistry):
//   - FileRecoveryRegistry: local filesystem, one directory per user.
//   - S3RecoveryRegistry: Amazon S3 or compatible object storage.
//   - MemoryRecoveryRegistry: in-process map, for tests and development.
//
// All backends hold only protected tokens; nothing in this package ever
// sees plaintext shard bytes.
package storage
