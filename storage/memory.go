package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

// MemoryShardStore is an in-process ShardStore for tests and development.
type MemoryShardStore struct {
	mu     sync.RWMutex
	shards map[string]string
}

// NewMemoryShardStore creates an empty in-memory shard store.
func NewMemoryShardStore() *MemoryShardStore {
	return &MemoryShardStore{shards: make(map[string]string)}
}

func shardKey(userID string, shardType interfaces.ShardType) string {
	return fmt.Sprintf("%s/%s", userID, shardType)
}

// UpsertShard implements interfaces.ShardStore.
func (s *MemoryShardStore) UpsertShard(ctx context.Context, userID string, shardType interfaces.ShardType, encryptedShard string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shards[shardKey(userID, shardType)] = encryptedShard
	return nil
}

// GetShard implements interfaces.ShardStore.
func (s *MemoryShardStore) GetShard(ctx context.Context, userID string, shardType interfaces.ShardType) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	encryptedShard, ok := s.shards[shardKey(userID, shardType)]
	if !ok {
		return "", interfaces.ErrNotFound
	}
	return encryptedShard, nil
}

// MemoryRecoveryRegistry is an in-process RecoveryRegistry for tests and
// development.
type MemoryRecoveryRegistry struct {
	codeIssuer

	mu      sync.RWMutex
	records map[string]*interfaces.RecoveryRecord
}

// NewMemoryRecoveryRegistry creates an empty in-memory recovery registry.
func NewMemoryRecoveryRegistry() *MemoryRecoveryRegistry {
	return &MemoryRecoveryRegistry{records: make(map[string]*interfaces.RecoveryRecord)}
}

func recordKey(userID, recordType string) string {
	return fmt.Sprintf("%s/%s", userID, recordType)
}

// StoreRecoveryData implements interfaces.RecoveryRegistry.
func (r *MemoryRecoveryRegistry) StoreRecoveryData(ctx context.Context, userID string, record *interfaces.RecoveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *record
	r.records[recordKey(userID, record.Type)] = &stored
	return nil
}

// GetRecoveryData implements interfaces.RecoveryRegistry.
func (r *MemoryRecoveryRegistry) GetRecoveryData(ctx context.Context, userID string, recordType string) (*interfaces.RecoveryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[recordKey(userID, recordType)]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *record
	return &copied, nil
}
