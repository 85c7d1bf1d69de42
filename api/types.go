package api

import (
	"encoding/hex"
	"fmt"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

// WalletProvider defines the client-side interface to the wallet custody
// service. It abstracts the HTTP transport so callers depend on the
// operations, not the wire format.
type WalletProvider interface {
	// Generate creates a fresh wallet for userID and returns the one-time
	// shard triple and recovery passphrase.
	Generate(userID string) (*GenerateResponse, error)

	// Recover reconstructs the wallet key from two shards.
	Recover(userID string, req *RecoverRequest) (*RecoverResponse, error)

	// Rotate re-shards the wallet key, invalidating all previous shards.
	Rotate(userID string, req *RecoverRequest) (*GenerateResponse, error)

	// Sign produces a compact signature over a 32-byte digest.
	Sign(userID string, req *SignRequest) (*SignResponse, error)
}

// ShardDTO is the wire form of a key shard. Data is hex encoded.
type ShardDTO struct {
	Type     string `json:"type"`
	Index    int    `json:"index"`
	Data     string `json:"data"`
	Checksum string `json:"checksum"`
}

// ShardFromDomain converts a domain shard to its wire form.
func ShardFromDomain(s *interfaces.Shard) *ShardDTO {
	if s == nil {
		return nil
	}
	return &ShardDTO{
		Type:     string(s.Type),
		Index:    s.Index,
		Data:     hex.EncodeToString(s.Data),
		Checksum: s.Checksum,
	}
}

// ToDomain converts a wire shard back to its domain form.
func (d *ShardDTO) ToDomain() (*interfaces.Shard, error) {
	if d == nil {
		return nil, nil
	}
	shardType := interfaces.ShardType(d.Type)
	if !shardType.Valid() {
		return nil, fmt.Errorf("unknown shard type: %s", d.Type)
	}
	data, err := hex.DecodeString(d.Data)
	if err != nil {
		return nil, fmt.Errorf("shard data is not valid hex")
	}
	return &interfaces.Shard{
		Type:     shardType,
		Index:    d.Index,
		Data:     data,
		Checksum: d.Checksum,
	}, nil
}

// GenerateResponse is returned by generation and rotation. It is the only
// time the device shard and recovery passphrase cross the wire.
type GenerateResponse struct {
	PublicKey          string    `json:"public_key"`
	Address            string    `json:"address"`
	DeviceShard        *ShardDTO `json:"device_shard"`
	ServerShard        *ShardDTO `json:"server_shard"`
	RecoveryShard      *ShardDTO `json:"recovery_shard"`
	RecoveryPassphrase string    `json:"recovery_passphrase"`
}

// RecoverRequest names two shards to reconstruct from. A server shard slot
// is resolved server-side regardless of the supplied bytes; a recovery
// shard slot is resolved from the registry when the passphrase is set.
type RecoverRequest struct {
	Shard1             *ShardDTO `json:"shard1"`
	Shard2             *ShardDTO `json:"shard2"`
	RecoveryPassphrase string    `json:"recovery_passphrase,omitempty"`
}

// RecoverResponse carries the reconstructed key material back to the
// device. PrivateKey is hex; the caller re-shards or imports it
// immediately and must not persist it.
type RecoverResponse struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	Address    string `json:"address"`
}

// SignRequest asks for a signature over MessageHash (hex, 32 bytes) using
// the key reconstructed from the recovery request.
type SignRequest struct {
	MessageHash string          `json:"message_hash"`
	Recovery    *RecoverRequest `json:"recovery"`
}

// SignResponse is a compact 64-byte signature (hex) with its recovery id.
type SignResponse struct {
	Signature  string `json:"signature"`
	RecoveryID int    `json:"recovery_id"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
