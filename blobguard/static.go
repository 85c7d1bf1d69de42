package blobguard

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

// StaticProtector is a local AES-256-GCM protector keyed deterministically
// from the operator master secret. It provides the same interface as the
// Vault protector without an external dependency, for development and
// single-node deployments.
type StaticProtector struct {
	aead cipher.AEAD
}

// NewStaticProtector derives the protection key from the master secret
// under a fixed domain-separation label, so it never collides with the
// shard encryption keys derived from the same secret.
func NewStaticProtector(masterSecret []byte) (*StaticProtector, error) {
	if len(masterSecret) < 32 {
		return nil, fmt.Errorf("%w: master secret must be at least 32 bytes", interfaces.ErrConfiguration)
	}

	h := sha256.New()
	h.Write([]byte("blob-protection:"))
	h.Write(masterSecret)
	key := h.Sum(nil)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &StaticProtector{aead: aead}, nil
}

// Protect seals data with a fresh nonce; the token is base64(nonce ∥ sealed).
func (p *StaticProtector) Protect(ctx context.Context, data []byte) (string, error) {
	nonce := make([]byte, p.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := p.aead.Seal(nonce, nonce, data, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Unprotect opens a token produced by Protect. Authentication failure is
// opaque.
func (p *StaticProtector) Unprotect(ctx context.Context, token string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}
	if len(raw) < p.aead.NonceSize() {
		return nil, interfaces.ErrDecryptionFailed
	}
	nonce, sealed := raw[:p.aead.NonceSize()], raw[p.aead.NonceSize():]
	data, err := p.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}
	return data, nil
}

// NoopProtector passes data through base64 unchanged. Unit tests only.
type NoopProtector struct{}

func (NoopProtector) Protect(ctx context.Context, data []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(data), nil
}

func (NoopProtector) Unprotect(ctx context.Context, token string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}
	return data, nil
}
