package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

const (
	// KDFIterations is the PBKDF2-HMAC-SHA256 iteration count.
	KDFIterations = 100_000
	// KeySize is the derived AES-256 key size.
	KeySize = 32
	// IVSize is the GCM nonce size used by the blob format.
	IVSize = 16
	// TagSize is the GCM authentication tag size.
	TagSize = 16
)

// DeriveKey stretches secret material and a salt into a 32-byte AES key
// using PBKDF2-HMAC-SHA256. Used in two contexts: the server-shard key
// (operator master secret + stable per-user salt) and the recovery-shard
// key (user passphrase + per-user salt).
func DeriveKey(secretMaterial, salt []byte) []byte {
	return pbkdf2.Key(secretMaterial, salt, KDFIterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under key with AES-256-GCM and a fresh random
// 16-byte IV. The returned blob is base64(iv ∥ authTag ∥ ciphertext).
func Encrypt(plaintext, key []byte) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends the tag after the ciphertext; the blob format carries it
	// between the IV and the ciphertext.
	sealed := aead.Seal(nil, iv, plaintext, nil)
	ctLen := len(sealed) - TagSize

	blob := make([]byte, 0, IVSize+len(sealed))
	blob = append(blob, iv...)
	blob = append(blob, sealed[ctLen:]...)
	blob = append(blob, sealed[:ctLen]...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. Every failure mode — malformed
// blob, wrong key, corrupted ciphertext — surfaces as the same opaque
// interfaces.ErrDecryptionFailed so the function cannot act as a
// decryption oracle.
func Decrypt(blob string, key []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}
	if len(raw) < IVSize+TagSize {
		return nil, interfaces.ErrDecryptionFailed
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}

	iv := raw[:IVSize]
	tag := raw[IVSize : IVSize+TagSize]
	ciphertext := raw[IVSize+TagSize:]

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, interfaces.ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
