package blobguard

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultProtector protects blobs with HashiCorp Vault's transit secrets
// engine. Tokens are Vault transit ciphertexts ("vault:v1:..."); key
// material never leaves the Vault server.
type VaultProtector struct {
	client    *api.Client
	mountPath string
	keyName   string
	log       *slog.Logger
}

// NewVaultProtector creates a protector using the transit key keyName under
// mountPath (typically "transit"). The token is Vault's own auth token.
func NewVaultProtector(address, token, mountPath, keyName string, log *slog.Logger) (*VaultProtector, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{Timeout: 30 * time.Second}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultProtector{
		client:    client,
		mountPath: strings.TrimSuffix(mountPath, "/"),
		keyName:   keyName,
		log:       log,
	}, nil
}

// Protect encrypts data through the transit engine and returns the Vault
// ciphertext as the token.
func (p *VaultProtector) Protect(ctx context.Context, data []byte) (string, error) {
	path := fmt.Sprintf("%s/encrypt/%s", p.mountPath, p.keyName)

	secret, err := p.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		p.log.Error("Vault transit encrypt failed", "err", err)
		return "", fmt.Errorf("vault transit encrypt: %w", err)
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok || ciphertext == "" {
		return "", fmt.Errorf("vault transit encrypt: malformed response")
	}
	return ciphertext, nil
}

// Unprotect decrypts a transit token. Failures are not distinguished
// beyond the wrapped Vault error, which never contains the plaintext.
func (p *VaultProtector) Unprotect(ctx context.Context, token string) ([]byte, error) {
	path := fmt.Sprintf("%s/decrypt/%s", p.mountPath, p.keyName)

	secret, err := p.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"ciphertext": token,
	})
	if err != nil {
		p.log.Error("Vault transit decrypt failed", "err", err)
		return nil, fmt.Errorf("vault transit decrypt: %w", err)
	}

	plaintext, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("vault transit decrypt: malformed response")
	}

	data, err := base64.StdEncoding.DecodeString(plaintext)
	if err != nil {
		return nil, fmt.Errorf("vault transit decrypt: malformed plaintext: %w", err)
	}
	return data, nil
}
