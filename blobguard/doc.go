// Package blobguard implements the generic at-rest protection layer that
// sits beneath the shard AEAD. Stores hold only the opaque tokens produced
// here, so an attacker with store access faces two independent layers.
//
// Implementations: VaultProtector (HashiCorp Vault transit engine, for
// production), StaticProtector (local AES-GCM keyed from the operator
// master secret, for development), and NoopProtector (base64 passthrough,
// for unit tests).
package blobguard
