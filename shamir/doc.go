// Package shamir implements Shamir's Secret Sharing over the secp256k1
// prime field.
//
// A 32-byte secret is the constant term of a random polynomial of degree
// threshold-1; each share is the evaluation of that polynomial at a small
// nonzero x-coordinate, encoded as x (1 byte) followed by the 32-byte
// field element. Reconstruction is Lagrange interpolation at x=0.
//
// Unlike byte-wise GF(256) schemes, the whole secret is treated as a single
// field element modulo the secp256k1 field prime, which matches the 33-byte
// shard format used throughout the custody backend. Polynomial coefficients
// are sampled uniformly from [0, p) via rejection sampling, and modular
// inverses use Fermat's little theorem (p is prime).
//
// Shares at x=0 are never produced: such a share would equal the secret.
package shamir
