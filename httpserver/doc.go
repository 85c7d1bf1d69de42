// Package httpserver exposes the wallet key lifecycle over HTTP.
//
// Routes:
//   - POST /api/wallet/{user_id}/generate
//   - POST /api/wallet/{user_id}/recover
//   - POST /api/wallet/{user_id}/rotate
//   - POST /api/wallet/{user_id}/sign
//   - GET  /livez, /readyz, /drain, /undrain
//
// Error mapping: validation failures return 400, missing wallets 404,
// cryptographic failures 401 (a wrong passphrase and a corrupted record
// are indistinguishable), unavailable configuration 503. Shard and key
// bytes are never logged.
package httpserver
