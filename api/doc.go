// Package api defines the wire types shared by the HTTP server and its
// clients. Byte fields travel hex encoded; shard bytes appear in a
// response exactly once, at generation or rotation.
package api
