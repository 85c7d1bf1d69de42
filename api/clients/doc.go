// Package clients provides typed HTTP clients for the wallet custody
// server, plus mocks for consumers' tests.
package clients
