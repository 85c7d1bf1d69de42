package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

// Factory creates shard stores and recovery registries from URI strings,
// so deployments select their backends through configuration alone.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// ShardStoreFor creates a shard store from a location URI.
//
// Supported schemes:
//   - postgres:// - PostgreSQL, passed through as the connection string
//   - memory://   - in-process store for tests and development
func (f *Factory) ShardStoreFor(locationURI string) (interfaces.ShardStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid shard store URI: %v", interfaces.ErrConfiguration, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		f.log.Debug("Creating postgres shard store", slog.String("host", u.Host))
		return NewPostgresShardStore(locationURI, f.log)
	case "memory":
		return NewMemoryShardStore(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported shard store scheme: %s", interfaces.ErrConfiguration, u.Scheme)
	}
}

// RecoveryRegistryFor creates a recovery registry from a location URI.
//
// Supported schemes:
//   - file:///path/to/dir - local filesystem
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-east-1&endpoint=custom.s3.com
//   - memory:// - in-process registry for tests and development
func (f *Factory) RecoveryRegistryFor(locationURI string) (interfaces.RecoveryRegistry, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recovery registry URI: %v", interfaces.ErrConfiguration, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.createFileRegistry(u)
	case "s3":
		return f.createS3Registry(u)
	case "memory":
		return NewMemoryRecoveryRegistry(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported recovery registry scheme: %s", interfaces.ErrConfiguration, u.Scheme)
	}
}

func (f *Factory) createFileRegistry(u *url.URL) (interfaces.RecoveryRegistry, error) {
	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrConfiguration, u.String())
	}

	f.log.Debug("Creating file recovery registry", slog.String("path", path))
	return NewFileRecoveryRegistry(path, f.log)
}

func (f *Factory) createS3Registry(u *url.URL) (interfaces.RecoveryRegistry, error) {
	bucketName := u.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI: %s", interfaces.ErrConfiguration, u.String())
	}

	prefix := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	f.log.Debug("Creating S3 recovery registry",
		slog.String("bucket", bucketName),
		slog.String("region", region))
	return NewS3RecoveryRegistry(bucketName, prefix, region, endpoint, accessKey, secretKey, f.log)
}
