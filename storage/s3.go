package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

// S3RecoveryRegistry implements interfaces.RecoveryRegistry on Amazon S3
// or a compatible object store. Records are private objects keyed by the
// hash of the user id.
type S3RecoveryRegistry struct {
	codeIssuer

	client     *s3.S3
	bucketName string
	prefix     string
	log        *slog.Logger
}

// NewS3RecoveryRegistry creates a registry for the given bucket. When
// accessKey and secretKey are empty the ambient AWS credential chain is
// used; endpoint selects a compatible non-AWS store.
func NewS3RecoveryRegistry(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3RecoveryRegistry, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3RecoveryRegistry{
		client:     s3.New(sess),
		bucketName: bucketName,
		prefix:     strings.TrimSuffix(prefix, "/"),
		log:        log,
	}, nil
}

// StoreRecoveryData implements interfaces.RecoveryRegistry.
func (r *S3RecoveryRegistry) StoreRecoveryData(ctx context.Context, userID string, record *interfaces.RecoveryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode recovery record: %w", err)
	}

	key := r.objectKey(userID, record.Type)
	_, err = r.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
		ACL:    aws.String("private"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload recovery record: %w", err)
	}

	r.log.Debug("Stored recovery record in S3",
		slog.String("bucket", r.bucketName),
		slog.String("key", key))
	return nil
}

// GetRecoveryData implements interfaces.RecoveryRegistry.
func (r *S3RecoveryRegistry) GetRecoveryData(ctx context.Context, userID string, recordType string) (*interfaces.RecoveryRecord, error) {
	start := time.Now()
	key := r.objectKey(userID, recordType)

	result, err := r.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return nil, interfaces.ErrNotFound
		}
		r.log.Error("Failed to get recovery record from S3",
			slog.String("bucket", r.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to get recovery record: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recovery record body: %w", err)
	}

	var record interfaces.RecoveryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode recovery record: %w", err)
	}
	return &record, nil
}

// Available checks if the bucket is reachable.
func (r *S3RecoveryRegistry) Available(ctx context.Context) bool {
	_, err := r.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.bucketName),
	})
	if err != nil {
		r.log.Warn("S3 registry unavailable",
			slog.String("bucket", r.bucketName),
			"err", err)
		return false
	}
	return true
}

func (r *S3RecoveryRegistry) objectKey(userID, recordType string) string {
	userHash := sha256.Sum256([]byte(userID))
	key := path.Join(fmt.Sprintf("%x", userHash), recordType+".json")
	if r.prefix == "" {
		return key
	}
	return path.Join(r.prefix, key)
}
