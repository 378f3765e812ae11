package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/fintrack/internal/model"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Mirror writes encrypted copies of monthly snapshots to object storage.
type Mirror struct {
	client     s3Client
	bucket     string
	passphrase string
	logger     *slog.Logger
}

func NewMirror(cfg S3Config, passphrase string, logger *slog.Logger) *Mirror {
	return newMirror(newS3Client(cfg), cfg.Bucket, passphrase, logger)
}

func newMirror(client s3Client, bucket, passphrase string, logger *slog.Logger) *Mirror {
	return &Mirror{client: client, bucket: bucket, passphrase: passphrase, logger: logger}
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Key is the object key for a user's snapshot of one month.
func Key(userID int64, year, month int) string {
	return fmt.Sprintf("snapshots/%d/%04d-%02d.json.enc", userID, year, month)
}

// Put encrypts snap and uploads it, replacing any earlier copy.
func (m *Mirror) Put(ctx context.Context, snap model.Snapshot) error {
	plaintext, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	sealed, err := Seal(plaintext, m.passphrase)
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}

	key := Key(snap.UserID, snap.Year, snap.Month)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(sealed),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	m.logger.Debug("snapshot mirrored", "key", key, "bytes", len(sealed))
	return nil
}

// Fetch downloads and decrypts a mirrored snapshot. It returns (nil, nil)
// when no copy exists.
func (m *Mirror) Fetch(ctx context.Context, userID int64, year, month int) (*model.Snapshot, error) {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(Key(userID, year, month)),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("download snapshot: %w", err)
	}
	defer out.Body.Close()

	sealed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	plaintext, err := Open(sealed, m.passphrase)
	if err != nil {
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
