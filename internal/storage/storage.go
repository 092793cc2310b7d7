// Package storage presigns picture uploads against an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bloodlink/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrInvalidUpload = errors.New("invalid upload request")

// Service is the subset of object storage the API needs
type Service interface {
	// PresignUpload returns a URL the client can PUT the object to until ttl elapses
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	EnsureBucket(ctx context.Context) error
	Health(ctx context.Context) error
}

type s3Service struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// New builds an S3 client for cfg. Presigned URLs use PublicEndpoint when set
// so browsers can reach the bucket from outside the cluster network.
func New(ctx context.Context, cfg config.S3Config) (Service, error) {
	if !cfg.Enabled() {
		return nil, errors.New("S3 endpoint is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := newClient(awsCfg, endpointURL(cfg.Endpoint, cfg.UseSSL))

	presignClient := client
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		presignClient = newClient(awsCfg, endpointURL(cfg.PublicEndpoint, cfg.UseSSL))
		slog.Info("Using public endpoint for presigned URLs", "endpoint", cfg.PublicEndpoint)
	}

	return &s3Service{
		client:    client,
		presigner: s3.NewPresignClient(presignClient),
		bucket:    cfg.BucketName,
	}, nil
}

// newClient uses path-style addressing, which MinIO requires
func newClient(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
}

func endpointURL(host string, useSSL bool) string {
	if useSSL {
		return "https://" + host
	}
	return "http://" + host
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *s3Service) EnsureBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return nil
	}

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	slog.Info("Created S3 bucket", "bucket", s.bucket)
	return nil
}

func (s *s3Service) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if key == "" || contentType == "" || ttl <= 0 {
		return "", fmt.Errorf("%w: key, content type and a positive ttl are required", ErrInvalidUpload)
	}

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	return req.URL, nil
}

func (s *s3Service) Health(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
