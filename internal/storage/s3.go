package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for S3 delivery.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Gateway reads source videos from the local filesystem and uploads the
// extracted audio to an S3 bucket. The upload target is an object key; a
// target ending in "/" (or empty) is treated as a prefix for the file name.
type S3Gateway struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3Gateway creates an S3Gateway from cfg.
func NewS3Gateway(ctx context.Context, cfg S3Config) (*S3Gateway, error) {
	if cfg.Bucket == "" {
		return nil, ErrS3NotConfigured
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Gateway{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// Download opens the local file at fileRef.
func (g *S3Gateway) Download(ctx context.Context, fileRef string) (io.ReadCloser, error) {
	return openSource(ctx, fileRef)
}

// Upload puts data under ObjectKey(target, name).
func (g *S3Gateway) Upload(ctx context.Context, target, name string, data io.Reader) error {
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(ObjectKey(target, name)),
		Body:        data,
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return fmt.Errorf("%w: upload to S3: %w", ErrTransfer, err)
	}
	return nil
}

// ObjectURL returns the public URL of key in the configured bucket.
func (g *S3Gateway) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", g.bucket, g.region, key)
}

// ObjectKey resolves the object key for an upload target and file name.
func ObjectKey(target, name string) string {
	if target == "" || strings.HasSuffix(target, "/") {
		return target + name
	}
	return target
}
