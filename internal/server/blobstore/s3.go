package blobstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}
)

// S3Options configures an S3 or S3-compatible (MinIO) bucket.
type S3Options struct {
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	BaseEndpoint  string
	PublicBaseURL string
}

type S3Store struct {
	client *s3.Client
	opts   S3Options
}

// NewS3Store builds the client once. Static credentials are used when an
// access key is configured; otherwise the default AWS chain applies.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, opts: opts}, nil
}

func (s *S3Store) Backend() string { return BackendS3 }

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	bucket := s.opts.Bucket
	err := putObject(s.client, ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.URL(key), nil
}

// URL resolves the public locator of key.
func (s *S3Store) URL(key string) string {
	switch {
	case s.opts.PublicBaseURL != "":
		return joinURL(s.opts.PublicBaseURL, key)
	case s.opts.BaseEndpoint != "":
		return joinURL(joinURL(s.opts.BaseEndpoint, s.opts.Bucket), key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, key)
	}
}
