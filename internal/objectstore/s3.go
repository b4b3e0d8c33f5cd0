package objectstore

import (
	"bytes"
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"doacoes/internal/config"
)

// S3Store maps each bucket name to an S3 bucket, optionally prefixed.
// AWS_S3_ENDPOINT points the client at LocalStack or another S3 clone.
type S3Store struct {
	client       *s3.Client
	bucketPrefix string
}

func NewS3Store(ctx context.Context, cfg config.Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = sdkaws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucketPrefix: cfg.S3BucketPrefix}, nil
}

func (s *S3Store) Put(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(s.bucketPrefix + bucket),
		Key:         sdkaws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: sdkaws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s/%s: %w", bucket, path, err)
	}
	return path, nil
}
