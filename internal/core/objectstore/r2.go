// Package objectstore wraps the S3-compatible audio bucket (Cloudflare R2).
package objectstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/wavetotxt/wavetotxt/internal/config"
	"github.com/wavetotxt/wavetotxt/internal/core"
)

type R2Client struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
}

func NewR2Client(ctx context.Context, cfg *cfg.Config) (*R2Client, error) {
	if !cfg.ObjectStoreConfigured() {
		return nil, fmt.Errorf("object storage: %w", core.ErrConfigurationUnavailable)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		o.UsePathStyle = true
	})
	log.Println("Connected to R2 object storage")

	return &R2Client{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		bucket:   cfg.R2Bucket,
	}, nil
}

// Upload streams the audio payload into the bucket under the given key.
func (c *R2Client) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	uploadCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	_, err := c.uploader.Upload(uploadCtx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("r2 upload failed: %w", err)
	}
	return nil
}

// GetReader returns a streaming reader over the stored object; the caller
// closes it.
func (c *R2Client) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("r2 get failed: %w", err)
	}
	return resp.Body, nil
}

// PresignGet mints a time-limited GET URL, used for the playback link and for
// handing audio to the diarizing provider without exposing credentials.
func (c *R2Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("r2 presign failed: %w", err)
	}
	return req.URL, nil
}

var _ core.ObjectStore = (*R2Client)(nil)
