// Package storage fetches the raw dataset object from S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v5"

	"github.com/featurelabs/abalone-preprocess/internal/pipeline"
)

// ObjectAPI is the slice of the S3 client the downloader uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Options configures the S3 client construction.
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// EndpointURL switches the client to a custom path-style endpoint,
	// for MinIO and similar services.
	EndpointURL string
	// MaxAttempts bounds the per-object retry loop. Zero means the
	// default of 5.
	MaxAttempts uint
}

// Downloader fetches objects to local files with retry and size
// verification.
type Downloader struct {
	client      ObjectAPI
	log         *slog.Logger
	maxAttempts uint
}

// New builds a Downloader backed by a real S3 client.
func New(ctx context.Context, opts Options, log *slog.Logger) (*Downloader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if opts.EndpointURL != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
			o.UsePathStyle = true
		})
		log.Info("Using custom S3 endpoint", slog.String("endpoint", opts.EndpointURL))
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return NewWithClient(client, opts.MaxAttempts, log), nil
}

// NewWithClient builds a Downloader around an existing client. Used by
// tests to inject fakes.
func NewWithClient(client ObjectAPI, maxAttempts uint, log *slog.Logger) *Downloader {
	if maxAttempts == 0 {
		maxAttempts = 5
	}
	return &Downloader{
		client:      client,
		log:         log,
		maxAttempts: maxAttempts,
	}
}

// Download fetches s3://bucket/key to destPath and returns the byte count
// written. The fetch is retried with exponential backoff; the written size
// is verified against the object's content length.
func (d *Downloader) Download(ctx context.Context, bucket, key, destPath string) (int64, error) {
	d.log.Info("Downloading data",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.String("dest", destPath))

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, pipeline.NewIOError("fetch_object", "failed to create staging directory", err).
			WithContext("path", destPath)
	}

	head, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, pipeline.NewDownloadError("fetch_object", "failed to stat source object", err).
			WithContext("bucket", bucket).
			WithContext("key", key)
	}
	expectedSize := aws.ToInt64(head.ContentLength)

	attempt := 0
	written, err := backoff.Retry(ctx, func() (int64, error) {
		attempt++
		if attempt > 1 {
			d.log.Warn("Retrying object download", slog.Int("attempt", attempt))
		}
		return d.fetchOnce(ctx, bucket, key, destPath)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(d.maxAttempts))
	if err != nil {
		return 0, pipeline.NewDownloadError("fetch_object", "download failed after retries", err).
			WithContext("bucket", bucket).
			WithContext("key", key).
			WithContext("attempts", attempt)
	}

	if written != expectedSize {
		return 0, pipeline.NewDownloadError("fetch_object",
			fmt.Sprintf("size mismatch: expected %d bytes, wrote %d bytes", expectedSize, written), nil).
			WithContext("bucket", bucket).
			WithContext("key", key)
	}

	d.log.Info("Download verified", slog.Int64("bytes", written))
	return written, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, bucket, key, destPath string) (int64, error) {
	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, err
	}
	defer result.Body.Close()

	f, err := os.Create(destPath)
	if err != nil {
		// A local filesystem failure will not heal on retry.
		return 0, backoff.Permanent(err)
	}
	defer f.Close()

	written, err := io.Copy(f, result.Body)
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ParseURI splits an s3://bucket/key... object path into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("input data path %q is not an s3:// URI", uri)
	}
	bucket, key, ok = strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("input data path %q has no bucket/key components", uri)
	}
	return bucket, key, nil
}
