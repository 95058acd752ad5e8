// Package s3 provides a DocumentSource over the objects below an S3 prefix.
package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
	"github.com/custodia-labs/fiches/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.DocumentSource = (*Connector)(nil)

// API is the subset of the S3 client the connector uses.
type API interface {
	s3.ListObjectsV2APIClient
	manager.DownloadAPIClient
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// maxObjectSize bounds a single download; data sheets are small.
const maxObjectSize = 256 << 20

// Connector lists and downloads objects below bucket/prefix.
type Connector struct {
	client     API
	downloader *manager.Downloader
	bucket     string
	prefix     string
	detectMIME func(key string) string
}

// New creates a connector over an existing client.
func New(client API, bucket, prefix string, detectMIME func(key string) string) *Connector {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Connector{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		prefix:     prefix,
		detectMIME: detectMIME,
	}
}

// NewFromSettings builds an S3 client from settings. Without static keys the
// default AWS credential chain is used.
func NewFromSettings(
	ctx context.Context,
	settings domain.S3Settings,
	prefix string,
	detectMIME func(key string) string,
) (*Connector, error) {
	if settings.Bucket == "" {
		return nil, fmt.Errorf("%w: S3 bucket is not set", domain.ErrInvalidSettings)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(settings.Region)}
	if settings.AccessKey != "" && settings.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKey, settings.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(s3.NewFromConfig(awsCfg), settings.Bucket, prefix, detectMIME), nil
}

// Type returns the source type identifier.
func (c *Connector) Type() string {
	return "s3"
}

// SourceID returns s3://bucket/prefix.
func (c *Connector) SourceID() string {
	return "s3://" + c.bucket + "/" + c.prefix
}

// Validate checks the bucket is reachable.
func (c *Connector) Validate(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Documents pages through the prefix and downloads each object.
// Keys ending in "/" and hidden keys are skipped.
func (c *Connector) Documents(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(c.bucket),
			Prefix: aws.String(c.prefix),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				errs <- fmt.Errorf("list s3://%s/%s: %w", c.bucket, c.prefix, err)
				return
			}
			for _, obj := range page.Contents {
				rel, ok := c.relative(obj)
				if !ok {
					continue
				}
				raw, err := c.Fetch(ctx, rel)
				if err != nil {
					if ctx.Err() != nil {
						errs <- ctx.Err()
						return
					}
					logger.Warn("s3: %v", err)
					raw = domain.UnreadableDocument(c.SourceID(), rel, c.mimeType(rel), err)
				}
				select {
				case docs <- raw:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return docs, errs
}

// relative returns the key below the prefix, or false for objects to skip.
func (c *Connector) relative(obj types.Object) (string, bool) {
	key := aws.ToString(obj.Key)
	rel := strings.TrimPrefix(key, c.prefix)
	if rel == "" || strings.HasSuffix(key, "/") {
		return "", false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	if aws.ToInt64(obj.Size) > maxObjectSize {
		logger.Warn("s3: skip %s: %d bytes exceeds limit", key, aws.ToInt64(obj.Size))
		return "", false
	}
	return rel, true
}

// Fetch downloads the object at prefix + relPath.
func (c *Connector) Fetch(ctx context.Context, relPath string) (domain.RawDocument, error) {
	clean := path.Clean("/" + relPath)[1:]
	if clean == "" {
		return domain.RawDocument{}, fmt.Errorf("%w: empty key", domain.ErrInvalidInput)
	}
	key := c.prefix + clean

	buf := manager.NewWriteAtBuffer(nil)
	if _, err := c.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return domain.RawDocument{}, fmt.Errorf("%w: s3://%s/%s", domain.ErrNotFound, c.bucket, key)
		}
		return domain.RawDocument{}, fmt.Errorf("download s3://%s/%s: %w", c.bucket, key, err)
	}

	content := buf.Bytes()
	return domain.RawDocument{
		Document: domain.NewDocument(c.SourceID(), clean, c.mimeType(key), content),
		Content:  content,
		Metadata: map[string]any{"bucket": c.bucket, "key": key},
	}, nil
}

func (c *Connector) mimeType(key string) string {
	if c.detectMIME == nil {
		return "application/octet-stream"
	}
	return c.detectMIME(key)
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}
