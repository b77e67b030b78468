package store

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/use-agent/pricerank/config"
	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/scraper"
)

// objectPutter is the slice of the S3 client S3Store needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes artifacts to an S3 bucket. The artifact path, with its
// directory separators turned into slashes, becomes the object key under
// the configured prefix.
type S3Store struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Store builds an S3Store from the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Store(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(client objectPutter, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) SaveDocument(ctx context.Context, doc scraper.Document, p string) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("store: render %s: %w", p, err)
	}
	return s.put(ctx, p, data, htmlContentType)
}

func (s *S3Store) SaveRows(ctx context.Context, rows []models.RankingEntry, p string) error {
	data, err := encodeRows(rows)
	if err != nil {
		return err
	}
	return s.put(ctx, p, data, csvContentType)
}

func (s *S3Store) key(p string) string {
	k := strings.TrimLeft(filepath.ToSlash(filepath.Clean(p)), "/")
	if s.prefix == "" {
		return k
	}
	return path.Join(s.prefix, k)
}

func (s *S3Store) put(ctx context.Context, p string, data []byte, contentType string) error {
	key := s.key(p)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("store: put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
