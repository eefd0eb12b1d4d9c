// Package blob stores product images in an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"backoffice/internal/catalog"
)

const DefaultRegion = "us-east-1"

// ProductImagePrefix is the key prefix of every product image.
const ProductImagePrefix = "products/"

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

type Options struct {
	// Endpoint overrides the AWS endpoint, e.g. a LocalStack URL. It also
	// switches to path-style addressing.
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type Store struct {
	client S3API
	bucket string
	base   string
}

// LoadConfig builds the AWS SDK config. Static credentials win over the
// default chain when both keys are set.
func LoadConfig(ctx context.Context, opts Options) (aws.Config, error) {
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}
	loaders := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return awsCfg, nil
}

func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	awsCfg, err := LoadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, opts.Bucket, publicBase(opts, awsCfg.Region)), nil
}

// NewWithClient wraps an existing client. base is the URL prefix objects are
// served from, without the key.
func NewWithClient(client S3API, bucket, base string) *Store {
	return &Store{client: client, bucket: bucket, base: strings.TrimRight(base, "/")}
}

// Upload implements catalog.BlobStore
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.URL(key), nil
}

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	return s.base + "/" + strings.TrimLeft(key, "/")
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) (created bool, err error) {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return false, nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return false, fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return true, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// ProductImageKey derives the object key of an uploaded product image.
func ProductImageKey(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return ProductImagePrefix + name
}

func publicBase(opts Options, region string) string {
	if opts.Endpoint != "" {
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, region)
}

var _ catalog.BlobStore = (*Store)(nil)
