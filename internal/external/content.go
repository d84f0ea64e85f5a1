package external

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/resilience"
)

// ContentStore keeps uploaded blobs and returns the path they are stored under.
type ContentStore interface {
	Put(ctx context.Context, content []byte, contentType string) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options locates the bucket. Endpoint is set for S3-compatible stores
// such as MinIO.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3ContentStore writes content objects into a bucket.
type S3ContentStore struct {
	client objectPutter
	bucket string
	policy resilience.Policy
	now    func() time.Time
}

// NewS3ContentStore builds an S3 client from opts. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain.
func NewS3ContentStore(ctx context.Context, opts S3Options, policy resilience.Policy) (*S3ContentStore, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3ContentStore(client, opts.Bucket, policy), nil
}

func newS3ContentStore(client objectPutter, bucket string, policy resilience.Policy) *S3ContentStore {
	policy.Name = "content store"
	return &S3ContentStore{client: client, bucket: bucket, policy: policy, now: time.Now}
}

// Put stores content under content/<yyyy>/<mm>/<dd>/<uuid>. Uploads are not
// retried.
func (s *S3ContentStore) Put(ctx context.Context, content []byte, contentType string) (string, error) {
	if len(content) == 0 {
		return "", apperr.Validation("content is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("content/%s/%s", s.now().UTC().Format("2006/01/02"), uuid.NewString())

	err := resilience.Exec(ctx, s.policy, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(content),
			ContentLength: aws.Int64(int64(len(content))),
			ContentType:   aws.String(contentType),
		})
		if err != nil {
			return transportError("content store", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Unconfigured is a ContentStore for deployments without a bucket.
type Unconfigured struct{}

func (Unconfigured) Put(context.Context, []byte, string) (string, error) {
	return "", fmt.Errorf("content store: %w: no bucket configured", apperr.ErrDependency)
}
