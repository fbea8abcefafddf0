package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxUploadBytes caps a single image upload.
const MaxUploadBytes = 5 << 20

// S3Options configures the S3 presigner. Endpoint selects an S3-compatible
// store (MinIO, R2) and switches to path-style addressing.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Expiry    time.Duration
}

// S3Presigner signs browser POST uploads to an S3 bucket.
type S3Presigner struct {
	bucket  string
	expiry  time.Duration
	presign *s3.PresignClient
}

// NewS3Presigner loads AWS configuration (static keys when given, the default
// chain otherwise) and builds a presigner.
func NewS3Presigner(ctx context.Context, opts S3Options) (*S3Presigner, error) {
	if opts.Bucket == "" {
		return nil, errors.New("upload bucket is required")
	}
	if opts.Expiry <= 0 {
		opts.Expiry = time.Hour
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Presigner{bucket: opts.Bucket, expiry: opts.Expiry, presign: s3.NewPresignClient(client)}, nil
}

func (p *S3Presigner) Expiry() time.Duration { return p.expiry }

func (p *S3Presigner) PresignUpload(ctx context.Context, key string) (Presigned, error) {
	req, err := p.presign.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = p.expiry
		o.Conditions = []interface{}{
			[]interface{}{"content-length-range", 1, MaxUploadBytes},
		}
	})
	if err != nil {
		return Presigned{}, err
	}
	return Presigned{URL: req.URL, Fields: req.Values}, nil
}
