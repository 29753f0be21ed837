package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/scansplit/pkg/grid"
)

// S3Config points at an S3-compatible bucket such as MinIO.
type S3Config struct {
	Endpoint  string // empty for AWS itself
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// Enabled reports whether a bucket was configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// S3Sink uploads each tile as <prefix>/<tile name>.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
	log    *slog.Logger
}

// NewS3Sink connects to the bucket, creating it if it does not exist yet.
func NewS3Sink(ctx context.Context, cfg S3Config, log *slog.Logger) (*S3Sink, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", ErrOutput, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	s := &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Location is s3://<bucket>/<prefix>.
func (s *S3Sink) Location() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create bucket %s: %v", ErrOutput, s.bucket, err)
	}
	s.log.Info("created bucket", "bucket", s.bucket)
	return nil
}

// Key is the object key a tile is stored under.
func (s *S3Sink) Key(t grid.Tile) string {
	return path.Join(s.prefix, t.Name())
}

func (s *S3Sink) Save(ctx context.Context, t grid.Tile) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, t.Pixels.NRGBA(), imaging.PNG); err != nil {
		return fmt.Errorf("encode %s: %w", t.Name(), err)
	}
	key := s.Key(t)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return fmt.Errorf("%w: upload %s: %v", ErrOutput, key, err)
	}
	s.log.Debug("uploaded", "key", key, "bytes", buf.Len())
	return nil
}
