package blobstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/common"
	"github.com/dmitrijs2005/snapvault/internal/logging"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// resolveTTL bounds the lifetime of presigned GET URLs. Short by design:
// the rotating-URL contract must hold for this backend too.
const resolveTTL = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Store keeps asset bytes in an S3-compatible bucket. The object key is
// the durable handle; Resolve presigns a short-lived GET for it.
type S3Store struct {
	region   string
	user     string
	password string
	bucket   string
	endpoint string
	maxSize  int64
	logger   logging.Logger
}

type S3StoreOptions struct {
	Region       string
	RootUser     string
	RootPassword string
	Bucket       string
	BaseEndpoint string
	MaxSizeBytes int64
}

func NewS3Store(opts S3StoreOptions, logger logging.Logger) *S3Store {
	return &S3Store{
		region:   opts.Region,
		user:     opts.RootUser,
		password: opts.RootPassword,
		bucket:   opts.Bucket,
		endpoint: opts.BaseEndpoint,
		maxSize:  opts.MaxSizeBytes,
		logger:   logger.With("module", "s3store"),
	}
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.user, s.password, "",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.endpoint)
		o.UsePathStyle = true
	}), nil
}

func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("vaults/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *S3Store) Upload(ctx context.Context, payload io.Reader, size int64, filename string, onProgress ProgressFunc) (string, error) {

	if s.maxSize > 0 && size > s.maxSize {
		return "", common.ErrSizeRejected
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrTransferRefused, err)
	}

	key := randomStorageKey()

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          newProgressReader(payload, size, onProgress),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		if isTimeout(err) {
			return "", common.ErrTransferTimeout
		}
		return "", fmt.Errorf("%w: %v", common.ErrTransferRefused, err)
	}

	s.logger.Info(ctx, "uploaded", "filename", filename, "key", key, "size", size)
	return key, nil
}

func (s *S3Store) Resolve(ctx context.Context, handle string) (string, error) {

	client, err := s.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrHandleUnresolved, err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &handle,
	}, s3.WithPresignExpires(resolveTTL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrHandleUnresolved, err)
	}

	return req.URL, nil
}
