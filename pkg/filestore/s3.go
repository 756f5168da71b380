package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Config contains configuration for the S3 backend.
type S3Config struct {
	Bucket string
	Region string

	// Prefix is prepended to every object key.
	Prefix string

	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string

	// ForcePathStyle addresses objects as endpoint/bucket/key. Most
	// S3-compatible services need it.
	ForcePathStyle bool

	// AccessKey and SecretKey select static credentials. When empty the
	// SDK's default credential chain is used.
	AccessKey string
	SecretKey string
}

type uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

type bucketHeader interface {
	HeadBucketWithContext(ctx aws.Context, input *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error)
}

// S3Store uploads files to an S3 bucket.
type S3Store struct {
	config   *S3Config
	uploader uploader
	client   bucketHeader
	logger   *slog.Logger
}

// NewS3Store creates an S3 session from config.
func NewS3Store(config *S3Config) (*S3Store, error) {
	if config == nil || config.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}
	if config.ForcePathStyle {
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return newS3Store(config, s3manager.NewUploader(sess), s3.New(sess)), nil
}

func newS3Store(config *S3Config, up uploader, client bucketHeader) *S3Store {
	return &S3Store{
		config:   config,
		uploader: up,
		client:   client,
		logger:   slog.Default().With("component", "filestore.s3", "bucket", config.Bucket),
	}
}

// Save uploads the file under the configured prefix.
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader, contentType string) (*Reference, error) {
	if err := validateName(name); err != nil {
		return nil, NewSaveError("s3", name, err)
	}

	key := s.key(name)
	body := &countingReader{r: r}
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, NewSaveError("s3", name, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.config.Bucket, key)
	if out != nil && out.Location != "" {
		location = out.Location
	}

	s.logger.Info("file uploaded", "key", key, "size", body.n)
	return &Reference{
		Name:        name,
		Location:    location,
		Size:        body.n,
		ContentType: contentType,
		Backend:     "s3",
	}, nil
}

// Ping checks that the bucket exists and is accessible.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	return err
}

func (s *S3Store) key(name string) string {
	prefix := strings.Trim(s.config.Prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
