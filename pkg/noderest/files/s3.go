package files

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/tendant/node-rest-api/pkg/noderest"
)

// S3Config options for the S3 strategy
type S3Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PresignDuration int    // Duration in seconds for presigned URLs (default: 3600)

	// Public buckets get plain object URLs; private buckets get presigned GETs.
	Public bool

	// VerifyExists issues a HEAD before building the URL so missing objects
	// resolve to noderest.ErrFileNotFound.
	VerifyExists bool
}

// s3API is the subset of the S3 client the strategy uses.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Strategy resolves s3:// URIs. The URI path is "<bucket>/<key>"; when the
// bucket part is empty or differs, the configured bucket is used with the
// full path as key.
type S3Strategy struct {
	client          s3API
	presignClient   *s3.PresignClient
	bucket          string
	presignDuration time.Duration
	config          S3Config
}

// NewS3Strategy creates an S3 URL strategy
func NewS3Strategy(config S3Config) (*S3Strategy, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if config.PresignDuration == 0 {
		config.PresignDuration = 3600
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Options...)

	return &S3Strategy{
		client:          client,
		presignClient:   s3.NewPresignClient(client),
		bucket:          config.Bucket,
		presignDuration: time.Duration(config.PresignDuration) * time.Second,
		config:          config,
	}, nil
}

// PublicURL implements Strategy.
func (s *S3Strategy) PublicURL(ctx context.Context, path string) (string, error) {
	key := s.objectKey(path)
	if key == "" {
		return "", fmt.Errorf("%w: empty object key", noderest.ErrFileNotFound)
	}

	if s.config.VerifyExists {
		if err := s.headObject(ctx, key); err != nil {
			return "", err
		}
	}

	if s.config.Public {
		return s.objectURL(key), nil
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.presignDuration
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Strategy) objectKey(path string) string {
	path = strings.TrimPrefix(path, "/")
	if bucket, key, ok := strings.Cut(path, "/"); ok && bucket == s.bucket {
		return key
	}
	return path
}

// objectURL builds the unsigned URL of a public object.
func (s *S3Strategy) objectURL(key string) string {
	if s.config.Endpoint != "" {
		base := strings.TrimSuffix(s.config.Endpoint, "/")
		if s.config.UsePathStyle {
			return joinURL(base+"/"+s.bucket, key)
		}
		scheme, host, ok := strings.Cut(base, "://")
		if !ok {
			return joinURL(base+"/"+s.bucket, key)
		}
		return joinURL(scheme+"://"+s.bucket+"."+host, key)
	}
	return joinURL(fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.bucket, s.config.Region), key)
}

func (s *S3Strategy) headObject(ctx context.Context, key string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("%w: s3 object %s", noderest.ErrFileNotFound, key)
		}
	}
	return fmt.Errorf("failed to check object %s: %w", key, err)
}
