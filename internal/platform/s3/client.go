package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/util/retry"
)

const (
	// DefaultBucket holds the public xTuple deploy assets.
	DefaultBucket = "com.xtuple.deploy-assets"
	// DefaultRegion is the region of DefaultBucket.
	DefaultRegion = "us-east-1"

	defaultFetchRetries = 3
)

// Config configures the asset store.
type Config struct {
	// Endpoint overrides the AWS endpoint for S3-compatible mirrors.
	Endpoint string
	Region   string

	// AccessKey and SecretKey are optional; without them requests are
	// sent anonymously.
	AccessKey string
	SecretKey string

	// PathStyle forces path-style addressing, needed by most mirrors.
	PathStyle bool
}

// Client reads objects from an asset bucket.
type Client struct {
	s3         *s3.Client
	retryDelay time.Duration
}

// NewClient creates an asset store client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	var creds aws.CredentialsProvider = aws.AnonymousCredentials{}
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &Client{s3: client, retryDelay: time.Second}, nil
}

// NotFoundError is returned when an asset does not exist in the bucket.
type NotFoundError struct {
	Bucket string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("asset %s not found in bucket %s", e.Key, e.Bucket)
}

// Exists reports whether key exists in bucket.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object %s in bucket %s: %w", key, bucket, err)
	}
	return true, nil
}

// Download streams key from bucket into w and returns the bytes written.
func (c *Client) Download(ctx context.Context, bucket, key string, w io.Writer) (int64, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return 0, &NotFoundError{Bucket: bucket, Key: key}
		}
		return 0, fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucket, err)
	}
	defer result.Body.Close()

	n, err := io.Copy(w, result.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read object body: %w", err)
	}
	return n, nil
}

// Fetch downloads key from bucket to dest on fsys. The object is written
// to a temporary file next to dest and renamed into place, so dest is
// either complete or absent. Transient failures are retried; a missing
// object is not.
func (c *Client) Fetch(ctx context.Context, bucket, key string, fsys afero.Fs, dest string) error {
	dir := filepath.Dir(dest)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	err := retry.Do(ctx, func() error {
		tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(dest)+"-*")
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create temporary file: %w", err))
		}
		tmpName := tmp.Name()

		_, dlErr := c.Download(ctx, bucket, key, tmp)
		closeErr := tmp.Close()
		if dlErr == nil {
			dlErr = closeErr
		}
		if dlErr != nil {
			_ = fsys.Remove(tmpName)
			var nf *NotFoundError
			if errors.As(dlErr, &nf) {
				return retry.Permanent(dlErr)
			}
			return dlErr
		}

		if err := fsys.Rename(tmpName, dest); err != nil {
			_ = fsys.Remove(tmpName)
			return retry.Permanent(fmt.Errorf("failed to move asset into place: %w", err))
		}
		return nil
	},
		retry.WithMaxRetries(defaultFetchRetries),
		retry.WithInitialDelay(c.retryDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	return nil
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// Check for typed S3 errors first
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// Fall back to API error code checking for S3-compatible services
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "NoSuchBucket" || code == "404"
	}

	return false
}
