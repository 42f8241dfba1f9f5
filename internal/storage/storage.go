package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/metrics"
)

const defaultContentType = "application/octet-stream"

// ObjectStore is the surface the handlers and the bulk-delete service need
// from the object-storage backend.
type ObjectStore interface {
	// PresignedPut returns a time-limited URL allowing a direct PUT of the
	// object bytes, bypassing the application server.
	PresignedPut(ctx context.Context, key string) (string, error)
	// Upload writes an object through the server binding.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Remove deletes one object. Missing keys are not an error.
	Remove(ctx context.Context, key string) error
	// PublicURL builds the public-facing URL for a stored key.
	PublicURL(key string) string
	// PresignEnabled reports whether presigned uploads are available.
	PresignEnabled() bool
}

// minioAPI is the subset of *minio.Client this package uses, extracted so
// tests can substitute a mock.
type minioAPI interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Options configures a Client.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
	PresignExpiry time.Duration
}

// Client talks to an S3-compatible bucket through minio-go.
type Client struct {
	client        minioAPI
	bucket        string
	publicBaseURL string
	presignExpiry time.Duration
	presignable   bool
}

// New creates a Client. Presigned uploads require endpoint plus credentials;
// without them the Client still serves the proxy upload path if a client was
// otherwise constructible.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}

	minioClient, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	expiry := opts.PresignExpiry
	if expiry <= 0 {
		expiry = 10 * time.Minute
	}

	return &Client{
		client:        minioClient,
		bucket:        opts.Bucket,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		presignExpiry: expiry,
		presignable:   opts.AccessKey != "" && opts.SecretKey != "",
	}, nil
}

// PresignedPut returns a presigned PUT URL for the key, valid for the
// configured expiry (10 minutes by default).
func (c *Client) PresignedPut(ctx context.Context, key string) (string, error) {
	done := observeOp("presign_put")

	u, err := c.client.PresignedPutObject(ctx, c.bucket, key, c.presignExpiry)
	done(err)
	if err != nil {
		return "", fmt.Errorf("failed to presign put for %s: %w", key, err)
	}

	metrics.PresignedURLsIssued.Inc()
	return u.String(), nil
}

// Upload writes the object through the server.
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	done := observeOp("put_object")

	if contentType == "" {
		contentType = defaultContentType
	}

	info, err := c.client.PutObject(ctx, c.bucket, key, reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	done(err)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	metrics.StorageBytesUploaded.Add(float64(info.Size))
	logging.Debug("Uploaded %s (%d bytes)", key, info.Size)
	return nil
}

// Remove deletes the object.
func (c *Client) Remove(ctx context.Context, key string) error {
	done := observeOp("remove_object")

	err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	done(err)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}

	logging.Debug("Removed object %s", key)
	return nil
}

// PublicURL builds the public URL for a stored key:
// {publicBaseURL}/{key}.
func (c *Client) PublicURL(key string) string {
	return c.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}

// PresignEnabled reports whether API credentials were configured.
func (c *Client) PresignEnabled() bool {
	return c.presignable
}

func observeOp(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
		metrics.StorageOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
