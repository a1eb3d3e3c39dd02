package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/utils/safe"
	"google.golang.org/api/option"
)

// GCS stores deliverable files in a Google Cloud Storage bucket
type GCS struct {
	client  *storage.Client
	bucket  string
	prefix  string
	baseURL string
}

var _ interfaces.ObjectStorage = (*GCS)(nil)

// GCSOption configures the GCS storage
type GCSOption func(*gcsConfig)

type gcsConfig struct {
	prefix     string
	baseURL    string
	clientOpts []option.ClientOption
}

// WithPrefix stores every object below prefix
func WithPrefix(prefix string) GCSOption {
	return func(c *gcsConfig) {
		c.prefix = strings.Trim(prefix, "/")
	}
}

// WithBaseURL overrides the public URL the stored objects are served from
func WithBaseURL(baseURL string) GCSOption {
	return func(c *gcsConfig) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithClientOptions passes options to the underlying storage client
func WithClientOptions(opts ...option.ClientOption) GCSOption {
	return func(c *gcsConfig) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// NewGCS creates a bucket backed object storage
func NewGCS(ctx context.Context, bucket string, opts ...GCSOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	cfg := &gcsConfig{baseURL: "https://storage.googleapis.com/" + bucket}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := storage.NewClient(ctx, cfg.clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{
		client:  client,
		bucket:  bucket,
		prefix:  cfg.prefix,
		baseURL: cfg.baseURL,
	}, nil
}

// Put uploads data to the bucket and returns its public URL
func (s *GCS) Put(ctx context.Context, objectPath string, data io.Reader, contentType string) (string, error) {
	name := objectName(s.prefix, objectPath)
	if name == "" {
		return "", goerr.New("object path is empty")
	}

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		safe.Close(ctx, w)
		return "", goerr.Wrap(err, "failed to write object",
			goerr.V("bucket", s.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize object",
			goerr.V("bucket", s.bucket), goerr.V("object", name))
	}

	return objectURL(s.baseURL, name), nil
}

// Delete removes the object at objectPath
func (s *GCS) Delete(ctx context.Context, objectPath string) error {
	name := objectName(s.prefix, objectPath)
	if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete object",
			goerr.V("bucket", s.bucket), goerr.V("object", name))
	}
	return nil
}

// Close releases the storage client
func (s *GCS) Close() error {
	return s.client.Close()
}

func objectName(prefix, p string) string {
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return ""
	}
	if prefix == "" {
		return p
	}
	return prefix + "/" + p
}

func objectURL(baseURL, name string) string {
	parts := strings.Split(name, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return baseURL + "/" + strings.Join(parts, "/")
}
