package adapter

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
	"google.golang.org/api/option"
)

// GCSScheme prefixes object keys that are read from Cloud Storage.
const GCSScheme = "gs://"

// Storage reads file sources from Cloud Storage. Keys are gs://bucket/object URIs.
type Storage struct {
	client *storage.Client
}

var _ interfaces.ObjectStore = (*Storage)(nil)

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context, opts ...option.ClientOption) (*Storage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &Storage{client: client}, nil
}

// Close releases the underlying client
func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCSURI(key)
	if err != nil {
		return nil, err
	}

	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}

	return reader, nil
}

// IsGCSURI reports whether s names a Cloud Storage object
func IsGCSURI(s string) bool {
	return strings.HasPrefix(s, GCSScheme)
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object name.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", model.InvalidInput("file", "object uri must start with gs://")
	}
	bucket, object, _ = strings.Cut(strings.TrimPrefix(uri, GCSScheme), "/")
	if bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", model.InvalidInput("file", "object uri must name a bucket and an object")
	}
	return bucket, object, nil
}
