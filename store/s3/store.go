package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mwantia/metacat/data"
	"github.com/mwantia/metacat/store"
)

// Config contains connection options for an S3-compatible object store.
type Config struct {
	// Endpoint of the S3-compatible server (host:port).
	Endpoint string

	// Bucket holding the unstructured files.
	Bucket string

	// AccessKey and SecretKey for static credential authentication.
	AccessKey string
	SecretKey string

	// UseSSL enables TLS for the connection.
	UseSSL bool
}

// S3Store serves unstructured file tables from an S3-compatible bucket.
// Object keys act as the file paths; configured root paths are key
// prefixes.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store creates a store for the configured bucket.
func NewS3Store(config Config) (*S3Store, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &S3Store{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// Name returns the identifier name defined for this store.
func (*S3Store) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when the owning
// backend is opened. It verifies the bucket exists.
func (s *S3Store) Open(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("metacat: bucket %q does not exist", s.bucket)
	}
	return nil
}

// Close is part of the lifecycle behaviour and gets called when the owning
// backend is closed.
func (*S3Store) Close(ctx context.Context) error {
	// The minio client holds no resources that need explicit cleanup
	return nil
}

// List returns a reference for every object under the given key prefix.
func (s *S3Store) List(ctx context.Context, root string) ([]store.FileRef, error) {
	prefix := strings.TrimPrefix(root, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var refs []store.FileRef
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}
		// Zero-byte keys with a trailing slash are directory markers
		if strings.HasSuffix(object.Key, "/") {
			continue
		}

		refs = append(refs, store.FileRef{
			Path:       object.Key,
			Size:       object.Size,
			ModifiedAt: object.LastModified,
		})
	}

	return refs, nil
}

// OpenObject acquires a handle to one object's raw bytes.
func (s *S3Store) OpenObject(ctx context.Context, path string) (io.ReadCloser, error) {
	key := strings.TrimPrefix(path, "/")

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return object, nil
}

// StatObject returns the reference for a single object.
func (s *S3Store) StatObject(ctx context.Context, path string) (*store.FileRef, error) {
	key := strings.TrimPrefix(path, "/")

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, data.ErrObjectNotFound
		}
		return nil, err
	}

	return &store.FileRef{
		Path:       info.Key,
		Size:       info.Size,
		ModifiedAt: info.LastModified,
	}, nil
}

var _ store.FileStore = (*S3Store)(nil)
