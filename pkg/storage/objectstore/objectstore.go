package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Sentinel errors callers can test with errors.Is, keeping minio types out
// of the rest of the codebase.
var (
	// ErrNotFound reports that the addressed object does not exist.
	ErrNotFound = errors.New("objectstore: object not found")
	// ErrPreconditionFailed reports that a conditional write lost the race:
	// the object's version token changed between read and write.
	ErrPreconditionFailed = errors.New("objectstore: precondition failed")
)

// Config contains the information required to talk to an object store.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ObjectInfo describes a stored object. ETag doubles as the version token
// used for optimistic-concurrency writes.
type ObjectInfo struct {
	ETag        string
	Size        int64
	ContentType string
}

// WriteOptions condition a write. MatchToken and IfAbsent are mutually
// exclusive; with neither set the write is unconditional.
type WriteOptions struct {
	ContentType string
	// MatchToken makes the write succeed only if the object's current
	// version token equals this value.
	MatchToken string
	// IfAbsent makes the write succeed only if the object does not exist.
	IfAbsent bool
}

// Client represents the storage capabilities the intake pipeline expects.
// All operations address objects by (bucket, key).
type Client interface {
	Read(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error)
	DownloadFile(ctx context.Context, bucket, key, localPath string) error
	UploadFile(ctx context.Context, bucket, key, localPath string, opts WriteOptions) error
	Write(ctx context.Context, bucket, key string, data []byte, opts WriteOptions) error
	Remove(ctx context.Context, bucket, key string) error
	Close() error
}

// New creates an object store client based on the given configuration.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "minio", "s3":
		return newMinioClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}

type minioClient struct {
	client *minio.Client
}

func newMinioClient(cfg Config) (Client, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &minioClient{client: cl}, nil
}

func (m *minioClient) Read(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapError(err)
	}
	defer obj.Close()

	// Stat issues the request, so the token and bytes come from the same
	// object version.
	stat, err := obj.Stat()
	if err != nil {
		return nil, ObjectInfo{}, mapError(err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, ObjectInfo{}, mapError(err)
	}
	return data, ObjectInfo{ETag: stat.ETag, Size: stat.Size, ContentType: stat.ContentType}, nil
}

func (m *minioClient) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	if err := m.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return mapError(err)
	}
	return nil
}

func (m *minioClient) UploadFile(ctx context.Context, bucket, key, localPath string, opts WriteOptions) error {
	if _, err := m.client.FPutObject(ctx, bucket, key, localPath, putOptions(opts)); err != nil {
		return mapError(err)
	}
	return nil
}

func (m *minioClient) Write(ctx context.Context, bucket, key string, data []byte, opts WriteOptions) error {
	reader := bytes.NewReader(data)
	if _, err := m.client.PutObject(ctx, bucket, key, reader, int64(len(data)), putOptions(opts)); err != nil {
		return mapError(err)
	}
	return nil
}

func (m *minioClient) Remove(ctx context.Context, bucket, key string) error {
	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return mapError(err)
	}
	return nil
}

func (m *minioClient) Close() error {
	return nil
}

func putOptions(opts WriteOptions) minio.PutObjectOptions {
	po := minio.PutObjectOptions{ContentType: opts.ContentType}
	if opts.MatchToken != "" {
		po.SetMatchETag(opts.MatchToken)
	}
	if opts.IfAbsent {
		po.SetMatchETagExcept("*")
	}
	return po
}

func mapError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %v", ErrPreconditionFailed, err)
	default:
		return err
	}
}
