// Package source retrieves uploaded files by their locator. The pipeline
// treats a locator as an opaque handle; the fetcher implementation decides
// whether it names an object in an S3-compatible bucket, a file on disk, or
// a test fixture.
package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/c360/fileingest/errors"
)

// Fetcher retrieves the raw bytes of an uploaded file
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// ObjectStoreConfig configures the S3-compatible object fetcher
type ObjectStoreConfig struct {
	Endpoint  string `json:"endpoint"  yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket"    yaml:"bucket"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	UseSSL    bool   `json:"use_ssl"   yaml:"use_ssl"`
}

// ObjectFetcher retrieves files from an S3-compatible object store. The
// locator is the object key within the configured bucket.
type ObjectFetcher struct {
	api    *minio.Client
	bucket string
}

// NewObjectFetcher creates a fetcher for the configured bucket
func NewObjectFetcher(cfg ObjectStoreConfig) (*ObjectFetcher, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "ObjectFetcher", "NewObjectFetcher",
			"endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.WrapFatal(err, "ObjectFetcher", "NewObjectFetcher", "create client")
	}

	return &ObjectFetcher{api: client, bucket: cfg.Bucket}, nil
}

// Fetch downloads the object into memory
func (f *ObjectFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	obj, err := f.api.GetObject(ctx, f.bucket, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.WrapTransient(err, "ObjectFetcher", "Fetch", "get object "+locator)
	}
	defer func() {
		_ = obj.Close()
	}()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, errors.WrapInvalid(errors.ErrObjectNotFound, "ObjectFetcher", "Fetch",
				"object "+locator)
		}
		return nil, errors.WrapTransient(err, "ObjectFetcher", "Fetch", "read object "+locator)
	}

	return buf.Bytes(), nil
}

// FileFetcher retrieves files from a local directory. The locator is a path
// relative to the base directory; escaping the base directory is rejected.
type FileFetcher struct {
	baseDir string
}

// NewFileFetcher creates a fetcher rooted at the given directory
func NewFileFetcher(baseDir string) *FileFetcher {
	return &FileFetcher{baseDir: baseDir}
}

// Fetch reads the named file
func (f *FileFetcher) Fetch(_ context.Context, locator string) ([]byte, error) {
	cleaned := filepath.Clean(locator)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "FileFetcher", "Fetch",
			"locator escapes base directory: "+locator)
	}

	data, err := os.ReadFile(filepath.Join(f.baseDir, cleaned))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(errors.ErrObjectNotFound, "FileFetcher", "Fetch",
				"file "+locator)
		}
		return nil, errors.WrapTransient(err, "FileFetcher", "Fetch", "read file "+locator)
	}
	return data, nil
}

// MemoryFetcher serves files from memory, for tests and embedded use
type MemoryFetcher struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryFetcher creates an empty in-memory fetcher
func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{files: make(map[string][]byte)}
}

// Put stores a file under the given locator
func (f *MemoryFetcher) Put(locator string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[locator] = data
}

// Fetch returns the stored bytes for a locator
func (f *MemoryFetcher) Fetch(_ context.Context, locator string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, ok := f.files[locator]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrObjectNotFound, "MemoryFetcher", "Fetch",
			"object "+locator)
	}
	return data, nil
}
