// Package storage implements public object buckets on the local filesystem.
// Objects are written once under a generated key and served read-only.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Buckets accepted for upload
const (
	BucketBanners = "banners"
	BucketAvatars = "avatars"
)

// MaxObjectSize caps a single upload
const MaxObjectSize = 10 << 20

var (
	ErrUnknownBucket   = errors.New("unknown bucket")
	ErrInvalidKey      = errors.New("invalid object key")
	ErrObjectTooLarge  = errors.New("object exceeds maximum size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// Object describes a stored file
type Object struct {
	Bucket      string
	Key         string
	Size        int64
	ContentType string
	URL         string
}

// Service writes and removes bucket objects under a root directory
type Service struct {
	root      string
	publicURL string
	logger    zerolog.Logger
}

// NewService creates the bucket directories under root
func NewService(root, publicURL string, logger zerolog.Logger) (*Service, error) {
	for _, bucket := range []string{BucketBanners, BucketAvatars} {
		if err := os.MkdirAll(filepath.Join(root, bucket), 0755); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	return &Service{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Root is the directory served under /storage
func (s *Service) Root() string {
	return s.root
}

func validBucket(bucket string) bool {
	return bucket == BucketBanners || bucket == BucketAvatars
}

// Put stores r under a fresh key that keeps the original file extension
func (s *Service) Put(bucket, filename string, r io.Reader) (*Object, error) {
	if !validBucket(bucket) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	key := strings.ToLower(ulid.Make().String()) + ext
	dst := filepath.Join(s.root, bucket, key)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, MaxObjectSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > MaxObjectSize {
		err = ErrObjectTooLarge
	}
	if err != nil {
		os.Remove(dst)
		if errors.Is(err, ErrObjectTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	s.logger.Debug().Str("bucket", bucket).Str("key", key).Int64("size", n).Msg("Stored object")

	return &Object{
		Bucket:      bucket,
		Key:         key,
		Size:        n,
		ContentType: contentType,
		URL:         s.PublicURL(bucket, key),
	}, nil
}

// PublicURL is the externally reachable address of an object
func (s *Service) PublicURL(bucket, key string) string {
	return s.publicURL + path.Join("/storage", bucket, key)
}

// Delete removes an object. Missing objects are not an error.
func (s *Service) Delete(bucket, key string) error {
	if !validBucket(bucket) {
		return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	err := os.Remove(filepath.Join(s.root, bucket, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
