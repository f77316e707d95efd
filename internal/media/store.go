package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps draft media attachments in object storage. Drafts reference
// attachments by opaque id; the store resolves ids to time-limited URLs.
type Store struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	URLTTL    time.Duration
}

// NewStore creates a media store backed by MinIO and ensures the bucket exists.
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("media config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	s := &Store{client: mc, bucket: cfg.Bucket, urlTTL: ttl}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Upload stores an attachment under the given media id.
func (s *Store) Upload(ctx context.Context, mediaID string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, mediaID, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Open returns a ReadCloser for the stored attachment.
func (s *Store) Open(ctx context.Context, mediaID string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, mediaID, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// stat to surface missing objects before handing the stream out
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// ResolveURL returns a presigned GET URL for a single attachment.
func (s *Store) ResolveURL(ctx context.Context, mediaID string) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, mediaID, s.urlTTL, url.Values{})
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}

// ResolveURLs maps every media id to a presigned URL. Missing objects still
// presign; viewers get a 404 from the object store rather than a broken draft.
func (s *Store) ResolveURLs(ctx context.Context, mediaIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(mediaIDs))
	for _, id := range mediaIDs {
		u, err := s.ResolveURL(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve media %s: %w", id, err)
		}
		out[id] = u
	}
	return out, nil
}
