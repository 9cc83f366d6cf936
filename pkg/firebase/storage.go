package firebase

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
)

// SignedUploadTTL is how long a signed upload URL stays valid.
const SignedUploadTTL = 15 * time.Minute

// SignedUpload is what a client needs to PUT an object directly into the bucket.
type SignedUpload struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Storage wraps the Firebase default bucket.
type Storage struct {
	bucket *storage.BucketHandle
	name   string
}

func NewStorage(ctx context.Context, app *firebase.App, bucket string) (*Storage, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase storage client: %w", err)
	}
	handle, err := client.Bucket(bucket)
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %q: %w", bucket, err)
	}
	return &Storage{bucket: handle, name: bucket}, nil
}

func (s *Storage) BucketName() string { return s.name }

// PublicURL is the unauthenticated URL of an object in the bucket.
func PublicURL(bucket, object string) string {
	parts := strings.Split(strings.TrimPrefix(object, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "https://storage.googleapis.com/" + bucket + "/" + strings.Join(parts, "/")
}

// SignedUploadURL issues a V4 signed PUT URL for object.
func (s *Storage) SignedUploadURL(_ context.Context, object, contentType string) (*SignedUpload, error) {
	expires := time.Now().Add(SignedUploadTTL)
	signed, err := s.bucket.SignedURL(object, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		ContentType: contentType,
		Expires:     expires,
	})
	if err != nil {
		return nil, fmt.Errorf("sign upload url: %w", err)
	}
	return &SignedUpload{
		Token:     signed,
		URL:       signed,
		Method:    "PUT",
		PublicURL: PublicURL(s.name, object),
		ExpiresAt: expires.UTC(),
	}, nil
}

// Put writes data to object and returns its public URL.
func (s *Storage) Put(ctx context.Context, object, contentType string, data io.Reader) (string, error) {
	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", object, err)
	}
	return PublicURL(s.name, object), nil
}
