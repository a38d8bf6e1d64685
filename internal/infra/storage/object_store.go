// Package storage implements service.ObjectStore on gocloud.dev/blob.
package storage

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"threads/config"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/service"
	"threads/internal/errors"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	"gocloud.dev/gcerrors"
)

const (
	collaboratorName = "object store"

	// TokenMetadataKey is the object metadata Firebase Storage reads download tokens from.
	TokenMetadataKey = "firebaseStorageDownloadTokens"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

type objectStore struct {
	bucket  *blob.Bucket
	baseURL string
	logger  *slog.Logger
	debug   bool
}

// New opens the configured bucket and closes it on shutdown.
func New(params Params) (service.ObjectStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bucket, err := blob.OpenBucket(ctx, params.Config.Storage.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %q", params.Config.Storage.BucketURL)
	}

	store, err := NewObjectStore(bucket, params.Config.Storage.DownloadBaseURL, params.Logger, params.Config.Collaborators.Debug)
	if err != nil {
		_ = bucket.Close()

		return nil, err
	}

	params.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}

// NewObjectStore wraps an open bucket. baseURL is the prefix download URLs are built on.
func NewObjectStore(bucket *blob.Bucket, baseURL string, logger *slog.Logger, debug bool) (service.ObjectStore, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("storage.downloadBaseURL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "invalid storage.downloadBaseURL")
	}

	return &objectStore{
		bucket:  bucket,
		baseURL: baseURL,
		logger:  logger,
		debug:   debug,
	}, nil
}

// Put uploads data under path together with a fresh download token.
func (s *objectStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	s.trace(ctx, "object.put", slog.String("path", path), slog.Int("bytes", len(data)))

	token := uuid.NewString()
	opts := &blob.WriterOptions{
		ContentType: contentType,
		// Portable drivers lowercase metadata keys.
		Metadata: map[string]string{TokenMetadataKey: token},
		BeforeWrite: func(as func(any) bool) error {
			// On GCS the key is written verbatim so Firebase recognises it.
			var w *gcs.Writer
			if as(&w) {
				if w.Metadata == nil {
					w.Metadata = map[string]string{}
				}
				for k := range w.Metadata {
					if strings.EqualFold(k, TokenMetadataKey) {
						delete(w.Metadata, k)
					}
				}
				w.Metadata[TokenMetadataKey] = token
			}

			return nil
		},
	}

	if err := s.bucket.WriteAll(ctx, path, data, opts); err != nil {
		return upstream(err, "failed to write object")
	}

	return nil
}

// DownloadURL returns the durable, token-bearing URL of the object at path.
func (s *objectStore) DownloadURL(ctx context.Context, path string) (string, error) {
	s.trace(ctx, "object.download_url", slog.String("path", path))

	attrs, err := s.bucket.Attributes(ctx, path)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return "", domainerrors.NewUpstreamError(errors.Errorf("object %s does not exist", path), collaboratorName)
		}

		return "", upstream(err, "failed to read object attributes")
	}

	token := lookupToken(attrs.Metadata)
	if token == "" {
		return "", domainerrors.NewUpstreamError(errors.Errorf("object %s has no download token", path), collaboratorName)
	}

	return s.baseURL + "/" + url.PathEscape(path) + "?alt=media&token=" + url.QueryEscape(token), nil
}

// Delete removes the object. A missing object is not an error.
func (s *objectStore) Delete(ctx context.Context, path string) error {
	s.trace(ctx, "object.delete", slog.String("path", path))

	if err := s.bucket.Delete(ctx, path); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return upstream(err, "failed to delete object")
	}

	return nil
}

func (s *objectStore) Close() error {
	return s.bucket.Close()
}

func (s *objectStore) trace(ctx context.Context, op string, attrs ...any) {
	if s.debug {
		s.logger.DebugContext(ctx, "Object store call", append([]any{slog.String("op", op)}, attrs...)...)
	}
}

func lookupToken(metadata map[string]string) string {
	for k, v := range metadata {
		if strings.EqualFold(k, TokenMetadataKey) {
			// Firebase allows a comma separated list; the first one is enough.
			token, _, _ := strings.Cut(v, ",")

			return token
		}
	}

	return ""
}

func upstream(err error, msg string) error {
	return domainerrors.NewUpstreamError(errors.Wrap(err, msg), collaboratorName)
}
