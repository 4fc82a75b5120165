package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type gcsStore struct {
	client    *gcs.Client
	projectID string
	location  string
}

// openGCS uses identity as the project ID and credential as either a
// service-account key file path or the inline JSON key.
func openGCS(ctx context.Context, identity, credential string, cfg Config) (BlobStore, func() error, error) {
	var opts []option.ClientOption
	switch {
	case strings.HasPrefix(strings.TrimSpace(credential), "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(credential)))
	case credential != "":
		opts = append(opts, option.WithCredentialsFile(credential))
	default:
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	s := &gcsStore{client: client, projectID: identity, location: cfg.Region}
	return s, client.Close, nil
}

func (s *gcsStore) PutBlob(ctx context.Context, container, name string, payload io.Reader, opts PutOptions) (string, error) {
	bucket := s.client.Bucket(container)
	if _, err := bucket.Attrs(ctx); err != nil {
		if !isGCSNotFound(err) {
			return "", fmt.Errorf("failed to check bucket existence: %w", err)
		}
		if err := bucket.Create(ctx, s.projectID, &gcs.BucketAttrs{Location: s.location}); err != nil {
			return "", fmt.Errorf("failed to create bucket %s: %w", container, err)
		}
	}

	w := bucket.Object(name).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = opts.UserMetadata
	if _, err := io.Copy(w, payload); err != nil {
		_ = w.CloseWithError(err)
		return "", fmt.Errorf("failed to write object %s/%s: %w", container, name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to write object %s/%s: %w", container, name, err)
	}
	return w.Attrs().Etag, nil
}

func (s *gcsStore) BlobExists(ctx context.Context, container, name string) (bool, error) {
	_, err := s.client.Bucket(container).Object(name).Attrs(ctx)
	if err != nil {
		if isGCSNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s/%s: %w", container, name, err)
	}
	return true, nil
}

func (s *gcsStore) BlobMetadata(ctx context.Context, container, name string) (Metadata, error) {
	attrs, err := s.client.Bucket(container).Object(name).Attrs(ctx)
	if err != nil {
		if isGCSNotFound(err) {
			return Metadata{}, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
		}
		return Metadata{}, fmt.Errorf("failed to stat object %s/%s: %w", container, name, err)
	}
	return gcsMetadata(attrs), nil
}

func (s *gcsStore) GetBlob(ctx context.Context, container, name string) (*Blob, error) {
	md, err := s.BlobMetadata(ctx, container, name)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(container).Object(name).NewReader(ctx)
	if err != nil {
		if isGCSNotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
		}
		return nil, fmt.Errorf("failed to read object %s/%s: %w", container, name, err)
	}
	return &Blob{Metadata: md, Payload: r}, nil
}

func (s *gcsStore) DeleteContainer(ctx context.Context, container string) error {
	bucket := s.client.Bucket(container)
	it := bucket.Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if isGCSNotFound(err) {
				return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
			}
			return fmt.Errorf("failed to list objects in %s: %w", container, err)
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !isGCSNotFound(err) {
			return fmt.Errorf("failed to delete object %s/%s: %w", container, attrs.Name, err)
		}
	}

	if err := bucket.Delete(ctx); err != nil {
		if isGCSNotFound(err) {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
		}
		return fmt.Errorf("failed to delete bucket %s: %w", container, err)
	}
	return nil
}

// isGCSNotFound covers the client's sentinels and raw 404s from calls that do not map them.
func isGCSNotFound(err error) bool {
	if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func gcsMetadata(attrs *gcs.ObjectAttrs) Metadata {
	return Metadata{
		Container:     attrs.Bucket,
		Name:          attrs.Name,
		ContentLength: int64Ptr(attrs.Size),
		ContentType:   attrs.ContentType,
		ContentMD5:    hex.EncodeToString(attrs.MD5),
		ETag:          attrs.Etag,
		LastModified:  attrs.Updated,
		UserMetadata:  attrs.Metadata,
	}
}
