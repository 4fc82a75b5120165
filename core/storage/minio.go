package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
)

type minioStore struct {
	client Client
	region string
}

func openMinio(_ context.Context, identity, credential string, cfg Config) (BlobStore, func() error, error) {
	client, err := NewClient(identity, credential, cfg)
	if err != nil {
		return nil, nil, err
	}
	closer := func() error {
		if c, ok := client.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
	return NewMinioStore(client, cfg.Region), closer, nil
}

// NewMinioStore adapts a MinIO client to the BlobStore interface.
func NewMinioStore(client Client, region string) BlobStore {
	return &minioStore{client: client, region: region}
}

func (s *minioStore) PutBlob(ctx context.Context, container, name string, payload io.Reader, opts PutOptions) (string, error) {
	exists, err := s.client.BucketExists(ctx, container)
	if err != nil {
		return "", fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		err := s.client.MakeBucket(ctx, container, minio.MakeBucketOptions{Region: s.region})
		if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			return "", fmt.Errorf("failed to create bucket %s: %w", container, err)
		}
	}

	info, err := s.client.PutObject(ctx, container, name, payload, opts.ContentLength, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.UserMetadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s/%s: %w", container, name, err)
	}
	return info.ETag, nil
}

func (s *minioStore) BlobExists(ctx context.Context, container, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, container, name, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s/%s: %w", container, name, err)
	}
	return true, nil
}

func (s *minioStore) BlobMetadata(ctx context.Context, container, name string) (Metadata, error) {
	info, err := s.client.StatObject(ctx, container, name, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return Metadata{}, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
		}
		return Metadata{}, fmt.Errorf("failed to stat object %s/%s: %w", container, name, err)
	}
	return minioMetadata(container, name, info), nil
}

func (s *minioStore) GetBlob(ctx context.Context, container, name string) (*Blob, error) {
	md, err := s.BlobMetadata(ctx, container, name)
	if err != nil {
		return nil, err
	}
	body, err := s.client.GetObject(ctx, container, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", container, name, err)
	}
	return &Blob{Metadata: md, Payload: body}, nil
}

func (s *minioStore) DeleteContainer(ctx context.Context, container string) error {
	exists, err := s.client.BucketExists(ctx, container)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
	}

	var objects []minio.ObjectInfo
	for obj := range s.client.ListObjects(ctx, container, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects in %s: %w", container, obj.Err)
		}
		objects = append(objects, obj)
	}

	if len(objects) > 0 {
		objectsCh := make(chan minio.ObjectInfo, len(objects))
		for _, obj := range objects {
			objectsCh <- obj
		}
		close(objectsCh)

		for rerr := range s.client.RemoveObjects(ctx, container, objectsCh, minio.RemoveObjectsOptions{}) {
			if rerr.Err != nil {
				return fmt.Errorf("failed to remove object %s/%s: %w", container, rerr.ObjectName, rerr.Err)
			}
		}
	}

	if err := s.client.RemoveBucket(ctx, container); err != nil {
		return fmt.Errorf("failed to remove bucket %s: %w", container, err)
	}
	return nil
}

func minioMetadata(container, name string, info minio.ObjectInfo) Metadata {
	return Metadata{
		Container:     container,
		Name:          name,
		ContentLength: int64Ptr(info.Size),
		ContentType:   info.ContentType,
		ContentMD5:    md5FromETag(info.ETag),
		ETag:          info.ETag,
		LastModified:  info.LastModified,
		UserMetadata:  info.UserMetadata,
	}
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound
}
