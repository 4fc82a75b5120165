package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"sync"
	"time"
)

// TransientStore keeps blobs in memory for the lifetime of its context.
// A positive delay simulates eventual consistency: a blob is invisible for
// delay after it is stored, and its content length stays unknown for 2*delay.
type TransientStore struct {
	mu         sync.RWMutex
	containers map[string]map[string]*transientBlob
	delay      time.Duration
	now        func() time.Time
	closed     bool
}

type transientBlob struct {
	data         []byte
	contentType  string
	md5          string
	userMetadata map[string]string
	stored       time.Time
}

func openTransient(_ context.Context, _, _ string, cfg Config) (BlobStore, func() error, error) {
	s := NewTransientStore(cfg.ConsistencyDelay)
	return s, s.Close, nil
}

// NewTransientStore creates an empty in-memory store.
func NewTransientStore(delay time.Duration) *TransientStore {
	return &TransientStore{
		containers: make(map[string]map[string]*transientBlob),
		delay:      delay,
		now:        time.Now,
	}
}

// Close drops every container. Further calls fail with ErrClosed.
func (s *TransientStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.containers = nil
	return nil
}

func (s *TransientStore) PutBlob(ctx context.Context, container, name string, payload io.Reader, opts PutOptions) (string, error) {
	if container == "" || name == "" {
		return "", ErrInvalidName
	}
	data, err := io.ReadAll(payload)
	if err != nil {
		return "", fmt.Errorf("failed to read payload for %s/%s: %w", container, name, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	blob := &transientBlob{
		data:         data,
		contentType:  opts.ContentType,
		md5:          hex.EncodeToString(sum[:]),
		userMetadata: maps.Clone(opts.UserMetadata),
		stored:       s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	blobs, ok := s.containers[container]
	if !ok {
		blobs = make(map[string]*transientBlob)
		s.containers[container] = blobs
	}
	blobs[name] = blob
	return blob.md5, nil
}

func (s *TransientStore) BlobExists(_ context.Context, container, name string) (bool, error) {
	blob, err := s.visible(container, name)
	if err != nil {
		return false, err
	}
	return blob != nil, nil
}

func (s *TransientStore) BlobMetadata(_ context.Context, container, name string) (Metadata, error) {
	blob, err := s.visible(container, name)
	if err != nil {
		return Metadata{}, err
	}
	if blob == nil {
		return Metadata{}, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
	}
	return s.metadata(container, name, blob), nil
}

func (s *TransientStore) GetBlob(_ context.Context, container, name string) (*Blob, error) {
	blob, err := s.visible(container, name)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
	}
	return &Blob{
		Metadata: s.metadata(container, name, blob),
		Payload:  io.NopCloser(bytes.NewReader(blob.data)),
	}, nil
}

func (s *TransientStore) DeleteContainer(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.containers[container]; !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
	}
	delete(s.containers, container)
	return nil
}

// visible returns the blob if it has propagated, nil if it has not.
func (s *TransientStore) visible(container, name string) (*transientBlob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	blob, ok := s.containers[container][name]
	if !ok || s.now().Before(blob.stored.Add(s.delay)) {
		return nil, nil
	}
	return blob, nil
}

func (s *TransientStore) metadata(container, name string, blob *transientBlob) Metadata {
	md := Metadata{
		Container:    container,
		Name:         name,
		ContentType:  blob.contentType,
		ContentMD5:   blob.md5,
		ETag:         blob.md5,
		LastModified: blob.stored,
		UserMetadata: maps.Clone(blob.userMetadata),
	}
	if !s.now().Before(blob.stored.Add(2 * s.delay)) {
		md.ContentLength = int64Ptr(int64(len(blob.data)))
	}
	return md
}
