package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Metadata describes a blob as reported by the provider.
type Metadata struct {
	Container string
	Name      string
	// ContentLength is nil until the provider reports it.
	ContentLength *int64
	ContentType   string
	// ContentMD5 is the hex encoded MD5 of the payload, when the provider exposes it.
	ContentMD5   string
	ETag         string
	LastModified time.Time
	UserMetadata map[string]string
}

// String renders the content attributes of the blob.
func (m Metadata) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[name=%s, container=%s, contentLength=", m.Name, m.Container)
	if m.ContentLength != nil {
		fmt.Fprintf(&b, "%d", *m.ContentLength)
	} else {
		b.WriteString("null")
	}
	fmt.Fprintf(&b, ", contentType=%s, contentMD5=%s]", m.ContentType, m.ContentMD5)
	return b.String()
}

// md5FromETag returns the payload MD5 carried by an S3 style ETag. Multipart
// and encrypted uploads use other ETag forms and yield "".
func md5FromETag(etag string) string {
	etag = strings.ToLower(strings.Trim(etag, `"`))
	if len(etag) != 32 {
		return ""
	}
	if _, err := hex.DecodeString(etag); err != nil {
		return ""
	}
	return etag
}

// Blob is a stored object together with its payload stream.
// Callers must close Payload.
type Blob struct {
	Metadata Metadata
	Payload  io.ReadCloser
}

// PutOptions describes the payload of a PutBlob call.
type PutOptions struct {
	// ContentLength is the payload size, or -1 when unknown.
	ContentLength int64
	ContentType   string
	UserMetadata  map[string]string
}

// BlobStore is the provider-neutral set of blob operations.
type BlobStore interface {
	// PutBlob stores payload as container/name, creating the container if needed.
	// It returns the provider ETag of the stored blob.
	PutBlob(ctx context.Context, container, name string, payload io.Reader, opts PutOptions) (string, error)
	// BlobExists reports whether the blob is visible.
	BlobExists(ctx context.Context, container, name string) (bool, error)
	// BlobMetadata fetches the blob's metadata without its payload.
	BlobMetadata(ctx context.Context, container, name string) (Metadata, error)
	// GetBlob fetches the blob with its payload.
	GetBlob(ctx context.Context, container, name string) (*Blob, error)
	// DeleteContainer removes every blob in the container and then the container itself.
	DeleteContainer(ctx context.Context, container string) error
}

// Context is an authenticated session with a blob storage provider.
// It owns the provider's network resources until Close is called.
type Context interface {
	BlobStore
	// Provider returns the registered provider name.
	Provider() string
	// Close releases the session. It is safe to call more than once.
	Close() error
}

type storeContext struct {
	BlobStore
	provider string
	closer   func() error

	once sync.Once
	err  error
}

func newContext(provider string, store BlobStore, closer func() error) Context {
	return &storeContext{BlobStore: store, provider: provider, closer: closer}
}

func (c *storeContext) Provider() string {
	return c.provider
}

func (c *storeContext) Close() error {
	c.once.Do(func() {
		if c.closer != nil {
			c.err = c.closer()
		}
	})
	return c.err
}

func int64Ptr(v int64) *int64 {
	return &v
}
