package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTransientStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewTransientStore(0)

	etag, err := s.PutBlob(ctx, "box", "a.txt", strings.NewReader("hello"), PutOptions{ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", etag)

	ok, err := s.BlobExists(ctx, "box", "a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	blob, err := s.GetBlob(ctx, "box", "a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(blob.Payload)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	require.NotNil(t, blob.Metadata.ContentLength)
	assert.Equal(t, int64(5), *blob.Metadata.ContentLength)
	assert.Equal(t, "text/plain", blob.Metadata.ContentType)
}

func TestTransientStore_ConsistencyDelay(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewTransientStore(time.Second)
	s.now = clock.Now

	_, err := s.PutBlob(ctx, "box", "a.txt", strings.NewReader("hello"), PutOptions{})
	require.NoError(t, err)

	ok, err := s.BlobExists(ctx, "box", "a.txt")
	require.NoError(t, err)
	assert.False(t, ok, "blob must be invisible before the delay")
	_, err = s.BlobMetadata(ctx, "box", "a.txt")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	clock.Advance(time.Second)
	ok, err = s.BlobExists(ctx, "box", "a.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	md, err := s.BlobMetadata(ctx, "box", "a.txt")
	require.NoError(t, err)
	assert.Nil(t, md.ContentLength, "length must lag behind existence")

	clock.Advance(time.Second)
	md, err = s.BlobMetadata(ctx, "box", "a.txt")
	require.NoError(t, err)
	require.NotNil(t, md.ContentLength)
	assert.Equal(t, int64(5), *md.ContentLength)
}

func TestTransientStore_DeleteContainer(t *testing.T) {
	ctx := context.Background()
	s := NewTransientStore(0)

	assert.ErrorIs(t, s.DeleteContainer(ctx, "box"), ErrContainerNotFound)

	_, err := s.PutBlob(ctx, "box", "a.txt", strings.NewReader("x"), PutOptions{})
	require.NoError(t, err)
	require.NoError(t, s.DeleteContainer(ctx, "box"))

	ok, err := s.BlobExists(ctx, "box", "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransientStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := NewTransientStore(0)
	require.NoError(t, s.Close())

	_, err := s.PutBlob(ctx, "box", "a.txt", strings.NewReader("x"), PutOptions{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.BlobExists(ctx, "box", "a.txt")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.DeleteContainer(ctx, "box"), ErrClosed)
}

func TestTransientStore_InvalidName(t *testing.T) {
	s := NewTransientStore(0)
	_, err := s.PutBlob(context.Background(), "", "a.txt", strings.NewReader("x"), PutOptions{})
	assert.ErrorIs(t, err, ErrInvalidName)
}
