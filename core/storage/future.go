package storage

import (
	"context"
	"io"
)

// Future is the handle of an operation running in the background.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn in a new goroutine and returns a handle to its result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the operation completes or ctx is done.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncBlobStore issues BlobStore calls in the background and hands back futures.
type AsyncBlobStore struct {
	store BlobStore
}

// NewAsyncBlobStore wraps store.
func NewAsyncBlobStore(store BlobStore) *AsyncBlobStore {
	return &AsyncBlobStore{store: store}
}

func (a *AsyncBlobStore) PutBlob(ctx context.Context, container, name string, payload io.Reader, opts PutOptions) *Future[string] {
	return Go(ctx, func(ctx context.Context) (string, error) {
		return a.store.PutBlob(ctx, container, name, payload, opts)
	})
}

func (a *AsyncBlobStore) BlobExists(ctx context.Context, container, name string) *Future[bool] {
	return Go(ctx, func(ctx context.Context) (bool, error) {
		return a.store.BlobExists(ctx, container, name)
	})
}

func (a *AsyncBlobStore) BlobMetadata(ctx context.Context, container, name string) *Future[Metadata] {
	return Go(ctx, func(ctx context.Context) (Metadata, error) {
		return a.store.BlobMetadata(ctx, container, name)
	})
}

func (a *AsyncBlobStore) GetBlob(ctx context.Context, container, name string) *Future[*Blob] {
	return Go(ctx, func(ctx context.Context) (*Blob, error) {
		return a.store.GetBlob(ctx, container, name)
	})
}

func (a *AsyncBlobStore) DeleteContainer(ctx context.Context, container string) *Future[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.store.DeleteContainer(ctx, container)
	})
}
