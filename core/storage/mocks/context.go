package mocks

import (
	"context"
	"io"

	"blob-uploader/core/storage"

	"github.com/stretchr/testify/mock"
)

// Context is a mock implementation of storage.Context
type Context struct {
	mock.Mock
}

func (m *Context) PutBlob(ctx context.Context, container, name string, payload io.Reader, opts storage.PutOptions) (string, error) {
	args := m.Called(ctx, container, name, payload, opts)
	return args.String(0), args.Error(1)
}

func (m *Context) BlobExists(ctx context.Context, container, name string) (bool, error) {
	args := m.Called(ctx, container, name)
	return args.Bool(0), args.Error(1)
}

func (m *Context) BlobMetadata(ctx context.Context, container, name string) (storage.Metadata, error) {
	args := m.Called(ctx, container, name)
	return args.Get(0).(storage.Metadata), args.Error(1)
}

func (m *Context) GetBlob(ctx context.Context, container, name string) (*storage.Blob, error) {
	args := m.Called(ctx, container, name)
	if blob, ok := args.Get(0).(*storage.Blob); ok {
		return blob, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Context) DeleteContainer(ctx context.Context, container string) error {
	args := m.Called(ctx, container)
	return args.Error(0)
}

func (m *Context) Provider() string {
	args := m.Called()
	return args.String(0)
}

func (m *Context) Close() error {
	args := m.Called()
	return args.Error(0)
}
