package storage

import "errors"

var (
	// ErrUnknownProvider is returned by Open for a provider name that is not registered.
	ErrUnknownProvider = errors.New("unknown storage provider")
	// ErrContainerNotFound is returned when the container does not exist.
	ErrContainerNotFound = errors.New("container not found")
	// ErrBlobNotFound is returned when the blob does not exist or is not yet visible.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrInvalidName is returned for container or blob names a provider cannot store.
	ErrInvalidName = errors.New("invalid container or blob name")
	// ErrClosed is returned by a context that has already been closed.
	ErrClosed = errors.New("storage context closed")
)
