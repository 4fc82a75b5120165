package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"blob-uploader/core/poll"
	"blob-uploader/core/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "blob-uploader/upload"

// Workflow drives the upload lifecycle against one storage context.
type Workflow struct {
	sc     storage.Context
	async  *storage.AsyncBlobStore
	cfg    Config
	logger *zap.Logger
	tracer trace.Tracer
	stdout io.Writer
	stderr io.Writer

	closeOnce sync.Once
	closeErr  error
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithOutput sets where progress lines and cleanup failures are printed.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(w *Workflow) {
		w.stdout = stdout
		w.stderr = stderr
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(w *Workflow) {
		w.tracer = t
	}
}

// NewWorkflow creates a workflow that owns sc until Cleanup is called.
func NewWorkflow(sc storage.Context, cfg Config, logger *zap.Logger, opts ...Option) *Workflow {
	if cfg.Container == "" {
		cfg.Container = DefaultContainer
	}
	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = poll.DefaultInterval
	}
	w := &Workflow{
		sc:     sc,
		async:  storage.NewAsyncBlobStore(sc),
		cfg:    cfg,
		logger: logger.With(zap.String("provider", sc.Provider()), zap.String("container", cfg.Container)),
		tracer: otel.Tracer(tracerName),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// UploadFile uploads the file at path, waits for it to propagate, reads it
// back and deletes the container. Failures before the container deletion are
// returned; the deletion itself is best effort.
func (w *Workflow) UploadFile(ctx context.Context, path string) error {
	ctx, span := w.tracer.Start(ctx, "UploadFile", trace.WithAttributes(
		attribute.String("storage.provider", w.sc.Provider()),
		attribute.String("storage.container", w.cfg.Container),
	))
	defer span.End()

	err := w.uploadFile(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (w *Workflow) uploadFile(ctx context.Context, path string) error {
	container := w.cfg.Container
	name := filepath.Base(path)
	log := w.logger.With(zap.String("blob", name))

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := info.Size()
	contentType, err := sniffContentType(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	fmt.Fprintf(w.stdout, "Starting upload of %d bytes\n", size)
	log.Info("Uploading blob", zap.Int64("size", size), zap.String("content_type", contentType))

	if err := w.step(ctx, "PutBlob", func(ctx context.Context) error {
		etag, err := w.async.PutBlob(ctx, container, name, f, storage.PutOptions{
			ContentLength: size,
			ContentType:   contentType,
		}).Get(ctx)
		if err == nil {
			log.Debug("Blob stored", zap.String("etag", etag))
		}
		return err
	}); err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}

	if err := w.step(ctx, "WaitUntilExists", func(ctx context.Context) error {
		return w.waitUntilExists(ctx, container, name)
	}); err != nil {
		return fmt.Errorf("failed waiting for blob to exist: %w", err)
	}

	if err := w.step(ctx, "WaitUntilAvailable", func(ctx context.Context) error {
		return w.waitUntilAvailable(ctx, container, name)
	}); err != nil {
		return fmt.Errorf("failed waiting for blob to become available: %w", err)
	}

	var retrieved int64
	if err := w.step(ctx, "GetBlob", func(ctx context.Context) error {
		blob, err := w.async.GetBlob(ctx, container, name).Get(ctx)
		if err != nil {
			return err
		}
		defer blob.Payload.Close()
		retrieved, err = io.Copy(io.Discard, blob.Payload)
		return err
	}); err != nil {
		return fmt.Errorf("failed to retrieve blob: %w", err)
	}
	fmt.Fprintf(w.stdout, "Retrieved blob size: %d bytes\n", retrieved)
	if retrieved != size {
		log.Warn("Retrieved size differs from local file", zap.Int64("local", size), zap.Int64("retrieved", retrieved))
	}

	var md storage.Metadata
	if err := w.step(ctx, "BlobMetadata", func(ctx context.Context) error {
		var err error
		md, err = w.async.BlobMetadata(ctx, container, name).Get(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to fetch blob metadata: %w", err)
	}
	fmt.Fprintf(w.stdout, "Blob metadata: %s\n", md)

	w.tryDeleteContainer(ctx, container)
	return nil
}

func (w *Workflow) waitUntilExists(ctx context.Context, container, name string) error {
	err := poll.Until(ctx, w.cfg.Poll, func(ctx context.Context) (bool, error) {
		return w.async.BlobExists(ctx, container, name).Get(ctx)
	}, func() {
		fmt.Fprintln(w.stdout, "Waiting for blob to 'exist'")
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(w.stdout, "Blob exists")
	return nil
}

func (w *Workflow) waitUntilAvailable(ctx context.Context, container, name string) error {
	err := poll.Until(ctx, w.cfg.Poll, func(ctx context.Context) (bool, error) {
		md, err := w.async.BlobMetadata(ctx, container, name).Get(ctx)
		if errors.Is(err, storage.ErrBlobNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return md.ContentLength != nil, nil
	}, func() {
		fmt.Fprintln(w.stdout, "Waiting for blob to become available")
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(w.stdout, "Blob available")
	return nil
}

func (w *Workflow) tryDeleteContainer(ctx context.Context, container string) {
	err := w.step(ctx, "DeleteContainer", func(ctx context.Context) error {
		_, err := w.async.DeleteContainer(ctx, container).Get(ctx)
		return err
	})
	if err != nil {
		fmt.Fprintf(w.stderr, "Unable to delete container due to: %s\n", err)
		w.logger.Warn("Unable to delete container", zap.Error(err))
		return
	}
	w.logger.Info("Container deleted")
}

// Cleanup releases the storage context. Only the first call closes it.
func (w *Workflow) Cleanup() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.sc.Close()
		if w.closeErr != nil {
			w.logger.Error("Failed to close storage context", zap.Error(w.closeErr))
		}
	})
	return w.closeErr
}

func (w *Workflow) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := w.tracer.Start(ctx, name)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// sniffContentType reads the head of f and leaves the offset at the start.
func sniffContentType(f *os.File) (string, error) {
	head := make([]byte, 512)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
