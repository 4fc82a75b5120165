package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blob-uploader/core/poll"
	"blob-uploader/core/storage"
	"blob-uploader/core/storage/mocks"
	"blob-uploader/feature/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const payload = "hello blob store\n"

var fastPoll = poll.Config{Interval: time.Millisecond, Timeout: 5 * time.Second}

func writePayload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.txt")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	return path
}

func newMockContext() *mocks.Context {
	sc := new(mocks.Context)
	sc.On("Provider").Return("mock").Maybe()
	return sc
}

func fullMetadata() storage.Metadata {
	length := int64(len(payload))
	return storage.Metadata{
		Container:     upload.DefaultContainer,
		Name:          "payload.txt",
		ContentLength: &length,
		ContentType:   "text/plain; charset=utf-8",
	}
}

func newBlob() *storage.Blob {
	return &storage.Blob{
		Metadata: fullMetadata(),
		Payload:  io.NopCloser(strings.NewReader(payload)),
	}
}

func TestUploadFile_Success(t *testing.T) {
	path := writePayload(t)
	sc := newMockContext()

	sc.On("PutBlob", mock.Anything, upload.DefaultContainer, "payload.txt", mock.Anything, mock.MatchedBy(func(opts storage.PutOptions) bool {
		return opts.ContentLength == int64(len(payload)) && opts.ContentType == "text/plain; charset=utf-8"
	})).Return("etag", nil).Once()

	existsSeen := false
	sc.On("BlobExists", mock.Anything, upload.DefaultContainer, "payload.txt").Return(false, nil).Twice()
	sc.On("BlobExists", mock.Anything, upload.DefaultContainer, "payload.txt").Return(true, nil).
		Run(func(mock.Arguments) { existsSeen = true }).Once()

	pending := fullMetadata()
	pending.ContentLength = nil
	availableSeen := false
	sc.On("BlobMetadata", mock.Anything, upload.DefaultContainer, "payload.txt").Return(pending, nil).
		Run(func(mock.Arguments) {
			assert.True(t, existsSeen, "availability must not be polled before the blob exists")
		}).Once()
	sc.On("BlobMetadata", mock.Anything, upload.DefaultContainer, "payload.txt").Return(fullMetadata(), nil).
		Run(func(mock.Arguments) { availableSeen = true })

	sc.On("GetBlob", mock.Anything, upload.DefaultContainer, "payload.txt").Return(newBlob(), nil).
		Run(func(mock.Arguments) {
			assert.True(t, availableSeen, "blob must not be fetched before it is available")
		}).Once()
	sc.On("DeleteContainer", mock.Anything, upload.DefaultContainer).Return(nil).Once()

	var stdout, stderr bytes.Buffer
	w := upload.NewWorkflow(sc, upload.Config{Poll: fastPoll}, zap.NewNop(), upload.WithOutput(&stdout, &stderr))

	require.NoError(t, w.UploadFile(context.Background(), path))

	want := strings.Join([]string{
		"Starting upload of 17 bytes",
		"Waiting for blob to 'exist'",
		"Waiting for blob to 'exist'",
		"Blob exists",
		"Waiting for blob to become available",
		"Blob available",
		"Retrieved blob size: 17 bytes",
		"Blob metadata: " + fullMetadata().String(),
	}, "\n") + "\n"
	assert.Equal(t, want, stdout.String())
	assert.Empty(t, stderr.String())
	sc.AssertExpectations(t)
	sc.AssertNumberOfCalls(t, "BlobExists", 3)
}

func TestUploadFile_MetadataNotFoundCountsAsPending(t *testing.T) {
	path := writePayload(t)
	sc := newMockContext()
	sc.On("PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("etag", nil)
	sc.On("BlobExists", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	sc.On("BlobMetadata", mock.Anything, mock.Anything, mock.Anything).Return(storage.Metadata{}, storage.ErrBlobNotFound).Once()
	sc.On("BlobMetadata", mock.Anything, mock.Anything, mock.Anything).Return(fullMetadata(), nil)
	sc.On("GetBlob", mock.Anything, mock.Anything, mock.Anything).Return(newBlob(), nil)
	sc.On("DeleteContainer", mock.Anything, mock.Anything).Return(nil)

	var stdout bytes.Buffer
	w := upload.NewWorkflow(sc, upload.Config{Poll: fastPoll}, zap.NewNop(), upload.WithOutput(&stdout, io.Discard))

	require.NoError(t, w.UploadFile(context.Background(), path))
	assert.Contains(t, stdout.String(), "Waiting for blob to become available\nBlob available\n")
}

func TestUploadFile_DeleteContainerFailureIsSwallowed(t *testing.T) {
	path := writePayload(t)
	sc := newMockContext()
	sc.On("PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("etag", nil)
	sc.On("BlobExists", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	sc.On("BlobMetadata", mock.Anything, mock.Anything, mock.Anything).Return(fullMetadata(), nil)
	sc.On("GetBlob", mock.Anything, mock.Anything, mock.Anything).Return(newBlob(), nil)
	sc.On("DeleteContainer", mock.Anything, upload.DefaultContainer).Return(errors.New("container busy"))

	core, logs := observer.New(zapcore.WarnLevel)
	var stdout, stderr bytes.Buffer
	w := upload.NewWorkflow(sc, upload.Config{Poll: fastPoll}, zap.New(core), upload.WithOutput(&stdout, &stderr))

	require.NoError(t, w.UploadFile(context.Background(), path))
	assert.Equal(t, "Unable to delete container due to: container busy\n", stderr.String())
	assert.Equal(t, 1, logs.FilterMessage("Unable to delete container").Len())
	assert.Contains(t, stdout.String(), "Retrieved blob size: 17 bytes")
}

func TestUploadFile_PutFailureAborts(t *testing.T) {
	path := writePayload(t)
	boom := errors.New("auth failed")
	sc := newMockContext()
	sc.On("PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", boom)
	sc.On("Close").Return(nil).Once()

	var stdout bytes.Buffer
	w := upload.NewWorkflow(sc, upload.Config{Poll: fastPoll}, zap.NewNop(), upload.WithOutput(&stdout, io.Discard))

	err := w.UploadFile(context.Background(), path)
	assert.ErrorIs(t, err, boom)
	sc.AssertNotCalled(t, "BlobExists", mock.Anything, mock.Anything, mock.Anything)
	sc.AssertNotCalled(t, "DeleteContainer", mock.Anything, mock.Anything)

	assert.NoError(t, w.Cleanup())
	assert.NoError(t, w.Cleanup())
	sc.AssertNumberOfCalls(t, "Close", 1)
}

func TestUploadFile_MissingFile(t *testing.T) {
	sc := newMockContext()
	w := upload.NewWorkflow(sc, upload.Config{Poll: fastPoll}, zap.NewNop(), upload.WithOutput(io.Discard, io.Discard))

	err := w.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	sc.AssertNotCalled(t, "PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadFile_ExistencePollIsBounded(t *testing.T) {
	path := writePayload(t)
	sc := newMockContext()
	sc.On("PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("etag", nil)
	sc.On("BlobExists", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	var stdout bytes.Buffer
	cfg := upload.Config{Poll: poll.Config{Interval: time.Millisecond, MaxAttempts: 3}}
	w := upload.NewWorkflow(sc, cfg, zap.NewNop(), upload.WithOutput(&stdout, io.Discard))

	err := w.UploadFile(context.Background(), path)
	assert.ErrorIs(t, err, poll.ErrExhausted)
	assert.Equal(t, 2, strings.Count(stdout.String(), "Waiting for blob to 'exist'"))
	assert.NotContains(t, stdout.String(), "Blob exists")
	sc.AssertNotCalled(t, "BlobMetadata", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadFile_AvailabilityErrorAborts(t *testing.T) {
	path := writePayload(t)
	sc := newMockContext()
	sc.On("PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("etag", nil)
	sc.On("BlobExists", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	sc.On("BlobMetadata", mock.Anything, mock.Anything, mock.Anything).Return(storage.Metadata{}, errors.New("throttled"))

	w := upload.NewWorkflow(sc, upload.Config{Poll: fastPoll}, zap.NewNop(), upload.WithOutput(io.Discard, io.Discard))

	err := w.UploadFile(context.Background(), path)
	assert.ErrorContains(t, err, "throttled")
	sc.AssertNotCalled(t, "GetBlob", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadFile_Cancelled(t *testing.T) {
	path := writePayload(t)
	sc := newMockContext()
	sc.On("PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("etag", nil)
	sc.On("BlobExists", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w := upload.NewWorkflow(sc, upload.Config{Poll: poll.Config{Interval: time.Millisecond}}, zap.NewNop(), upload.WithOutput(io.Discard, io.Discard))

	err := w.UploadFile(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUploadFile_ZeroIntervalUsesDefault(t *testing.T) {
	path := writePayload(t)
	sc := newMockContext()
	sc.On("PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("etag", nil)
	sc.On("BlobExists", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	var stdout bytes.Buffer
	w := upload.NewWorkflow(sc, upload.Config{}, zap.NewNop(), upload.WithOutput(&stdout, io.Discard))

	err := w.UploadFile(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// 100ms between checks leaves room for at most three waits in 250ms
	waits := strings.Count(stdout.String(), "Waiting for blob to 'exist'")
	assert.GreaterOrEqual(t, waits, 1)
	assert.LessOrEqual(t, waits, 3)
}

func TestUploadFile_TransientRoundTrip(t *testing.T) {
	path := writePayload(t)
	sc, err := storage.Open(context.Background(), storage.ProviderTransient, "", "", storage.Config{
		ConsistencyDelay: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	w := upload.NewWorkflow(sc, upload.Config{Container: "round-trip", Poll: poll.Config{Interval: 5 * time.Millisecond, Timeout: 5 * time.Second}},
		zap.NewNop(), upload.WithOutput(&stdout, &stderr))
	defer w.Cleanup()

	require.NoError(t, w.UploadFile(context.Background(), path))

	out := stdout.String()
	assert.Contains(t, out, "Waiting for blob to 'exist'")
	assert.Contains(t, out, "Waiting for blob to become available")
	assert.Contains(t, out, "Retrieved blob size: 17 bytes")
	assert.Contains(t, out, "contentLength=17")
	assert.Empty(t, stderr.String())

	exists, err := sc.BlobExists(context.Background(), "round-trip", "payload.txt")
	require.NoError(t, err)
	assert.False(t, exists, "container must be gone after the workflow")
}

func TestCleanup_PropagatesCloseError(t *testing.T) {
	sc := newMockContext()
	sc.On("Close").Return(errors.New("leak")).Once()

	w := upload.NewWorkflow(sc, upload.Config{}, zap.NewNop())
	assert.EqualError(t, w.Cleanup(), "leak")
	assert.EqualError(t, w.Cleanup(), "leak")
	sc.AssertNumberOfCalls(t, "Close", 1)
}
