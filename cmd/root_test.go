package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"blob-uploader/core/storage"
	"blob-uploader/core/storage/mocks"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// stubOpen swaps openContext for the duration of the test.
func stubOpen(t *testing.T, fn func(ctx context.Context, provider, identity, credential string, cfg storage.Config) (storage.Context, error)) {
	t.Helper()
	orig := openContext
	openContext = fn
	t.Cleanup(func() { openContext = orig })
}

func execute(args ...string) (code int, stdout, stderr *bytes.Buffer) {
	stdout, stderr = new(bytes.Buffer), new(bytes.Buffer)
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return run(cmd), stdout, stderr
}

func TestRun_MissingArguments(t *testing.T) {
	calls := 0
	stubOpen(t, func(context.Context, string, string, string, storage.Config) (storage.Context, error) {
		calls++
		return nil, errors.New("unexpected")
	})

	tests := []struct {
		name string
		args []string
	}{
		{"None", nil},
		{"ProviderOnly", []string{"aws-s3"}},
		{"NoCredential", []string{"aws-s3", "key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := execute(tt.args...)
			assert.Equal(t, 1, code)
			assert.Equal(t, "\nUsage: blob-uploader <provider> <identity> <credential>\n", stdout.String())
		})
	}
	assert.Zero(t, calls, "no storage access without credentials")
}

func TestRun_TransientTranscript(t *testing.T) {
	code, stdout, stderr := execute("transient", "demo", "demo", "--file", "testdata/payload.txt")
	assert.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stderr.String())

	g := goldie.New(t)
	g.Assert(t, "upload_transient", stdout.Bytes())
}

func TestRun_ContainerFlag(t *testing.T) {
	var opened storage.Context
	stubOpen(t, func(ctx context.Context, provider, identity, credential string, cfg storage.Config) (storage.Context, error) {
		assert.Equal(t, "eu-central-1", cfg.Region)
		sc, err := storage.Open(ctx, provider, identity, credential, cfg)
		opened = sc
		return sc, err
	})

	code, stdout, _ := execute("transient", "demo", "demo",
		"--file", "testdata/payload.txt",
		"--container", "flag-box",
		"--region", "eu-central-1",
	)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "container=flag-box")

	_, err := opened.BlobExists(context.Background(), "flag-box", "payload.txt")
	assert.ErrorIs(t, err, storage.ErrClosed, "context must be closed when the command returns")
}

func TestRun_CleanupRunsOnceWhenUploadFails(t *testing.T) {
	sc := new(mocks.Context)
	sc.On("Provider").Return("mock").Maybe()
	sc.On("PutBlob", mock.Anything, "test-container-x", "payload.txt", mock.Anything, mock.Anything).Return("", errors.New("access denied"))
	sc.On("Close").Return(nil).Once()
	stubOpen(t, func(context.Context, string, string, string, storage.Config) (storage.Context, error) {
		return sc, nil
	})

	code, stdout, _ := execute("mock", "id", "secret", "--file", "testdata/payload.txt")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Starting upload of 17 bytes")
	sc.AssertNumberOfCalls(t, "Close", 1)
	sc.AssertNotCalled(t, "BlobExists", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_CleanupRunsOnceWhenFileIsMissing(t *testing.T) {
	sc := new(mocks.Context)
	sc.On("Provider").Return("mock").Maybe()
	sc.On("Close").Return(nil).Once()
	stubOpen(t, func(context.Context, string, string, string, storage.Config) (storage.Context, error) {
		return sc, nil
	})

	code, _, _ := execute("mock", "id", "secret", "--file", "testdata/does-not-exist.pdf")
	assert.Equal(t, 1, code)
	sc.AssertNumberOfCalls(t, "Close", 1)
}

func TestRun_DeleteFailureStillSucceeds(t *testing.T) {
	sc := new(mocks.Context)
	length := int64(17)
	md := storage.Metadata{Container: "test-container-x", Name: "payload.txt", ContentLength: &length}
	sc.On("Provider").Return("mock").Maybe()
	sc.On("PutBlob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("etag", nil)
	sc.On("BlobExists", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	sc.On("BlobMetadata", mock.Anything, mock.Anything, mock.Anything).Return(md, nil)
	sc.On("GetBlob", mock.Anything, mock.Anything, mock.Anything).Return(&storage.Blob{
		Metadata: md,
		Payload:  nopCloser{bytes.NewBufferString("hello blob store\n")},
	}, nil)
	sc.On("DeleteContainer", mock.Anything, "test-container-x").Return(errors.New("bucket not empty"))
	sc.On("Close").Return(nil).Once()
	stubOpen(t, func(context.Context, string, string, string, storage.Config) (storage.Context, error) {
		return sc, nil
	})

	code, stdout, stderr := execute("mock", "id", "secret", "--file", "testdata/payload.txt")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Retrieved blob size: 17 bytes")
	assert.Equal(t, "Unable to delete container due to: bucket not empty\n", stderr.String())
	sc.AssertNumberOfCalls(t, "Close", 1)
}

func TestRun_CloseErrorFailsCommand(t *testing.T) {
	stubOpen(t, func(ctx context.Context, provider, identity, credential string, cfg storage.Config) (storage.Context, error) {
		sc := new(mocks.Context)
		sc.On("Provider").Return("mock").Maybe()
		sc.On("Close").Return(errors.New("socket leak")).Once()
		return sc, nil
	})

	code, _, _ := execute("mock", "id", "secret", "--file", "testdata/does-not-exist.pdf")
	assert.Equal(t, 1, code)
}

func TestRun_UnknownProvider(t *testing.T) {
	code, stdout, _ := execute("nimbus", "id", "secret", "--file", "testdata/payload.txt")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
}

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }
