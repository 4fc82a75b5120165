package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// attrsDir holds the content type and user metadata given at put time,
// mirrored as <baseDir>/.attrs/<container>/<name>.json.
const attrsDir = ".attrs"

// FilesystemStore maps containers to directories under a base directory
// and blobs to files inside them.
type FilesystemStore struct {
	baseDir string
}

type fileAttrs struct {
	ContentType  string            `json:"content_type,omitempty"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

func openFilesystem(_ context.Context, _, _ string, cfg Config) (BlobStore, func() error, error) {
	s, err := NewFilesystemStore(cfg.BaseDir)
	if err != nil {
		return nil, nil, err
	}
	return s, nil, nil
}

// NewFilesystemStore creates baseDir if needed.
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrInvalidName)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FilesystemStore{baseDir: baseDir}, nil
}

func (s *FilesystemStore) PutBlob(ctx context.Context, container, name string, payload io.Reader, opts PutOptions) (string, error) {
	path, err := s.blobPath(container, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", container, err)
	}

	// Write to a temp file first so a partial upload never becomes visible.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create blob %s/%s: %w", container, name, err)
	}
	defer os.Remove(tmp.Name())

	h := md5.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), payload); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write blob %s/%s: %w", container, name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write blob %s/%s: %w", container, name, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.writeAttrs(container, name, fileAttrs{ContentType: opts.ContentType, UserMetadata: opts.UserMetadata}); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to commit blob %s/%s: %w", container, name, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *FilesystemStore) BlobExists(_ context.Context, container, name string) (bool, error) {
	path, err := s.blobPath(container, name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat blob %s/%s: %w", container, name, err)
	}
	return true, nil
}

func (s *FilesystemStore) BlobMetadata(_ context.Context, container, name string) (Metadata, error) {
	path, err := s.blobPath(container, name)
	if err != nil {
		return Metadata{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
		}
		return Metadata{}, fmt.Errorf("failed to open blob %s/%s: %w", container, name, err)
	}
	defer f.Close()
	return s.fileMetadata(container, name, f)
}

func (s *FilesystemStore) GetBlob(_ context.Context, container, name string) (*Blob, error) {
	path, err := s.blobPath(container, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
		}
		return nil, fmt.Errorf("failed to open blob %s/%s: %w", container, name, err)
	}
	md, err := s.fileMetadata(container, name, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind blob %s/%s: %w", container, name, err)
	}
	return &Blob{Metadata: md, Payload: f}, nil
}

func (s *FilesystemStore) DeleteContainer(_ context.Context, container string) error {
	if !validContainer(container) {
		return fmt.Errorf("%w: %q", ErrInvalidName, container)
	}
	dir := filepath.Join(s.baseDir, container)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete container %s: %w", container, err)
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, attrsDir, container)); err != nil {
		return fmt.Errorf("failed to delete attributes of container %s: %w", container, err)
	}
	return nil
}

func (s *FilesystemStore) blobPath(container, name string) (string, error) {
	if !validContainer(container) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, container)
	}
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.baseDir, container, name), nil
}

func (s *FilesystemStore) attrsPath(container, name string) string {
	return filepath.Join(s.baseDir, attrsDir, container, name+".json")
}

func (s *FilesystemStore) writeAttrs(container, name string, attrs fileAttrs) error {
	path := s.attrsPath(container, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to store attributes of %s/%s: %w", container, name, err)
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to encode attributes of %s/%s: %w", container, name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to store attributes of %s/%s: %w", container, name, err)
	}
	return nil
}

// readAttrs returns zero attributes for blobs written without them.
func (s *FilesystemStore) readAttrs(container, name string) (fileAttrs, error) {
	var attrs fileAttrs
	data, err := os.ReadFile(s.attrsPath(container, name))
	if errors.Is(err, fs.ErrNotExist) {
		return attrs, nil
	}
	if err != nil {
		return attrs, fmt.Errorf("failed to read attributes of %s/%s: %w", container, name, err)
	}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return attrs, fmt.Errorf("failed to decode attributes of %s/%s: %w", container, name, err)
	}
	return attrs, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func validContainer(name string) bool {
	return validName(name) && name != attrsDir
}

func (s *FilesystemStore) fileMetadata(container, name string, f *os.File) (Metadata, error) {
	info, err := f.Stat()
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to stat blob %s/%s: %w", container, name, err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Metadata{}, fmt.Errorf("failed to read blob %s/%s: %w", container, name, err)
	}

	h := md5.New()
	h.Write(head[:n])
	if _, err := io.Copy(h, f); err != nil {
		return Metadata{}, fmt.Errorf("failed to hash blob %s/%s: %w", container, name, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	attrs, err := s.readAttrs(container, name)
	if err != nil {
		return Metadata{}, err
	}
	contentType := attrs.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(head[:n])
	}

	return Metadata{
		Container:     container,
		Name:          name,
		ContentLength: int64Ptr(info.Size()),
		ContentType:   contentType,
		ContentMD5:    sum,
		ETag:          sum,
		LastModified:  info.ModTime(),
		UserMetadata:  attrs.UserMetadata,
	}, nil
}
