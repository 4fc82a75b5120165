package storage

import (
	"context"
	"fmt"
	"sort"
)

// Opener connects to one provider. The returned closer releases its resources and may be nil.
type Opener func(ctx context.Context, identity, credential string, cfg Config) (store BlobStore, closer func() error, err error)

const (
	ProviderAWSS3      = "aws-s3"
	ProviderS3         = "s3"
	ProviderMinio      = "minio"
	ProviderGCS        = "google-cloud-storage"
	ProviderTransient  = "transient"
	ProviderFilesystem = "filesystem"
)

var providers = map[string]Opener{
	ProviderAWSS3:      openAWSS3,
	ProviderS3:         openMinio,
	ProviderMinio:      openMinio,
	ProviderGCS:        openGCS,
	ProviderTransient:  openTransient,
	ProviderFilesystem: openFilesystem,
}

// Open creates a storage context for the named provider.
func Open(ctx context.Context, provider, identity, credential string, cfg Config) (Context, error) {
	open, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProvider, provider, Providers())
	}
	store, closer, err := open(ctx, identity, credential, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s context: %w", provider, err)
	}
	return newContext(provider, store, closer), nil
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
