// Package storage provides a provider-neutral blob storage layer.
//
// A Context is an authenticated session with one provider, opened by name:
//
//	sc, err := storage.Open(ctx, "aws-s3", accessKey, secretKey, cfg)
//	defer sc.Close()
//
// # Providers
//
//   - aws-s3: Amazon S3 through the AWS SDK for Go v2.
//   - s3, minio: any S3-compatible endpoint through the MinIO Go client.
//   - google-cloud-storage: Google Cloud Storage; identity is the project ID.
//   - transient: in-memory, with an optional simulated propagation delay.
//   - filesystem: directories under Config.BaseDir.
//
// # Operations
//
//   - PutBlob: uploads a payload, creating the container when missing.
//   - BlobExists: reports whether the blob is visible yet.
//   - BlobMetadata: returns content metadata; ContentLength may still be nil.
//   - GetBlob: returns the metadata and a payload stream.
//   - DeleteContainer: removes every blob, then the container.
//
// AsyncBlobStore runs the same operations in the background and returns a
// Future for each call. The Client interface abstracts the MinIO SDK so the
// S3-compatible provider can be tested with the mocks in core/storage/mocks.
package storage
