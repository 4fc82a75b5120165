package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the AWS S3 client used by the aws-s3 provider.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type awsS3Store struct {
	client S3API
	region string
}

func openAWSS3(ctx context.Context, identity, credential string, cfg Config) (BlobStore, func() error, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(identity, credential, "")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			scheme := "https"
			if !cfg.UseSSL {
				scheme = "http"
			}
			endpoint = scheme + "://" + endpoint
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewAWSS3Store(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Region), nil, nil
}

// NewAWSS3Store adapts an AWS S3 client to the BlobStore interface.
func NewAWSS3Store(client S3API, region string) BlobStore {
	return &awsS3Store{client: client, region: region}
}

func (s *awsS3Store) PutBlob(ctx context.Context, container, name string, payload io.Reader, opts PutOptions) (string, error) {
	if err := s.ensureBucket(ctx, container); err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(container),
		Key:      aws.String(name),
		Body:     payload,
		Metadata: opts.UserMetadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.ContentLength >= 0 {
		input.ContentLength = aws.Int64(opts.ContentLength)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to put object %s/%s: %w", container, name, err)
	}
	return strings.Trim(aws.ToString(out.ETag), `"`), nil
}

func (s *awsS3Store) ensureBucket(ctx context.Context, container string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(container)})
	if err == nil {
		return nil
	}
	if !isS3NotFound(err) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(container)}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	_, err = s.client.CreateBucket(ctx, input)
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("failed to create bucket %s: %w", container, err)
	}
	return nil
}

func (s *awsS3Store) BlobExists(ctx context.Context, container, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s/%s: %w", container, name, err)
	}
	return true, nil
}

func (s *awsS3Store) BlobMetadata(ctx context.Context, container, name string) (Metadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return Metadata{}, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
		}
		return Metadata{}, fmt.Errorf("failed to head object %s/%s: %w", container, name, err)
	}

	etag := strings.Trim(aws.ToString(out.ETag), `"`)
	md := Metadata{
		Container:     container,
		Name:          name,
		ContentLength: out.ContentLength,
		ContentType:   aws.ToString(out.ContentType),
		ContentMD5:    md5FromETag(etag),
		ETag:          etag,
		UserMetadata:  out.Metadata,
	}
	if out.LastModified != nil {
		md.LastModified = *out.LastModified
	}
	return md, nil
}

func (s *awsS3Store) GetBlob(ctx context.Context, container, name string) (*Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrBlobNotFound, container, name)
		}
		return nil, fmt.Errorf("failed to get object %s/%s: %w", container, name, err)
	}

	etag := strings.Trim(aws.ToString(out.ETag), `"`)
	md := Metadata{
		Container:     container,
		Name:          name,
		ContentLength: out.ContentLength,
		ContentType:   aws.ToString(out.ContentType),
		ContentMD5:    md5FromETag(etag),
		ETag:          etag,
		UserMetadata:  out.Metadata,
	}
	if out.LastModified != nil {
		md.LastModified = *out.LastModified
	}
	return &Blob{Metadata: md, Payload: out.Body}, nil
}

func (s *awsS3Store) DeleteContainer(ctx context.Context, container string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isS3NotFound(err) {
				return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
			}
			return fmt.Errorf("failed to list objects in %s: %w", container, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(container),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects in %s: %w", container, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("failed to delete object %s/%s: %s", container, aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}

	if _, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(container)}); err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, container)
		}
		return fmt.Errorf("failed to delete bucket %s: %w", container, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nsb) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}
