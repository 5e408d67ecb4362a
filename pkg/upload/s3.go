package upload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store stores files in an S3 bucket.
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	maxSize int64
}

// NewS3Store creates an S3 store.
//
// Parameters:
//   - client: an *s3.Client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - prefix: Key prefix (e.g., "forms/")
//   - maxSize: Maximum file size in bytes (0 = no limit)
func NewS3Store(client S3API, bucket, prefix string, maxSize int64) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: maxSize,
	}
}

// Put uploads r to the bucket under prefix+key.
func (s *S3Store) Put(ctx context.Context, key string, meta Meta, r io.Reader) (*Stored, error) {
	if s.maxSize > 0 && meta.Size > s.maxSize {
		return nil, ErrTooLarge
	}
	objectKey := s.prefix + key

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        limit(r, s.maxSize),
		ContentType: aws.String(contentType(meta)),
		Metadata: map[string]string{
			"original-filename": meta.Filename,
			"upload-time":       time.Now().UTC().Format(time.RFC3339),
		},
	}
	if meta.Size > 0 {
		in.ContentLength = aws.Int64(meta.Size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("s3 upload failed: %w", err)
	}

	return &Stored{
		Key:         objectKey,
		Filename:    meta.Filename,
		ContentType: contentType(meta),
		Size:        meta.Size,
		Location:    "s3://" + s.bucket + "/" + objectKey,
	}, nil
}

// Delete removes a stored object. stored.Key already carries the prefix.
func (s *S3Store) Delete(ctx context.Context, stored *Stored) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(stored.Key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

func contentType(meta Meta) string {
	if meta.ContentType == "" {
		return "application/octet-stream"
	}
	return meta.ContentType
}
