package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ClientMinio interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type MinioS3Client struct {
	bucketName string
	client     ClientMinio
}

const defaultContentType = "application/octet-stream"

// NewMinioS3Client creates a new MinioS3Client instance.
func NewMinioS3Client(endpoint, accessKeyID, secretAccessKey, bucketName string, useSSL bool) (*MinioS3Client, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", endpoint, err)
	}
	return NewMinioS3ClientWith(minioClient, bucketName), nil
}

// NewMinioS3ClientWith wraps an already configured client.
func NewMinioS3ClientWith(client ClientMinio, bucketName string) *MinioS3Client {
	return &MinioS3Client{bucketName: bucketName, client: client}
}

// EnsureBucket creates the bucket when it does not exist yet. It needs the
// concrete minio client and is a no-op for anything else.
func (s3 *MinioS3Client) EnsureBucket(ctx context.Context) error {
	mc, ok := s3.client.(*minio.Client)
	if !ok {
		return nil
	}
	exists, err := mc.BucketExists(ctx, s3.bucketName)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s3.bucketName, err)
	}
	if exists {
		return nil
	}
	if err := mc.MakeBucket(ctx, s3.bucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s3.bucketName, err)
	}
	return nil
}

// UploadFile uploads an object to the configured bucket.
func (s3 *MinioS3Client) UploadFile(ctx context.Context, uploadPath string, object io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s3.client.PutObject(ctx,
		s3.bucketName,
		uploadPath,
		object,
		size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %v: %w", uploadPath, err, ErrUpstream)
	}
	return nil
}

// DeleteFile removes an object. A missing object is reported as ErrNotFound.
func (s3 *MinioS3Client) DeleteFile(ctx context.Context, fileName string) error {
	if _, err := s3.client.StatObject(ctx, s3.bucketName, fileName, minio.StatObjectOptions{}); err != nil {
		return s3.classify(fileName, err)
	}
	if err := s3.client.RemoveObject(ctx, s3.bucketName, fileName, minio.RemoveObjectOptions{}); err != nil {
		return s3.classify(fileName, err)
	}
	return nil
}

// PresignedURL returns a temporary download URL for an existing object.
func (s3 *MinioS3Client) PresignedURL(ctx context.Context, fileName string, expires time.Duration) (*url.URL, error) {
	if _, err := s3.client.StatObject(ctx, s3.bucketName, fileName, minio.StatObjectOptions{}); err != nil {
		return nil, s3.classify(fileName, err)
	}
	u, err := s3.client.PresignedGetObject(ctx, s3.bucketName, fileName, expires, url.Values{})
	if err != nil {
		return nil, s3.classify(fileName, err)
	}
	return u, nil
}

func (s3 *MinioS3Client) classify(fileName string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("object %s: %w", fileName, ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("object %s: %v: %w", fileName, err, ErrUpstream)
}
