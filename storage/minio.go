package storage

import (
	"context"

	"github.com/minio/minio-go/v7"
)

type MinioStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioStorage(client *minio.Client, bucket string) *MinioStorage {
	return &MinioStorage{
		client: client,
		bucket: bucket,
	}
}

func (s *MinioStorage) Fetch(ctx context.Context, objectName, localPath string) error {
	return s.client.FGetObject(ctx, s.bucket, objectName, localPath, minio.GetObjectOptions{})
}

func (s *MinioStorage) Store(ctx context.Context, localPath, objectName string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath, minio.PutObjectOptions{})
	return err
}

func (s *MinioStorage) Delete(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}
