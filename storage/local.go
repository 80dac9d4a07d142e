package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage keeps objects on the worker's own filesystem. Interchangeable
// with MinioStorage for single-node deployments.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Fetch(ctx context.Context, objectName, localPath string) error {
	return copyFile(filepath.Join(s.root, objectName), localPath)
}

func (s *LocalStorage) Store(ctx context.Context, localPath, objectName string) error {
	dest := filepath.Join(s.root, objectName)
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return err
	}
	return copyFile(localPath, dest)
}

func (s *LocalStorage) Delete(ctx context.Context, objectName string) error {
	err := os.Remove(filepath.Join(s.root, objectName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
