package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// LocalStore keeps objects under baseDir/<bucket>/<key> and serves them from
// publicBase. Writes go to a temp file in the destination directory followed
// by a rename, so concurrent readers never see partial content.
type LocalStore struct {
	baseDir    string
	publicBase string
}

var _ ObjectStore = (*LocalStore)(nil)

func NewLocalStore(dir, publicBase string) (*LocalStore, error) {
	baseDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}

	if err := os.MkdirAll(baseDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", baseDir, err)
	}

	return &LocalStore{baseDir: baseDir, publicBase: publicBase}, nil
}

func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

func (s *LocalStore) fullpath(bucket, key string) string {
	return filepath.Join(s.baseDir, bucket, key)
}

func (s *LocalStore) EnsureBucket(ctx context.Context, bucket string) error {
	if err := os.MkdirAll(filepath.Join(s.baseDir, bucket), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create bucket directory %s: %w", bucket, err)
	}
	return nil
}

func (s *LocalStore) PutObject(ctx context.Context, bucket, key string, data io.Reader) error {
	dst := s.fullpath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s/%s: %w", bucket, key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s/%s: %w", bucket, key, err)
	}

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s/%s: %w", bucket, key, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s/%s: %w", bucket, key, err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to place %s/%s: %w", bucket, key, err)
	}

	return nil
}

func (s *LocalStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(s.fullpath(bucket, key))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (s *LocalStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := os.Stat(s.fullpath(bucket, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object %s/%s: %w", bucket, key, err)
}

func (s *LocalStore) ListObjects(ctx context.Context, bucket string) ([]Object, error) {
	files, err := os.ReadDir(filepath.Join(s.baseDir, bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list objects in %s: %w", bucket, err)
	}

	var objects []Object
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		info, err := file.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to get file info for %s/%s: %w", bucket, file.Name(), err)
		}

		objects = append(objects, Object{Name: file.Name(), Size: info.Size()})
	}

	return objects, nil
}

func (s *LocalStore) ObjectURL(bucket, key string) string {
	return path.Join(s.publicBase, bucket, key)
}

func (s *LocalStore) Location(bucket, key string) string {
	return s.fullpath(bucket, key)
}
