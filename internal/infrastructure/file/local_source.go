package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalFiles resolves relative paths against BaseDir for the importer CLI.
type LocalFiles struct {
	BaseDir string
}

func NewLocalFiles(baseDir string) *LocalFiles {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalFiles{BaseDir: baseDir}
}

// Open returns the file and its size, which drives parse progress estimates.
func (s *LocalFiles) Open(ctx context.Context, sourcePath string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	path := s.resolve(sourcePath)
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open file %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat file %s: %w", path, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, 0, fmt.Errorf("open file %s: is a directory", path)
	}
	return file, info.Size(), nil
}

// Create opens path for writing, creating parent directories as needed.
func (s *LocalFiles) Create(ctx context.Context, targetPath string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.resolve(targetPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", path, err)
	}
	return file, nil
}

func (s *LocalFiles) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.BaseDir, p)
}
