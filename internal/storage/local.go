package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage handles file storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Ensure the base directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes r to a new file and returns its relative path
func (s *LocalStorage) Save(ctx context.Context, r io.Reader, filename, subDir string) (string, error) {
	// Organized by year/month (e.g., "contracts/2026/01")
	dir := filepath.Join(s.basePath, subDir, time.Now().Format("2006/01"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(dir, uniqueName(filename))

	dst, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	// Relative path is the handle persisted in the database
	relPath, _ := filepath.Rel(s.basePath, filePath)
	return filepath.ToSlash(relPath), nil
}

// Open returns the file for reading
func (s *LocalStorage) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	path, err := s.resolve(handle)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Copy duplicates a stored file into subDir, keeping its extension
func (s *LocalStorage) Copy(ctx context.Context, handle, subDir string) (string, error) {
	src, err := s.Open(ctx, handle)
	if err != nil {
		return "", err
	}
	defer src.Close()
	return s.Save(ctx, src, filepath.Base(handle), subDir)
}

// Delete removes a file
func (s *LocalStorage) Delete(ctx context.Context, handle string) error {
	path, err := s.resolve(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists checks if a file exists
func (s *LocalStorage) Exists(handle string) bool {
	path, err := s.resolve(handle)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// resolve maps a handle to an absolute path, refusing anything outside basePath
func (s *LocalStorage) resolve(handle string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(handle))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrNotExist
	}
	return filepath.Join(s.basePath, clean), nil
}

// uniqueName keeps the extension of filename and replaces the rest with a UUID
func uniqueName(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}
