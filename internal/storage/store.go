package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Storage sub-directories
const (
	DirContracts = "contracts"
	DirSigned    = "signed"
)

// hashChunkSize is the read size used when streaming content into the hasher
const hashChunkSize = 4096

// ErrNotExist is returned when a handle does not resolve to a stored document
var ErrNotExist = errors.New("document does not exist")

// DocumentStore persists uploaded and generated files and hands out opaque handles
type DocumentStore interface {
	// Save writes the content and returns its handle
	Save(ctx context.Context, r io.Reader, filename, subDir string) (string, error)
	// Open returns a reader for the stored content
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
	// Copy duplicates a stored document and returns the new handle
	Copy(ctx context.Context, handle, subDir string) (string, error)
	// Delete removes a stored document
	Delete(ctx context.Context, handle string) error
}

// Hash returns the lowercase hex SHA-256 digest of r, streaming it in fixed-size chunks
func Hash(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("failed to read content for hashing: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashDocument fingerprints a stored document
func HashDocument(ctx context.Context, store DocumentStore, handle string) (string, error) {
	rc, err := store.Open(ctx, handle)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return Hash(rc)
}

// IsHexDigest reports whether s looks like a SHA-256 hex digest
func IsHexDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// MaxFileSize returns the maximum allowed upload size (10MB)
func MaxFileSize() int64 {
	return 10 * 1024 * 1024
}

// ValidContentTypes returns allowed MIME types for contract uploads
func ValidContentTypes() map[string]bool {
	return map[string]bool{
		"application/pdf": true,
	}
}

// IsValidContentType checks if the content type is allowed
func IsValidContentType(contentType string) bool {
	return ValidContentTypes()[contentType]
}
