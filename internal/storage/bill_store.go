// Package storage persists uploaded bill files on the local filesystem,
// one directory per employee, and computes content hashes for duplicate
// detection.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxFileSize = 10 << 20 // 10 MB

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// StoredBill describes a persisted upload
type StoredBill struct {
	Path         string
	OriginalName string
	Size         int64
	SHA256       string
}

// BillStore writes bill uploads under baseDir/user_<id>/
type BillStore struct {
	baseDir string
	logger  *zap.Logger
}

func NewBillStore(baseDir string, logger *zap.Logger) (*BillStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &BillStore{baseDir: abs, logger: logger}, nil
}

// Validate checks the upload name and size before any bytes are written
func (s *BillStore) Validate(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if size > MaxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	return nil
}

// Save persists the upload under the owner's directory with a generated
// name, keeping only the original extension. The returned hash is the
// SHA-256 of the content.
func (s *BillStore) Save(ownerID int64, filename string, content []byte) (*StoredBill, error) {
	if err := s.Validate(filename, int64(len(content))); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102"), uuid.NewString(), ext)
	fullPath := filepath.Join(s.baseDir, fmt.Sprintf("user_%d", ownerID), name)

	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		s.logger.Error("Failed to write bill file",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	sum := sha256.Sum256(content)
	s.logger.Debug("Bill file saved",
		zap.String("path", fullPath),
		zap.Int("size_bytes", len(content)))

	return &StoredBill{
		Path:         fullPath,
		OriginalName: filepath.Base(filename),
		Size:         int64(len(content)),
		SHA256:       hex.EncodeToString(sum[:]),
	}, nil
}

// Read returns the content of a stored bill file
func (s *BillStore) Read(path string) ([]byte, error) {
	if err := s.validatePath(path); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// Remove deletes a stored bill file. Missing files are not an error
// since cleanup may race with deletion.
func (s *BillStore) Remove(path string) error {
	if err := s.validatePath(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// validatePath rejects paths that escape the storage base directory
func (s *BillStore) validatePath(path string) error {
	cleaned := filepath.Clean(path)
	if !strings.HasPrefix(cleaned, s.baseDir+string(filepath.Separator)) {
		return fmt.Errorf("path %s is outside storage directory", path)
	}
	return nil
}

// HashContent returns the hex SHA-256 of content, used for duplicate
// checks before a file is persisted
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
