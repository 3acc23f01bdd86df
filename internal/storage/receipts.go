// Package storage persists uploaded receipt files on local disk. Receipts
// are immutable once written; each upload gets a unique timestamped name so
// no locking is needed.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// ReceiptStore saves receipt uploads into a directory and hands back the
// public URL path they are served under.
type ReceiptStore struct {
	dir string
}

// NewReceiptStore creates the upload directory if needed.
func NewReceiptStore(dir string) (*ReceiptStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &ReceiptStore{dir: dir}, nil
}

// Dir returns the directory receipts are stored in.
func (s *ReceiptStore) Dir() string {
	return s.dir
}

// Save writes the uploaded file under "<unix-ms>-<original name>" and
// returns the URL path ("/uploads/<name>") to store on the expense.
func (s *ReceiptStore) Save(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	// filepath.Base strips any path components a client may smuggle into
	// the original filename.
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(file.Filename))

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write receipt file: %w", err)
	}

	return "/uploads/" + name, nil
}
