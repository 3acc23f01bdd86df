package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("receipt", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["receipt"][0]
}

func TestReceiptStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReceiptStore(dir)
	require.NoError(t, err)

	file := uploadRequest(t, "invoice.pdf", "fake pdf bytes")
	url, err := store.Save(file)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, "-invoice.pdf"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "fake pdf bytes", string(data))
}

func TestReceiptStoreStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReceiptStore(dir)
	require.NoError(t, err)

	file := uploadRequest(t, "../../etc/passwd", "nope")
	url, err := store.Save(file)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(url, "-passwd"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "..")
}

func TestNewReceiptStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	_, err := NewReceiptStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
