package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/garyjia/invoice-reimbursement/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInvoiceArchiver_Archive(t *testing.T) {
	tempDir := t.TempDir()
	archiver := storage.NewInvoiceArchiver(tempDir, zap.NewNop())
	ctx := context.Background()

	content := []byte("%PDF-1.4 invoice")
	path, err := archiver.Archive(ctx, "Asha Rao", "inv-0011223344556677", content)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "Asha_Rao", "inv-0011223344556677.pdf"), path)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, saved)

	// second invoice for the same employee shares the folder
	path2, err := archiver.Archive(ctx, "Asha Rao", "inv-8899aabbccddeeff", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), filepath.Dir(path2))
}

func TestInvoiceArchiver_ExistingFolderKept(t *testing.T) {
	tempDir := t.TempDir()
	folder := filepath.Join(tempDir, "Asha_Rao")
	require.NoError(t, os.MkdirAll(folder, 0755))
	earlier := filepath.Join(folder, "inv-0000000000000001.pdf")
	require.NoError(t, os.WriteFile(earlier, []byte("earlier"), 0644))

	archiver := storage.NewInvoiceArchiver(tempDir, zap.NewNop())
	path, err := archiver.Archive(context.Background(), "Asha Rao", "inv-0000000000000002", []byte("later"))
	require.NoError(t, err)
	assert.Equal(t, folder, filepath.Dir(path))

	kept, err := os.ReadFile(earlier)
	require.NoError(t, err)
	assert.Equal(t, []byte("earlier"), kept)
}

func TestInvoiceArchiver_FolderBlockedByFile(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "Asha_Rao"), []byte("x"), 0644))

	archiver := storage.NewInvoiceArchiver(tempDir, zap.NewNop())
	_, err := archiver.Archive(context.Background(), "Asha Rao", "inv-1", []byte("x"))
	assert.Error(t, err)
}

func TestInvoiceArchiver_Errors(t *testing.T) {
	archiver := storage.NewInvoiceArchiver(t.TempDir(), zap.NewNop())

	_, err := archiver.Archive(context.Background(), "Asha", "", []byte("x"))
	assert.Error(t, err)

	_, err = archiver.Archive(context.Background(), "", "inv-1", []byte("x"))
	assert.Error(t, err)

	_, err = archiver.Archive(context.Background(), "   ", "inv-1", []byte("x"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = archiver.Archive(ctx, "Asha", "inv-1", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
