package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localseek/localseek/pkg/types"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtractPlainText(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("  A note with five words.  \n"))

	content, err := NewTextExtractor(0).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "A note with five words.", content.Text)
	assert.Equal(t, CategoryText, content.Category)
	assert.Equal(t, "utf-8", content.Encoding)
	assert.Equal(t, 5, content.WordCount)
}

func TestExtractRejectsBinary(t *testing.T) {
	path := writeFile(t, "blob.txt", []byte{0x00, 0x01, 0x02, 'a', 'b'})

	_, err := NewTextExtractor(0).Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, types.IsExtractionError(err))
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	path := writeFile(t, "latin1.txt", []byte{'c', 'a', 'f', 0xe9})

	_, err := NewTextExtractor(0).Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, types.IsExtractionError(err))
}

func TestExtractRejectsEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.txt", []byte("   \n"))

	_, err := NewTextExtractor(0).Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, types.IsExtractionError(err))
}

func TestExtractMissingFileIsRecoverable(t *testing.T) {
	_, err := NewTextExtractor(0).Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
	assert.True(t, types.IsExtractionError(err))
}

func TestExtractHonorsReadCap(t *testing.T) {
	path := writeFile(t, "big.txt", []byte("0123456789 0123456789"))

	content, err := NewTextExtractor(10).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", content.Text)
}

func TestExtractRespectsCancellation(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("text"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTextExtractor(0).Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCategoryForPath(t *testing.T) {
	cases := map[string]string{
		"report.md":    CategoryDocument,
		"budget.XLSX":  CategorySpreadsheet,
		"data.csv":     CategoryData,
		"main.go":      CategoryCode,
		"readme.txt":   CategoryText,
		"no-extension": CategoryText,
	}
	for path, want := range cases {
		assert.Equal(t, want, CategoryForPath(path), path)
	}
}
