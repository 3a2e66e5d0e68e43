package jsonfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Flag bool   `json:"flag"`
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "items.json")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, Write(path, "items", []item{{ID: "a"}, {ID: "b", Flag: true}}, now))

	got, found, err := Read[item](path, "items")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []item{{ID: "a"}, {ID: "b", Flag: true}}, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind": "items"`)
	assert.Contains(t, string(raw), `"version": 1`)
	assert.Contains(t, string(raw), `"updatedAt": "2026-03-01T12:00:00Z"`)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.json")

	for i := 0; i < 3; i++ {
		require.NoError(t, Write(path, "items", []item{{ID: "x"}}, time.Now()))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "items.json", entries[0].Name())
}

func TestWriteNilItemsWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, Write[item](path, "items", nil, time.Now()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"items": []`)
}

func TestReadMissingFile(t *testing.T) {
	got, found, err := Read[item](filepath.Join(t.TempDir(), "absent.json"), "items")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestReadRejectsBadDocuments(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "corrupt json", content: `{"items": [`},
		{name: "wrong kind", content: `{"kind":"other","version":1,"items":[]}`},
		{name: "future version", content: `{"kind":"items","version":9,"items":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, found, err := Read[item](path, "items")
			assert.True(t, found)
			assert.Error(t, err)
		})
	}
}

func TestWriteFailsWhenDirIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := Write(filepath.Join(blocker, "items.json"), "items", []item{{ID: "a"}}, time.Now())
	assert.Error(t, err)
}
