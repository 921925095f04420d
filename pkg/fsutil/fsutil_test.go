package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		dst     string
		wantErr bool
	}{
		{
			name: "moves file into existing directory",
			src:  "a.bin",
			dst:  "b.bin",
		},
		{
			name: "creates missing destination directory",
			src:  "a.bin",
			dst:  filepath.Join("nested", "deep", "b.bin"),
		},
		{
			name:    "empty source",
			src:     "",
			dst:     "b.bin",
			wantErr: true,
		},
		{
			name:    "missing source",
			src:     "does-not-exist.bin",
			dst:     "b.bin",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := tt.src
			if src != "" && src != "does-not-exist.bin" {
				src = filepath.Join(dir, tt.src)
				require.NoError(t, os.WriteFile(src, []byte("payload"), FileModeSecure))
			}
			dst := tt.dst
			if dst != "" {
				dst = filepath.Join(dir, tt.dst)
			}

			err := Move(src, dst)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			content, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "payload", string(content))

			_, err = os.Stat(src)
			assert.True(t, os.IsNotExist(err), "source should be gone after move")
		})
	}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("copy me"), FileModeSecure))

	require.NoError(t, Copy(src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "copy me", string(content))

	// Source stays in place.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestResetDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	require.NoError(t, os.MkdirAll(dir, DirModeSecure))
	stale := filepath.Join(dir, "leftover.download")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), FileModeSecure))

	require.NoError(t, ResetDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Works when the directory does not exist yet.
	fresh := filepath.Join(t.TempDir(), "never-created")
	require.NoError(t, ResetDir(fresh))
	info, err := os.Stat(fresh)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Error(t, ResetDir(""))
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.download")
	require.NoError(t, os.WriteFile(path, []byte("x"), FileModeSecure))

	require.NoError(t, RemoveIfExists(path))
	require.NoError(t, RemoveIfExists(path), "missing file is not an error")
}
