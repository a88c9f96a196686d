package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	want := payload{Name: "qtable", Score: 0.42}
	require.NoError(t, s.Save("qtable", want))

	var got payload
	ok, err := s.Load("qtable", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFileStoreMissingKey(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	var got payload
	ok, err := s.Load("nothing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreOverwrite(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("k", payload{Name: "first"}))
	require.NoError(t, s.Save("k", payload{Name: "second"}))

	var got payload
	ok, err := s.Load("k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Name)
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644))

	var got payload
	_, err = s.Load("bad", &got)
	assert.Error(t, err)
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	_, err := NewFileStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()

	var got payload
	ok, err := s.Load("k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save("k", payload{Name: "mem", Score: 1}))
	ok, err = s.Load("k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mem", got.Name)
}
