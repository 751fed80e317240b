package state

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "out/download_state.json")

	require.NoError(t, store.Load())
	assert.Equal(t, 0, store.Len())
}

func TestRecordAndReload(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "out/download_state.json"

	store := NewStore(fs, path)
	require.NoError(t, store.Load())
	require.NoError(t, store.Record("sid1", "out/images/a.jpg"))
	require.NoError(t, store.Record("sid2", "out/videos/b.mp4"))

	reloaded := NewStore(fs, path)
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.Contains("sid1"))
	assert.True(t, reloaded.Contains("sid2"))
	assert.False(t, reloaded.Contains("sid3"))
	assert.Equal(t, 2, reloaded.Len())
}

func TestLoadCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "out/download_state.json"
	require.NoError(t, afero.WriteFile(fs, path, []byte("{not json"), 0644))

	store := NewStore(fs, path)
	err := store.Load()
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())

	// store stays usable after a corrupt load
	require.NoError(t, store.Record("sid1", "out/images/a.jpg"))
	assert.True(t, store.Contains("sid1"))
}

func TestRecordOverwritesEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "out/download_state.json")

	require.NoError(t, store.Record("sid1", "out/images/old.jpg"))
	require.NoError(t, store.Record("sid1", "out/images/new.jpg"))
	assert.Equal(t, 1, store.Len())

	data, err := afero.ReadFile(fs, "out/download_state.json")
	require.NoError(t, err)
	var entries map[string]string
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Equal(t, "out/images/new.jpg", entries["sid1"])
}

func TestConcurrentRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "out/download_state.json"
	store := NewStore(fs, path)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("sid%03d", i)
			assert.NoError(t, store.Record(key, "out/images/"+key+".jpg"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, store.Len())

	// the persisted file is valid JSON with every entry present
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	var entries map[string]string
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, n)
}
