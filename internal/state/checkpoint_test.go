package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	require.NoError(t, Save(path, Checkpoint{
		InitialCapital: 10000,
		CurrentCapital: 10123.45,
		DailyPnL:       -12.3,
	}))

	cp, ok, err := Load(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 10000, cp.InitialCapital, 1e-9)
	assert.InDelta(t, 10123.45, cp.CurrentCapital, 1e-9)
	assert.InDelta(t, -12.3, cp.DailyPnL, 1e-9)
	assert.False(t, cp.UpdatedAt.IsZero())
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	_, ok, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadRejectsCorruptCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveCapital(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"current_capital": 0}`), 0o644))
	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, Save(path, Checkpoint{InitialCapital: 1, CurrentCapital: 1}))
	require.NoError(t, Save(path, Checkpoint{InitialCapital: 1, CurrentCapital: 2}))

	cp, ok, err := Load(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2, cp.CurrentCapital, 1e-9)
	// no temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
