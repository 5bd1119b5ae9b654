package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "skirmish.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "skirmish", sc.Name)
	assert.Equal(t, "A single raider against a guarded outpost.", sc.Description)
	assert.False(t, sc.Scripted())
	require.Len(t, sc.Fleets, 2)
	assert.Equal(t, Coords{X: 0, Y: 0}, sc.Fleets[0].Starships[0].Sector)
	assert.Equal(t, "outpost", sc.Fleets[1].Starbases[0].Name)
	require.Len(t, sc.Turns, 2)
	assert.Len(t, sc.Turns[0].Orders, 2)
}

func TestLoad_Starlark(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "hunt.star"))
	require.NoError(t, err)

	assert.Equal(t, "hunt", sc.Name, "scripts are named after their file")
	assert.Equal(t, "Raider hunts a lone scout.", sc.Description)
	assert.True(t, sc.Scripted())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown_field.yaml"))
	assert.ErrorContains(t, err, "speed")

	_, err = Load(filepath.Join("testdata", "notes.txt"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Load(filepath.Join("testdata", "missing.yaml"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ParseStarlark("broken.star", []byte("def f(:\n"))
	assert.Error(t, err)
}

func TestLoad_NameDefaultsToFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ambush.yml")
	require.NoError(t, os.WriteFile(file, []byte("fleets:\n  - player: 1\n"), 0o600))

	sc, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "ambush", sc.Name)
}

func TestBuiltin(t *testing.T) {
	assert.Equal(t, []string{"demo", "demo-scripted"}, List())

	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			sc, err := Builtin(name)
			require.NoError(t, err)
			assert.Equal(t, name, sc.Name)
			assert.Equal(t, BuiltinPrefix+name, sc.Source)
			assert.NotEmpty(t, sc.Description)
		})
	}

	_, err := Builtin("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	sc, err := Open("skirmish", "testdata")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "skirmish.yaml"), sc.Source)

	sc, err = Open(filepath.Join("testdata", "hunt.star"), "")
	require.NoError(t, err)
	assert.Equal(t, "hunt", sc.Name)

	sc, err = Open("demo", "testdata")
	require.NoError(t, err)
	assert.Equal(t, BuiltinPrefix+"demo", sc.Source)

	sc, err = Open("builtin:demo-scripted", "")
	require.NoError(t, err)
	assert.True(t, sc.Scripted())

	_, err = Open("nowhere", "testdata")
	assert.ErrorIs(t, err, ErrNotFound)
}
