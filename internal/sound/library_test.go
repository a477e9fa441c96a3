package sound

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) (*Library, string) {
	t.Helper()
	dir := t.TempDir()
	lib, err := OpenLibrary("cat", filepath.Join(dir, "sounds"), filepath.Join(dir, "sounds.yaml"), zerolog.Nop())
	require.NoError(t, err)
	return lib, dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLibrary_ImportHashesFileName(t *testing.T) {
	lib, dir := newTestLibrary(t)
	src := writeFile(t, dir, "Meow.WAV", "RIFF-meow")

	it, err := lib.Import(src, "")
	require.NoError(t, err)

	assert.Equal(t, "Meow", it.Name())
	assert.True(t, strings.HasSuffix(it.FileName, "_#_Meow.wav"), it.FileName)
	assert.Len(t, strings.Split(it.FileName, "_#_")[0], 32)
	data, err := os.ReadFile(lib.Path(it))
	require.NoError(t, err)
	assert.Equal(t, "RIFF-meow", string(data))

	again, err := lib.Import(src, "")
	require.NoError(t, err)
	assert.Equal(t, "Meow (1)", again.Name())
}

func TestLibrary_ManifestRoundTrip(t *testing.T) {
	lib, dir := newTestLibrary(t)
	a, err := lib.Import(writeFile(t, dir, "a.wav", "A"), "alpha")
	require.NoError(t, err)
	b, err := lib.Import(writeFile(t, dir, "b.mp3", "B"), "beta")
	require.NoError(t, err)
	require.NoError(t, lib.Move(1, 0))

	reopened, err := OpenLibrary("ignored", filepath.Join(dir, "sounds"), filepath.Join(dir, "sounds.yaml"), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "cat", reopened.Object())
	require.Equal(t, 2, reopened.Repo.Len())
	assert.Equal(t, b.ID, reopened.Repo.At(0).ID)
	assert.Equal(t, a.ID, reopened.Repo.At(1).ID)
	assert.Equal(t, a.FileName, reopened.Repo.At(1).FileName)
	assert.Equal(t, "alpha", reopened.Repo.At(1).Name())
}

func TestLibrary_CopyAndRename(t *testing.T) {
	lib, dir := newTestLibrary(t)
	a, err := lib.Import(writeFile(t, dir, "a.wav", "A"), "alpha")
	require.NoError(t, err)

	cp, err := lib.Copy(a)
	require.NoError(t, err)
	assert.Equal(t, "alpha (1)", cp.Name())
	assert.NotEqual(t, a.ID, cp.ID)
	assert.FileExists(t, lib.Path(cp))

	require.NoError(t, lib.Rename(cp, "alpha"))
	assert.Equal(t, "alpha (1)", cp.Name())
	require.NoError(t, lib.Rename(cp, "gamma"))
	assert.Equal(t, "gamma", cp.Name())
	require.NoError(t, lib.Rename(cp, "gamma"))
}

func TestLibrary_RemoveDeletesAsset(t *testing.T) {
	lib, dir := newTestLibrary(t)
	a, err := lib.Import(writeFile(t, dir, "a.wav", "A"), "alpha")
	require.NoError(t, err)
	path := lib.Path(a)

	require.NoError(t, lib.Remove(a))
	assert.NoFileExists(t, path)
	assert.Equal(t, 0, lib.Repo.Len())

	require.ErrorIs(t, lib.Remove(a), ErrNotFound)
}

func TestLibrary_Size(t *testing.T) {
	lib, dir := newTestLibrary(t)
	a, err := lib.Import(writeFile(t, dir, "a.wav", "12345"), "")
	require.NoError(t, err)

	n, err := lib.Size(a)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
