package digester_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/git2gpt/gitops/digester"
)

// sha256("hello")
const helloDigest = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestSum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, helloDigest, digester.Sum([]byte("hello")))
}

func TestCalculateDigest_returns_sha256(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pa := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(pa, []byte("hello"), 0o600))

	got, err := digester.CalculateDigest(pa)

	require.NoError(t, err)
	assert.Equal(t, helloDigest, got)
}

func TestCalculateDigest_nonexistent_file(t *testing.T) {
	t.Parallel()

	got, err := digester.CalculateDigest(filepath.Join(t.TempDir(), "absent"))

	assert.Empty(t, got)
	assert.NoError(t, err)
}

func TestCalculateDigest_symlink_uses_target(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("hello", link))

	got, err := digester.CalculateDigest(link)

	require.NoError(t, err)
	assert.Equal(t, helloDigest, got)
}

func TestCalculateDigest_directory(t *testing.T) {
	t.Parallel()

	_, err := digester.CalculateDigest(t.TempDir())

	assert.Error(t, err)
}

func TestVerifyDigest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pa := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(pa, []byte("hello"), 0o600))

	ok, err := digester.VerifyDigest(pa, helloDigest)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(pa, []byte("tampered"), 0o600))

	ok, err = digester.VerifyDigest(pa, helloDigest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyDigest_expects_absent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pa := filepath.Join(dir, "new.txt")

	ok, err := digester.VerifyDigest(pa, "")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(pa, nil, 0o600))

	ok, err = digester.VerifyDigest(pa, "")
	require.NoError(t, err)
	assert.False(t, ok)
}
