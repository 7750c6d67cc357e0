package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilePath(t *testing.T) {
	dir := t.TempDir()

	t.Run("new file keeps cleaned absolute path", func(t *testing.T) {
		got, err := ValidateFilePath(filepath.Join(dir, "sub", "..", "vigil.db"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "vigil.db"), got)
	})

	t.Run("relative path becomes absolute", func(t *testing.T) {
		got, err := ValidateFilePath("vigil.db")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("symlink is resolved", func(t *testing.T) {
		target := filepath.Join(dir, "target.db")
		require.NoError(t, os.WriteFile(target, nil, 0o600))
		link := filepath.Join(dir, "link.db")
		require.NoError(t, os.Symlink(target, link))

		got, err := ValidateFilePath(link)
		require.NoError(t, err)
		want, err := filepath.EvalSymlinks(target)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	for _, bad := range []string{"", "  ", "data.db?mode=ro", "a;rm -rf", "db#frag", "$(whoami).db"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ValidateFilePath(bad)
			assert.Error(t, err)
		})
	}
}
