package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.go", "package a\n")
	writeFile(t, root, "src/sub/b.rs", "fn b() {}\n")
	writeFile(t, root, "src/readme.md", "# readme\n")
	writeFile(t, root, "tests/t.go", "package t\n")
	writeFile(t, root, "vendor/dep/d.go", "package d\n")
	writeFile(t, root, ".git/hooks/x.go", "package x\n")
	writeFile(t, root, "coverage/cobertura.xml", "<coverage/>")
	writeFile(t, root, "target/merged/cobertura.xml", "<coverage/>")

	s := NewScanner(DefaultScannerConfig())
	inv, err := s.Discover(context.Background(), root)
	require.NoError(t, err)

	canonical, err := Canonicalize(root)
	require.NoError(t, err)
	assert.Equal(t, canonical, inv.Root)

	assert.Equal(t, []string{
		filepath.Join(canonical, "src", "a.go"),
		filepath.Join(canonical, "src", "sub", "b.rs"),
		filepath.Join(canonical, "tests", "t.go"),
	}, inv.Sources)
	assert.Equal(t, []string{
		filepath.Join(canonical, "coverage", "cobertura.xml"),
		filepath.Join(canonical, "target", "merged", "cobertura.xml"),
	}, inv.Reports)
	assert.Contains(t, inv.Dirs, filepath.Join(canonical, "src", "sub"))
	assert.NotContains(t, inv.Dirs, filepath.Join(canonical, "vendor"))
}

func TestDiscover_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.go", "package a\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(DefaultScannerConfig()).Discover(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := NewScanner(DefaultScannerConfig()).Discover(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestIsIgnoredRel(t *testing.T) {
	patterns := []string{"target", "gen/*", "*.pb.go", "docs/"}
	tests := []struct {
		rel  string
		want bool
	}{
		{"target", true},
		{"target/debug/x.rs", true},
		{"src/target", true},
		{"gen/x.go", true},
		{"gen/deep/x.go", true},
		{"src/api.pb.go", true},
		{"docs/guide.go", true},
		{"src/main.go", false},
		{"generated/x.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got := isIgnoredRel(tt.rel, filepath.Base(tt.rel), patterns)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsUnder(t *testing.T) {
	root := filepath.FromSlash("/p/src")
	assert.True(t, IsUnder(filepath.FromSlash("/p/src/a.go"), root))
	assert.True(t, IsUnder(root, root))
	assert.False(t, IsUnder(filepath.FromSlash("/p/srcx/a.go"), root))
	assert.False(t, IsUnder(filepath.FromSlash("/p/a.go"), root))
}

func TestIsWatched(t *testing.T) {
	s := NewScanner(DefaultScannerConfig())
	root := filepath.FromSlash("/p")
	assert.True(t, s.IsWatched(root, filepath.FromSlash("/p/src/a.go")))
	assert.True(t, s.IsWatched(root, filepath.FromSlash("/p/out/cobertura.xml")))
	assert.False(t, s.IsWatched(root, filepath.FromSlash("/p/src/a.txt")))
	assert.False(t, s.IsWatched(root, filepath.FromSlash("/p/vendor/a.go")))
	assert.False(t, s.IsWatched(root, filepath.FromSlash("/elsewhere/a.go")))
}

func TestExists(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.go", "")
	assert.True(t, Exists(path))
	assert.False(t, Exists(filepath.Join(root, "b.go")))
}

func TestIsWatchedDir(t *testing.T) {
	s := NewScanner(DefaultScannerConfig())
	root := filepath.FromSlash("/p")
	assert.True(t, s.IsWatchedDir(root, root))
	assert.True(t, s.IsWatchedDir(root, filepath.FromSlash("/p/src/inner")))
	assert.True(t, s.IsWatchedDir(root, filepath.FromSlash("/p/.github/workflows")))
	assert.False(t, s.IsWatchedDir(root, filepath.FromSlash("/p/.git/objects")))
	assert.False(t, s.IsWatchedDir(root, filepath.FromSlash("/p/web/node_modules")))
	assert.False(t, s.IsWatchedDir(root, filepath.FromSlash("/other")))
}
