package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smallbiznis/sparkload/internal/config"
	"github.com/smallbiznis/sparkload/internal/source/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newTestResolver(t *testing.T, pattern string) *Resolver {
	t.Helper()
	pipeline := config.DefaultPipelineConfig()
	pipeline.FilePattern = pattern
	r, err := NewResolver(Params{Pipeline: pipeline, Log: zap.NewNop()})
	require.NoError(t, err)
	return r
}

func TestDiscoverLocalRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "A", "B", "C", "TRABCEI128F424C983.json"), "{}")
	writeFile(t, filepath.Join(root, "A", "A", "TRAAAAW128F429D538.json"), "{}")
	writeFile(t, filepath.Join(root, "A", "notes.txt"), "skip")
	writeFile(t, filepath.Join(root, ".ipynb_checkpoints", "x-checkpoint.json"), "{}")

	r := newTestResolver(t, "*.json")
	src, keys, err := r.Discover(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean(root), src.Root())
	assert.Equal(t, []string{
		".ipynb_checkpoints/x-checkpoint.json",
		"A/A/TRAAAAW128F429D538.json",
		"A/B/C/TRABCEI128F424C983.json",
	}, keys)
}

func TestResolveMissingDirectory(t *testing.T) {
	r := newTestResolver(t, "*.json")
	_, err := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, domain.ErrInvalidRoot)
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher("2018-11-*-events.json")
	require.NoError(t, err)

	assert.True(t, m.Match("log_data/2018/11/2018-11-01-events.json"))
	assert.False(t, m.Match("log_data/2018/11/2018-12-01-events.json"))
	assert.Equal(t, []string{"a/2018-11-30-events.json"}, m.Filter([]string{"a/2018-11-30-events.json", "b.json"}))

	_, err = NewMatcher("[")
	assert.Error(t, err)
}
