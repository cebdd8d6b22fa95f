package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "producers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest_Valid(t *testing.T) {
	path := writeManifest(t, `
producers:
  - name: clock
    category: widget
    priority: background
    anchor: center
  - name: tray
    category: system
    priority: normal
    anchor: right
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Producers, 2)
	assert.Equal(t, "clock", m.Producers[0].Name)
	assert.Equal(t, AnchorRight, m.Producers[1].Anchor)
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := LoadManifest("/nonexistent/producers.yaml")
	assert.Error(t, err)
}

func TestLoadManifest_RejectsBadPriority(t *testing.T) {
	path := writeManifest(t, `
producers:
  - name: clock
    category: widget
    priority: urgent
    anchor: center
`)

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clock")
}

func TestLoadManifest_RejectsDuplicateNames(t *testing.T) {
	path := writeManifest(t, `
producers:
  - name: clock
    category: widget
    priority: normal
    anchor: center
  - name: clock
    category: widget
    priority: high
    anchor: left
`)

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestManifestApply_RegistersInFileOrder(t *testing.T) {
	path := writeManifest(t, `
producers:
  - name: clock
    category: widget
    priority: normal
    anchor: center
  - name: stats
    category: widget
    priority: normal
    anchor: center
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	r := New()
	require.NoError(t, m.Apply(r))

	assert.Equal(t, []string{"clock", "stats"}, r.Producers())

	// Same priority: the first manifest entry wins the tie.
	w := r.Resolve(AnchorCenter)
	require.NotNil(t, w)
	assert.Equal(t, "clock", w.Producer)
}

func TestManifestApply_DisabledEntryReservesPosition(t *testing.T) {
	path := writeManifest(t, `
producers:
  - name: clock
    category: widget
    priority: normal
    anchor: center
    enabled: false
  - name: stats
    category: widget
    priority: normal
    anchor: center
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	r := New()
	require.NoError(t, m.Apply(r))

	// clock is registered but submitted nothing.
	assert.True(t, r.Registered("clock"))
	w := r.Resolve(AnchorCenter)
	require.NotNil(t, w)
	assert.Equal(t, "stats", w.Producer)

	// If clock submits later it still holds the earlier tie-break slot.
	require.NoError(t, r.Submit("clock", AnchorCenter, Request{Priority: PriorityNormal}))
	w = r.Resolve(AnchorCenter)
	require.NotNil(t, w)
	assert.Equal(t, "clock", w.Producer)
}

func TestManifestApply_Reapply(t *testing.T) {
	path := writeManifest(t, `
producers:
  - name: clock
    category: widget
    priority: normal
    anchor: center
  - name: stats
    category: widget
    priority: high
    anchor: center
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	r := New()
	require.NoError(t, m.Apply(r))

	// An edited manifest applies over the same registry.
	path2 := writeManifest(t, `
producers:
  - name: clock
    category: widget
    priority: normal
    anchor: center
  - name: stats
    category: widget
    priority: high
    anchor: center
    enabled: false
`)
	m2, err := LoadManifest(path2)
	require.NoError(t, err)
	require.NoError(t, m2.Apply(r))

	// stats was disabled by the edit; its request is withdrawn.
	assert.Equal(t, []string{"clock", "stats"}, r.Producers())
	w := r.Resolve(AnchorCenter)
	require.NotNil(t, w)
	assert.Equal(t, "clock", w.Producer)
}
