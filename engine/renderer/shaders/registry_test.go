package shaders_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/frame"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/null"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/shaders"
)

func newRegistry(t *testing.T) (*shaders.Registry, *frame.Scheduler, *null.Driver) {
	t.Helper()
	d := null.New()
	settings := config.Default()
	settings.FramesInFlight = 2
	ops, err := dispatch.Select(d.Table(), null.Snapshot(settings.Ceiling()), settings)
	require.NoError(t, err)
	sched, err := frame.NewScheduler(ops, settings)
	require.NoError(t, err)
	r, err := shaders.NewRegistry(ops, sched)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, sched, d
}

func byteCode(words ...uint32) []byte {
	all := append([]uint32{0x07230203, 0x00010000, 0, 1, 0}, words...)
	out := make([]byte, len(all)*4)
	for i, w := range all {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func TestRegisterAndGet(t *testing.T) {
	r, _, _ := newRegistry(t)

	m, err := r.Register("pbr.vert", byteCode(), "main")
	require.NoError(t, err)
	assert.NotZero(t, m.Handle)
	assert.Equal(t, "main", m.Entry)
	assert.Empty(t, m.Path)

	got, err := r.Get("pbr.vert")
	require.NoError(t, err)
	assert.Same(t, m, got)

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegisterRejectsInvalidByteCode(t *testing.T) {
	r, _, _ := newRegistry(t)

	// No magic.
	_, err := r.Register("bad", []byte{1, 2, 3, 4, 5, 6, 7, 8}, "main")
	assert.Error(t, err)

	// Not a whole number of words.
	_, err = r.Register("short", byteCode()[:6], "main")
	assert.Error(t, err)

	// Empty.
	_, err = r.Register("empty", nil, "main")
	assert.Error(t, err)
}

func TestReRegisterRetiresOldHandle(t *testing.T) {
	r, _, d := newRegistry(t)

	first, err := r.Register("tonemap", byteCode(1), "main")
	require.NoError(t, err)
	second, err := r.Register("tonemap", byteCode(2), "main")
	require.NoError(t, err)
	assert.NotEqual(t, first.Handle, second.Handle)

	got, err := r.Get("tonemap")
	require.NoError(t, err)
	assert.Equal(t, second.Handle, got.Handle)

	// Retired handles are destroyed at close, not before.
	assert.Zero(t, d.Calls["DestroyShaderModule"])
	require.NoError(t, r.Close())
	assert.Equal(t, 2, d.Calls["DestroyShaderModule"])
}

func TestRegisterFileWatchesForReload(t *testing.T) {
	r, sched, _ := newRegistry(t)

	path := filepath.Join(t.TempDir(), "cull.spv")
	require.NoError(t, os.WriteFile(path, byteCode(1), 0o644))

	m, err := r.RegisterFile("cull", path, "main")
	require.NoError(t, err)
	assert.Equal(t, path, m.Path)

	require.NoError(t, os.WriteFile(path, byteCode(2), 0o644))

	// The watcher hands the reload to the render thread through the deferred
	// queue; pump frames until it lands.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, sched.BeginFrame())
		require.NoError(t, sched.EndFrame())
		got, err := r.Get("cull")
		require.NoError(t, err)
		if got.Handle != m.Handle {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("shader was never hot-reloaded")
}

func TestCloseIsIdempotent(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, err := r.Register("once", byteCode(), "main")
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Get("once")
	assert.Error(t, err)
}
