package gpudriven_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/gpudriven"
)

func (h *harness) makeTexture(t *testing.T) (dispatch.ViewHandle, dispatch.SamplerHandle) {
	t.Helper()
	view, sampler, err := h.ops.GenTexture(4, 4, dispatch.TextureFormatRGBA8, nil)
	require.NoError(t, err)
	return view, sampler
}

func TestBindlessIndicesStartAboveNull(t *testing.T) {
	h := newHarness(t, nil)
	reg := h.sys.Registry()

	view, sampler := h.makeTexture(t)
	idx, err := reg.RegisterTexture(view, sampler)
	require.NoError(t, err)
	assert.Greater(t, idx, gpudriven.NullBindlessIndex)
	assert.Equal(t, 1, reg.Len())

	slot, ok := h.driver.Bindless[idx]
	require.True(t, ok)
	assert.Equal(t, view, slot.View)
	assert.Equal(t, sampler, slot.Sampler)
}

func TestUnregisterClearsSlotToNullImmediately(t *testing.T) {
	h := newHarness(t, nil)
	reg := h.sys.Registry()

	view, sampler := h.makeTexture(t)
	idx, err := reg.RegisterTexture(view, sampler)
	require.NoError(t, err)
	require.NoError(t, reg.UnregisterTexture(idx))

	slot := h.driver.Bindless[idx]
	assert.Zero(t, slot.View)
	assert.Zero(t, slot.Sampler)
	assert.Zero(t, reg.Len())

	assert.Error(t, reg.UnregisterTexture(idx))
}

func TestRetiredIndexQuarantinedForFramesInFlight(t *testing.T) {
	h := newHarness(t, nil) // 2 frames in flight
	reg := h.sys.Registry()

	view, sampler := h.makeTexture(t)
	idx, err := reg.RegisterTexture(view, sampler)
	require.NoError(t, err)
	require.NoError(t, reg.UnregisterTexture(idx))

	// While any in-flight frame could still reference the slot, new
	// registrations must take fresh indices.
	next, err := reg.RegisterTexture(view, sampler)
	require.NoError(t, err)
	assert.NotEqual(t, idx, next)

	for i := 0; i < 2; i++ {
		h.beginFrame(t)
		h.endFrame(t)
	}

	reused, err := reg.RegisterTexture(view, sampler)
	require.NoError(t, err)
	assert.Equal(t, idx, reused)
}

func TestBindlessCapacityExceeded(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) {
		s.DescriptorPoolSize = 2
	})
	reg := h.sys.Registry()
	view, sampler := h.makeTexture(t)

	_, err := reg.RegisterTexture(view, sampler)
	require.NoError(t, err)
	_, err = reg.RegisterTexture(view, sampler)
	assert.True(t, core.IsCapacityExceeded(err))
}

func TestBindlessUnsupportedLenientReturnsNullIndex(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) {
		s.DisabledFeatures = []string{"descriptor-indexing"}
	})
	reg := h.sys.Registry()
	view, sampler := h.makeTexture(t)

	idx, err := reg.RegisterTexture(view, sampler)
	require.NoError(t, err)
	assert.Equal(t, gpudriven.NullBindlessIndex, idx)
	require.NoError(t, reg.UnregisterTexture(idx))
	assert.Zero(t, h.driver.Calls["WriteBindlessTexture"])
}

func TestBindlessUnsupportedStrictFails(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) {
		s.DisabledFeatures = []string{"descriptor-indexing"}
		s.StrictNoEmulation = true
	})
	reg := h.sys.Registry()
	view, sampler := h.makeTexture(t)

	_, err := reg.RegisterTexture(view, sampler)
	assert.True(t, core.IsUnsupported(err))
}

func TestRegisterBufferYieldsDeviceAddress(t *testing.T) {
	h := newHarness(t, nil)
	buf, err := h.ops.GenBuffer(64, dispatch.BufferUsageStorage, "addressed")
	require.NoError(t, err)

	addr, err := h.sys.Registry().RegisterBuffer(buf)
	require.NoError(t, err)
	assert.NotZero(t, addr)
}
