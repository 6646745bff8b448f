package gpudriven_test

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/frame"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/gpudriven"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/null"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/state"
)

type harness struct {
	driver *null.Driver
	ops    dispatch.OperationSet
	sched  *frame.Scheduler
	stats  *core.FrameStats
	sys    *gpudriven.System
}

func newHarness(t *testing.T, mutate func(*config.Settings)) *harness {
	t.Helper()
	d := null.New()
	settings := config.Default()
	settings.FramesInFlight = 2
	settings.MaxIndirectDraws = 8
	settings.MaxInstances = 16
	if mutate != nil {
		mutate(settings)
	}
	ops, err := dispatch.Select(d.Table(), null.Snapshot(settings.Ceiling()), settings)
	require.NoError(t, err)
	sched, err := frame.NewScheduler(ops, settings)
	require.NoError(t, err)
	stats := core.NewFrameStats()
	sys, err := gpudriven.NewSystem(ops, state.NewCache(ops), sched, settings, stats)
	require.NoError(t, err)
	return &harness{driver: d, ops: ops, sched: sched, stats: stats, sys: sys}
}

func (h *harness) beginFrame(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sched.BeginFrame())
}

func (h *harness) endFrame(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sched.EndFrame())
}

func TestBatchRequiresOpenFrame(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.sys.BeginDrawBatch()
	assert.Error(t, err)
}

func TestIndirectRecordByteLayout(t *testing.T) {
	h := newHarness(t, nil)
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)

	first, err := b.AddDraw(36, 0, 0)
	require.NoError(t, err)
	second, err := b.AddDraw(12, 6, -4)
	require.NoError(t, err)
	require.NoError(t, b.SetDrawInstanceCount(second, 5, 2))
	require.NoError(t, b.Finalize())

	assert.Equal(t, uint32(0), first)
	assert.Equal(t, uint32(1), second)

	indirect, ok := h.driver.FindBuffer("indirect-ring-0")
	require.True(t, ok)
	raw, err := h.driver.BufferBytes(indirect)
	require.NoError(t, err)

	// First record: untouched defaults draw one instance from zero.
	assert.Equal(t, uint32(36), binary.LittleEndian.Uint32(raw[0:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw[4:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(raw[8:]))

	// Second record at a 20-byte stride, patched by SetDrawInstanceCount.
	rec := raw[gpudriven.IndirectCommandSize:]
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(rec[0:]))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(rec[4:]))
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(rec[8:]))
	assert.Equal(t, int32(-4), int32(binary.LittleEndian.Uint32(rec[12:])))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(rec[16:]))

	// Finalize wrote the draw count.
	count, ok := h.driver.FindBuffer("draw-count-0")
	require.True(t, ok)
	raw, err = h.driver.BufferBytes(count)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw))

	h.endFrame(t)
}

func TestInstanceRecordByteLayout(t *testing.T) {
	h := newHarness(t, nil)
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)

	var transform [16]float32
	for i := range transform {
		transform[i] = float32(i)
	}
	idx0, err := b.AddInstance(transform, [4]float32{1, 2, 3, 4})
	require.NoError(t, err)
	idx1, err := b.AddInstance(transform, [4]float32{9, 9, 9, 9})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), idx0)
	assert.Equal(t, uint32(1), idx1)

	instances, ok := h.driver.FindBuffer("instance-ring-0")
	require.True(t, ok)
	raw, err := h.driver.BufferBytes(instances)
	require.NoError(t, err)

	f32 := func(off int) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
	}
	// Transform occupies the first 64 bytes.
	assert.Equal(t, float32(0), f32(0))
	assert.Equal(t, float32(15), f32(60))
	// Payload follows at byte 64.
	assert.Equal(t, float32(1), f32(64))
	assert.Equal(t, float32(4), f32(76))
	// Second record starts at the 80-byte stride.
	assert.Equal(t, float32(0), f32(gpudriven.InstanceStride))
	assert.Equal(t, float32(9), f32(gpudriven.InstanceStride+64))
}

func TestBatchCapacityLimits(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) {
		s.MaxIndirectDraws = 2
		s.MaxInstances = 2
	})
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = b.AddDraw(3, 0, 0)
		require.NoError(t, err)
		_, err = b.AddInstance([16]float32{}, [4]float32{})
		require.NoError(t, err)
	}
	_, err = b.AddDraw(3, 0, 0)
	assert.True(t, core.IsCapacityExceeded(err))
	_, err = b.AddInstance([16]float32{}, [4]float32{})
	assert.True(t, core.IsCapacityExceeded(err))
}

func TestFinalizedBatchIsSealed(t *testing.T) {
	h := newHarness(t, nil)
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)
	_, err = b.AddDraw(3, 0, 0)
	require.NoError(t, err)
	require.NoError(t, b.Finalize())

	_, err = b.AddDraw(3, 0, 0)
	assert.Error(t, err)
	_, err = b.AddInstance([16]float32{}, [4]float32{})
	assert.Error(t, err)
	assert.Error(t, b.SetDrawInstanceCount(0, 1, 0))
	assert.Error(t, b.Finalize())
	assert.True(t, b.Finalized())
}

func TestSubmitPrefersIndirectCount(t *testing.T) {
	h := newHarness(t, nil)
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)
	_, err = b.AddDraw(3, 0, 0)
	require.NoError(t, err)
	require.NoError(t, b.Finalize())
	require.NoError(t, h.sys.SubmitDrawBatch(b))

	assert.Equal(t, 1, h.driver.Calls["DrawIndexedIndirectCount"])
	assert.Zero(t, h.driver.Calls["DrawIndexedIndirect"])
}

func TestSubmitFallsBackToPlainMultiDraw(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) {
		s.DisabledFeatures = []string{"indirect-with-count"}
	})
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)
	_, err = b.AddDraw(3, 0, 0)
	require.NoError(t, err)
	_, err = b.AddDraw(3, 3, 0)
	require.NoError(t, err)
	require.NoError(t, b.Finalize())
	require.NoError(t, h.sys.SubmitDrawBatch(b))

	assert.Zero(t, h.driver.Calls["DrawIndexedIndirectCount"])
	require.Len(t, h.driver.Draws, 1)
	assert.Equal(t, uint32(2), h.driver.Draws[0].DrawCount)
}

func TestSubmitRejectsUnfinalizedBatch(t *testing.T) {
	h := newHarness(t, nil)
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)
	_, err = b.AddDraw(3, 0, 0)
	require.NoError(t, err)
	assert.Error(t, h.sys.SubmitDrawBatch(b))
}

func TestSubmitEmptyBatchIsANoOp(t *testing.T) {
	h := newHarness(t, nil)
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)
	require.NoError(t, b.Finalize())
	require.NoError(t, h.sys.SubmitDrawBatch(b))
	assert.Empty(t, h.driver.Draws)
}

func TestBatchDoesNotOutliveItsFrameSlot(t *testing.T) {
	h := newHarness(t, nil)
	h.beginFrame(t)

	b, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)
	_, err = b.AddDraw(3, 0, 0)
	require.NoError(t, err)
	require.NoError(t, b.Finalize())
	h.endFrame(t)

	h.beginFrame(t)
	assert.Error(t, h.sys.SubmitDrawBatch(b))
	h.endFrame(t)
}

func TestUnfinalizedBatchBlocksTheNextOne(t *testing.T) {
	h := newHarness(t, nil)
	h.beginFrame(t)

	_, err := h.sys.BeginDrawBatch()
	require.NoError(t, err)
	_, err = h.sys.BeginDrawBatch()
	assert.Error(t, err)
}
