package frame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/frame"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/null"
)

func newScheduler(t *testing.T, mutate func(*config.Settings)) (*frame.Scheduler, *null.Driver) {
	t.Helper()
	d := null.New()
	settings := config.Default()
	settings.FramesInFlight = 3
	if mutate != nil {
		mutate(settings)
	}
	ops, err := dispatch.Select(d.Table(), null.Snapshot(settings.Ceiling()), settings)
	require.NoError(t, err)
	s, err := frame.NewScheduler(ops, settings)
	require.NoError(t, err)
	return s, d
}

func fenceMode(s *config.Settings) {
	s.DisabledFeatures = append(s.DisabledFeatures, "timeline-semaphores")
}

func runFrame(t *testing.T, s *frame.Scheduler) {
	t.Helper()
	require.NoError(t, s.BeginFrame())
	require.NoError(t, s.EndFrame())
}

func TestSchedulerPicksTimelineModeWhenAvailable(t *testing.T) {
	s, _ := newScheduler(t, nil)
	assert.True(t, s.TimelineMode())

	s, _ = newScheduler(t, fenceMode)
	assert.False(t, s.TimelineMode())

	s, _ = newScheduler(t, func(c *config.Settings) { c.VersionCeiling = "1.1" })
	assert.False(t, s.TimelineMode())
}

func TestSlotIndicesRotateThroughRing(t *testing.T) {
	for _, mode := range []struct {
		name   string
		mutate func(*config.Settings)
	}{
		{"timeline", nil},
		{"fence", fenceMode},
	} {
		t.Run(mode.name, func(t *testing.T) {
			s, _ := newScheduler(t, mode.mutate)
			want := []uint32{0, 1, 2, 0, 1}
			for i, slot := range want {
				require.NoError(t, s.BeginFrame(), "frame %d", i)
				assert.Equal(t, slot, s.CurrentFrameIndex(), "frame %d", i)
				require.NoError(t, s.EndFrame(), "frame %d", i)
			}
			assert.Equal(t, uint64(5), s.FrameCount())
		})
	}
}

func TestFirstRingPassNeverWaitsOnTimeline(t *testing.T) {
	s, d := newScheduler(t, nil)
	for i := 0; i < 3; i++ {
		runFrame(t, s)
	}
	assert.Zero(t, d.Calls["WaitTimeline"])

	runFrame(t, s)
	assert.Equal(t, 1, d.Calls["WaitTimeline"])
}

func TestTimelineWaitValuesLagByRingDepth(t *testing.T) {
	s, d := newScheduler(t, nil)

	// Ring depth 3: frame N+1 begins by waiting for the value frame N-2
	// signaled, so the waited values climb one per frame from frame 4 on.
	for i := 0; i < 7; i++ {
		runFrame(t, s)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, d.TimelineWaits)
}

func TestFenceModeWaitsAndResetsEveryFrame(t *testing.T) {
	s, d := newScheduler(t, fenceMode)
	assert.Equal(t, 3, d.Calls["CreateFence"])

	runFrame(t, s)
	assert.Equal(t, 1, d.Calls["WaitFence"])
	assert.Equal(t, 1, d.Calls["ResetFence"])
	assert.Equal(t, 1, d.Calls["Submit"])

	for i := 0; i < 5; i++ {
		runFrame(t, s)
	}
	assert.Equal(t, 6, d.Calls["WaitFence"])
	assert.Equal(t, 6, d.Calls["Submit"])
}

func TestEndFrameWithoutBeginIsANoOp(t *testing.T) {
	s, d := newScheduler(t, nil)
	require.NoError(t, s.EndFrame())
	assert.Zero(t, d.Calls["Submit"])
	assert.Zero(t, s.FrameCount())
}

func TestDoubleBeginFrameIsANoOp(t *testing.T) {
	s, d := newScheduler(t, nil)
	require.NoError(t, s.BeginFrame())
	require.NoError(t, s.BeginFrame())
	assert.Equal(t, 1, d.Calls["BeginCommands"])
	require.NoError(t, s.EndFrame())
}

func TestDeferredCommandsDrainAtFrameBoundaries(t *testing.T) {
	s, _ := newScheduler(t, func(c *config.Settings) { c.CommandBatchSize = 2 })

	ran := 0
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Defer(func() error { ran++; return nil }))
	}

	// Begin drains at most the batch size, end drains the rest.
	require.NoError(t, s.BeginFrame())
	assert.Equal(t, 2, ran)
	require.NoError(t, s.EndFrame())
	assert.Equal(t, 5, ran)
}

func TestDeferredCommandsSurviveUntilNextFrameWhenQueuedMidFrame(t *testing.T) {
	s, _ := newScheduler(t, nil)
	runFrame(t, s)

	ran := false
	require.NoError(t, s.Defer(func() error { ran = true; return nil }))
	require.NoError(t, s.BeginFrame())
	assert.True(t, ran)
	require.NoError(t, s.EndFrame())
}

func TestDeferredCommandErrorDoesNotStopDrain(t *testing.T) {
	s, _ := newScheduler(t, nil)

	ran := false
	require.NoError(t, s.Defer(func() error { return assert.AnError }))
	require.NoError(t, s.Defer(func() error { ran = true; return nil }))
	runFrame(t, s)
	assert.True(t, ran)
}

func TestSlotFreeTracksCompletion(t *testing.T) {
	s, _ := newScheduler(t, nil)

	// Nothing submitted yet: every slot is free.
	for i := uint32(0); i < s.FramesInFlight(); i++ {
		free, err := s.SlotFree(i)
		require.NoError(t, err)
		assert.True(t, free)
	}

	// The null driver completes submissions instantly, so slots stay free.
	runFrame(t, s)
	free, err := s.SlotFree(0)
	require.NoError(t, err)
	assert.True(t, free)

	_, err = s.SlotFree(s.FramesInFlight())
	assert.Error(t, err)
}

func TestBeginFrameHooksSeeTheSlotBeingOpened(t *testing.T) {
	s, _ := newScheduler(t, nil)
	var seen []uint32
	s.OnBeginFrame(func(slotIndex uint32) { seen = append(seen, slotIndex) })

	for i := 0; i < 4; i++ {
		runFrame(t, s)
	}
	assert.Equal(t, []uint32{0, 1, 2, 0}, seen)
}

func TestFinishAndShutdownReleaseSyncPrimitives(t *testing.T) {
	s, d := newScheduler(t, nil)
	runFrame(t, s)
	require.NoError(t, s.Finish())
	assert.Equal(t, 1, d.Calls["DeviceWaitIdle"])
	s.Shutdown()
	assert.Equal(t, 1, d.Calls["DestroyTimelineSemaphore"])

	s, d = newScheduler(t, fenceMode)
	require.NoError(t, s.Finish())
	s.Shutdown()
	assert.Equal(t, 3, d.Calls["DestroyFence"])
}
