package frame

import (
	"fmt"
	"math"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/containers"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// The engine assumes the GPU always completes; callers needing bounded waits
// poll SlotFree instead.
const waitForever = math.MaxUint64

// DeferredCommand is work handed off from any goroutine, drained in FIFO
// order on the render thread between frame boundaries.
type DeferredCommand func() error

type slot struct {
	index uint32
	fence dispatch.FenceHandle
	// Timeline value whose completion frees this slot for re-recording.
	waitValue uint64
}

// Scheduler owns the frames-in-flight ring and the begin/end-frame protocol.
// It runs in one of two modes, fixed at construction: per-slot fences, or a
// single timeline semaphore when the tier provides one.
type Scheduler struct {
	ops dispatch.OperationSet

	framesInFlight uint32
	batchSize      uint32

	current      uint32
	frameCounter uint64
	recording    bool

	timelineMode  bool
	timeline      dispatch.TimelineHandle
	timelineValue uint64

	slots []slot

	deferred *containers.HandoffQueue[DeferredCommand]

	// Hooks invoked at the top of every frame with the slot about to be
	// recorded; the state cache and GPU-driven rings register here.
	onBegin []func(slotIndex uint32)
}

// NewScheduler creates the ring. Fences are created signaled so the first
// pass over the ring never blocks.
func NewScheduler(ops dispatch.OperationSet, settings *config.Settings) (*Scheduler, error) {
	s := &Scheduler{
		ops:            ops,
		framesInFlight: settings.FramesInFlight,
		batchSize:      settings.CommandBatchSize,
		timelineMode:   ops.Supports(dispatch.OpTimelineSemaphore),
		slots:          make([]slot, settings.FramesInFlight),
		deferred:       containers.NewHandoffQueue[DeferredCommand](int(settings.CommandBatchSize) * 4),
	}

	if s.timelineMode {
		timeline, err := ops.CreateTimelineSemaphore(0)
		if err != nil {
			return nil, fmt.Errorf("failed to create frame timeline semaphore: %w", err)
		}
		s.timeline = timeline
		core.LogInfo("frame scheduler: timeline mode, %d frames in flight", s.framesInFlight)
	} else {
		for i := range s.slots {
			fence, err := ops.CreateFence(true)
			if err != nil {
				return nil, fmt.Errorf("failed to create in-flight fence %d: %w", i, err)
			}
			s.slots[i].fence = fence
		}
		core.LogInfo("frame scheduler: fence mode, %d frames in flight", s.framesInFlight)
	}
	for i := range s.slots {
		s.slots[i].index = uint32(i)
	}
	return s, nil
}

// OnBeginFrame registers a hook fired after the slot wait and before command
// recording starts. Registration order is invocation order.
func (s *Scheduler) OnBeginFrame(hook func(slotIndex uint32)) {
	s.onBegin = append(s.onBegin, hook)
}

// Defer enqueues a command for the render thread. Safe from any goroutine.
func (s *Scheduler) Defer(cmd DeferredCommand) error {
	return s.deferred.Enqueue(cmd)
}

// BeginFrame waits until the slot about to be reused is free, fires the
// begin hooks, opens command recording, and drains queued deferred commands
// up to the configured batch size. The slot wait is the only routine blocking
// point in steady state.
func (s *Scheduler) BeginFrame() error {
	if s.recording {
		core.LogWarn("BeginFrame called while frame %d is already recording", s.frameCounter)
		return nil
	}

	if s.timelineMode {
		// Frame k reuses the slot of frame k-framesInFlight, which signaled
		// value k-framesInFlight+1. The first pass over the ring has nothing
		// to wait on.
		if s.frameCounter >= uint64(s.framesInFlight) {
			wait := s.frameCounter - uint64(s.framesInFlight) + 1
			if err := s.ops.WaitTimeline(s.timeline, wait, waitForever); err != nil {
				return fmt.Errorf("timeline wait for frame %d (value %d) failed: %w", s.frameCounter, wait, err)
			}
		}
	} else {
		sl := &s.slots[s.current]
		if err := s.ops.WaitFence(sl.fence, waitForever); err != nil {
			return fmt.Errorf("fence wait for slot %d failed: %w", s.current, err)
		}
		if err := s.ops.ResetFence(sl.fence); err != nil {
			return fmt.Errorf("fence reset for slot %d failed: %w", s.current, err)
		}
	}

	for _, hook := range s.onBegin {
		hook(s.current)
	}

	if err := s.ops.BeginCommands(s.current); err != nil {
		return err
	}
	s.recording = true

	s.drainDeferred(s.batchSize)
	return nil
}

// EndFrame flushes remaining deferred commands, closes and submits the
// command buffer, and advances the ring. Calling it without a prior
// BeginFrame is a logged no-op so shutdown races stay harmless.
func (s *Scheduler) EndFrame() error {
	if !s.recording {
		core.LogWarn("EndFrame called with no frame in progress")
		return nil
	}

	s.drainDeferred(uint32(s.deferred.Len()))

	if err := s.ops.EndCommands(s.current); err != nil {
		return err
	}

	var info dispatch.SubmitInfo
	if s.timelineMode {
		s.timelineValue++
		info.Timeline = s.timeline
		info.SignalValue = s.timelineValue
	} else {
		info.Fence = s.slots[s.current].fence
	}
	if err := s.ops.Submit(s.current, info); err != nil {
		return err
	}
	if s.timelineMode {
		s.slots[s.current].waitValue = s.timelineValue
	}

	s.current = (s.current + 1) % s.framesInFlight
	s.frameCounter++
	s.recording = false
	return nil
}

func (s *Scheduler) drainDeferred(limit uint32) {
	for i := uint32(0); i < limit; i++ {
		cmd, ok := s.deferred.TryDequeue()
		if !ok {
			return
		}
		if err := cmd(); err != nil {
			core.LogError("deferred command failed: %s", err.Error())
		}
	}
}

// SlotFree reports without blocking whether the given slot's GPU work has
// completed.
func (s *Scheduler) SlotFree(index uint32) (bool, error) {
	if index >= s.framesInFlight {
		return false, fmt.Errorf("frame slot %d out of range (frames in flight %d)", index, s.framesInFlight)
	}
	if s.timelineMode {
		if s.slots[index].waitValue == 0 {
			return true, nil
		}
		value, err := s.ops.TimelineValue(s.timeline)
		if err != nil {
			return false, err
		}
		return value >= s.slots[index].waitValue, nil
	}
	return s.ops.FenceStatus(s.slots[index].fence)
}

// Finish blocks until all GPU work across all frames completes. Shutdown and
// diagnostics only, never the steady-state path.
func (s *Scheduler) Finish() error {
	return s.ops.DeviceWaitIdle()
}

// Shutdown destroys the sync primitives. The caller must Finish first.
func (s *Scheduler) Shutdown() {
	if s.timelineMode {
		if err := s.ops.DestroyTimelineSemaphore(s.timeline); err != nil {
			core.LogError("failed to destroy frame timeline: %s", err.Error())
		}
		return
	}
	for i := range s.slots {
		if err := s.ops.DestroyFence(s.slots[i].fence); err != nil {
			core.LogError("failed to destroy in-flight fence %d: %s", i, err.Error())
		}
	}
}

func (s *Scheduler) CurrentFrameIndex() uint32 {
	return s.current
}

func (s *Scheduler) FrameCount() uint64 {
	return s.frameCounter
}

func (s *Scheduler) Recording() bool {
	return s.recording
}

func (s *Scheduler) FramesInFlight() uint32 {
	return s.framesInFlight
}

func (s *Scheduler) TimelineMode() bool {
	return s.timelineMode
}
