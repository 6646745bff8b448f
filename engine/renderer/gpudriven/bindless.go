package gpudriven

import (
	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/frame"
)

// NullBindlessIndex is reserved; no resource is ever registered at slot 0.
const NullBindlessIndex uint32 = 0

type bindlessEntry struct {
	view    dispatch.ViewHandle
	sampler dispatch.SamplerHandle
}

type retiredIndex struct {
	index uint32
	// First frame counter at which the index may be handed out again; until
	// then frames in flight may still reference it.
	reuseFrame uint64
}

// BindlessRegistry hands out stable indices into one large descriptor array.
// Indices grow monotonically; unregistered slots are cleared to null
// immediately but recycled only after every frame that could reference them
// has retired.
type BindlessRegistry struct {
	ops   dispatch.OperationSet
	sched *frame.Scheduler

	supported bool
	strict    bool
	capacity  uint32

	next    uint32
	entries map[uint32]bindlessEntry
	retired []retiredIndex
}

func newBindlessRegistry(ops dispatch.OperationSet, sched *frame.Scheduler, settings *config.Settings) *BindlessRegistry {
	return &BindlessRegistry{
		ops:       ops,
		sched:     sched,
		supported: ops.Supports(dispatch.OpBindlessDescriptors),
		strict:    settings.StrictNoEmulation,
		capacity:  settings.DescriptorPoolSize,
		next:      NullBindlessIndex + 1,
		entries:   make(map[uint32]bindlessEntry),
	}
}

// RegisterTexture allocates the next free index, records the pair and writes
// the descriptor slot immediately. Returns the null index when bindless is
// unavailable and the policy is lenient.
func (r *BindlessRegistry) RegisterTexture(view dispatch.ViewHandle, sampler dispatch.SamplerHandle) (uint32, error) {
	if !r.supported {
		if r.strict {
			return NullBindlessIndex, &core.UnsupportedCapabilityError{Op: dispatch.OpBindlessDescriptors.String()}
		}
		return NullBindlessIndex, nil
	}

	index, ok := r.takeRetired()
	if !ok {
		if r.next >= r.capacity {
			return NullBindlessIndex, &core.CapacityExceededError{What: "bindless descriptor", Limit: r.capacity}
		}
		index = r.next
		r.next++
	}

	if err := r.ops.WriteBindlessTexture(index, view, sampler); err != nil {
		return NullBindlessIndex, err
	}
	r.entries[index] = bindlessEntry{view: view, sampler: sampler}
	return index, nil
}

// UnregisterTexture clears the slot to null. The index stays quarantined
// until the frame counter passes every frame that might still be in flight.
func (r *BindlessRegistry) UnregisterTexture(index uint32) error {
	if !r.supported {
		if r.strict {
			return &core.UnsupportedCapabilityError{Op: dispatch.OpBindlessDescriptors.String()}
		}
		return nil
	}
	if _, ok := r.entries[index]; !ok {
		return &core.ResourceNotFoundError{Kind: "bindless texture", Handle: uint64(index)}
	}
	if err := r.ops.WriteBindlessTexture(index, 0, 0); err != nil {
		return err
	}
	delete(r.entries, index)
	r.retired = append(r.retired, retiredIndex{
		index:      index,
		reuseFrame: r.sched.FrameCount() + uint64(r.sched.FramesInFlight()),
	})
	return nil
}

// RegisterBuffer returns the buffer's raw device address for pointer-style
// access. Gated like any optional operation: strict fails, lenient yields 0.
func (r *BindlessRegistry) RegisterBuffer(h dispatch.BufferHandle) (uint64, error) {
	return r.ops.BufferDeviceAddress(h)
}

// takeRetired pops the oldest quarantined index whose reuse frame has passed.
func (r *BindlessRegistry) takeRetired() (uint32, bool) {
	if len(r.retired) == 0 {
		return 0, false
	}
	oldest := r.retired[0]
	if r.sched.FrameCount() < oldest.reuseFrame {
		return 0, false
	}
	r.retired = r.retired[1:]
	return oldest.index, true
}

// Len reports the number of live registrations.
func (r *BindlessRegistry) Len() int {
	return len(r.entries)
}
