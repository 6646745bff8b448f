package gpudriven

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/frame"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/state"
)

// InstanceVertexBinding is the vertex-buffer stream the instance ring is
// bound to at submission time; binding 0 stays with the caller's geometry.
const InstanceVertexBinding uint32 = 1

type slotBuffers struct {
	indirect    dispatch.BufferHandle
	indirectMem arena
	count       dispatch.BufferHandle
	countMem    arena
	instance    dispatch.BufferHandle
	instanceMem arena
}

// System owns the per-frame-slot indirect/count/instance rings, the bindless
// registry and the optional GPU culling pass. Built on top of the operation
// set, state cache and frame scheduler.
type System struct {
	ops   dispatch.OperationSet
	cache *state.Cache
	sched *frame.Scheduler
	stats *core.FrameStats

	maxDraws     uint32
	maxInstances uint32

	// Chosen once by capability, never per draw.
	useIndirectCount    bool
	useEnhancedBarriers bool

	slots    []slotBuffers
	registry *BindlessRegistry
	cull     *CullPass

	active *DrawBatch
}

// NewSystem allocates one persistently mapped ring set per frame slot.
func NewSystem(ops dispatch.OperationSet, cache *state.Cache, sched *frame.Scheduler,
	settings *config.Settings, stats *core.FrameStats) (*System, error) {

	s := &System{
		ops:                 ops,
		cache:               cache,
		sched:               sched,
		stats:               stats,
		maxDraws:            settings.MaxIndirectDraws,
		maxInstances:        settings.MaxInstances,
		useIndirectCount:    ops.Supports(dispatch.OpDrawIndexedIndirectCount),
		useEnhancedBarriers: ops.Supports(dispatch.OpEnhancedBarriers),
		slots:               make([]slotBuffers, sched.FramesInFlight()),
		registry:            newBindlessRegistry(ops, sched, settings),
	}

	for i := range s.slots {
		if err := s.allocSlot(uint32(i)); err != nil {
			return nil, err
		}
	}

	// A new frame slot means the previous batch recorded into it is gone.
	sched.OnBeginFrame(func(slotIndex uint32) {
		s.active = nil
	})

	core.LogInfo("gpu-driven rings ready: %d slots, %d draws / %d instances each (indirect-count=%v)",
		len(s.slots), s.maxDraws, s.maxInstances, s.useIndirectCount)
	return s, nil
}

func (s *System) allocSlot(index uint32) error {
	tag := uuid.New().String()[:8]
	sb := &s.slots[index]

	var err error
	sb.indirect, err = s.ops.GenBuffer(uint64(s.maxDraws)*IndirectCommandSize,
		dispatch.BufferUsageIndirect|dispatch.BufferUsageStorage|dispatch.BufferUsageHostVisible,
		fmt.Sprintf("indirect-ring-%d-%s", index, tag))
	if err != nil {
		return fmt.Errorf("failed to create indirect ring for slot %d: %w", index, err)
	}
	mem, err := s.ops.Map(sb.indirect)
	if err != nil {
		return err
	}
	sb.indirectMem = arena{mem}

	sb.count, err = s.ops.GenBuffer(4,
		dispatch.BufferUsageIndirect|dispatch.BufferUsageStorage|dispatch.BufferUsageHostVisible,
		fmt.Sprintf("draw-count-%d-%s", index, tag))
	if err != nil {
		return fmt.Errorf("failed to create draw-count buffer for slot %d: %w", index, err)
	}
	mem, err = s.ops.Map(sb.count)
	if err != nil {
		return err
	}
	sb.countMem = arena{mem}

	sb.instance, err = s.ops.GenBuffer(uint64(s.maxInstances)*InstanceStride,
		dispatch.BufferUsageVertex|dispatch.BufferUsageStorage|dispatch.BufferUsageHostVisible,
		fmt.Sprintf("instance-ring-%d-%s", index, tag))
	if err != nil {
		return fmt.Errorf("failed to create instance ring for slot %d: %w", index, err)
	}
	mem, err = s.ops.Map(sb.instance)
	if err != nil {
		return err
	}
	sb.instanceMem = arena{mem}
	return nil
}

// BeginDrawBatch opens this frame's batch over the current slot's rings.
func (s *System) BeginDrawBatch() (*DrawBatch, error) {
	if !s.sched.Recording() {
		return nil, fmt.Errorf("BeginDrawBatch called with no frame in progress")
	}
	if s.active != nil && !s.active.finalized {
		return nil, fmt.Errorf("previous draw batch was never finalized")
	}
	slot := s.sched.CurrentFrameIndex()
	sb := &s.slots[slot]
	s.active = &DrawBatch{
		sys:       s,
		slot:      slot,
		indirect:  sb.indirectMem,
		count:     sb.countMem,
		instances: sb.instanceMem,
	}
	return s.active, nil
}

// SubmitDrawBatch binds the instance ring as an extra vertex stream and
// issues the batch as a single indirect call. Indirect-count is preferred
// when the tier has it; otherwise the finalized draw count bounds a plain
// multi-draw.
//
// In indirect-count mode the draw-call statistics are incremented by the
// CPU-side count before the GPU resolves the real one; the numbers are an
// upper bound, not an exact count.
func (s *System) SubmitDrawBatch(b *DrawBatch) error {
	if b == nil || b.sys != s {
		return fmt.Errorf("submit of a batch that does not belong to this system")
	}
	if !b.finalized {
		return fmt.Errorf("submit of an unfinalized draw batch")
	}
	if b.slot != s.sched.CurrentFrameIndex() {
		return fmt.Errorf("submit of a batch recorded for frame slot %d during slot %d",
			b.slot, s.sched.CurrentFrameIndex())
	}
	if b.drawCount == 0 {
		return nil
	}

	sb := &s.slots[b.slot]
	if err := s.cache.BindVertexBuffer(InstanceVertexBinding, sb.instance, 0); err != nil {
		return err
	}
	if err := s.cache.FlushDirtyState(); err != nil {
		return err
	}

	if s.useIndirectCount {
		if err := s.ops.DrawIndexedIndirectCount(sb.indirect, 0, sb.count, 0,
			b.drawCount, IndirectCommandSize); err != nil {
			return err
		}
	} else {
		if err := s.ops.DrawIndexedIndirect(sb.indirect, 0, b.drawCount,
			IndirectCommandSize); err != nil {
			return err
		}
	}
	s.stats.DrawCalls++
	s.stats.IndirectDraws += uint64(b.drawCount)
	s.stats.Instances += uint64(b.instanceCount)
	return nil
}

// Registry exposes the bindless resource registry.
func (s *System) Registry() *BindlessRegistry {
	return s.registry
}

// barrier picks the enhanced or legacy form once per system lifetime.
func (s *System) barrier(src, dst dispatch.StageMask, srcAccess, dstAccess dispatch.AccessMask) error {
	if s.useEnhancedBarriers {
		return s.ops.PipelineBarrier2(src, dst, srcAccess, dstAccess)
	}
	return s.ops.PipelineBarrier(src, dst, srcAccess, dstAccess)
}

// Shutdown releases the rings and the culling pass. Callers must have waited
// for device idle.
func (s *System) Shutdown() {
	if s.cull != nil {
		s.cull.destroy(s.ops)
		s.cull = nil
	}
	for i := range s.slots {
		sb := &s.slots[i]
		for _, h := range []dispatch.BufferHandle{sb.indirect, sb.count, sb.instance} {
			if err := s.ops.DeleteBuffer(h); err != nil {
				core.LogError("failed to delete gpu-driven ring buffer: %s", err.Error())
			}
		}
	}
	s.slots = nil
}
