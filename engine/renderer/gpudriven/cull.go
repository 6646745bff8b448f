package gpudriven

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/math"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// Storage-buffer slots the culling shader reads/writes. The uniform block
// carries six frustum planes plus the live instance count.
const (
	cullSlotUniform  uint32 = 0
	cullSlotInstance uint32 = 1
	cullSlotIndirect uint32 = 2
	cullSlotCount    uint32 = 3

	// 6 vec4 planes + uvec4 (instanceCount, pad, pad, pad).
	cullUniformSize = 6*16 + 16
)

// CullPass is the optional GPU visibility pass: a compute dispatch that
// rewrites the draw/instance counts of the current batch before the indirect
// draw consumes them.
type CullPass struct {
	pipeline      dispatch.PipelineHandle
	uniform       dispatch.BufferHandle
	workGroupSize uint32
}

// EnableCulling builds the compute pipeline from a precompiled module and
// allocates the frustum uniform buffer. Safe to call exactly once.
func (s *System) EnableCulling(module dispatch.ShaderModuleHandle, workGroupSize uint32) error {
	if s.cull != nil {
		return fmt.Errorf("culling pass already enabled")
	}
	if workGroupSize == 0 {
		return fmt.Errorf("culling work-group size must be at least 1")
	}

	pipeline, err := s.ops.CreatePipeline(dispatch.PipelineDesc{
		Compute: true,
		Modules: []dispatch.ShaderModuleHandle{module},
		Name:    "instance-cull",
	})
	if err != nil {
		return fmt.Errorf("failed to create culling pipeline: %w", err)
	}

	uniform, err := s.ops.GenBuffer(cullUniformSize,
		dispatch.BufferUsageUniform|dispatch.BufferUsageHostVisible, "cull-frustum")
	if err != nil {
		s.ops.DestroyPipeline(pipeline)
		return fmt.Errorf("failed to create culling uniform buffer: %w", err)
	}

	s.cull = &CullPass{
		pipeline:      pipeline,
		uniform:       uniform,
		workGroupSize: workGroupSize,
	}
	core.LogInfo("gpu culling pass enabled (work group %d)", workGroupSize)
	return nil
}

func (c *CullPass) destroy(ops dispatch.OperationSet) {
	if err := ops.DestroyPipeline(c.pipeline); err != nil {
		core.LogError("failed to destroy culling pipeline: %s", err.Error())
	}
	if err := ops.DeleteBuffer(c.uniform); err != nil {
		core.LogError("failed to delete culling uniform buffer: %s", err.Error())
	}
}

// CullInstances dispatches the visibility pass over the finalized batch. A
// memory barrier orders the compute writes before the indirect-draw read, so
// the batch may be submitted immediately afterwards.
func (s *System) CullInstances(frustum math.Frustum) error {
	if s.cull == nil {
		return fmt.Errorf("culling pass is not enabled")
	}
	b := s.active
	if b == nil || !b.finalized {
		return fmt.Errorf("culling requires a finalized draw batch")
	}
	if b.instanceCount == 0 {
		return nil
	}

	if err := s.ops.Upload(s.cull.uniform, 0, encodeCullUniform(frustum, b.instanceCount)); err != nil {
		return err
	}

	sb := &s.slots[b.slot]
	if err := s.cache.BindPipeline(s.cull.pipeline); err != nil {
		return err
	}
	if err := s.cache.BindBuffer(cullSlotUniform, s.cull.uniform, 0, cullUniformSize); err != nil {
		return err
	}
	if err := s.cache.BindBuffer(cullSlotInstance, sb.instance, 0, uint64(s.maxInstances)*InstanceStride); err != nil {
		return err
	}
	if err := s.cache.BindBuffer(cullSlotIndirect, sb.indirect, 0, uint64(s.maxDraws)*IndirectCommandSize); err != nil {
		return err
	}
	if err := s.cache.BindBuffer(cullSlotCount, sb.count, 0, 4); err != nil {
		return err
	}
	if err := s.cache.FlushDirtyState(); err != nil {
		return err
	}

	groups := math.CeilDiv(b.instanceCount, s.cull.workGroupSize)
	if err := s.ops.Dispatch(groups, 1, 1); err != nil {
		return err
	}
	s.stats.Dispatches++

	return s.barrier(
		dispatch.StageCompute, dispatch.StageDrawIndirect,
		dispatch.AccessShaderWrite, dispatch.AccessIndirectCommandRead)
}

func encodeCullUniform(frustum math.Frustum, instanceCount uint32) []byte {
	buf := make([]byte, cullUniformSize)
	for i, p := range frustum {
		base := i * 16
		binary.LittleEndian.PutUint32(buf[base+0:], gomath.Float32bits(p.X))
		binary.LittleEndian.PutUint32(buf[base+4:], gomath.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(buf[base+8:], gomath.Float32bits(p.Z))
		binary.LittleEndian.PutUint32(buf[base+12:], gomath.Float32bits(p.W))
	}
	binary.LittleEndian.PutUint32(buf[6*16:], instanceCount)
	return buf
}
