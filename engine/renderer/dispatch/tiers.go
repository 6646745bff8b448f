package dispatch

import (
	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
)

// Implementation tiers, one per supported API version. The staircase is
// monotonic: a higher tier provides everything a lower one does.
var (
	Tier10 = capability.MakeVersion(1, 0)
	Tier11 = capability.MakeVersion(1, 1)
	Tier12 = capability.MakeVersion(1, 2)
	Tier13 = capability.MakeVersion(1, 3)
)

const meshShaderExtensionName = "VK_EXT_mesh_shader"

// opsCore carries the probed function table shared by every tier type.
// Optional-op availability is resolved exactly once here; the per-call path
// only ever reads the cached booleans.
type opsCore struct {
	table  *ProcTable
	strict bool
	avail  [opCount]bool
}

func newOpsCore(tier capability.Version, table *ProcTable, snap *capability.Snapshot, settings *config.Settings) opsCore {
	c := opsCore{
		table:  table,
		strict: settings.StrictNoEmulation,
	}

	enabled := func(f capability.Feature) bool {
		return snap.Has(f) && !settings.FeatureDisabled(f)
	}

	if tier >= Tier11 {
		c.avail[OpMapRange] = table.MapRange != nil
		c.avail[OpMultiDrawIndirect] = enabled(capability.FeatureMultiDrawIndirect)
		c.avail[OpDrawMeshTasks] = table.DrawMeshTasks != nil &&
			enabled(capability.FeatureMeshShaders) &&
			snap.HasExtension(meshShaderExtensionName)
	}
	if tier >= Tier12 {
		c.avail[OpBufferDeviceAddress] = table.BufferDeviceAddress != nil &&
			enabled(capability.FeatureBufferDeviceAddress)
		c.avail[OpDrawIndexedIndirectCount] = table.DrawIndexedIndirectCount != nil &&
			enabled(capability.FeatureIndirectCount)
		c.avail[OpTimelineSemaphore] = table.CreateTimelineSemaphore != nil &&
			table.DestroyTimelineSemaphore != nil &&
			table.SignalTimeline != nil &&
			table.WaitTimeline != nil &&
			table.TimelineValue != nil &&
			enabled(capability.FeatureTimelineSemaphores)
		c.avail[OpBindlessDescriptors] = table.WriteBindlessTexture != nil &&
			enabled(capability.FeatureDescriptorIndexing)
	}
	if tier >= Tier13 {
		c.avail[OpDynamicRendering] = table.BeginRendering != nil &&
			table.EndRendering != nil &&
			enabled(capability.FeatureDynamicRendering)
		c.avail[OpEnhancedBarriers] = table.PipelineBarrier2 != nil &&
			enabled(capability.FeatureEnhancedBarriers)
		c.avail[OpExtendedDynamicState] = table.SetCullMode != nil &&
			table.SetFrontFace != nil &&
			table.SetPrimitiveTopology != nil &&
			table.SetDepthTestEnable != nil &&
			table.SetDepthWriteEnable != nil &&
			table.SetDepthCompareOp != nil
	}

	return c
}

func (c *opsCore) Supports(op OptionalOp) bool {
	return c.avail[op]
}

// gate applies the strict/lenient policy for one optional operation. The
// second return is non-nil only in strict mode.
func (c *opsCore) gate(op OptionalOp) (bool, error) {
	if c.avail[op] {
		return true, nil
	}
	if c.strict {
		return false, &core.UnsupportedCapabilityError{Op: op.String()}
	}
	return false, nil
}

// --- Required operations: straight delegation. ---

func (c *opsCore) GenBuffer(size uint64, usage BufferUsage, name string) (BufferHandle, error) {
	return c.table.GenBuffer(size, usage, name)
}

func (c *opsCore) DeleteBuffer(h BufferHandle) error {
	return c.table.DeleteBuffer(h)
}

func (c *opsCore) Upload(h BufferHandle, offset uint64, data []byte) error {
	return c.table.Upload(h, offset, data)
}

func (c *opsCore) Map(h BufferHandle) ([]byte, error) {
	return c.table.Map(h)
}

func (c *opsCore) Unmap(h BufferHandle) error {
	return c.table.Unmap(h)
}

func (c *opsCore) GenTexture(width, height uint32, format TextureFormat, pixels []byte) (ViewHandle, SamplerHandle, error) {
	return c.table.GenTexture(width, height, format, pixels)
}

func (c *opsCore) DeleteTexture(view ViewHandle) error {
	return c.table.DeleteTexture(view)
}

func (c *opsCore) BindBuffer(slot uint32, h BufferHandle, offset, size uint64) error {
	return c.table.BindBuffer(slot, h, offset, size)
}

func (c *opsCore) BindTexture(unit uint32, view ViewHandle, sampler SamplerHandle) error {
	return c.table.BindTexture(unit, view, sampler)
}

func (c *opsCore) BindVertexBuffer(binding uint32, h BufferHandle, offset uint64) error {
	return c.table.BindVertexBuffer(binding, h, offset)
}

func (c *opsCore) BindIndexBuffer(h BufferHandle, offset uint64) error {
	return c.table.BindIndexBuffer(h, offset)
}

func (c *opsCore) BindPipeline(h PipelineHandle) error {
	return c.table.BindPipeline(h)
}

func (c *opsCore) BindDescriptorSet(set uint32, h DescriptorSetHandle) error {
	return c.table.BindDescriptorSet(set, h)
}

func (c *opsCore) SetCapability(cap Capability, enabled bool) error {
	return c.table.SetCapability(cap, enabled)
}

func (c *opsCore) SetViewport(v Viewport) error {
	return c.table.SetViewport(v)
}

func (c *opsCore) SetScissor(r Rect2D) error {
	return c.table.SetScissor(r)
}

func (c *opsCore) SetDepthBias(constant, clamp, slope float32) error {
	return c.table.SetDepthBias(constant, clamp, slope)
}

func (c *opsCore) SetBlendConstants(rgba [4]float32) error {
	return c.table.SetBlendConstants(rgba)
}

func (c *opsCore) SetLineWidth(w float32) error {
	return c.table.SetLineWidth(w)
}

func (c *opsCore) SetStencilCompareMask(mask uint32) error {
	return c.table.SetStencilCompareMask(mask)
}

func (c *opsCore) SetStencilWriteMask(mask uint32) error {
	return c.table.SetStencilWriteMask(mask)
}

func (c *opsCore) SetStencilReference(ref uint32) error {
	return c.table.SetStencilReference(ref)
}

func (c *opsCore) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	return c.table.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

// DrawIndexedIndirect issues drawCount records in one native call when
// multi-draw is available. Without it, strict mode refuses multi-record
// submissions; lenient mode falls back to one native call per record, which
// the required single-draw operation can express exactly.
func (c *opsCore) DrawIndexedIndirect(buf BufferHandle, offset uint64, drawCount, stride uint32) error {
	if drawCount <= 1 || c.avail[OpMultiDrawIndirect] {
		return c.table.DrawIndexedIndirect(buf, offset, drawCount, stride)
	}
	if c.strict {
		return &core.UnsupportedCapabilityError{Op: OpMultiDrawIndirect.String()}
	}
	for i := uint32(0); i < drawCount; i++ {
		if err := c.table.DrawIndexedIndirect(buf, offset+uint64(i)*uint64(stride), 1, stride); err != nil {
			return err
		}
	}
	return nil
}

func (c *opsCore) Dispatch(x, y, z uint32) error {
	return c.table.Dispatch(x, y, z)
}

func (c *opsCore) CreateShaderModule(code []byte, entry string) (ShaderModuleHandle, error) {
	return c.table.CreateShaderModule(code, entry)
}

func (c *opsCore) DestroyShaderModule(h ShaderModuleHandle) error {
	return c.table.DestroyShaderModule(h)
}

func (c *opsCore) CreatePipeline(desc PipelineDesc) (PipelineHandle, error) {
	return c.table.CreatePipeline(desc)
}

func (c *opsCore) DestroyPipeline(h PipelineHandle) error {
	return c.table.DestroyPipeline(h)
}

func (c *opsCore) BeginRenderPass(desc RenderPassDesc) error {
	return c.table.BeginRenderPass(desc)
}

func (c *opsCore) EndRenderPass() error {
	return c.table.EndRenderPass()
}

// PipelineBarrier narrows masks to the legacy 32-bit layout.
func (c *opsCore) PipelineBarrier(src, dst StageMask, srcAccess, dstAccess AccessMask) error {
	return c.table.PipelineBarrier(uint32(src), uint32(dst), uint32(srcAccess), uint32(dstAccess))
}

func (c *opsCore) BeginCommands(slot uint32) error {
	return c.table.BeginCommands(slot)
}

func (c *opsCore) EndCommands(slot uint32) error {
	return c.table.EndCommands(slot)
}

func (c *opsCore) Submit(slot uint32, info SubmitInfo) error {
	return c.table.Submit(slot, info)
}

func (c *opsCore) DeviceWaitIdle() error {
	return c.table.DeviceWaitIdle()
}

func (c *opsCore) CreateFence(signaled bool) (FenceHandle, error) {
	return c.table.CreateFence(signaled)
}

func (c *opsCore) DestroyFence(h FenceHandle) error {
	return c.table.DestroyFence(h)
}

func (c *opsCore) WaitFence(h FenceHandle, timeoutNs uint64) error {
	return c.table.WaitFence(h, timeoutNs)
}

func (c *opsCore) ResetFence(h FenceHandle) error {
	return c.table.ResetFence(h)
}

func (c *opsCore) FenceStatus(h FenceHandle) (bool, error) {
	return c.table.FenceStatus(h)
}

// --- Optional operations: gated by the probed booleans. ---

func (c *opsCore) MapRange(h BufferHandle, offset, size uint64) ([]byte, error) {
	ok, err := c.gate(OpMapRange)
	if !ok {
		return nil, err
	}
	return c.table.MapRange(h, offset, size)
}

func (c *opsCore) BufferDeviceAddress(h BufferHandle) (uint64, error) {
	ok, err := c.gate(OpBufferDeviceAddress)
	if !ok {
		return 0, err
	}
	return c.table.BufferDeviceAddress(h)
}

func (c *opsCore) DrawIndexedIndirectCount(buf BufferHandle, offset uint64, countBuf BufferHandle, countOffset uint64, maxDrawCount, stride uint32) error {
	ok, err := c.gate(OpDrawIndexedIndirectCount)
	if !ok {
		return err
	}
	return c.table.DrawIndexedIndirectCount(buf, offset, countBuf, countOffset, maxDrawCount, stride)
}

func (c *opsCore) DrawMeshTasks(x, y, z uint32) error {
	ok, err := c.gate(OpDrawMeshTasks)
	if !ok {
		return err
	}
	return c.table.DrawMeshTasks(x, y, z)
}

func (c *opsCore) CreateTimelineSemaphore(initial uint64) (TimelineHandle, error) {
	ok, err := c.gate(OpTimelineSemaphore)
	if !ok {
		return 0, err
	}
	return c.table.CreateTimelineSemaphore(initial)
}

func (c *opsCore) DestroyTimelineSemaphore(h TimelineHandle) error {
	ok, err := c.gate(OpTimelineSemaphore)
	if !ok {
		return err
	}
	return c.table.DestroyTimelineSemaphore(h)
}

func (c *opsCore) SignalTimeline(h TimelineHandle, value uint64) error {
	ok, err := c.gate(OpTimelineSemaphore)
	if !ok {
		return err
	}
	return c.table.SignalTimeline(h, value)
}

func (c *opsCore) WaitTimeline(h TimelineHandle, value, timeoutNs uint64) error {
	ok, err := c.gate(OpTimelineSemaphore)
	if !ok {
		return err
	}
	return c.table.WaitTimeline(h, value, timeoutNs)
}

func (c *opsCore) TimelineValue(h TimelineHandle) (uint64, error) {
	ok, err := c.gate(OpTimelineSemaphore)
	if !ok {
		return 0, err
	}
	return c.table.TimelineValue(h)
}

func (c *opsCore) BeginRendering(desc RenderPassDesc) error {
	ok, err := c.gate(OpDynamicRendering)
	if !ok {
		return err
	}
	return c.table.BeginRendering(desc)
}

func (c *opsCore) EndRendering() error {
	ok, err := c.gate(OpDynamicRendering)
	if !ok {
		return err
	}
	return c.table.EndRendering()
}

func (c *opsCore) PipelineBarrier2(src, dst StageMask, srcAccess, dstAccess AccessMask) error {
	ok, err := c.gate(OpEnhancedBarriers)
	if !ok {
		return err
	}
	return c.table.PipelineBarrier2(src, dst, srcAccess, dstAccess)
}

func (c *opsCore) SetCullMode(m CullMode) error {
	ok, err := c.gate(OpExtendedDynamicState)
	if !ok {
		return err
	}
	return c.table.SetCullMode(m)
}

func (c *opsCore) SetFrontFace(f FrontFace) error {
	ok, err := c.gate(OpExtendedDynamicState)
	if !ok {
		return err
	}
	return c.table.SetFrontFace(f)
}

func (c *opsCore) SetPrimitiveTopology(t Topology) error {
	ok, err := c.gate(OpExtendedDynamicState)
	if !ok {
		return err
	}
	return c.table.SetPrimitiveTopology(t)
}

func (c *opsCore) SetDepthTestEnable(enabled bool) error {
	ok, err := c.gate(OpExtendedDynamicState)
	if !ok {
		return err
	}
	return c.table.SetDepthTestEnable(enabled)
}

func (c *opsCore) SetDepthWriteEnable(enabled bool) error {
	ok, err := c.gate(OpExtendedDynamicState)
	if !ok {
		return err
	}
	return c.table.SetDepthWriteEnable(enabled)
}

func (c *opsCore) SetDepthCompareOp(op CompareOp) error {
	ok, err := c.gate(OpExtendedDynamicState)
	if !ok {
		return err
	}
	return c.table.SetDepthCompareOp(op)
}

func (c *opsCore) WriteBindlessTexture(index uint32, view ViewHandle, sampler SamplerHandle) error {
	ok, err := c.gate(OpBindlessDescriptors)
	if !ok {
		return err
	}
	return c.table.WriteBindlessTexture(index, view, sampler)
}

// --- Tier types. One concrete implementation per API version; Tier() is the
// only thing they add over the shared probed core. ---

type tier10 struct{ opsCore }

func (t *tier10) Tier() capability.Version { return Tier10 }

type tier11 struct{ opsCore }

func (t *tier11) Tier() capability.Version { return Tier11 }

type tier12 struct{ opsCore }

func (t *tier12) Tier() capability.Version { return Tier12 }

type tier13 struct{ opsCore }

func (t *tier13) Tier() capability.Version { return Tier13 }
