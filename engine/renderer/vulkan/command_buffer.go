package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

func (b *Backend) cmd() (vk.CommandBuffer, error) {
	if b.current == nil {
		return nil, fmt.Errorf("no command buffer recording")
	}
	return b.current, nil
}

func (b *Backend) beginCommands(slot uint32) error {
	if int(slot) >= len(b.commandBuffers) {
		return fmt.Errorf("command slot %d out of range", slot)
	}
	if b.current != nil {
		return fmt.Errorf("a command buffer is already recording")
	}
	cb := b.commandBuffers[slot]
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cb, &beginInfo); res != vk.Success {
		return fmt.Errorf("command buffer begin failed: %s", resultString(res))
	}
	b.current = cb
	b.boundCompute = false
	b.descriptors.beginSlot(slot)
	return nil
}

func (b *Backend) endCommands(slot uint32) error {
	if b.current == nil {
		return fmt.Errorf("no command buffer recording")
	}
	if int(slot) >= len(b.commandBuffers) || b.commandBuffers[slot] != b.current {
		return fmt.Errorf("command slot %d is not the recording buffer", slot)
	}
	if res := vk.EndCommandBuffer(b.current); res != vk.Success {
		return fmt.Errorf("command buffer end failed: %s", resultString(res))
	}
	b.current = nil
	return nil
}

func (b *Backend) submit(slot uint32, info dispatch.SubmitInfo) error {
	if int(slot) >= len(b.commandBuffers) {
		return fmt.Errorf("command slot %d out of range", slot)
	}
	fence := vk.NullFence
	if info.Fence != 0 {
		f, ok := b.fences[info.Fence]
		if !ok {
			return fmt.Errorf("unknown fence %d", info.Fence)
		}
		fence = f.handle
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{b.commandBuffers[slot]},
	}
	if res := vk.QueueSubmit(b.context.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence); res != vk.Success {
		return fmt.Errorf("queue submit failed: %s", resultString(res))
	}
	return nil
}

func (b *Backend) deviceWaitIdle() error {
	if res := vk.DeviceWaitIdle(b.context.Device); res != vk.Success {
		return fmt.Errorf("device wait idle failed: %s", resultString(res))
	}
	return nil
}

// beginOneTime allocates and opens a throwaway command buffer for transfers.
func (b *Backend) beginOneTime() (vk.CommandBuffer, error) {
	cbs := make([]vk.CommandBuffer, 1)
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.context.CommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	if res := vk.AllocateCommandBuffers(b.context.Device, &allocInfo, cbs); res != vk.Success {
		return nil, fmt.Errorf("one-time command buffer allocation failed: %s", resultString(res))
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cbs[0], &beginInfo); res != vk.Success {
		vk.FreeCommandBuffers(b.context.Device, b.context.CommandPool, 1, cbs)
		return nil, fmt.Errorf("one-time command buffer begin failed: %s", resultString(res))
	}
	return cbs[0], nil
}

func (b *Backend) endOneTime(cmd vk.CommandBuffer) error {
	defer vk.FreeCommandBuffers(b.context.Device, b.context.CommandPool, 1, []vk.CommandBuffer{cmd})
	if res := vk.EndCommandBuffer(cmd); res != vk.Success {
		return fmt.Errorf("one-time command buffer end failed: %s", resultString(res))
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if res := vk.QueueSubmit(b.context.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return fmt.Errorf("one-time submit failed: %s", resultString(res))
	}
	if res := vk.QueueWaitIdle(b.context.GraphicsQueue); res != vk.Success {
		return fmt.Errorf("one-time wait failed: %s", resultString(res))
	}
	return nil
}

// --- Binds. ---

func (b *Backend) bindVertexBuffer(binding uint32, h dispatch.BufferHandle, offset uint64) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	buf, err := b.lookupBuffer(h)
	if err != nil {
		return err
	}
	vk.CmdBindVertexBuffers(cb, binding, 1, []vk.Buffer{buf.buffer}, []vk.DeviceSize{vk.DeviceSize(offset)})
	return nil
}

func (b *Backend) bindIndexBuffer(h dispatch.BufferHandle, offset uint64) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	buf, err := b.lookupBuffer(h)
	if err != nil {
		return err
	}
	vk.CmdBindIndexBuffer(cb, buf.buffer, vk.DeviceSize(offset), vk.IndexTypeUint32)
	return nil
}

func (b *Backend) bindPipeline(h dispatch.PipelineHandle) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	p, ok := b.pipelines[h]
	if !ok {
		return fmt.Errorf("unknown pipeline %d", h)
	}
	bindPoint := vk.PipelineBindPointGraphics
	if p.compute {
		bindPoint = vk.PipelineBindPointCompute
	}
	b.boundCompute = p.compute
	vk.CmdBindPipeline(cb, bindPoint, p.pipeline)
	b.descriptors.bind(cb, p.compute)
	return nil
}

// --- Dynamic state. ---

func (b *Backend) setViewport(v dispatch.Viewport) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{{
		X: v.X, Y: v.Y, Width: v.Width, Height: v.Height,
		MinDepth: v.MinDepth, MaxDepth: v.MaxDepth,
	}})
	return nil
}

func (b *Backend) setScissor(r dispatch.Rect2D) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: r.Width, Height: r.Height},
	}})
	return nil
}

func (b *Backend) setDepthBias(constant, clamp, slope float32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdSetDepthBias(cb, constant, clamp, slope)
	return nil
}

func (b *Backend) setBlendConstants(rgba [4]float32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdSetBlendConstants(cb, rgba)
	return nil
}

func (b *Backend) setLineWidth(w float32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdSetLineWidth(cb, w)
	return nil
}

func (b *Backend) setStencilCompareMask(mask uint32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdSetStencilCompareMask(cb, vk.StencilFaceFlags(vk.StencilFrontAndBack), mask)
	return nil
}

func (b *Backend) setStencilWriteMask(mask uint32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdSetStencilWriteMask(cb, vk.StencilFaceFlags(vk.StencilFrontAndBack), mask)
	return nil
}

func (b *Backend) setStencilReference(ref uint32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdSetStencilReference(cb, vk.StencilFaceFlags(vk.StencilFrontAndBack), ref)
	return nil
}

// setCapability latches fixed-function toggles; they bake into the next
// pipeline created since core Vulkan has no runtime switch for them.
func (b *Backend) setCapability(cap dispatch.Capability, enabled bool) error {
	if enabled {
		b.caps |= cap
	} else {
		b.caps &^= cap
	}
	return nil
}

// --- Draw / dispatch. ---

func (b *Backend) drawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdDrawIndexed(cb, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

func (b *Backend) drawIndexedIndirect(buf dispatch.BufferHandle, offset uint64, drawCount, stride uint32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	db, err := b.lookupBuffer(buf)
	if err != nil {
		return err
	}
	vk.CmdDrawIndexedIndirect(cb, db.buffer, vk.DeviceSize(offset), drawCount, stride)
	return nil
}

func (b *Backend) dispatch(x, y, z uint32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdDispatch(cb, x, y, z)
	return nil
}

// pipelineBarrier maps the truncated 32-bit masks straight through; the
// legacy stage and access bits share the enhanced layout's low word.
func (b *Backend) pipelineBarrier(src, dst uint32, srcAccess, dstAccess uint32) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst),
		vk.DependencyFlags(0), 1,
		[]vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(srcAccess),
			DstAccessMask: vk.AccessFlags(dstAccess),
		}}, 0, nil, 0, nil)
	return nil
}
