package null

import (
	"fmt"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// Table returns a fully populated proc table, optional entries included.
func (d *Driver) Table() *dispatch.ProcTable {
	t := &dispatch.ProcTable{
		GenBuffer:    d.genBuffer,
		DeleteBuffer: d.deleteBuffer,
		Upload:       d.upload,
		Map:          d.mapBuffer,
		Unmap:        d.unmap,

		GenTexture:    d.genTexture,
		DeleteTexture: d.deleteTexture,

		BindBuffer:        d.bindBuffer,
		BindTexture:       d.bindTexture,
		BindVertexBuffer:  d.bindVertexBuffer,
		BindIndexBuffer:   d.bindIndexBuffer,
		BindPipeline:      d.bindPipeline,
		BindDescriptorSet: d.bindDescriptorSet,
		SetCapability:     d.setCapability,

		SetViewport:           d.setViewport,
		SetScissor:            d.setScissor,
		SetDepthBias:          d.setDepthBias,
		SetBlendConstants:     d.setBlendConstants,
		SetLineWidth:          d.setLineWidth,
		SetStencilCompareMask: d.setStencilCompareMask,
		SetStencilWriteMask:   d.setStencilWriteMask,
		SetStencilReference:   d.setStencilReference,

		DrawIndexed:         d.drawIndexed,
		DrawIndexedIndirect: d.drawIndexedIndirect,
		Dispatch:            d.dispatch,

		CreateShaderModule:  d.createShaderModule,
		DestroyShaderModule: d.destroyShaderModule,
		CreatePipeline:      d.createPipeline,
		DestroyPipeline:     d.destroyPipeline,

		BeginRenderPass: d.beginRenderPass,
		EndRenderPass:   d.endRenderPass,
		PipelineBarrier: d.pipelineBarrier,

		BeginCommands:  d.beginCommands,
		EndCommands:    d.endCommands,
		Submit:         d.submit,
		DeviceWaitIdle: d.deviceWaitIdle,

		CreateFence:  d.createFence,
		DestroyFence: d.destroyFence,
		WaitFence:    d.waitFence,
		ResetFence:   d.resetFence,
		FenceStatus:  d.fenceStatus,

		MapRange:            d.mapRange,
		BufferDeviceAddress: d.bufferDeviceAddress,

		DrawIndexedIndirectCount: d.drawIndexedIndirectCount,
		DrawMeshTasks:            d.drawMeshTasks,

		CreateTimelineSemaphore:  d.createTimelineSemaphore,
		DestroyTimelineSemaphore: d.destroyTimelineSemaphore,
		SignalTimeline:           d.signalTimeline,
		WaitTimeline:             d.waitTimeline,
		TimelineValue:            d.timelineValue,

		BeginRendering:   d.beginRendering,
		EndRendering:     d.endRendering,
		PipelineBarrier2: d.pipelineBarrier2,

		SetCullMode:          d.setCullMode,
		SetFrontFace:         d.setFrontFace,
		SetPrimitiveTopology: d.setPrimitiveTopology,
		SetDepthTestEnable:   d.setDepthTestEnable,
		SetDepthWriteEnable:  d.setDepthWriteEnable,
		SetDepthCompareOp:    d.setDepthCompareOp,

		WriteBindlessTexture: d.writeBindlessTexture,
	}
	return t
}

// TableWithout returns a table with the named optional entries nilled out,
// simulating a driver that never exposed them.
func (d *Driver) TableWithout(names ...string) *dispatch.ProcTable {
	t := d.Table()
	for _, name := range names {
		switch name {
		case "MapRange":
			t.MapRange = nil
		case "BufferDeviceAddress":
			t.BufferDeviceAddress = nil
		case "DrawIndexedIndirectCount":
			t.DrawIndexedIndirectCount = nil
		case "DrawMeshTasks":
			t.DrawMeshTasks = nil
		case "CreateTimelineSemaphore":
			t.CreateTimelineSemaphore = nil
		case "DestroyTimelineSemaphore":
			t.DestroyTimelineSemaphore = nil
		case "SignalTimeline":
			t.SignalTimeline = nil
		case "WaitTimeline":
			t.WaitTimeline = nil
		case "TimelineValue":
			t.TimelineValue = nil
		case "Timeline":
			t.CreateTimelineSemaphore = nil
			t.DestroyTimelineSemaphore = nil
			t.SignalTimeline = nil
			t.WaitTimeline = nil
			t.TimelineValue = nil
		case "BeginRendering":
			t.BeginRendering = nil
		case "EndRendering":
			t.EndRendering = nil
		case "PipelineBarrier2":
			t.PipelineBarrier2 = nil
		case "ExtendedDynamicState":
			t.SetCullMode = nil
			t.SetFrontFace = nil
			t.SetPrimitiveTopology = nil
			t.SetDepthTestEnable = nil
			t.SetDepthWriteEnable = nil
			t.SetDepthCompareOp = nil
		case "WriteBindlessTexture":
			t.WriteBindlessTexture = nil
		default:
			panic("null: unknown proc name " + name)
		}
	}
	return t
}

func (d *Driver) genBuffer(size uint64, usage dispatch.BufferUsage, name string) (dispatch.BufferHandle, error) {
	d.count("GenBuffer")
	h := dispatch.BufferHandle(d.handle())
	d.buffers[h] = &buffer{data: make([]byte, size), usage: usage, name: name}
	return h, nil
}

func (d *Driver) deleteBuffer(h dispatch.BufferHandle) error {
	d.count("DeleteBuffer")
	if _, ok := d.buffers[h]; !ok {
		return fmt.Errorf("unknown buffer %d", h)
	}
	delete(d.buffers, h)
	return nil
}

func (d *Driver) upload(h dispatch.BufferHandle, offset uint64, data []byte) error {
	d.count("Upload")
	b, ok := d.buffers[h]
	if !ok {
		return fmt.Errorf("unknown buffer %d", h)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("upload out of range: %d+%d > %d", offset, len(data), len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

func (d *Driver) mapBuffer(h dispatch.BufferHandle) ([]byte, error) {
	d.count("Map")
	b, ok := d.buffers[h]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %d", h)
	}
	return b.data, nil
}

func (d *Driver) unmap(h dispatch.BufferHandle) error {
	d.count("Unmap")
	if _, ok := d.buffers[h]; !ok {
		return fmt.Errorf("unknown buffer %d", h)
	}
	return nil
}

func (d *Driver) mapRange(h dispatch.BufferHandle, offset, size uint64) ([]byte, error) {
	d.count("MapRange")
	b, ok := d.buffers[h]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %d", h)
	}
	if offset+size > uint64(len(b.data)) {
		return nil, fmt.Errorf("map range out of bounds: %d+%d > %d", offset, size, len(b.data))
	}
	return b.data[offset : offset+size], nil
}

func (d *Driver) genTexture(width, height uint32, format dispatch.TextureFormat, pixels []byte) (dispatch.ViewHandle, dispatch.SamplerHandle, error) {
	d.count("GenTexture")
	view := dispatch.ViewHandle(d.handle())
	sampler := dispatch.SamplerHandle(d.handle())
	d.textures[view] = &texture{width: width, height: height, format: format, sampler: sampler}
	return view, sampler, nil
}

func (d *Driver) deleteTexture(view dispatch.ViewHandle) error {
	d.count("DeleteTexture")
	if _, ok := d.textures[view]; !ok {
		return fmt.Errorf("unknown texture view %d", view)
	}
	delete(d.textures, view)
	return nil
}

func (d *Driver) bindBuffer(slot uint32, h dispatch.BufferHandle, offset, size uint64) error {
	d.count("BindBuffer")
	return nil
}

func (d *Driver) bindTexture(unit uint32, view dispatch.ViewHandle, sampler dispatch.SamplerHandle) error {
	d.count("BindTexture")
	return nil
}

func (d *Driver) bindVertexBuffer(binding uint32, h dispatch.BufferHandle, offset uint64) error {
	d.count("BindVertexBuffer")
	return nil
}

func (d *Driver) bindIndexBuffer(h dispatch.BufferHandle, offset uint64) error {
	d.count("BindIndexBuffer")
	return nil
}

func (d *Driver) bindPipeline(h dispatch.PipelineHandle) error {
	d.count("BindPipeline")
	return nil
}

func (d *Driver) bindDescriptorSet(set uint32, h dispatch.DescriptorSetHandle) error {
	d.count("BindDescriptorSet")
	return nil
}

func (d *Driver) setCapability(cap dispatch.Capability, enabled bool) error {
	d.count("SetCapability")
	return nil
}

func (d *Driver) dyn(name string) {
	d.count(name)
	d.DynamicCalls = append(d.DynamicCalls, name)
}

func (d *Driver) setViewport(v dispatch.Viewport) error { d.dyn("SetViewport"); return nil }
func (d *Driver) setScissor(r dispatch.Rect2D) error    { d.dyn("SetScissor"); return nil }
func (d *Driver) setDepthBias(constant, clamp, slope float32) error {
	d.dyn("SetDepthBias")
	return nil
}
func (d *Driver) setBlendConstants(rgba [4]float32) error { d.dyn("SetBlendConstants"); return nil }
func (d *Driver) setLineWidth(w float32) error            { d.dyn("SetLineWidth"); return nil }
func (d *Driver) setStencilCompareMask(mask uint32) error { d.dyn("SetStencilCompareMask"); return nil }
func (d *Driver) setStencilWriteMask(mask uint32) error   { d.dyn("SetStencilWriteMask"); return nil }
func (d *Driver) setStencilReference(ref uint32) error    { d.dyn("SetStencilReference"); return nil }
func (d *Driver) setCullMode(m dispatch.CullMode) error   { d.dyn("SetCullMode"); return nil }
func (d *Driver) setFrontFace(f dispatch.FrontFace) error { d.dyn("SetFrontFace"); return nil }
func (d *Driver) setPrimitiveTopology(t dispatch.Topology) error {
	d.dyn("SetPrimitiveTopology")
	return nil
}
func (d *Driver) setDepthTestEnable(enabled bool) error  { d.dyn("SetDepthTestEnable"); return nil }
func (d *Driver) setDepthWriteEnable(enabled bool) error { d.dyn("SetDepthWriteEnable"); return nil }
func (d *Driver) setDepthCompareOp(op dispatch.CompareOp) error {
	d.dyn("SetDepthCompareOp")
	return nil
}

func (d *Driver) drawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	d.count("DrawIndexed")
	d.Draws = append(d.Draws, DrawRecord{Kind: "DrawIndexed", IndexCount: indexCount, InstanceCount: instanceCount})
	return nil
}

func (d *Driver) drawIndexedIndirect(buf dispatch.BufferHandle, offset uint64, drawCount, stride uint32) error {
	d.count("DrawIndexedIndirect")
	if _, ok := d.buffers[buf]; !ok {
		return fmt.Errorf("unknown buffer %d", buf)
	}
	d.Draws = append(d.Draws, DrawRecord{Kind: "DrawIndexedIndirect", DrawCount: drawCount, Buffer: buf})
	return nil
}

func (d *Driver) drawIndexedIndirectCount(buf dispatch.BufferHandle, offset uint64, countBuf dispatch.BufferHandle, countOffset uint64, maxDrawCount, stride uint32) error {
	d.count("DrawIndexedIndirectCount")
	if _, ok := d.buffers[buf]; !ok {
		return fmt.Errorf("unknown buffer %d", buf)
	}
	if _, ok := d.buffers[countBuf]; !ok {
		return fmt.Errorf("unknown count buffer %d", countBuf)
	}
	d.Draws = append(d.Draws, DrawRecord{Kind: "DrawIndexedIndirectCount", DrawCount: maxDrawCount, Buffer: buf})
	return nil
}

func (d *Driver) drawMeshTasks(x, y, z uint32) error {
	d.count("DrawMeshTasks")
	d.Draws = append(d.Draws, DrawRecord{Kind: "DrawMeshTasks", X: x, Y: y, Z: z})
	return nil
}

func (d *Driver) dispatch(x, y, z uint32) error {
	d.count("Dispatch")
	d.Draws = append(d.Draws, DrawRecord{Kind: "Dispatch", X: x, Y: y, Z: z})
	return nil
}

func (d *Driver) createShaderModule(code []byte, entry string) (dispatch.ShaderModuleHandle, error) {
	d.count("CreateShaderModule")
	h := dispatch.ShaderModuleHandle(d.handle())
	d.modules[h] = entry
	return h, nil
}

func (d *Driver) destroyShaderModule(h dispatch.ShaderModuleHandle) error {
	d.count("DestroyShaderModule")
	if _, ok := d.modules[h]; !ok {
		return fmt.Errorf("unknown shader module %d", h)
	}
	delete(d.modules, h)
	return nil
}

func (d *Driver) createPipeline(desc dispatch.PipelineDesc) (dispatch.PipelineHandle, error) {
	d.count("CreatePipeline")
	for _, m := range desc.Modules {
		if _, ok := d.modules[m]; !ok {
			return 0, fmt.Errorf("pipeline %q references unknown module %d", desc.Name, m)
		}
	}
	h := dispatch.PipelineHandle(d.handle())
	d.pipelines[h] = desc
	return h, nil
}

func (d *Driver) destroyPipeline(h dispatch.PipelineHandle) error {
	d.count("DestroyPipeline")
	if _, ok := d.pipelines[h]; !ok {
		return fmt.Errorf("unknown pipeline %d", h)
	}
	delete(d.pipelines, h)
	return nil
}

func (d *Driver) beginRenderPass(desc dispatch.RenderPassDesc) error {
	d.count("BeginRenderPass")
	return nil
}

func (d *Driver) endRenderPass() error {
	d.count("EndRenderPass")
	return nil
}

func (d *Driver) beginRendering(desc dispatch.RenderPassDesc) error {
	d.count("BeginRendering")
	return nil
}

func (d *Driver) endRendering() error {
	d.count("EndRendering")
	return nil
}

func (d *Driver) pipelineBarrier(src, dst uint32, srcAccess, dstAccess uint32) error {
	d.count("PipelineBarrier")
	return nil
}

func (d *Driver) pipelineBarrier2(src, dst dispatch.StageMask, srcAccess, dstAccess dispatch.AccessMask) error {
	d.count("PipelineBarrier2")
	return nil
}

func (d *Driver) beginCommands(slot uint32) error {
	d.count("BeginCommands")
	if d.recordingSlot >= 0 {
		return fmt.Errorf("slot %d already recording", d.recordingSlot)
	}
	d.recordingSlot = int32(slot)
	return nil
}

func (d *Driver) endCommands(slot uint32) error {
	d.count("EndCommands")
	if d.recordingSlot != int32(slot) {
		return fmt.Errorf("slot %d not recording", slot)
	}
	d.recordingSlot = -1
	return nil
}

// submit completes instantly: the fence signals and the timeline jumps to the
// requested value before the call returns.
func (d *Driver) submit(slot uint32, info dispatch.SubmitInfo) error {
	d.count("Submit")
	if info.Fence != 0 {
		f, ok := d.fences[info.Fence]
		if !ok {
			return fmt.Errorf("unknown fence %d", info.Fence)
		}
		f.signaled = true
	}
	if info.Timeline != 0 {
		if _, ok := d.timelines[info.Timeline]; !ok {
			return fmt.Errorf("unknown timeline %d", info.Timeline)
		}
		if info.SignalValue > d.timelines[info.Timeline] {
			d.timelines[info.Timeline] = info.SignalValue
		}
	}
	return nil
}

func (d *Driver) deviceWaitIdle() error {
	d.count("DeviceWaitIdle")
	return nil
}

func (d *Driver) createFence(signaled bool) (dispatch.FenceHandle, error) {
	d.count("CreateFence")
	h := dispatch.FenceHandle(d.handle())
	d.fences[h] = &fence{signaled: signaled}
	return h, nil
}

func (d *Driver) destroyFence(h dispatch.FenceHandle) error {
	d.count("DestroyFence")
	if _, ok := d.fences[h]; !ok {
		return fmt.Errorf("unknown fence %d", h)
	}
	delete(d.fences, h)
	return nil
}

func (d *Driver) waitFence(h dispatch.FenceHandle, timeoutNs uint64) error {
	d.count("WaitFence")
	f, ok := d.fences[h]
	if !ok {
		return fmt.Errorf("unknown fence %d", h)
	}
	if !f.signaled {
		return fmt.Errorf("fence %d wait timed out", h)
	}
	return nil
}

func (d *Driver) resetFence(h dispatch.FenceHandle) error {
	d.count("ResetFence")
	f, ok := d.fences[h]
	if !ok {
		return fmt.Errorf("unknown fence %d", h)
	}
	f.signaled = false
	return nil
}

func (d *Driver) fenceStatus(h dispatch.FenceHandle) (bool, error) {
	d.count("FenceStatus")
	f, ok := d.fences[h]
	if !ok {
		return false, fmt.Errorf("unknown fence %d", h)
	}
	return f.signaled, nil
}

func (d *Driver) bufferDeviceAddress(h dispatch.BufferHandle) (uint64, error) {
	d.count("BufferDeviceAddress")
	if _, ok := d.buffers[h]; !ok {
		return 0, fmt.Errorf("unknown buffer %d", h)
	}
	return uint64(h) << 12, nil
}

func (d *Driver) createTimelineSemaphore(initial uint64) (dispatch.TimelineHandle, error) {
	d.count("CreateTimelineSemaphore")
	h := dispatch.TimelineHandle(d.handle())
	d.timelines[h] = initial
	return h, nil
}

func (d *Driver) destroyTimelineSemaphore(h dispatch.TimelineHandle) error {
	d.count("DestroyTimelineSemaphore")
	if _, ok := d.timelines[h]; !ok {
		return fmt.Errorf("unknown timeline %d", h)
	}
	delete(d.timelines, h)
	return nil
}

func (d *Driver) signalTimeline(h dispatch.TimelineHandle, value uint64) error {
	d.count("SignalTimeline")
	cur, ok := d.timelines[h]
	if !ok {
		return fmt.Errorf("unknown timeline %d", h)
	}
	if value > cur {
		d.timelines[h] = value
	}
	return nil
}

func (d *Driver) waitTimeline(h dispatch.TimelineHandle, value, timeoutNs uint64) error {
	d.count("WaitTimeline")
	d.TimelineWaits = append(d.TimelineWaits, value)
	cur, ok := d.timelines[h]
	if !ok {
		return fmt.Errorf("unknown timeline %d", h)
	}
	if cur < value {
		return fmt.Errorf("timeline %d wait timed out at %d, want %d", h, cur, value)
	}
	return nil
}

func (d *Driver) timelineValue(h dispatch.TimelineHandle) (uint64, error) {
	d.count("TimelineValue")
	cur, ok := d.timelines[h]
	if !ok {
		return 0, fmt.Errorf("unknown timeline %d", h)
	}
	return cur, nil
}

func (d *Driver) writeBindlessTexture(index uint32, view dispatch.ViewHandle, sampler dispatch.SamplerHandle) error {
	d.count("WriteBindlessTexture")
	d.Bindless[index] = BindlessSlot{View: view, Sampler: sampler}
	return nil
}
