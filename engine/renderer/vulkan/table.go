package vulkan

import (
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// Table wires the backend into the dispatch layer. Optional entries the
// binding cannot reach (timeline semaphores, dynamic rendering, enhanced
// barriers, extended dynamic state, mesh tasks, indirect count, device
// addresses, bindless writes) stay nil and degrade per policy; MapRange is
// the one optional entry this backend carries.
func (b *Backend) Table() *dispatch.ProcTable {
	return &dispatch.ProcTable{
		GenBuffer:    b.genBuffer,
		DeleteBuffer: b.deleteBuffer,
		Upload:       b.upload,
		Map:          b.mapBuffer,
		Unmap:        b.unmap,

		GenTexture:    b.genTexture,
		DeleteTexture: b.deleteTexture,

		BindBuffer:        b.bindBuffer,
		BindTexture:       b.bindTexture,
		BindVertexBuffer:  b.bindVertexBuffer,
		BindIndexBuffer:   b.bindIndexBuffer,
		BindPipeline:      b.bindPipeline,
		BindDescriptorSet: b.bindDescriptorSet,
		SetCapability:     b.setCapability,

		SetViewport:           b.setViewport,
		SetScissor:            b.setScissor,
		SetDepthBias:          b.setDepthBias,
		SetBlendConstants:     b.setBlendConstants,
		SetLineWidth:          b.setLineWidth,
		SetStencilCompareMask: b.setStencilCompareMask,
		SetStencilWriteMask:   b.setStencilWriteMask,
		SetStencilReference:   b.setStencilReference,

		DrawIndexed:         b.drawIndexed,
		DrawIndexedIndirect: b.drawIndexedIndirect,
		Dispatch:            b.dispatch,

		CreateShaderModule:  b.createShaderModule,
		DestroyShaderModule: b.destroyShaderModule,
		CreatePipeline:      b.createPipeline,
		DestroyPipeline:     b.destroyPipeline,

		BeginRenderPass: b.beginRenderPass,
		EndRenderPass:   b.endRenderPass,
		PipelineBarrier: b.pipelineBarrier,

		BeginCommands:  b.beginCommands,
		EndCommands:    b.endCommands,
		Submit:         b.submit,
		DeviceWaitIdle: b.deviceWaitIdle,

		CreateFence:  b.createFence,
		DestroyFence: b.destroyFence,
		WaitFence:    b.waitFence,
		ResetFence:   b.resetFence,
		FenceStatus:  b.fenceStatus,

		MapRange: b.mapRange,
	}
}
