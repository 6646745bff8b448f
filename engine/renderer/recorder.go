package renderer

import (
	"fmt"

	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// Recording surface. Binds and dynamic state go through the cache, which
// elides redundant calls; draws flush the accumulated dirty state first so a
// draw always sees exactly the state recorded before it. A recording call
// issued outside an open frame begins one implicitly.

func (r *Renderer) BindBuffer(slot uint32, h dispatch.BufferHandle, offset, size uint64) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.BindBuffer(slot, h, offset, size)
}

func (r *Renderer) BindTexture(unit uint32, view dispatch.ViewHandle, sampler dispatch.SamplerHandle) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.BindTexture(unit, view, sampler)
}

func (r *Renderer) BindVertexBuffer(binding uint32, h dispatch.BufferHandle, offset uint64) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.BindVertexBuffer(binding, h, offset)
}

func (r *Renderer) BindIndexBuffer(h dispatch.BufferHandle, offset uint64) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.BindIndexBuffer(h, offset)
}

func (r *Renderer) BindPipeline(h dispatch.PipelineHandle) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	if _, ok := r.pipelines[h]; !ok {
		return &core.ResourceNotFoundError{Kind: "pipeline", Handle: uint64(h)}
	}
	return r.cache.BindPipeline(h)
}

func (r *Renderer) BindDescriptorSet(set uint32, h dispatch.DescriptorSetHandle) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.BindDescriptorSet(set, h)
}

func (r *Renderer) Enable(cap dispatch.Capability) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.Enable(cap)
}

func (r *Renderer) Disable(cap dispatch.Capability) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.Disable(cap)
}

// --- Dynamic state (recorded lazily, issued on the next flush). ---

func (r *Renderer) SetViewport(v dispatch.Viewport) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	r.cache.SetViewport(v)
	return nil
}

func (r *Renderer) SetScissor(rect dispatch.Rect2D) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	r.cache.SetScissor(rect)
	return nil
}

func (r *Renderer) SetDepthBias(constant, clamp, slope float32) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	r.cache.SetDepthBias(constant, clamp, slope)
	return nil
}

func (r *Renderer) SetBlendConstants(rgba [4]float32) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	r.cache.SetBlendConstants(rgba)
	return nil
}

func (r *Renderer) SetLineWidth(w float32) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	r.cache.SetLineWidth(w)
	return nil
}

func (r *Renderer) SetStencilCompareMask(mask uint32) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	r.cache.SetStencilCompareMask(mask)
	return nil
}

func (r *Renderer) SetStencilWriteMask(mask uint32) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	r.cache.SetStencilWriteMask(mask)
	return nil
}

func (r *Renderer) SetStencilReference(ref uint32) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	r.cache.SetStencilReference(ref)
	return nil
}

func (r *Renderer) SetCullMode(m dispatch.CullMode) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.SetCullMode(m)
}

func (r *Renderer) SetFrontFace(f dispatch.FrontFace) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.SetFrontFace(f)
}

func (r *Renderer) SetPrimitiveTopology(t dispatch.Topology) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.SetPrimitiveTopology(t)
}

func (r *Renderer) SetDepthTestEnable(enabled bool) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.SetDepthTestEnable(enabled)
}

func (r *Renderer) SetDepthWriteEnable(enabled bool) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.SetDepthWriteEnable(enabled)
}

func (r *Renderer) SetDepthCompareOp(op dispatch.CompareOp) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.SetDepthCompareOp(op)
}

// --- Passes and barriers. ---

// BeginRenderPass opens a pass through whichever path the tier selected at
// init: dynamic rendering when available, the legacy render-pass entry
// otherwise. Callers never pick the path.
func (r *Renderer) BeginRenderPass(desc dispatch.RenderPassDesc) error {
	r.guard.Assert("BeginRenderPass")
	if err := r.ensureRecording("BeginRenderPass"); err != nil {
		return err
	}
	if r.inPass {
		return fmt.Errorf("BeginRenderPass inside an open pass")
	}
	var err error
	if r.useDynamicRendering {
		err = r.ops.BeginRendering(desc)
	} else {
		err = r.ops.BeginRenderPass(desc)
	}
	if err != nil {
		return err
	}
	r.inPass = true
	return nil
}

func (r *Renderer) EndRenderPass() error {
	r.guard.Assert("EndRenderPass")
	if err := r.ensureInit(); err != nil {
		return err
	}
	if !r.inPass {
		return fmt.Errorf("EndRenderPass without an open pass")
	}
	r.inPass = false
	if r.useDynamicRendering {
		return r.ops.EndRendering()
	}
	return r.ops.EndRenderPass()
}

// Barrier issues a pipeline barrier through the enhanced entry when the tier
// carries it, the legacy 32-bit entry otherwise.
func (r *Renderer) Barrier(src, dst dispatch.StageMask, srcAccess, dstAccess dispatch.AccessMask) error {
	r.guard.Assert("Barrier")
	if err := r.ensureRecording("Barrier"); err != nil {
		return err
	}
	if r.useEnhancedBarriers {
		return r.ops.PipelineBarrier2(src, dst, srcAccess, dstAccess)
	}
	return r.ops.PipelineBarrier(src, dst, srcAccess, dstAccess)
}

// --- Draws / dispatch. ---

func (r *Renderer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	r.guard.Assert("DrawIndexed")
	if err := r.ensureRecording("DrawIndexed"); err != nil {
		return err
	}
	if err := r.cache.FlushDirtyState(); err != nil {
		return err
	}
	if err := r.ops.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance); err != nil {
		return err
	}
	r.stats.DrawCalls++
	r.stats.Instances += uint64(instanceCount)
	return nil
}

// DrawMeshTasks only counts toward the draw stats when the tier actually
// carries mesh shading; a lenient no-op leaves the counters untouched.
func (r *Renderer) DrawMeshTasks(x, y, z uint32) error {
	r.guard.Assert("DrawMeshTasks")
	if err := r.ensureRecording("DrawMeshTasks"); err != nil {
		return err
	}
	if err := r.cache.FlushDirtyState(); err != nil {
		return err
	}
	if err := r.ops.DrawMeshTasks(x, y, z); err != nil {
		return err
	}
	if r.ops.Supports(dispatch.OpDrawMeshTasks) {
		r.stats.DrawCalls++
	}
	return nil
}

func (r *Renderer) Dispatch(x, y, z uint32) error {
	r.guard.Assert("Dispatch")
	if err := r.ensureRecording("Dispatch"); err != nil {
		return err
	}
	if err := r.cache.FlushDirtyState(); err != nil {
		return err
	}
	if err := r.ops.Dispatch(x, y, z); err != nil {
		return err
	}
	r.stats.Dispatches++
	return nil
}

// FlushDirtyState forces accumulated lazy state out without a draw.
func (r *Renderer) FlushDirtyState() error {
	r.guard.Assert("FlushDirtyState")
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.cache.FlushDirtyState()
}

// InvalidateStateCache drops every cached binding and known value.
func (r *Renderer) InvalidateStateCache() {
	if r.initialized {
		r.cache.InvalidateAll()
	}
}
