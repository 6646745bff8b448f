package dispatch

import (
	"strings"

	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
)

// ProcTable is the flat function table a native driver fills in. The entries
// up to and including FenceStatus are required: a tier cannot be constructed
// when any of them is nil. The remaining entries are optional; drivers leave
// unavailable ones nil and the operation set probes them once at init.
type ProcTable struct {
	// Buffers.
	GenBuffer    func(size uint64, usage BufferUsage, name string) (BufferHandle, error)
	DeleteBuffer func(h BufferHandle) error
	Upload       func(h BufferHandle, offset uint64, data []byte) error
	Map          func(h BufferHandle) ([]byte, error)
	Unmap        func(h BufferHandle) error

	// Textures (aggregate lifecycle contract: one view+sampler per texture).
	GenTexture    func(width, height uint32, format TextureFormat, pixels []byte) (ViewHandle, SamplerHandle, error)
	DeleteTexture func(view ViewHandle) error

	// Binds.
	BindBuffer        func(slot uint32, h BufferHandle, offset, size uint64) error
	BindTexture       func(unit uint32, view ViewHandle, sampler SamplerHandle) error
	BindVertexBuffer  func(binding uint32, h BufferHandle, offset uint64) error
	BindIndexBuffer   func(h BufferHandle, offset uint64) error
	BindPipeline      func(h PipelineHandle) error
	BindDescriptorSet func(set uint32, h DescriptorSetHandle) error
	SetCapability     func(cap Capability, enabled bool) error

	// Dynamic state.
	SetViewport           func(v Viewport) error
	SetScissor            func(r Rect2D) error
	SetDepthBias          func(constant, clamp, slope float32) error
	SetBlendConstants     func(rgba [4]float32) error
	SetLineWidth          func(w float32) error
	SetStencilCompareMask func(mask uint32) error
	SetStencilWriteMask   func(mask uint32) error
	SetStencilReference   func(ref uint32) error

	// Draw / dispatch.
	DrawIndexed         func(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error
	DrawIndexedIndirect func(buf BufferHandle, offset uint64, drawCount, stride uint32) error
	Dispatch            func(x, y, z uint32) error

	// Shader modules / pipelines (precompiled byte code only).
	CreateShaderModule  func(code []byte, entry string) (ShaderModuleHandle, error)
	DestroyShaderModule func(h ShaderModuleHandle) error
	CreatePipeline      func(desc PipelineDesc) (PipelineHandle, error)
	DestroyPipeline     func(h PipelineHandle) error

	// Passes / barriers.
	BeginRenderPass func(desc RenderPassDesc) error
	EndRenderPass   func() error
	PipelineBarrier func(src, dst uint32, srcAccess, dstAccess uint32) error

	// Command buffers / submission.
	BeginCommands  func(slot uint32) error
	EndCommands    func(slot uint32) error
	Submit         func(slot uint32, info SubmitInfo) error
	DeviceWaitIdle func() error

	// Fences.
	CreateFence  func(signaled bool) (FenceHandle, error)
	DestroyFence func(h FenceHandle) error
	WaitFence    func(h FenceHandle, timeoutNs uint64) error
	ResetFence   func(h FenceHandle) error
	FenceStatus  func(h FenceHandle) (bool, error)

	// --- Optional from here on. ---

	MapRange            func(h BufferHandle, offset, size uint64) ([]byte, error)
	BufferDeviceAddress func(h BufferHandle) (uint64, error)

	DrawIndexedIndirectCount func(buf BufferHandle, offset uint64, countBuf BufferHandle, countOffset uint64, maxDrawCount, stride uint32) error
	DrawMeshTasks            func(x, y, z uint32) error

	CreateTimelineSemaphore  func(initial uint64) (TimelineHandle, error)
	DestroyTimelineSemaphore func(h TimelineHandle) error
	SignalTimeline           func(h TimelineHandle, value uint64) error
	WaitTimeline             func(h TimelineHandle, value, timeoutNs uint64) error
	TimelineValue            func(h TimelineHandle) (uint64, error)

	BeginRendering   func(desc RenderPassDesc) error
	EndRendering     func() error
	PipelineBarrier2 func(src, dst StageMask, srcAccess, dstAccess AccessMask) error

	SetCullMode          func(m CullMode) error
	SetFrontFace         func(f FrontFace) error
	SetPrimitiveTopology func(t Topology) error
	SetDepthTestEnable   func(enabled bool) error
	SetDepthWriteEnable  func(enabled bool) error
	SetDepthCompareOp    func(op CompareOp) error

	WriteBindlessTexture func(index uint32, view ViewHandle, sampler SamplerHandle) error
}

// validate checks that every required entry is wired. Returning all missing
// names at once beats failing one at a time during driver bring-up.
func (t *ProcTable) validate() error {
	var missing []string
	checks := []struct {
		name string
		ok   bool
	}{
		{"GenBuffer", t.GenBuffer != nil},
		{"DeleteBuffer", t.DeleteBuffer != nil},
		{"Upload", t.Upload != nil},
		{"Map", t.Map != nil},
		{"Unmap", t.Unmap != nil},
		{"GenTexture", t.GenTexture != nil},
		{"DeleteTexture", t.DeleteTexture != nil},
		{"BindBuffer", t.BindBuffer != nil},
		{"BindTexture", t.BindTexture != nil},
		{"BindVertexBuffer", t.BindVertexBuffer != nil},
		{"BindIndexBuffer", t.BindIndexBuffer != nil},
		{"BindPipeline", t.BindPipeline != nil},
		{"BindDescriptorSet", t.BindDescriptorSet != nil},
		{"SetCapability", t.SetCapability != nil},
		{"SetViewport", t.SetViewport != nil},
		{"SetScissor", t.SetScissor != nil},
		{"SetDepthBias", t.SetDepthBias != nil},
		{"SetBlendConstants", t.SetBlendConstants != nil},
		{"SetLineWidth", t.SetLineWidth != nil},
		{"SetStencilCompareMask", t.SetStencilCompareMask != nil},
		{"SetStencilWriteMask", t.SetStencilWriteMask != nil},
		{"SetStencilReference", t.SetStencilReference != nil},
		{"DrawIndexed", t.DrawIndexed != nil},
		{"DrawIndexedIndirect", t.DrawIndexedIndirect != nil},
		{"Dispatch", t.Dispatch != nil},
		{"CreateShaderModule", t.CreateShaderModule != nil},
		{"DestroyShaderModule", t.DestroyShaderModule != nil},
		{"CreatePipeline", t.CreatePipeline != nil},
		{"DestroyPipeline", t.DestroyPipeline != nil},
		{"BeginRenderPass", t.BeginRenderPass != nil},
		{"EndRenderPass", t.EndRenderPass != nil},
		{"PipelineBarrier", t.PipelineBarrier != nil},
		{"BeginCommands", t.BeginCommands != nil},
		{"EndCommands", t.EndCommands != nil},
		{"Submit", t.Submit != nil},
		{"DeviceWaitIdle", t.DeviceWaitIdle != nil},
		{"CreateFence", t.CreateFence != nil},
		{"DestroyFence", t.DestroyFence != nil},
		{"WaitFence", t.WaitFence != nil},
		{"ResetFence", t.ResetFence != nil},
		{"FenceStatus", t.FenceStatus != nil},
	}
	for _, c := range checks {
		if !c.ok {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return &core.InitializationFailureError{
			Reason: "required operations missing from driver: " + strings.Join(missing, ", "),
		}
	}
	return nil
}
