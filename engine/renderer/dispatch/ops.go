package dispatch

import "github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"

// OptionalOp identifies an operation a tier may or may not provide.
// Availability is probed once at tier construction and cached; it is never
// re-probed per call.
type OptionalOp uint8

const (
	OpMapRange OptionalOp = iota
	OpBufferDeviceAddress
	OpMultiDrawIndirect
	OpDrawIndexedIndirectCount
	OpDrawMeshTasks
	OpTimelineSemaphore
	OpDynamicRendering
	OpEnhancedBarriers
	OpExtendedDynamicState
	OpBindlessDescriptors
	opCount
)

func (o OptionalOp) String() string {
	switch o {
	case OpMapRange:
		return "MapRange"
	case OpBufferDeviceAddress:
		return "BufferDeviceAddress"
	case OpMultiDrawIndirect:
		return "MultiDrawIndirect"
	case OpDrawIndexedIndirectCount:
		return "DrawIndexedIndirectCount"
	case OpDrawMeshTasks:
		return "DrawMeshTasks"
	case OpTimelineSemaphore:
		return "TimelineSemaphore"
	case OpDynamicRendering:
		return "DynamicRendering"
	case OpEnhancedBarriers:
		return "EnhancedBarriers"
	case OpExtendedDynamicState:
		return "ExtendedDynamicState"
	case OpBindlessDescriptors:
		return "BindlessDescriptors"
	default:
		return "Unknown"
	}
}

// OperationSet is the uniform operation surface every tier exposes. Required
// operations always reach the native driver. Optional operations are gated:
// in strict mode an unavailable one fails with UnsupportedCapability, in
// lenient mode it silently returns a neutral value.
type OperationSet interface {
	Tier() capability.Version
	Supports(op OptionalOp) bool

	// Buffers.
	GenBuffer(size uint64, usage BufferUsage, name string) (BufferHandle, error)
	DeleteBuffer(h BufferHandle) error
	Upload(h BufferHandle, offset uint64, data []byte) error
	Map(h BufferHandle) ([]byte, error)
	Unmap(h BufferHandle) error
	MapRange(h BufferHandle, offset, size uint64) ([]byte, error)
	BufferDeviceAddress(h BufferHandle) (uint64, error)

	// Textures.
	GenTexture(width, height uint32, format TextureFormat, pixels []byte) (ViewHandle, SamplerHandle, error)
	DeleteTexture(view ViewHandle) error

	// Binds (callers go through the state cache, which elides redundancy).
	BindBuffer(slot uint32, h BufferHandle, offset, size uint64) error
	BindTexture(unit uint32, view ViewHandle, sampler SamplerHandle) error
	BindVertexBuffer(binding uint32, h BufferHandle, offset uint64) error
	BindIndexBuffer(h BufferHandle, offset uint64) error
	BindPipeline(h PipelineHandle) error
	BindDescriptorSet(set uint32, h DescriptorSetHandle) error
	SetCapability(cap Capability, enabled bool) error

	// Dynamic state.
	SetViewport(v Viewport) error
	SetScissor(r Rect2D) error
	SetDepthBias(constant, clamp, slope float32) error
	SetBlendConstants(rgba [4]float32) error
	SetLineWidth(w float32) error
	SetStencilCompareMask(mask uint32) error
	SetStencilWriteMask(mask uint32) error
	SetStencilReference(ref uint32) error
	SetCullMode(m CullMode) error
	SetFrontFace(f FrontFace) error
	SetPrimitiveTopology(t Topology) error
	SetDepthTestEnable(enabled bool) error
	SetDepthWriteEnable(enabled bool) error
	SetDepthCompareOp(op CompareOp) error

	// Draw / dispatch.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error
	DrawIndexedIndirect(buf BufferHandle, offset uint64, drawCount, stride uint32) error
	DrawIndexedIndirectCount(buf BufferHandle, offset uint64, countBuf BufferHandle, countOffset uint64, maxDrawCount, stride uint32) error
	DrawMeshTasks(x, y, z uint32) error
	Dispatch(x, y, z uint32) error

	// Shader modules / pipelines.
	CreateShaderModule(code []byte, entry string) (ShaderModuleHandle, error)
	DestroyShaderModule(h ShaderModuleHandle) error
	CreatePipeline(desc PipelineDesc) (PipelineHandle, error)
	DestroyPipeline(h PipelineHandle) error

	// Passes / barriers.
	BeginRenderPass(desc RenderPassDesc) error
	EndRenderPass() error
	BeginRendering(desc RenderPassDesc) error
	EndRendering() error
	PipelineBarrier(src, dst StageMask, srcAccess, dstAccess AccessMask) error
	PipelineBarrier2(src, dst StageMask, srcAccess, dstAccess AccessMask) error

	// Bindless.
	WriteBindlessTexture(index uint32, view ViewHandle, sampler SamplerHandle) error

	// Command buffers / submission.
	BeginCommands(slot uint32) error
	EndCommands(slot uint32) error
	Submit(slot uint32, info SubmitInfo) error
	DeviceWaitIdle() error

	// Sync.
	CreateFence(signaled bool) (FenceHandle, error)
	DestroyFence(h FenceHandle) error
	WaitFence(h FenceHandle, timeoutNs uint64) error
	ResetFence(h FenceHandle) error
	FenceStatus(h FenceHandle) (bool, error)
	CreateTimelineSemaphore(initial uint64) (TimelineHandle, error)
	DestroyTimelineSemaphore(h TimelineHandle) error
	SignalTimeline(h TimelineHandle, value uint64) error
	WaitTimeline(h TimelineHandle, value, timeoutNs uint64) error
	TimelineValue(h TimelineHandle) (uint64, error)
}
