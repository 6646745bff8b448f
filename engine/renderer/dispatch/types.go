package dispatch

// Opaque native handles. Zero is the null handle for every family.
type (
	BufferHandle        uint64
	TextureHandle       uint64
	ViewHandle          uint64
	SamplerHandle       uint64
	FenceHandle         uint64
	TimelineHandle      uint64
	ShaderModuleHandle  uint64
	PipelineHandle      uint64
	DescriptorSetHandle uint64
)

// BufferUsage is a bitmask of intended buffer uses.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
	BufferUsageStaging
	// BufferUsageHostVisible requests persistently mappable memory.
	BufferUsageHostVisible
)

// Capability is a togglable fixed-function switch mirrored by the state cache.
type Capability uint32

const (
	CapDepthTest Capability = 1 << iota
	CapDepthWrite
	CapStencilTest
	CapBlend
	CapCullFace
	CapScissorTest
	CapDepthBounds
	CapDepthBiasEnable
	CapPrimitiveRestart
	CapRasterizerDiscard
)

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

type FrontFace uint8

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

type CompareOp uint8

const (
	CompareOpNever CompareOp = iota
	CompareOpLess
	CompareOpEqual
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpNotEqual
	CompareOpGreaterOrEqual
	CompareOpAlways
)

type TextureFormat uint8

const (
	TextureFormatRGBA8 TextureFormat = iota
	TextureFormatBGRA8
	TextureFormatDepth32F
	TextureFormatDepth24Stencil8
)

// StageMask and AccessMask use the enhanced 64-bit layout. The legacy barrier
// entry point truncates them to the low 32 bits, which covers every legacy
// stage/access bit.
type StageMask uint64

const (
	StageTopOfPipe     StageMask = 1 << 0
	StageDrawIndirect  StageMask = 1 << 1
	StageVertexInput   StageMask = 1 << 2
	StageVertexShader  StageMask = 1 << 3
	StageFragment      StageMask = 1 << 7
	StageColorOutput   StageMask = 1 << 10
	StageCompute       StageMask = 1 << 11
	StageTransfer      StageMask = 1 << 12
	StageBottomOfPipe  StageMask = 1 << 13
	StageAllCommands   StageMask = 1 << 16
	StageTaskShaderEXT StageMask = 1 << 37
	StageMeshShaderEXT StageMask = 1 << 38
)

type AccessMask uint64

const (
	AccessIndirectCommandRead AccessMask = 1 << 0
	AccessIndexRead           AccessMask = 1 << 1
	AccessVertexAttribRead    AccessMask = 1 << 2
	AccessUniformRead         AccessMask = 1 << 3
	AccessShaderRead          AccessMask = 1 << 5
	AccessShaderWrite         AccessMask = 1 << 6
	AccessColorWrite          AccessMask = 1 << 8
	AccessTransferRead        AccessMask = 1 << 11
	AccessTransferWrite       AccessMask = 1 << 12
	AccessMemoryRead          AccessMask = 1 << 15
	AccessMemoryWrite         AccessMask = 1 << 16
)

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type Rect2D struct {
	X, Y          int32
	Width, Height uint32
}

// RenderPassDesc describes attachments inline. The same descriptor feeds both
// the legacy render-pass path and the dynamic-rendering path; the caller never
// picks the path.
type RenderPassDesc struct {
	ColorViews   []ViewHandle
	DepthView    ViewHandle
	RenderArea   Rect2D
	ClearColor   [4]float32
	ClearDepth   float32
	ClearStencil uint32
	DoClearColor bool
	DoClearDepth bool
}

// PipelineDesc is the minimal pipeline surface this core needs: precompiled
// modules only, no source text.
type PipelineDesc struct {
	Compute  bool
	Modules  []ShaderModuleHandle
	Topology Topology
	Name     string
}

// SubmitInfo names the sync primitive a submission signals: a fence in fence
// mode, a timeline value in timeline mode. Exactly one is used per submit.
type SubmitInfo struct {
	Fence       FenceHandle
	Timeline    TimelineHandle
	SignalValue uint64
}
