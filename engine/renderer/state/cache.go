package state

import (
	"fmt"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// Fixed slot counts. The cache mirrors a bounded amount of GPU-visible state;
// growing these is an ABI-level decision, not a runtime one.
const (
	MaxBufferBindings = 32
	MaxTextureUnits   = 32
	MaxDescriptorSets = 8
	MaxVertexBindings = 8
)

// DirtyFlag marks one dynamic-state category as changed since the last flush.
type DirtyFlag uint32

const (
	DirtyViewport DirtyFlag = 1 << iota
	DirtyScissor
	DirtyDepthBias
	DirtyBlendConstants
	DirtyStencilCompare
	DirtyStencilWrite
	DirtyStencilRef
	DirtyLineWidth

	// Categories below only exist when the active tier has extended dynamic
	// state; without it they are baked pipeline state.
	DirtyCullMode
	DirtyFrontFace
	DirtyTopology
	DirtyDepthTestEnable
	DirtyDepthWriteEnable
	DirtyDepthCompare
)

const (
	dirtyBaseMask DirtyFlag = DirtyViewport | DirtyScissor | DirtyDepthBias |
		DirtyBlendConstants | DirtyStencilCompare | DirtyStencilWrite |
		DirtyStencilRef | DirtyLineWidth
	dirtyExtendedMask DirtyFlag = DirtyCullMode | DirtyFrontFace | DirtyTopology |
		DirtyDepthTestEnable | DirtyDepthWriteEnable | DirtyDepthCompare
)

type bufferBinding struct {
	handle dispatch.BufferHandle
	offset uint64
	size   uint64
}

type textureBinding struct {
	view    dispatch.ViewHandle
	sampler dispatch.SamplerHandle
}

// Cache is the CPU mirror of GPU binding and dynamic state. Every stateful
// call compares against it: unchanged binds are elided entirely, changed
// dynamic state only sets a dirty bit until FlushDirtyState pushes it.
//
// Single render thread only; the owning renderer enforces affinity.
type Cache struct {
	ops      dispatch.OperationSet
	extended bool

	buffers     [MaxBufferBindings]bufferBinding
	bufferKnown [MaxBufferBindings]bool

	textures     [MaxTextureUnits]textureBinding
	textureKnown [MaxTextureUnits]bool

	descriptorSets  [MaxDescriptorSets]dispatch.DescriptorSetHandle
	descriptorKnown [MaxDescriptorSets]bool

	vertexBuffers [MaxVertexBindings]bufferBinding
	vertexKnown   [MaxVertexBindings]bool

	indexBuffer bufferBinding
	indexKnown  bool

	pipeline      dispatch.PipelineHandle
	pipelineKnown bool

	// Packed capability toggles plus a mask of which bits mirror reality.
	caps      uint32
	capsKnown uint32

	viewport           dispatch.Viewport
	scissor            dispatch.Rect2D
	depthBiasConstant  float32
	depthBiasClamp     float32
	depthBiasSlope     float32
	blendConstants     [4]float32
	lineWidth          float32
	stencilCompareMask uint32
	stencilWriteMask   uint32
	stencilRef         uint32
	cullMode           dispatch.CullMode
	frontFace          dispatch.FrontFace
	topology           dispatch.Topology
	depthTestEnable    bool
	depthWriteEnable   bool
	depthCompare       dispatch.CompareOp

	dirty DirtyFlag

	// Elision counters, read by the frame stats.
	BindsIssued uint64
	BindsElided uint64
	Flushes     uint64
}

// NewCache builds a cache over the bound operation set. All state starts
// unknown: the first bind of every slot always reaches the driver.
func NewCache(ops dispatch.OperationSet) *Cache {
	c := &Cache{
		ops:       ops,
		extended:  ops.Supports(dispatch.OpExtendedDynamicState),
		lineWidth: 1,
	}
	c.viewport.MaxDepth = 1
	c.MarkAllDirty()
	return c
}

func (c *Cache) dirtyMask() DirtyFlag {
	if c.extended {
		return dirtyBaseMask | dirtyExtendedMask
	}
	return dirtyBaseMask
}

// Dirty returns the pending dirty set. Mostly useful for diagnostics.
func (c *Cache) Dirty() DirtyFlag {
	return c.dirty
}

// MarkAllDirty flags every dynamic-state category for re-emission. Called at
// the top of every frame: a fresh command buffer has no prior state.
func (c *Cache) MarkAllDirty() {
	c.dirty = c.dirtyMask()
}

// --- Bindings: compare, elide, or issue immediately. ---

func (c *Cache) BindBuffer(slot uint32, h dispatch.BufferHandle, offset, size uint64) error {
	if slot >= MaxBufferBindings {
		return fmt.Errorf("buffer binding slot %d out of range (max %d)", slot, MaxBufferBindings-1)
	}
	next := bufferBinding{handle: h, offset: offset, size: size}
	if c.bufferKnown[slot] && c.buffers[slot] == next {
		c.BindsElided++
		return nil
	}
	if err := c.ops.BindBuffer(slot, h, offset, size); err != nil {
		return err
	}
	c.buffers[slot] = next
	c.bufferKnown[slot] = true
	c.BindsIssued++
	return nil
}

func (c *Cache) BindTexture(unit uint32, view dispatch.ViewHandle, sampler dispatch.SamplerHandle) error {
	if unit >= MaxTextureUnits {
		return fmt.Errorf("texture unit %d out of range (max %d)", unit, MaxTextureUnits-1)
	}
	next := textureBinding{view: view, sampler: sampler}
	if c.textureKnown[unit] && c.textures[unit] == next {
		c.BindsElided++
		return nil
	}
	if err := c.ops.BindTexture(unit, view, sampler); err != nil {
		return err
	}
	c.textures[unit] = next
	c.textureKnown[unit] = true
	c.BindsIssued++
	return nil
}

func (c *Cache) BindDescriptorSet(set uint32, h dispatch.DescriptorSetHandle) error {
	if set >= MaxDescriptorSets {
		return fmt.Errorf("descriptor set %d out of range (max %d)", set, MaxDescriptorSets-1)
	}
	if c.descriptorKnown[set] && c.descriptorSets[set] == h {
		c.BindsElided++
		return nil
	}
	if err := c.ops.BindDescriptorSet(set, h); err != nil {
		return err
	}
	c.descriptorSets[set] = h
	c.descriptorKnown[set] = true
	c.BindsIssued++
	return nil
}

func (c *Cache) BindVertexBuffer(binding uint32, h dispatch.BufferHandle, offset uint64) error {
	if binding >= MaxVertexBindings {
		return fmt.Errorf("vertex binding %d out of range (max %d)", binding, MaxVertexBindings-1)
	}
	next := bufferBinding{handle: h, offset: offset}
	if c.vertexKnown[binding] && c.vertexBuffers[binding] == next {
		c.BindsElided++
		return nil
	}
	if err := c.ops.BindVertexBuffer(binding, h, offset); err != nil {
		return err
	}
	c.vertexBuffers[binding] = next
	c.vertexKnown[binding] = true
	c.BindsIssued++
	return nil
}

func (c *Cache) BindIndexBuffer(h dispatch.BufferHandle, offset uint64) error {
	next := bufferBinding{handle: h, offset: offset}
	if c.indexKnown && c.indexBuffer == next {
		c.BindsElided++
		return nil
	}
	if err := c.ops.BindIndexBuffer(h, offset); err != nil {
		return err
	}
	c.indexBuffer = next
	c.indexKnown = true
	c.BindsIssued++
	return nil
}

func (c *Cache) BindPipeline(h dispatch.PipelineHandle) error {
	if c.pipelineKnown && c.pipeline == h {
		c.BindsElided++
		return nil
	}
	if err := c.ops.BindPipeline(h); err != nil {
		return err
	}
	c.pipeline = h
	c.pipelineKnown = true
	c.BindsIssued++
	return nil
}

// Enable turns a fixed-function capability on, eliding the native call when
// the cached value already matches.
func (c *Cache) Enable(cap dispatch.Capability) error {
	return c.setCapability(cap, true)
}

func (c *Cache) Disable(cap dispatch.Capability) error {
	return c.setCapability(cap, false)
}

func (c *Cache) setCapability(cap dispatch.Capability, enabled bool) error {
	bit := uint32(cap)
	current := c.caps&bit != 0
	if c.capsKnown&bit != 0 && current == enabled {
		c.BindsElided++
		return nil
	}
	if err := c.ops.SetCapability(cap, enabled); err != nil {
		return err
	}
	if enabled {
		c.caps |= bit
	} else {
		c.caps &^= bit
	}
	c.capsKnown |= bit
	c.BindsIssued++
	return nil
}

// Enabled reports the cached value of a capability toggle; the second return
// is false when the toggle has not been set since the last invalidation.
func (c *Cache) Enabled(cap dispatch.Capability) (bool, bool) {
	bit := uint32(cap)
	return c.caps&bit != 0, c.capsKnown&bit != 0
}

// --- Dynamic state: record and mark dirty, flushed before the next draw. ---

func (c *Cache) SetViewport(v dispatch.Viewport) {
	if c.viewport == v {
		return
	}
	c.viewport = v
	c.dirty |= DirtyViewport
}

func (c *Cache) SetScissor(r dispatch.Rect2D) {
	if c.scissor == r {
		return
	}
	c.scissor = r
	c.dirty |= DirtyScissor
}

func (c *Cache) SetDepthBias(constant, clamp, slope float32) {
	if c.depthBiasConstant == constant && c.depthBiasClamp == clamp && c.depthBiasSlope == slope {
		return
	}
	c.depthBiasConstant, c.depthBiasClamp, c.depthBiasSlope = constant, clamp, slope
	c.dirty |= DirtyDepthBias
}

func (c *Cache) SetBlendConstants(rgba [4]float32) {
	if c.blendConstants == rgba {
		return
	}
	c.blendConstants = rgba
	c.dirty |= DirtyBlendConstants
}

func (c *Cache) SetLineWidth(w float32) {
	if c.lineWidth == w {
		return
	}
	c.lineWidth = w
	c.dirty |= DirtyLineWidth
}

func (c *Cache) SetStencilCompareMask(mask uint32) {
	if c.stencilCompareMask == mask {
		return
	}
	c.stencilCompareMask = mask
	c.dirty |= DirtyStencilCompare
}

func (c *Cache) SetStencilWriteMask(mask uint32) {
	if c.stencilWriteMask == mask {
		return
	}
	c.stencilWriteMask = mask
	c.dirty |= DirtyStencilWrite
}

func (c *Cache) SetStencilReference(ref uint32) {
	if c.stencilRef == ref {
		return
	}
	c.stencilRef = ref
	c.dirty |= DirtyStencilRef
}

// Extended dynamic state setters. Without tier support the value is pushed
// straight to the gated operation instead of the dirty set, so the strict/
// lenient policy applies exactly as for any other optional operation.

func (c *Cache) SetCullMode(m dispatch.CullMode) error {
	if !c.extended {
		return c.ops.SetCullMode(m)
	}
	if c.cullMode != m {
		c.cullMode = m
		c.dirty |= DirtyCullMode
	}
	return nil
}

func (c *Cache) SetFrontFace(f dispatch.FrontFace) error {
	if !c.extended {
		return c.ops.SetFrontFace(f)
	}
	if c.frontFace != f {
		c.frontFace = f
		c.dirty |= DirtyFrontFace
	}
	return nil
}

func (c *Cache) SetPrimitiveTopology(t dispatch.Topology) error {
	if !c.extended {
		return c.ops.SetPrimitiveTopology(t)
	}
	if c.topology != t {
		c.topology = t
		c.dirty |= DirtyTopology
	}
	return nil
}

func (c *Cache) SetDepthTestEnable(enabled bool) error {
	if !c.extended {
		return c.ops.SetDepthTestEnable(enabled)
	}
	if c.depthTestEnable != enabled {
		c.depthTestEnable = enabled
		c.dirty |= DirtyDepthTestEnable
	}
	return nil
}

func (c *Cache) SetDepthWriteEnable(enabled bool) error {
	if !c.extended {
		return c.ops.SetDepthWriteEnable(enabled)
	}
	if c.depthWriteEnable != enabled {
		c.depthWriteEnable = enabled
		c.dirty |= DirtyDepthWriteEnable
	}
	return nil
}

func (c *Cache) SetDepthCompareOp(op dispatch.CompareOp) error {
	if !c.extended {
		return c.ops.SetDepthCompareOp(op)
	}
	if c.depthCompare != op {
		c.depthCompare = op
		c.dirty |= DirtyDepthCompare
	}
	return nil
}

// FlushDirtyState emits exactly one native call per dirty category using the
// cached values, then clears every dirty bit. Called by the recorder
// immediately before any draw or dispatch.
func (c *Cache) FlushDirtyState() error {
	if c.dirty == 0 {
		return nil
	}
	c.Flushes++

	type flushStep struct {
		flag DirtyFlag
		emit func() error
	}
	steps := []flushStep{
		{DirtyViewport, func() error { return c.ops.SetViewport(c.viewport) }},
		{DirtyScissor, func() error { return c.ops.SetScissor(c.scissor) }},
		{DirtyDepthBias, func() error {
			return c.ops.SetDepthBias(c.depthBiasConstant, c.depthBiasClamp, c.depthBiasSlope)
		}},
		{DirtyBlendConstants, func() error { return c.ops.SetBlendConstants(c.blendConstants) }},
		{DirtyStencilCompare, func() error { return c.ops.SetStencilCompareMask(c.stencilCompareMask) }},
		{DirtyStencilWrite, func() error { return c.ops.SetStencilWriteMask(c.stencilWriteMask) }},
		{DirtyStencilRef, func() error { return c.ops.SetStencilReference(c.stencilRef) }},
		{DirtyLineWidth, func() error { return c.ops.SetLineWidth(c.lineWidth) }},
	}
	if c.extended {
		steps = append(steps,
			flushStep{DirtyCullMode, func() error { return c.ops.SetCullMode(c.cullMode) }},
			flushStep{DirtyFrontFace, func() error { return c.ops.SetFrontFace(c.frontFace) }},
			flushStep{DirtyTopology, func() error { return c.ops.SetPrimitiveTopology(c.topology) }},
			flushStep{DirtyDepthTestEnable, func() error { return c.ops.SetDepthTestEnable(c.depthTestEnable) }},
			flushStep{DirtyDepthWriteEnable, func() error { return c.ops.SetDepthWriteEnable(c.depthWriteEnable) }},
			flushStep{DirtyDepthCompare, func() error { return c.ops.SetDepthCompareOp(c.depthCompare) }},
		)
	}

	for _, s := range steps {
		if c.dirty&s.flag == 0 {
			continue
		}
		if err := s.emit(); err != nil {
			return err
		}
	}
	c.dirty = 0
	return nil
}

// --- Invalidation: native state changed behind the cache's back. ---

// InvalidateAll resets every binding slot to unknown and marks all dynamic
// state dirty. Required after context loss or capability re-detection.
func (c *Cache) InvalidateAll() {
	c.InvalidateBufferBindings()
	c.InvalidateTextureBindings()
	c.InvalidateDescriptorSets()
	c.InvalidatePipelines()
	for i := range c.vertexKnown {
		c.vertexKnown[i] = false
	}
	c.indexKnown = false
	c.capsKnown = 0
	c.MarkAllDirty()
}

func (c *Cache) InvalidateBufferBindings() {
	for i := range c.bufferKnown {
		c.bufferKnown[i] = false
	}
}

func (c *Cache) InvalidateTextureBindings() {
	for i := range c.textureKnown {
		c.textureKnown[i] = false
	}
}

func (c *Cache) InvalidateDescriptorSets() {
	for i := range c.descriptorKnown {
		c.descriptorKnown[i] = false
	}
}

func (c *Cache) InvalidatePipelines() {
	c.pipelineKnown = false
}
