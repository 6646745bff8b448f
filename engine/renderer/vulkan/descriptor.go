package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

const (
	// Set 0 carries buffers: binding 0 is the uniform slot, the rest are
	// storage. Set 1 carries combined image samplers.
	bufferSet  = 0
	textureSet = 1

	maxBufferBindings  = 16
	maxTextureBindings = 32
)

// descriptorState owns the pool, the two shared set layouts and one set pair
// per command slot. Slot binds write descriptors immediately; the sets are
// (re)bound when a pipeline binds.
type descriptorState struct {
	pool           vk.DescriptorPool
	bufferLayout   vk.DescriptorSetLayout
	textureLayout  vk.DescriptorSetLayout
	pipelineLayout vk.PipelineLayout

	bufferSets  []vk.DescriptorSet
	textureSets []vk.DescriptorSet
	slot        uint32
}

func (d *descriptorState) create(ctx *Context, poolSize uint32) error {
	if poolSize == 0 {
		poolSize = 1024
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       poolSize,
		PoolSizeCount: 3,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: poolSize},
			{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: poolSize},
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: poolSize},
		},
	}
	if res := vk.CreateDescriptorPool(ctx.Device, &poolInfo, ctx.Allocator, &d.pool); res != vk.Success {
		return fmt.Errorf("descriptor pool creation failed: %s", resultString(res))
	}

	bufferBindings := make([]vk.DescriptorSetLayoutBinding, maxBufferBindings)
	for i := range bufferBindings {
		descType := vk.DescriptorTypeStorageBuffer
		if i == 0 {
			descType = vk.DescriptorTypeUniformBuffer
		}
		bufferBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  descType,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllGraphics | vk.ShaderStageComputeBit),
		}
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bufferBindings)),
		PBindings:    bufferBindings,
	}
	if res := vk.CreateDescriptorSetLayout(ctx.Device, &layoutInfo, ctx.Allocator, &d.bufferLayout); res != vk.Success {
		return fmt.Errorf("buffer set layout creation failed: %s", resultString(res))
	}

	textureBindings := make([]vk.DescriptorSetLayoutBinding, maxTextureBindings)
	for i := range textureBindings {
		textureBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit | vk.ShaderStageComputeBit),
		}
	}
	texLayoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(textureBindings)),
		PBindings:    textureBindings,
	}
	if res := vk.CreateDescriptorSetLayout(ctx.Device, &texLayoutInfo, ctx.Allocator, &d.textureLayout); res != vk.Success {
		return fmt.Errorf("texture set layout creation failed: %s", resultString(res))
	}

	pushRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageAllGraphics | vk.ShaderStageComputeBit),
		Size:       128,
	}
	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         2,
		PSetLayouts:            []vk.DescriptorSetLayout{d.bufferLayout, d.textureLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushRange},
	}
	if res := vk.CreatePipelineLayout(ctx.Device, &pipelineLayoutInfo, ctx.Allocator, &d.pipelineLayout); res != vk.Success {
		return fmt.Errorf("pipeline layout creation failed: %s", resultString(res))
	}
	return nil
}

// allocSlots allocates one buffer+texture set pair per command slot.
func (d *descriptorState) allocSlots(ctx *Context, slots uint32) error {
	d.bufferSets = make([]vk.DescriptorSet, slots)
	d.textureSets = make([]vk.DescriptorSet, slots)
	for i := uint32(0); i < slots; i++ {
		var err error
		if d.bufferSets[i], err = d.alloc(ctx, d.bufferLayout); err != nil {
			return err
		}
		if d.textureSets[i], err = d.alloc(ctx, d.textureLayout); err != nil {
			return err
		}
	}
	return nil
}

func (d *descriptorState) alloc(ctx *Context, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, 1)
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	if res := vk.AllocateDescriptorSets(ctx.Device, &allocInfo, &sets[0]); res != vk.Success {
		return nil, fmt.Errorf("descriptor set allocation failed: %s", resultString(res))
	}
	return sets[0], nil
}

func (d *descriptorState) beginSlot(slot uint32) {
	d.slot = slot
}

func (d *descriptorState) writeBuffer(ctx *Context, binding uint32, buf *deviceBuffer, offset, size uint64) error {
	if binding >= maxBufferBindings {
		return fmt.Errorf("buffer binding %d exceeds layout capacity %d", binding, maxBufferBindings)
	}
	if int(d.slot) >= len(d.bufferSets) {
		return fmt.Errorf("descriptor sets not allocated for slot %d", d.slot)
	}
	descType := vk.DescriptorTypeStorageBuffer
	if binding == 0 {
		descType = vk.DescriptorTypeUniformBuffer
	}
	if size == 0 {
		size = buf.size - offset
	}
	vk.UpdateDescriptorSets(ctx.Device, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.bufferSets[d.slot],
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descType,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.buffer,
			Offset: vk.DeviceSize(offset),
			Range:  vk.DeviceSize(size),
		}},
	}}, 0, nil)
	return nil
}

func (d *descriptorState) writeTexture(ctx *Context, binding uint32, tex *deviceTexture) error {
	if binding >= maxTextureBindings {
		return fmt.Errorf("texture binding %d exceeds layout capacity %d", binding, maxTextureBindings)
	}
	if int(d.slot) >= len(d.textureSets) {
		return fmt.Errorf("descriptor sets not allocated for slot %d", d.slot)
	}
	vk.UpdateDescriptorSets(ctx.Device, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.textureSets[d.slot],
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     tex.sampler,
			ImageView:   tex.view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}}, 0, nil)
	return nil
}

func (d *descriptorState) bind(cb vk.CommandBuffer, compute bool) {
	if int(d.slot) >= len(d.bufferSets) {
		return
	}
	bindPoint := vk.PipelineBindPointGraphics
	if compute {
		bindPoint = vk.PipelineBindPointCompute
	}
	vk.CmdBindDescriptorSets(cb, bindPoint, d.pipelineLayout,
		0, 2, []vk.DescriptorSet{d.bufferSets[d.slot], d.textureSets[d.slot]}, 0, nil)
}

func (d *descriptorState) destroy(ctx *Context) {
	if d.pipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(ctx.Device, d.pipelineLayout, ctx.Allocator)
	}
	if d.textureLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(ctx.Device, d.textureLayout, ctx.Allocator)
	}
	if d.bufferLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(ctx.Device, d.bufferLayout, ctx.Allocator)
	}
	if d.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(ctx.Device, d.pool, ctx.Allocator)
	}
}

// --- Proc surfaces. ---

func (b *Backend) bindBuffer(slot uint32, h dispatch.BufferHandle, offset, size uint64) error {
	buf, err := b.lookupBuffer(h)
	if err != nil {
		return err
	}
	return b.descriptors.writeBuffer(b.context, slot, buf, offset, size)
}

func (b *Backend) bindTexture(unit uint32, view dispatch.ViewHandle, sampler dispatch.SamplerHandle) error {
	tex, ok := b.textures[view]
	if !ok {
		return fmt.Errorf("unknown texture view %d", view)
	}
	return b.descriptors.writeTexture(b.context, unit, tex)
}

func (b *Backend) bindDescriptorSet(set uint32, h dispatch.DescriptorSetHandle) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	ds, ok := b.extSets[h]
	if !ok {
		return fmt.Errorf("unknown descriptor set %d", h)
	}
	bindPoint := vk.PipelineBindPointGraphics
	if b.boundCompute {
		bindPoint = vk.PipelineBindPointCompute
	}
	vk.CmdBindDescriptorSets(cb, bindPoint, b.descriptors.pipelineLayout, set, 1, []vk.DescriptorSet{ds}, 0, nil)
	return nil
}

// AllocateDescriptorSet mints an extra set from the shared buffer layout for
// callers that manage their own bindings.
func (b *Backend) AllocateDescriptorSet() (dispatch.DescriptorSetHandle, error) {
	ds, err := b.descriptors.alloc(b.context, b.descriptors.bufferLayout)
	if err != nil {
		return 0, err
	}
	h := dispatch.DescriptorSetHandle(b.handle())
	b.extSets[h] = ds
	return h, nil
}
