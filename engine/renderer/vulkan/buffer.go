package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// deviceBuffer keeps every buffer host-visible and persistently mapped. The
// engine streams indirect records and instances every frame, so the mapped
// path is the hot one; device-local staging is not worth the copy here.
type deviceBuffer struct {
	buffer vk.Buffer
	memory vk.DeviceMemory
	size   uint64
	alloc  uint64
	mapped []byte
	name   string
}

func usageFlags(usage dispatch.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if usage&dispatch.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if usage&dispatch.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if usage&dispatch.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if usage&dispatch.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if usage&dispatch.BufferUsageIndirect != 0 {
		flags |= vk.BufferUsageIndirectBufferBit
	}
	if usage&dispatch.BufferUsageStaging != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	return vk.BufferUsageFlags(flags | vk.BufferUsageTransferDstBit)
}

func (b *Backend) genBuffer(size uint64, usage dispatch.BufferUsage, name string) (dispatch.BufferHandle, error) {
	ctx := b.context

	var buffer vk.Buffer
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(ctx.Device, &createInfo, ctx.Allocator, &buffer); res != vk.Success {
		return 0, fmt.Errorf("buffer %q creation failed: %s", name, resultString(res))
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(ctx.Device, buffer, &memReqs)
	memReqs.Deref()

	if !b.fitsBudget(uint64(memReqs.Size)) {
		vk.DestroyBuffer(ctx.Device, buffer, ctx.Allocator)
		return 0, &core.CapacityExceededError{What: "device memory budget (MB)", Limit: uint32(b.budgetMB)}
	}

	props := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	memType := ctx.FindMemoryIndex(memReqs.MemoryTypeBits, props)
	if memType < 0 {
		vk.DestroyBuffer(ctx.Device, buffer, ctx.Allocator)
		return 0, fmt.Errorf("no host-visible memory type for buffer %q", name)
	}

	var memory vk.DeviceMemory
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memType),
	}
	if res := vk.AllocateMemory(ctx.Device, &allocInfo, ctx.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(ctx.Device, buffer, ctx.Allocator)
		return 0, fmt.Errorf("memory allocation for buffer %q failed: %s", name, resultString(res))
	}
	vk.BindBufferMemory(ctx.Device, buffer, memory, 0)

	var ptr unsafe.Pointer
	if res := vk.MapMemory(ctx.Device, memory, 0, vk.DeviceSize(size), 0, &ptr); res != vk.Success {
		vk.FreeMemory(ctx.Device, memory, ctx.Allocator)
		vk.DestroyBuffer(ctx.Device, buffer, ctx.Allocator)
		return 0, fmt.Errorf("mapping buffer %q failed: %s", name, resultString(res))
	}

	h := dispatch.BufferHandle(b.handle())
	b.buffers[h] = &deviceBuffer{
		buffer: buffer,
		memory: memory,
		size:   size,
		alloc:  uint64(memReqs.Size),
		mapped: unsafe.Slice((*byte)(ptr), size),
		name:   name,
	}
	b.memoryInUse += uint64(memReqs.Size)
	return h, nil
}

func (b *Backend) lookupBuffer(h dispatch.BufferHandle) (*deviceBuffer, error) {
	buf, ok := b.buffers[h]
	if !ok {
		return nil, &core.ResourceNotFoundError{Kind: "buffer", Handle: uint64(h)}
	}
	return buf, nil
}

func (b *Backend) deleteBuffer(h dispatch.BufferHandle) error {
	buf, err := b.lookupBuffer(h)
	if err != nil {
		return err
	}
	buf.destroy(b.context)
	delete(b.buffers, h)
	b.memoryInUse -= buf.alloc
	return nil
}

func (db *deviceBuffer) destroy(ctx *Context) {
	if db.mapped != nil {
		vk.UnmapMemory(ctx.Device, db.memory)
		db.mapped = nil
	}
	vk.FreeMemory(ctx.Device, db.memory, ctx.Allocator)
	vk.DestroyBuffer(ctx.Device, db.buffer, ctx.Allocator)
}

func (b *Backend) upload(h dispatch.BufferHandle, offset uint64, data []byte) error {
	buf, err := b.lookupBuffer(h)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > buf.size {
		return fmt.Errorf("upload to %q out of range: %d+%d > %d", buf.name, offset, len(data), buf.size)
	}
	copy(buf.mapped[offset:], data)
	return nil
}

func (b *Backend) mapBuffer(h dispatch.BufferHandle) ([]byte, error) {
	buf, err := b.lookupBuffer(h)
	if err != nil {
		return nil, err
	}
	return buf.mapped, nil
}

func (b *Backend) unmap(h dispatch.BufferHandle) error {
	// Memory stays persistently mapped until the buffer dies.
	_, err := b.lookupBuffer(h)
	return err
}

func (b *Backend) mapRange(h dispatch.BufferHandle, offset, size uint64) ([]byte, error) {
	buf, err := b.lookupBuffer(h)
	if err != nil {
		return nil, err
	}
	if offset+size > buf.size {
		return nil, fmt.Errorf("map range on %q out of bounds: %d+%d > %d", buf.name, offset, size, buf.size)
	}
	return buf.mapped[offset : offset+size], nil
}
