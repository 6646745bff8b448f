package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Context bundles the per-device Vulkan objects every proc needs.
type Context struct {
	Instance       vk.Instance
	Allocator      *vk.AllocationCallbacks
	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device

	GraphicsQueueIndex uint32
	GraphicsQueue      vk.Queue

	CommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	debugMessenger vk.DebugReportCallback
}

// FindMemoryIndex locates a memory type matching typeFilter and the property
// flags, or -1 when the device has none.
func (c *Context) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	c.Memory.Deref()
	for i := uint32(0); i < c.Memory.MemoryTypeCount; i++ {
		c.Memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && (c.Memory.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	return -1
}
