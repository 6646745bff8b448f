package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

type deviceFence struct {
	handle vk.Fence
}

func (b *Backend) createFence(signaled bool) (dispatch.FenceHandle, error) {
	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if res := vk.CreateFence(b.context.Device, &createInfo, b.context.Allocator, &fence); res != vk.Success {
		return 0, fmt.Errorf("fence creation failed: %s", resultString(res))
	}
	h := dispatch.FenceHandle(b.handle())
	b.fences[h] = &deviceFence{handle: fence}
	return h, nil
}

func (b *Backend) lookupFence(h dispatch.FenceHandle) (*deviceFence, error) {
	f, ok := b.fences[h]
	if !ok {
		return nil, fmt.Errorf("unknown fence %d", h)
	}
	return f, nil
}

func (b *Backend) destroyFence(h dispatch.FenceHandle) error {
	f, err := b.lookupFence(h)
	if err != nil {
		return err
	}
	vk.DestroyFence(b.context.Device, f.handle, b.context.Allocator)
	delete(b.fences, h)
	return nil
}

func (b *Backend) waitFence(h dispatch.FenceHandle, timeoutNs uint64) error {
	f, err := b.lookupFence(h)
	if err != nil {
		return err
	}
	switch res := vk.WaitForFences(b.context.Device, 1, []vk.Fence{f.handle}, vk.True, timeoutNs); res {
	case vk.Success:
		return nil
	case vk.Timeout:
		core.LogWarn("fence %d wait timed out", h)
		return fmt.Errorf("fence wait timed out")
	default:
		return fmt.Errorf("fence wait failed: %s", resultString(res))
	}
}

func (b *Backend) resetFence(h dispatch.FenceHandle) error {
	f, err := b.lookupFence(h)
	if err != nil {
		return err
	}
	if res := vk.ResetFences(b.context.Device, 1, []vk.Fence{f.handle}); res != vk.Success {
		return fmt.Errorf("fence reset failed: %s", resultString(res))
	}
	return nil
}

func (b *Backend) fenceStatus(h dispatch.FenceHandle) (bool, error) {
	f, err := b.lookupFence(h)
	if err != nil {
		return false, err
	}
	switch res := vk.GetFenceStatus(b.context.Device, f.handle); res {
	case vk.Success:
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, fmt.Errorf("fence status query failed: %s", resultString(res))
	}
}
