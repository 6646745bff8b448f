package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

type deviceTexture struct {
	image   vk.Image
	memory  vk.DeviceMemory
	view    vk.ImageView
	sampler vk.Sampler
	format  vk.Format
	width   uint32
	height  uint32
	alloc   uint64
}

func textureFormat(f dispatch.TextureFormat) (vk.Format, vk.ImageAspectFlagBits) {
	switch f {
	case dispatch.TextureFormatBGRA8:
		return vk.FormatB8g8r8a8Unorm, vk.ImageAspectColorBit
	case dispatch.TextureFormatDepth32F:
		return vk.FormatD32Sfloat, vk.ImageAspectDepthBit
	case dispatch.TextureFormatDepth24Stencil8:
		return vk.FormatD24UnormS8Uint, vk.ImageAspectDepthBit
	default:
		return vk.FormatR8g8b8a8Unorm, vk.ImageAspectColorBit
	}
}

func (b *Backend) genTexture(width, height uint32, format dispatch.TextureFormat, pixels []byte) (dispatch.ViewHandle, dispatch.SamplerHandle, error) {
	ctx := b.context
	vkFormat, aspect := textureFormat(format)

	usage := vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit)
	if aspect == vk.ImageAspectColorBit {
		usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	} else {
		usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}

	var image vk.Image
	imageInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vkFormat,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if res := vk.CreateImage(ctx.Device, &imageInfo, ctx.Allocator, &image); res != vk.Success {
		return 0, 0, fmt.Errorf("image creation failed: %s", resultString(res))
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(ctx.Device, image, &memReqs)
	memReqs.Deref()

	if !b.fitsBudget(uint64(memReqs.Size)) {
		vk.DestroyImage(ctx.Device, image, ctx.Allocator)
		return 0, 0, &core.CapacityExceededError{What: "device memory budget (MB)", Limit: uint32(b.budgetMB)}
	}

	memType := ctx.FindMemoryIndex(memReqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if memType < 0 {
		vk.DestroyImage(ctx.Device, image, ctx.Allocator)
		return 0, 0, fmt.Errorf("no device-local memory type for image")
	}

	var memory vk.DeviceMemory
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memType),
	}
	if res := vk.AllocateMemory(ctx.Device, &allocInfo, ctx.Allocator, &memory); res != vk.Success {
		vk.DestroyImage(ctx.Device, image, ctx.Allocator)
		return 0, 0, fmt.Errorf("image memory allocation failed: %s", resultString(res))
	}
	vk.BindImageMemory(ctx.Device, image, memory, 0)

	var view vk.ImageView
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   vkFormat,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if res := vk.CreateImageView(ctx.Device, &viewInfo, ctx.Allocator, &view); res != vk.Success {
		vk.FreeMemory(ctx.Device, memory, ctx.Allocator)
		vk.DestroyImage(ctx.Device, image, ctx.Allocator)
		return 0, 0, fmt.Errorf("image view creation failed: %s", resultString(res))
	}

	var sampler vk.Sampler
	samplerInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		MipmapMode:   vk.SamplerMipmapModeLinear,
	}
	if res := vk.CreateSampler(ctx.Device, &samplerInfo, ctx.Allocator, &sampler); res != vk.Success {
		vk.DestroyImageView(ctx.Device, view, ctx.Allocator)
		vk.FreeMemory(ctx.Device, memory, ctx.Allocator)
		vk.DestroyImage(ctx.Device, image, ctx.Allocator)
		return 0, 0, fmt.Errorf("sampler creation failed: %s", resultString(res))
	}

	tex := &deviceTexture{
		image: image, memory: memory, view: view, sampler: sampler,
		format: vkFormat, width: width, height: height,
		alloc: uint64(memReqs.Size),
	}

	if len(pixels) > 0 && aspect == vk.ImageAspectColorBit {
		if err := b.uploadPixels(tex, pixels); err != nil {
			tex.destroy(ctx)
			return 0, 0, err
		}
	}

	viewHandle := dispatch.ViewHandle(b.handle())
	samplerHandle := dispatch.SamplerHandle(b.handle())
	b.textures[viewHandle] = tex
	b.memoryInUse += tex.alloc
	return viewHandle, samplerHandle, nil
}

// uploadPixels stages the pixel data and copies it with a one-time command
// buffer, transitioning undefined -> transfer -> shader-read. The persistent
// staging buffer is reused when the data fits; oversized uploads get a
// transient one.
func (b *Backend) uploadPixels(tex *deviceTexture, pixels []byte) error {
	ctx := b.context

	staging := b.staging
	if staging == 0 || uint64(len(pixels)) > b.stagingSize {
		transient, err := b.genBuffer(uint64(len(pixels)), dispatch.BufferUsageStaging, "texture-staging")
		if err != nil {
			return err
		}
		defer func() {
			if derr := b.deleteBuffer(transient); derr != nil {
				core.LogError("staging buffer cleanup failed: %s", derr)
			}
		}()
		staging = transient
	}
	if err := b.upload(staging, 0, pixels); err != nil {
		return err
	}
	stagingBuf := b.buffers[staging]

	cmd, err := b.beginOneTime()
	if err != nil {
		return err
	}

	subresource := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
			OldLayout:           vk.ImageLayoutUndefined,
			NewLayout:           vk.ImageLayoutTransferDstOptimal,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               tex.image,
			SubresourceRange:    subresource,
		}})

	vk.CmdCopyBufferToImage(cmd, stagingBuf.buffer, tex.image, vk.ImageLayoutTransferDstOptimal, 1,
		[]vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: tex.width, Height: tex.height, Depth: 1},
		}})

	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
			OldLayout:           vk.ImageLayoutTransferDstOptimal,
			NewLayout:           vk.ImageLayoutShaderReadOnlyOptimal,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               tex.image,
			SubresourceRange:    subresource,
		}})

	return b.endOneTime(cmd)
}

func (b *Backend) deleteTexture(view dispatch.ViewHandle) error {
	tex, ok := b.textures[view]
	if !ok {
		return &core.ResourceNotFoundError{Kind: "texture", Handle: uint64(view)}
	}
	tex.destroy(b.context)
	delete(b.textures, view)
	b.memoryInUse -= tex.alloc
	return nil
}

func (dt *deviceTexture) destroy(ctx *Context) {
	vk.DestroySampler(ctx.Device, dt.sampler, ctx.Allocator)
	vk.DestroyImageView(ctx.Device, dt.view, ctx.Allocator)
	vk.FreeMemory(ctx.Device, dt.memory, ctx.Allocator)
	vk.DestroyImage(ctx.Device, dt.image, ctx.Allocator)
}
