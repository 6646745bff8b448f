package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

type framebufferKey struct {
	color    dispatch.ViewHandle
	depth    dispatch.ViewHandle
	whExtent uint64
}

// passCache holds the canonical render passes (one color+depth, one
// color-only) and the framebuffers minted against them. Attachment formats
// are fixed at RGBA8 / D32 to keep every pipeline pass-compatible.
type passCache struct {
	colorDepth   vk.RenderPass
	colorOnly    vk.RenderPass
	framebuffers map[framebufferKey]vk.Framebuffer
}

func (p *passCache) init(ctx *Context) {
	p.framebuffers = make(map[framebufferKey]vk.Framebuffer)
}

func (p *passCache) canonicalPass(ctx *Context) (vk.RenderPass, error) {
	return p.pass(ctx, true)
}

func (p *passCache) pass(ctx *Context, withDepth bool) (vk.RenderPass, error) {
	if withDepth && p.colorDepth != vk.NullRenderPass {
		return p.colorDepth, nil
	}
	if !withDepth && p.colorOnly != vk.NullRenderPass {
		return p.colorOnly, nil
	}

	attachments := []vk.AttachmentDescription{{
		Format:         vk.FormatR8g8b8a8Unorm,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}}

	colorRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorRef},
	}

	if withDepth {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         vk.FormatD32Sfloat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pass vk.RenderPass
	if res := vk.CreateRenderPass(ctx.Device, &createInfo, ctx.Allocator, &pass); res != vk.Success {
		return vk.NullRenderPass, fmt.Errorf("render pass creation failed: %s", resultString(res))
	}
	if withDepth {
		p.colorDepth = pass
	} else {
		p.colorOnly = pass
	}
	return pass, nil
}

func (p *passCache) destroy(ctx *Context) {
	for _, fb := range p.framebuffers {
		vk.DestroyFramebuffer(ctx.Device, fb, ctx.Allocator)
	}
	p.framebuffers = nil
	if p.colorDepth != vk.NullRenderPass {
		vk.DestroyRenderPass(ctx.Device, p.colorDepth, ctx.Allocator)
		p.colorDepth = vk.NullRenderPass
	}
	if p.colorOnly != vk.NullRenderPass {
		vk.DestroyRenderPass(ctx.Device, p.colorOnly, ctx.Allocator)
		p.colorOnly = vk.NullRenderPass
	}
}

func (b *Backend) framebufferFor(desc dispatch.RenderPassDesc, pass vk.RenderPass) (vk.Framebuffer, error) {
	if len(desc.ColorViews) == 0 {
		return vk.NullFramebuffer, fmt.Errorf("render pass needs at least one color attachment")
	}
	key := framebufferKey{
		color:    desc.ColorViews[0],
		depth:    desc.DepthView,
		whExtent: uint64(desc.RenderArea.Width)<<32 | uint64(desc.RenderArea.Height),
	}
	if fb, ok := b.passes.framebuffers[key]; ok {
		return fb, nil
	}

	views := make([]vk.ImageView, 0, 2)
	colorTex, ok := b.textures[desc.ColorViews[0]]
	if !ok {
		return vk.NullFramebuffer, fmt.Errorf("unknown color attachment view %d", desc.ColorViews[0])
	}
	views = append(views, colorTex.view)
	if desc.DepthView != 0 {
		depthTex, ok := b.textures[desc.DepthView]
		if !ok {
			return vk.NullFramebuffer, fmt.Errorf("unknown depth attachment view %d", desc.DepthView)
		}
		views = append(views, depthTex.view)
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.RenderArea.Width,
		Height:          desc.RenderArea.Height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(b.context.Device, &createInfo, b.context.Allocator, &fb); res != vk.Success {
		return vk.NullFramebuffer, fmt.Errorf("framebuffer creation failed: %s", resultString(res))
	}
	b.passes.framebuffers[key] = fb
	return fb, nil
}

func (b *Backend) beginRenderPass(desc dispatch.RenderPassDesc) error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	withDepth := desc.DepthView != 0
	pass, err := b.passes.pass(b.context, withDepth)
	if err != nil {
		return err
	}
	fb, err := b.framebufferFor(desc, pass)
	if err != nil {
		return err
	}

	clearValues := make([]vk.ClearValue, 0, 2)
	var color vk.ClearValue
	color.SetColor(desc.ClearColor[:])
	clearValues = append(clearValues, color)
	if withDepth {
		var depth vk.ClearValue
		depth.SetDepthStencil(desc.ClearDepth, desc.ClearStencil)
		clearValues = append(clearValues, depth)
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: desc.RenderArea.X, Y: desc.RenderArea.Y},
			Extent: vk.Extent2D{Width: desc.RenderArea.Width, Height: desc.RenderArea.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb, &beginInfo, vk.SubpassContentsInline)
	return nil
}

func (b *Backend) endRenderPass() error {
	cb, err := b.cmd()
	if err != nil {
		return err
	}
	vk.CmdEndRenderPass(cb)
	return nil
}
