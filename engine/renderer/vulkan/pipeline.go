package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

type deviceModule struct {
	module vk.ShaderModule
	entry  string
}

type devicePipeline struct {
	pipeline vk.Pipeline
	compute  bool
}

func (dp *devicePipeline) destroy(ctx *Context) {
	vk.DestroyPipeline(ctx.Device, dp.pipeline, ctx.Allocator)
}

func (b *Backend) createShaderModule(code []byte, entry string) (dispatch.ShaderModuleHandle, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return 0, fmt.Errorf("shader byte code length %d is not a SPIR-V word multiple", len(code))
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(b.context.Device, &createInfo, b.context.Allocator, &module); res != vk.Success {
		return 0, fmt.Errorf("shader module creation failed: %s", resultString(res))
	}
	if entry == "" {
		entry = "main"
	}
	h := dispatch.ShaderModuleHandle(b.handle())
	b.modules[h] = &deviceModule{module: module, entry: entry}
	return h, nil
}

func (b *Backend) destroyShaderModule(h dispatch.ShaderModuleHandle) error {
	m, ok := b.modules[h]
	if !ok {
		return fmt.Errorf("unknown shader module %d", h)
	}
	vk.DestroyShaderModule(b.context.Device, m.module, b.context.Allocator)
	delete(b.modules, h)
	return nil
}

func vkTopology(t dispatch.Topology) vk.PrimitiveTopology {
	switch t {
	case dispatch.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case dispatch.TopologyLineList:
		return vk.PrimitiveTopologyLineList
	case dispatch.TopologyPointList:
		return vk.PrimitiveTopologyPointList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func (b *Backend) createPipeline(desc dispatch.PipelineDesc) (dispatch.PipelineHandle, error) {
	if desc.Compute {
		return b.createComputePipeline(desc)
	}
	return b.createGraphicsPipeline(desc)
}

func (b *Backend) createComputePipeline(desc dispatch.PipelineDesc) (dispatch.PipelineHandle, error) {
	if len(desc.Modules) != 1 {
		return 0, fmt.Errorf("compute pipeline %q needs exactly one module", desc.Name)
	}
	m, ok := b.modules[desc.Modules[0]]
	if !ok {
		return 0, fmt.Errorf("pipeline %q references unknown module %d", desc.Name, desc.Modules[0])
	}
	createInfo := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: m.module,
			PName:  safeString(m.entry),
		},
		Layout: b.descriptors.pipelineLayout,
	}
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(b.context.Device, vk.NullPipelineCache, 1,
		[]vk.ComputePipelineCreateInfo{createInfo}, b.context.Allocator, pipelines); res != vk.Success {
		return 0, fmt.Errorf("compute pipeline %q creation failed: %s", desc.Name, resultString(res))
	}
	h := dispatch.PipelineHandle(b.handle())
	b.pipelines[h] = &devicePipeline{pipeline: pipelines[0], compute: true}
	return h, nil
}

// createGraphicsPipeline builds a pipeline against the shared layout and the
// canonical pass. Modules are stage-ordered: vertex first, fragment second.
// Binding 0 streams per-vertex data, binding 1 per-instance records.
func (b *Backend) createGraphicsPipeline(desc dispatch.PipelineDesc) (dispatch.PipelineHandle, error) {
	if len(desc.Modules) < 2 {
		return 0, fmt.Errorf("graphics pipeline %q needs a vertex and a fragment module", desc.Name)
	}
	stages := make([]vk.PipelineShaderStageCreateInfo, 2)
	stageBits := []vk.ShaderStageFlagBits{vk.ShaderStageVertexBit, vk.ShaderStageFragmentBit}
	for i := 0; i < 2; i++ {
		m, ok := b.modules[desc.Modules[i]]
		if !ok {
			return 0, fmt.Errorf("pipeline %q references unknown module %d", desc.Name, desc.Modules[i])
		}
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stageBits[i],
			Module: m.module,
			PName:  safeString(m.entry),
		}
	}

	bindings := []vk.VertexInputBindingDescription{
		{Binding: 0, Stride: 32, InputRate: vk.VertexInputRateVertex},
		{Binding: 1, Stride: 80, InputRate: vk.VertexInputRateInstance},
	}
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
		// Instance transform rows plus the custom payload.
		{Location: 3, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 0},
		{Location: 4, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 16},
		{Location: 5, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 32},
		{Location: 6, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 48},
		{Location: 7, Binding: 1, Format: vk.FormatR32g32b32a32Sfloat, Offset: 64},
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vkTopology(desc.Topology),
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	cullMode := vk.CullModeFlags(vk.CullModeNone)
	if b.caps&dispatch.CapCullFace != 0 {
		cullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    cullMode,
		FrontFace:   vk.FrontFaceCounterClockwise,
	}
	if b.caps&dispatch.CapDepthBiasEnable != 0 {
		rasterization.DepthBiasEnable = vk.True
	}
	if b.caps&dispatch.CapRasterizerDiscard != 0 {
		rasterization.RasterizerDiscardEnable = vk.True
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:          vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp: vk.CompareOpLess,
	}
	if b.caps&dispatch.CapDepthTest != 0 {
		depthStencil.DepthTestEnable = vk.True
	}
	if b.caps&dispatch.CapDepthWrite != 0 {
		depthStencil.DepthWriteEnable = vk.True
	}
	if b.caps&dispatch.CapStencilTest != 0 {
		depthStencil.StencilTestEnable = vk.True
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if b.caps&dispatch.CapBlend != 0 {
		blendAttachment.BlendEnable = vk.True
		blendAttachment.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		blendAttachment.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blendAttachment.ColorBlendOp = vk.BlendOpAdd
		blendAttachment.SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
		blendAttachment.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blendAttachment.AlphaBlendOp = vk.BlendOpAdd
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateLineWidth,
		vk.DynamicStateDepthBias,
		vk.DynamicStateBlendConstants,
		vk.DynamicStateStencilCompareMask,
		vk.DynamicStateStencilWriteMask,
		vk.DynamicStateStencilReference,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	renderPass, err := b.passes.canonicalPass(b.context)
	if err != nil {
		return 0, err
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              b.descriptors.pipelineLayout,
		RenderPass:          renderPass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(b.context.Device, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, b.context.Allocator, pipelines); res != vk.Success {
		return 0, fmt.Errorf("graphics pipeline %q creation failed: %s", desc.Name, resultString(res))
	}

	h := dispatch.PipelineHandle(b.handle())
	b.pipelines[h] = &devicePipeline{pipeline: pipelines[0]}
	return h, nil
}

func (b *Backend) destroyPipeline(h dispatch.PipelineHandle) error {
	p, ok := b.pipelines[h]
	if !ok {
		return fmt.Errorf("unknown pipeline %d", h)
	}
	p.destroy(b.context)
	delete(b.pipelines, h)
	return nil
}
