package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// Backend owns the Vulkan instance, device and every native object minted
// through the proc table. Handles handed out through the table are indices
// into the backend's registries, never raw Vulkan pointers.
type Backend struct {
	context *Context
	debug   bool

	nextHandle uint64
	buffers    map[dispatch.BufferHandle]*deviceBuffer
	textures   map[dispatch.ViewHandle]*deviceTexture
	modules    map[dispatch.ShaderModuleHandle]*deviceModule
	pipelines  map[dispatch.PipelineHandle]*devicePipeline
	fences     map[dispatch.FenceHandle]*deviceFence
	extSets    map[dispatch.DescriptorSetHandle]vk.DescriptorSet

	commandBuffers []vk.CommandBuffer
	current        vk.CommandBuffer
	boundCompute   bool

	descriptors descriptorState
	passes      passCache

	// Persistent staging buffer for texture uploads; transfers larger than
	// stagingSize fall back to a transient buffer.
	staging     dispatch.BufferHandle
	stagingSize uint64

	// Allocation accounting against Settings.MemoryBudgetMB (0 = unlimited).
	budgetMB    uint64
	memoryInUse uint64

	// Fixed-function toggles latch here and bake into the next pipeline.
	caps dispatch.Capability
}

func NewBackend(appName string, settings *config.Settings) (*Backend, error) {
	b := &Backend{
		context:   &Context{},
		debug:     settings.Debug,
		buffers:   make(map[dispatch.BufferHandle]*deviceBuffer),
		textures:  make(map[dispatch.ViewHandle]*deviceTexture),
		modules:   make(map[dispatch.ShaderModuleHandle]*deviceModule),
		pipelines: make(map[dispatch.PipelineHandle]*devicePipeline),
		fences:    make(map[dispatch.FenceHandle]*deviceFence),
		extSets:   make(map[dispatch.DescriptorSetHandle]vk.DescriptorSet),
		budgetMB:  settings.MemoryBudgetMB,
	}
	if err := b.startup(appName, settings); err != nil {
		b.Shutdown()
		return nil, err
	}
	return b, nil
}

func (b *Backend) startup(appName string, settings *config.Settings) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw initialization failed: %w", err)
	}
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("no Vulkan loader available")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return fmt.Errorf("vulkan binding initialization failed: %w", err)
	}

	if err := b.createInstance(appName); err != nil {
		return err
	}
	if err := b.createDevice(); err != nil {
		return err
	}
	if err := b.createCommandBuffers(settings.FramesInFlight); err != nil {
		return err
	}
	if err := b.descriptors.create(b.context, settings.DescriptorPoolSize); err != nil {
		return err
	}
	if err := b.descriptors.allocSlots(b.context, settings.FramesInFlight); err != nil {
		return err
	}
	b.passes.init(b.context)

	if settings.StagingBufferSize > 0 {
		h, err := b.genBuffer(settings.StagingBufferSize, dispatch.BufferUsageStaging, "upload-staging")
		if err != nil {
			return fmt.Errorf("staging buffer creation failed: %w", err)
		}
		b.staging = h
		b.stagingSize = settings.StagingBufferSize
	}

	core.LogInfo("Vulkan backend ready")
	return nil
}

// fitsBudget checks a prospective allocation against the configured memory
// budget. Accounting happens when the resource is registered, so failed
// creations never need a rollback.
func (b *Backend) fitsBudget(alloc uint64) bool {
	return b.budgetMB == 0 || b.memoryInUse+alloc <= b.budgetMB*1024*1024
}

func (b *Backend) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(appName),
		PEngineName:        safeString("FPSFlux"),
	}

	extensions := []string{}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	layers := []string{}
	if b.debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		if hasValidationLayer() {
			layers = append(layers, "VK_LAYER_KHRONOS_validation")
		} else {
			core.LogWarn("validation layer requested but not installed")
		}
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1
	}

	if res := vk.CreateInstance(&createInfo, b.context.Allocator, &b.context.Instance); res != vk.Success {
		return fmt.Errorf("instance creation failed: %s", resultString(res))
	}
	if err := vk.InitInstance(b.context.Instance); err != nil {
		return err
	}
	core.LogInfo("Vulkan instance created")

	if b.debug {
		dbgInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallback,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(b.context.Instance, &dbgInfo, nil, &dbg); res != vk.Success {
			core.LogWarn("debug report callback creation failed: %s", resultString(res))
		} else {
			b.context.debugMessenger = dbg
		}
	}
	return nil
}

func hasValidationLayer() bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if byteArrayString(layers[i].LayerName[:]) == "VK_LAYER_KHRONOS_validation" {
			return true
		}
	}
	return false
}

func dbgCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	default:
		core.LogDebug("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.Bool32(vk.False)
}

// createDevice picks the first physical device with a graphics+compute queue
// family, preferring a discrete GPU.
func (b *Backend) createDevice() error {
	var deviceCount uint32
	if res := vk.EnumeratePhysicalDevices(b.context.Instance, &deviceCount, nil); res != vk.Success || deviceCount == 0 {
		return fmt.Errorf("no Vulkan devices found")
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	if res := vk.EnumeratePhysicalDevices(b.context.Instance, &deviceCount, devices); res != vk.Success {
		return fmt.Errorf("device enumeration failed: %s", resultString(res))
	}

	best := -1
	bestQueue := uint32(0)
	bestDiscrete := false
	for i, pd := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()

		queue, ok := findGraphicsComputeQueue(pd)
		if !ok {
			continue
		}
		discrete := props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
		if best < 0 || (discrete && !bestDiscrete) {
			best, bestQueue, bestDiscrete = i, queue, discrete
		}
	}
	if best < 0 {
		return fmt.Errorf("no device offers a graphics+compute queue")
	}

	b.context.PhysicalDevice = devices[best]
	b.context.GraphicsQueueIndex = bestQueue
	vk.GetPhysicalDeviceProperties(b.context.PhysicalDevice, &b.context.Properties)
	b.context.Properties.Deref()
	vk.GetPhysicalDeviceFeatures(b.context.PhysicalDevice, &b.context.Features)
	b.context.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(b.context.PhysicalDevice, &b.context.Memory)
	b.context.Memory.Deref()

	core.LogInfo("selected device: %s", byteArrayString(b.context.Properties.DeviceName[:]))

	queuePriority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: bestQueue,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}

	features := vk.PhysicalDeviceFeatures{}
	if b.context.Features.MultiDrawIndirect == vk.True {
		features.MultiDrawIndirect = vk.True
	}

	extensions := []string{}
	if devicePortabilityRequired(b.context.PhysicalDevice) {
		extensions = append(extensions, "VK_KHR_portability_subset")
	}

	deviceInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueInfo},
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}
	if res := vk.CreateDevice(b.context.PhysicalDevice, &deviceInfo, b.context.Allocator, &b.context.Device); res != vk.Success {
		return fmt.Errorf("logical device creation failed: %s", resultString(res))
	}

	var queue vk.Queue
	vk.GetDeviceQueue(b.context.Device, bestQueue, 0, &queue)
	b.context.GraphicsQueue = queue

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: bestQueue,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(b.context.Device, &poolInfo, b.context.Allocator, &b.context.CommandPool); res != vk.Success {
		return fmt.Errorf("command pool creation failed: %s", resultString(res))
	}
	return nil
}

func findGraphicsComputeQueue(pd vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	if count == 0 {
		return 0, false
	}
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	want := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&want == want {
			return uint32(i), true
		}
	}
	return 0, false
}

func devicePortabilityRequired(pd vk.PhysicalDevice) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	exts := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, exts); res != vk.Success {
		return false
	}
	for i := range exts {
		exts[i].Deref()
		if byteArrayString(exts[i].ExtensionName[:]) == "VK_KHR_portability_subset" {
			return true
		}
	}
	return false
}

func (b *Backend) createCommandBuffers(framesInFlight uint32) error {
	b.commandBuffers = make([]vk.CommandBuffer, framesInFlight)
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.context.CommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: framesInFlight,
	}
	if res := vk.AllocateCommandBuffers(b.context.Device, &allocInfo, b.commandBuffers); res != vk.Success {
		return fmt.Errorf("command buffer allocation failed: %s", resultString(res))
	}
	return nil
}

// Snapshot reports what the selected device offers. Features beyond the
// binding's reach stay unset and the matching optional operations degrade.
func (b *Backend) Snapshot() (*capability.Snapshot, error) {
	if b.context.Device == nil {
		return nil, fmt.Errorf("device not created")
	}
	api := uint32(b.context.Properties.ApiVersion)
	version := capability.MakeVersion(api>>22, (api>>12)&0x3ff)
	if version > capability.MakeVersion(1, 3) {
		version = capability.MakeVersion(1, 3)
	}

	features := map[capability.Feature]bool{}
	if b.context.Features.MultiDrawIndirect == vk.True {
		features[capability.FeatureMultiDrawIndirect] = true
	}

	var extCount uint32
	extensions := []string{}
	if res := vk.EnumerateDeviceExtensionProperties(b.context.PhysicalDevice, "", &extCount, nil); res == vk.Success && extCount > 0 {
		props := make([]vk.ExtensionProperties, extCount)
		if res := vk.EnumerateDeviceExtensionProperties(b.context.PhysicalDevice, "", &extCount, props); res == vk.Success {
			for i := range props {
				props[i].Deref()
				extensions = append(extensions, byteArrayString(props[i].ExtensionName[:]))
			}
		}
	}

	name := byteArrayString(b.context.Properties.DeviceName[:])
	return capability.NewSnapshot(version, name, features, extensions), nil
}

func (b *Backend) handle() uint64 {
	b.nextHandle++
	return b.nextHandle
}

func (b *Backend) Shutdown() error {
	ctx := b.context
	if ctx.Device != nil {
		vk.DeviceWaitIdle(ctx.Device)
		b.passes.destroy(ctx)
		b.descriptors.destroy(ctx)
		for _, p := range b.pipelines {
			p.destroy(ctx)
		}
		for _, m := range b.modules {
			vk.DestroyShaderModule(ctx.Device, m.module, ctx.Allocator)
		}
		for _, t := range b.textures {
			t.destroy(ctx)
		}
		for _, buf := range b.buffers {
			buf.destroy(ctx)
		}
		for _, f := range b.fences {
			vk.DestroyFence(ctx.Device, f.handle, ctx.Allocator)
		}
		if len(b.commandBuffers) > 0 {
			vk.FreeCommandBuffers(ctx.Device, ctx.CommandPool, uint32(len(b.commandBuffers)), b.commandBuffers)
		}
		if ctx.CommandPool != nil {
			vk.DestroyCommandPool(ctx.Device, ctx.CommandPool, ctx.Allocator)
		}
		vk.DestroyDevice(ctx.Device, ctx.Allocator)
		ctx.Device = nil
	}
	if ctx.Instance != nil {
		if ctx.debugMessenger != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(ctx.Instance, ctx.debugMessenger, ctx.Allocator)
		}
		vk.DestroyInstance(ctx.Instance, ctx.Allocator)
		ctx.Instance = nil
	}
	glfw.Terminate()
	core.LogInfo("Vulkan backend shut down")
	return nil
}
