package renderer

import (
	"fmt"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/math"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/frame"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/gpudriven"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/shaders"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/state"
)

// Renderer is the front end every caller records through. It owns the
// selected operation set, the state cache, the frame scheduler and the
// GPU-driven submission path. One instance per device; no package-level
// state.
type Renderer struct {
	ops     dispatch.OperationSet
	cache   *state.Cache
	sched   *frame.Scheduler
	gpu     *gpudriven.System
	shaders *shaders.Registry
	stats   *core.FrameStats
	bus     *core.EventBus
	guard   core.ThreadGuard

	// Pass and barrier paths are picked once at init, never per call.
	useDynamicRendering bool
	useEnhancedBarriers bool
	inPass              bool

	buffers   map[dispatch.BufferHandle]string
	textures  map[dispatch.ViewHandle]dispatch.SamplerHandle
	pipelines map[dispatch.PipelineHandle]string

	initialized bool
}

// New builds a renderer on the given backend. The calling goroutine becomes
// the render thread. On failure the behavior follows PanicOnInitFailure:
// either a fatal log, or a renderer whose every operation reports
// ErrNotInitialized alongside the returned error.
func New(backend Backend, settings *config.Settings, bus *core.EventBus) (*Renderer, error) {
	r := &Renderer{
		bus:       bus,
		buffers:   make(map[dispatch.BufferHandle]string),
		textures:  make(map[dispatch.ViewHandle]dispatch.SamplerHandle),
		pipelines: make(map[dispatch.PipelineHandle]string),
	}
	r.guard.Register()

	if err := r.initialize(backend, settings); err != nil {
		if settings.PanicOnInitFailure {
			core.LogFatal("renderer initialization failed: %s", err)
		}
		core.LogError("renderer initialization failed, entering inert state: %s", err)
		return r, err
	}
	return r, nil
}

func (r *Renderer) initialize(backend Backend, settings *config.Settings) error {
	if backend == nil {
		return &core.InitializationFailureError{Reason: "no backend provided"}
	}
	snap, err := backend.Snapshot()
	if err != nil {
		return fmt.Errorf("device capability detection failed: %w", err)
	}

	ops, err := dispatch.Select(backend.Table(), snap, settings)
	if err != nil {
		return err
	}
	r.ops = ops
	r.useDynamicRendering = ops.Supports(dispatch.OpDynamicRendering)
	r.useEnhancedBarriers = ops.Supports(dispatch.OpEnhancedBarriers)

	r.cache = state.NewCache(ops)
	r.stats = core.NewFrameStats()

	r.sched, err = frame.NewScheduler(ops, settings)
	if err != nil {
		return err
	}
	// Dynamic state does not survive across submissions; re-emit it all on
	// the first flush of every frame.
	r.sched.OnBeginFrame(func(uint32) { r.cache.MarkAllDirty() })

	r.gpu, err = gpudriven.NewSystem(ops, r.cache, r.sched, settings, r.stats)
	if err != nil {
		r.sched.Shutdown()
		return err
	}

	r.shaders, err = shaders.NewRegistry(ops, r.sched)
	if err != nil {
		r.gpu.Shutdown()
		r.sched.Shutdown()
		return err
	}

	if r.bus != nil {
		r.bus.Register(core.EVENT_CODE_DEVICE_STATE_CHANGED, r, onDeviceStateChanged)
	}

	r.initialized = true
	core.LogInfo("renderer ready: device %q, tier %s", snap.DeviceName(), ops.Tier())
	return nil
}

// onDeviceStateChanged drops every cached binding so the next flush re-issues
// full state against whatever the device now holds.
func onDeviceStateChanged(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	r, ok := listener.(*Renderer)
	if !ok {
		return false
	}
	core.LogWarn("device state changed (%s), invalidating state cache", data.Data.Str)
	r.cache.InvalidateAll()
	return false
}

func (r *Renderer) ensureInit() error {
	if !r.initialized {
		return core.ErrNotInitialized
	}
	return nil
}

// ensureRecording opens a frame on demand: recording calls issued outside an
// explicit BeginFrame/EndFrame pair land in an implicitly begun frame.
func (r *Renderer) ensureRecording(op string) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	if !r.sched.Recording() {
		core.LogDebug("%s issued outside a frame, beginning one", op)
		if err := r.sched.BeginFrame(); err != nil {
			return fmt.Errorf("%s: implicit frame begin failed: %w", op, err)
		}
	}
	return nil
}

// Tier reports the operation-set tier selected at initialization.
func (r *Renderer) Tier() capability.Version {
	if !r.initialized {
		return 0
	}
	return r.ops.Tier()
}

func (r *Renderer) Supports(op dispatch.OptionalOp) bool {
	return r.initialized && r.ops.Supports(op)
}

func (r *Renderer) Stats() *core.FrameStats    { return r.stats }
func (r *Renderer) Shaders() *shaders.Registry { return r.shaders }

func (r *Renderer) Bindless() *gpudriven.BindlessRegistry {
	if !r.initialized {
		return nil
	}
	return r.gpu.Registry()
}

// --- Frame lifecycle. ---

func (r *Renderer) BeginFrame() error {
	r.guard.Assert("BeginFrame")
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.sched.BeginFrame()
}

func (r *Renderer) EndFrame() error {
	r.guard.Assert("EndFrame")
	if err := r.ensureInit(); err != nil {
		return err
	}
	wasRecording := r.sched.Recording()
	if err := r.sched.EndFrame(); err != nil {
		return err
	}
	if wasRecording && r.bus != nil {
		var ctx core.EventContext
		ctx.Data.U64[0] = r.sched.FrameCount()
		r.bus.Fire(core.EVENT_CODE_FRAME_SUBMITTED, r, ctx)
	}
	return nil
}

// Defer queues work onto the render thread. Safe from any goroutine.
func (r *Renderer) Defer(cmd frame.DeferredCommand) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.sched.Defer(cmd)
}

// Finish blocks until the device is idle.
func (r *Renderer) Finish() error {
	r.guard.Assert("Finish")
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.sched.Finish()
}

func (r *Renderer) Shutdown() {
	if !r.initialized {
		return
	}
	r.guard.Assert("Shutdown")
	if err := r.sched.Finish(); err != nil {
		core.LogError("wait-idle before shutdown failed: %s", err)
	}
	if r.bus != nil {
		r.bus.Unregister(core.EVENT_CODE_DEVICE_STATE_CHANGED, r)
	}
	if err := r.shaders.Close(); err != nil {
		core.LogError("shader registry close failed: %s", err)
	}
	r.gpu.Shutdown()
	for h := range r.pipelines {
		if err := r.ops.DestroyPipeline(h); err != nil {
			core.LogError("destroy pipeline %d failed: %s", h, err)
		}
	}
	for view := range r.textures {
		if err := r.ops.DeleteTexture(view); err != nil {
			core.LogError("delete texture %d failed: %s", view, err)
		}
	}
	for h := range r.buffers {
		if err := r.ops.DeleteBuffer(h); err != nil {
			core.LogError("delete buffer %d failed: %s", h, err)
		}
	}
	r.sched.Shutdown()
	r.initialized = false
	core.LogInfo("renderer shut down")
}

// --- Resources. ---

func (r *Renderer) CreateBuffer(size uint64, usage dispatch.BufferUsage, name string) (dispatch.BufferHandle, error) {
	if err := r.ensureInit(); err != nil {
		return 0, err
	}
	h, err := r.ops.GenBuffer(size, usage, name)
	if err != nil {
		core.LogError("buffer %q creation failed: %s", name, err)
		return 0, err
	}
	r.buffers[h] = name
	return h, nil
}

func (r *Renderer) DestroyBuffer(h dispatch.BufferHandle) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	if _, ok := r.buffers[h]; !ok {
		return &core.ResourceNotFoundError{Kind: "buffer", Handle: uint64(h)}
	}
	delete(r.buffers, h)
	return r.ops.DeleteBuffer(h)
}

func (r *Renderer) UploadBuffer(h dispatch.BufferHandle, offset uint64, data []byte) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	if _, ok := r.buffers[h]; !ok {
		return &core.ResourceNotFoundError{Kind: "buffer", Handle: uint64(h)}
	}
	return r.ops.Upload(h, offset, data)
}

func (r *Renderer) CreateTexture(width, height uint32, format dispatch.TextureFormat, pixels []byte) (dispatch.ViewHandle, dispatch.SamplerHandle, error) {
	if err := r.ensureInit(); err != nil {
		return 0, 0, err
	}
	view, sampler, err := r.ops.GenTexture(width, height, format, pixels)
	if err != nil {
		core.LogError("texture %dx%d creation failed: %s", width, height, err)
		return 0, 0, err
	}
	r.textures[view] = sampler
	return view, sampler, nil
}

func (r *Renderer) DestroyTexture(view dispatch.ViewHandle) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	if _, ok := r.textures[view]; !ok {
		return &core.ResourceNotFoundError{Kind: "texture", Handle: uint64(view)}
	}
	delete(r.textures, view)
	return r.ops.DeleteTexture(view)
}

func (r *Renderer) CreatePipeline(desc dispatch.PipelineDesc) (dispatch.PipelineHandle, error) {
	if err := r.ensureInit(); err != nil {
		return 0, err
	}
	h, err := r.ops.CreatePipeline(desc)
	if err != nil {
		core.LogError("pipeline %q creation failed: %s", desc.Name, err)
		return 0, err
	}
	r.pipelines[h] = desc.Name
	return h, nil
}

func (r *Renderer) DestroyPipeline(h dispatch.PipelineHandle) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	if _, ok := r.pipelines[h]; !ok {
		return &core.ResourceNotFoundError{Kind: "pipeline", Handle: uint64(h)}
	}
	delete(r.pipelines, h)
	r.cache.InvalidatePipelines()
	return r.ops.DestroyPipeline(h)
}

// --- GPU-driven submission. ---

func (r *Renderer) BeginDrawBatch() (*gpudriven.DrawBatch, error) {
	r.guard.Assert("BeginDrawBatch")
	if err := r.ensureRecording("BeginDrawBatch"); err != nil {
		return nil, err
	}
	return r.gpu.BeginDrawBatch()
}

func (r *Renderer) SubmitDrawBatch(b *gpudriven.DrawBatch) error {
	r.guard.Assert("SubmitDrawBatch")
	if err := r.ensureRecording("SubmitDrawBatch"); err != nil {
		return err
	}
	return r.gpu.SubmitDrawBatch(b)
}

func (r *Renderer) EnableCulling(module dispatch.ShaderModuleHandle, workGroupSize uint32) error {
	if err := r.ensureInit(); err != nil {
		return err
	}
	return r.gpu.EnableCulling(module, workGroupSize)
}

func (r *Renderer) CullInstances(frustum math.Frustum) error {
	r.guard.Assert("CullInstances")
	if err := r.ensureRecording("CullInstances"); err != nil {
		return err
	}
	return r.gpu.CullInstances(frustum)
}
