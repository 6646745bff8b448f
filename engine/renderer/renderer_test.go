package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/null"
)

func newRenderer(t *testing.T, mutate func(*config.Settings)) (*renderer.Renderer, *null.Driver) {
	t.Helper()
	settings := config.Default()
	if mutate != nil {
		mutate(settings)
	}
	backend := null.NewBackend(settings.Ceiling())
	r, err := renderer.New(backend, settings, core.NewEventBus())
	require.NoError(t, err)
	t.Cleanup(r.Shutdown)
	return r, backend.Driver()
}

func openFrame(t *testing.T, r *renderer.Renderer) {
	t.Helper()
	require.NoError(t, r.BeginFrame())
}

// emptyBackend advertises a capable device but binds no entry points, so
// operation selection must fail.
type emptyBackend struct{}

func (emptyBackend) Table() *dispatch.ProcTable { return &dispatch.ProcTable{} }
func (emptyBackend) Snapshot() (*capability.Snapshot, error) {
	return null.Snapshot(capability.MakeVersion(1, 3)), nil
}
func (emptyBackend) Shutdown() error { return nil }

func TestNewWithoutBackendStaysInert(t *testing.T) {
	r, err := renderer.New(nil, config.Default(), core.NewEventBus())
	require.Error(t, err)
	require.NotNil(t, r)

	assert.Equal(t, capability.Version(0), r.Tier())
	assert.False(t, r.Supports(dispatch.OpTimelineSemaphore))
	assert.Nil(t, r.Bindless())
	assert.ErrorIs(t, r.BeginFrame(), core.ErrNotInitialized)
}

func TestInitFailureLeavesEveryOperationInert(t *testing.T) {
	r, err := renderer.New(emptyBackend{}, config.Default(), core.NewEventBus())
	require.Error(t, err)
	require.NotNil(t, r)

	assert.ErrorIs(t, r.BeginFrame(), core.ErrNotInitialized)
	assert.ErrorIs(t, r.EndFrame(), core.ErrNotInitialized)
	assert.ErrorIs(t, r.SetViewport(dispatch.Viewport{Width: 1, Height: 1}), core.ErrNotInitialized)
	assert.ErrorIs(t, r.Finish(), core.ErrNotInitialized)

	_, cerr := r.CreateBuffer(64, dispatch.BufferUsageUniform, "inert")
	assert.ErrorIs(t, cerr, core.ErrNotInitialized)

	// Shutdown on an inert renderer must be a no-op, not a crash.
	r.Shutdown()
}

func TestRenderPassPathFollowsTier(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Settings)
		begin  string
		end    string
	}{
		{"dynamic rendering", nil, "BeginRendering", "EndRendering"},
		{"legacy tier", func(s *config.Settings) { s.VersionCeiling = "1.1" }, "BeginRenderPass", "EndRenderPass"},
		{"dynamic rendering disabled", func(s *config.Settings) {
			s.DisabledFeatures = append(s.DisabledFeatures, "dynamic-rendering")
		}, "BeginRenderPass", "EndRenderPass"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, d := newRenderer(t, tc.mutate)
			openFrame(t, r)
			require.NoError(t, r.BeginRenderPass(dispatch.RenderPassDesc{}))
			require.NoError(t, r.EndRenderPass())
			require.NoError(t, r.EndFrame())

			assert.Equal(t, 1, d.Calls[tc.begin])
			assert.Equal(t, 1, d.Calls[tc.end])
		})
	}
}

func TestPassPairingIsEnforced(t *testing.T) {
	r, d := newRenderer(t, nil)

	assert.Error(t, r.EndRenderPass(), "end without begin")

	// A pass opened outside a frame rides an implicitly begun one.
	require.NoError(t, r.BeginRenderPass(dispatch.RenderPassDesc{}))
	assert.Equal(t, 1, d.Calls["BeginCommands"])
	assert.Error(t, r.BeginRenderPass(dispatch.RenderPassDesc{}), "nested pass")
	require.NoError(t, r.EndRenderPass())
	assert.Error(t, r.EndRenderPass(), "double end")
	require.NoError(t, r.EndFrame())
}

func TestBarrierPathFollowsTier(t *testing.T) {
	r, d := newRenderer(t, nil)
	openFrame(t, r)
	require.NoError(t, r.Barrier(dispatch.StageCompute, dispatch.StageDrawIndirect,
		dispatch.AccessShaderWrite, dispatch.AccessIndirectCommandRead))
	assert.Equal(t, 1, d.Calls["PipelineBarrier2"])
	assert.Zero(t, d.Calls["PipelineBarrier"])
	require.NoError(t, r.EndFrame())

	r, d = newRenderer(t, func(s *config.Settings) { s.VersionCeiling = "1.1" })
	openFrame(t, r)
	require.NoError(t, r.Barrier(dispatch.StageCompute, dispatch.StageDrawIndirect,
		dispatch.AccessShaderWrite, dispatch.AccessIndirectCommandRead))
	assert.Equal(t, 1, d.Calls["PipelineBarrier"])
	assert.Zero(t, d.Calls["PipelineBarrier2"])
	require.NoError(t, r.EndFrame())
}

func TestDrawIndexedFlushesLazyStateFirst(t *testing.T) {
	r, d := newRenderer(t, nil)
	openFrame(t, r)
	require.NoError(t, r.SetViewport(dispatch.Viewport{Width: 1280, Height: 720, MaxDepth: 1}))
	assert.Empty(t, d.DynamicCalls, "dynamic state must not hit the driver before a flush")

	require.NoError(t, r.DrawIndexed(36, 2, 0, 0, 0))
	assert.Contains(t, d.DynamicCalls, "SetViewport")
	assert.Equal(t, 1, d.Calls["DrawIndexed"])
	assert.Equal(t, uint64(1), r.Stats().DrawCalls)
	assert.Equal(t, uint64(2), r.Stats().Instances)
	require.NoError(t, r.EndFrame())
}

func TestDynamicStateReemittedEveryFrame(t *testing.T) {
	r, d := newRenderer(t, func(s *config.Settings) { s.VersionCeiling = "1.1" })

	openFrame(t, r)
	require.NoError(t, r.DrawIndexed(3, 1, 0, 0, 0))
	assert.Equal(t, 1, d.Calls["SetViewport"])
	require.NoError(t, r.EndFrame())

	// Nothing changed on the CPU side, but submitted state is gone.
	openFrame(t, r)
	require.NoError(t, r.DrawIndexed(3, 1, 0, 0, 0))
	assert.Equal(t, 2, d.Calls["SetViewport"])
	require.NoError(t, r.EndFrame())
}

func TestDrawMeshTasksOnlyCountsWhenSupported(t *testing.T) {
	r, d := newRenderer(t, nil)
	require.True(t, r.Supports(dispatch.OpDrawMeshTasks))
	openFrame(t, r)
	require.NoError(t, r.DrawMeshTasks(4, 1, 1))
	assert.Equal(t, 1, d.Calls["DrawMeshTasks"])
	assert.Equal(t, uint64(1), r.Stats().DrawCalls)
	require.NoError(t, r.EndFrame())

	r, d = newRenderer(t, func(s *config.Settings) {
		s.DisabledFeatures = append(s.DisabledFeatures, "mesh-shaders")
	})
	require.False(t, r.Supports(dispatch.OpDrawMeshTasks))
	openFrame(t, r)
	require.NoError(t, r.DrawMeshTasks(4, 1, 1))
	assert.Zero(t, d.Calls["DrawMeshTasks"])
	assert.Zero(t, r.Stats().DrawCalls)
	require.NoError(t, r.EndFrame())
}

func TestDispatchCounts(t *testing.T) {
	r, d := newRenderer(t, nil)
	openFrame(t, r)
	require.NoError(t, r.Dispatch(8, 1, 1))
	assert.Equal(t, 1, d.Calls["Dispatch"])
	assert.Equal(t, uint64(1), r.Stats().Dispatches)
	require.NoError(t, r.EndFrame())
}

func TestRecordingOutsideFrameImplicitlyBeginsOne(t *testing.T) {
	r, d := newRenderer(t, nil)

	require.NoError(t, r.DrawIndexed(36, 1, 0, 0, 0))
	assert.Equal(t, 1, d.Calls["BeginCommands"])
	assert.Equal(t, 1, d.Calls["DrawIndexed"])

	// The implicit frame is a real one: it ends and submits normally.
	require.NoError(t, r.EndFrame())
	assert.Equal(t, 1, d.Calls["Submit"])

	// Batches started outside a frame land in the implicitly opened slot.
	b, err := r.BeginDrawBatch()
	require.NoError(t, err)
	assert.Equal(t, 2, d.Calls["BeginCommands"])
	_, err = b.AddDraw(3, 0, 0)
	require.NoError(t, err)
	require.NoError(t, b.Finalize())
	require.NoError(t, r.SubmitDrawBatch(b))
	require.NoError(t, r.EndFrame())
	assert.Equal(t, 2, d.Calls["Submit"])
}

func TestEndFrameFiresSubmittedEvent(t *testing.T) {
	settings := config.Default()
	backend := null.NewBackend(settings.Ceiling())
	bus := core.NewEventBus()

	var fired int
	var lastFrame uint64
	listener := new(int)
	bus.Register(core.EVENT_CODE_FRAME_SUBMITTED, listener,
		func(code core.SystemEventCode, sender, l interface{}, data core.EventContext) bool {
			fired++
			lastFrame = data.Data.U64[0]
			return false
		})

	r, err := renderer.New(backend, settings, bus)
	require.NoError(t, err)
	defer r.Shutdown()

	// EndFrame outside a frame is a no-op and must not announce a submit.
	require.NoError(t, r.EndFrame())
	assert.Zero(t, fired)

	openFrame(t, r)
	require.NoError(t, r.EndFrame())
	assert.Equal(t, 1, fired)
	assert.Equal(t, uint64(1), lastFrame)

	openFrame(t, r)
	require.NoError(t, r.EndFrame())
	assert.Equal(t, 2, fired)
	assert.Equal(t, uint64(2), lastFrame)
}

func TestDeviceStateChangeInvalidatesCachedBindings(t *testing.T) {
	settings := config.Default()
	backend := null.NewBackend(settings.Ceiling())
	bus := core.NewEventBus()
	r, err := renderer.New(backend, settings, bus)
	require.NoError(t, err)
	defer r.Shutdown()
	d := backend.Driver()

	buf, err := r.CreateBuffer(256, dispatch.BufferUsageUniform, "scene-ubo")
	require.NoError(t, err)

	require.NoError(t, r.BindBuffer(0, buf, 0, 256))
	require.NoError(t, r.BindBuffer(0, buf, 0, 256))
	assert.Equal(t, 1, d.Calls["BindBuffer"], "repeat bind must be elided")

	var ctx core.EventContext
	ctx.Data.Str = "device lost and recreated"
	bus.Fire(core.EVENT_CODE_DEVICE_STATE_CHANGED, nil, ctx)

	require.NoError(t, r.BindBuffer(0, buf, 0, 256))
	assert.Equal(t, 2, d.Calls["BindBuffer"], "invalidation must force a re-bind")
}

func TestResourceLifecycleTracksHandles(t *testing.T) {
	r, d := newRenderer(t, nil)

	buf, err := r.CreateBuffer(64, dispatch.BufferUsageVertex, "mesh-vertices")
	require.NoError(t, err)
	require.NoError(t, r.UploadBuffer(buf, 0, make([]byte, 64)))
	require.NoError(t, r.DestroyBuffer(buf))

	err = r.DestroyBuffer(buf)
	var notFound *core.ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "buffer", notFound.Kind)

	assert.ErrorAs(t, r.UploadBuffer(buf, 0, []byte{0}), &notFound)

	view, _, err := r.CreateTexture(2, 2, dispatch.TextureFormatRGBA8, make([]byte, 16))
	require.NoError(t, err)
	require.NoError(t, r.DestroyTexture(view))
	assert.ErrorAs(t, r.DestroyTexture(view), &notFound)
	assert.Equal(t, "texture", notFound.Kind)

	assert.Equal(t, 1, d.Calls["DeleteBuffer"])
	assert.Equal(t, 1, d.Calls["DeleteTexture"])
}

func TestBindPipelineRejectsUnknownHandle(t *testing.T) {
	r, _ := newRenderer(t, nil)

	var notFound *core.ResourceNotFoundError
	assert.ErrorAs(t, r.BindPipeline(dispatch.PipelineHandle(99)), &notFound)
	assert.Equal(t, "pipeline", notFound.Kind)
}

func TestDestroyPipelineInvalidatesPipelineBinding(t *testing.T) {
	r, d := newRenderer(t, nil)

	p1, err := r.CreatePipeline(dispatch.PipelineDesc{Name: "opaque"})
	require.NoError(t, err)
	p2, err := r.CreatePipeline(dispatch.PipelineDesc{Name: "shadow"})
	require.NoError(t, err)

	require.NoError(t, r.BindPipeline(p1))
	require.NoError(t, r.BindPipeline(p1))
	assert.Equal(t, 1, d.Calls["BindPipeline"])

	require.NoError(t, r.DestroyPipeline(p2))

	require.NoError(t, r.BindPipeline(p1))
	assert.Equal(t, 2, d.Calls["BindPipeline"], "destroying any pipeline must drop the cached binding")
}

func TestShutdownDestroysTrackedResources(t *testing.T) {
	settings := config.Default()
	backend := null.NewBackend(settings.Ceiling())
	r, err := renderer.New(backend, settings, core.NewEventBus())
	require.NoError(t, err)
	d := backend.Driver()

	_, err = r.CreateBuffer(64, dispatch.BufferUsageVertex, "scratch-geometry")
	require.NoError(t, err)
	_, _, err = r.CreateTexture(4, 4, dispatch.TextureFormatRGBA8, make([]byte, 64))
	require.NoError(t, err)
	_, err = r.CreatePipeline(dispatch.PipelineDesc{Name: "opaque"})
	require.NoError(t, err)

	_, ok := d.FindBuffer("scratch-geometry")
	require.True(t, ok)

	r.Shutdown()

	_, ok = d.FindBuffer("scratch-geometry")
	assert.False(t, ok, "shutdown must delete tracked buffers")
	assert.Equal(t, 1, d.Calls["DeleteTexture"])
	assert.Equal(t, 1, d.Calls["DestroyPipeline"])
	assert.GreaterOrEqual(t, d.Calls["DeviceWaitIdle"], 1)

	idle := d.Calls["DeviceWaitIdle"]
	r.Shutdown()
	assert.Equal(t, idle, d.Calls["DeviceWaitIdle"], "second shutdown is a no-op")
}
