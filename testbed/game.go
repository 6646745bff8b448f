/*
This is an example of application that will use the
engine package to test things out
*/
package testbed

import (
	"encoding/binary"
	stdmath "math"

	"github.com/Snow-11y/FPSFlux-sub005/engine"
	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/math"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// TestApp drives a small GPU-driven scene for a fixed number of frames on
// the null backend, exercising the full frame loop without a device.
type TestApp struct {
	*engine.App
}

type appState struct {
	vertexBuffer  dispatch.BufferHandle
	indexBuffer   dispatch.BufferHandle
	uniformBuffer dispatch.BufferHandle

	colorTarget dispatch.ViewHandle
	depthTarget dispatch.ViewHandle

	textureView    dispatch.ViewHandle
	textureSampler dispatch.SamplerHandle
	textureIndex   uint32

	pipeline dispatch.PipelineHandle

	frames    uint64
	maxFrames uint64
}

const (
	cubeIndexCount = 36
	instanceGrid   = 8
)

func NewTestApp(maxFrames uint64) *TestApp {
	settings := config.Default()
	settings.FramesInFlight = 3

	return &TestApp{
		App: &engine.App{
			Config: &engine.AppConfig{
				Name:     "FPSFlux Testbed",
				Backend:  renderer.BackendNull,
				Settings: settings,
			},
			State: &appState{maxFrames: maxFrames},
		},
	}
}

func (t *TestApp) Wire() {
	t.FnInitialize = t.Initialize
	t.FnUpdate = t.Update
	t.FnRender = t.Render
	t.FnShutdown = t.Shutdown
}

func (t *TestApp) Initialize(e *engine.Engine) error {
	core.LogInfo("testbed initializing on tier %s", e.Tier())

	st := t.State.(*appState)
	r := e.Renderer()

	vert, err := r.Shaders().Register("demo.vert", stubByteCode(), "main")
	if err != nil {
		return err
	}
	frag, err := r.Shaders().Register("demo.frag", stubByteCode(), "main")
	if err != nil {
		return err
	}
	cull, err := r.Shaders().Register("demo.cull", stubByteCode(), "main")
	if err != nil {
		return err
	}

	if st.vertexBuffer, err = r.CreateBuffer(24*32, dispatch.BufferUsageVertex, "cube-vertices"); err != nil {
		return err
	}
	if err := r.UploadBuffer(st.vertexBuffer, 0, cubeVertices()); err != nil {
		return err
	}
	if st.indexBuffer, err = r.CreateBuffer(cubeIndexCount*4, dispatch.BufferUsageIndex, "cube-indices"); err != nil {
		return err
	}
	if err := r.UploadBuffer(st.indexBuffer, 0, cubeIndices()); err != nil {
		return err
	}
	if st.uniformBuffer, err = r.CreateBuffer(64, dispatch.BufferUsageUniform, "view-projection"); err != nil {
		return err
	}

	if st.colorTarget, _, err = r.CreateTexture(1280, 720, dispatch.TextureFormatRGBA8, nil); err != nil {
		return err
	}
	if st.depthTarget, _, err = r.CreateTexture(1280, 720, dispatch.TextureFormatDepth32F, nil); err != nil {
		return err
	}
	if st.textureView, st.textureSampler, err = r.CreateTexture(2, 2, dispatch.TextureFormatRGBA8, checkerPixels()); err != nil {
		return err
	}
	if st.textureIndex, err = r.Bindless().RegisterTexture(st.textureView, st.textureSampler); err != nil {
		return err
	}

	if st.pipeline, err = r.CreatePipeline(dispatch.PipelineDesc{
		Modules:  []dispatch.ShaderModuleHandle{vert.Handle, frag.Handle},
		Topology: dispatch.TopologyTriangleList,
		Name:     "demo-opaque",
	}); err != nil {
		return err
	}

	return r.EnableCulling(cull.Handle, e.Settings().CullWorkGroupSize)
}

func (t *TestApp) Update(e *engine.Engine, deltaTime float64) error {
	st := t.State.(*appState)
	st.frames++
	if st.frames > st.maxFrames {
		e.Stop()
	}
	return nil
}

func (t *TestApp) Shutdown(e *engine.Engine) error {
	st := t.State.(*appState)
	stats := e.Renderer().Stats()
	core.LogInfo("testbed ran %d frames: %d draws, %d instances, %d binds issued, %d elided",
		st.frames, stats.DrawCalls, stats.Instances, stats.BindsIssued, stats.BindsElided)
	return nil
}

// stubByteCode builds a minimal valid SPIR-V header. The null backend never
// executes shaders, it only checks the container.
func stubByteCode() []byte {
	words := []uint32{0x07230203, 0x00010000, 0, 1, 0}
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func viewProjection(frame float32) math.Mat4 {
	eye := math.Vec3{X: 12, Y: 8 + frame*0.01, Z: 12}
	view := math.NewMat4LookAt(eye, math.Vec3{}, math.Vec3{Y: 1})
	proj := math.NewMat4Perspective(1.0472, 1280.0/720.0, 0.1, 200)
	return proj.Mul(view)
}

func mat4Bytes(m math.Mat4) []byte {
	out := make([]byte, 64)
	for i, f := range m {
		binary.LittleEndian.PutUint32(out[i*4:], stdmath.Float32bits(f))
	}
	return out
}

func cubeVertices() []byte {
	// 24 vertices, 32 bytes each: position, normal, uv.
	return make([]byte, 24*32)
}

func cubeIndices() []byte {
	idx := []uint32{
		0, 1, 2, 2, 3, 0,
		4, 5, 6, 6, 7, 4,
		8, 9, 10, 10, 11, 8,
		12, 13, 14, 14, 15, 12,
		16, 17, 18, 18, 19, 16,
		20, 21, 22, 22, 23, 20,
	}
	out := make([]byte, len(idx)*4)
	for i, v := range idx {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func checkerPixels() []byte {
	return []byte{
		255, 255, 255, 255, 32, 32, 32, 255,
		32, 32, 32, 255, 255, 255, 255, 255,
	}
}
