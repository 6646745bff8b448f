package testbed

import (
	"github.com/Snow-11y/FPSFlux-sub005/engine"
	"github.com/Snow-11y/FPSFlux-sub005/engine/math"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/gpudriven"
)

func (t *TestApp) Render(e *engine.Engine, deltaTime float64) error {
	st := t.State.(*appState)
	r := e.Renderer()

	vp := viewProjection(float32(st.frames))
	if err := r.UploadBuffer(st.uniformBuffer, 0, mat4Bytes(vp)); err != nil {
		return err
	}

	// Batch building and the culling dispatch happen before the pass opens;
	// only the indirect submit records inside it.
	batch, err := t.buildBatch(r)
	if err != nil {
		return err
	}
	if err := r.CullInstances(math.ExtractFrustum(vp)); err != nil {
		return err
	}

	if err := r.BeginRenderPass(dispatch.RenderPassDesc{
		ColorViews:   []dispatch.ViewHandle{st.colorTarget},
		DepthView:    st.depthTarget,
		RenderArea:   dispatch.Rect2D{Width: 1280, Height: 720},
		ClearColor:   [4]float32{0.05, 0.05, 0.08, 1},
		ClearDepth:   1,
		DoClearColor: true,
		DoClearDepth: true,
	}); err != nil {
		return err
	}

	if err := r.BindPipeline(st.pipeline); err != nil {
		return err
	}
	if err := r.SetViewport(dispatch.Viewport{Width: 1280, Height: 720, MaxDepth: 1}); err != nil {
		return err
	}
	if err := r.SetScissor(dispatch.Rect2D{Width: 1280, Height: 720}); err != nil {
		return err
	}
	if err := r.BindBuffer(0, st.uniformBuffer, 0, 0); err != nil {
		return err
	}
	if err := r.BindTexture(0, st.textureView, st.textureSampler); err != nil {
		return err
	}
	if err := r.BindVertexBuffer(0, st.vertexBuffer, 0); err != nil {
		return err
	}
	if err := r.BindIndexBuffer(st.indexBuffer, 0); err != nil {
		return err
	}

	if err := r.SubmitDrawBatch(batch); err != nil {
		return err
	}

	return r.EndRenderPass()
}

func (t *TestApp) buildBatch(r *renderer.Renderer) (*gpudriven.DrawBatch, error) {
	st := t.State.(*appState)

	batch, err := r.BeginDrawBatch()
	if err != nil {
		return nil, err
	}
	draw, err := batch.AddDraw(cubeIndexCount, 0, 0)
	if err != nil {
		return nil, err
	}

	first := uint32(0)
	count := uint32(0)
	for x := 0; x < instanceGrid; x++ {
		for z := 0; z < instanceGrid; z++ {
			transform := math.NewMat4Translation(math.Vec3{
				X: float32(x-instanceGrid/2) * 3,
				Z: float32(z-instanceGrid/2) * 3,
			})
			custom := [4]float32{float32(st.textureIndex), 0, 0, 0}
			idx, err := batch.AddInstance(transform, custom)
			if err != nil {
				return nil, err
			}
			if count == 0 {
				first = idx
			}
			count++
		}
	}
	if err := batch.SetDrawInstanceCount(draw, count, first); err != nil {
		return nil, err
	}
	if err := batch.Finalize(); err != nil {
		return nil, err
	}
	return batch, nil
}
