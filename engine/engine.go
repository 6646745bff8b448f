package engine

import (
	"fmt"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/null"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Engine is the explicit root context: it owns the settings, the event bus,
// the renderer and the frame clock, and hands them to the application hooks.
// Nothing here is package-global; two engines can coexist in one process.
type Engine struct {
	currentStage Stage
	app          *App
	settings     *config.Settings
	bus          *core.EventBus
	renderer     *renderer.Renderer
	backend      renderer.Backend
	clock        *core.Clock
	lastTime     float64
	isRunning    bool
}

func New(app *App) (*Engine, error) {
	if app == nil || app.Config == nil {
		return nil, fmt.Errorf("application configuration missing")
	}

	settings := app.Config.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	core.LogSetDebug(settings.Debug)

	e := &Engine{
		currentStage: EngineStageUninitialized,
		app:          app,
		settings:     settings,
		bus:          core.NewEventBus(),
		clock:        core.NewClock(),
	}
	return e, nil
}

// Initialize brings the backend and the renderer up on the calling
// goroutine, which becomes the render thread.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	backend, err := e.createBackend()
	if err != nil {
		return err
	}
	e.backend = backend

	r, err := renderer.New(backend, e.settings, e.bus)
	if err != nil {
		return err
	}
	e.renderer = r

	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, onQuit)

	if e.app.FnInitialize != nil {
		if err := e.app.FnInitialize(e); err != nil {
			return fmt.Errorf("application initialization failed: %w", err)
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) createBackend() (renderer.Backend, error) {
	switch e.app.Config.Backend {
	case renderer.BackendNull:
		ceiling := e.settings.Ceiling()
		return null.NewBackend(ceiling), nil
	default:
		return vulkan.NewBackend(e.app.Config.Name, e.settings)
	}
}

func onQuit(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	e, ok := listener.(*Engine)
	if !ok {
		return false
	}
	core.LogInfo("quit requested, stopping after the current frame")
	e.isRunning = false
	return true
}

// Run drives frames until the application stops or a quit event fires.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.app.FnUpdate != nil {
			if err := e.app.FnUpdate(e, delta); err != nil {
				core.LogError("application update failed: %s", err)
				e.isRunning = false
				break
			}
		}

		if err := e.renderer.BeginFrame(); err != nil {
			core.LogError("frame begin failed: %s", err)
			e.isRunning = false
			break
		}
		if e.app.FnRender != nil {
			if err := e.app.FnRender(e, delta); err != nil {
				core.LogError("application render failed: %s", err)
				e.isRunning = false
			}
		}
		if err := e.renderer.EndFrame(); err != nil {
			core.LogError("frame end failed: %s", err)
			e.isRunning = false
			break
		}

		e.renderer.Stats().Update(delta)
	}

	return e.Shutdown()
}

// Stop requests a graceful stop; safe to call from any goroutine via an
// application-quit event, or directly from the render thread.
func (e *Engine) Stop() {
	e.bus.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.app.FnShutdown != nil {
		if err := e.app.FnShutdown(e); err != nil {
			core.LogError("application shutdown failed: %s", err)
		}
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	if e.backend != nil {
		if err := e.backend.Shutdown(); err != nil {
			core.LogError("backend shutdown failed: %s", err)
		}
	}
	core.LogInfo("engine shut down")
	return nil
}

func (e *Engine) Renderer() *renderer.Renderer { return e.renderer }
func (e *Engine) Bus() *core.EventBus          { return e.bus }
func (e *Engine) Settings() *config.Settings   { return e.settings }

// Tier reports the operation-set tier the renderer selected.
func (e *Engine) Tier() capability.Version {
	if e.renderer == nil {
		return 0
	}
	return e.renderer.Tier()
}
