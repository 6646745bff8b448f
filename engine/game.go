package engine

import (
	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer"
)

// AppConfig names the application and selects the backend and settings it
// runs with. Settings may be nil to take the defaults.
type AppConfig struct {
	Name     string
	Backend  renderer.BackendType
	Settings *config.Settings
}

// App is the set of hooks the engine drives. Render runs inside an open
// frame; Update runs before it.
type App struct {
	Config       *AppConfig
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnShutdown   Shutdown
}

type Initialize func(e *Engine) error
type Update func(e *Engine, deltaTime float64) error
type Render func(e *Engine, deltaTime float64) error
type Shutdown func(e *Engine) error
