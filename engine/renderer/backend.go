package renderer

import (
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// Backend is what a native driver hands the renderer: a filled proc table and
// a capability snapshot taken at device creation. The renderer never talks to
// the driver through any other surface.
type Backend interface {
	Table() *dispatch.ProcTable
	Snapshot() (*capability.Snapshot, error)
	Shutdown() error
}

type BackendType uint8

const (
	BackendVulkan BackendType = iota
	BackendNull
)
