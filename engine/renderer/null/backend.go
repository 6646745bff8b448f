package null

import (
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

// Backend wraps a Driver behind the renderer's backend surface for headless
// runs. The advertised device version is fixed at construction.
type Backend struct {
	driver  *Driver
	version capability.Version
}

func NewBackend(version capability.Version) *Backend {
	return &Backend{driver: New(), version: version}
}

func (b *Backend) Driver() *Driver { return b.driver }

func (b *Backend) Table() *dispatch.ProcTable { return b.driver.Table() }

func (b *Backend) Snapshot() (*capability.Snapshot, error) {
	return Snapshot(b.version), nil
}

func (b *Backend) Shutdown() error { return nil }
