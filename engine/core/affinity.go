package core

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
)

// ThreadGuard pins a set of entry points to a single render goroutine.
// Register is called once by the owning renderer; Assert is compiled to a
// real check only under the `debug` build tag and is a no-op otherwise, so
// the steady-state draw path pays nothing in release builds.
type ThreadGuard struct {
	id atomic.Uint64
}

// Register records the calling goroutine as the render thread and pins it to
// its OS thread. May be called again to move the render thread, e.g. in tests.
func (g *ThreadGuard) Register() {
	runtime.LockOSThread()
	g.id.Store(goroutineID())
}

// Registered reports whether a render thread has been recorded.
func (g *ThreadGuard) Registered() bool {
	return g.id.Load() != 0
}

// OnRenderThread reports whether the caller is the registered render thread.
// This is the non-panicking query; Assert is the debug-build hard check.
func (g *ThreadGuard) OnRenderThread() bool {
	id := g.id.Load()
	return id == 0 || id == goroutineID()
}

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// The first line is "goroutine N [state]:".
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
