//go:build debug

package core

// Assert panics when the caller is not the registered render thread. Only
// compiled in under the `debug` build tag.
func (g *ThreadGuard) Assert(op string) {
	if !g.OnRenderThread() {
		LogError("'%s' called off the render thread", op)
		panic(ErrWrongThread)
	}
}
