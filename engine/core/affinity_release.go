//go:build !debug

package core

// Assert is compiled out in release builds.
func (g *ThreadGuard) Assert(op string) {}
