package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameTimeAveragesOverWindow(t *testing.T) {
	fs := NewFrameStats()

	// 16ms frames, fed in seconds.
	for i := uint8(0); i < AVG_COUNT; i++ {
		fs.Update(0.016)
	}
	assert.InDelta(t, 16.0, fs.FrameTime(), 1e-9)
}

func TestFrameTimeWaitsForFullWindow(t *testing.T) {
	fs := NewFrameStats()
	for i := uint8(0); i < AVG_COUNT-1; i++ {
		fs.Update(0.016)
	}
	assert.Zero(t, fs.FrameTime())
}

func TestFPSCountsFramesPerAccumulatedSecond(t *testing.T) {
	fs := NewFrameStats()

	// 10ms frames: the counter rolls over at the 101st update with 100
	// frames accumulated in the window behind it.
	for i := 0; i < 101; i++ {
		fs.Update(0.010)
	}
	fps, _ := fs.Frame()
	assert.InDelta(t, 100.0, fps, 1.0)
}
