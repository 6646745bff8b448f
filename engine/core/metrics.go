package core

const AVG_COUNT uint8 = 30

// FrameStats accumulates per-frame timing and submission counters. It is
// owned by the renderer instance and must only be touched from the render
// thread.
//
// IndirectDraws is incremented speculatively for indirect-count submissions:
// the GPU decides the real draw count after culling, so the CPU-side number
// is an upper bound. This imprecision is intentional.
type FrameStats struct {
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64

	DrawCalls     uint64
	IndirectDraws uint64
	Dispatches    uint64
	Instances     uint64
	BindsIssued   uint64
	BindsElided   uint64
	StateFlushes  uint64
}

func NewFrameStats() *FrameStats {
	return &FrameStats{}
}

// Update folds one frame's elapsed time (seconds) into the rolling averages.
func (fs *FrameStats) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	fs.msTimes[fs.frameAVGCounter] = frameMS
	if fs.frameAVGCounter == AVG_COUNT-1 {
		fs.msAvg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			fs.msAvg += fs.msTimes[i]
		}
		fs.msAvg /= float64(AVG_COUNT)
	}
	fs.frameAVGCounter++
	fs.frameAVGCounter %= AVG_COUNT

	fs.accumulatedFrameMS += frameMS
	if fs.accumulatedFrameMS > 1000 {
		fs.fps = float64(fs.frames)
		fs.accumulatedFrameMS -= 1000
		fs.frames = 0
	}

	fs.frames++
}

func (fs *FrameStats) FPS() float64 {
	return fs.fps
}

func (fs *FrameStats) FrameTime() float64 {
	return fs.msAvg
}

func (fs *FrameStats) Frame() (float64, float64) {
	return fs.fps, fs.msAvg
}
