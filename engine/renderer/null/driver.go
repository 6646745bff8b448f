// Package null provides a complete in-memory driver. It backs headless/CI
// runs and the package tests: buffers live in byte slices, submissions
// complete instantly, and every native call is counted and (for draws and
// dynamic state) recorded in order.
package null

import (
	"fmt"
	"strings"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
)

type buffer struct {
	data  []byte
	usage dispatch.BufferUsage
	name  string
}

type texture struct {
	width, height uint32
	format        dispatch.TextureFormat
	sampler       dispatch.SamplerHandle
}

type fence struct {
	signaled bool
}

// DrawRecord captures one draw/dispatch as the driver saw it.
type DrawRecord struct {
	Kind          string
	IndexCount    uint32
	InstanceCount uint32
	DrawCount     uint32
	Buffer        dispatch.BufferHandle
	X, Y, Z       uint32
}

// BindlessSlot mirrors one entry of the descriptor array for inspection.
type BindlessSlot struct {
	View    dispatch.ViewHandle
	Sampler dispatch.SamplerHandle
}

type Driver struct {
	nextHandle uint64

	buffers   map[dispatch.BufferHandle]*buffer
	textures  map[dispatch.ViewHandle]*texture
	modules   map[dispatch.ShaderModuleHandle]string
	pipelines map[dispatch.PipelineHandle]dispatch.PipelineDesc
	fences    map[dispatch.FenceHandle]*fence
	timelines map[dispatch.TimelineHandle]uint64

	// Calls counts every native entry point by name.
	Calls map[string]int
	// DynamicCalls is the ordered trace of dynamic-state set calls.
	DynamicCalls []string
	// Draws is the ordered trace of draw/dispatch calls.
	Draws []DrawRecord
	// TimelineWaits is the ordered trace of waited-for timeline values.
	TimelineWaits []uint64
	// Bindless mirrors the descriptor array writes.
	Bindless map[uint32]BindlessSlot

	recordingSlot int32
}

func New() *Driver {
	return &Driver{
		nextHandle:    1,
		buffers:       make(map[dispatch.BufferHandle]*buffer),
		textures:      make(map[dispatch.ViewHandle]*texture),
		modules:       make(map[dispatch.ShaderModuleHandle]string),
		pipelines:     make(map[dispatch.PipelineHandle]dispatch.PipelineDesc),
		fences:        make(map[dispatch.FenceHandle]*fence),
		timelines:     make(map[dispatch.TimelineHandle]uint64),
		Calls:         make(map[string]int),
		Bindless:      make(map[uint32]BindlessSlot),
		recordingSlot: -1,
	}
}

// Snapshot reports a fully featured device at the given version. Tests and
// the headless demo restrict it through Settings.DisabledFeatures or the
// version ceiling instead of hand-building snapshots.
func Snapshot(version capability.Version) *capability.Snapshot {
	return capability.NewSnapshot(version, "null device", map[capability.Feature]bool{
		capability.FeatureTimelineSemaphores:  true,
		capability.FeatureDynamicRendering:    true,
		capability.FeatureEnhancedBarriers:    true,
		capability.FeatureBufferDeviceAddress: true,
		capability.FeatureDescriptorIndexing:  true,
		capability.FeatureMeshShaders:         true,
		capability.FeatureMultiDrawIndirect:   true,
		capability.FeatureIndirectCount:       true,
	}, []string{"VK_EXT_mesh_shader"})
}

func (d *Driver) handle() uint64 {
	h := d.nextHandle
	d.nextHandle++
	return h
}

func (d *Driver) count(name string) {
	d.Calls[name]++
}

// BufferBytes exposes a buffer's backing store for test readback.
func (d *Driver) BufferBytes(h dispatch.BufferHandle) ([]byte, error) {
	b, ok := d.buffers[h]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %d", h)
	}
	return b.data, nil
}

// FindBuffer returns the first live buffer whose debug name starts with the
// given prefix. Test readback for buffers created behind an abstraction.
func (d *Driver) FindBuffer(prefix string) (dispatch.BufferHandle, bool) {
	var best dispatch.BufferHandle
	for h, b := range d.buffers {
		if strings.HasPrefix(b.name, prefix) && (best == 0 || h < best) {
			best = h
		}
	}
	return best, best != 0
}

// Reset clears call counters and traces, keeping live resources.
func (d *Driver) Reset() {
	d.Calls = make(map[string]int)
	d.DynamicCalls = nil
	d.Draws = nil
	d.TimelineWaits = nil
}
