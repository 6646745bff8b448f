package gpudriven

import (
	"fmt"

	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
)

// Wire layouts, fixed by the native indirect-draw structure. Little-endian,
// tightly packed. Do not alter.
const (
	// {u32 indexCount, u32 instanceCount, u32 firstIndex, i32 vertexOffset,
	//  u32 firstInstance}
	IndirectCommandSize = 20

	// 64-byte row-major transform followed by a 16-byte custom payload.
	InstanceStride        = 80
	instanceTransformSize = 64
)

// DrawBatch accumulates indirect-draw records and per-instance data directly
// into the current frame slot's mapped rings. One batch per frame; Finalize
// writes the draw count exactly once, after which the batch is sealed.
type DrawBatch struct {
	sys  *System
	slot uint32

	indirect  arena
	count     arena
	instances arena

	drawCount     uint32
	instanceCount uint32
	finalized     bool
}

// AddDraw appends one indirect-draw record and returns its index. New records
// draw a single instance starting at zero until SetDrawInstanceCount patches
// them.
func (b *DrawBatch) AddDraw(indexCount, firstIndex uint32, vertexOffset int32) (uint32, error) {
	if b.finalized {
		return 0, fmt.Errorf("AddDraw called on a finalized batch")
	}
	if b.drawCount >= b.sys.maxDraws {
		return 0, &core.CapacityExceededError{What: "indirect draw", Limit: b.sys.maxDraws}
	}

	offset := uint64(b.drawCount) * IndirectCommandSize
	if err := b.indirect.check(offset, IndirectCommandSize); err != nil {
		return 0, err
	}
	_ = b.indirect.putU32(offset+0, indexCount)
	_ = b.indirect.putU32(offset+4, 1) // instanceCount
	_ = b.indirect.putU32(offset+8, firstIndex)
	_ = b.indirect.putI32(offset+12, vertexOffset)
	_ = b.indirect.putU32(offset+16, 0) // firstInstance

	index := b.drawCount
	b.drawCount++
	return index, nil
}

// AddInstance appends one 80-byte instance record (row-major transform plus
// custom payload) and returns its index.
func (b *DrawBatch) AddInstance(transform [16]float32, custom [4]float32) (uint32, error) {
	if b.finalized {
		return 0, fmt.Errorf("AddInstance called on a finalized batch")
	}
	if b.instanceCount >= b.sys.maxInstances {
		return 0, &core.CapacityExceededError{What: "instance", Limit: b.sys.maxInstances}
	}

	offset := uint64(b.instanceCount) * InstanceStride
	if err := b.instances.check(offset, InstanceStride); err != nil {
		return 0, err
	}
	for i, f := range transform {
		_ = b.instances.putF32(offset+uint64(i)*4, f)
	}
	for i, f := range custom {
		_ = b.instances.putF32(offset+instanceTransformSize+uint64(i)*4, f)
	}

	index := b.instanceCount
	b.instanceCount++
	return index, nil
}

// SetDrawInstanceCount patches a previously written draw record with its
// instance range.
func (b *DrawBatch) SetDrawInstanceCount(drawIndex, instanceCount, firstInstance uint32) error {
	if b.finalized {
		return fmt.Errorf("SetDrawInstanceCount called on a finalized batch")
	}
	if drawIndex >= b.drawCount {
		return &core.ResourceNotFoundError{Kind: "draw record", Handle: uint64(drawIndex)}
	}
	offset := uint64(drawIndex) * IndirectCommandSize
	if err := b.indirect.putU32(offset+4, instanceCount); err != nil {
		return err
	}
	return b.indirect.putU32(offset+16, firstInstance)
}

// Finalize writes the final draw count into the count buffer and seals the
// batch. Exactly once per batch.
func (b *DrawBatch) Finalize() error {
	if b.finalized {
		return fmt.Errorf("batch already finalized")
	}
	if err := b.count.putU32(0, b.drawCount); err != nil {
		return err
	}
	b.finalized = true
	return nil
}

func (b *DrawBatch) DrawCount() uint32 {
	return b.drawCount
}

func (b *DrawBatch) InstanceCount() uint32 {
	return b.instanceCount
}

func (b *DrawBatch) Finalized() bool {
	return b.finalized
}
