package gpudriven

import (
	"encoding/binary"
	"fmt"
	"math"
)

// arena is a bounds-checked little-endian view over a persistently mapped
// byte region. All indirect/instance records go through it; there is no raw
// offset arithmetic anywhere else in the package.
type arena struct {
	mem []byte
}

func (a arena) check(offset, size uint64) error {
	if offset+size > uint64(len(a.mem)) {
		return fmt.Errorf("arena write of %d bytes at offset %d exceeds region of %d bytes",
			size, offset, len(a.mem))
	}
	return nil
}

func (a arena) putU32(offset uint64, v uint32) error {
	if err := a.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(a.mem[offset:], v)
	return nil
}

func (a arena) putI32(offset uint64, v int32) error {
	return a.putU32(offset, uint32(v))
}

func (a arena) putF32(offset uint64, v float32) error {
	return a.putU32(offset, math.Float32bits(v))
}

func (a arena) u32(offset uint64) uint32 {
	return binary.LittleEndian.Uint32(a.mem[offset:])
}
