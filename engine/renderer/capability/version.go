package capability

import (
	"fmt"
	"strconv"
	"strings"
)

// Version packs an API major.minor pair into a single comparable integer,
// using the native bit layout (major in bits 22+, minor in bits 12+).
type Version uint32

func MakeVersion(major, minor uint32) Version {
	return Version(major<<22 | minor<<12)
}

func (v Version) Major() uint32 {
	return uint32(v) >> 22
}

func (v Version) Minor() uint32 {
	return (uint32(v) >> 12) & 0x3ff
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

// ParseVersion parses "major.minor" strings as found in config files.
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid version '%s', want 'major.minor'", s)
	}
	major, err := strconv.ParseUint(parts[0], 10, 10)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in '%s'", s)
	}
	minor, err := strconv.ParseUint(parts[1], 10, 10)
	if err != nil {
		return 0, fmt.Errorf("invalid minor version in '%s'", s)
	}
	return MakeVersion(uint32(major), uint32(minor)), nil
}

// Min returns the smaller of two versions.
func Min(a, b Version) Version {
	if a < b {
		return a
	}
	return b
}
