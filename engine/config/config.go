package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
)

// Settings is the immutable configuration snapshot captured at engine init.
// Load it from TOML or start from Default(); after the engine consumes it, it
// must not be mutated.
type Settings struct {
	// VersionCeiling caps the effective API version ("1.2" style). The
	// backend never selects a tier above it, even on more capable hardware.
	VersionCeiling string `toml:"version_ceiling"`

	// StrictNoEmulation makes unavailable optional operations fail with an
	// UnsupportedCapability error instead of silently no-opping.
	StrictNoEmulation bool `toml:"strict_no_emulation"`

	// PanicOnInitFailure panics when no operation set can be bound. When
	// false the backend stays in an explicit not-initialized state and every
	// entry point returns ErrNotInitialized.
	PanicOnInitFailure bool `toml:"panic_on_init_failure"`

	// Debug enables validation layers and debug-level logging.
	Debug bool `toml:"debug"`

	// DisabledFeatures turns detected features off by name, forcing the
	// fallback paths (feature names match the capability package).
	DisabledFeatures []string `toml:"disabled_features"`

	FramesInFlight   uint32 `toml:"frames_in_flight"`
	CommandBatchSize uint32 `toml:"command_batch_size"`

	// GPU-driven rendering limits. Batches hard-fail beyond these.
	MaxIndirectDraws  uint32 `toml:"max_indirect_draws"`
	MaxInstances      uint32 `toml:"max_instances"`
	CullWorkGroupSize uint32 `toml:"cull_work_group_size"`

	DescriptorPoolSize uint32 `toml:"descriptor_pool_size"`

	// StagingBufferSize sizes the driver's persistent upload buffer;
	// MemoryBudgetMB caps total device allocations (0 = unlimited).
	StagingBufferSize uint64 `toml:"staging_buffer_size"`
	MemoryBudgetMB    uint64 `toml:"memory_budget_mb"`
}

func Default() *Settings {
	return &Settings{
		VersionCeiling:     "1.3",
		StrictNoEmulation:  false,
		PanicOnInitFailure: false,
		Debug:              false,
		FramesInFlight:     3,
		CommandBatchSize:   64,
		MaxIndirectDraws:   4096,
		MaxInstances:       16384,
		CullWorkGroupSize:  64,
		DescriptorPoolSize: 1024,
		StagingBufferSize:  16 * 1024 * 1024,
		MemoryBudgetMB:     512,
	}
}

// LoadFile reads a TOML file over the defaults.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file '%s': %w", path, err)
	}
	s := Default()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file '%s': %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if _, err := capability.ParseVersion(s.VersionCeiling); err != nil {
		return err
	}
	if s.FramesInFlight == 0 {
		return fmt.Errorf("frames_in_flight must be at least 1")
	}
	if s.CommandBatchSize == 0 {
		return fmt.Errorf("command_batch_size must be at least 1")
	}
	if s.MaxIndirectDraws == 0 || s.MaxInstances == 0 {
		return fmt.Errorf("max_indirect_draws and max_instances must be at least 1")
	}
	if s.CullWorkGroupSize == 0 {
		return fmt.Errorf("cull_work_group_size must be at least 1")
	}
	if s.DescriptorPoolSize == 0 {
		return fmt.Errorf("descriptor_pool_size must be at least 1")
	}
	return nil
}

// Ceiling returns the parsed version ceiling. Validate must have passed.
func (s *Settings) Ceiling() capability.Version {
	v, err := capability.ParseVersion(s.VersionCeiling)
	if err != nil {
		// Validate rejects unparsable ceilings; reaching this means the
		// settings were mutated after init.
		panic(err)
	}
	return v
}

// FeatureDisabled reports whether the named feature was turned off in config.
func (s *Settings) FeatureDisabled(f capability.Feature) bool {
	for _, name := range s.DisabledFeatures {
		if name == string(f) {
			return true
		}
	}
	return false
}
