package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
)

func TestDefaultSettingsValidate(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, capability.MakeVersion(1, 3), s.Ceiling())
	assert.Equal(t, uint32(3), s.FramesInFlight)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"bad ceiling", func(s *Settings) { s.VersionCeiling = "latest" }},
		{"zero frames in flight", func(s *Settings) { s.FramesInFlight = 0 }},
		{"zero batch size", func(s *Settings) { s.CommandBatchSize = 0 }},
		{"zero indirect draws", func(s *Settings) { s.MaxIndirectDraws = 0 }},
		{"zero instances", func(s *Settings) { s.MaxInstances = 0 }},
		{"zero work group", func(s *Settings) { s.CullWorkGroupSize = 0 }},
		{"zero pool size", func(s *Settings) { s.DescriptorPoolSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			tc.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestLoadFileAppliesOverridesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	data := []byte(`
version_ceiling = "1.2"
strict_no_emulation = true
frames_in_flight = 2
disabled_features = ["mesh-shaders"]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, capability.MakeVersion(1, 2), s.Ceiling())
	assert.True(t, s.StrictNoEmulation)
	assert.Equal(t, uint32(2), s.FramesInFlight)
	assert.True(t, s.FeatureDisabled(capability.FeatureMeshShaders))
	assert.False(t, s.FeatureDisabled(capability.FeatureTimelineSemaphores))

	// Untouched keys keep their defaults.
	assert.Equal(t, uint32(4096), s.MaxIndirectDraws)
}

func TestLoadFileRejectsInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`frames_in_flight = 0`), 0o644))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
