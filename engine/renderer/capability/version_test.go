package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.2")
	require.NoError(t, err)
	assert.Equal(t, MakeVersion(1, 2), v)
	assert.Equal(t, "1.2", v.String())
}

func TestParseVersionRejectsMalformedInput(t *testing.T) {
	for _, bad := range []string{"", "1", "1.", ".2", "1.2.3", "one.two", "-1.0"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestVersionOrdering(t *testing.T) {
	assert.Less(t, MakeVersion(1, 0), MakeVersion(1, 1))
	assert.Less(t, MakeVersion(1, 3), MakeVersion(2, 0))
	assert.Equal(t, MakeVersion(1, 2), Min(MakeVersion(1, 3), MakeVersion(1, 2)))
	assert.Equal(t, MakeVersion(1, 1), Min(MakeVersion(1, 1), MakeVersion(1, 1)))
}

func TestSnapshotFeatureAndExtensionLookup(t *testing.T) {
	snap := NewSnapshot(MakeVersion(1, 2), "test device", map[Feature]bool{
		FeatureTimelineSemaphores: true,
		FeatureMeshShaders:        false,
	}, []string{"VK_EXT_mesh_shader"})

	assert.True(t, snap.Has(FeatureTimelineSemaphores))
	assert.False(t, snap.Has(FeatureMeshShaders))
	assert.False(t, snap.Has(FeatureDynamicRendering))
	assert.True(t, snap.HasExtension("VK_EXT_mesh_shader"))
	assert.False(t, snap.HasExtension("VK_KHR_swapchain"))
	assert.Equal(t, "test device", snap.DeviceName())
	assert.Equal(t, MakeVersion(1, 2), snap.Version())
}

func TestSnapshotFeaturesSorted(t *testing.T) {
	snap := NewSnapshot(MakeVersion(1, 0), "dev", map[Feature]bool{
		FeatureMultiDrawIndirect:  true,
		FeatureIndirectCount:      true,
		FeatureDescriptorIndexing: true,
	}, nil)
	features := snap.Features()
	require.Len(t, features, 3)
	for i := 1; i < len(features); i++ {
		assert.Less(t, string(features[i-1]), string(features[i]))
	}
}
