package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snow-11y/FPSFlux-sub005/engine/config"
	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/capability"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/null"
)

func newSettings() *config.Settings {
	s := config.Default()
	s.FramesInFlight = 2
	return s
}

func bindOps(t *testing.T, d *null.Driver, version string, mutate func(*config.Settings)) dispatch.OperationSet {
	t.Helper()
	v, err := capability.ParseVersion(version)
	require.NoError(t, err)
	settings := newSettings()
	if mutate != nil {
		mutate(settings)
	}
	ops, err := dispatch.Select(d.Table(), null.Snapshot(v), settings)
	require.NoError(t, err)
	return ops
}

func TestSelectBindsHighestTierAtOrBelowDeviceVersion(t *testing.T) {
	cases := []struct {
		device string
		want   capability.Version
	}{
		{"1.0", dispatch.Tier10},
		{"1.1", dispatch.Tier11},
		{"1.2", dispatch.Tier12},
		{"1.3", dispatch.Tier13},
		{"1.4", dispatch.Tier13},
	}
	for _, tc := range cases {
		t.Run(tc.device, func(t *testing.T) {
			ops := bindOps(t, null.New(), tc.device, func(s *config.Settings) {
				s.VersionCeiling = "1.4"
			})
			assert.Equal(t, tc.want, ops.Tier())
		})
	}
}

func TestSelectCapsTierAtConfiguredCeiling(t *testing.T) {
	ops := bindOps(t, null.New(), "1.3", func(s *config.Settings) {
		s.VersionCeiling = "1.1"
	})
	assert.Equal(t, dispatch.Tier11, ops.Tier())
}

func TestSelectRejectsNilTable(t *testing.T) {
	_, err := dispatch.Select(nil, null.Snapshot(dispatch.Tier13), newSettings())
	var initErr *core.InitializationFailureError
	require.ErrorAs(t, err, &initErr)
}

func TestSelectReportsEveryMissingRequiredOperation(t *testing.T) {
	_, err := dispatch.Select(&dispatch.ProcTable{}, null.Snapshot(dispatch.Tier13), newSettings())
	var initErr *core.InitializationFailureError
	require.ErrorAs(t, err, &initErr)
	assert.Contains(t, initErr.Error(), "GenBuffer")
	assert.Contains(t, initErr.Error(), "FenceStatus")
	assert.Contains(t, initErr.Error(), "DrawIndexedIndirect")
}

func TestOptionalOperationsGatedByTier(t *testing.T) {
	d := null.New()

	tier10 := bindOps(t, d, "1.0", nil)
	assert.False(t, tier10.Supports(dispatch.OpMapRange))
	assert.False(t, tier10.Supports(dispatch.OpTimelineSemaphore))
	assert.False(t, tier10.Supports(dispatch.OpDynamicRendering))

	tier11 := bindOps(t, d, "1.1", nil)
	assert.True(t, tier11.Supports(dispatch.OpMapRange))
	assert.True(t, tier11.Supports(dispatch.OpMultiDrawIndirect))
	assert.False(t, tier11.Supports(dispatch.OpTimelineSemaphore))

	tier12 := bindOps(t, d, "1.2", nil)
	assert.True(t, tier12.Supports(dispatch.OpTimelineSemaphore))
	assert.True(t, tier12.Supports(dispatch.OpDrawIndexedIndirectCount))
	assert.True(t, tier12.Supports(dispatch.OpBufferDeviceAddress))
	assert.False(t, tier12.Supports(dispatch.OpDynamicRendering))

	tier13 := bindOps(t, d, "1.3", nil)
	assert.True(t, tier13.Supports(dispatch.OpDynamicRendering))
	assert.True(t, tier13.Supports(dispatch.OpEnhancedBarriers))
	assert.True(t, tier13.Supports(dispatch.OpExtendedDynamicState))
}

func TestOptionalOperationUnavailableWhenDriverEntryMissing(t *testing.T) {
	d := null.New()
	settings := newSettings()
	ops, err := dispatch.Select(d.TableWithout("Timeline", "DrawIndexedIndirectCount"),
		null.Snapshot(dispatch.Tier13), settings)
	require.NoError(t, err)

	assert.False(t, ops.Supports(dispatch.OpTimelineSemaphore))
	assert.False(t, ops.Supports(dispatch.OpDrawIndexedIndirectCount))
	assert.True(t, ops.Supports(dispatch.OpMapRange))
}

func TestDisabledFeatureForcesFallbackPath(t *testing.T) {
	ops := bindOps(t, null.New(), "1.3", func(s *config.Settings) {
		s.DisabledFeatures = []string{"mesh-shaders", "buffer-device-address"}
	})
	assert.False(t, ops.Supports(dispatch.OpDrawMeshTasks))
	assert.False(t, ops.Supports(dispatch.OpBufferDeviceAddress))
	assert.True(t, ops.Supports(dispatch.OpMultiDrawIndirect))
}

func TestStrictModeFailsMissingOptionalOperation(t *testing.T) {
	d := null.New()
	ops := bindOps(t, d, "1.3", func(s *config.Settings) {
		s.StrictNoEmulation = true
		s.DisabledFeatures = []string{"buffer-device-address"}
	})

	buf, err := ops.GenBuffer(64, dispatch.BufferUsageStorage, "bda-test")
	require.NoError(t, err)

	_, err = ops.BufferDeviceAddress(buf)
	assert.True(t, core.IsUnsupported(err))
	assert.Zero(t, d.Calls["BufferDeviceAddress"])
}

func TestLenientModeNeutralizesMissingOptionalOperation(t *testing.T) {
	d := null.New()
	ops := bindOps(t, d, "1.3", func(s *config.Settings) {
		s.DisabledFeatures = []string{"buffer-device-address"}
	})

	buf, err := ops.GenBuffer(64, dispatch.BufferUsageStorage, "bda-test")
	require.NoError(t, err)

	addr, err := ops.BufferDeviceAddress(buf)
	require.NoError(t, err)
	assert.Zero(t, addr)
	assert.Zero(t, d.Calls["BufferDeviceAddress"])
}

func TestMultiDrawFallbackIssuesOneCallPerRecord(t *testing.T) {
	d := null.New()
	ops := bindOps(t, d, "1.3", func(s *config.Settings) {
		s.DisabledFeatures = []string{"multi-draw-indirect"}
	})

	buf, err := ops.GenBuffer(3*20, dispatch.BufferUsageIndirect, "indirect")
	require.NoError(t, err)

	require.NoError(t, ops.DrawIndexedIndirect(buf, 0, 3, 20))
	require.Len(t, d.Draws, 3)
	for _, rec := range d.Draws {
		assert.Equal(t, "DrawIndexedIndirect", rec.Kind)
		assert.Equal(t, uint32(1), rec.DrawCount)
	}
}

func TestMultiDrawStrictModeRefusesMultiRecordSubmission(t *testing.T) {
	d := null.New()
	ops := bindOps(t, d, "1.3", func(s *config.Settings) {
		s.StrictNoEmulation = true
		s.DisabledFeatures = []string{"multi-draw-indirect"}
	})

	buf, err := ops.GenBuffer(3*20, dispatch.BufferUsageIndirect, "indirect")
	require.NoError(t, err)

	err = ops.DrawIndexedIndirect(buf, 0, 3, 20)
	assert.True(t, core.IsUnsupported(err))

	// A single record never needs multi-draw, strict or not.
	require.NoError(t, ops.DrawIndexedIndirect(buf, 0, 1, 20))
}

func TestSingleDrawBypassesMultiDrawGateInLenientMode(t *testing.T) {
	d := null.New()
	ops := bindOps(t, d, "1.3", func(s *config.Settings) {
		s.DisabledFeatures = []string{"multi-draw-indirect"}
	})

	buf, err := ops.GenBuffer(20, dispatch.BufferUsageIndirect, "indirect")
	require.NoError(t, err)
	require.NoError(t, ops.DrawIndexedIndirect(buf, 0, 1, 20))
	assert.Equal(t, 1, d.Calls["DrawIndexedIndirect"])
}
