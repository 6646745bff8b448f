package capability

import "sort"

// Feature names an optional hardware/driver capability probed at detection
// time.
type Feature string

const (
	FeatureTimelineSemaphores  Feature = "timeline-semaphores"
	FeatureDynamicRendering    Feature = "dynamic-rendering"
	FeatureEnhancedBarriers    Feature = "enhanced-barriers"
	FeatureBufferDeviceAddress Feature = "buffer-device-address"
	FeatureDescriptorIndexing  Feature = "descriptor-indexing"
	FeatureMeshShaders         Feature = "mesh-shaders"
	FeatureMultiDrawIndirect   Feature = "multi-draw-indirect"
	FeatureIndirectCount       Feature = "indirect-with-count"
)

// Snapshot is the immutable record of detected hardware/driver facts. It is
// produced once by a native driver (or constructed by hand in tests) before
// the backend initializes and is never mutated afterwards.
type Snapshot struct {
	version    Version
	deviceName string
	features   map[Feature]bool
	extensions map[string]struct{}
}

// NewSnapshot copies its inputs; callers cannot alias the internal maps.
func NewSnapshot(version Version, deviceName string, features map[Feature]bool, extensions []string) *Snapshot {
	s := &Snapshot{
		version:    version,
		deviceName: deviceName,
		features:   make(map[Feature]bool, len(features)),
		extensions: make(map[string]struct{}, len(extensions)),
	}
	for f, ok := range features {
		s.features[f] = ok
	}
	for _, e := range extensions {
		s.extensions[e] = struct{}{}
	}
	return s
}

func (s *Snapshot) Version() Version {
	return s.version
}

func (s *Snapshot) DeviceName() string {
	return s.deviceName
}

// Has reports whether the named feature was detected.
func (s *Snapshot) Has(f Feature) bool {
	return s.features[f]
}

// HasExtension reports membership in the detected extension set.
func (s *Snapshot) HasExtension(name string) bool {
	_, ok := s.extensions[name]
	return ok
}

// Features returns the detected feature names in sorted order, for logging.
func (s *Snapshot) Features() []Feature {
	out := make([]Feature, 0, len(s.features))
	for f, ok := range s.features {
		if ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
