package planner

import "github.com/patternql/querycore/annotations"

// Options configures a planning run. Plain struct threaded through
// explicitly, no globals or environment lookups.
type Options struct {
	// BeamWidthOverride, if non-zero, replaces the default
	// clamp(2*num_patterns, 2, 96) starting beam width. Intended for
	// tests that want deterministic small beams.
	BeamWidthOverride int
	// ExtensionWidthOverride, if non-zero, replaces the default
	// num_patterns/2+5 starting extension width.
	ExtensionWidthOverride int

	// Collector receives beam/step lifecycle events if non-nil.
	Collector *annotations.Collector
}

// DefaultOptions returns the default planner configuration.
func DefaultOptions() Options {
	return Options{}
}

func (o Options) collector() *annotations.Collector {
	if o.Collector != nil {
		return o.Collector
	}
	return annotations.NewCollector(nil)
}
