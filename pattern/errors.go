package pattern

import "fmt"

// UnsupportedFeatureError is returned when a conjunction references a
// feature the planner deliberately does not implement: list-valued
// variables or optional sub-patterns. (An unsorted join is reported by
// the planner's own UnimplementedFeatureError instead.) These fail
// deterministically rather than silently degrade.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("pattern: unimplemented feature: %s", e.Feature)
}
