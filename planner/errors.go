package planner

import "fmt"

// ExpectedPlannableConjunctionError signals that beam search produced no
// surviving plan for a conjunction that should always be plannable (every
// pattern either has no requirements or its requirements are satisfiable
// from the declared variable scope). This is fatal and a planner bug
// signal, never a partial result.
type ExpectedPlannableConjunctionError struct {
	Detail string
}

func (e *ExpectedPlannableConjunctionError) Error() string {
	if e.Detail == "" {
		return "planner: expected a plannable conjunction but beam search produced none"
	}
	return fmt.Sprintf("planner: expected a plannable conjunction but beam search produced none: %s", e.Detail)
}

// Feature names an unimplemented feature a planner error refers to.
type Feature string

const (
	FeatureLists       Feature = "Lists"
	FeatureOptionals   Feature = "Optionals"
	FeatureUnsortedJoin Feature = "UnsortedJoin"
)

// UnimplementedFeatureError reports a feature the planner deliberately
// does not implement; such features fail deterministically at planning
// rather than producing partially-working paths.
type UnimplementedFeatureError struct {
	Feature Feature
}

func (e *UnimplementedFeatureError) Error() string {
	return fmt.Sprintf("planner: unimplemented feature: %s", e.Feature)
}

// NewUnsortedJoin fails immediately and unconditionally: joins are only
// ever built over a shared sort variable, and no downstream path
// consumes an unsorted join. The entrypoint exists so callers get a
// deterministic error rather than a missing symbol.
func NewUnsortedJoin() error {
	return &UnimplementedFeatureError{Feature: FeatureUnsortedJoin}
}
