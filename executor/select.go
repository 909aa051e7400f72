package executor

import (
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/storage"
)

// projectSelected copies only vars out of r into a fresh Row, carrying
// r's multiplicity and provenance forward unchanged. Every step narrows
// its output row to its SelectedOutputs, which the planner computes as
// every variable bound up to and including that step, so a later step
// can still read a variable produced several steps back.
func projectSelected(r Row, vars []ids.VariableVertexId) Row {
	out := make(storage.Row, len(vars))
	for _, v := range vars {
		if val, ok := r.Values[v]; ok {
			out[v] = val
		}
	}
	return Row{Values: out, Multiplicity: r.Multiplicity, Provenance: r.Provenance}
}
