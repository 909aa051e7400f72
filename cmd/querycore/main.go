// Command querycore is a thin demo driver: it builds an in-memory
// conjunction, plans it, lowers the plan, executes it against an
// in-memory fact store, and prints the resulting rows as a table.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/patternql/querycore/annotations"
	"github.com/patternql/querycore/compiled"
	"github.com/patternql/querycore/executor"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/pattern"
	"github.com/patternql/querycore/planner"
	"github.com/patternql/querycore/stats"
	"github.com/patternql/querycore/storage"
	"github.com/patternql/querycore/value"
)

func main() {
	verbose := flag.Bool("verbose", false, "print planner/execution annotations to stderr")
	flag.Parse()

	var collector *annotations.Collector
	if *verbose {
		formatter := annotations.NewOutputFormatter(os.Stderr)
		collector = annotations.NewCollector(formatter.Handle)
	} else {
		collector = annotations.NewCollector(nil)
	}

	if err := run(collector); err != nil {
		fmt.Fprintln(os.Stderr, "querycore:", err)
		os.Exit(1)
	}
}

// run reproduces the "person has name, has age" scenario: three people,
// two of whom have more than one name or age recorded, one of whom has
// no name at all.
func run(collector *annotations.Collector) error {
	conjunction := pattern.Conjunction{
		Variables: []pattern.VariableSpec{
			{Name: "person", Category: pattern.CategoryShared, Kind: pattern.Thing},
			{Name: "name", Category: pattern.CategoryShared, Kind: pattern.Value},
			{Name: "age", Category: pattern.CategoryShared, Kind: pattern.Value},
		},
		Has: []pattern.HasSpec{
			{Owner: "person", Attribute: "name"},
			{Owner: "person", Attribute: "age"},
		},
	}

	oracle := stats.NewMemoryOracle().
		WithAttributeOwners("name", 3).
		WithAttributeOwners("age", 3)

	opts := planner.DefaultOptions()
	opts.Collector = collector

	plan, err := planner.PlanConjunction(conjunction, oracle, nil, opts)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	exec, err := plan.Lower()
	if err != nil {
		return fmt.Errorf("lowering: %w", err)
	}

	personID := plan.Graph().VariableByName["person"]
	nameID := plan.Graph().VariableByName["name"]
	ageID := plan.Graph().VariableByName["age"]

	source := newMemorySource(personID, map[ids.VariableVertexId][]storage.Row{
		nameID: {
			fact(personID, nameID, 0, "John"),
			fact(personID, nameID, 0, "Alice"),
			fact(personID, nameID, 2, "Leila"),
		},
		ageID: {
			fact(personID, ageID, 0, int64(10)),
			fact(personID, ageID, 0, int64(11)),
			fact(personID, ageID, 0, int64(12)),
			fact(personID, ageID, 1, int64(10)),
			fact(personID, ageID, 1, int64(13)),
			fact(personID, ageID, 1, int64(14)),
			fact(personID, ageID, 2, int64(13)),
		},
	})

	env := executor.Env{Source: source, Collector: collector}
	rows, err := executor.Execute(exec, env, []executor.Row{executor.NewRow(storage.Row{})}, executor.Interrupt{})
	if err != nil {
		return fmt.Errorf("executing: %w", err)
	}

	names := map[ids.VariableVertexId]string{personID: "person", nameID: "name", ageID: "age"}
	fmt.Println(executor.FormatTable(rows, exec.OutputVars, names))
	return nil
}

func fact(sortVar, attrVar ids.VariableVertexId, sortVal int64, attrVal value.Value) storage.Row {
	return storage.Row{sortVar: sortVal, attrVar: attrVal}
}

// memorySource is an InstructionSource over a fixed fact map keyed on
// each instruction's Rhs variable, standing in for a concept/storage
// layer for this demo binary.
type memorySource struct {
	sortVar ids.VariableVertexId
	data    map[ids.VariableVertexId][]storage.Row
}

func newMemorySource(sortVar ids.VariableVertexId, data map[ids.VariableVertexId][]storage.Row) *memorySource {
	return &memorySource{sortVar: sortVar, data: data}
}

func (s *memorySource) Iterator(instr compiled.Instruction, _ storage.Row) (storage.SortedIterator, error) {
	return storage.NewMemoryIterator(s.sortVar, s.data[instr.Rhs]), nil
}
