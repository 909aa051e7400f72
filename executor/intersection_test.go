package executor

import (
	"testing"

	"github.com/patternql/querycore/compiled"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/storage"
	"github.com/stretchr/testify/require"
)

// factSource is a fixed-dataset InstructionSource keyed on an
// instruction's Rhs variable, standing in for a concept/storage layer in
// tests: each call returns a fresh MemoryIterator over that dataset.
type factSource struct {
	sortVar ids.VariableVertexId
	data    map[ids.VariableVertexId][]storage.Row
}

func (s *factSource) Iterator(instr compiled.Instruction, _ storage.Row) (storage.SortedIterator, error) {
	return storage.NewMemoryIterator(s.sortVar, s.data[instr.Rhs]), nil
}

func personRow(person, attrVar ids.VariableVertexId, personVal int64, attrVal interface{}) storage.Row {
	return storage.Row{person: personVal, attrVar: attrVal}
}

// TestIntersectionExecutorPersonHasNameAndAge: person has name N, has
// age A over
// (a) age {10,11,12}, name {John,Alice}; (b) age {10,13,14}, no name;
// (c) age {13}, name {Leila}. Expected: 7 rows.
func TestIntersectionExecutorPersonHasNameAndAge(t *testing.T) {
	person := ids.VariableVertexId(0)
	age := ids.VariableVertexId(1)
	name := ids.VariableVertexId(2)

	const p0, p1, p2 = int64(0), int64(1), int64(2)

	source := &factSource{
		sortVar: person,
		data: map[ids.VariableVertexId][]storage.Row{
			age: {
				personRow(person, age, p0, int64(10)),
				personRow(person, age, p0, int64(11)),
				personRow(person, age, p0, int64(12)),
				personRow(person, age, p1, int64(10)),
				personRow(person, age, p1, int64(13)),
				personRow(person, age, p1, int64(14)),
				personRow(person, age, p2, int64(13)),
			},
			name: {
				personRow(person, name, p0, "John"),
				personRow(person, name, p0, "Alice"),
				personRow(person, name, p2, "Leila"),
			},
		},
	}

	step := compiled.Step{
		Kind:         compiled.StepIntersection,
		SortVariable: person,
		Instructions: []compiled.Instruction{
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: name, SortVariable: person},
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: age, SortVariable: person},
		},
		SelectedOutputs: []ids.VariableVertexId{person, name, age},
	}

	ex, err := NewIntersectionExecutor(step, source, []Row{NewRow(storage.Row{})}, nil)
	require.NoError(t, err)
	defer ex.Close()

	var total uint64
	var rows int
	for {
		row, ok, err := ex.NextRow(Interrupt{})
		require.NoError(t, err)
		if !ok {
			break
		}
		rows++
		total += row.Multiplicity
		require.Contains(t, row.Values, person)
		require.Contains(t, row.Values, name)
		require.Contains(t, row.Values, age)
	}
	require.EqualValues(t, 7, total)
	// p0 cartesians into 6 distinct rows (2 names * 3 ages), p2 yields 1
	// more via the simple non-cartesian path; p1 has no name and drops out.
	require.Equal(t, 7, rows)
}

func TestIntersectionExecutorSingleIteratorIsPassThrough(t *testing.T) {
	person := ids.VariableVertexId(0)
	age := ids.VariableVertexId(1)

	source := &factSource{
		sortVar: person,
		data: map[ids.VariableVertexId][]storage.Row{
			age: {
				personRow(person, age, 0, int64(10)),
				personRow(person, age, 1, int64(20)),
			},
		},
	}

	step := compiled.Step{
		Kind:         compiled.StepIntersection,
		SortVariable: person,
		Instructions: []compiled.Instruction{
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: age, SortVariable: person},
		},
		SelectedOutputs: []ids.VariableVertexId{person, age},
	}

	ex, err := NewIntersectionExecutor(step, source, []Row{NewRow(storage.Row{})}, nil)
	require.NoError(t, err)
	defer ex.Close()

	var got []int64
	for {
		row, ok, err := ex.NextRow(Interrupt{})
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, row.Values[age].(int64))
	}
	require.Equal(t, []int64{10, 20}, got)
}

// A single iterator with several distinct tuples at one sort key is pure
// pass-through: each tuple becomes its own output row.
func TestIntersectionExecutorSingleIteratorPassesThroughSharedKey(t *testing.T) {
	person := ids.VariableVertexId(0)
	age := ids.VariableVertexId(1)

	source := &factSource{
		sortVar: person,
		data: map[ids.VariableVertexId][]storage.Row{
			age: {
				personRow(person, age, 0, int64(10)),
				personRow(person, age, 0, int64(11)),
				personRow(person, age, 0, int64(12)),
			},
		},
	}

	step := compiled.Step{
		Kind:         compiled.StepIntersection,
		SortVariable: person,
		Instructions: []compiled.Instruction{
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: age, SortVariable: person},
		},
		SelectedOutputs: []ids.VariableVertexId{person, age},
	}

	ex, err := NewIntersectionExecutor(step, source, []Row{NewRow(storage.Row{})}, nil)
	require.NoError(t, err)
	defer ex.Close()

	var got []int64
	for {
		row, ok, err := ex.NextRow(Interrupt{})
		require.NoError(t, err)
		if !ok {
			break
		}
		require.EqualValues(t, 1, row.Multiplicity)
		got = append(got, row.Values[age].(int64))
	}
	require.Equal(t, []int64{10, 11, 12}, got)
}

// Identical duplicate tuples fold into a single row carrying their count
// as multiplicity instead of materializing.
func TestIntersectionExecutorFoldsIdenticalDuplicatesIntoMultiplicity(t *testing.T) {
	order := ids.VariableVertexId(0)
	buyer := ids.VariableVertexId(1)
	status := ids.VariableVertexId(2)

	source := &factSource{
		sortVar: order,
		data: map[ids.VariableVertexId][]storage.Row{
			buyer: {
				{order: int64(0), buyer: int64(7)},
				{order: int64(0), buyer: int64(7)}, // duplicated link
			},
			status: {
				{order: int64(0), status: "paid"},
			},
		},
	}

	step := compiled.Step{
		Kind:         compiled.StepIntersection,
		SortVariable: order,
		Instructions: []compiled.Instruction{
			{Kind: compiled.InstructionLinks, Lhs: order, Rhs: buyer, SortVariable: order},
			{Kind: compiled.InstructionHas, Lhs: order, Rhs: status, SortVariable: order},
		},
		SelectedOutputs: []ids.VariableVertexId{order, buyer, status},
	}

	ex, err := NewIntersectionExecutor(step, source, []Row{NewRow(storage.Row{})}, nil)
	require.NoError(t, err)
	defer ex.Close()

	row, ok, err := ex.NextRow(Interrupt{})
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, row.Multiplicity)
	require.Equal(t, int64(7), row.Values[buyer])
	require.Equal(t, "paid", row.Values[status])

	_, ok, err = ex.NextRow(Interrupt{})
	require.NoError(t, err)
	require.False(t, ok)
}

// Reset-then-drain with the same input reproduces the same output
// sequence, including the cartesian-to-simple transition between keys.
func TestIntersectionExecutorResetReproducesOutputSequence(t *testing.T) {
	person := ids.VariableVertexId(0)
	age := ids.VariableVertexId(1)
	name := ids.VariableVertexId(2)

	source := &factSource{
		sortVar: person,
		data: map[ids.VariableVertexId][]storage.Row{
			age: {
				personRow(person, age, 0, int64(10)),
				personRow(person, age, 0, int64(11)),
				personRow(person, age, 2, int64(13)),
			},
			name: {
				personRow(person, name, 0, "John"),
				personRow(person, name, 0, "Alice"),
				personRow(person, name, 2, "Leila"),
			},
		},
	}

	step := compiled.Step{
		Kind:         compiled.StepIntersection,
		SortVariable: person,
		Instructions: []compiled.Instruction{
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: name, SortVariable: person},
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: age, SortVariable: person},
		},
		SelectedOutputs: []ids.VariableVertexId{person, name, age},
	}

	input := []Row{NewRow(storage.Row{})}
	ex, err := NewIntersectionExecutor(step, source, input, nil)
	require.NoError(t, err)
	defer ex.Close()

	drain := func() []storage.Row {
		var out []storage.Row
		for {
			row, ok, err := ex.NextRow(Interrupt{})
			require.NoError(t, err)
			if !ok {
				return out
			}
			out = append(out, row.Values)
		}
	}

	first := drain()
	require.Len(t, first, 5) // 2 names x 2 ages for p0, one pair for p2

	require.NoError(t, ex.Reset(input))
	require.Equal(t, first, drain())
}

func TestIntersectionExecutorInterruptStopsEmission(t *testing.T) {
	person := ids.VariableVertexId(0)
	age := ids.VariableVertexId(1)

	source := &factSource{
		sortVar: person,
		data: map[ids.VariableVertexId][]storage.Row{
			age: {personRow(person, age, 0, int64(10))},
		},
	}
	step := compiled.Step{
		Kind:         compiled.StepIntersection,
		SortVariable: person,
		Instructions: []compiled.Instruction{
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: age, SortVariable: person},
		},
		SelectedOutputs: []ids.VariableVertexId{person, age},
	}

	ex, err := NewIntersectionExecutor(step, source, []Row{NewRow(storage.Row{})}, nil)
	require.NoError(t, err)
	defer ex.Close()

	cancelled := make(chan struct{})
	close(cancelled)

	_, ok, err := ex.NextRow(NewInterrupt(cancelled))
	require.NoError(t, err)
	require.False(t, ok)

	batch, more, err := ex.NextBatch(16, NewInterrupt(cancelled))
	require.NoError(t, err)
	require.Empty(t, batch)
	require.True(t, more, "an interrupted batch is not exhaustion")
}

func TestIntersectionExecutorNoMatchSkipsInputRow(t *testing.T) {
	person := ids.VariableVertexId(0)
	age := ids.VariableVertexId(1)
	name := ids.VariableVertexId(2)

	source := &factSource{
		sortVar: person,
		data: map[ids.VariableVertexId][]storage.Row{
			age:  {personRow(person, age, 5, int64(99))},
			name: {}, // no person ever has a name
		},
	}

	step := compiled.Step{
		Kind:         compiled.StepIntersection,
		SortVariable: person,
		Instructions: []compiled.Instruction{
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: name, SortVariable: person},
			{Kind: compiled.InstructionHas, Lhs: person, Rhs: age, SortVariable: person},
		},
		SelectedOutputs: []ids.VariableVertexId{person, name, age},
	}

	ex, err := NewIntersectionExecutor(step, source, []Row{NewRow(storage.Row{})}, nil)
	require.NoError(t, err)
	defer ex.Close()

	_, ok, err := ex.NextRow(Interrupt{})
	require.NoError(t, err)
	require.False(t, ok)
}
