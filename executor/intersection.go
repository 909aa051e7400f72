package executor

import (
	"fmt"

	"github.com/patternql/querycore/annotations"
	"github.com/patternql/querycore/compiled"
	"github.com/patternql/querycore/storage"
	"github.com/patternql/querycore/value"
)

// IntersectionExecutor drives one compiled.StepIntersection: a k-way
// sorted lockstep merge-join over one SortedIterator per instruction in
// the step, re-seeded from a fresh input row whenever the prior row's
// iterators run dry.
type IntersectionExecutor struct {
	step      compiled.Step
	source    InstructionSource
	collector *annotations.Collector

	input    []Row
	inputPos int

	currentInput Row
	iterators    []storage.SortedIterator

	cartesian *CartesianIterator

	haveIntersection         bool
	intersectionValue        value.Value
	intersectionRow          storage.Row
	intersectionMultiplicity uint64
	intersectionProvenance   int

	// cartesianMultiplicity is carried on every row the active cartesian
	// iterator emits: the input row's multiplicity times the duplicate
	// counts of the iterators NOT participating in the cartesian. The
	// participants' rows are re-enumerated physically by the cartesian,
	// so their counts must not also scale the multiplicity.
	cartesianMultiplicity uint64
}

// NewIntersectionExecutor builds an executor over step for the given
// input rows, preparing the first row's iterators. collector may be nil.
func NewIntersectionExecutor(step compiled.Step, source InstructionSource, input []Row, collector *annotations.Collector) (*IntersectionExecutor, error) {
	if collector == nil {
		collector = annotations.NewCollector(nil)
	}
	e := &IntersectionExecutor{step: step, source: source, collector: collector}
	if err := e.Reset(input); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset clears all owned iterators and state and re-seeds from input.
// Resetting and re-draining with the same input reproduces the same
// output sequence; cancellation uses the same path to release iterators
// deterministically.
func (e *IntersectionExecutor) Reset(input []Row) error {
	e.clearIterators()
	e.cartesian = nil
	e.haveIntersection = false
	e.input = input
	e.inputPos = 0
	e.currentInput = Row{}
	_, err := e.nextInputRow()
	return err
}

// Close releases every iterator this executor currently owns.
func (e *IntersectionExecutor) Close() {
	e.clearIterators()
}

func (e *IntersectionExecutor) clearIterators() {
	for _, it := range e.iterators {
		it.Close()
	}
	e.iterators = nil
	if e.cartesian != nil {
		e.cartesian.Close()
		e.cartesian = nil
	}
}

// nextInputRow consumes the next input row and rebuilds the step's
// iterators from it.
func (e *IntersectionExecutor) nextInputRow() (bool, error) {
	e.clearIterators()
	if e.inputPos >= len(e.input) {
		return false, nil
	}
	e.currentInput = e.input[e.inputPos]
	e.inputPos++
	return true, e.prepareIterators()
}

func (e *IntersectionExecutor) prepareIterators() error {
	e.iterators = make([]storage.SortedIterator, 0, len(e.step.Instructions))
	for _, instr := range e.step.Instructions {
		it, err := e.source.Iterator(instr, e.currentInput.Values)
		if err != nil {
			return &CreatingIteratorError{Name: instr.Kind.String(), Cause: err}
		}
		e.iterators = append(e.iterators, it)
	}
	e.collector.Add(annotations.Event{Name: annotations.IntersectionPrepare, Data: map[string]interface{}{
		"sort.var":       e.step.SortVariable.String(),
		"iterator.count": len(e.iterators),
	}})
	return nil
}

// fail clears this row's iterators and reports the intersection attempt
// as failed, for findIntersection's multiple no-match exits.
func (e *IntersectionExecutor) fail() (bool, error) {
	e.clearIterators()
	e.collector.Add(annotations.Event{Name: annotations.IntersectionFailed})
	return false, nil
}

// findIntersection runs the k-way lockstep scan: advance lagging
// iterators until every one peeks the same sort-variable value, or fail
// if any iterator can't reach it.
func (e *IntersectionExecutor) findIntersection() (bool, error) {
	if len(e.iterators) == 0 {
		return false, nil
	}
	if len(e.iterators) == 1 {
		v, ok := e.iterators[0].Peek()
		if !ok {
			return e.fail()
		}
		e.intersectionValue = v
		return true, nil
	}

	maxIdx := 0
	maxVal, ok := e.iterators[0].Peek()
	if !ok {
		return e.fail()
	}

	for {
		retried := false
		for i, it := range e.iterators {
			if i == maxIdx {
				continue
			}
			v, ok := it.Peek()
			if !ok {
				return e.fail()
			}
			switch {
			case value.Compare(maxVal, v) < 0:
				maxVal, maxIdx = v, i
				retried = true
			case value.Compare(maxVal, v) == 0:
				// already at max, nothing to do
			default:
				ord, err := it.AdvanceUntilFirstUnboundIs(maxVal)
				if err != nil {
					return false, &AdvancingIteratorToError{Detail: value.ToString(maxVal), Cause: err}
				}
				v2, ok2 := it.Peek()
				if !ok2 {
					return e.fail()
				}
				if ord == storage.Equal {
					continue
				}
				maxVal, maxIdx = v2, i
				retried = true
			}
		}
		if !retried {
			e.intersectionValue = maxVal
			return true, nil
		}
	}
}

// recordIntersection captures the current intersection into the emission
// buffer: every iterator's peeked values merge into the intersection
// row, and input-row values survive in the positions no iterator fills.
func (e *IntersectionExecutor) recordIntersection() error {
	row := e.currentInput.Values.Clone()
	for _, it := range e.iterators {
		if err := it.WriteValues(row); err != nil {
			return err
		}
	}
	if v, ok := row[e.step.SortVariable]; ok && !value.Equal(v, e.intersectionValue) {
		return fmt.Errorf("executor: sort variable disagreement at intersection: row has %v, intersection is %v",
			value.ToString(v), value.ToString(e.intersectionValue))
	}
	row[e.step.SortVariable] = e.intersectionValue
	e.intersectionRow = row
	e.intersectionProvenance = e.currentInput.Provenance
	return nil
}

// advanceIteratorsWithMultiplicity advances each iterator past its
// current tuple, collecting the per-iterator duplicate counts whose
// product (times the input row's multiplicity) is the intersection's
// multiplicity.
func (e *IntersectionExecutor) advanceIteratorsWithMultiplicity() ([]uint64, error) {
	counts := make([]uint64, len(e.iterators))
	for i, it := range e.iterators {
		n, err := it.AdvancePast()
		if err != nil {
			return nil, err
		}
		counts[i] = n
	}
	return counts, nil
}

// mayActivateCartesian activates the cartesian sub-executor when more
// than one iterator is in play and at least one of them still has
// further tuples at the intersection value. When the cartesian activates
// it replaces the single-row emission entirely: its first output is the
// combination recordIntersection just captured.
func (e *IntersectionExecutor) mayActivateCartesian(counts []uint64) error {
	if len(e.iterators) > 1 {
		var members []int
		for i, it := range e.iterators {
			if v, ok := it.Peek(); ok && value.Equal(v, e.intersectionValue) {
				members = append(members, i)
			}
		}
		if len(members) > 0 {
			mult := e.currentInput.Multiplicity
			memberSet := make(map[int]bool, len(members))
			for _, i := range members {
				memberSet[i] = true
			}
			instrs := make([]compiled.Instruction, 0, len(e.iterators))
			for i, n := range counts {
				if memberSet[i] {
					instrs = append(instrs, e.step.Instructions[i])
				} else {
					mult *= n
				}
			}
			e.collector.Add(annotations.Event{Name: annotations.CartesianActivated, Data: map[string]interface{}{"iterator.count": len(instrs)}})
			c, err := newCartesianIterator(e.source, instrs, e.currentInput, e.intersectionValue, e.intersectionRow, e.collector)
			if err != nil {
				return err
			}
			e.cartesian = c
			e.cartesianMultiplicity = mult
			return nil
		}
	}

	mult := e.currentInput.Multiplicity
	for _, n := range counts {
		mult *= n
	}
	e.intersectionMultiplicity = mult
	e.haveIntersection = true
	e.collector.Add(annotations.Event{Name: annotations.IntersectionAdvanced, Data: map[string]interface{}{"multiplicity": mult}})
	return nil
}

// advanceFirstPastIntersection moves the first iterator past the current
// intersection value after the cartesian exhausts, so the next lockstep
// pass pulls every other iterator past the fully-enumerated key too.
func (e *IntersectionExecutor) advanceFirstPastIntersection() error {
	it := e.iterators[0]
	for {
		v, ok := it.Peek()
		if !ok || !value.Equal(v, e.intersectionValue) {
			return nil
		}
		if err := it.AdvanceSingle(); err != nil {
			return err
		}
	}
}

// NextRow returns the next output row, or ok=false once every input row's
// iterators are exhausted. Cancellation is checked between rows, never
// mid-row.
func (e *IntersectionExecutor) NextRow(interrupt Interrupt) (Row, bool, error) {
	for {
		if interrupt.Cancelled() {
			return Row{}, false, nil
		}

		if e.cartesian != nil {
			row, ok, err := e.cartesian.Next()
			if err != nil {
				return Row{}, false, err
			}
			if ok {
				return Row{Values: row, Multiplicity: e.cartesianMultiplicity, Provenance: e.intersectionProvenance}, true, nil
			}
			e.cartesian.Close()
			e.cartesian = nil
			if err := e.advanceFirstPastIntersection(); err != nil {
				return Row{}, false, err
			}
			continue
		}

		if e.haveIntersection {
			out := Row{Values: e.intersectionRow, Multiplicity: e.intersectionMultiplicity, Provenance: e.intersectionProvenance}
			e.haveIntersection = false
			return out, true, nil
		}

		found, err := e.findIntersection()
		if err != nil {
			return Row{}, false, err
		}
		if found {
			if err := e.recordIntersection(); err != nil {
				return Row{}, false, err
			}
			counts, err := e.advanceIteratorsWithMultiplicity()
			if err != nil {
				return Row{}, false, err
			}
			if err := e.mayActivateCartesian(counts); err != nil {
				return Row{}, false, err
			}
			continue
		}

		more, err := e.nextInputRow()
		if err != nil {
			return Row{}, false, err
		}
		if !more {
			return Row{}, false, nil
		}
	}
}

// NextBatch fills a batch of up to maxSize rows. hasMore reports whether
// a subsequent call might still produce rows (the batch filled, or the
// call was interrupted) versus the executor being genuinely exhausted.
func (e *IntersectionExecutor) NextBatch(maxSize int, interrupt Interrupt) (Batch, bool, error) {
	batch := make(Batch, 0, maxSize)
	for len(batch) < maxSize {
		if interrupt.Cancelled() {
			return batch, true, nil
		}
		row, ok, err := e.NextRow(interrupt)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return batch, false, nil
		}
		batch = append(batch, row)
	}
	return batch, true, nil
}
