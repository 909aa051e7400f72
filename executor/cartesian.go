package executor

import (
	"github.com/patternql/querycore/annotations"
	"github.com/patternql/querycore/compiled"
	"github.com/patternql/querycore/storage"
	"github.com/patternql/querycore/value"
)

// CartesianIterator enumerates every combination of rows across the
// iterators that still have further tuples at the current intersection
// value, re-enumerating each member's full run at that value from
// scratch; non-member iterators contribute through the base row.
// Enumeration is an odometer,
// rightmost iterator advancing fastest; an iterator that runs out of
// duplicates is reopened from scratch (a fresh iterator, re-seeked to the
// intersection value) and the carry moves one position left. Iterators
// are single-pass, which is exactly why reopening — rather than
// rewinding — is necessary to replay a run more than once.
type CartesianIterator struct {
	source    InstructionSource
	collector *annotations.Collector

	instructions      []compiled.Instruction
	input             Row
	intersectionValue value.Value
	baseRow           storage.Row

	iterators []storage.SortedIterator
	started   bool
	exhausted bool
}

func newCartesianIterator(source InstructionSource, instrs []compiled.Instruction, input Row, intersectionValue value.Value, baseRow storage.Row, collector *annotations.Collector) (*CartesianIterator, error) {
	if collector == nil {
		collector = annotations.NewCollector(nil)
	}
	return &CartesianIterator{
		source:            source,
		collector:         collector,
		instructions:      instrs,
		input:             input,
		intersectionValue: intersectionValue,
		baseRow:           baseRow,
		iterators:         make([]storage.SortedIterator, len(instrs)),
	}, nil
}

// reopen rebuilds iterators[i] from scratch and seeks it to the
// intersection value, so its run at that value can be replayed.
func (c *CartesianIterator) reopen(i int) error {
	if c.iterators[i] != nil {
		c.iterators[i].Close()
	}
	it, err := c.source.Iterator(c.instructions[i], c.input.Values)
	if err != nil {
		return &CreatingIteratorError{Name: c.instructions[i].Kind.String(), Cause: err}
	}
	if _, err := it.AdvanceUntilFirstUnboundIs(c.intersectionValue); err != nil {
		return &AdvancingIteratorToError{Detail: value.ToString(c.intersectionValue), Cause: err}
	}
	c.iterators[i] = it
	return nil
}

// advance carries the odometer: it tries to step iterators[i] to its next
// row at the intersection value; on exhaustion it reopens iterators[i]
// and recurses to carry into iterators[i-1]. i<0 means every dimension
// has wrapped — the cartesian product is exhausted.
func (c *CartesianIterator) advance(i int) (bool, error) {
	if i < 0 {
		c.exhausted = true
		c.collector.Add(annotations.Event{Name: annotations.CartesianExhausted})
		return false, nil
	}
	if err := c.iterators[i].AdvanceSingle(); err != nil {
		return false, err
	}
	if v, ok := c.iterators[i].Peek(); ok && value.Equal(v, c.intersectionValue) {
		return true, nil
	}
	if err := c.reopen(i); err != nil {
		return false, err
	}
	c.collector.Add(annotations.Event{Name: annotations.CartesianReopened, Data: map[string]interface{}{"index": i}})
	return c.advance(i - 1)
}

func (c *CartesianIterator) writeRow() (storage.Row, error) {
	row := c.baseRow.Clone()
	for _, it := range c.iterators {
		if err := it.WriteValues(row); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// Next returns the row for the current odometer position and advances to
// the next one, or ok=false once every combination has been produced.
func (c *CartesianIterator) Next() (storage.Row, bool, error) {
	if c.exhausted {
		return nil, false, nil
	}
	if !c.started {
		c.started = true
		for i := range c.instructions {
			if err := c.reopen(i); err != nil {
				return nil, false, err
			}
		}
		row, err := c.writeRow()
		return row, true, err
	}

	ok, err := c.advance(len(c.iterators) - 1)
	if err != nil || !ok {
		return nil, false, err
	}
	row, err := c.writeRow()
	return row, true, err
}

// Close releases every reopened iterator.
func (c *CartesianIterator) Close() {
	for _, it := range c.iterators {
		if it != nil {
			it.Close()
		}
	}
}
