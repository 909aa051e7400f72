package storage

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/value"
)

// BadgerIterator is a SortedIterator over a BadgerDB key range sharing a
// fixed prefix, ordered on sortVar by construction: EncodeFact writes
// sortVar's order-preserving encoding directly into the key, so Badger's
// lexicographic iteration order is the sort order. It owns a dedicated
// read-only transaction and iterator, released on Close.
type BadgerIterator struct {
	db      *badger.DB
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	sortVar ids.VariableVertexId

	valid   bool
	curSort value.Value
}

// NewBadgerIterator opens a forward iterator over every key in db
// beginning with prefix, positioned at the first entry.
func NewBadgerIterator(db *badger.DB, prefix []byte, sortVar ids.VariableVertexId) (*BadgerIterator, error) {
	txn := db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	bi := &BadgerIterator{db: db, txn: txn, it: it, prefix: prefix, sortVar: sortVar}
	it.Seek(prefix)
	if err := bi.sync(); err != nil {
		bi.Close()
		return nil, err
	}
	return bi, nil
}

// sync decodes the sort value at the iterator's current position, or
// marks the iterator exhausted.
func (b *BadgerIterator) sync() error {
	if !b.it.ValidForPrefix(b.prefix) {
		b.valid = false
		b.curSort = nil
		return nil
	}
	key := b.it.Item().KeyCopy(nil)
	v, _, err := DecodeValue(key[len(b.prefix):])
	if err != nil {
		return fmt.Errorf("storage: decoding badger key: %w", err)
	}
	b.valid = true
	b.curSort = v
	return nil
}

func (b *BadgerIterator) Peek() (value.Value, bool) {
	if !b.valid {
		return nil, false
	}
	return b.curSort, true
}

func (b *BadgerIterator) PeekFirstUnboundValue() (value.Value, bool) {
	return b.Peek()
}

func (b *BadgerIterator) AdvanceSingle() error {
	if !b.valid {
		return nil
	}
	b.it.Next()
	return b.sync()
}

func (b *BadgerIterator) AdvanceUntilFirstUnboundIs(target value.Value) (Ordering, error) {
	seekKey := append(append([]byte{}, b.prefix...), EncodeValue(target)...)
	b.it.Seek(seekKey)
	if err := b.sync(); err != nil {
		return Greater, err
	}
	if !b.valid {
		return Greater, nil
	}
	return orderingOf(value.Compare(b.curSort, target)), nil
}

// currentRow decodes the full row payload at the iterator's position.
func (b *BadgerIterator) currentRow() (Row, error) {
	val, err := b.it.Item().ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("storage: reading badger value: %w", err)
	}
	return DecodeRow(val)
}

func (b *BadgerIterator) AdvancePast() (uint64, error) {
	if !b.valid {
		return 0, nil
	}
	cur, err := b.currentRow()
	if err != nil {
		return 0, err
	}
	var n uint64
	for b.valid && value.Equal(b.curSort, cur[b.sortVar]) {
		row, err := b.currentRow()
		if err != nil {
			return n, err
		}
		if !EqualRows(row, cur) {
			break
		}
		if err := b.AdvanceSingle(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (b *BadgerIterator) WriteValues(dst Row) error {
	if !b.valid {
		return fmt.Errorf("storage: WriteValues called on an exhausted BadgerIterator")
	}
	row, err := b.currentRow()
	if err != nil {
		return err
	}
	for k, v := range row {
		dst[k] = v
	}
	return nil
}

func (b *BadgerIterator) Close() error {
	if b.it != nil {
		b.it.Close()
	}
	if b.txn != nil {
		b.txn.Discard()
	}
	return nil
}

// WriteFact persists one row under db at the given prefix, keyed on
// sortVar. seq disambiguates rows that share the same sort-variable
// value, since Badger keys must be unique.
func WriteFact(db *badger.DB, prefix []byte, seq uint32, sortVar ids.VariableVertexId, row Row) error {
	key, val := EncodeFact(prefix, seq, sortVar, row)
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// NextSeq is a small helper for callers populating a BadgerDB fixture
// sequentially rather than tracking their own counters.
func NextSeq(n *uint32) uint32 {
	v := *n
	*n++
	return v
}
