package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/value"
)

// Value tags for the order-preserving encoding below: a leading type tag
// byte followed by a payload (fixed-width for long, double and bool;
// zero-terminated bytes for string), chosen so that lexicographic byte
// order matches value ordering.
const (
	tagNil byte = iota
	tagLong
	tagDouble
	tagString
	tagBool
)

// EncodeValue renders v into an order-preserving byte string: within a
// single value.Kind, lexicographic byte order equals value.Compare order.
// Mixed long/double columns are NOT guaranteed order-preserving across
// kinds the way value.Compare's numeric unification is (see DESIGN.md) —
// in practice a given variable's column holds one kind throughout.
func EncodeValue(v value.Value) []byte {
	switch n := value.KindOf(v); n {
	case value.KindNil:
		return []byte{tagNil}
	case value.KindLong:
		buf := make([]byte, 9)
		buf[0] = tagLong
		binary.BigEndian.PutUint64(buf[1:], flipSign(toInt64(v)))
		return buf
	case value.KindDouble:
		buf := make([]byte, 9)
		buf[0] = tagDouble
		binary.BigEndian.PutUint64(buf[1:], orderedFloatBits(toFloat64(v)))
		return buf
	case value.KindString:
		s := v.(string)
		buf := make([]byte, 1+len(s)+1)
		buf[0] = tagString
		copy(buf[1:], s)
		// trailing zero terminator: in a fact key the sequence number
		// follows the value, so the terminator is what marks the string's
		// end for DecodeValue and keeps a prefix of a longer string sorting
		// before it whatever sequence bytes follow. The row value blob
		// stores explicit lengths and does not depend on it.
		return buf
	case value.KindBool:
		buf := make([]byte, 2)
		buf[0] = tagBool
		if v.(bool) {
			buf[1] = 1
		}
		return buf
	default:
		return []byte{tagNil}
	}
}

// DecodeValue reads one EncodeValue-produced value back, returning the
// value and the number of bytes consumed.
func DecodeValue(b []byte) (value.Value, int, error) {
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("storage: empty value encoding")
	}
	switch b[0] {
	case tagNil:
		return nil, 1, nil
	case tagLong:
		if len(b) < 9 {
			return nil, 0, fmt.Errorf("storage: truncated long encoding")
		}
		return int64(unflipSign(binary.BigEndian.Uint64(b[1:9]))), 9, nil
	case tagDouble:
		if len(b) < 9 {
			return nil, 0, fmt.Errorf("storage: truncated double encoding")
		}
		return orderedBitsToFloat(binary.BigEndian.Uint64(b[1:9])), 9, nil
	case tagString:
		end := 1
		for end < len(b) && b[end] != 0 {
			end++
		}
		return string(b[1:end]), end + 1, nil
	case tagBool:
		if len(b) < 2 {
			return nil, 0, fmt.Errorf("storage: truncated bool encoding")
		}
		return b[1] != 0, 2, nil
	default:
		return nil, 0, fmt.Errorf("storage: unknown value tag %d", b[0])
	}
}

func toInt64(v value.Value) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v value.Value) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

// flipSign maps int64's two's-complement range onto an order-preserving
// uint64 range: flipping the sign bit puts negative numbers below
// positive ones in unsigned big-endian byte order.
func flipSign(n int64) uint64 {
	return uint64(n) ^ 0x8000000000000000
}

func unflipSign(u uint64) int64 {
	return int64(u ^ 0x8000000000000000)
}

// orderedFloatBits maps a float64's bits so that big-endian byte order
// matches float ordering: for positive floats, flip the sign bit; for
// negative floats, flip every bit (reverses their otherwise-backwards
// magnitude ordering).
func orderedFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&0x8000000000000000 != 0 {
		return ^bits
	}
	return bits | 0x8000000000000000
}

func orderedBitsToFloat(bits uint64) float64 {
	if bits&0x8000000000000000 != 0 {
		return math.Float64frombits(bits &^ 0x8000000000000000)
	}
	return math.Float64frombits(^bits)
}

// EncodeFact builds the Badger (key, value) pair for one row: the key is
// prefix + the sort variable's order-preserving encoding + a sequence
// number disambiguating duplicate sort-key rows; the value blob carries
// every bound column, the sort variable included.
func EncodeFact(prefix []byte, seq uint32, sortVar ids.VariableVertexId, row Row) (key, val []byte) {
	key = append(append([]byte{}, prefix...), EncodeValue(row[sortVar])...)
	seqBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(seqBuf, seq)
	key = append(key, seqBuf...)

	val = encodeRow(row)
	return key, val
}

func encodeRow(row Row) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(len(row)))
	for varID, v := range row {
		idBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(idBuf, uint32(varID))
		buf = append(buf, idBuf...)

		enc := EncodeValue(v)
		lenBuf := make([]byte, 2)
		binary.BigEndian.PutUint16(lenBuf, uint16(len(enc)))
		buf = append(buf, lenBuf...)
		buf = append(buf, enc...)
	}
	return buf
}

// DecodeRow reverses encodeRow.
func DecodeRow(val []byte) (Row, error) {
	if len(val) < 2 {
		return nil, fmt.Errorf("storage: truncated row encoding")
	}
	count := binary.BigEndian.Uint16(val[:2])
	pos := 2
	row := make(Row, count)
	for i := 0; i < int(count); i++ {
		if pos+6 > len(val) {
			return nil, fmt.Errorf("storage: truncated row column header")
		}
		varID := ids.VariableVertexId(binary.BigEndian.Uint32(val[pos : pos+4]))
		encLen := int(binary.BigEndian.Uint16(val[pos+4 : pos+6]))
		pos += 6
		if pos+encLen > len(val) {
			return nil, fmt.Errorf("storage: truncated row column value")
		}
		v, _, err := DecodeValue(val[pos : pos+encLen])
		if err != nil {
			return nil, err
		}
		row[varID] = v
		pos += encLen
	}
	return row, nil
}
