// Package value defines the runtime value representation rows carry and
// the ordering used by sorted iterators and comparison constraints.
// Encoding values on disk and type inference live elsewhere; this
// package only fixes the in-memory shape and an ordering total enough
// for sorted merge-join.
package value

import (
	"fmt"
	"strings"
)

// Value is any comparable runtime value a row can carry: a long, a
// double, a boolean, a string, or a datetime (represented as an int64
// unix-nanos for ordering purposes). A nil Value denotes "unbound".
type Value interface{}

// Long constructs an integer value.
func Long(v int64) Value { return v }

// Double constructs a floating-point value.
func Double(v float64) Value { return v }

// String constructs a string value.
func String(v string) Value { return v }

// Bool constructs a boolean value.
func Bool(v bool) Value { return v }

// Kind classifies a Value for ordering and cross-type comparison rules.
type Kind int

const (
	KindNil Kind = iota
	KindLong
	KindDouble
	KindString
	KindBool
)

// KindOf classifies v.
func KindOf(v Value) Kind {
	switch v.(type) {
	case nil:
		return KindNil
	case int64, int:
		return KindLong
	case float64:
		return KindDouble
	case string:
		return KindString
	case bool:
		return KindBool
	default:
		return KindNil
	}
}

func asFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Compare orders two values for sorted iteration. Numeric kinds compare
// by value across Long/Double; other cross-kind comparisons order by
// Kind, giving a total order stable enough for sorted iterators even
// across heterogeneous data — a disjunction branch may bind a variable
// to mismatched types and execution must not crash.
func Compare(a, b Value) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	switch ka {
	case KindString:
		return strings.Compare(a.(string), b.(string))
	case KindBool:
		av, bv := a.(bool), b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b compare equal.
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

// ToString renders a Value for diagnostics.
func ToString(v Value) string {
	if v == nil {
		return "<unbound>"
	}
	return fmt.Sprintf("%v", v)
}
