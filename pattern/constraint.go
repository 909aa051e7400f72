package pattern

import (
	"fmt"

	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/stats"
	"github.com/patternql/querycore/value"
)

// ConstraintVertex implements the Constraint sub-kinds: TypeList, Iid,
// Isa, Has, Links, IndexedRelation, Sub, Owns, Plays, Relates. Binary
// constraints (everything but TypeList/Iid) share the
// same Canonical/Reverse direction-costing shape, so one struct serves
// all of them rather than one type per sub-kind.
type ConstraintVertex struct {
	id   ids.PatternVertexId
	kind VertexKind

	// Lhs/Rhs are the two sides of a binary constraint (owner/attribute,
	// sub/super, relation/player, thing/type, ...). Unary constraints
	// (TypeList, Iid) use only Lhs.
	Lhs    ids.VariableVertexId
	Rhs    ids.VariableVertexId
	HasRhs bool

	// RoleType optionally tags a Links edge with its role type name.
	RoleType string

	// IndexedRelation carries a second player/role pair beyond Lhs
	// (relation) and Rhs (player 1).
	Player2 ids.VariableVertexId
	Role1   string
	Role2   string

	// Types restricts a TypeList constraint's variable to this set.
	Types []string

	// IidValue pins an Iid constraint's variable to a specific identity.
	IidValue value.Value
}

// NewHas constructs a `owner has attribute` constraint.
func NewHas(id ids.PatternVertexId, owner, attribute ids.VariableVertexId) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindHas, Lhs: owner, Rhs: attribute, HasRhs: true}
}

// NewIsa constructs a `thing isa type` constraint.
func NewIsa(id ids.PatternVertexId, thing, typ ids.VariableVertexId) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindIsa, Lhs: thing, Rhs: typ, HasRhs: true}
}

// NewSub constructs a `sub sub super` type hierarchy constraint.
func NewSub(id ids.PatternVertexId, sub, super ids.VariableVertexId) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindSub, Lhs: sub, Rhs: super, HasRhs: true}
}

// NewOwns constructs an `owner owns attribute-type` schema constraint.
func NewOwns(id ids.PatternVertexId, owner, attributeType ids.VariableVertexId) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindOwns, Lhs: owner, Rhs: attributeType, HasRhs: true}
}

// NewPlays constructs a `player plays role-type` schema constraint.
func NewPlays(id ids.PatternVertexId, player, roleType ids.VariableVertexId) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindPlays, Lhs: player, Rhs: roleType, HasRhs: true}
}

// NewRelates constructs a `relation-type relates role-type` schema
// constraint.
func NewRelates(id ids.PatternVertexId, relationType, roleType ids.VariableVertexId) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindRelates, Lhs: relationType, Rhs: roleType, HasRhs: true}
}

// NewLinks constructs a `relation links (roleType: player)` constraint.
// roleType is a fixed schema name, not itself a variable.
func NewLinks(id ids.PatternVertexId, relation, player ids.VariableVertexId, roleType string) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindLinks, Lhs: relation, Rhs: player, HasRhs: true, RoleType: roleType}
}

// NewIndexedRelation constructs the 5-tuple `relation links (role1: player1,
// role2: player2)` shortcut used when both role-players of a binary
// relation are queried together.
func NewIndexedRelation(id ids.PatternVertexId, relation, player1, player2 ids.VariableVertexId, role1, role2 string) *ConstraintVertex {
	return &ConstraintVertex{
		id: id, kind: KindIndexedRelation,
		Lhs: relation, Rhs: player1, HasRhs: true,
		Player2: player2, Role1: role1, Role2: role2,
	}
}

// NewTypeList constructs a constraint restricting a Type variable to one
// of a fixed set of type names.
func NewTypeList(id ids.PatternVertexId, typeVar ids.VariableVertexId, types []string) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindTypeList, Lhs: typeVar, Types: types}
}

// NewIid constructs a constraint pinning a Thing variable to a specific
// identity.
func NewIid(id ids.PatternVertexId, thingVar ids.VariableVertexId, iid value.Value) *ConstraintVertex {
	return &ConstraintVertex{id: id, kind: KindIid, Lhs: thingVar, IidValue: iid}
}

func (c *ConstraintVertex) ID() ids.PatternVertexId { return c.id }
func (c *ConstraintVertex) Kind() VertexKind         { return c.kind }

func (c *ConstraintVertex) Variables() []ids.VariableVertexId {
	out := []ids.VariableVertexId{c.Lhs}
	if c.HasRhs {
		out = append(out, c.Rhs)
	}
	if c.kind == KindIndexedRelation {
		out = append(out, c.Player2)
	}
	return out
}

func (c *ConstraintVertex) CanJoinOn(v ids.VariableVertexId, produced ids.VariableVertexSet) bool {
	for _, own := range c.Variables() {
		if own == v {
			return true
		}
	}
	return false
}

func (c *ConstraintVertex) JoinFromDirectionAndInputs(d cost.Direction, stepProduced, allProduced ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	if !c.HasRhs {
		return c.Lhs, true
	}
	if d == cost.Canonical {
		return c.Lhs, true
	}
	return c.Rhs, true
}

// directionCost estimates the Canonical and Reverse costs for a binary
// constraint using rough statistics-derived fan-out ratios. The absolute
// scale does not matter to beam search, only the relative ordering
// between candidate extensions and between the two directions of the
// same constraint.
func (c *ConstraintVertex) directionCost(oracle stats.Oracle, g *Graph) (canonical, reverse cost.Cost) {
	lhsSize := float64(1)
	rhsSize := float64(1)
	if v := g.Variables[c.Lhs]; v != nil && v.EstimatedUnrestrictedSize > 0 {
		lhsSize = float64(v.EstimatedUnrestrictedSize)
	}
	if c.HasRhs {
		if v := g.Variables[c.Rhs]; v != nil && v.EstimatedUnrestrictedSize > 0 {
			rhsSize = float64(v.EstimatedUnrestrictedSize)
		}
	}
	// Canonical: start at Lhs, fan out to Rhs. Reverse: start at Rhs, fan
	// out to Lhs. Fan-out ratio approximates expected rows produced per
	// input row, symmetric to the Join cost combinator's io_ratio.
	fwd := rhsSize / lhsSize
	if fwd < 1 {
		fwd = 1
	}
	bwd := lhsSize / rhsSize
	if bwd < 1 {
		bwd = 1
	}
	return cost.Cost{Cost: fwd, IORatio: fwd}, cost.Cost{Cost: bwd, IORatio: bwd}
}

func (c *ConstraintVertex) CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error) {
	switch c.kind {
	case KindTypeList:
		if bound.Contains(c.Lhs) {
			return cost.Trivial, cost.MetaData{}, nil
		}
		n := float64(len(c.Types))
		if n < 1 {
			n = 1
		}
		return cost.Cost{Cost: n, IORatio: n}, cost.MetaData{}, nil

	case KindIid:
		return cost.Cost{Cost: 1, IORatio: 1}, cost.MetaData{}, nil

	default:
		if !c.HasRhs {
			return cost.Cost{}, cost.MetaData{}, fmt.Errorf("pattern: binary constraint %v missing rhs", c.kind)
		}
		lhsBound := bound.Contains(c.Lhs)
		rhsBound := bound.Contains(c.Rhs)
		if lhsBound && rhsBound {
			return cost.Trivial, cost.MetaData{Direction: cost.Canonical}, nil
		}

		canon, rev := c.directionCost(oracle, g)
		if forced != nil {
			if *forced == cost.Canonical {
				return canon, cost.MetaData{Direction: cost.Canonical}, nil
			}
			return rev, cost.MetaData{Direction: cost.Reverse}, nil
		}

		switch {
		case lhsBound && !rhsBound:
			return canon, cost.MetaData{Direction: cost.Canonical}, nil
		case rhsBound && !lhsBound:
			return rev, cost.MetaData{Direction: cost.Reverse}, nil
		default:
			// Ties favor Canonical: Lhs (owner/relation/thing) is the
			// natural pivot other constraints over the same entity join
			// on, so a tie-break toward Reverse would needlessly hide
			// join opportunities from the beam search.
			if rev.Less(canon) {
				return rev, cost.MetaData{Direction: cost.Reverse}, nil
			}
			return canon, cost.MetaData{Direction: cost.Canonical}, nil
		}
	}
}

func (c *ConstraintVertex) IsTrivial(bound ids.VariableVertexSet) bool {
	for _, v := range c.Variables() {
		if !bound.Contains(v) {
			return false
		}
	}
	return true
}

func (c *ConstraintVertex) ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId {
	var out []ids.VariableVertexId
	for _, v := range c.Variables() {
		if !bound.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// RequiredVars is empty: a constraint is valid under any binding
// combination of its variables, producing whichever sides are unbound.
func (c *ConstraintVertex) RequiredVars() []ids.VariableVertexId { return nil }
