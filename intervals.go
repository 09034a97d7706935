package gtrace

// boolOp is a CSG set operation over inside intervals.
type boolOp uint8

const (
	opUnion boolOp = iota
	opIntersection
	opDifference
)

func (op boolOp) inside(inA, inB bool) bool {
	switch op {
	case opUnion:
		return inA || inB
	case opIntersection:
		return inA && inB
	case opDifference:
		return inA && !inB
	}
	panic("invalid CSG operation")
}

func (op boolOp) String() string {
	switch op {
	case opUnion:
		return "union"
	case opIntersection:
		return "intersection"
	case opDifference:
		return "difference"
	}
	return "<invalid>"
}

// combine merges the crossing sequences of a and b for a single lane.
//
// Both sequences are swept by ascending distance while tracking whether the
// ray is inside each operand. A crossing is emitted only where the combined
// inside state changes, so resulting intervals never overlap and
// zero width intervals are never produced. Crossings at exactly the same
// distance are consumed together; if both could supply the emitted crossing
// b wins for intersection and difference and a wins for union.
func (op boolOp) combine(a, b Crossings) Crossings {
	inA, inB := a.StartInside, b.StartInside
	inside := op.inside(inA, inB)
	out := Crossings{StartInside: inside}
	i, j := 0, 0
	for i < len(a.C) || j < len(b.C) {
		var ca, cb *Crossing
		switch {
		case j >= len(b.C) || (i < len(a.C) && a.C[i].T < b.C[j].T):
			ca = &a.C[i]
			i++
		case i >= len(a.C) || b.C[j].T < a.C[i].T:
			cb = &b.C[j]
			j++
		default:
			ca, cb = &a.C[i], &b.C[j]
			i++
			j++
		}
		if ca != nil {
			inA = ca.Enter
		}
		if cb != nil {
			inB = cb.Enter
		}
		next := op.inside(inA, inB)
		if next == inside {
			continue
		}
		inside = next
		src := ca
		if cb != nil && (ca == nil || op != opUnion) {
			src = cb
		}
		c := *src
		c.Enter = next
		if op == opDifference && src == cb {
			// Crossing into the removed solid is crossing out of the result.
			c.Flip = !c.Flip
		}
		out.C = append(out.C, c)
	}
	return out
}
