package expr

// Evaluate walks the expression tree against one row of named values and
// reports whether the condition holds.
//
// Failure philosophy: this runs once per row across potentially millions
// of rows, so it never panics and never aborts a batch. A malformed node,
// unknown operator or missing driving variable makes that comparison
// false (fail-closed): a row the rule cannot see is never reported
// compliant by it.
//
// Empty child lists keep their neutral elements: AND of nothing is true,
// OR of nothing is false.
//
// ==/!= use exact float64 equality with no epsilon. This mirrors the rule
// files as written; authors of strict equality rules on measured values
// should expect it to be sensitive to sensor precision.
func Evaluate(n *Node, row map[string]float64) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case KindAnd:
		for _, c := range n.Children {
			if !Evaluate(c, row) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range n.Children {
			if Evaluate(c, row) {
				return true
			}
		}
		return false
	case KindNot:
		if n.Child == nil {
			return false
		}
		return !Evaluate(n.Child, row)
	case KindCompare:
		left, ok := resolve(n.Left, row)
		if !ok {
			return false
		}
		right, ok := resolve(n.Right, row)
		if !ok {
			return false
		}
		return compare(n.Op, left, right)
	}
	return false
}

func resolve(o Operand, row map[string]float64) (float64, bool) {
	if !o.IsVar {
		return o.Value, true
	}
	v, ok := row[o.Var]
	return v, ok
}

func compare(op Op, left, right float64) bool {
	switch op {
	case OpGTE:
		return left >= right
	case OpLTE:
		return left <= right
	case OpGT:
		return left > right
	case OpLT:
		return left < right
	case OpEQ:
		return left == right
	case OpNEQ:
		return left != right
	}
	return false
}
