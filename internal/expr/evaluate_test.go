package expr

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestEvaluateComparisons(t *testing.T) {
	row := map[string]float64{"temperature": 22.5, "co2": 900}

	testCases := []struct {
		name     string
		node     *Node
		expected bool
	}{
		{"gte true", Compare(OpGTE, Variable("temperature"), Literal(20)), true},
		{"gte false", Compare(OpGTE, Variable("temperature"), Literal(25)), false},
		{"lte true", Compare(OpLTE, Variable("co2"), Literal(1000)), true},
		{"lt false on equal", Compare(OpLT, Variable("co2"), Literal(900)), false},
		{"gt true", Compare(OpGT, Variable("co2"), Literal(899)), true},
		{"eq exact", Compare(OpEQ, Variable("temperature"), Literal(22.5)), true},
		{"neq exact", Compare(OpNEQ, Variable("temperature"), Literal(22.5)), false},
		{"var vs var", Compare(OpGT, Variable("co2"), Variable("temperature")), true},
	}

	for _, tc := range testCases {
		if got := Evaluate(tc.node, row); got != tc.expected {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestEvaluateNeutralElements(t *testing.T) {
	row := map[string]float64{}

	if !Evaluate(And(), row) {
		t.Error("AND over empty children must be true")
	}
	if Evaluate(Or(), row) {
		t.Error("OR over empty children must be false")
	}
}

func TestEvaluateFailClosed(t *testing.T) {
	row := map[string]float64{"temperature": 21}

	// Missing driving variable: the comparison is false, never compliant.
	if Evaluate(Compare(OpGTE, Variable("co2"), Literal(0)), row) {
		t.Error("comparison on an absent variable must be false")
	}
	// Malformed nodes evaluate to false instead of panicking.
	if Evaluate(nil, row) {
		t.Error("nil node must be false")
	}
	if Evaluate(&Node{Kind: NodeKind("bogus")}, row) {
		t.Error("unknown node kind must be false")
	}
	if Evaluate(&Node{Kind: KindNot}, row) {
		t.Error("NOT without a child must be false")
	}
	if Evaluate(&Node{Kind: KindCompare, Op: Op("~="), Left: Variable("temperature"), Right: Literal(21)}, row) {
		t.Error("unknown operator must be false")
	}
}

func TestEvaluateNested(t *testing.T) {
	// Compliant when temperature in [20, 26] and not (co2 above 1000).
	node := And(
		Compare(OpGTE, Variable("temperature"), Literal(20)),
		Compare(OpLTE, Variable("temperature"), Literal(26)),
		Not(Compare(OpGT, Variable("co2"), Literal(1000))),
	)

	if !Evaluate(node, map[string]float64{"temperature": 22, "co2": 800}) {
		t.Error("expected compliant row")
	}
	if Evaluate(node, map[string]float64{"temperature": 22, "co2": 1200}) {
		t.Error("expected non-compliant row on high co2")
	}
	if Evaluate(node, map[string]float64{"temperature": 19, "co2": 800}) {
		t.Error("expected non-compliant row on low temperature")
	}
}

func TestNodeUnmarshalYAML(t *testing.T) {
	source := `
all:
  - var: temperature
    op: ">="
    value: 20.0
  - any:
      - var: co2
        op: "<="
        value: 1000
      - var: hour
        op: "<"
        value: 8
  - not:
      var: is_holiday
      op: "=="
      value: 1
`
	var node Node
	if err := yaml.Unmarshal([]byte(source), &node); err != nil {
		t.Fatalf("failed to decode logic tree: %v", err)
	}
	if node.Kind != KindAnd || len(node.Children) != 3 {
		t.Fatalf("expected AND with 3 children, got %s with %d", node.Kind, len(node.Children))
	}
	if node.Children[1].Kind != KindOr {
		t.Errorf("expected OR child, got %s", node.Children[1].Kind)
	}
	if node.Children[2].Kind != KindNot {
		t.Errorf("expected NOT child, got %s", node.Children[2].Kind)
	}

	row := map[string]float64{"temperature": 21, "co2": 900, "hour": 10, "is_holiday": 0}
	if !Evaluate(&node, row) {
		t.Error("expected decoded tree to evaluate true")
	}
	row["is_holiday"] = 1
	if Evaluate(&node, row) {
		t.Error("expected decoded tree to evaluate false on holiday")
	}
}

func TestNodeUnmarshalYAMLRejectsMalformed(t *testing.T) {
	for _, source := range []string{
		`var: temperature`,                      // no operator / rhs
		`{var: temperature, op: "~=", value: 1}`, // unknown operator
		`{op: ">=", value: 1}`,                   // no variable and not a combinator
	} {
		var node Node
		if err := yaml.Unmarshal([]byte(source), &node); err == nil {
			t.Errorf("expected decode error for %q", source)
		}
	}
}

func TestNodeUnmarshalYAMLVariableRHS(t *testing.T) {
	source := `{var: t_indoor, op: ">=", right: {var: t_outdoor}}`
	var node Node
	if err := yaml.Unmarshal([]byte(source), &node); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !Evaluate(&node, map[string]float64{"t_indoor": 21, "t_outdoor": 5}) {
		t.Error("expected indoor >= outdoor to hold")
	}
	if Evaluate(&node, map[string]float64{"t_indoor": 21}) {
		t.Error("missing right-hand variable must fail closed")
	}
}
