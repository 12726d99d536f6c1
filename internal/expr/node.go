package expr

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// NodeKind tags the variants of an expression tree node.
type NodeKind string

const (
	KindAnd     NodeKind = "and"
	KindOr      NodeKind = "or"
	KindNot     NodeKind = "not"
	KindCompare NodeKind = "compare"
)

// Op is a comparison operator.
type Op string

const (
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpGT  Op = ">"
	OpLT  Op = "<"
	OpEQ  Op = "=="
	OpNEQ Op = "!="
)

// Operand is either a variable reference or a literal value.
type Operand struct {
	Var   string
	Value float64
	IsVar bool
}

// Variable creates a variable-reference operand.
func Variable(name string) Operand {
	return Operand{Var: name, IsVar: true}
}

// Literal creates a literal operand.
func Literal(v float64) Operand {
	return Operand{Value: v}
}

// Node is one node of a boolean-logic expression tree. Trees are built
// once from static configuration and evaluated per row; they are finite
// and acyclic by construction.
type Node struct {
	Kind     NodeKind
	Children []*Node // and/or
	Child    *Node   // not
	Op       Op      // compare
	Left     Operand // compare
	Right    Operand // compare
}

// And builds a conjunction node.
func And(children ...*Node) *Node {
	return &Node{Kind: KindAnd, Children: children}
}

// Or builds a disjunction node.
func Or(children ...*Node) *Node {
	return &Node{Kind: KindOr, Children: children}
}

// Not builds a negation node.
func Not(child *Node) *Node {
	return &Node{Kind: KindNot, Child: child}
}

// Compare builds a comparison node.
func Compare(op Op, left, right Operand) *Node {
	return &Node{Kind: KindCompare, Op: op, Left: left, Right: right}
}

// yamlNode mirrors the on-disk logic tree forms:
//
//	all: [ ... ]            conjunction
//	any: [ ... ]            disjunction
//	not: { ... }            negation
//	{var: co2, op: "<=", value: 1000}   leaf comparison
type yamlNode struct {
	All   []*Node   `yaml:"all"`
	Any   []*Node   `yaml:"any"`
	Not   *Node     `yaml:"not"`
	Var   string    `yaml:"var"`
	Op    string    `yaml:"op"`
	Value *float64  `yaml:"value"`
	Right *yamlLeaf `yaml:"right"`
}

// yamlLeaf allows a comparison right-hand side referencing another
// variable instead of a literal (e.g. indoor vs outdoor temperature).
type yamlLeaf struct {
	Var   string   `yaml:"var"`
	Value *float64 `yaml:"value"`
}

// UnmarshalYAML decodes the configuration form of a logic tree.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var raw yamlNode
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch {
	case raw.All != nil:
		n.Kind = KindAnd
		n.Children = raw.All
	case raw.Any != nil:
		n.Kind = KindOr
		n.Children = raw.Any
	case raw.Not != nil:
		n.Kind = KindNot
		n.Child = raw.Not
	case raw.Var != "":
		op, err := parseOp(raw.Op)
		if err != nil {
			return err
		}
		n.Kind = KindCompare
		n.Op = op
		n.Left = Variable(raw.Var)
		switch {
		case raw.Right != nil && raw.Right.Var != "":
			n.Right = Variable(raw.Right.Var)
		case raw.Right != nil && raw.Right.Value != nil:
			n.Right = Literal(*raw.Right.Value)
		case raw.Value != nil:
			n.Right = Literal(*raw.Value)
		default:
			return fmt.Errorf("comparison on %q has no right-hand side", raw.Var)
		}
	default:
		return fmt.Errorf("logic node is neither all/any/not nor a comparison")
	}
	return nil
}

func parseOp(s string) (Op, error) {
	switch Op(s) {
	case OpGTE, OpLTE, OpGT, OpLT, OpEQ, OpNEQ:
		return Op(s), nil
	}
	return "", fmt.Errorf("unknown comparison operator %q", s)
}
