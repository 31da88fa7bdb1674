// Package decode compiles sets of masked address patterns into
// decision trees that dispatch a runtime address to the actions
// claiming it.
package decode

// An Action is the payload attached to an address pattern. The
// synthesizer never inspects actions; it only routes them to the
// leaves of the tree.
type Action interface{}

// A Node is one vertex of a synthesized decoder tree.
type Node interface {
	isNode()
}

// A Leaf fires the actions of exactly one fully matched pattern.
type Leaf struct {
	// Pattern is the canonical don't-care bit string, MSB first.
	Pattern string
	Actions []Action
}

// A Guard executes its body only when the address bit span
// [Low, High] equals Literal.
type Guard struct {
	High    int
	Low     int
	Literal string
	Then    Node
}

// An Arm is one literal alternative of a Branch.
type Arm struct {
	Literal string
	Child   Node

	// Absorbing arms are rendered as the final "others" alternative;
	// they also match any value not covered by an earlier arm.
	Absorbing bool
}

// A Branch discriminates the address bit span [Low, High] between the
// literal values of its arms. Arms are ordered by ascending literal.
type Branch struct {
	High int
	Low  int
	Arms []Arm

	// OthersNull adds an explicit do-nothing alternative for values no
	// arm matches.
	OthersNull bool
}

// A Sequence executes its parts one after the other. It only appears
// when overlapping patterns are permitted, so more than one part may
// fire for a single address.
type Sequence struct {
	Parts []Node
}

func (*Leaf) isNode()     {}
func (*Guard) isNode()    {}
func (*Branch) isNode()   {}
func (*Sequence) isNode() {}

// CountBranches returns the number of branching nodes (guards and
// branches) in the tree.
func CountBranches(node Node) int {
	switch n := node.(type) {
	case nil:
		return 0
	case *Leaf:
		return 0
	case *Guard:
		return 1 + CountBranches(n.Then)
	case *Branch:
		count := 1
		for _, arm := range n.Arms {
			count += CountBranches(arm.Child)
		}
		return count
	case *Sequence:
		count := 0
		for _, part := range n.Parts {
			count += CountBranches(part)
		}
		return count
	default:
		panic("unknown node type")
	}
}
