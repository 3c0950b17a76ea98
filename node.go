package jsre

type nodeID int32

const nilNode nodeID = -1

// node is one parse tree element. The op field selects which of the
// remaining fields are meaningful:
//
//   - opFlat: a literal. If length > 0 the literal is the unescaped source
//     span [start, start+length), otherwise it is the single unit ch.
//   - opClass: classIndex.
//   - opBackref, opLParen: parenIndex.
//   - opQuant: kid is the body, min/max (max -1 is unbounded), greedy, and
//     the parens of the body in [parenIndex, parenIndex+parenCount).
//   - opAlt: kid and kid2 are the arms.
//   - opConcat: kid is the first element, kid2 the last; elements are
//     chained through next.
//   - opAssert, opAssertNot: kid is the body.
type node struct {
	op     opcode
	greedy bool
	ch     uint16

	next nodeID
	kid  nodeID
	kid2 nodeID

	parenIndex int
	parenCount int
	min, max   int
	start      int
	length     int
	classIndex int

	// Number of emitter frames needed to walk this subtree.
	depth int
}

type arena struct {
	nodes []node
}

func (a *arena) alloc(op opcode) nodeID {
	a.nodes = append(a.nodes, node{
		op:   op,
		next: nilNode,
		kid:  nilNode,
		kid2: nilNode,
		max:  -1,
	})
	return nodeID(len(a.nodes) - 1)
}

func (a *arena) at(id nodeID) *node {
	return &a.nodes[id]
}

// isLiteral reports whether n is a single-unit or run literal.
func (n *node) isLiteral() bool {
	return n.op == opFlat
}

// firstUnit returns the first code unit a literal node matches.
func (n *node) firstUnit(source []uint16) uint16 {
	if n.length > 0 {
		return source[n.start]
	}
	return n.ch
}

func (n *node) isAssertion() bool {
	switch n.op {
	case opBOL, opEOL, opWBdry, opWNonBdry:
		return true
	}
	return false
}
