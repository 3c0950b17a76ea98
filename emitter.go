package jsre

import "fmt"

// emitFrame is a resume point of the emitter's explicit walk.
type emitFrame struct {
	id    nodeID
	state int
	// Next element of a concatenation.
	cur nodeID
	// Operand positions of jumps waiting for their target.
	patch  int
	patch2 int
	// Enclosing quantifier floor to restore when the frame completes.
	savedFloor int
	// Enclosing open group to restore when a paren frame completes.
	savedOpen int
}

// patchedJump is an unconditional jump whose target is final, kept as a
// possible relay for later jumps that overflow.
type patchedJump struct {
	operand int
	target  int
}

type emitter struct {
	nodes  []node
	source []uint16
	icase  bool

	prog   []byte
	frames []emitFrame
	jumps  []patchedJump

	// Parens emitted so far.
	parensBefore int
	// First paren of the outermost enclosing quantifier body, or -1.
	quantFloor int
	// Outermost capturing group whose RPAREN is not emitted yet, or -1.
	openParen int
}

// emit serializes the tree rooted at root and appends opEnd.
func (p *parser) emit(root nodeID) ([]byte, error) {
	e := emitter{
		nodes:      p.nodes.nodes,
		source:     p.src.units,
		icase:      p.icase(),
		prog:       make([]byte, 0, p.progLength),
		frames:     make([]emitFrame, 0, p.treeDepth+1),
		quantFloor: -1,
		openParen:  -1,
	}
	if err := e.run(root); err != nil {
		return nil, err
	}
	e.prog = append(e.prog, byte(opEnd))
	return e.prog, nil
}

// capFloor is the lowest paren slot a choice point at the current position
// must restore on backtrack. A group still open at the choice point is
// closed later on the same path, so its slot is included.
func (e *emitter) capFloor() int {
	floor := e.parensBefore
	if e.quantFloor >= 0 {
		floor = e.quantFloor
	}
	if e.openParen >= 0 {
		floor = min(floor, e.openParen)
	}
	return floor
}

func (e *emitter) push(id nodeID) {
	e.frames = append(e.frames, emitFrame{id: id, cur: nilNode})
}

func (e *emitter) pop() {
	e.frames = e.frames[:len(e.frames)-1]
}

// placeJump appends a zeroed jump operand and returns its position.
func (e *emitter) placeJump() int {
	at := len(e.prog)
	e.prog = append(e.prog, 0, 0)
	return at
}

// patchJump points the jump operand at the current end of the program.
func (e *emitter) patchJump(operand int) error {
	target := len(e.prog)
	off := target - operand
	if off > jumpOffsetMax {
		return newTooBigError(len(e.source))
	}
	setJumpOffset(e.prog, operand, off)
	return nil
}

// patchGoto patches an opJump operand. When the displacement overflows, the
// jump is redirected to the closest already patched jump with the same
// target that is within range.
func (e *emitter) patchGoto(operand int) error {
	target := len(e.prog)
	if off := target - operand; off <= jumpOffsetMax {
		setJumpOffset(e.prog, operand, off)
		e.jumps = append(e.jumps, patchedJump{operand: operand, target: target})
		return nil
	}
	relay := -1
	for _, j := range e.jumps {
		if j.target != target || j.operand <= operand {
			continue
		}
		// The relay is entered at its opcode, one byte before the operand.
		if off := j.operand - 1 - operand; off <= jumpOffsetMax && (relay == -1 || j.operand < relay) {
			relay = j.operand
		}
	}
	if relay == -1 {
		return newTooBigError(len(e.source))
	}
	setJumpOffset(e.prog, operand, relay-1-operand)
	e.jumps = append(e.jumps, patchedJump{operand: operand, target: target})
	return nil
}

func newTooBigError(offset int) error {
	err := newSyntaxError("regular expression too big", offset)
	err.Err = ErrPatternTooComplex
	return err
}

func (e *emitter) run(root nodeID) error {
	e.push(root)
	for len(e.frames) > 0 {
		top := len(e.frames) - 1
		f := &e.frames[top]
		n := &e.nodes[f.id]

		switch n.op {
		case opEmpty:
			e.pop()

		case opBOL, opEOL, opWBdry, opWNonBdry, opDot, opDigit, opNonDigit, opAlnum, opNonAlnum, opSpace, opNonSpace:
			e.prog = append(e.prog, byte(n.op))
			e.pop()

		case opBackref:
			e.prog = append(e.prog, byte(opBackref))
			e.prog = appendCompactIndex(e.prog, n.parenIndex)
			e.pop()

		case opClass:
			e.prog = append(e.prog, byte(opClass))
			e.prog = appendCompactIndex(e.prog, n.classIndex)
			e.pop()

		case opFlat:
			e.emitLiteral(n)
			e.pop()

		case opConcat:
			if f.state == 0 {
				f.state = 1
				f.cur = n.kid
			}
			if f.cur == nilNode {
				e.pop()
				continue
			}
			child := f.cur
			f.cur = e.nodes[child].next
			e.push(child)

		case opLParen:
			if f.state == 0 {
				f.state = 1
				e.prog = append(e.prog, byte(opLParen))
				e.prog = appendCompactIndex(e.prog, n.parenIndex)
				e.parensBefore++
				f.savedOpen = e.openParen
				if e.openParen < 0 {
					e.openParen = n.parenIndex
				}
				e.push(n.kid)
				continue
			}
			e.prog = append(e.prog, byte(opRParen))
			e.prog = appendCompactIndex(e.prog, n.parenIndex)
			e.openParen = f.savedOpen
			e.pop()

		case opAlt:
			switch f.state {
			case 0:
				f.state = 1
				f.patch = e.emitAltHeader(n)
				e.push(n.kid)
			case 1:
				f.state = 2
				e.prog = append(e.prog, byte(opJump))
				f.patch2 = e.placeJump()
				if err := e.patchJump(f.patch); err != nil {
					return err
				}
				e.push(n.kid2)
			default:
				if err := e.patchGoto(f.patch2); err != nil {
					return err
				}
				e.pop()
			}

		case opQuant:
			if f.state == 0 {
				f.state = 1
				f.patch = e.emitQuantHeader(n)
				f.savedFloor = e.quantFloor
				if e.quantFloor < 0 {
					e.quantFloor = n.parenIndex
				}
				e.push(n.kid)
				continue
			}
			e.prog = append(e.prog, byte(opEndChild))
			if err := e.patchJump(f.patch); err != nil {
				return err
			}
			e.quantFloor = f.savedFloor
			e.pop()

		case opAssert, opAssertNot:
			if f.state == 0 {
				f.state = 1
				e.prog = append(e.prog, byte(n.op))
				f.patch = e.placeJump()
				if n.op == opAssertNot {
					e.prog = appendCompactIndex(e.prog, e.capFloor())
				}
				e.push(n.kid)
				continue
			}
			if n.op == opAssert {
				e.prog = append(e.prog, byte(opAssertTest))
			} else {
				e.prog = append(e.prog, byte(opAssertNotTest))
			}
			if err := e.patchJump(f.patch); err != nil {
				return err
			}
			e.pop()

		default:
			panic(fmt.Sprintf("jsre: unexpected node %s", n.op))
		}
	}
	return nil
}

func (e *emitter) emitLiteral(n *node) {
	if n.length > 1 {
		op := opFlat
		if e.icase {
			op = opFlatI
		}
		e.prog = append(e.prog, byte(op))
		e.prog = appendCompactIndex(e.prog, n.start)
		e.prog = appendCompactIndex(e.prog, n.length)
		return
	}
	c := n.firstUnit(e.source)
	if c < 256 {
		op := opFlat1
		if e.icase {
			op = opFlat1I
		}
		e.prog = append(e.prog, byte(op), byte(c))
		return
	}
	op := opUCFlat1
	if e.icase {
		op = opUCFlat1I
	}
	e.prog = append(e.prog, byte(op))
	e.prog = appendUnit(e.prog, c)
}

type prereqKind uint8

const (
	prereqNone prereqKind = iota
	prereqUnit
	prereqClass
)

// prerequisite reports the test the first op of an alternative performs, if
// it is a case-sensitive literal or a bracket class.
func (e *emitter) prerequisite(arm nodeID) (prereqKind, uint16, int) {
	n := &e.nodes[arm]
	if n.op == opConcat {
		n = &e.nodes[n.kid]
	}
	switch {
	case n.op == opFlat && !e.icase:
		return prereqUnit, n.firstUnit(e.source), 0
	case n.op == opClass:
		return prereqClass, 0, n.classIndex
	}
	return prereqNone, 0, 0
}

// emitAltHeader emits opAlt, or a fused variant carrying the first tests
// of both alternatives, and returns the operand position of its jump.
func (e *emitter) emitAltHeader(n *node) int {
	k1, c1, class1 := e.prerequisite(n.kid)
	k2, c2, class2 := e.prerequisite(n.kid2)

	op := opAlt
	switch {
	case e.icase || k1 == prereqNone || k2 == prereqNone:
	case k1 == prereqUnit && k2 == prereqUnit:
		op = opAltPrereq
	case k1 != k2:
		op = opAltPrereq2
	}

	e.prog = append(e.prog, byte(op))
	patch := e.placeJump()
	e.prog = appendCompactIndex(e.prog, e.capFloor())
	switch op {
	case opAltPrereq:
		e.prog = appendUnit(e.prog, c1)
		e.prog = appendUnit(e.prog, c2)
	case opAltPrereq2:
		c, class := c1, class2
		if k1 == prereqClass {
			c, class = c2, class1
		}
		e.prog = appendUnit(e.prog, c)
		e.prog = appendCompactIndex(e.prog, class)
	}
	return patch
}

// emitQuantHeader picks the quantifier op for n's bounds and returns the
// operand position of its exit jump.
func (e *emitter) emitQuantHeader(n *node) int {
	var op opcode
	switch {
	case n.min == 0 && n.max == -1:
		op = opStar
	case n.min == 1 && n.max == -1:
		op = opPlus
	case n.min == 0 && n.max == 1:
		op = opOpt
	default:
		op = opQuant
	}
	if !n.greedy {
		op += opMinimalStar - opStar
	}

	e.prog = append(e.prog, byte(op))
	patch := e.placeJump()
	e.prog = appendCompactIndex(e.prog, e.capFloor())
	e.prog = appendCompactIndex(e.prog, n.parenIndex)
	e.prog = appendCompactIndex(e.prog, n.parenCount)
	if op == opQuant || op == opMinimalQuant {
		e.prog = appendCompactIndex(e.prog, n.min)
		e.prog = appendCompactIndex(e.prog, n.max+1)
	}
	return patch
}
