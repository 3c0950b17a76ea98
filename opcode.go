package jsre

import (
	"fmt"
	"strings"
)

type opcode uint8

const (
	opEmpty    opcode = iota // Match the empty string.
	opBOL                    // ^ (line start in multiline mode)
	opEOL                    // $ (line end in multiline mode)
	opWBdry                  // \b
	opWNonBdry               // \B
	opDot                    // . any unit but a line terminator
	opDigit                  // \d
	opNonDigit               // \D
	opAlnum                  // \w
	opNonAlnum               // \W
	opSpace                  // \s
	opNonSpace               // \S
	opBackref                // Operand: paren index.
	opFlat                   // Operands: source start, run length.
	opFlat1                  // Operand: one byte code unit.
	opUCFlat1                // Operand: 16-bit code unit.
	opFlatI                  // Case-insensitive opFlat.
	opFlat1I                 // Case-insensitive opFlat1.
	opUCFlat1I               // Case-insensitive opUCFlat1.
	opClass                  // Operand: class index.

	opLParen // Operand: paren index.
	opRParen // Operand: paren index.

	opAlt // Operands: jump to second arm, capture floor.
	//   First arm ends with opJump to the end of the alternation.
	opJump       // Operand: jump.
	opAltPrereq  // opAlt operands, then two 16-bit code units.
	opAltPrereq2 // opAlt operands, then a 16-bit code unit and a class index.

	opStar // Operands: jump past opEndChild, capture floor,
	//   first paren index and paren count of the body.
	opPlus
	opOpt
	opQuant // opStar operands, then min and max+1 (0 = unbounded).
	opMinimalStar
	opMinimalPlus
	opMinimalOpt
	opMinimalQuant
	opEndChild // End of a quantifier body.

	opAssert        // Operand: jump past opAssertTest.
	opAssertNot     // Operands: jump past opAssertNotTest, capture floor.
	opAssertTest    // End of a lookahead body.
	opAssertNotTest // End of a negative lookahead body.

	opEnd

	// Parse-time only node kinds; never emitted.
	opConcat
	opGroup // Non-capturing group; only on the parser operator stack.
)

const (
	jumpOffsetLen = 2
	jumpOffsetMax = 0xFFFF
)

var opNames = [...]string{
	opEmpty:         "empty",
	opBOL:           "bol",
	opEOL:           "eol",
	opWBdry:         "wbdry",
	opWNonBdry:      "wnonbdry",
	opDot:           "dot",
	opDigit:         "digit",
	opNonDigit:      "nondigit",
	opAlnum:         "alnum",
	opNonAlnum:      "nonalnum",
	opSpace:         "space",
	opNonSpace:      "nonspace",
	opBackref:       "backref",
	opFlat:          "flat",
	opFlat1:         "flat1",
	opUCFlat1:       "ucflat1",
	opFlatI:         "flati",
	opFlat1I:        "flat1i",
	opUCFlat1I:      "ucflat1i",
	opClass:         "class",
	opLParen:        "lparen",
	opRParen:        "rparen",
	opAlt:           "alt",
	opJump:          "jump",
	opAltPrereq:     "altprereq",
	opAltPrereq2:    "altprereq2",
	opStar:          "star",
	opPlus:          "plus",
	opOpt:           "opt",
	opQuant:         "quant",
	opMinimalStar:   "minimalstar",
	opMinimalPlus:   "minimalplus",
	opMinimalOpt:    "minimalopt",
	opMinimalQuant:  "minimalquant",
	opEndChild:      "endchild",
	opAssert:        "assert",
	opAssertNot:     "assertnot",
	opAssertTest:    "asserttest",
	opAssertNotTest: "assertnottest",
	opEnd:           "end",
	opConcat:        "concat",
	opGroup:         "group",
}

func (op opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// isSimple reports whether op only tests the current position and
// advances or fails, without touching the stacks.
func (op opcode) isSimple() bool {
	return op <= opClass && op != opBackref
}

func (op opcode) isQuantifier() bool {
	return op >= opStar && op <= opMinimalQuant
}

func (op opcode) isGreedy() bool {
	return op >= opStar && op <= opQuant
}

// Width of a compact index: 7 bits per byte, high bit set on all but the
// last byte.
func compactIndexWidth(v int) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

func appendCompactIndex(b []byte, v int) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

func readCompactIndex(b []byte, pc int) (int, int) {
	v := 0
	shift := 0
	for {
		c := b[pc]
		pc++
		v |= int(c&0x7F) << shift
		if c&0x80 == 0 {
			return v, pc
		}
		shift += 7
	}
}

func readJumpOffset(b []byte, pc int) int {
	return int(b[pc])<<8 | int(b[pc+1])
}

func setJumpOffset(b []byte, pc, off int) {
	b[pc] = byte(off >> 8)
	b[pc+1] = byte(off)
}

func readUnit(b []byte, pc int) uint16 {
	return uint16(b[pc])<<8 | uint16(b[pc+1])
}

func appendUnit(b []byte, c uint16) []byte {
	return append(b, byte(c>>8), byte(c))
}

// quantOperands is the decoded operand block of a quantifier op.
type quantOperands struct {
	exit       int // pc after the matching opEndChild
	capFloor   int
	parenIndex int
	parenCount int
	min, max   int // max == -1 means unbounded
	body       int // pc of the first body op
}

func decodeQuant(b []byte, pc int) quantOperands {
	op := opcode(b[pc])
	var q quantOperands
	q.exit = pc + 1 + readJumpOffset(b, pc+1)
	next := pc + 1 + jumpOffsetLen
	q.capFloor, next = readCompactIndex(b, next)
	q.parenIndex, next = readCompactIndex(b, next)
	q.parenCount, next = readCompactIndex(b, next)
	switch op {
	case opStar, opMinimalStar:
		q.min, q.max = 0, -1
	case opPlus, opMinimalPlus:
		q.min, q.max = 1, -1
	case opOpt, opMinimalOpt:
		q.min, q.max = 0, 1
	default:
		q.min, next = readCompactIndex(b, next)
		q.max, next = readCompactIndex(b, next)
		q.max--
	}
	q.body = next
	return q
}

// disassemble renders a program one instruction per line.
func disassemble(prog []byte) string {
	var out strings.Builder
	pc := 0
	for pc < len(prog) {
		op := opcode(prog[pc])
		fmt.Fprintf(&out, "%04d %s", pc, op)
		next := pc + 1
		switch op {
		case opBackref, opClass, opLParen, opRParen:
			var v int
			v, next = readCompactIndex(prog, next)
			fmt.Fprintf(&out, " %d", v)
		case opFlat, opFlatI:
			var start, length int
			start, next = readCompactIndex(prog, next)
			length, next = readCompactIndex(prog, next)
			fmt.Fprintf(&out, " %d:%d", start, length)
		case opFlat1, opFlat1I:
			fmt.Fprintf(&out, " %q", rune(prog[next]))
			next++
		case opUCFlat1, opUCFlat1I:
			fmt.Fprintf(&out, " %#04x", readUnit(prog, next))
			next += 2
		case opAlt, opAltPrereq, opAltPrereq2, opAssertNot:
			target := next + readJumpOffset(prog, next)
			var floor int
			floor, next = readCompactIndex(prog, next+jumpOffsetLen)
			fmt.Fprintf(&out, " ->%d floor=%d", target, floor)
			switch op {
			case opAltPrereq:
				fmt.Fprintf(&out, " %#04x %#04x", readUnit(prog, next), readUnit(prog, next+2))
				next += 4
			case opAltPrereq2:
				var class int
				c := readUnit(prog, next)
				class, next = readCompactIndex(prog, next+2)
				fmt.Fprintf(&out, " %#04x class=%d", c, class)
			}
		case opJump, opAssert:
			fmt.Fprintf(&out, " ->%d", next+readJumpOffset(prog, next))
			next += jumpOffsetLen
		case opStar, opPlus, opOpt, opQuant, opMinimalStar, opMinimalPlus, opMinimalOpt, opMinimalQuant:
			q := decodeQuant(prog, pc)
			fmt.Fprintf(&out, " ->%d floor=%d parens=%d+%d", q.exit, q.capFloor, q.parenIndex, q.parenCount)
			if op == opQuant || op == opMinimalQuant {
				fmt.Fprintf(&out, " {%d,%d}", q.min, q.max)
			}
			next = q.body
		}
		out.WriteByte('\n')
		pc = next
	}
	return out.String()
}
