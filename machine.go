package jsre

import (
	"math"
	"unsafe"
)

type stack[T any] []T

func (s *stack[T]) push(v T) { *s = append(*s, v) }

func (s *stack[T]) peekPtr() *T { return &(*s)[len(*s)-1] }

func (s *stack[T]) pop() T {
	i := len(*s) - 1
	v := (*s)[i]
	*s = (*s)[:i]
	return v
}

func (s *stack[T]) truncate(n int) { *s = (*s)[:n] }

// capture is the span of one group. start == -1 means the group is unset;
// length == -1 means it was entered but not closed yet.
type capture struct {
	start  int
	length int
}

func (c capture) isSet() bool {
	return c.start >= 0 && c.length >= 0
}

// progState is the bookkeeping of an active quantifier or lookahead.
type progState struct {
	// Quantifier loop.
	count      int
	min, max   int
	iterStart  int
	body, exit int
	parenIndex int
	parenCount int
	capFloor   int
	greedy     bool

	// Lookahead save point.
	savedCP  int
	btHeight int
}

type backtrackAction uint8

const (
	// Resume at pc.
	backtrackGoto backtrackAction = iota
	// Leave the quantifier on top of the state stack.
	backtrackQuantExit
	// Run one more iteration of the quantifier on top of the state stack.
	backtrackQuantIterate
)

type backtrackRecord struct {
	action backtrackAction
	pc, cp int

	stateAt, stateLen int
	capFloor          int
	capAt             int
}

const (
	recordSize  = int(unsafe.Sizeof(backtrackRecord{}))
	stateSize   = int(unsafe.Sizeof(progState{}))
	captureSize = int(unsafe.Sizeof(capture{}))
)

// machine runs a program against one input. It is not safe for concurrent
// use; the driver creates one per call.
type machine struct {
	re     *Regexp
	prog   []byte
	source []uint16
	input  []uint16

	icase     bool
	multiline bool

	caps      []capture
	states    stack[progState]
	backtrack stack[backtrackRecord]
	stateSave []progState
	capSave   []capture

	// End of the last successful attempt.
	end int

	pops     int
	budget   int
	maxDepth int

	// Bytes held by the backtrack stack and the state it saved.
	saved     int
	maxMemory int
}

func (r *Regexp) newMachine(input []uint16) *machine {
	return &machine{
		re:        r,
		prog:      r.program,
		source:    r.source,
		input:     input,
		icase:     r.flags&FlagIgnoreCase != 0,
		multiline: r.flags&FlagMultiline != 0,
		caps:      make([]capture, r.parenCount),
		budget:    backtrackBudget(len(input), r.config.BacktrackFloor),
		maxDepth:  r.config.MaxBacktrackDepth,
		maxMemory: r.config.MaxBacktrackMemory,
	}
}

// backtrackBudget is max(floor, n^3).
func backtrackBudget(n, floor int) int {
	if n >= 1<<20 {
		return math.MaxInt
	}
	return max(floor, n*n*n)
}

func (m *machine) reset() {
	for i := range m.caps {
		m.caps[i] = capture{start: -1, length: -1}
	}
	m.states.truncate(0)
	m.backtrack.truncate(0)
	m.stateSave = m.stateSave[:0]
	m.capSave = m.capSave[:0]
	m.saved = 0
}

func (m *machine) isWordAt(cp int) bool {
	return cp >= 0 && cp < len(m.input) && isWordChar(m.input[cp])
}

func (m *machine) equalFold(a, b uint16) bool {
	return a == b || (m.icase && canonicalize(a) == canonicalize(b))
}

func (m *machine) classAt(pc int) (*charClass, int) {
	idx, next := readCompactIndex(m.prog, pc)
	cc := m.re.classes[idx]
	cc.convert(m.source)
	return cc, next
}

// step executes the simple op at pc. On success it returns the advanced
// cursor and the pc of the following op.
func (m *machine) step(op opcode, pc, cp int) (int, int, bool) {
	in := m.input
	switch op {
	case opEmpty:
		return cp, pc + 1, true
	case opBOL:
		if cp == 0 || (m.multiline && isLineTerminator(in[cp-1])) {
			return cp, pc + 1, true
		}
	case opEOL:
		if cp == len(in) || (m.multiline && isLineTerminator(in[cp])) {
			return cp, pc + 1, true
		}
	case opWBdry:
		if m.isWordAt(cp-1) != m.isWordAt(cp) {
			return cp, pc + 1, true
		}
	case opWNonBdry:
		if m.isWordAt(cp-1) == m.isWordAt(cp) {
			return cp, pc + 1, true
		}
	case opDot, opDigit, opNonDigit, opAlnum, opNonAlnum, opSpace, opNonSpace:
		if cp < len(in) && matchesEscapeClass(op, in[cp]) {
			return cp + 1, pc + 1, true
		}
	case opFlat, opFlatI:
		start, next := readCompactIndex(m.prog, pc+1)
		length, next := readCompactIndex(m.prog, next)
		if cp+length > len(in) {
			break
		}
		lit := m.source[start : start+length]
		for i, c := range lit {
			if !m.equalFold(c, in[cp+i]) {
				return cp, pc, false
			}
		}
		return cp + length, next, true
	case opFlat1, opFlat1I:
		if cp < len(in) && m.equalFold(uint16(m.prog[pc+1]), in[cp]) {
			return cp + 1, pc + 2, true
		}
	case opUCFlat1, opUCFlat1I:
		if cp < len(in) && m.equalFold(readUnit(m.prog, pc+1), in[cp]) {
			return cp + 1, pc + 3, true
		}
	case opClass:
		cc, next := m.classAt(pc + 1)
		if cp < len(in) && cc.contains(in[cp]) {
			return cp + 1, next, true
		}
	}
	return cp, pc, false
}

func matchesEscapeClass(op opcode, c uint16) bool {
	switch op {
	case opDot:
		return !isLineTerminator(c)
	case opDigit:
		return isDigit(c)
	case opNonDigit:
		return !isDigit(c)
	case opAlnum:
		return isWordChar(c)
	case opNonAlnum:
		return !isWordChar(c)
	case opSpace:
		return isSpace(c)
	case opNonSpace:
		return !isSpace(c)
	}
	return false
}

func (m *machine) pushBacktrack(action backtrackAction, pc, cp, capFloor int) error {
	if len(m.backtrack) >= m.maxDepth {
		return ErrOutOfMemory
	}
	size := recordSize + len(m.states)*stateSize + (len(m.caps)-capFloor)*captureSize
	if m.saved+size > m.maxMemory {
		return ErrOutOfMemory
	}
	m.saved += size
	m.backtrack.push(backtrackRecord{
		action:   action,
		pc:       pc,
		cp:       cp,
		stateAt:  len(m.stateSave),
		stateLen: len(m.states),
		capFloor: capFloor,
		capAt:    len(m.capSave),
	})
	m.stateSave = append(m.stateSave, m.states...)
	m.capSave = append(m.capSave, m.caps[capFloor:]...)
	return nil
}

// popBacktrack restores the state saved by the most recent record.
func (m *machine) popBacktrack() backtrackRecord {
	rec := m.backtrack.pop()
	m.states = append(m.states[:0], m.stateSave[rec.stateAt:rec.stateAt+rec.stateLen]...)
	m.stateSave = m.stateSave[:rec.stateAt]
	copy(m.caps[rec.capFloor:], m.capSave[rec.capAt:])
	m.capSave = m.capSave[:rec.capAt]
	m.saved = m.savedBytes()
	return rec
}

func (m *machine) savedBytes() int {
	return len(m.backtrack)*recordSize + len(m.stateSave)*stateSize + len(m.capSave)*captureSize
}

// truncateBacktrack drops every record at height h and above.
func (m *machine) truncateBacktrack(h int) {
	if h >= len(m.backtrack) {
		return
	}
	rec := m.backtrack[h]
	m.stateSave = m.stateSave[:rec.stateAt]
	m.capSave = m.capSave[:rec.capAt]
	m.backtrack.truncate(h)
	m.saved = m.savedBytes()
}

// alternate enters the first alternative and leaves a record for the
// second. Fused prerequisites skip an alternative whose first unit cannot
// match.
func (m *machine) alternate(op opcode, pc, cp int) (int, bool, error) {
	in := m.input
	arm2 := pc + 1 + readJumpOffset(m.prog, pc+1)
	floor, next := readCompactIndex(m.prog, pc+1+jumpOffsetLen)
	switch op {
	case opAltPrereq:
		c1, c2 := readUnit(m.prog, next), readUnit(m.prog, next+2)
		next += 4
		if cp >= len(in) {
			return pc, false, nil
		}
		first, second := in[cp] == c1, in[cp] == c2
		switch {
		case !first && !second:
			return pc, false, nil
		case !first:
			return arm2, true, nil
		case !second:
			return next, true, nil
		}
	case opAltPrereq2:
		c := readUnit(m.prog, next)
		var cc *charClass
		cc, next = m.classAt(next + 2)
		if cp >= len(in) || (in[cp] != c && !cc.contains(in[cp])) {
			return pc, false, nil
		}
	}
	return next, true, m.pushBacktrack(backtrackGoto, arm2, cp, floor)
}

// enterIteration starts one more pass over the body of the quantifier on
// top of the state stack.
func (m *machine) enterIteration(cp int) int {
	q := m.states.peekPtr()
	q.iterStart = cp
	for i := q.parenIndex; i < q.parenIndex+q.parenCount; i++ {
		m.caps[i] = capture{start: -1, length: -1}
	}
	return q.body
}

// loopDecision continues the quantifier on top of the state stack after
// q.count iterations. It returns the pc to resume at.
func (m *machine) loopDecision(cp int) (int, error) {
	q := m.states.peekPtr()
	canIterate := q.max == -1 || q.count < q.max
	if !canIterate {
		exit := q.exit
		m.states.pop()
		return exit, nil
	}
	if q.count < q.min {
		return m.enterIteration(cp), nil
	}
	if q.greedy {
		if err := m.pushBacktrack(backtrackQuantExit, 0, cp, q.capFloor); err != nil {
			return 0, err
		}
		return m.enterIteration(cp), nil
	}
	if err := m.pushBacktrack(backtrackQuantIterate, 0, cp, q.capFloor); err != nil {
		return 0, err
	}
	exit := q.exit
	m.states.pop()
	return exit, nil
}

// run attempts a match starting exactly at start. The backtrack budget is
// shared by every attempt of the machine.
func (m *machine) run(start int) (bool, error) {
	m.reset()
	pc, cp := 0, start
	prog := m.prog
	in := m.input
	for {
		op := opcode(prog[pc])
		ok := true
		var err error

		if op.isSimple() {
			cp, pc, ok = m.step(op, pc, cp)
		} else {
			switch op {
			case opEnd:
				m.end = cp
				return true, nil

			case opLParen:
				var idx int
				idx, pc = readCompactIndex(prog, pc+1)
				m.caps[idx] = capture{start: cp, length: -1}

			case opRParen:
				var idx int
				idx, pc = readCompactIndex(prog, pc+1)
				m.caps[idx].length = cp - m.caps[idx].start

			case opBackref:
				var idx int
				idx, pc = readCompactIndex(prog, pc+1)
				c := m.caps[idx]
				if !c.isSet() {
					break
				}
				if cp+c.length > len(in) {
					ok = false
					break
				}
				for i := 0; i < c.length; i++ {
					if !m.equalFold(in[c.start+i], in[cp+i]) {
						ok = false
						break
					}
				}
				if ok {
					cp += c.length
				}

			case opJump:
				pc = pc + 1 + readJumpOffset(prog, pc+1)

			case opAlt, opAltPrereq, opAltPrereq2:
				pc, ok, err = m.alternate(op, pc, cp)

			case opStar, opPlus, opOpt, opQuant, opMinimalStar, opMinimalPlus, opMinimalOpt, opMinimalQuant:
				q := decodeQuant(prog, pc)
				m.states.push(progState{
					min:        q.min,
					max:        q.max,
					body:       q.body,
					exit:       q.exit,
					parenIndex: q.parenIndex,
					parenCount: q.parenCount,
					capFloor:   q.capFloor,
					greedy:     op.isGreedy(),
				})
				pc, err = m.loopDecision(cp)

			case opEndChild:
				q := m.states.peekPtr()
				if cp == q.iterStart && q.count >= q.min {
					ok = false
					break
				}
				q.count++
				pc, err = m.loopDecision(cp)

			case opAssert:
				m.states.push(progState{savedCP: cp, btHeight: len(m.backtrack)})
				pc += 1 + jumpOffsetLen

			case opAssertTest:
				s := m.states.pop()
				cp = s.savedCP
				m.truncateBacktrack(s.btHeight)
				pc++

			case opAssertNot:
				exit := pc + 1 + readJumpOffset(prog, pc+1)
				var floor int
				floor, pc = readCompactIndex(prog, pc+1+jumpOffsetLen)
				height := len(m.backtrack)
				if err = m.pushBacktrack(backtrackGoto, exit, cp, floor); err == nil {
					m.states.push(progState{savedCP: cp, btHeight: height})
				}

			case opAssertNotTest:
				s := m.states.pop()
				m.truncateBacktrack(s.btHeight)
				ok = false

			default:
				panic("jsre: invalid opcode " + op.String())
			}
		}

		if err != nil {
			return false, err
		}
		if ok {
			continue
		}

		if len(m.backtrack) == 0 {
			return false, nil
		}
		m.pops++
		if m.pops > m.budget {
			return false, ErrPatternTooComplex
		}
		rec := m.popBacktrack()
		cp = rec.cp
		switch rec.action {
		case backtrackGoto:
			pc = rec.pc
		case backtrackQuantExit:
			pc = m.states.pop().exit
		case backtrackQuantIterate:
			pc = m.enterIteration(cp)
		}
	}
}
