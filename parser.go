package jsre

import (
	"math"
	"slices"
)

const (
	maxQuantifier  = math.MaxInt32
	maxParens      = 0xFFFF
	classCacheSize = 8
)

// operator is a pending operator or an open group on the parser's
// operator stack.
type operator struct {
	op     opcode // opAlt, opConcat, opLParen, opGroup, opAssert or opAssertNot
	offset int
	// Paren index of a capturing group.
	parenIndex int
	// Number of parens opened before the group.
	parenStart int
}

type classCacheEntry struct {
	start, length int
	sense         bool
	index         int
}

// parser turns a pattern into a node tree. It keeps explicit operator and
// operand stacks instead of recursing, so nesting is limited by maxDepth
// only.
type parser struct {
	src      patternSource
	flags    Flag
	maxDepth int

	nodes     arena
	operators []operator
	operands  []nodeID

	parenCount int
	// Total parens in the pattern, -1 until scanned.
	totalParens int

	classes        []*charClass
	classCache     []classCacheEntry
	classCacheNext int

	// Estimated length of the emitted program.
	progLength int
	treeDepth  int
}

func newParser(source []uint16, flags Flag, maxDepth int) *parser {
	return &parser{
		src:         patternSource{units: source},
		flags:       flags,
		maxDepth:    maxDepth,
		totalParens: -1,
		// opEnd
		progLength: 1,
	}
}

func (p *parser) icase() bool {
	return p.flags&FlagIgnoreCase != 0
}

func (p *parser) parse() (nodeID, error) {
	for {
		c, ended := p.src.nextCodeUnit()
		if !ended && c == '(' {
			if err := p.openGroup(); err != nil {
				return nilNode, err
			}
			continue
		}

		if ended || c == '|' || c == ')' {
			p.operands = append(p.operands, p.leaf(opEmpty))
		} else {
			parenStart := p.parenCount
			atom, err := p.parseAtom()
			if err != nil {
				return nilNode, err
			}
			if atom, err = p.parseQuantifier(atom, parenStart); err != nil {
				return nilNode, err
			}
			p.operands = append(p.operands, atom)
		}

	Operators:
		for {
			if err := p.checkDepth(); err != nil {
				return nilNode, err
			}
			c, ended := p.src.nextCodeUnit()
			switch {
			case ended:
				return p.finish()
			case c == '|':
				p.reduceConcat()
				if err := p.pushOperator(operator{op: opAlt, offset: p.src.pos}); err != nil {
					return nilNode, err
				}
				p.src.pos++
				break Operators
			case c == ')':
				if err := p.closeGroup(); err != nil {
					return nilNode, err
				}
			default:
				p.reduceConcat()
				if err := p.pushOperator(operator{op: opConcat, offset: p.src.pos}); err != nil {
					return nilNode, err
				}
				break Operators
			}
		}
	}
}

func (p *parser) checkDepth() error {
	if p.treeDepth > p.maxDepth || len(p.operators) > p.maxDepth {
		return newSyntaxError("regular expression too deeply nested", p.src.pos)
	}
	return nil
}

func (p *parser) pushOperator(op operator) error {
	p.operators = append(p.operators, op)
	return p.checkDepth()
}

func (p *parser) popOperand() nodeID {
	id := p.operands[len(p.operands)-1]
	p.operands = p.operands[:len(p.operands)-1]
	return id
}

func (p *parser) setDepth(id nodeID, depth int) {
	p.nodes.at(id).depth = depth
	p.treeDepth = max(p.treeDepth, depth)
}

// reduceConcat folds a pending concatenation. Concatenation binds left to
// right, so at most one is pending at a time.
func (p *parser) reduceConcat() {
	for len(p.operators) > 0 && p.operators[len(p.operators)-1].op == opConcat {
		p.operators = p.operators[:len(p.operators)-1]
		b := p.popOperand()
		a := p.popOperand()
		p.operands = append(p.operands, p.concat(a, b))
	}
}

// reduceAll folds every pending operator down to the innermost open group.
// Alternation is right associative: a|b|c becomes a|(b|c).
func (p *parser) reduceAll() {
	for len(p.operators) > 0 {
		top := p.operators[len(p.operators)-1]
		if top.op != opAlt && top.op != opConcat {
			return
		}
		p.operators = p.operators[:len(p.operators)-1]
		b := p.popOperand()
		a := p.popOperand()
		if top.op == opConcat {
			p.operands = append(p.operands, p.concat(a, b))
			continue
		}
		id := p.nodes.alloc(opAlt)
		n := p.nodes.at(id)
		n.kid = a
		n.kid2 = b
		p.setDepth(id, max(p.nodes.at(a).depth, p.nodes.at(b).depth)+1)
		// opAlt with prerequisites, opJump
		p.progLength += 1 + jumpOffsetLen + compactIndexWidth(p.parenCount) + 4 + 1 + jumpOffsetLen
		p.operands = append(p.operands, id)
	}
}

func (p *parser) finish() (nodeID, error) {
	p.reduceAll()
	if len(p.operators) > 0 {
		return nilNode, newSyntaxError("unmatched parenthesis", p.operators[len(p.operators)-1].offset)
	}
	if err := p.checkDepth(); err != nil {
		return nilNode, err
	}
	return p.operands[0], nil
}

func (p *parser) openGroup() error {
	op := operator{
		op:         opLParen,
		offset:     p.src.pos,
		parenStart: p.parenCount,
	}
	p.src.pos++
	if p.src.consumeNextCodeUnit('?') {
		c, _ := p.src.nextCodeUnit()
		switch c {
		case ':':
			op.op = opGroup
		case '=':
			op.op = opAssert
		case '!':
			op.op = opAssertNot
		default:
			return newSyntaxError("invalid group", op.offset)
		}
		p.src.pos++
	} else {
		if p.parenCount >= maxParens {
			return newSyntaxError("too many parentheses", op.offset)
		}
		op.parenIndex = p.parenCount
		p.parenCount++
	}
	return p.pushOperator(op)
}

func (p *parser) closeGroup() error {
	p.reduceAll()
	if len(p.operators) == 0 {
		return newSyntaxError("unmatched parenthesis", p.src.pos)
	}
	group := p.operators[len(p.operators)-1]
	p.operators = p.operators[:len(p.operators)-1]
	p.src.pos++

	body := p.popOperand()
	bodyDepth := p.nodes.at(body).depth
	id := body
	switch group.op {
	case opLParen:
		id = p.nodes.alloc(opLParen)
		p.nodes.at(id).parenIndex = group.parenIndex
		p.progLength += 2 * (1 + compactIndexWidth(group.parenIndex))
	case opAssert, opAssertNot:
		id = p.nodes.alloc(group.op)
		n := p.nodes.at(id)
		n.parenIndex = group.parenStart
		n.parenCount = p.parenCount - group.parenStart
		// opAssert, opAssert*Test
		p.progLength += 1 + jumpOffsetLen + 1
		if group.op == opAssertNot {
			p.progLength += compactIndexWidth(p.parenCount)
		}
	}
	if id != body {
		p.nodes.at(id).kid = body
		p.setDepth(id, bodyDepth+1)
	}

	id, err := p.parseQuantifier(id, group.parenStart)
	if err != nil {
		return err
	}
	p.operands = append(p.operands, id)
	return nil
}

func (p *parser) leaf(op opcode) nodeID {
	id := p.nodes.alloc(op)
	p.setDepth(id, 1)
	if op != opEmpty {
		p.progLength++
	}
	return id
}

// literal creates a single-unit literal. Unescaped units keep their source
// span so that neighbours can be merged into one run.
func (p *parser) literal(c uint16, start int, unescaped bool) nodeID {
	id := p.nodes.alloc(opFlat)
	n := p.nodes.at(id)
	n.ch = c
	n.start = start
	if unescaped {
		n.length = 1
	}
	p.setDepth(id, 1)
	p.progLength += literalSize(n)
	return id
}

func literalSize(n *node) int {
	if n.length > 1 {
		return 1 + compactIndexWidth(n.start) + compactIndexWidth(n.length)
	}
	if n.ch < 256 {
		return 2
	}
	return 3
}

func (p *parser) concat(a, b nodeID) nodeID {
	bDepth := p.nodes.at(b).depth
	if an := p.nodes.at(a); an.op == opConcat {
		if tail := an.kid2; !p.mergeLiterals(tail, b) {
			p.nodes.at(tail).next = b
			an.kid2 = b
		}
		p.setDepth(a, max(an.depth, bDepth+1))
		return a
	}
	if p.mergeLiterals(a, b) {
		return a
	}
	aDepth := p.nodes.at(a).depth
	id := p.nodes.alloc(opConcat)
	n := p.nodes.at(id)
	n.kid = a
	n.kid2 = b
	p.nodes.at(a).next = b
	p.setDepth(id, max(aDepth, bDepth)+1)
	return id
}

// mergeLiterals extends the literal run a with the unescaped unit b when
// their source spans touch and the run encodes no larger than the two
// separate literals.
func (p *parser) mergeLiterals(a, b nodeID) bool {
	an, bn := p.nodes.at(a), p.nodes.at(b)
	if !an.isLiteral() || !bn.isLiteral() || an.length == 0 || bn.length != 1 || an.start+an.length != bn.start {
		return false
	}
	separate := literalSize(an) + literalSize(bn)
	merged := 1 + compactIndexWidth(an.start) + compactIndexWidth(an.length+1)
	if merged > separate {
		return false
	}
	an.length++
	p.progLength += merged - separate
	return true
}

func (p *parser) parseAtom() (nodeID, error) {
	offset := p.src.pos
	c := p.src.units[offset]
	switch c {
	case '^':
		p.src.pos++
		return p.leaf(opBOL), nil
	case '$':
		p.src.pos++
		return p.leaf(opEOL), nil
	case '.':
		p.src.pos++
		return p.leaf(opDot), nil
	case '[':
		return p.parseClass()
	case '\\':
		return p.parseAtomEscape()
	case '*', '+', '?':
		return nilNode, newSyntaxError("nothing to repeat", offset)
	case '{':
		if p.startsQuantifier() {
			return nilNode, newSyntaxError("nothing to repeat", offset)
		}
	}
	p.src.pos++
	return p.literal(c, offset, true), nil
}

func (p *parser) parseAtomEscape() (nodeID, error) {
	offset := p.src.pos
	p.src.pos++
	c, ended := p.src.nextCodeUnit()
	if ended {
		return nilNode, newSyntaxError("\\ at end of pattern", offset)
	}

	var op opcode
	switch c {
	case 'b':
		op = opWBdry
	case 'B':
		op = opWNonBdry
	case 'd':
		op = opDigit
	case 'D':
		op = opNonDigit
	case 's':
		op = opSpace
	case 'S':
		op = opNonSpace
	case 'w':
		op = opAlnum
	case 'W':
		op = opNonAlnum
	case '1', '2', '3', '4', '5', '6', '7', '8', '9':
		digitsStart := p.src.pos
		n, _ := p.src.parseDecimalDigits()
		if n <= p.parenCount || n <= p.totalParenCount() {
			id := p.nodes.alloc(opBackref)
			p.nodes.at(id).parenIndex = n - 1
			p.setDepth(id, 1)
			p.progLength += 1 + compactIndexWidth(n-1)
			return id, nil
		}
		// Not a group: \8 and \9 are the digits, anything else is octal.
		p.src.pos = digitsStart
		if c >= '8' {
			p.src.pos++
			return p.literal(c, offset, false), nil
		}
		return p.literal(p.src.parseOctal(), offset, false), nil
	default:
		return p.literal(p.src.parseCharacterEscape(false), offset, false), nil
	}
	p.src.pos++
	return p.leaf(op), nil
}

// totalParenCount counts every capturing group of the pattern. The scan
// runs at most once per compile.
func (p *parser) totalParenCount() int {
	if p.totalParens != -1 {
		return p.totalParens
	}
	units := p.src.units
	n := 0
	for i := 0; i < len(units); i++ {
		switch units[i] {
		case '\\':
			i++
		case '[':
		ScanCharacterClass:
			for i++; i < len(units); i++ {
				switch units[i] {
				case '\\':
					i++
				case ']':
					break ScanCharacterClass
				}
			}
		case '(':
			if i+1 >= len(units) || units[i+1] != '?' {
				n++
			}
		}
	}
	p.totalParens = n
	return n
}

func (p *parser) parseClass() (nodeID, error) {
	offset := p.src.pos
	p.src.pos++
	sense := !p.src.consumeNextCodeUnit('^')
	start := p.src.pos
	for {
		c, ended := p.src.nextCodeUnit()
		if ended {
			return nilNode, newSyntaxError("unterminated character class", offset)
		}
		if c == ']' {
			break
		}
		if c == '\\' {
			p.src.pos++
			if p.src.atEnd() {
				return nilNode, newSyntaxError("unterminated character class", offset)
			}
		}
		p.src.pos++
	}
	length := p.src.pos - start
	p.src.pos++

	index, err := p.classIndex(start, length, sense)
	if err != nil {
		return nilNode, err
	}
	id := p.nodes.alloc(opClass)
	p.nodes.at(id).classIndex = index
	p.setDepth(id, 1)
	p.progLength += 1 + compactIndexWidth(index)
	return id, nil
}

// classIndex returns the index of the class with the given body, reusing a
// recently seen class with identical text.
func (p *parser) classIndex(start, length int, sense bool) (int, error) {
	units := p.src.units
	body := units[start : start+length]
	for _, e := range p.classCache {
		if e.sense == sense && slices.Equal(units[e.start:e.start+e.length], body) {
			return e.index, nil
		}
	}

	cc := &charClass{
		start:  start,
		length: length,
		sense:  sense,
		icase:  p.icase(),
	}
	if err := cc.size(units); err != nil {
		return 0, err
	}
	p.classes = append(p.classes, cc)

	entry := classCacheEntry{start: start, length: length, sense: sense, index: len(p.classes) - 1}
	if len(p.classCache) < classCacheSize {
		p.classCache = append(p.classCache, entry)
	} else {
		p.classCache[p.classCacheNext] = entry
		p.classCacheNext = (p.classCacheNext + 1) % classCacheSize
	}
	return entry.index, nil
}

// parseBraceQuantifier reads {n}, {n,} or {n,m}. If the text at the cursor
// is not a quantifier the cursor is left unchanged.
func (p *parser) parseBraceQuantifier() (int, int, bool) {
	save := p.src.pos
	p.src.pos++
	lo, ok := p.src.parseDecimalDigits()
	if !ok {
		p.src.pos = save
		return 0, 0, false
	}
	hi := lo
	if p.src.consumeNextCodeUnit(',') {
		if hi, ok = p.src.parseDecimalDigits(); !ok {
			hi = -1
		}
	}
	if !p.src.consumeNextCodeUnit('}') {
		p.src.pos = save
		return 0, 0, false
	}
	return lo, hi, true
}

func (p *parser) startsQuantifier() bool {
	c, ended := p.src.nextCodeUnit()
	if ended {
		return false
	}
	switch c {
	case '*', '+', '?':
		return true
	case '{':
		save := p.src.pos
		_, _, ok := p.parseBraceQuantifier()
		p.src.pos = save
		return ok
	}
	return false
}

// parseQuantifier wraps atom in a quantifier node if one follows.
// parenStart is the number of parens opened before the atom.
func (p *parser) parseQuantifier(atom nodeID, parenStart int) (nodeID, error) {
	c, ended := p.src.nextCodeUnit()
	if ended {
		return atom, nil
	}
	offset := p.src.pos
	var quantMin, quantMax int
	switch c {
	case '*':
		p.src.pos++
		quantMin, quantMax = 0, -1
	case '+':
		p.src.pos++
		quantMin, quantMax = 1, -1
	case '?':
		p.src.pos++
		quantMin, quantMax = 0, 1
	case '{':
		var ok bool
		if quantMin, quantMax, ok = p.parseBraceQuantifier(); !ok {
			return atom, nil
		}
		if quantMax != -1 && quantMin > quantMax {
			return nilNode, newSyntaxError("numbers out of order in {} quantifier", offset)
		}
	default:
		return atom, nil
	}
	greedy := !p.src.consumeNextCodeUnit('?')

	if p.nodes.at(atom).isAssertion() {
		return nilNode, newSyntaxError("nothing to repeat", offset)
	}
	if p.startsQuantifier() {
		return nilNode, newSyntaxError("nothing to repeat", p.src.pos)
	}
	if quantMin == 1 && quantMax == 1 {
		return atom, nil
	}

	atomDepth := p.nodes.at(atom).depth
	id := p.nodes.alloc(opQuant)
	n := p.nodes.at(id)
	n.kid = atom
	n.min = quantMin
	n.max = quantMax
	n.greedy = greedy
	n.parenIndex = parenStart
	n.parenCount = p.parenCount - parenStart
	p.setDepth(id, atomDepth+1)
	// opQuant header and opEndChild
	p.progLength += 1 + jumpOffsetLen + compactIndexWidth(p.parenCount) + compactIndexWidth(parenStart) +
		compactIndexWidth(n.parenCount) + compactIndexWidth(quantMin) + compactIndexWidth(quantMax+1) + 1
	return id, nil
}
