package jsre

import (
	"sync"
	"unicode"
)

const maxCodeUnit = 0xFFFF

type charRange struct {
	lo uint16
	hi uint16
}

var digitRanges = []charRange{
	{lo: '0', hi: '9'},
}

var wordRanges = []charRange{
	{lo: '0', hi: '9'},
	{lo: 'A', hi: 'Z'},
	{lo: '_', hi: '_'},
	{lo: 'a', hi: 'z'},
}

// WhiteSpace and LineTerminator code units.
var spaceRanges = []charRange{
	{lo: 0x0009, hi: 0x000D},
	{lo: 0x0020, hi: 0x0020},
	{lo: 0x00A0, hi: 0x00A0},
	{lo: 0x1680, hi: 0x1680},
	{lo: 0x2000, hi: 0x200A},
	{lo: 0x2028, hi: 0x2029},
	{lo: 0x202F, hi: 0x202F},
	{lo: 0x205F, hi: 0x205F},
	{lo: 0x3000, hi: 0x3000},
	{lo: 0xFEFF, hi: 0xFEFF},
}

var (
	nonDigitRanges = complementRanges(digitRanges)
	nonWordRanges  = complementRanges(wordRanges)
	nonSpaceRanges = complementRanges(spaceRanges)
)

// complementRanges inverts sorted, non-overlapping ranges over the whole
// code unit space.
func complementRanges(chars []charRange) []charRange {
	if len(chars) == 0 {
		return []charRange{{lo: 0, hi: maxCodeUnit}}
	}
	res := make([]charRange, 0, len(chars)+1)
	if chars[0].lo > 0 {
		res = append(res, charRange{lo: 0, hi: chars[0].lo - 1})
	}
	for i := 0; i < len(chars)-1; i++ {
		res = append(res, charRange{lo: chars[i].hi + 1, hi: chars[i+1].lo - 1})
	}
	if last := chars[len(chars)-1]; last.hi < maxCodeUnit {
		res = append(res, charRange{lo: last.hi + 1, hi: maxCodeUnit})
	}
	return res
}

func rangesContain(chars []charRange, c uint16) bool {
	lo := 0
	hi := len(chars)
	for lo < hi {
		m := int(uint(lo+hi) >> 1)
		range_ := chars[m]
		if range_.lo <= c && c <= range_.hi {
			return true
		}
		if c < range_.lo {
			hi = m
		} else {
			lo = m + 1
		}
	}
	return false
}

func isSpace(c uint16) bool {
	return rangesContain(spaceRanges, c)
}

// canonicalize maps a code unit to its simple uppercase form. A non-ASCII
// unit whose uppercase is ASCII, or is outside the BMP, maps to itself.
func canonicalize(c uint16) uint16 {
	if c < 128 {
		if c-'a' <= 'z'-'a' {
			return c - ('a' - 'A')
		}
		return c
	}
	u := unicode.ToUpper(rune(c))
	if u < 128 || u > maxCodeUnit {
		return c
	}
	return uint16(u)
}

// foldEquivalents calls fn for every code unit (including c) that has the
// same canonical form as c.
func foldEquivalents(c uint16, fn func(uint16)) {
	fn(c)
	canon := canonicalize(c)
	for r := unicode.SimpleFold(rune(c)); r != rune(c); r = unicode.SimpleFold(r) {
		if r <= maxCodeUnit && canonicalize(uint16(r)) == canon {
			fn(uint16(r))
		}
	}
}

// charClass describes one bracket expression of a compiled pattern.
type charClass struct {
	// Span of the class body in the pattern source: after '[' and an
	// optional '^', up to the closing ']'.
	start, length int
	// Highest code unit that may have its bit set.
	bmsize int
	// False for negated classes.
	sense bool
	icase bool

	once      sync.Once
	converted bool
	bits      []byte
}

// scanClass walks the body of a bracket expression and reports each member
// range to emit. It is shared by sizing and bitmap materialization.
func scanClass(units []uint16, start, end int, emit func(lo, hi uint16)) error {
	src := patternSource{units: units[:end], pos: start}

	emitRanges := func(rs []charRange) {
		for _, r := range rs {
			emit(r.lo, r.hi)
		}
	}

	// Returns either a single unit or a class escape range table.
	parseClassAtom := func() (uint16, []charRange) {
		c := src.units[src.pos]
		src.pos++
		if c != '\\' || src.atEnd() {
			return c, nil
		}
		switch next := src.units[src.pos]; next {
		case 'd':
			src.pos++
			return 0, digitRanges
		case 'D':
			src.pos++
			return 0, nonDigitRanges
		case 's':
			src.pos++
			return 0, spaceRanges
		case 'S':
			src.pos++
			return 0, nonSpaceRanges
		case 'w':
			src.pos++
			return 0, wordRanges
		case 'W':
			src.pos++
			return 0, nonWordRanges
		case 'b':
			src.pos++
			// backspace
			return 0x0008, nil
		}
		return src.parseCharacterEscape(true), nil
	}

	for !src.atEnd() {
		atomStart := src.pos
		leftC, leftS := parseClassAtom()

		if next, ended := src.nextCodeUnit(); ended || next != '-' {
			if leftS != nil {
				emitRanges(leftS)
			} else {
				emit(leftC, leftC)
			}
			continue
		}
		if _, ended := src.nextNthCodeUnit(1); ended {
			// trailing '-' is literal
			src.pos++
			if leftS != nil {
				emitRanges(leftS)
			} else {
				emit(leftC, leftC)
			}
			emit('-', '-')
			continue
		}
		src.pos++

		rightC, rightS := parseClassAtom()
		if leftS != nil || rightS != nil {
			if leftS != nil {
				emitRanges(leftS)
			} else {
				emit(leftC, leftC)
			}
			if rightS != nil {
				emitRanges(rightS)
			} else {
				emit(rightC, rightC)
			}
			emit('-', '-')
			continue
		}
		if leftC > rightC {
			return newSyntaxError("invalid range in character class", atomStart)
		}
		emit(leftC, rightC)
	}
	return nil
}

// size computes bmsize without materializing the bitmap, validating the
// class body as it goes.
func (cc *charClass) size(source []uint16) error {
	maxc := 0
	err := scanClass(source, cc.start, cc.start+cc.length, func(lo, hi uint16) {
		if !cc.icase {
			maxc = max(maxc, int(hi))
			return
		}
		if int(hi) <= maxc && maxc == maxCodeUnit {
			return
		}
		for c := int(lo); c <= int(hi); c++ {
			foldEquivalents(uint16(c), func(f uint16) {
				maxc = max(maxc, int(f))
			})
		}
	})
	if err != nil {
		return err
	}
	cc.bmsize = maxc
	return nil
}

// convert materializes the bitmap. It runs at most once per class.
func (cc *charClass) convert(source []uint16) {
	cc.once.Do(func() {
		bits := make([]byte, cc.bmsize/8+1)
		set := func(c uint16) {
			bits[c>>3] |= 1 << (c & 7)
		}
		// The body was validated by size; conversion cannot fail.
		_ = scanClass(source, cc.start, cc.start+cc.length, func(lo, hi uint16) {
			for c := int(lo); c <= int(hi); c++ {
				if cc.icase {
					foldEquivalents(uint16(c), set)
				} else {
					set(uint16(c))
				}
			}
		})
		cc.bits = bits
		cc.converted = true
	})
}

func (cc *charClass) contains(c uint16) bool {
	hit := int(c) <= cc.bmsize && cc.bits[c>>3]&(1<<(c&7)) != 0
	return hit == cc.sense
}
