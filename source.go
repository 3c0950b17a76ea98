package jsre

// patternSource is a cursor over the UTF-16 code units of a pattern.
type patternSource struct {
	units []uint16
	pos   int
}

func (s *patternSource) atEnd() bool {
	return s.pos >= len(s.units)
}

// If source is ended, returns 0, true
func (s *patternSource) nextCodeUnit() (uint16, bool) {
	return s.nextNthCodeUnit(0)
}

// If source is ended, returns 0, true
func (s *patternSource) nextNthCodeUnit(n int) (uint16, bool) {
	pos := s.pos + n
	if pos >= len(s.units) {
		return 0, true
	}
	return s.units[pos], false
}

func (s *patternSource) consumeNextCodeUnit(expected uint16) bool {
	if char, ended := s.nextCodeUnit(); ended || char != expected {
		return false
	}
	s.pos++
	return true
}

// parseDecimalDigits reads a run of decimal digits. Values clamp at
// maxQuantifier. If no digit is present, returns 0, false.
func (s *patternSource) parseDecimalDigits() (int, bool) {
	char, ended := s.nextCodeUnit()
	if ended || !isDigit(char) {
		return 0, false
	}
	n := 0
	for ; !ended && isDigit(char); char, ended = s.nextCodeUnit() {
		s.pos++
		if n <= maxQuantifier {
			n = n*10 + int(char-'0')
		}
	}
	if n > maxQuantifier {
		n = maxQuantifier
	}
	return n, true
}

// peekHexDigits decodes n hex digits at the cursor without consuming them.
func (s *patternSource) peekHexDigits(n int) (uint16, bool) {
	var r uint16
	for i := 0; i < n; i++ {
		c, ended := s.nextNthCodeUnit(i)
		if ended || !isHexDigit(c) {
			return 0, false
		}
		r = r<<4 | parseHexDigit(c)
	}
	return r, true
}

// parseOctal reads up to three octal digits with a value of at most 0377.
func (s *patternSource) parseOctal() uint16 {
	var n uint16
	for i := 0; i < 3; i++ {
		c, ended := s.nextCodeUnit()
		if ended || !isOctalDigit(c) {
			break
		}
		v := n*8 + (c - '0')
		if v > 0377 {
			break
		}
		n = v
		s.pos++
	}
	return n
}

// parseCharacterEscape decodes the escape whose backslash was just
// consumed. Class escapes, \b and backreferences are handled by callers.
// A \c not followed by a control letter yields a literal backslash and
// leaves the 'c' unconsumed.
func (s *patternSource) parseCharacterEscape(inClass bool) uint16 {
	c := s.units[s.pos]
	switch c {
	case 't':
		s.pos++
		return '\t'
	case 'n':
		s.pos++
		return '\n'
	case 'v':
		s.pos++
		return '\v'
	case 'f':
		s.pos++
		return '\f'
	case 'r':
		s.pos++
		return '\r'
	case 'c':
		next, ended := s.nextNthCodeUnit(1)
		if !ended && (isASCIILetterChar(next) || (inClass && (isDigit(next) || next == '_'))) {
			s.pos += 2
			return next % 32
		}
		return '\\'
	case 'x':
		s.pos++
		if v, ok := s.peekHexDigits(2); ok {
			s.pos += 2
			return v
		}
		return 'x'
	case 'u':
		s.pos++
		if v, ok := s.peekHexDigits(4); ok {
			s.pos += 4
			return v
		}
		return 'u'
	case '0', '1', '2', '3', '4', '5', '6', '7':
		return s.parseOctal()
	}
	s.pos++
	return c
}

func lowerASCII(c uint16) uint16 {
	return c | ('a' - 'A')
}

func isHexDigit(c uint16) bool {
	return ((c - '0') <= (9 - 0)) || (lowerASCII(c)-'a' <= 'f'-'a')
}

func isDigit(c uint16) bool {
	return (c - '0') <= 9
}

func isOctalDigit(c uint16) bool {
	return (c - '0') <= 7
}

func isASCIILetterChar(c uint16) bool {
	return lowerASCII(c)-'a' <= 'z'-'a'
}

func isWordChar(c uint16) bool {
	return ((c - '0') <= (9 - 0)) || (lowerASCII(c)-'a' <= 'z'-'a') || c == '_'
}

func parseHexDigit(c uint16) uint16 {
	return (c & 0b1111) + (c>>6)*9
}

func isLineTerminator(c uint16) bool {
	return c == '\n' || c == '\r' || c == 0x2028 || c == 0x2029
}
