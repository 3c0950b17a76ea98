package jsre

// Group represents a single captured substring from a regular expression
// match against UTF-16 encoded input.
// It is safe for concurrent use by multiple goroutines.
type Group struct {
	src []uint16
	// Start is the inclusive start index of the captured substring,
	// or -1 if the group did not participate in the match.
	Start int
	// End is the exclusive end index of the captured substring,
	// or -1 if the group did not participate in the match.
	End int
}

// Data returns the captured substring as a UTF-16 code units slice.
// If the group did not participate in the match (Start == -1), it returns nil.
func (g Group) Data() []uint16 {
	if g.Start == -1 {
		return nil
	}
	return g.src[g.Start:g.End]
}

// Matched reports whether the group participated in the match.
func (g Group) Matched() bool {
	return g.Start != -1
}

// Match holds the result of a successful match.
// It is safe for concurrent use by multiple goroutines.
type Match struct {
	input []uint16
	// Start and End delimit the whole match.
	Start int
	End   int
	// Groups is the ordered list of captures.
	// Groups[0] is the full match; subsequent entries correspond to
	// the capturing groups in the pattern. Matches produced in
	// ModeTest carry only Groups[0].
	Groups []Group
}

func newMatch(m *machine, start int, mode Mode) *Match {
	res := &Match{
		input: m.input,
		Start: start,
		End:   m.end,
	}
	n := 1
	if mode == ModeExec {
		n += len(m.caps)
	}
	res.Groups = make([]Group, n)
	res.Groups[0] = Group{src: m.input, Start: start, End: m.end}
	for i := 1; i < n; i++ {
		c := m.caps[i-1]
		g := Group{src: m.input, Start: -1, End: -1}
		if c.isSet() {
			g.Start = c.start
			g.End = c.start + c.length
		}
		res.Groups[i] = g
	}
	return res
}

// Data returns the matched text.
func (m *Match) Data() []uint16 {
	return m.input[m.Start:m.End]
}

// Input returns the text the match was found in.
func (m *Match) Input() []uint16 {
	return m.input
}

// LeftContext returns the input preceding the match.
func (m *Match) LeftContext() []uint16 {
	return m.input[:m.Start]
}

// RightContext returns the input following the match.
func (m *Match) RightContext() []uint16 {
	return m.input[m.End:]
}

// LastParen returns the capture of the highest numbered group. If the
// pattern has no groups, the returned group did not participate.
func (m *Match) LastParen() Group {
	if len(m.Groups) < 2 {
		return Group{src: m.input, Start: -1, End: -1}
	}
	return m.Groups[len(m.Groups)-1]
}
