package jsre

import (
	"bytes"

	"github.com/coregx/ahocorasick"
)

// minPrefilterLiterals is the smallest alternation worth an automaton.
const minPrefilterLiterals = 3

// prefilter finds candidate start positions for patterns that are an
// alternation of plain literals, such as foo|bar|baz.
//
// The automaton runs over the UTF-16LE bytes of the input. No literal may
// be a byte substring of another: then the first match the automaton
// reports also has the smallest start, so the first candidate is the
// leftmost position where the pattern matches.
type prefilter struct {
	automaton *ahocorasick.Automaton
	literals  int
}

// newPrefilter returns nil when the pattern does not qualify.
func newPrefilter(p *parser, root nodeID) *prefilter {
	if p.flags&(FlagIgnoreCase|FlagSticky) != 0 {
		return nil
	}
	var arms []nodeID
	id := root
	for p.nodes.at(id).op == opAlt {
		arms = append(arms, p.nodes.at(id).kid)
		id = p.nodes.at(id).kid2
	}
	arms = append(arms, id)
	if len(arms) < minPrefilterLiterals {
		return nil
	}

	literals := make([][]byte, 0, len(arms))
	for _, arm := range arms {
		n := p.nodes.at(arm)
		if !n.isLiteral() {
			return nil
		}
		units := []uint16{n.ch}
		if n.length > 0 {
			units = p.src.units[n.start : n.start+n.length]
		}
		literals = append(literals, encodeUTF16LE(nil, units))
	}
	for i, a := range literals {
		for j, b := range literals {
			if i != j && bytes.Contains(a, b) {
				return nil
			}
		}
	}

	builder := ahocorasick.NewBuilder()
	for _, lit := range literals {
		builder.AddPattern(lit)
	}
	automaton, err := builder.Build()
	if err != nil {
		return nil
	}
	return &prefilter{automaton: automaton, literals: len(literals)}
}

func encodeUTF16LE(dst []byte, units []uint16) []byte {
	for _, u := range units {
		dst = append(dst, byte(u), byte(u>>8))
	}
	return dst
}

// prefilterSearch holds the encoded input across the searches of one call.
type prefilterSearch struct {
	pf       *prefilter
	haystack []byte
}

func (r *Regexp) newPrefilterSearch(text []uint16) *prefilterSearch {
	if r.prefilter == nil {
		return nil
	}
	return &prefilterSearch{
		pf:       r.prefilter,
		haystack: encodeUTF16LE(make([]byte, 0, 2*len(text)), text),
	}
}

// next returns the first candidate position at or after at, or -1.
func (s *prefilterSearch) next(at int) int {
	for pos := 2 * at; pos < len(s.haystack); {
		m := s.pf.automaton.Find(s.haystack, pos)
		if m == nil {
			return -1
		}
		// A match straddling two code units.
		if m.Start%2 != 0 {
			pos = m.Start + 1
			continue
		}
		return m.Start / 2
	}
	return -1
}
