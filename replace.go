package jsre

import (
	"context"
	"math"
	"unicode/utf16"
)

func encodeString(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func decodeString(units []uint16) string {
	return string(utf16.Decode(units))
}

func (r *Regexp) replaceMatches(text []uint16) ([]*Match, error) {
	if r.flags&FlagGlobal != 0 {
		return r.FindAll(text, -1)
	}
	m, err := r.Exec(text)
	if err != nil || m == nil {
		return nil, err
	}
	return []*Match{m}, nil
}

// Replace returns a copy of text with the first match of r replaced, or
// every match if r is global. The replacement may refer to the match with
// $$, $&, $`, $' and $n or $nn.
func (r *Regexp) Replace(text, replacement []uint16) ([]uint16, error) {
	return r.ReplaceFunc(text, func(m *Match) []uint16 {
		return expand(nil, m, replacement)
	})
}

// ReplaceString is like [Regexp.Replace] for Go strings.
func (r *Regexp) ReplaceString(text, replacement string) (string, error) {
	res, err := r.Replace(encodeString(text), encodeString(replacement))
	if err != nil {
		return "", err
	}
	return decodeString(res), nil
}

// ReplaceFunc is like [Regexp.Replace] but the replacement for each match
// is the return value of repl.
func (r *Regexp) ReplaceFunc(text []uint16, repl func(*Match) []uint16) ([]uint16, error) {
	matches, err := r.replaceMatches(text)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return text, nil
	}
	res := make([]uint16, 0, len(text))
	last := 0
	for _, m := range matches {
		res = append(res, text[last:m.Start]...)
		res = append(res, repl(m)...)
		last = m.End
	}
	return append(res, text[last:]...), nil
}

// expand appends the replacement template with its $ references resolved
// against m.
func expand(dst []uint16, m *Match, template []uint16) []uint16 {
	groups := len(m.Groups) - 1
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 == len(template) {
			dst = append(dst, c)
			continue
		}
		switch next := template[i+1]; {
		case next == '$':
			dst = append(dst, '$')
			i++
		case next == '&':
			dst = append(dst, m.Data()...)
			i++
		case next == '`':
			dst = append(dst, m.LeftContext()...)
			i++
		case next == '\'':
			dst = append(dst, m.RightContext()...)
			i++
		case isDigit(next):
			n := int(next - '0')
			width := 1
			if i+2 < len(template) && isDigit(template[i+2]) {
				if nn := n*10 + int(template[i+2]-'0'); nn >= 1 && nn <= groups {
					n = nn
					width = 2
				}
			}
			if n < 1 || n > groups {
				dst = append(dst, '$')
				continue
			}
			dst = append(dst, m.Groups[n].Data()...)
			i += width
		default:
			dst = append(dst, '$')
		}
	}
	return dst
}

// Split slices text around the matches of r the way String.prototype.split
// does with a regular expression separator. Captures of the separator are
// spliced into the result, with nil for groups that did not participate.
// If limit >= 0, at most limit pieces are returned.
func (r *Regexp) Split(text []uint16, limit int) ([][]uint16, error) {
	lim := limit
	if lim < 0 {
		lim = math.MaxInt
	}
	res := [][]uint16{}
	if lim == 0 {
		return res, nil
	}

	ctx := context.Background()
	m := r.newMachine(text)
	size := len(text)
	if size == 0 {
		_, ok, err := r.search(ctx, m, 0, true, nil)
		if err != nil {
			return nil, err
		}
		if ok {
			return res, nil
		}
		return append(res, text), nil
	}

	p := 0
	for q := p; q != size; {
		_, ok, err := r.search(ctx, m, q, true, nil)
		if err != nil {
			return nil, err
		}
		if !ok || m.end == p {
			q++
			continue
		}
		res = append(res, text[p:q])
		if len(res) == lim {
			return res, nil
		}
		p = m.end
		for _, c := range m.caps {
			var piece []uint16
			if c.isSet() {
				piece = text[c.start : c.start+c.length]
			}
			res = append(res, piece)
			if len(res) == lim {
				return res, nil
			}
		}
		q = p
	}
	return append(res, text[p:]), nil
}
