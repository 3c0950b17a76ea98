package jsre

import "context"

// Mode selects how much of a match Execute reports.
type Mode uint8

const (
	// ModeTest reports only the span of the whole match.
	ModeTest Mode = iota
	// ModeExec reports the span of every capturing group.
	ModeExec
)

// search finds the first position at or after start where the program
// matches and returns it. The machine holds the captures afterwards.
func (r *Regexp) search(ctx context.Context, m *machine, start int, sticky bool, pf *prefilterSearch) (int, bool, error) {
	text := m.input
	if start < 0 || start > len(text) {
		return 0, false, nil
	}
	m.pops = 0
	if sticky || r.flags&FlagSticky != 0 {
		ok, err := m.run(start)
		return start, ok, err
	}

	done := ctx.Done()
	first := opcode(r.program[0])
	for i := start; i <= len(text); i++ {
		if done != nil {
			select {
			case <-done:
				return 0, false, ctx.Err()
			default:
			}
		}
		if pf != nil {
			if i = pf.next(i); i < 0 {
				return 0, false, nil
			}
		} else if first.isSimple() {
			if _, _, ok := m.step(first, 0, i); !ok {
				continue
			}
		}
		ok, err := m.run(i)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// Execute applies r to text starting the search at start, an index in
// UTF-16 code units. Sticky patterns match only at start. It returns nil
// if there is no match or start is out of range.
func (r *Regexp) Execute(text []uint16, start int, mode Mode) (*Match, error) {
	return r.execute(context.Background(), text, start, false, mode)
}

func (r *Regexp) execute(ctx context.Context, text []uint16, start int, sticky bool, mode Mode) (*Match, error) {
	m := r.newMachine(text)
	pos, ok, err := r.search(ctx, m, start, sticky, r.newPrefilterSearch(text))
	if err != nil || !ok {
		return nil, err
	}
	return newMatch(m, pos, mode), nil
}

// Exec applies r to text and returns the first match with all of its
// groups. If no match is found, it returns nil.
func (r *Regexp) Exec(text []uint16) (*Match, error) {
	return r.execute(context.Background(), text, 0, false, ModeExec)
}

// ExecContext is like [Regexp.Exec] but starts at start and stops with
// ctx.Err() when ctx is done. Cancellation is checked between start
// positions.
func (r *Regexp) ExecContext(ctx context.Context, text []uint16, start int) (*Match, error) {
	return r.execute(ctx, text, start, false, ModeExec)
}

// ExecSticky applies r to text requiring the match to start exactly at
// pos, whatever the flags of r.
//
// This is the primitive behind String.prototype.split, which matches its
// separator with sticky semantics at each position without compiling a
// new pattern.
func (r *Regexp) ExecSticky(text []uint16, pos int) (*Match, error) {
	return r.execute(context.Background(), text, pos, true, ModeExec)
}

// Test reports whether text contains a match of r.
func (r *Regexp) Test(text []uint16) (bool, error) {
	m, err := r.execute(context.Background(), text, 0, false, ModeTest)
	return m != nil, err
}

// TestString is like [Regexp.Test] for a Go string.
func (r *Regexp) TestString(s string) (bool, error) {
	return r.Test(encodeString(s))
}

// FindNextMatch searches for the next match of r in the same input as a
// previously returned match.
//
// The search begins at match.End. If the previous match was zero-length
// (Start == End), the search position is advanced by one code unit before
// matching again to avoid returning the same empty match repeatedly.
//
// If match is nil, or if no further match is found, FindNextMatch returns nil.
func (r *Regexp) FindNextMatch(match *Match) (*Match, error) {
	if match == nil {
		return nil, nil
	}
	next := match.End
	if match.Start == match.End {
		next++
	}
	return r.execute(context.Background(), match.input, next, false, ModeExec)
}

// FindAll returns successive matches of r in text, as a global pattern
// iterates them. If n >= 0, at most n matches are returned. A zero-width
// match advances the search by one code unit.
func (r *Regexp) FindAll(text []uint16, n int) ([]*Match, error) {
	return r.FindAllContext(context.Background(), text, n)
}

// FindAllContext is like [Regexp.FindAll] but stops with ctx.Err() when
// ctx is done.
func (r *Regexp) FindAllContext(ctx context.Context, text []uint16, n int) ([]*Match, error) {
	m := r.newMachine(text)
	pf := r.newPrefilterSearch(text)
	var res []*Match
	for last := 0; last <= len(text) && (n < 0 || len(res) < n); {
		pos, ok, err := r.search(ctx, m, last, false, pf)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		match := newMatch(m, pos, ModeExec)
		res = append(res, match)
		last = match.End
		if match.Start == match.End {
			last++
		}
	}
	return res, nil
}
