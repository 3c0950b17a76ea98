// Package starlarkre exposes the jsre engine to Starlark scripts.
//
// Strings cross the boundary as UTF-8 and are matched as UTF-16, so every
// offset a script sees is an index in UTF-16 code units. Captured
// substrings that split a surrogate pair are returned with the lone
// surrogate replaced by U+FFFD.
package starlarkre

import (
	"container/list"
	"errors"
	"fmt"
	"slices"
	"sync"
	"unicode/utf16"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/auvred/jsre"
)

// Size of the module's cache of compiled patterns.
const maxPatternCacheSize = 32

// Module is the jsre module value. Patterns compiled through it are kept
// in a small LRU cache keyed by source and flags. A module may be shared
// by concurrent Starlark threads.
type Module struct {
	members starlark.StringDict
	config  jsre.Config

	mu    sync.Mutex
	list  *list.List
	cache map[cacheKey]*list.Element
}

type cacheKey struct {
	pattern string
	flags   string
}

type cacheValue struct {
	pattern *Pattern
	key     cacheKey
}

// NewModule creates a module compiling patterns with the default limits.
func NewModule() *Module {
	return NewModuleConfig(jsre.DefaultConfig())
}

// NewModuleConfig creates a module compiling patterns with config.
func NewModuleConfig(config jsre.Config) *Module {
	return &Module{
		members: starlark.StringDict{
			"compile": starlark.NewBuiltin("compile", moduleCompile),
			"test":    starlark.NewBuiltin("test", moduleTest),
			"purge":   starlark.NewBuiltin("purge", modulePurge),
		},
		config: config,
		list:   list.New(),
		cache:  make(map[cacheKey]*list.Element),
	}
}

var (
	_ starlark.Value    = (*Module)(nil)
	_ starlark.HasAttrs = (*Module)(nil)
)

func (m *Module) Freeze()               { m.members.Freeze() }
func (m *Module) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", m.Type()) }
func (m *Module) String() string        { return "<module jsre>" }
func (m *Module) Truth() starlark.Bool  { return true }
func (m *Module) Type() string          { return "module" }

func (m *Module) Attr(name string) (starlark.Value, error) {
	if v, ok := m.members[name]; ok {
		if b, ok := v.(*starlark.Builtin); ok {
			return b.BindReceiver(m), nil
		}
		return v, nil
	}
	return nil, nil
}

func (m *Module) AttrNames() []string { return m.members.Keys() }

// compile returns the cached pattern for source and flags, compiling it
// on a miss. The least recently used entry is evicted when the cache is
// full.
func (m *Module) compile(source, flags string) (*Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cacheKey{source, flags}
	if e, ok := m.cache[key]; ok {
		m.list.MoveToFront(e)
		return e.Value.(*cacheValue).pattern, nil
	}

	f, err := jsre.ParseFlags(flags)
	if err != nil {
		return nil, err
	}
	re, err := jsre.CompileConfig(encode(source), f, m.config)
	if err != nil {
		return nil, err
	}

	if m.list.Len() >= maxPatternCacheSize {
		last := m.list.Back()
		delete(m.cache, last.Value.(*cacheValue).key)
		m.list.Remove(last)
	}
	p := &Pattern{re: re, source: source}
	m.cache[key] = m.list.PushFront(&cacheValue{pattern: p, key: key})
	return p, nil
}

func (m *Module) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list.Init()
	clear(m.cache)
}

// moduleCompile compiles a pattern with the given flags string, such as "gi".
func moduleCompile(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern, flags string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "flags?", &flags); err != nil {
		return nil, err
	}
	return b.Receiver().(*Module).compile(pattern, flags)
}

// moduleTest reports whether s contains a match of pattern.
func moduleTest(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern, s, flags string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "string", &s, "flags?", &flags); err != nil {
		return nil, err
	}
	p, err := b.Receiver().(*Module).compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	ok, err := p.re.Test(encode(s))
	if err != nil {
		return nil, err
	}
	return starlark.Bool(ok), nil
}

func modulePurge(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	b.Receiver().(*Module).purge()
	return starlark.None, nil
}

func encode(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func decode(units []uint16) starlark.Value {
	if units == nil {
		return starlark.None
	}
	return starlark.String(utf16.Decode(units))
}

// Pattern is a compiled regular expression as a Starlark value.
type Pattern struct {
	re     *jsre.Regexp
	source string
}

var (
	_ starlark.Value      = (*Pattern)(nil)
	_ starlark.HasAttrs   = (*Pattern)(nil)
	_ starlark.Comparable = (*Pattern)(nil)
)

func (p *Pattern) String() string {
	return "jsre.compile(" + syntax.Quote(p.source, false) + ", " + syntax.Quote(p.re.Flags().String(), false) + ")"
}

func (p *Pattern) Type() string          { return "pattern" }
func (p *Pattern) Freeze()               {}
func (p *Pattern) Truth() starlark.Bool  { return true }
func (p *Pattern) Hash() (uint32, error) { return starlark.String(p.re.String()).Hash() }

var patternMethods = map[string]*starlark.Builtin{
	"test":     starlark.NewBuiltin("test", patternTest),
	"exec":     starlark.NewBuiltin("exec", patternExec),
	"find_all": starlark.NewBuiltin("find_all", patternFindAll),
	"replace":  starlark.NewBuiltin("replace", patternReplace),
	"split":    starlark.NewBuiltin("split", patternSplit),
}

// The JavaScript name of the g flag is a reserved word in Starlark, so
// global patterns are recognized by their flags string.
var patternMembers = map[string]func(p *Pattern) starlark.Value{
	"source":      func(p *Pattern) starlark.Value { return starlark.String(p.source) },
	"flags":       func(p *Pattern) starlark.Value { return starlark.String(p.re.Flags().String()) },
	"groups":      func(p *Pattern) starlark.Value { return starlark.MakeInt(p.re.NumGroups()) },
	"ignore_case": func(p *Pattern) starlark.Value { return p.hasFlag(jsre.FlagIgnoreCase) },
	"multiline":   func(p *Pattern) starlark.Value { return p.hasFlag(jsre.FlagMultiline) },
	"sticky":      func(p *Pattern) starlark.Value { return p.hasFlag(jsre.FlagSticky) },
}

func (p *Pattern) hasFlag(f jsre.Flag) starlark.Bool {
	return p.re.Flags()&f != 0
}

func (p *Pattern) Attr(name string) (starlark.Value, error) {
	if o, ok := patternMethods[name]; ok {
		return o.BindReceiver(p), nil
	}
	if o, ok := patternMembers[name]; ok {
		return o(p), nil
	}
	return nil, nil
}

func (p *Pattern) AttrNames() []string {
	names := make([]string, 0, len(patternMethods)+len(patternMembers))
	for name := range patternMethods {
		names = append(names, name)
	}
	for name := range patternMembers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (p *Pattern) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	o := y.(*Pattern)
	eq := p.source == o.source && p.re.Flags() == o.re.Flags()
	switch op {
	case syntax.EQL:
		return eq, nil
	case syntax.NEQ:
		return !eq, nil
	default:
		return false, fmt.Errorf("%s %s %s not implemented", p.Type(), op, o.Type())
	}
}

func patternTest(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "string", &s); err != nil {
		return nil, err
	}
	ok, err := b.Receiver().(*Pattern).re.Test(encode(s))
	if err != nil {
		return nil, err
	}
	return starlark.Bool(ok), nil
}

// patternExec returns the first match at or after pos, or None. Sticky
// patterns match only at pos.
func patternExec(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		s   string
		pos = 0
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "string", &s, "pos?", &pos); err != nil {
		return nil, err
	}
	m, err := b.Receiver().(*Pattern).re.Execute(encode(s), pos, jsre.ModeExec)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return starlark.None, nil
	}
	return &Match{m: m}, nil
}

func patternFindAll(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "string", &s); err != nil {
		return nil, err
	}
	matches, err := b.Receiver().(*Pattern).re.FindAll(encode(s), -1)
	if err != nil {
		return nil, err
	}
	res := make([]starlark.Value, len(matches))
	for i, m := range matches {
		res[i] = &Match{m: m}
	}
	return starlark.NewList(res), nil
}

// patternReplace replaces the first match, or every match of a global
// pattern. repl is either a template string with $ references or a
// function called with each match that returns the replacement.
func patternReplace(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		s    string
		repl starlark.Value
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "string", &s, "repl", &repl); err != nil {
		return nil, err
	}
	p := b.Receiver().(*Pattern)

	switch t := repl.(type) {
	case starlark.String:
		res, err := p.re.Replace(encode(s), encode(string(t)))
		if err != nil {
			return nil, err
		}
		return decode(res), nil
	case starlark.Callable:
		var callErr error
		res, err := p.re.ReplaceFunc(encode(s), func(m *jsre.Match) []uint16 {
			if callErr != nil {
				return nil
			}
			v, err := starlark.Call(thread, t, starlark.Tuple{&Match{m: m}}, nil)
			if err != nil {
				callErr = err
				return nil
			}
			str, ok := v.(starlark.String)
			if !ok {
				callErr = fmt.Errorf("%s: repl returned %s, want str", b.Name(), v.Type())
				return nil
			}
			return encode(string(str))
		})
		if err != nil {
			return nil, err
		}
		if callErr != nil {
			return nil, callErr
		}
		return decode(res), nil
	default:
		return nil, fmt.Errorf("%s: got %s, want str or callable", b.Name(), repl.Type())
	}
}

// patternSplit splits s around the matches. Captures of the separator
// are included, with None for groups that did not participate.
func patternSplit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		s     string
		limit = -1
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "string", &s, "limit?", &limit); err != nil {
		return nil, err
	}
	pieces, err := b.Receiver().(*Pattern).re.Split(encode(s), limit)
	if err != nil {
		return nil, err
	}
	res := make([]starlark.Value, len(pieces))
	for i, piece := range pieces {
		res[i] = decode(piece)
	}
	return starlark.NewList(res), nil
}

// Match is the result of a successful match.
type Match struct {
	m *jsre.Match
}

var (
	_ starlark.Value    = (*Match)(nil)
	_ starlark.HasAttrs = (*Match)(nil)
	_ starlark.Mapping  = (*Match)(nil)
)

func (m *Match) String() string {
	return fmt.Sprintf("<jsre.match span=(%d, %d) match=%s>", m.m.Start, m.m.End, decode(m.m.Data()))
}

func (m *Match) Type() string          { return "match" }
func (m *Match) Freeze()               {}
func (m *Match) Truth() starlark.Bool  { return true }
func (m *Match) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", m.Type()) }

var matchMethods = map[string]*starlark.Builtin{
	"group": starlark.NewBuiltin("group", matchGroup),
}

var matchMembers = map[string]func(m *Match) starlark.Value{
	"start": func(m *Match) starlark.Value { return starlark.MakeInt(m.m.Start) },
	"end":   func(m *Match) starlark.Value { return starlark.MakeInt(m.m.End) },
	"groups": func(m *Match) starlark.Value {
		res := make(starlark.Tuple, len(m.m.Groups))
		for i, g := range m.m.Groups {
			res[i] = decode(g.Data())
		}
		return res
	},
	"input":         func(m *Match) starlark.Value { return decode(m.m.Input()) },
	"left_context":  func(m *Match) starlark.Value { return decode(m.m.LeftContext()) },
	"right_context": func(m *Match) starlark.Value { return decode(m.m.RightContext()) },
}

func (m *Match) Attr(name string) (starlark.Value, error) {
	if o, ok := matchMethods[name]; ok {
		return o.BindReceiver(m), nil
	}
	if o, ok := matchMembers[name]; ok {
		return o(m), nil
	}
	return nil, nil
}

func (m *Match) AttrNames() []string {
	names := make([]string, 0, len(matchMethods)+len(matchMembers))
	for name := range matchMethods {
		names = append(names, name)
	}
	for name := range matchMembers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get is m.group(v).
func (m *Match) Get(v starlark.Value) (starlark.Value, bool, error) {
	g, err := m.group(v)
	if err != nil {
		return nil, false, err
	}
	return g, true, nil
}

func (m *Match) group(v starlark.Value) (starlark.Value, error) {
	i, err := starlark.AsInt32(v)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(m.m.Groups) {
		return nil, errors.New("no such group")
	}
	return decode(m.m.Groups[i].Data()), nil
}

func matchGroup(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n starlark.Value = starlark.MakeInt(0)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
		return nil, err
	}
	return b.Receiver().(*Match).group(n)
}
