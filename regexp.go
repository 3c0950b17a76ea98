package jsre

import "slices"

// Regexp is a compiled regular expression.
// It is safe for concurrent use by multiple goroutines.
// All methods on Regexp do not mutate internal state.
type Regexp struct {
	source     []uint16
	flags      Flag
	program    []byte
	classes    []*charClass
	parenCount int
	prefilter  *prefilter
	config     Config
}

// Compile parses a regular expression pattern given as UTF-16 code units
// and returns a Regexp that can be applied against UTF-16 input.
//
// The pattern must be a valid ECMAScript (edition 5, with the legacy
// syntax of Annex B) regular expression.
func Compile(pattern []uint16, flags Flag) (*Regexp, error) {
	return CompileConfig(pattern, flags, DefaultConfig())
}

// CompileString is like [Compile] but takes the pattern as a Go string and
// the flags in their textual form, such as "gi".
func CompileString(pattern, flags string) (*Regexp, error) {
	f, err := ParseFlags(flags)
	if err != nil {
		return nil, err
	}
	return Compile(encodeString(pattern), f)
}

// CompileConfig is like [Compile] with explicit limits.
func CompileConfig(pattern []uint16, flags Flag, config Config) (*Regexp, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if flags&^flagAll != 0 {
		return nil, newSyntaxError("invalid regular expression flags", 0)
	}
	log := config.Log
	source := slices.Clone(pattern)

	p := newParser(source, flags, config.MaxTreeDepth)
	root, err := p.parse()
	if err != nil {
		log.Log("parse failed: %v", err)
		return nil, err
	}
	program, err := p.emit(root)
	if err != nil {
		log.Log("emit failed: %v", err)
		return nil, err
	}
	for _, cc := range p.classes {
		cc.convert(source)
	}

	re := &Regexp{
		source:     source,
		flags:      flags,
		program:    program,
		classes:    p.classes,
		parenCount: p.parenCount,
		config:     config,
	}
	if config.EnablePrefilter {
		re.prefilter = newPrefilter(p, root)
	}

	if log.Enabled() {
		log.Section("Compile " + re.String())
		log.Log("program: %d bytes (estimated %d)", len(program), p.progLength)
		log.Log("tree depth: %d, nodes: %d", p.treeDepth, len(p.nodes.nodes))
		log.Log("groups: %d, classes: %d", p.parenCount, len(p.classes))
		if re.prefilter != nil {
			log.Log("prefilter: aho-corasick over %d literals", re.prefilter.literals)
		} else {
			log.Log("prefilter: first op %s", opcode(program[0]))
		}
		log.Section("Program")
		log.Log("\n%s", disassemble(program))
	}
	return re, nil
}

// MustCompile is like [Compile] but panics if the expression cannot be parsed.
// It simplifies safe initialization of global variables containing regular
// expressions.
func MustCompile(pattern []uint16, flags Flag) *Regexp {
	re, err := Compile(pattern, flags)
	if err != nil {
		panic("jsre: MustCompile: " + err.Error())
	}
	return re
}

// MustCompileString is like [CompileString] but panics if the expression
// cannot be parsed.
func MustCompileString(pattern, flags string) *Regexp {
	re, err := CompileString(pattern, flags)
	if err != nil {
		panic("jsre: MustCompileString(" + quote(pattern) + "): " + err.Error())
	}
	return re
}

func quote(s string) string {
	return "`" + s + "`"
}

// Source returns the pattern text. The returned slice must not be modified.
func (r *Regexp) Source() []uint16 {
	return r.source
}

// Flags returns the flags the pattern was compiled with.
func (r *Regexp) Flags() Flag {
	return r.flags
}

// NumGroups returns the number of capturing groups in the pattern.
func (r *Regexp) NumGroups() int {
	return r.parenCount
}

// String returns the literal form of the pattern, /source/flags.
func (r *Regexp) String() string {
	source := decodeString(r.source)
	if source == "" {
		source = "(?:)"
	}
	return "/" + source + "/" + r.flags.String()
}

// Disassemble returns a listing of the compiled program.
func (r *Regexp) Disassemble() string {
	return disassemble(r.program)
}
