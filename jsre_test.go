package jsre

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"unicode/utf16"

	"gotest.tools/v3/assert"
)

const nilMatch = "!SPECIAL_NIL_MATCH!"

func u16e(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

type testResult struct {
	error   string
	matched bool
	groups  [][]uint16
}

type runner struct {
	t    *testing.T
	flag Flag
}

const (
	g = FlagGlobal
	i = FlagIgnoreCase
	m = FlagMultiline
	y = FlagSticky
)

func newRunner(t *testing.T) runner {
	return runner{t: t}
}

func (r runner) f(f Flag) *runner {
	r.flag |= f
	return &r
}

func (r *runner) exec(pattern, source []uint16) *testResult {
	re, err := Compile(pattern, r.flag)
	if err != nil {
		return &testResult{error: "SyntaxError: " + err.Error()}
	}
	match, err := re.Exec(source)
	if err != nil {
		return &testResult{error: err.Error()}
	}
	if match == nil {
		return &testResult{}
	}
	res := &testResult{
		matched: true,
		groups:  make([][]uint16, len(match.Groups)-1),
	}
	for i, g := range match.Groups[1:] {
		res.groups[i] = g.Data()
	}
	return res
}

// An unset group (nil) differs from a group that matched the empty string.
func groupEqual(a, b []uint16) bool {
	return (a == nil) == (b == nil) && slices.Equal(a, b)
}

func formatTestResult(res *testResult) string {
	if res.error != "" {
		return res.error
	}
	if !res.matched {
		return "<not matched>"
	}
	var out strings.Builder
	out.WriteByte('[')
	for i, g := range res.groups {
		if g == nil {
			out.WriteString("undefined")
		} else {
			fmt.Fprintf(&out, "%q", decodeString(g))
		}
		if i != len(res.groups)-1 {
			out.WriteString(", ")
		}
	}
	out.WriteByte(']')
	return out.String()
}

func (r *runner) testCase(pattern, source []uint16, expected *testResult) {
	r.t.Run("", func(t *testing.T) {
		t.Parallel()
		t.Logf("new RegExp(%q, %q).exec(%q)\n", decodeString(pattern), r.flag.String(), decodeString(source))

		actual := r.exec(pattern, source)
		valid := actual.error == expected.error && actual.matched == expected.matched
		if valid && expected.matched {
			valid = slices.EqualFunc(expected.groups, actual.groups, groupEqual)
		}
		if !valid {
			t.Fatalf(`Invalid result:
  Expected:  %v
  Actual:    %v
`, formatTestResult(expected), formatTestResult(actual))
		}
	})
}

// Match
func (r *runner) m(pattern, source string, expectedGroups ...string) {
	expected := make([][]uint16, len(expectedGroups))
	for i, c := range expectedGroups {
		if c != nilMatch {
			expected[i] = u16e(c)
		}
	}
	r.m16(u16e(pattern), u16e(source), expected...)
}

func (r *runner) m16(pattern, source []uint16, expectedGroups ...[]uint16) {
	if expectedGroups == nil {
		expectedGroups = [][]uint16{}
	}
	r.testCase(pattern, source, &testResult{matched: true, groups: expectedGroups})
}

// Not Match
func (r *runner) n(pattern, source string) {
	r.n16(u16e(pattern), u16e(source))
}

func (r *runner) n16(pattern, source []uint16) {
	r.testCase(pattern, source, &testResult{})
}

// Syntax Error
func (r *runner) se(pattern string) {
	r.sem(pattern, "")
}

// Syntax Error with a message
func (r *runner) sem(pattern, msg string) {
	r.t.Run("", func(t *testing.T) {
		t.Parallel()
		_, err := Compile(u16e(pattern), r.flag)
		if err == nil {
			t.Fatalf("Expected SyntaxError: new RegExp(%q, %q)", pattern, r.flag.String())
		}
		var syntaxErr SyntaxError
		assert.Assert(t, errors.As(err, &syntaxErr), "unexpected error type %T", err)
		assert.ErrorContains(t, err, msg)
	})
}

func TestHelperFunctions(t *testing.T) {
	assert.Equal(t, isHexDigit('0'-1), false)
	assert.Equal(t, isHexDigit('0'), true)
	assert.Equal(t, isHexDigit('9'), true)
	assert.Equal(t, isHexDigit('9'+1), false)
	assert.Equal(t, isHexDigit('a'-1), false)
	assert.Equal(t, isHexDigit('f'), true)
	assert.Equal(t, isHexDigit('f'+1), false)
	assert.Equal(t, isHexDigit('A'), true)
	assert.Equal(t, isHexDigit('F'+1), false)

	assert.Equal(t, isWordChar('0'-1), false)
	assert.Equal(t, isWordChar('0'), true)
	assert.Equal(t, isWordChar('9'+1), false)
	assert.Equal(t, isWordChar('a'-1), false)
	assert.Equal(t, isWordChar('z'), true)
	assert.Equal(t, isWordChar('z'+1), false)
	assert.Equal(t, isWordChar('A'-1), false)
	assert.Equal(t, isWordChar('Z'), true)
	assert.Equal(t, isWordChar('_'), true)
	assert.Equal(t, isWordChar('_'+1), false)
	assert.Equal(t, isWordChar(0x17F), false)

	assert.Equal(t, isOctalDigit('7'), true)
	assert.Equal(t, isOctalDigit('8'), false)
	assert.Equal(t, isOctalDigit('0'-1), false)

	for i, c := range "0123456789abcdef" {
		assert.Equal(t, parseHexDigit(uint16(c)), uint16(i))
	}
	for i, c := range "ABCDEF" {
		assert.Equal(t, parseHexDigit(uint16(c)), uint16(10+i))
	}

	assert.Equal(t, isLineTerminator('\n'), true)
	assert.Equal(t, isLineTerminator('\r'), true)
	assert.Equal(t, isLineTerminator(0x2028), true)
	assert.Equal(t, isLineTerminator(0x2029), true)
	assert.Equal(t, isLineTerminator(0x85), false)
}

func TestBasicQuantifiers(t *testing.T) {
	r := newRunner(t)

	r.m("...", "foo")
	r.m("f.o", "foo")
	r.m("foo", "foo")
	r.n("bar", "foo")

	r.n(".", "\n")
	r.n(".", "\r")
	r.n(".", "\u2028")
	r.n(".", "\u2029")
	r.m(".", "\u0085")

	r.f(i).m("a", "A")
	r.f(i).m("A", "a")
	r.f(i).m("a", "a")
	r.f(i).m("A", "A")
	r.f(i).m("(ð)", "Ð", "Ð")
	r.f(i).m("(Ð)", "ð", "ð")
	r.n("(ð)", "Ð")
	r.n("(Ð)", "ð")
	r.f(i).m("(ｙ)", "Ｙ", "Ｙ")
	r.f(i).m("(Ｙ)", "ｙ", "ｙ")
	r.n("(ｙ)", "Ｙ")

	// Ohm sign upper-cases to itself, omega letters to capital omega.
	r.f(i).n("Ω", "Ω")
	r.f(i).n("Ω", "ω")
	r.f(i).m("(ω)", "Ω", "Ω")
	// A non-ASCII unit never folds into ASCII.
	r.f(i).n("s", "\u017f")
	r.f(i).n("\u017f", "S")
	r.f(i).n("k", "\u212a")

	r.m("(.)", "§", "§")

	r.m("(foo|bar)", "foo", "foo")
	r.m("(foo)|(bar)", "foo", "foo", nilMatch)
	r.m("(foo)|(bar)", "bar", nilMatch, "bar")
	r.m("((foo)|(bar))", "foo", "foo", "foo", nilMatch)

	r.m("(a|)", "a", "a")
	r.m("(a||)", "a", "a")
	r.m("(|a)", "a", "")
	r.m("(|a|)", "a", "")
	r.m("(||a)", "a", "")

	r.m("(foo)", "foo", "foo")
	r.m("(foo)bar", "foobar", "foo")
	r.m("foo(bar)", "foobar", "bar")
	r.m("(foo)(bar)", "foobar", "foo", "bar")

	r.m("a+", "a")
	r.m("a+", "aaa")
	r.m("(a)+", "aaa", "a")
	r.m("(a|b+)", "abb", "a")
	r.m("(a|b+)", "bbb", "bbb")
	r.m("(a|b)+", "aba", "a")
	r.m("(a|b)+", "bab", "b")
	r.m("(a+)*", "a", "a")
	r.m("(a+)*", "b", nilMatch)
	r.m("(a*)+", "a", "a")
	r.m("(a*)+", "b", "")

	r.m("a*", "a")
	r.m("a*", "aa")
	r.m("(a)*", "aa", "a")
	r.m("(a*)", "aa", "aa")
	r.m("(a*)(a)", "aaa", "aa", "a")
	r.m("(a|b)*", "aba", "a")
	r.m("(a|b)*a", "aba", "b")
	r.m("(aa|aabaac|ba|b|c)*", "aabaac", "ba")
	r.m("(a*)*", "a", "a")

	r.m("(a?)(a)", "a", "", "a")
	r.m("a?b", "b")
	r.m("(a?)b", "b", "")
	r.m("(a)?b", "b", nilMatch)
	r.m("a?b", "ab")
	r.m("(a)?b", "ab", "a")
	r.m("(a?)b", "ab", "a")
	r.m("(a|b)?b", "ab", "a")
	r.m("(a|b)?b", "bb", "b")
	r.m("(a?)?", "a", "a")

	r.m("(a{0,2})", "a", "a")
	r.m("(a{0,2})(b?)", "ae", "a", "")
	r.m("(a{0,2})(b{0,2})", "ae", "a", "")
	r.m("(a{0,2})(b{0,2})", "be", "", "b")
	r.m("(a{0,1})", "aa", "a")
	r.m("(a{0,2})", "aa", "aa")
	r.m("(a{0,2})", "aaa", "aa")
	r.m("(a{000,002})", "aaa", "aa")
	r.m("((a|b){0,3})", "ababa", "aba", "a")

	r.m("(a{0,2147483647})", "a", "a")
	r.m("(a{0,9223372036854775808})", "a", "a")
	r.m("(a{0,92233720368547758089999999})", "a", "a")

	r.m("(a{0,99999}){0,99999}", "a", "a")
	r.m("(a{0,99999})*", "a", "a")
	r.m("(a*){0,99999}", "a", "a")

	r.m("(a{1,2})", "a", "a")
	r.m("(a{1,2})", "aa", "aa")
	r.m("(a{1,2})", "aaa", "aa")
	r.m("(a{001,002})", "aaa", "aa")
	r.m("(a{1,2})(a)", "aa", "a", "a")
	r.m("(a{1,2})(a?)", "aa", "aa", "")
	r.m("((a|b){1,3})", "ababa", "aba", "a")

	r.m("(a{1,99999}){0,99999}", "a", "a")
	r.m("(a{1,99999})*", "a", "a")
	r.m("(a*){1,99999}", "a", "a")
	r.m("(a{1,99999}){1,99999}", "aa", "aa")
	r.m("(a{1,2}){1,2}", "aa", "aa")
	r.m("((a{1,1}){1,2})", "aa", "aa", "a")

	r.m("(a{2,3})", "aa", "aa")
	r.m("(a{2,3})", "aaa", "aaa")
	r.m("(a{2,3})", "aaaa", "aaa")
	r.m("(a{2,4})", "aaaa", "aaaa")
	r.m("(a{2,4})(a)", "aaaa", "aaa", "a")
	r.m("(a{2,4})(a{1,2})", "aaaa", "aaa", "a")
	r.m("(a{2,4})(a{2,2})", "aaaa", "aa", "aa")
	r.m("(a{002,003})", "aaaa", "aaa")
	r.m("((foo){2,3})", "foofoofoofoo", "foofoofoo", "foo")

	r.m("(a*){2,99999}", "a", "")
	r.m("(a{2,99999})*", "a", nilMatch)

	r.m("(0){0}", "a", nilMatch)
	r.m("(0){0}", "0", nilMatch)
	r.m("(a)|(0){0}", "a", "a", nilMatch)
	r.m("(a)|(0){0}", "0", nilMatch, nilMatch)
	r.m("(0){0}|(a)", "a", nilMatch, nilMatch)

	r.m("((a+)?(b+)?(c))*", "a", nilMatch, nilMatch, nilMatch, nilMatch)
	r.m("((a+)?(b+)?(c))*", "ac", "ac", "a", nilMatch, "c")
	r.m("(z)((a+)?(b+)?(c))*", "zaacbbb", "z", "aac", "aa", nilMatch, "c")
	r.m("(z)((a+)?(b+)?(c))*", "zaacbbbc", "z", "bbbc", nilMatch, "bbb", "c")
	r.m("((a)|(b)){2}", "ab", "b", nilMatch, "b")
	r.m("((a)|(b)){2,3}", "aab", "b", nilMatch, "b")
	r.m("((a)|(b)){1,2}", "ab", "b", nilMatch, "b")
	r.m("((a)|(b)){1,2}?b$", "abb", "b", nilMatch, "b")

	r.m("(a??)", "a", "")
	r.m("(a??)(a)", "a", "", "a")
	r.m("(a??)(a)", "aa", "", "a")
	r.m("(a??)*", "a", "a")
	r.m("(a??)*(a)", "a", nilMatch, "a")
	r.m("(a??)*(a)", "aa", "a", "a")

	r.m("(a*?)", "a", "")
	r.m("(a*?)*", "a", "a")
	r.m("(a*?)*", "aa", "a")
	r.m("(a*?)*?", "a", nilMatch)
	r.m("(b+)*?", "a", nilMatch)
	r.m("(b*?)+", "a", "")

	r.m("(a{0,5}?)", "a", "")
	r.m("(a{0,5}?)*", "a", "a")
	r.m("(a{0,5}?)*", "aa", "a")
	r.m("(a{0,5}?)*?", "a", nilMatch)
	r.m("(b{0,5}?)+", "a", "")

	r.m("(a*?){0,5}", "a", "a")
	r.m("(a*?){0,5}", "aa", "a")
	r.m("(a*?){0,5}?", "a", nilMatch)
	r.m("(b+){0,5}?", "a", nilMatch)

	r.m("(a+?)", "a", "a")
	r.m("(a+?)", "aa", "a")
	r.m("(a+?)*", "aa", "a")
	r.m("((a+?)*)", "aa", "aa", "a")
	r.m("((a+?)+)", "aa", "aa", "a")

	r.m("(a{1,5}?)", "aa", "a")
	r.m("((a{1,5}?)*)", "aa", "aa", "a")
	r.m("((a{1,5}?)*?)", "aa", "", nilMatch)
	r.m("((a{1,5}?)+?)", "aa", "a", "a")

	r.m("(a{2,5}?)", "aaa", "aa")
	r.m("(a{2,5}?)*", "aaa", "aa")
	r.m("((a{2,5}?)*)", "aaaa", "aaaa", "aa")
	r.m("((a{2,5}?)*)", "aaaaa", "aaaa", "aa")

	r.m("(a{2,})", "aa", "aa")
	r.m("(a{2,})", "aaa", "aaa")
	r.n("(a{2,})", "a")

	r.m("a(b{2})", "abbb", "bb")

	r.sem("a{5,4}", "numbers out of order in {} quantifier")

	r.sem("{2}", "nothing to repeat")
	r.sem("{2,}", "nothing to repeat")
	r.sem("{2,3}", "nothing to repeat")

	r.sem("?", "nothing to repeat")
	r.sem("*", "nothing to repeat")
	r.sem("+", "nothing to repeat")
	r.sem(".*??", "nothing to repeat")
	r.sem(".+*", "nothing to repeat")
	r.sem(".*+", "nothing to repeat")
	r.sem("a{1}{2}", "nothing to repeat")

	r.sem(`(`, "unmatched parenthesis")
	r.sem(`(a`, "unmatched parenthesis")
	r.sem(`((a)`, "unmatched parenthesis")
	r.sem(`a)`, "unmatched parenthesis")
	r.sem(`)`, "unmatched parenthesis")
	r.sem(`(?`, "invalid group")
	r.sem(`(?a)`, "invalid group")
	r.sem(`(?<=a)`, "invalid group")
	r.sem(`(?<n>a)`, "invalid group")
}

func TestLegacySyntax(t *testing.T) {
	r := newRunner(t)

	r.m(`\0`, "\x00")
	r.m(`\01`, "\x01")
	r.m(`\07`, "\x07")
	r.m(`\08`, "\x008")
	r.m(`\09`, "\x009")
	r.m(`\1`, "\x01")
	r.m(`\3`, "\x03")
	r.m(`\18`, "\x018")
	r.m(`\1a`, "\x01a")
	r.m(`\11`, "\x09")
	r.m(`\37`, "\x1f")
	r.m(`\258`, "\x158")
	r.m(`\157`, "\x6f")
	r.m(`\377`, "\u00ff")
	r.m(`\400`, "\x200")
	r.m(`\48`, "\x048")
	r.m(`\611`, "\x311")
	r.m(`\8`, "8")
	r.m(`\9`, "9")
	r.m(`(a)\10`, "a\x08", "a")
	r.sem(`\1(`, "unmatched parenthesis")
	r.m(`\1\(`, "\x01(")
	r.m(`\1[(]`, "\x01(")
	r.m(`^\1[\](]$`, "\x01]")
	r.m(`(a)\1`, "aa", "a")
	r.m(`(a)\2`, "a\x02", "a")
	r.m(`(?:a)\1`, "a\x01")
	r.m(`[\01-\05]`, "\x01")
	r.m(`[\01-\05]`, "\x03")
	r.m(`[\01-\05]`, "\x05")
	r.n(`[\3-\05]`, "\x02")
	r.m(`[\3-\05]`, "\x05")
	r.sem(`[\37-\05]`, "invalid range in character class")
	r.m(`[\48]`, "\x04")
	r.m(`[\48]`, "8")
	r.m(`[\8]`, "8")

	r.m(`\c`, "\\c")
	r.m(`\c0`, "\\c0")
	r.m(`\c"`, "\\c\"")
	r.m(`\ca`, "\x01")
	r.m(`\cZ`, "\x1a")
	r.m(`[\c]`, "\\")
	r.m(`[\c]`, "c")
	r.se(`[\c-a]`)
	r.m(`[\c-e]`, "\\")
	r.m(`[\c-e]`, "c")
	r.m(`[\c-e]`, "d")
	r.n(`[\c-e]`, "f")
	r.se(`[e-\c]`)
	r.m(`[Z-\c]`, "[")
	r.m(`[Z-\c]`, "c")
	r.m(`[Z-\c]`, "\\")
	r.m(`[\ca]`, "\x01")
	r.m(`[\c0]`, "\x10")
	r.m(`[\c9]`, "\x19")
	r.m(`[\c_]`, "\x1f")

	r.m(`\_`, "_")
	r.m(`\a`, "a")
	r.m(`\e`, "e")
	r.m(`\x`, "x")
	r.m(`\x0`, "x0")
	r.m(`\xq`, "xq")
	r.m(`\x0q`, "x0q")
	r.m(`\xaa`, "\u00aa")

	r.m(`\u`, "u")
	r.m(`\u000`, "u000")
	r.m(`\u0001`, "\u0001")
	r.m(`^\u{1}$`, "u")
	r.m(`^\u{2}$`, "uu")
	r.m(`\u1000`, "\u1000")
	r.m(`\u10q0`, "u10q0")
	r.m(`[\u10q0-3]`, "u")
	r.m(`[\u10q0-3]`, "q")
	r.m(`[\u10q0-3]`, "2")
	r.m(`[r-\u10q0]`, "t")
	r.m(`[r-\u1000]`, "\u0999")

	r.m(`\k<a>`, "k<a>")
	r.m(`\p{ASCII}`, "p{ASCII}")

	r.m(`[\s-\d]`, " ")
	r.m(`[\s-\d]`, "0")
	r.m(`[\s-\d]`, "-")
	r.m(`[a-\d]`, "a")
	r.m(`[a-\d]`, "-")
	r.n(`[a-\d]`, "b")
	r.m(`[\s-a]`, "a")
	r.m(`[\-]`, "-")
	r.n(`[\-]`, "\\")

	r.m(`a{`, "a{")
	r.n(`a{`, "a}")
	r.m(`a{1`, "a{1")
	r.m(`a{,`, "a{,")
	r.m(`a{1,`, "a{1,")
	r.m(`a{1,a`, "a{1,a")
	r.m(`a{1,1`, "a{1,1")
	r.n(`a{1,1`, "a}1,1")
	r.m(`a{1,1a}`, "a{1,1a}")
	r.m(`{`, "{")
	r.m(`{1`, "{1")
	r.m(`{1,1a}`, "{1,1a}")
	r.m(`}`, "}")
	r.se(`{1,1}`)
	r.se(`{1,}`)
	r.se(`{1}`)

	r.m(`]`, "]")
	r.n(`]`, "[")
	r.m(`[ab]]`, "a]")

	r.f(i).m(`\p`, `\P`)
}

func TestBasicAssertions(t *testing.T) {
	r := newRunner(t)

	r.m("(a)", "ba", "a")
	r.m("(^a)", "a", "a")
	r.m("^(a)", "a", "a")
	r.n("^a", "ba")
	r.m("(a$)", "a", "a")
	r.m("(^a$)", "a", "a")
	r.n("^a", "b\na")
	r.f(m).m("^a", "a")
	r.f(m).m("^a", "b\na")
	r.f(m).m("^a", "b\ra")
	r.f(m).m("^a", "b\u2028a")
	r.f(m).m("^a", "b\u2029a")
	r.f(m).n("(.^a)", "b\na")
	r.n("a$", "a\nb")
	r.f(m).m("a$", "a")
	r.f(m).m("a$", "b\na\n")
	r.f(m).m("a$", "b\na\u2028")
	r.f(m).m("a$", "b\na\u2029")
	r.f(m).n("a$", "b\nab")
	r.f(m).n("(a$.)", "a\nb")

	r.m(`\ba`, "a")
	r.m(`\ba`, " a")
	r.m(`\ba`, "-a")
	r.m(`a\b`, "a ")
	r.m(`a\b`, "a.")
	r.f(i).m(`a\b`, "a\u017f")

	r.n(`\ba`, "0a")
	r.n(`\ba`, "9a")
	r.n(`\bb`, "ab")
	r.n(`\ba`, "Za")
	r.n(`\ba`, "_a")

	r.n(`\Ba`, " a")
	r.n(`a\B`, "a.")
	r.f(i).n(`a\B`, "a\u017f")

	r.m(`\Ba`, "0a")
	r.m(`\Bb`, "ab")
	r.m(`\Ba`, "_a")

	r.m(`(\ba)`, " a", "a")
	r.m(`(\b)a`, " a", "")
	r.m(`\B(a)`, "ba", "a")
	r.m(`c.\b(a)`, "c a", "a")
	r.n(`c.\b(a)`, "cba")
	r.m(`c.\B(a)`, "cba", "a")
	r.n(`c.\B(a)`, "c a")

	r.sem(`\b*`, "nothing to repeat")
	r.sem(`\B+`, "nothing to repeat")
	r.sem(`^*`, "nothing to repeat")
	r.sem(`a$?`, "nothing to repeat")
}

func TestZeroWidthAssertions(t *testing.T) {
	r := newRunner(t)

	r.m("((?=b))", "ab", "")
	r.m("(a(?=b))", "ab", "a")
	r.m("(a(?=(b)))", "ab", "a", "b")
	r.m("((a)(?=(b)))", "ab", "a", "a", "b")
	r.n("a(?=b)", "a")
	r.n("a(?=b)", "ac")
	r.m(`((?=ab))?a`, "ab", nilMatch)
	r.m(`((?=ab))*a`, "ab", nilMatch)
	r.m(`((?=ab)){0,2}a`, "ab", nilMatch)
	r.m(`((?=(ab)))?a`, "ab", nilMatch, nilMatch)
	r.m(`(?=(a+))a*b\1`, "baaabac", "a")
	r.m(`(?=(a+))`, "baaabac", "aaa")

	r.se(`(?=`)
	r.se(`(?=(abc)`)
	r.se(`(?!`)
	r.se(`(?!(abc)`)
	r.se(`(?=[b-a])`)

	r.m("(a(?!b))", "a", "a")
	r.m("(a(?!b))", "ac", "a")
	r.n("(a(?!b))", "ab")
	r.m("(a(?!b)|a)", "ab", "a")
	r.m("(a(?!(b))|a)", "ab", "a", nilMatch)
	r.m(`(?!a)|c`, "")
	r.m(`(.*?)a(?!(a+)b\2c)\2(.*)`, "baaabaac", "ba", nilMatch, "abaac")

	r.m(`a(?=a)+`, "aa")
	r.n(`a(?=a)+`, "ab")
	r.m(`(.(?=x)+)`, "a bx", "b")
	r.m(`.(?=x){100}`, "ax")
	r.m(`([a-b](?!0)*)`, "a0 b", "a")
	r.m(`([a-b](?!0)+)`, "a0 b", "b")
	r.m(`([a-b](?!0){2})`, "a0 b", "b")
}

func TestCharacterClass(t *testing.T) {
	r := newRunner(t)

	r.n("([a-c])", "`")
	r.m("([a-c])", "a", "a")
	r.m("([a-c])", "c", "c")
	r.n("([a-c])", "d")

	r.n(`[B-b]`, "A")
	r.m(`[B-b]`, "D")
	r.m(`[B-b]`, "`")
	r.n(`[B-b]`, "c")
	r.f(i).m(`[B-b]`, "A")
	r.f(i).m(`[B-b]`, "D")
	r.f(i).m(`[B-b]`, "`")
	r.f(i).m(`[B-b]`, "c")
	r.f(i).m(`[a-z]`, "Q")
	r.f(i).n(`[a-z]`, "\u212a")
	r.f(i).m(`[^a-z]`, "\u212a")
	r.f(i).n(`[^a-z]`, "Q")
	r.f(i).m(`[σ]`, "Σ")
	r.f(i).m(`[σ]`, "ς")

	r.sem(`[c-a]`, "invalid range in character class")
	r.sem(`[`, "unterminated character class")
	r.sem(`[^`, "unterminated character class")
	r.sem(`[a`, "unterminated character class")
	r.sem(`[a-`, "unterminated character class")
	r.sem(`[\`, "unterminated character class")

	r.m("([^a-c])", "`", "`")
	r.n("([^a-c])", "b")
	r.m("([^a-c])", "d", "d")

	r.n("([b-ce-f])", "a")
	r.m("([a-ce-f])", "a", "a")
	r.n("([a-ce-f])", "d")
	r.m("([a-ce-f])", "f", "f")

	r.m("([^a-ce-f])", "d", "d")
	r.n("([^a-ce-f])", "e")

	r.m("([abc]+)", "dacbd", "acb")
	r.n("([abc]+)", "dethd")

	r.n("[]", "a")
	r.n("[]", "")
	r.m("[^]", "a")
	r.m("[^]", "\n")
	r.m("b[^]", "cba")
	r.m("a[]|b", "ab")

	r.m("([-])", "-", "-")
	r.m("([--])", "-", "-")
	r.m("([---])", "-", "-")
	r.m("([----])", "-", "-")
	r.m("([a-])", "-", "-")
	r.m("([-a])", "a", "a")
	r.m(`[\w-]`, "-")
	r.m(`[+--]`, ",")
	r.m(`[+---]`, "-")

	r.n("[ă-ć]", "Ă")
	r.m("[ă-ć]", "Ą")
	r.m("[ă-ć]", "ć")
	r.n("[ă-ć]", "Ĉ")

	r.m(`[\d]`, "0")
	r.n(`[\d]`, "a")
	r.m(`[\da-c]`, "b")
	r.m(`[\da-c]`, "5")
	r.m(`[\d\w]`, "_")
	r.n(`[^\D\S]`, "5")
	r.m(`[^\D\s]`, "5")
	r.n(`[^\D\s]`, " ")
	r.m(`[\b]`, "\b")
	r.n(`[\b]`, "b")
	r.m(`[\B]`, "B")

	r.m(`[\u0061-\u0062]`, "b")
	r.m(`[\x41-\x43]+`, "ABC")
	r.m(`[\t\n]`, "\n")
	r.m(`[\uFFFF]`, "\uffff")
	r.m(`[^\uFFFF]`, "\ufffe")
}

func TestCharacterClassEscape(t *testing.T) {
	r := newRunner(t)

	r.n(`(\d)`, "/")
	r.m(`(\d)`, "0", "0")
	r.m(`(\d)`, "9", "9")
	r.n(`(\d)`, ":")
	r.n(`\d`, "٣")

	r.m(`(\D)`, ":", ":")
	r.n(`(\D)`, "5")

	r.m(`(\w+)`, "a_Z9", "a_Z9")
	r.n(`\w`, "é")
	r.m(`\W`, "é")

	r.m(`(\s)`, " ", " ")
	r.m(`(\s)`, "\t", "\t")
	r.m(`(\s\s)`, "\r\n", "\r\n")
	r.m(`(\s)`, "\u000b", "\u000b")
	r.m(`(\s)`, "\u000c", "\u000c")
	r.n(`(\s)`, "\u0085")
	r.m(`(\s)`, "\u00a0", "\u00a0")
	r.m(`(\s)`, "\u1680", "\u1680")
	r.m(`(\s)`, "\u2000", "\u2000")
	r.m(`(\s)`, "\u200a", "\u200a")
	r.n(`(\s)`, "\u200b")
	r.m(`(\s)`, "\u202f", "\u202f")
	r.m(`(\s)`, "\u205f", "\u205f")
	r.m(`(\s)`, "\u3000", "\u3000")
	r.m(`(\s)`, "\ufeff", "\ufeff")
	r.m(`(\s)`, "\u2028", "\u2028")
	r.m(`(\s)`, "\u2029", "\u2029")

	r.n(`(\S)`, " ")
	r.m(`(\S)`, "\u0085", "\u0085")
	r.n(`(\S)`, "\u3000")
	r.m(`(\S)`, "\u3001", "\u3001")
	r.n(`(\S)`, "\ufeff")
}

func TestCharacterEscape(t *testing.T) {
	r := newRunner(t)

	r.m(`(\r)`, "\r", "\r")
	r.m(`(\n)`, "\n", "\n")
	r.m(`(\t)`, "\t", "\t")
	r.m(`(\v)`, "\v", "\v")
	r.m(`(\f)`, "\f", "\f")

	r.m(`\cA`, "\u0001")
	r.n(`\cA`, "\u0000")
	r.m(`\cc`, "\u0003")

	r.m(`\x00`, "\u0000")
	r.m(`\x61`, "a")
	r.m(`\xFF`, "ÿ")
	r.f(i).m(`\x61`, "A")
	r.f(i).m(`\x41`, "a")

	r.m(`\u0061`, "a")
	r.m16(u16e(`\ud83d\udc31`), u16e("🐱"))

	for _, c := range `^$\/.*+?()[]{}|` {
		r.m(`\`+string(c), string(c))
	}
	r.sem(`a\`, "\\ at end of pattern")
}

func TestBackreference(t *testing.T) {
	r := newRunner(t)

	r.m(`(a)(\1)`, "aa", "a", "a")
	r.n(`(a)(\1)`, "ab")
	r.m(`(a)(\2)`, "aa", "a", "")
	r.m(`(a)(\3)(b)`, "ab", "a", "", "b")
	r.m(`((a)|(b))(\3)`, "ab", "a", "a", nilMatch, "")
	r.m(`(ab)(\1)`, "abab", "ab", "ab")
	r.n(`(ab)(\1)`, "aba")
	r.m(`\1(a)`, "a", "a")

	r.m(`(a+)(.)\1`, "aaba", "a", "b")
	r.f(i).m(`(.)\1`, "cC", "c")
	r.f(i).m(`(.)\1`, "Cc", "C")
	r.n(`(.)\1`, "cC")

	r.m(`(.*?)a(?!(a+)b\2c)(.*)`, "baaabaac", "ba", nilMatch, "abaac")
	r.m(`(a)|\1b`, "b", nilMatch)
	r.m(`(?:(a)|b)\1`, "b", nilMatch)
}

func TestSurrogates(t *testing.T) {
	r := newRunner(t)
	catH, catL := uint16(0xd83d), uint16(0xdc31)

	r.m16(u16e("(a..b)"), u16e(`a🐱b`), u16e(`a🐱b`))
	r.m16(u16e("a(.)(.)b"), u16e(`a🐱b`), []uint16{catH}, []uint16{catL})
	r.m16(u16e(`(.)(.)(\1)(\2)`), u16e("🐱🐱"), []uint16{catH}, []uint16{catL}, []uint16{catH}, []uint16{catL})
	r.m16(u16e(`\uDC31`), []uint16{catL})
	r.m16([]uint16{'[', catH, ']'}, []uint16{'x', catH})
	r.n16(u16e(`[\uD83D-\uDBFF]`), []uint16{catL})
	r.m16(u16e(`[^a]`), []uint16{catL})
}

func TestFlags(t *testing.T) {
	r := newRunner(t)

	r.f(g).m("a", "ba")
	r.f(y).n("a", "ba")
	r.f(y).m("(b)", "ba", "b")
	r.f(g|i|m|y).m("A$", "a\n")

	_, err := Compile(u16e("a"), Flag(1<<7))
	assert.ErrorContains(t, err, "invalid regular expression flags")

	f, err := ParseFlags("gimy")
	assert.NilError(t, err)
	assert.Equal(t, f, FlagGlobal|FlagIgnoreCase|FlagMultiline|FlagSticky)
	assert.Equal(t, f.String(), "gimy")
	assert.Equal(t, (FlagSticky | FlagGlobal).String(), "gy")

	_, err = ParseFlags("gg")
	assert.ErrorContains(t, err, "repeated regular expression flag g")
	_, err = ParseFlags("u")
	assert.ErrorContains(t, err, "invalid regular expression flag u")
	_, err = ParseFlags("gé")
	assert.ErrorContains(t, err, "invalid regular expression flag é at offset 1")
	_, err = ParseFlags("\U0001F431")
	assert.ErrorContains(t, err, "invalid regular expression flag \U0001F431 at offset 0")
}
