// Package jsre is a bytecode-compiled, backtracking implementation of
// ECMAScript regular expressions operating on UTF-16 code units.
package jsre

// Flag is a bitmask of RegExp options.
// The zero value corresponds to /pattern/ with no flags.
// Combine flags with bitwise OR, e.g. FlagIgnoreCase|FlagMultiline.
type Flag uint8

const (
	// Iterate over all matches ("g" flag).
	FlagGlobal Flag = 1 << iota

	// Case-insensitive matching ("i" flag).
	FlagIgnoreCase

	// "^" and "$" match line boundaries ("m" flag).
	FlagMultiline

	// Match only at the start position ("y" flag).
	FlagSticky

	flagAll = FlagGlobal | FlagIgnoreCase | FlagMultiline | FlagSticky
)

var flagLetters = [...]struct {
	flag   Flag
	letter byte
}{
	{FlagGlobal, 'g'},
	{FlagIgnoreCase, 'i'},
	{FlagMultiline, 'm'},
	{FlagSticky, 'y'},
}

// ParseFlags converts the textual flag set of a regular expression literal
// (e.g. "gi") into a Flag. Unknown and repeated letters are syntax errors.
func ParseFlags(s string) (Flag, error) {
	var flags Flag
	for i, r := range s {
		var f Flag
		for _, l := range flagLetters {
			if rune(l.letter) == r {
				f = l.flag
				break
			}
		}
		if f == 0 {
			return 0, newSyntaxError("invalid regular expression flag "+string(r), i)
		}
		if flags&f != 0 {
			return 0, newSyntaxError("repeated regular expression flag "+string(r), i)
		}
		flags |= f
	}
	return flags, nil
}

// String returns the flags in canonical "gimy" order.
func (f Flag) String() string {
	res := make([]byte, 0, len(flagLetters))
	for _, l := range flagLetters {
		if f&l.flag != 0 {
			res = append(res, l.letter)
		}
	}
	return string(res)
}
