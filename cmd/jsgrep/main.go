// Command jsgrep prints the lines of its input that match a JavaScript
// regular expression.
//
// Usage:
//
//	jsgrep [-i] [-m] [-c] [-config file.yaml] [-v] pattern [file...]
//
// With no files it reads standard input. The exit status is 0 if a line
// matched, 1 if none did and 2 on error.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"unicode/utf16"

	"github.com/auvred/jsre"
)

const maxLineSize = 1 << 20

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	ignoreCase bool
	multiline  bool
	count      bool
	verbose    bool
	configPath string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jsgrep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.BoolVar(&opts.ignoreCase, "i", false, "ignore case")
	fs.BoolVar(&opts.multiline, "m", false, "^ and $ match at line terminators")
	fs.BoolVar(&opts.count, "c", false, "print only the number of matching lines")
	fs.BoolVar(&opts.verbose, "v", false, "log the compiled program to stderr")
	fs.StringVar(&opts.configPath, "config", "", "YAML file with engine limits")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: jsgrep [-i] [-m] [-c] [-config file.yaml] [-v] pattern [file...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	re, err := compile(fs.Arg(0), opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "jsgrep: %v\n", err)
		return 2
	}

	paths := fs.Args()[1:]
	found := false
	if len(paths) == 0 {
		ok, err := scan(re, "", stdin, stdout, opts.count)
		if err != nil {
			fmt.Fprintf(stderr, "jsgrep: %v\n", err)
			return 2
		}
		found = ok
	}
	for _, path := range paths {
		prefix := ""
		if len(paths) > 1 {
			prefix = path + ":"
		}
		ok, err := scanFile(re, path, prefix, stdout, opts.count)
		if err != nil {
			fmt.Fprintf(stderr, "jsgrep: %v\n", err)
			return 2
		}
		found = found || ok
	}

	if found {
		return 0
	}
	return 1
}

func compile(pattern string, opts options, stderr io.Writer) (*jsre.Regexp, error) {
	config := jsre.DefaultConfig()
	if opts.configPath != "" {
		f, err := os.Open(opts.configPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if config, err = jsre.LoadConfig(f); err != nil {
			return nil, fmt.Errorf("%s: %w", opts.configPath, err)
		}
	}
	if opts.verbose {
		config.Log = jsre.NewLogger(true)
		config.Log.SetOutput(stderr)
	}

	var flags jsre.Flag
	if opts.ignoreCase {
		flags |= jsre.FlagIgnoreCase
	}
	if opts.multiline {
		flags |= jsre.FlagMultiline
	}
	return jsre.CompileConfig(utf16.Encode([]rune(pattern)), flags, config)
}

func scanFile(re *jsre.Regexp, path, prefix string, stdout io.Writer, count bool) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return scan(re, prefix, f, stdout, count)
}

// scan prints the lines of r that match re, each preceded by prefix, or
// their number if count is set. It reports whether any line matched.
func scan(re *jsre.Regexp, prefix string, r io.Reader, stdout io.Writer, count bool) (bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	matched := 0
	for scanner.Scan() {
		line := scanner.Text()
		ok, err := re.TestString(line)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		matched++
		if !count {
			fmt.Fprintf(stdout, "%s%s\n", prefix, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	if count {
		fmt.Fprintf(stdout, "%s%d\n", prefix, matched)
	}
	return matched > 0, nil
}
