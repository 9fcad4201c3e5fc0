package security

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxPatternLength = 500
	maxMatchInput    = 100
)

// pattern is a single compiled allow/block rule. A literal pattern matches
// by exact string equality; a delimited /body/flags pattern compiles to a Go
// regexp.
type pattern struct {
	raw     string
	literal string
	re      *regexp.Regexp
}

func (p *pattern) matches(subject string) bool {
	subject = truncate(subject, maxMatchInput)
	if p.re != nil {
		return p.re.MatchString(subject)
	}
	return subject == p.literal
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// compilePattern parses one pattern string from config. A pattern delimited
// as /body/flags is compiled as a regular expression; anything else is
// treated as a literal, exact-match string. Flags recognized: i
// (case-insensitive), m (multiline), s (dotall). The JS-only stateful flags
// g/y have no Go equivalent and are accepted but ignored — Go's regexp has
// no persistent match cursor, so every match already starts fresh.
func compilePattern(raw string) (*pattern, error) {
	if len(raw) > maxPatternLength {
		return nil, fmt.Errorf("pattern exceeds maximum length of %d characters", maxPatternLength)
	}

	body, flags, isRegex := parseDelimited(raw)
	if !isRegex {
		return &pattern{raw: raw, literal: truncate(raw, maxMatchInput)}, nil
	}

	if isRedosUnsafe(body) {
		return nil, fmt.Errorf("pattern %q rejected: looks like it can backtrack catastrophically", raw)
	}

	goPattern := body
	var prefix string
	for _, f := range flags {
		switch f {
		case 'i':
			prefix += "i"
		case 'm':
			prefix += "m"
		case 's':
			prefix += "s"
		case 'g', 'y':
			// stateful-match flags: no Go equivalent, no-op.
		default:
			return nil, fmt.Errorf("pattern %q has unsupported flag %q", raw, string(f))
		}
	}
	if prefix != "" {
		goPattern = "(?" + prefix + ")" + goPattern
	}

	re, err := regexp.Compile(goPattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q failed to compile: %w", raw, err)
	}
	return &pattern{raw: raw, re: re}, nil
}

// parseDelimited reports whether raw has the /body/flags shape and, if so,
// splits it into body and flags.
func parseDelimited(raw string) (body, flags string, ok bool) {
	if len(raw) < 2 || raw[0] != '/' {
		return "", "", false
	}
	last := strings.LastIndexByte(raw, '/')
	if last <= 0 {
		return "", "", false
	}
	return raw[1:last], raw[last+1:], true
}

// isRedosUnsafe applies a conservative heuristic that rejects the classic
// catastrophic-backtracking shapes: a quantified group that itself contains
// a quantified token, e.g. (a+)+, (.*)*, (\w+)*.
func isRedosUnsafe(body string) bool {
	return nestedQuantifierPattern.MatchString(body)
}

var nestedQuantifierPattern = regexp.MustCompile(`\([^()]*[+*][^()]*\)[+*]`)
