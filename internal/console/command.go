package console

import (
	"regexp"
	"strings"
)

// Command verbs.
const (
	VerbNone    = ""
	VerbCreate  = "create"
	VerbShow    = "show"
	VerbDestroy = "destroy"
	VerbAll     = "all"
	VerbUpdate  = "update"
	VerbCount   = "count"
	VerbQuit    = "quit"
	VerbEOF     = "EOF"
	VerbHelp    = "help"
	VerbUnknown = "unknown"
)

// Form records how a command line was written.
type Form int

const (
	FormSpace Form = iota
	FormDot
)

// spaceVerbs are recognised as the first word of a line.
var spaceVerbs = map[string]bool{
	VerbCreate:  true,
	VerbShow:    true,
	VerbDestroy: true,
	VerbAll:     true,
	VerbUpdate:  true,
	VerbCount:   true,
	VerbQuit:    true,
	VerbEOF:     true,
	VerbHelp:    true,
}

// dotVerbs may follow "<Type>." in the dot form.
var dotVerbs = map[string]bool{
	VerbCreate:  true,
	VerbShow:    true,
	VerbDestroy: true,
	VerbAll:     true,
	VerbUpdate:  true,
	VerbCount:   true,
}

var dotPattern = regexp.MustCompile(`(?s)^([^.\s()]+)\.(\w+)\((.*)\)$`)

// Command is one parsed input line.
type Command struct {
	Verb string
	Args []string
	// Literal is the index in Args of an unparsed bracketed span, or -1.
	Literal int
	Form    Form
	// Text is the unsplit argument text: everything after the verb, or
	// everything inside the parentheses of a dot-form call.
	Text string
	Raw  string
}

// IsLiteral reports whether Args[i] is the bracketed span of the line.
func (c *Command) IsLiteral(i int) bool {
	return c.Literal >= 0 && c.Literal == i
}

// Arg returns Args[i], or "" when there are fewer arguments.
func (c *Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// Parse turns a raw input line into a Command. Parse never fails: lines
// that match neither form yield VerbUnknown, blank lines yield VerbNone.
func Parse(line string) *Command {
	raw := strings.TrimRight(line, "\r\n")
	text := strings.TrimSpace(raw)
	cmd := &Command{Raw: raw, Literal: -1}
	if text == "" {
		cmd.Verb = VerbNone
		return cmd
	}

	verb, rest := text, ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		verb, rest = text[:i], text[i+1:]
	}
	if spaceVerbs[verb] {
		cmd.Verb = verb
		cmd.Form = FormSpace
		cmd.Text = rest
		cmd.Args, cmd.Literal = splitSpaceArgs(rest)
		return cmd
	}

	if m := dotPattern.FindStringSubmatch(text); m != nil && dotVerbs[m[2]] {
		cmd.Verb = m[2]
		cmd.Form = FormDot
		cmd.Text = m[3]
		args, lit := splitDotArgs(m[3])
		cmd.Args = append([]string{m[1]}, args...)
		if lit >= 0 {
			cmd.Literal = lit + 1
		}
		return cmd
	}

	cmd.Verb = VerbUnknown
	return cmd
}

// splitSpaceArgs splits the text after a verb. The first bracketed span is
// kept whole as the last argument; anything after it is ignored.
func splitSpaceArgs(s string) ([]string, int) {
	start, end, ok := findLiteral(s)
	if !ok {
		return splitShell(s), -1
	}
	args := splitShell(s[:start])
	args = append(args, s[start:end])
	return args, len(args) - 1
}

// splitDotArgs splits the text inside the parentheses of a dot-form call.
func splitDotArgs(s string) ([]string, int) {
	start, end, ok := findLiteral(s)
	if !ok {
		return splitCommaArgs(s), -1
	}
	prefix := s[:start]
	// A bracket inside a positional argument belongs to that argument.
	if trimmed := strings.TrimSpace(prefix); trimmed != "" && !strings.HasSuffix(trimmed, ",") {
		return splitCommaArgs(s), -1
	}
	args := splitCommaArgs(prefix)
	args = append(args, s[start:end])
	return args, len(args) - 1
}
