package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultPrompt is printed before every line in interactive mode.
const DefaultPrompt = "(hbnb) "

// MaxLineCapacity is the longest input line the console accepts.
const MaxLineCapacity = 1024 * 1024

// Console reads lines and feeds them to a Dispatcher until quit or end of
// input.
type Console struct {
	dispatcher *Dispatcher
	out        io.Writer
	Prompt     string
}

// New creates a Console that prints its prompt to out.
func New(d *Dispatcher, out io.Writer) *Console {
	return &Console{dispatcher: d, out: out, Prompt: DefaultPrompt}
}

// Run reads commands from in until quit, EOF or a read error. A line longer
// than MaxLineCapacity is reported as unknown syntax and skipped.
func (c *Console) Run(in io.Reader) error {
	r := bufio.NewReaderSize(in, 64*1024)

	for {
		if c.Prompt != "" {
			fmt.Fprint(c.out, c.Prompt)
		}
		line, tooLong, err := readLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading input: %w", err)
		}
		if errors.Is(err, io.EOF) && line == "" && !tooLong {
			c.dispatcher.Execute(&Command{Verb: VerbEOF, Literal: -1})
			return nil
		}

		var cmd *Command
		if tooLong {
			cmd = &Command{Verb: VerbUnknown, Literal: -1, Raw: truncateLine(line)}
		} else {
			cmd = Parse(line)
		}
		if c.dispatcher.Execute(cmd) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			if c.Prompt != "" {
				fmt.Fprint(c.out, c.Prompt)
			}
			c.dispatcher.Execute(&Command{Verb: VerbEOF, Literal: -1})
			return nil
		}
	}
}

// readLine returns the next line without its terminator. Once a line
// passes MaxLineCapacity the rest of it is discarded and tooLong is set.
// err is io.EOF when the input ended, possibly after a final unterminated
// line.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, rerr := r.ReadLine()
		if rerr != nil {
			return strings.TrimSuffix(string(buf), "\r"), tooLong, rerr
		}
		if !tooLong {
			if len(buf)+len(chunk) > MaxLineCapacity {
				tooLong = true
				buf = append(buf, chunk[:MaxLineCapacity-len(buf)]...)
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return strings.TrimSuffix(string(buf), "\r"), tooLong, nil
		}
	}
}

// truncatedEcho is how much of an oversized line the diagnostic repeats.
const truncatedEcho = 64

func truncateLine(line string) string {
	if len(line) > truncatedEcho {
		line = line[:truncatedEcho]
	}
	return line + "..."
}

// Exec runs each line in order without a prompt, stopping early on quit.
func (c *Console) Exec(lines []string) {
	for _, line := range lines {
		if c.dispatcher.Execute(Parse(line)) {
			return
		}
	}
}
