package rawclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	PromptColor  = color.New(color.FgCyan, color.Bold)
	InfoColor    = color.New(color.FgBlue)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
)

// Console is the operator's terminal: prompts are read from in, and
// notices and the raw response text are written to out. It is not safe
// for concurrent use.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	// pending is the line read in flight, kept across a cancelled Ask so
	// that no input is lost.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the next input line without its line
// ending. A last line with no newline is still returned; io.EOF comes
// only when nothing at all is left. Ask gives up with ctx's error when
// ctx is done before a line arrives.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	PromptColor.Fprint(c.out, question)
	if c.pending == nil {
		ch := make(chan lineResult, 1)
		c.pending = ch
		go func() {
			line, err := c.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-c.pending:
		c.pending = nil
		if res.err != nil && !(res.err == io.EOF && res.line != "") {
			return "", res.err
		}
		return strings.TrimRight(res.line, "\r\n"), nil
	}
}

// Out is where the response text is streamed.
func (c *Console) Out() io.Writer { return c.out }

func (c *Console) Infof(format string, args ...interface{}) {
	InfoColor.Fprint(c.out, "[info]")
	fmt.Fprintf(c.out, " :: "+format+"\n", args...)
}

func (c *Console) Successf(format string, args ...interface{}) {
	SuccessColor.Fprint(c.out, "[ok]")
	fmt.Fprintf(c.out, " :: "+format+"\n", args...)
}

func (c *Console) Warnf(format string, args ...interface{}) {
	WarningColor.Fprint(c.out, "[warning]")
	fmt.Fprintf(c.out, " :: "+format+"\n", args...)
}

func (c *Console) Errorf(format string, args ...interface{}) {
	ErrorColor.Fprint(c.out, "[error]")
	fmt.Fprintf(c.out, " :: "+format+"\n", args...)
}
