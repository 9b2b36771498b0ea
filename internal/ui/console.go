package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type ConsoleStyle int

const (
	StyleNormal ConsoleStyle = iota
	StyleError
	StyleWarning
	StyleSuccess
	StyleInfo
	StyleStage
)

var styles = map[ConsoleStyle][]color.Attribute{
	StyleError:   {color.FgRed, color.Bold},
	StyleWarning: {color.FgYellow},
	StyleSuccess: {color.FgGreen},
	StyleInfo:    {color.FgBlue},
	StyleStage:   {color.FgCyan, color.Bold},
}

// Console prints user-facing messages. It is safe for concurrent use.
type Console struct {
	useColors bool
	out       io.Writer
	err       io.Writer
	mu        sync.Mutex
}

func NewConsole() *Console {
	return &Console{
		useColors: isTerminal(os.Stderr),
		out:       os.Stdout,
		err:       os.Stderr,
	}
}

// NewConsoleWithWriters returns an uncolored console writing to the given streams.
func NewConsoleWithWriters(out, errOut io.Writer) *Console {
	return &Console{out: out, err: errOut}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) formatMessage(style ConsoleStyle, message string) string {
	attrs, ok := styles[style]
	if !c.useColors || !ok {
		return message
	}

	col := color.New(attrs...)
	col.EnableColor()
	return col.Sprint(message)
}

func (c *Console) write(w io.Writer, style ConsoleStyle, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, "%s\n", c.formatMessage(style, message))
}

func (c *Console) PrintError(message string) {
	c.write(c.err, StyleError, "Error: "+message)
}

func (c *Console) PrintWarning(message string) {
	c.write(c.err, StyleWarning, "Warning: "+message)
}

func (c *Console) PrintSuccess(message string) {
	c.write(c.out, StyleSuccess, message)
}

func (c *Console) PrintInfo(message string) {
	c.write(c.out, StyleInfo, message)
}

// PrintStage prints an action header such as "-----> Creating <default-win>".
func (c *Console) PrintStage(message string) {
	c.write(c.out, StyleStage, "-----> "+message)
}

// Out is the stream for regular output.
func (c *Console) Out() io.Writer {
	return c.out
}

func (c *Console) FormatErrorMessage(context, cause, suggestion string) string {
	var parts []string

	if context != "" {
		parts = append(parts, context)
	}

	if cause != "" {
		parts = append(parts, fmt.Sprintf("Cause: %s", cause))
	}

	if suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", suggestion))
	}

	return strings.Join(parts, "\n")
}
