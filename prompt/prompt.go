// Copyright 2025 Juan Font
// BSD-3-Clause

// Package prompt is the interactive side of the credential tooling: it asks
// the operator for values and highlights what is already on disk.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/juanfont/pgvm/jsondoc"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// ErrNoInput is returned when input ends before an answer was given.
var ErrNoInput = errors.New("no input available")

// Theme holds the colors used on the console.
type Theme struct {
	Highlight termenv.Color
	Info      termenv.Color
	Warn      termenv.Color
	Error     termenv.Color
}

func defaultTheme(o *termenv.Output) Theme {
	return Theme{
		Highlight: o.Color("3"),
		Info:      o.Color("2"),
		Warn:      o.Color("3"),
		Error:     o.Color("1"),
	}
}

type Console struct {
	in     *bufio.Reader
	fd     int
	out    io.Writer
	output *termenv.Output
	theme  Theme
}

// New builds a console reading answers from in and writing to out. Colors are
// only emitted when color is true and out supports them.
func New(in io.Reader, out io.Writer, color bool) *Console {
	var opts []termenv.OutputOption
	if !color {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	output := termenv.NewOutput(out, opts...)

	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}

	return &Console{
		in:     bufio.NewReader(in),
		fd:     fd,
		out:    out,
		output: output,
		theme:  defaultTheme(output),
	}
}

// Stdio is the console attached to the process' standard streams.
func Stdio(color bool) *Console {
	return New(os.Stdin, os.Stdout, color)
}

func (c *Console) Say(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Info(format string, args ...interface{}) {
	c.Say("%s", c.output.String("[INFO] "+fmt.Sprintf(format, args...)).Foreground(c.theme.Info).String())
}

func (c *Console) Warn(format string, args ...interface{}) {
	c.Say("%s", c.output.String("[INFO] "+fmt.Sprintf(format, args...)).Foreground(c.theme.Warn).String())
}

func (c *Console) Error(format string, args ...interface{}) {
	c.Say("%s", c.output.String("[ERROR] "+fmt.Sprintf(format, args...)).Foreground(c.theme.Error).String())
}

// Highlight renders a value in bold yellow.
func (c *Console) Highlight(v interface{}) string {
	return c.output.String(jsondoc.Format(v)).Foreground(c.theme.Highlight).Bold().String()
}

// Label renders a prompt label in green.
func (c *Console) Label(format string, args ...interface{}) string {
	return c.output.String(fmt.Sprintf(format, args...)).Foreground(c.theme.Info).String()
}

// Ask prints label and returns the next input line without surrounding
// whitespace.
func (c *Console) Ask(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		if err == io.EOF {
			fmt.Fprintln(c.out)
			return "", ErrNoInput
		}
		return "", errors.Wrap(err, "read answer")
	}
	return strings.TrimSpace(line), nil
}

// AskSecret behaves like Ask but does not echo when reading from a terminal.
func (c *Console) AskSecret(label string) (string, error) {
	if c.fd < 0 {
		return c.Ask(label)
	}
	fmt.Fprint(c.out, label)
	b, err := term.ReadPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", errors.Wrap(err, "read secret")
	}
	return strings.TrimSpace(string(b)), nil
}

// Confirm is true only when the answer is "yes".
func (c *Console) Confirm(label string) (bool, error) {
	answer, err := c.Ask(label)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "yes"), nil
}
