package shell

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// printer renders verdicts, in color when the output is a terminal.
type printer struct {
	out     io.Writer
	colored bool
}

func newPrinter(out io.Writer, colored bool) printer {
	return printer{out: out, colored: colored}
}

// ColorUsable reports whether w is a terminal that can take ANSI color.
func ColorUsable(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (p printer) good(format string, args ...any) {
	p.print(color.LightGreen, format, args...)
}

func (p printer) bad(format string, args ...any) {
	p.print(color.Red, format, args...)
}

func (p printer) warn(format string, args ...any) {
	p.print(color.LightYellow, format, args...)
}

func (p printer) plain(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p printer) print(c color.Color, format string, args ...any) {
	if p.colored {
		fmt.Fprintln(p.out, c.Sprintf(format, args...))
		return
	}
	p.plain(format, args...)
}
