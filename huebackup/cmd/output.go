package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/aldld/huebackup/snapshot"
)

type printer struct {
	w io.Writer

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	gray   *color.Color
	bold   *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	if noColor {
		color.NoColor = true
	}
	return &printer{
		w:      w,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		gray:   color.New(color.FgHiBlack),
		bold:   color.New(color.Bold),
	}
}

func (p *printer) info(format string, a ...any) {
	fmt.Fprintf(p.w, format+"\n", a...)
}

func (p *printer) success(format string, a ...any) {
	fmt.Fprintln(p.w, p.green.Sprintf(format, a...))
}

func (p *printer) header(format string, a ...any) {
	fmt.Fprintln(p.w, p.bold.Sprintf(format, a...))
}

func (p *printer) warn(err error) {
	fmt.Fprintln(os.Stderr, p.yellow.Sprint("Warning: "+err.Error()))
}

func (p *printer) error(err error) {
	fmt.Fprintln(os.Stderr, p.red.Sprint("Error: "+err.Error()))
}

// preview prints plan lines, coloring additions and removals.
func (p *printer) preview(lines []string) {
	for i, l := range lines {
		switch {
		case i == 0:
			p.header("%s", l)
		case strings.HasPrefix(l, "  + "):
			fmt.Fprintln(p.w, p.green.Sprint(l))
		case strings.HasPrefix(l, "  - "):
			fmt.Fprintln(p.w, p.red.Sprint(l))
		case strings.HasPrefix(l, "    "):
			fmt.Fprintln(p.w, p.gray.Sprint(l))
		default:
			fmt.Fprintln(p.w, l)
		}
	}
}

func itemLabel(it snapshot.Item) string {
	if it.Name == "" {
		return fmt.Sprintf("%s %s", it.Type, it.ID)
	}
	return fmt.Sprintf("%s %q (%s)", it.Type, it.Name, it.ID)
}

func shortJSON(raw []byte) string {
	if raw == nil {
		return "(absent)"
	}
	s := string(raw)
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

func (p *printer) report(r snapshot.Report) {
	if r.Empty() {
		p.success("No differences.")
		return
	}
	for _, it := range r.Added {
		fmt.Fprintln(p.w, p.green.Sprint("+ "+itemLabel(it)))
	}
	for _, it := range r.Removed {
		fmt.Fprintln(p.w, p.red.Sprint("- "+itemLabel(it)))
	}
	for _, ch := range r.Changed {
		fmt.Fprintln(p.w, p.yellow.Sprint("~ "+itemLabel(ch.Item)))
		for _, f := range ch.Fields {
			fmt.Fprintf(p.w, "    %s: %s -> %s\n", f.Path, shortJSON(f.Old), shortJSON(f.New))
		}
	}
}

// confirm asks a yes/no question. Without a terminal on stdin the answer is
// no.
func (p *printer) confirm(in *os.File, question string) bool {
	if !term.IsTerminal(int(in.Fd())) {
		p.warn(fmt.Errorf("not a terminal, pass --yes to confirm %q", question))
		return false
	}
	fmt.Fprintf(p.w, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
