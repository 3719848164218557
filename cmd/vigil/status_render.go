package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusLabels = map[statusKind]string{
	statusInfo:  "INFO",
	statusOK:    "OK",
	statusWarn:  "WARN",
	statusError: "ERROR",
}

var statusColors = map[statusKind]string{
	statusInfo:  ansiBlue,
	statusOK:    ansiGreen,
	statusWarn:  ansiYellow,
	statusError: ansiRed,
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	labelWidth = 20
	indent     = "  "
)

// printer writes aligned report lines, colouring verdicts on terminals only.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: isTerminal(w)}
}

func (p *printer) paint(code, s string) string {
	if !p.color || code == "" {
		return s
	}
	return code + s + ansiReset
}

// section prints a title and a rule, preceded by a blank line unless first.
func (p *printer) section(title string, first bool) {
	if !first {
		fmt.Fprintln(p.w)
	}
	heading := "== " + strings.TrimSpace(title) + " =="
	fmt.Fprintln(p.w, p.paint(ansiBlue, heading))
	fmt.Fprintln(p.w, p.paint(ansiBlue, strings.Repeat("-", len(heading))))
}

func (p *printer) status(label string, kind statusKind, message string) {
	fmt.Fprintln(p.w, p.paint(statusColors[kind], statusLine(label, kind, message)))
}

func (p *printer) value(label, value string) {
	fmt.Fprintln(p.w, valueLine(label, value))
}

func (p *printer) note(text string) {
	fmt.Fprintln(p.w, indent+text)
}

func (p *printer) table(rendered string) {
	if rendered != "" {
		fmt.Fprintln(p.w, rendered)
	}
}

func statusLine(label string, kind statusKind, message string) string {
	tag := "[" + statusLabels[kind] + "]"
	if message != "" {
		tag += " " + message
	}
	return valueLine(label, tag)
}

func valueLine(label, value string) string {
	return fmt.Sprintf("%s%-*s %s", indent, labelWidth, label+":", value)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
