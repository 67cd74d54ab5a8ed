package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind classifies one doctor line. It picks both the bracketed label
// and the ANSI color used when the output is a terminal.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiBlue   = "\x1b[34m"
	ansiGreen  = "\x1b[32m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
)

const (
	statusIndent     = "  "
	statusLabelWidth = 20
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

func (k statusKind) label() string {
	if label, ok := statusLabels[k]; ok {
		return label
	}
	return "INFO"
}

func (k statusKind) color() string {
	return statusColors[k]
}

// renderStatusLine formats one aligned "Label:  [KIND] detail" row.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	var b strings.Builder
	b.WriteString(statusIndent)
	fmt.Fprintf(&b, "%-*s", statusLabelWidth, label+":")
	b.WriteString(" [")
	b.WriteString(kind.label())
	b.WriteString("]")
	if message != "" {
		b.WriteString(" ")
		b.WriteString(message)
	}
	if colorize {
		if color := kind.color(); color != "" {
			return color + b.String() + ansiReset
		}
	}
	return b.String()
}

// renderSectionHeader returns a title line plus a dashed rule of equal width.
func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if !colorize {
		return []string{line, rule}
	}
	return []string{
		ansiBlue + line + ansiReset,
		ansiBlue + rule + ansiReset,
	}
}

// shouldColorize reports whether writer is an interactive terminal.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
