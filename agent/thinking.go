package agent

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	minWidth     = 20
	indent       = "    "
)

// renderThinking writes the agent banner and both prompts to w.
func renderThinking(w io.Writer, name, system, chat string) {
	_, _ = io.WriteString(w, formatThinking(name, system, chat, displayWidth(w), useColor(w)))
}

// formatThinking lays out:
//
//	------  name  ------
//	System Prompt: ...
//
//	Chat Prompt:
//	    wrapped chat prompt
func formatThinking(name, system, chat string, width int, color bool) string {
	if width < minWidth {
		width = minWidth
	}
	label := func(s string) string {
		if !color || s == "" {
			return s
		}
		return ancli.ColoredMessage(ancli.BLUE, s)
	}
	title := name
	if color {
		title = ancli.ColoredMessage(ancli.CYAN, name)
	}

	n := (width - utf8.RuneCountInString(name) - 4) / 2
	if n < 0 {
		n = 0
	}
	dashes := label(strings.Repeat("-", n))

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s\n", dashes, title, dashes)
	fmt.Fprintf(&b, "%s %s\n\n", label("System Prompt:"), system)
	fmt.Fprintf(&b, "%s\n%s\n\n", label("Chat Prompt:"), wrapIndented(chat, width-len(indent)))
	return b.String()
}

// wrapIndented wraps every source line to limit columns and indents the
// result. Blank source lines are dropped.
func wrapIndented(text string, limit int) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, wl := range strings.Split(wordwrap.WrapString(line, uint(limit)), "\n") {
			lines = append(lines, indent+strings.TrimRight(wl, " "))
		}
	}
	return strings.Join(lines, "\n")
}

// displayWidth prefers the terminal size of w, then $COLUMNS, then 80.
func displayWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return defaultWidth
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
