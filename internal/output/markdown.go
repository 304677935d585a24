package output

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	defaultWidth = 80

	// Narrower wrapping turns list items and headings into one word per line.
	minDescriptionWidth = 20
)

// TerminalWidth is the column budget for task listings: the width of stdout
// when it is a terminal, $COLUMNS when set, fallback otherwise.
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	if fallback <= 0 {
		return defaultWidth
	}
	return fallback
}

// RenderDescription renders a task description written in markdown, wrapped
// to width columns. If glamour cannot render it, the description is returned
// as typed so `task show` always prints something.
func RenderDescription(desc string, width int) string {
	if strings.TrimSpace(desc) == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width, minDescriptionWidth)),
	)
	if err == nil {
		var out string
		if out, err = r.Render(desc); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	slog.Debug("output: render description", "err", err)
	return desc
}
