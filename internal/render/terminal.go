// Package render formats patches, markers and replay reports for a terminal.
package render

import (
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Width bounds.
const (
	DefaultWidth = 80
	MinWidth     = 60
	MaxWidth     = 120
)

// Config holds terminal rendering configuration.
type Config struct {
	Width   int
	NoColor bool
}

// NewConfig reads the width from COLUMNS and honors NO_COLOR.
func NewConfig() Config {
	return Config{
		Width:   DetectWidth(),
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// DetectWidth returns the terminal width from COLUMNS clamped to
// [MinWidth, MaxWidth], or DefaultWidth if unset or invalid.
func DetectWidth() int {
	width, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || width <= 0 {
		return DefaultWidth
	}

	return min(max(width, MinWidth), MaxWidth)
}

// Colorize paints s with attrs unless color is disabled.
func (c Config) Colorize(s string, attrs ...color.Attribute) string {
	if c.NoColor || len(attrs) == 0 {
		return s
	}

	painter := color.New(attrs...)
	painter.EnableColor()

	return painter.Sprint(s)
}

// Box drawing characters.
const (
	boxHorizontal           = "─"
	boxHeavyHorizontal      = "━"
	boxHeavyVertical        = "┃"
	boxHeavyTopLeft         = "┏"
	boxHeavyTopRight        = "┓"
	boxHeavyBottomLeft      = "┗"
	boxHeavyBottomRight     = "┛"
	headerPadding           = 1
	headerBorderAndPadWidth = 4
)

// DrawSeparator draws a thin horizontal line.
func DrawSeparator(width int) string {
	if width <= 0 {
		return ""
	}

	return strings.Repeat(boxHorizontal, width)
}

// DrawHeader draws a heavy-bordered header with title on the left and
// rightText on the right. Widths are measured in bytes of the uncolored text.
func DrawHeader(title, rightText string, width int) string {
	width = max(width, len(title)+len(rightText)+headerBorderAndPadWidth+headerPadding*2)
	inner := width - 2
	contentWidth := inner - headerPadding*2

	content := PadRight(title, contentWidth)
	if rightText != "" {
		gap := max(contentWidth-len(title)-len(rightText), 1)
		content = title + strings.Repeat(" ", gap) + rightText
	}

	pad := strings.Repeat(" ", headerPadding)

	return boxHeavyTopLeft + strings.Repeat(boxHeavyHorizontal, inner) + boxHeavyTopRight + "\n" +
		boxHeavyVertical + pad + content + pad + boxHeavyVertical + "\n" +
		boxHeavyBottomLeft + strings.Repeat(boxHeavyHorizontal, inner) + boxHeavyBottomRight
}

const ellipsis = "..."

// Truncate shortens s to maxWidth bytes, ending in "..." when cut.
func Truncate(s string, maxWidth int) string {
	if len(s) <= maxWidth {
		return s
	}

	if maxWidth <= len(ellipsis) {
		return strings.Repeat(".", max(maxWidth, 0))
	}

	return s[:maxWidth-len(ellipsis)] + ellipsis
}

// PadRight pads s with spaces to width.
func PadRight(s string, width int) string {
	if len(s) >= width {
		return s
	}

	return s + strings.Repeat(" ", width-len(s))
}
