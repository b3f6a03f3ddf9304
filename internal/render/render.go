package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/editcore/internal/script"
	"github.com/Sumatoshi-tech/editcore/internal/session"
	"github.com/Sumatoshi-tech/editcore/pkg/patch"
	"github.com/Sumatoshi-tech/editcore/pkg/text"
)

const (
	indent          = "  "
	textColumnWidth = 24
	summaryLabelW   = 18
	unknownText     = "?"
)

// Renderer writes human-readable reports.
type Renderer struct {
	cfg Config
	w   io.Writer
}

// New returns a renderer writing to w.
func New(w io.Writer, cfg Config) *Renderer {
	return &Renderer{cfg: cfg, w: w}
}

func (r *Renderer) newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	return tbl
}

func (r *Renderer) section(title string) {
	fmt.Fprintf(r.w, "%s%s\n", indent, r.cfg.Colorize(title, color.FgBlue))
	fmt.Fprintf(r.w, "%s%s\n", indent, DrawSeparator(r.cfg.Width-len(indent)*2))
}

func (r *Renderer) summaryLine(label, value string) {
	fmt.Fprintf(r.w, "%s%s %s\n", indent, PadRight(label, summaryLabelW), value)
}

// quote formats a text payload for a table cell.
func (r *Renderer) quote(t *text.Text) string {
	if t == nil {
		return r.cfg.Colorize(unknownText, color.FgHiBlack)
	}

	return Truncate(strconv.Quote(t.String()), textColumnWidth)
}

// Patch writes a table of the hunks in p.
func (r *Renderer) Patch(p *patch.Patch) {
	changes := p.Changes()

	var oldBytes, newBytes uint64

	tbl := r.newTable()
	tbl.AppendHeader(table.Row{"#", "Old", "New", "Removed", "Inserted"})

	for i, c := range changes {
		oldBytes += uint64(c.OldTextSize)
		if c.NewText != nil {
			newBytes += uint64(c.NewText.SizeUint32())
		}

		tbl.AppendRow(table.Row{
			i,
			fmt.Sprintf("%v-%v", c.OldStart, c.OldEnd),
			fmt.Sprintf("%v-%v", c.NewStart, c.NewEnd),
			r.cfg.Colorize(r.quote(c.OldText), color.FgRed),
			r.cfg.Colorize(r.quote(c.NewText), color.FgGreen),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d hunks", len(changes))})

	r.section("Hunks")

	if len(changes) > 0 {
		fmt.Fprintln(r.w, tbl.Render())
	}

	fmt.Fprintln(r.w)
	r.summaryLine("Hunks", strconv.Itoa(len(changes)))
	r.summaryLine("Removed", humanize.IBytes(oldBytes))
	r.summaryLine("Inserted", humanize.IBytes(newBytes))
}

// Markers writes a table of markers.
func (r *Renderer) Markers(markers []session.Marker) {
	r.section("Markers")

	if len(markers) == 0 {
		fmt.Fprintf(r.w, "%s%s\n", indent, r.cfg.Colorize("none", color.FgHiBlack))

		return
	}

	tbl := r.newTable()
	tbl.AppendHeader(table.Row{"ID", "Range", "Exclusive", "Invalidate", "Status"})

	invalid := 0

	for _, m := range markers {
		status := r.cfg.Colorize("valid", color.FgGreen)
		if !m.Valid {
			status = r.cfg.Colorize("invalid", color.FgRed)
			invalid++
		}

		tbl.AppendRow(table.Row{m.ID, m.Range.String(), m.Exclusive, m.Invalidate.String(), status})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d markers, %d invalid", len(markers), invalid)})
	fmt.Fprintln(r.w, tbl.Render())
}

// Replay writes the outcome of a replayed script.
func (r *Renderer) Replay(report *script.Report) {
	title := "REPLAY"
	if report.Name != "" {
		title += " " + report.Name
	}

	fmt.Fprintln(r.w, DrawHeader(title, fmt.Sprintf("%d steps", len(report.Steps)), r.cfg.Width))
	fmt.Fprintln(r.w)

	r.section("Steps")

	for _, step := range report.Steps {
		fmt.Fprintf(r.w, "%s%3d  %s%s\n", indent, step.Index, PadRight(step.Op, len(script.OpCheckpoint)+1), r.stepStatus(step))
	}

	sess := report.Session

	fmt.Fprintln(r.w)
	r.section("Summary")
	r.summaryLine("Document", humanize.IBytes(uint64(len(sess.Text()))))
	r.summaryLine("Hunks", strconv.Itoa(sess.Patch().ChangeCount()))
	r.summaryLine("Undo depth", strconv.Itoa(sess.UndoDepth()))
	r.summaryLine("Redo depth", strconv.Itoa(sess.RedoDepth()))

	invalid := sess.Invalid()

	invalidColor := color.FgGreen
	if invalid.Len() > 0 {
		invalidColor = color.FgRed
	}

	r.summaryLine("Invalid markers", r.cfg.Colorize(strconv.Itoa(invalid.Len()), invalidColor))

	fmt.Fprintln(r.w)
	r.Markers(sess.Markers())
}

func (r *Renderer) stepStatus(step script.StepReport) string {
	if step.Skipped {
		return r.cfg.Colorize("skipped", color.FgHiBlack)
	}

	status := r.cfg.Colorize("ok", color.FgGreen)

	if step.Changes > 0 {
		status += fmt.Sprintf("  %d changes", step.Changes)
	}

	if step.Invalidated.Len() > 0 {
		status += "  " + r.cfg.Colorize("invalidated "+step.Invalidated.String(), color.FgRed)
	}

	return status
}
