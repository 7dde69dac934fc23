// Package ui renders game state for the terminal client.
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"sqlbadlands/internal/curriculum"
	"sqlbadlands/internal/dataset"
	"sqlbadlands/internal/game"
	"sqlbadlands/internal/progress"
	"sqlbadlands/internal/state"
)

type Renderer struct {
	Theme Theme
	Mode  LayoutMode

	markdown *glamour.TermRenderer
}

// NewRenderer builds a renderer for a terminal cols wide. Narration, hints and
// story beats go through glamour; plain output or an unknown width uses the
// notty style so no escape codes leak into pipes.
func NewRenderer(variant string, cols int) Renderer {
	r := Renderer{Theme: ThemeForVariant(variant), Mode: DetermineLayoutMode(cols)}
	style := "dark"
	if cols == 0 || variant == "plain" {
		style = "notty"
	}
	wrap := 78
	if r.Mode == LayoutCompact && cols-2 < wrap {
		wrap = max(cols-2, 40)
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		r.markdown = md
	}
	return r
}

// prose renders text as markdown, falling back to the raw text.
func (r Renderer) prose(text string) string {
	text = strings.TrimSpace(text)
	if r.markdown == nil || text == "" {
		return text
	}
	rendered, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	lines := strings.Split(strings.Trim(rendered, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

func (r Renderer) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.Theme.Border).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Theme.Header
			}
			return r.Theme.Cell
		})
}

func (r Renderer) statusLabel(s progress.Status) string {
	switch s {
	case progress.StatusCompleted:
		return r.Theme.Pass.Render("completed")
	case progress.StatusCurrent:
		return r.Theme.Accent.Render("current")
	case progress.StatusAvailable:
		return r.Theme.Pending.Render("available")
	default:
		return r.Theme.Muted.Render("locked")
	}
}

// Board lists every mission with its unlock state.
func (r Renderer) Board(c *curriculum.Curriculum, p *progress.Progress) string {
	headers := []string{"#", "Mission", "Status", "Objective"}
	if r.Mode == LayoutWide {
		headers = []string{"#", "Mission", "Status", "Kind", "Objective"}
	}
	t := r.table(headers...)
	for _, m := range c.Missions() {
		row := []string{
			strconv.Itoa(m.ID),
			fmt.Sprintf("%d.%d", m.Chapter, m.Number),
			r.statusLabel(p.Status(c, m.Chapter, m.Number)),
		}
		if r.Mode == LayoutWide {
			row = append(row, m.Kind)
		}
		row = append(row, truncate.StringWithTail(m.Text, uint(textWidth(r.Mode)), "..."))
		t.Row(row...)
	}
	return t.Render()
}

func (r Renderer) Chapter(view game.ChapterView, p *progress.Progress, l progress.Layout) string {
	var b strings.Builder
	b.WriteString(r.Theme.OverlayTitle.Render(fmt.Sprintf("Chapter %d: %s", view.Number, view.Title)))
	b.WriteString("\n\n")
	b.WriteString(r.prose(view.Narration))
	b.WriteString("\n\n")
	for _, m := range view.Missions {
		fmt.Fprintf(&b, "  %d.%d  %-9s  %s\n", m.Chapter, m.Number, r.statusLabel(p.Status(l, m.Chapter, m.Number)), m.Text)
		if m.Hint != "" && p.Chapter == m.Chapter && p.Mission == m.Number {
			b.WriteString("         " + r.Theme.Muted.Render("hint: "+strings.TrimSpace(r.prose(m.Hint))) + "\n")
		}
	}
	return b.String()
}

// Outcome renders the verdict line followed by at most maxRows result rows.
func (r Renderer) Outcome(out game.Outcome, maxRows int) string {
	var b strings.Builder
	switch {
	case !out.OK:
		b.WriteString(r.Theme.Fail.Render("error") + " " + out.Message + "\n")
		if out.Hint != "" {
			b.WriteString(r.Theme.Muted.Render(out.Hint) + "\n")
		}
		return b.String()
	case out.Correct:
		b.WriteString(r.Theme.Pass.Render("correct") + " " + out.Message + "\n")
	default:
		b.WriteString(r.Theme.Fail.Render("incorrect") + " " + out.Message + "\n")
	}

	if out.Kind == game.KindCommand {
		fmt.Fprintf(&b, "%s row(s) affected in %s\n", humanize.Comma(out.AffectedRows), out.Duration.Round(time.Microsecond))
	} else {
		b.WriteString(r.Rows(out.Columns, out.Rows, maxRows))
		fmt.Fprintf(&b, "%s row(s) in %s\n", humanize.Comma(int64(len(out.Rows))), out.Duration.Round(time.Microsecond))
	}
	if out.StoryProgression != "" {
		b.WriteString("\n" + r.Theme.Overlay.Render(r.prose(out.StoryProgression)) + "\n")
	}
	return b.String()
}

func (r Renderer) Rows(columns []string, rows []map[string]any, maxRows int) string {
	if len(columns) == 0 {
		return ""
	}
	t := r.table(columns...)
	for i, row := range rows {
		if maxRows > 0 && i >= maxRows {
			break
		}
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = FormatValue(row[col])
		}
		t.Row(cells...)
	}
	out := t.Render() + "\n"
	if maxRows > 0 && len(rows) > maxRows {
		out += r.Theme.Muted.Render(fmt.Sprintf("... %d more row(s)", len(rows)-maxRows)) + "\n"
	}
	return out
}

func (r Renderer) History(entries []progress.Entry, now time.Time) string {
	if len(entries) == 0 {
		return r.Theme.Muted.Render("No queries yet.") + "\n"
	}
	t := r.table("When", "Mission", "Result", "Time", "Query")
	for _, e := range entries {
		result := r.Theme.Fail.Render("failed")
		if e.Success {
			result = r.Theme.Pass.Render("success")
		}
		t.Row(
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			fmt.Sprintf("%d.%d", e.Chapter, e.Mission),
			result,
			fmt.Sprintf("%dms", e.ExecutionTime),
			truncate.StringWithTail(strings.Join(strings.Fields(e.Query), " "), uint(textWidth(r.Mode)), "..."),
		)
	}
	return t.Render() + "\n"
}

// Progress summarises local progress and, when attempts are recorded, the
// attempt log.
func (r Renderer) Progress(c *curriculum.Curriculum, p *progress.Progress, summary state.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d/%d missions, %d/%d chapters mastered\n",
		r.Theme.Accent.Render("Progress"),
		p.CompletedCount(), c.TotalMissions(),
		p.ChaptersMastered(c), c.ChapterCount(),
	)
	if p.AllCompleted(c) {
		b.WriteString(r.Theme.Pass.Render("Every mission complete. Run `sqlbadlands certificate`.") + "\n")
	} else if m, err := c.MissionAt(p.Chapter, p.Mission); err == nil {
		fmt.Fprintf(&b, "Current mission %d.%d: %s\n", m.Chapter, m.Number, m.Text)
	}
	fmt.Fprintf(&b, "Queries submitted: %s\n", humanize.Comma(int64(p.TotalQueries)))
	if summary.Attempts > 0 {
		fmt.Fprintf(&b, "Recorded attempts: %s (%s correct, %s errors) across %s session(s)\n",
			humanize.Comma(int64(summary.Attempts)),
			humanize.Comma(int64(summary.Correct)),
			humanize.Comma(int64(summary.Errors)),
			humanize.Comma(int64(summary.Sessions)),
		)
	}
	return b.String()
}

func (r Renderer) Certificate(cert progress.Certificate, title string) string {
	return r.Theme.Overlay.Render(strings.TrimRight(cert.Text(title), "\n")) + "\n"
}

func (r Renderer) Schema(tables []dataset.Table) string {
	var b strings.Builder
	for _, tbl := range tables {
		b.WriteString(r.Theme.Accent.Render(tbl.Name) + "\n")
		t := r.table("Column", "Type", "Key")
		for _, col := range tbl.Columns {
			key := ""
			if col.PrimaryKey {
				key = "PK"
			}
			t.Row(col.Name, col.Type, key)
		}
		b.WriteString(t.Render() + "\n")
	}
	return b.String()
}

func (r Renderer) Verification(results []game.Verification) string {
	t := r.table("#", "Mission", "Result", "Detail")
	for _, v := range results {
		result := r.Theme.Pass.Render("pass")
		if !v.Passed {
			result = r.Theme.Fail.Render("fail")
		}
		detail := v.Status
		if v.Error != "" {
			detail = v.Error
		}
		t.Row(strconv.Itoa(v.MissionID), fmt.Sprintf("%d.%d", v.Chapter, v.Mission), result, detail)
	}
	return t.Render() + "\n"
}

// FormatValue prints a result cell the way the engine would show it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
