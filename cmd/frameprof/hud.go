package main

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"go.jacobcolvin.com/frameprof/log"
	"go.jacobcolvin.com/frameprof/procstat"
	"go.jacobcolvin.com/frameprof/profiler"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	hotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
)

// hotFrameMs marks rows whose last frame exceeded this cost, in ms.
const hotFrameMs = 8.0

// renderOverlay builds the profiler view: the scope trees for the render
// thread and all other threads, process resource usage, and a log tail.
func renderOverlay(prof *profiler.Profiler, sampler *procstat.Sampler, ring *log.Ring, cols, rows int) string {
	snap := prof.GetProfileData()

	var b strings.Builder

	status := "recording"
	if !prof.IsEnabled() {
		status = "paused"
	}

	b.WriteString(titleStyle.Render("frameprof"))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(status))
	b.WriteString(headerStyle.Render("  [tab] scene  [p] pause  [c] clear  [q] quit"))
	b.WriteString("\n\n")

	nameWidth := cols - 58
	if nameWidth < 16 {
		nameWidth = 16
	}

	header := fmt.Sprintf("%-*s %8s %8s %8s %6s %6s %6s",
		nameWidth, "scope", "last ms", "avg ms", "max ms", "%par", "%tot", "calls")

	writeSection := func(title string, tree []profiler.Row) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(header))
		b.WriteString("\n")

		if len(tree) == 0 {
			b.WriteString(rowStyle.Render("  (no samples)"))
			b.WriteString("\n")
		}

		for _, row := range tree {
			e := row.Entry

			name := strings.Repeat("  ", e.Depth) + e.Name
			if len(name) > nameWidth {
				name = name[:nameWidth]
			}

			line := fmt.Sprintf("%-*s %8.2f %8.2f %8.2f %6.1f %6.1f %6.1f",
				nameWidth, name,
				e.TotalTime, e.RollingTime, e.MaxTime,
				e.ParentPercentage, e.TotalPercentage, e.RollingCalls)

			style := rowStyle
			if e.TotalTime > hotFrameMs {
				style = hotStyle
			}

			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}

		b.WriteString("\n")
	}

	writeSection("render thread", snap.Render)
	writeSection("other threads", snap.Other)

	sample := sampler.Latest()
	b.WriteString(sectionStyle.Render("process"))
	b.WriteString("\n")
	b.WriteString(rowStyle.Render(fmt.Sprintf(
		"cpu %5.1f%%  rss %s  heap %s  threads %d  goroutines %d",
		sample.CPUPercent,
		formatBytes(sample.RSSBytes),
		formatBytes(sample.HeapBytes),
		sample.Threads,
		sample.Goroutines)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("log"))
	b.WriteString("\n")

	lines := ring.Lines()

	// Fit the tail into whatever vertical space remains.
	used := strings.Count(b.String(), "\n") + 1
	avail := rows - used
	if avail < 1 {
		avail = 1
	}

	if len(lines) > avail {
		lines = lines[len(lines)-avail:]
	}

	for _, line := range lines {
		b.WriteString(logStyle.Render(line))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatBytes(n uint64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMG"[exp])
}
