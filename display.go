package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"bitrate-history/bitrate"
)

const (
	headerWidth      = 70
	progressBarWidth = 30
	// Fixed column widths for the chart: "  " + axis label(10) + " ┤"
	chartFixedCols = 2 + 10 + 2
	// Fixed column widths for the listing: "  " + time(12) + " | "
	listFixedCols = 2 + 12 + 3
)

// eighth-height block glyphs, index 0 is empty
var columnGlyphs = []rune(" ▁▂▃▄▅▆▇█")

// buildLabeledBar creates a bar with label right-aligned, inverted where it overlaps the bar
func buildLabeledBar(graphWidth, barLen int, label string) string {
	if graphWidth <= 0 {
		return ""
	}
	isBar := make([]bool, graphWidth)
	barChars := make([]rune, graphWidth)
	for i := range barChars {
		barChars[i] = ' '
	}

	for i := 0; i < barLen && i < graphWidth; i++ {
		barChars[i] = '▓'
		isBar[i] = true
	}

	labelRunes := []rune(label)
	labelPos := max(graphWidth-len(labelRunes), 0)
	for i, r := range labelRunes {
		if labelPos+i < graphWidth {
			barChars[labelPos+i] = r
		}
	}

	// Build final string with ANSI codes for inverted text on bar
	var result strings.Builder
	inInverse := false
	for i := 0; i < graphWidth; i++ {
		isOnBar := isBar[i] && i >= labelPos && i < labelPos+len(labelRunes)
		if isOnBar && !inInverse {
			result.WriteString("\033[7m")
			inInverse = true
		} else if !isOnBar && inInverse {
			result.WriteString("\033[0m")
			inInverse = false
		}
		result.WriteRune(barChars[i])
	}
	if inInverse {
		result.WriteString("\033[0m")
	}

	return result.String()
}

// printGraphScale prints a scale line for a graph with tick marks at 0%, 50%, and 100%
func printGraphScale(w io.Writer, prefix string, graphWidth int, maxValue float64, unit string) {
	printScale(w, prefix, graphWidth, "0", formatScaleValue(maxValue*0.5), formatScaleValue(maxValue)+" "+unit)
}

// printScale prints tick marks at 0%, 50% and 100% with the given labels below
func printScale(w io.Writer, prefix string, graphWidth int, start, mid, end string) {
	if graphWidth <= 0 {
		return
	}
	pos50 := graphWidth / 2

	scaleLine := []byte(strings.Repeat(" ", graphWidth))
	scaleLine[0] = '|'
	if pos50 > 0 {
		scaleLine[pos50] = '|'
	}
	scaleLine[graphWidth-1] = '|'
	fmt.Fprintf(w, "%s%s\n", prefix, string(scaleLine))

	labelLine := []byte(strings.Repeat(" ", graphWidth))
	copy(labelLine, start)

	mid50 := max(pos50-len(mid)/2, len(start)+1)
	if mid50+len(mid) <= graphWidth {
		copy(labelLine[mid50:], mid)
	}

	endPos := graphWidth - len(end)
	if endPos > mid50+len(mid) {
		copy(labelLine[endPos:], end)
	}

	fmt.Fprintf(w, "%s%s\n", prefix, strings.TrimRight(string(labelLine), " "))
}

// formatScaleValue formats a value for scale display
func formatScaleValue(v float64) string {
	if v >= 1000000 {
		return fmt.Sprintf("%.1fM", v/1000000)
	}
	if v >= 1000 {
		return fmt.Sprintf("%.1fK", v/1000)
	}
	if v >= 100 {
		return fmt.Sprintf("%.0f", v)
	}
	if v >= 10 {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// getTerminalWidth returns the terminal width, or a default if it can't be determined
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120 // default width
	}
	return width
}

// getGraphWidth calculates the available width for the graph based on terminal size
func getGraphWidth(fixedCols int) int {
	graphWidth := getTerminalWidth() - fixedCols
	if graphWidth < 20 {
		graphWidth = 20 // minimum graph width
	}
	return graphWidth
}

// stderrIsTerminal reports whether progress output would reach a terminal
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// PrintProgress prints a progress bar to stderr
func PrintProgress(current, total int) {
	if total == 0 {
		return
	}
	pct := float64(current) / float64(total)
	filled := min(int(pct*float64(progressBarWidth)), progressBarWidth)
	empty := progressBarWidth - filled
	fmt.Fprintf(os.Stderr, "\r  [%s%s] %s/%s (%.0f%%)",
		strings.Repeat("█", filled),
		strings.Repeat("░", empty),
		humanize.Comma(int64(current)), humanize.Comma(int64(total)), pct*100)
}

// ClearProgress clears the progress bar line
func ClearProgress() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", 60))
}

// PrintReportHeader prints the report banner
func PrintReportHeader(w io.Writer, name string) {
	fmt.Fprintln(w, strings.Repeat("=", headerWidth))
	fmt.Fprintf(w, "BITRATE REPORT: %s\n", name)
	fmt.Fprintln(w, strings.Repeat("=", headerWidth))
	fmt.Fprintln(w)
}

// PrintOverview prints the totals that do not depend on the aggregation mode
func PrintOverview(w io.Writer, stats bitrate.Stats, summary BitrateSummary) {
	fmt.Fprintln(w, "Overview:")
	fmt.Fprintf(w, "  Duration:                      %s (%s)\n",
		formatTimecode(stats.TotalDuration), formatDuration(stats.TotalDuration.Duration()))
	fmt.Fprintf(w, "  Timescale:                     %s ticks/s\n", humanize.Comma(int64(stats.TotalDuration.Timescale)))
	fmt.Fprintf(w, "  Frames:                        %s (keyframes: %s)\n",
		humanize.Comma(int64(stats.NumOfFrames)), humanize.Comma(int64(summary.Keyframes)))
	fmt.Fprintf(w, "  Total Data:                    %s\n", formatBytes(stats.TotalSize))
	fmt.Fprintf(w, "  Average Bitrate:               %s\n", formatBitrate(stats.AvgBitrateBps))
	fmt.Fprintln(w)

	if summary.GOPs > 0 {
		fmt.Fprintln(w, "  Keyframe Interval:")
		fmt.Fprintf(w, "    GOPs:           %s\n", humanize.Comma(int64(summary.GOPs)))
		fmt.Fprintf(w, "    Min:            %s\n", formatDuration(summary.MinGOP.Duration()))
		fmt.Fprintf(w, "    Average:        %s\n", formatDuration(summary.AvgGOP.Duration()))
		fmt.Fprintf(w, "    Max:            %s\n", formatDuration(summary.MaxGOP.Duration()))
		fmt.Fprintln(w)
	}
}

// PrintModeStats prints the per-mode extremes of the current series
func PrintModeStats(w io.Writer, label string, a *bitrate.Analyzer) {
	stats := a.Stats()
	series := a.Series()
	maxAt := series.TimeOf(series.At(stats.MaxSizeIndex).Timestamp)
	minAt := series.TimeOf(series.At(stats.MinSizeIndex).Timestamp)

	fmt.Fprintf(w, "Mode: %s\n", label)
	fmt.Fprintf(w, "  Buckets:                       %s\n", humanize.Comma(int64(series.Len())))
	fmt.Fprintf(w, "  Max Size:                      %s (#%d at %s)\n", formatBytes(stats.MaxSizeBytes), stats.MaxSizeIndex, formatTimecode(maxAt))
	fmt.Fprintf(w, "  Min Size:                      %s (#%d at %s)\n", formatBytes(stats.MinSizeBytes), stats.MinSizeIndex, formatTimecode(minAt))
	fmt.Fprintf(w, "  Peak Bitrate:                  %s\n", formatBitrate(stats.PeakBitrateBps))
	fmt.Fprintf(w, "  Min Bitrate:                   %s\n", formatBitrate(stats.MinBitrateBps))
	fmt.Fprintln(w)
}

// PrintDistribution prints percentiles of per-bucket bitrate
func PrintDistribution(w io.Writer, summary BitrateSummary) {
	if summary.Buckets == 0 {
		return
	}
	fmt.Fprintln(w, "  Bitrate Distribution:")
	fmt.Fprintf(w, "    Average:        %s\n", formatBitrateFloat(summary.AvgBitrate))
	fmt.Fprintf(w, "    P50:            %s\n", formatBitrateFloat(summary.P50Bitrate))
	fmt.Fprintf(w, "    P90:            %s\n", formatBitrateFloat(summary.P90Bitrate))
	fmt.Fprintf(w, "    P99:            %s\n", formatBitrateFloat(summary.P99Bitrate))
	fmt.Fprintf(w, "    P99.9:          %s\n", formatBitrateFloat(summary.P999Bitrate))
	fmt.Fprintf(w, "    Min:            %s\n", formatBitrateFloat(summary.MinBitrate))
	fmt.Fprintf(w, "    Max:            %s\n", formatBitrateFloat(summary.MaxBitrate))
	fmt.Fprintf(w, "    Std Dev:        %s\n", formatBitrateFloat(summary.StdDevBitrate))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Bucket Size:")
	fmt.Fprintf(w, "    Average:        %s\n", formatBytes(uint64(summary.AvgSize)))
	fmt.Fprintf(w, "    Std Dev:        %s\n", formatBytes(uint64(summary.StdDevSize)))
	fmt.Fprintln(w)
}

// ModeRow is one line of the mode comparison table
type ModeRow struct {
	Label   string
	Buckets int
	Stats   bitrate.Stats
}

// PrintModeComparison prints one row of stats per aggregation mode
func PrintModeComparison(w io.Writer, rows []ModeRow) {
	fmt.Fprintln(w, "Mode Comparison:")
	fmt.Fprintf(w, "  %-24s %9s %11s %11s %13s %13s\n", "Mode", "Buckets", "Max Size", "Min Size", "Peak", "Min")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 24+9+11+11+13+13+5))
	for _, row := range rows {
		fmt.Fprintf(w, "  %-24s %9s %11s %11s %13s %13s\n",
			row.Label,
			humanize.Comma(int64(row.Buckets)),
			formatBytes(row.Stats.MaxSizeBytes),
			formatBytes(row.Stats.MinSizeBytes),
			formatBitrate(row.Stats.PeakBitrateBps),
			formatBitrate(row.Stats.MinBitrateBps))
	}
	fmt.Fprintln(w)
}

// PrintChart draws series as a column chart of height rows and width columns.
// Columns are laid out by duration; where buckets share a column the largest wins.
func PrintChart(w io.Writer, series *bitrate.Sequence, width, height int, maxSize uint64) {
	if series.Len() == 0 || width <= 0 || height <= 0 {
		return
	}

	cols := chartColumns(series, width)
	if maxSize == 0 {
		for _, c := range cols {
			maxSize = max(maxSize, c)
		}
	}

	levels := make([]int, width)
	for i, c := range cols {
		if maxSize == 0 {
			break
		}
		levels[i] = int(c * uint64(height*8) / maxSize)
		if c > 0 && levels[i] == 0 {
			levels[i] = 1
		}
	}

	fmt.Fprintln(w, "  Size per bucket:")
	for row := height - 1; row >= 0; row-- {
		label := ""
		switch row {
		case height - 1:
			label = formatBytes(maxSize)
		case height / 2:
			if height > 2 {
				label = formatBytes(maxSize / 2)
			}
		case 0:
			label = "0"
		}

		var line strings.Builder
		for _, level := range levels {
			cell := min(max(level-row*8, 0), 8)
			line.WriteRune(columnGlyphs[cell])
		}
		fmt.Fprintf(w, "  %10s ┤%s\n", label, line.String())
	}

	total := series.Totals().Duration
	mid := series.TimeOf(uint64(total.Ticks / 2))
	printScale(w, fmt.Sprintf("  %10s  ", ""), width,
		formatTimecode(series.TimeOf(0)), formatTimecode(mid), formatTimecode(total))
	fmt.Fprintln(w)
}

// chartColumns spreads buckets over width columns in proportion to their
// duration and keeps the largest size that touches each column
func chartColumns(series *bitrate.Sequence, width int) []uint64 {
	cols := make([]uint64, width)

	weight := func(s bitrate.Sample) uint64 { return s.Duration }
	total := uint64(series.Totals().Duration.Ticks)
	if total == 0 {
		weight = func(bitrate.Sample) uint64 { return 1 }
		total = uint64(series.Len())
	}

	var elapsed uint64
	for _, s := range series.All() {
		from := int(elapsed * uint64(width) / total)
		elapsed += weight(s)
		to := int((elapsed*uint64(width) + total - 1) / total)
		if to <= from {
			to = from + 1
		}
		for c := from; c < to && c < width; c++ {
			cols[c] = max(cols[c], s.Size)
		}
	}
	return cols
}

// PrintBucketList prints one labeled bar per bucket, hiding buckets below
// minPct of the peak bitrate
func PrintBucketList(w io.Writer, series *bitrate.Sequence, graphWidth int, minPct float64) {
	if series.Len() == 0 {
		return
	}
	timescale := series.Timescale()

	var maxRate uint64
	for _, s := range series.All() {
		maxRate = max(maxRate, s.Bitrate(timescale))
	}
	if maxRate == 0 {
		fmt.Fprintln(w, "  No data in any bucket")
		fmt.Fprintln(w)
		return
	}
	threshold := float64(maxRate) * minPct / 100.0

	fmt.Fprintf(w, "  Bitrate per bucket (hiding < %.1f%% of peak)\n", minPct)
	fmt.Fprintf(w, "  %-12s | %s\n", "Time", "Bitrate / Size")
	fmt.Fprintf(w, "  %s-+-%s\n", strings.Repeat("-", 12), strings.Repeat("-", graphWidth))

	scalePrefix := fmt.Sprintf("  %-12s | ", "")
	printGraphScale(w, scalePrefix, graphWidth, float64(maxRate), "bps")

	var (
		skipStart    bitrate.RationalTime
		skipDuration uint64
		skipCount    int
	)
	printSkipped := func() {
		if skipCount == 0 {
			return
		}
		durationStr := "+" + formatDuration(series.TimeOf(skipDuration).Duration())
		msg := fmt.Sprintf("... %d skipped %s ...", skipCount, durationStr)
		fmt.Fprintf(w, "  %-12s | %-*s\n", formatTimecode(skipStart), graphWidth, msg)
		skipCount = 0
		skipDuration = 0
	}

	for _, s := range series.All() {
		rate := s.Bitrate(timescale)
		if s.Duration == 0 || float64(rate) < threshold {
			if skipCount == 0 {
				skipStart = series.TimeOf(s.Timestamp)
			}
			skipDuration += s.Duration
			skipCount++
			continue
		}
		printSkipped()

		barLen := int(float64(rate) / float64(maxRate) * float64(graphWidth))
		label := formatBitrate(rate) + " " + formatBytes(s.Size)
		bar := buildLabeledBar(graphWidth, barLen, label)
		fmt.Fprintf(w, "  %-12s | %s\n", formatTimecode(series.TimeOf(s.Timestamp)), bar)
	}
	printSkipped()

	printGraphScale(w, scalePrefix, graphWidth, float64(maxRate), "bps")
	fmt.Fprintln(w)
}

// PrintSelection prints the cursor read-out
func PrintSelection(w io.Writer, sel bitrate.Selection) {
	kind := "bucket"
	if sel.Sample.Sync {
		kind = "keyframe"
	}
	fmt.Fprintf(w, "Cursor %.1f%%: %s #%d at %s, %s over %s, %s\n",
		sel.Position*100,
		kind,
		sel.Index,
		formatTimecode(sel.Start),
		formatBytes(sel.Sample.Size),
		formatDuration(bitrate.RationalTime{Ticks: int64(sel.Sample.Duration), Timescale: sel.Start.Timescale}.Duration()),
		formatBitrate(sel.Bitrate))
}

// formatTimecode renders t as HH:MM:SS:mmm, or MM:SS:mmm below an hour
func formatTimecode(t bitrate.RationalTime) string {
	ms, err := t.ConvertScale(1000)
	if err != nil {
		return t.String()
	}
	total := ms.Ticks
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	hours := total / 3_600_000
	mins := total / 60_000 % 60
	secs := total / 1000 % 60
	millis := total % 1000
	if hours > 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d:%03d", sign, hours, mins, secs, millis)
	}
	return fmt.Sprintf("%s%02d:%02d:%03d", sign, mins, secs, millis)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := d.Seconds() - float64(mins*60)
		return fmt.Sprintf("%dm%.1fs", mins, secs)
	}

	hours := int(d.Hours())
	mins := int(d.Minutes()) - hours*60
	secs := d.Seconds() - float64(hours*3600) - float64(mins*60)
	return fmt.Sprintf("%dh%dm%.1fs", hours, mins, secs)
}

// formatBytes formats bytes in human-readable form
func formatBytes(b uint64) string {
	return humanize.IBytes(b)
}

// formatBitrate formats bits per second with an SI prefix, e.g. "1.6 kbps"
func formatBitrate(bps uint64) string {
	return formatBitrateFloat(float64(bps))
}

func formatBitrateFloat(bps float64) string {
	return humanize.SIWithDigits(bps, 1, "bps")
}
