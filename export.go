package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"bitrate-history/bitrate"
)

// JSONReport is the document written by --format json
type JSONReport struct {
	Source    string       `json:"source"`
	Mode      string       `json:"mode"`
	Timescale uint32       `json:"timescale"`
	Stats     JSONStats    `json:"stats"`
	Summary   JSONSummary  `json:"summary"`
	Buckets   []JSONBucket `json:"buckets"`
}

// JSONStats mirrors bitrate.Stats with durations in ticks and seconds
type JSONStats struct {
	DurationTicks  int64   `json:"duration_ticks"`
	DurationSec    float64 `json:"duration_sec"`
	TotalBytes     uint64  `json:"total_bytes"`
	Frames         uint64  `json:"frames"`
	AvgBitrateBps  uint64  `json:"avg_bitrate_bps"`
	MaxSizeBytes   uint64  `json:"max_size_bytes"`
	MaxSizeIndex   int     `json:"max_size_index"`
	MinSizeBytes   uint64  `json:"min_size_bytes"`
	MinSizeIndex   int     `json:"min_size_index"`
	PeakBitrateBps uint64  `json:"peak_bitrate_bps"`
	MinBitrateBps  uint64  `json:"min_bitrate_bps"`
}

// JSONSummary holds the bitrate distribution and keyframe intervals
type JSONSummary struct {
	P50BitrateBps    float64 `json:"p50_bitrate_bps"`
	P90BitrateBps    float64 `json:"p90_bitrate_bps"`
	P99BitrateBps    float64 `json:"p99_bitrate_bps"`
	P999BitrateBps   float64 `json:"p999_bitrate_bps"`
	StdDevBitrateBps float64 `json:"stddev_bitrate_bps"`
	Keyframes        int     `json:"keyframes"`
	MinGOPSec        float64 `json:"min_gop_sec,omitempty"`
	AvgGOPSec        float64 `json:"avg_gop_sec,omitempty"`
	MaxGOPSec        float64 `json:"max_gop_sec,omitempty"`
}

// JSONBucket is one resampled bucket
type JSONBucket struct {
	StartTicks    uint64  `json:"start_ticks"`
	StartSec      float64 `json:"start_sec"`
	DurationTicks uint64  `json:"duration_ticks"`
	SizeBytes     uint64  `json:"size_bytes"`
	BitrateBps    uint64  `json:"bitrate_bps"`
	Sync          bool    `json:"sync,omitempty"`
}

// WriteJSON writes the current stats, summary and the resampled series
func WriteJSON(w io.Writer, source, mode string, a *bitrate.Analyzer, series *bitrate.Sequence) error {
	stats := a.Stats()
	summary := BuildSummary(a)
	timescale := series.Timescale()

	report := JSONReport{
		Source:    source,
		Mode:      mode,
		Timescale: timescale,
		Stats: JSONStats{
			DurationTicks:  stats.TotalDuration.Ticks,
			DurationSec:    stats.TotalDuration.Seconds(),
			TotalBytes:     stats.TotalSize,
			Frames:         stats.NumOfFrames,
			AvgBitrateBps:  stats.AvgBitrateBps,
			MaxSizeBytes:   stats.MaxSizeBytes,
			MaxSizeIndex:   stats.MaxSizeIndex,
			MinSizeBytes:   stats.MinSizeBytes,
			MinSizeIndex:   stats.MinSizeIndex,
			PeakBitrateBps: stats.PeakBitrateBps,
			MinBitrateBps:  stats.MinBitrateBps,
		},
		Summary: JSONSummary{
			P50BitrateBps:    summary.P50Bitrate,
			P90BitrateBps:    summary.P90Bitrate,
			P99BitrateBps:    summary.P99Bitrate,
			P999BitrateBps:   summary.P999Bitrate,
			StdDevBitrateBps: summary.StdDevBitrate,
			Keyframes:        summary.Keyframes,
		},
		Buckets: make([]JSONBucket, 0, series.Len()),
	}
	if summary.GOPs > 0 {
		report.Summary.MinGOPSec = summary.MinGOP.Seconds()
		report.Summary.AvgGOPSec = summary.AvgGOP.Seconds()
		report.Summary.MaxGOPSec = summary.MaxGOP.Seconds()
	}

	for _, s := range series.All() {
		report.Buckets = append(report.Buckets, JSONBucket{
			StartTicks:    s.Timestamp,
			StartSec:      series.TimeOf(s.Timestamp).Seconds(),
			DurationTicks: s.Duration,
			SizeBytes:     s.Size,
			BitrateBps:    s.Bitrate(timescale),
			Sync:          s.Sync,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// WriteCSV exports the resampled series, one row per bucket
func WriteCSV(w io.Writer, mode string, series *bitrate.Sequence) error {
	writer := csv.NewWriter(w)

	header := []string{"mode", "index", "start_ticks", "start_sec", "duration_ticks", "size_bytes", "bitrate_bps", "sync"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	timescale := series.Timescale()
	for i, s := range series.All() {
		row := []string{
			mode,
			strconv.Itoa(i),
			strconv.FormatUint(s.Timestamp, 10),
			strconv.FormatFloat(series.TimeOf(s.Timestamp).Seconds(), 'f', 3, 64),
			strconv.FormatUint(s.Duration, 10),
			strconv.FormatUint(s.Size, 10),
			strconv.FormatUint(s.Bitrate(timescale), 10),
			strconv.FormatBool(s.Sync),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
