package main

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"bitrate-history/bitrate"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	a := loadAnalyzer(t, frameSamples(), bitrate.Frame())
	var buf bytes.Buffer
	if err := WriteCSV(&buf, a.Mode().String(), a.Series()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to read back CSV: %v", err)
	}
	if len(rows) != 11 {
		t.Fatalf("expected header + 10 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "mode,index,start_ticks,start_sec,duration_ticks,size_bytes,bitrate_bps,sync" {
		t.Errorf("header = %v", rows[0])
	}

	want := []string{"frame", "6", "600", "0.600", "100", "70", "5600", "false"}
	for i, v := range want {
		if rows[7][i] != v {
			t.Errorf("row 7 = %v, want %v", rows[7], want)
			break
		}
	}
	if rows[1][7] != "true" {
		t.Errorf("first frame should be a keyframe: %v", rows[1])
	}
}

func TestWriteCSVResampled(t *testing.T) {
	t.Parallel()

	a := loadAnalyzer(t, frameSamples(), bitrate.Frame())
	series, err := a.Resample(3)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, "frame", series); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to read back CSV: %v", err)
	}

	// peak-preserving buckets of 3, 3 and 4 frames
	wantSizes := []string{"20", "40", "70"}
	wantDurations := []string{"300", "300", "400"}
	if len(rows) != 4 {
		t.Fatalf("expected 3 buckets, got %d rows", len(rows)-1)
	}
	for i := range wantSizes {
		if rows[i+1][5] != wantSizes[i] || rows[i+1][4] != wantDurations[i] {
			t.Errorf("bucket %d = %v", i, rows[i+1])
		}
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	a := loadAnalyzer(t, frameSamples(), bitrate.GOP())
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "clip.json", a.Mode().String(), a, a.Series()); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var report JSONReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v\n%s", err, buf.String())
	}

	if report.Source != "clip.json" || report.Mode != "gop" || report.Timescale != 1000 {
		t.Errorf("header = %s/%s/%d", report.Source, report.Mode, report.Timescale)
	}
	if report.Stats.Frames != 10 || report.Stats.TotalBytes != 200 || report.Stats.AvgBitrateBps != 1600 {
		t.Errorf("stats = %+v", report.Stats)
	}
	if report.Stats.MaxSizeBytes != 120 || report.Stats.MaxSizeIndex != 1 {
		t.Errorf("max = %d@%d, want 120@1", report.Stats.MaxSizeBytes, report.Stats.MaxSizeIndex)
	}
	if report.Summary.Keyframes != 2 || report.Summary.AvgGOPSec != 0.4 {
		t.Errorf("summary = %+v", report.Summary)
	}

	if len(report.Buckets) != 2 {
		t.Fatalf("expected 2 GOP buckets, got %d", len(report.Buckets))
	}
	second := report.Buckets[1]
	if second.StartTicks != 400 || second.DurationTicks != 600 || second.SizeBytes != 120 || second.BitrateBps != 1600 {
		t.Errorf("second bucket = %+v", second)
	}
	if second.Sync {
		t.Error("aggregated buckets are never sync points")
	}
	if !strings.Contains(buf.String(), "\n  \"stats\"") {
		t.Errorf("expected indented output:\n%s", buf.String())
	}
}
