package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/choria-io/fisk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"bitrate-history/bitrate"
	"bitrate-history/logging"
)

var (
	version = "0.1.0"
)

// cliFlags holds raw flag values; zero values mean "not given" so that
// file and environment settings are only overridden by explicit flags
type cliFlags struct {
	ConfigFile  string
	Mode        string
	Window      time.Duration
	Width       int
	Height      int
	Format      string
	InputFormat string
	Timescale   uint32
	NoGraph     bool
	List        bool
	AllModes    bool
	MinPct      float64
	Cursor      string
	Metrics     bool
	LogLevel    string
	LogFormat   string
}

func main() {
	flags, path := parseFlags()

	overrides, err := flags.overrides()
	if err != nil {
		fisk.Fatalf("%v", err)
	}

	cfg, err := LoadConfig(flags.ConfigFile, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := run(cfg, path, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (*cliFlags, string) {
	f := &cliFlags{}
	var path string

	app := fisk.New("bitrate-history", "Chart the bitrate of an encoded video stream over time from its per-frame sizes")
	app.Version(version)

	app.Arg("file", "ffprobe -show_packets -show_streams JSON or a duration,timestamp,size,sync CSV; .gz/.zst accepted, - for stdin").
		Required().
		StringVar(&path)

	app.Flag("config", "YAML configuration file (or $BITRATE_CONFIG)").
		StringVar(&f.ConfigFile)

	app.Flag("mode", "Aggregation mode: time, gop or frame").
		Short('m').
		EnumVar(&f.Mode, "time", "gop", "frame")

	app.Flag("window", "Window length for time mode (default 1s)").
		Short('w').
		DurationVar(&f.Window)

	app.Flag("width", "Chart columns / export resolution (0 = terminal width, full series for exports)").
		IntVar(&f.Width)

	app.Flag("height", "Chart rows (default 12)").
		IntVar(&f.Height)

	app.Flag("format", "Output format: table, csv or json").
		Short('f').
		EnumVar(&f.Format, "table", "csv", "json")

	app.Flag("input-format", "Input format: auto, ffprobe or csv").
		EnumVar(&f.InputFormat, "auto", "ffprobe", "csv")

	app.Flag("timescale", "Ticks per second of CSV input").
		Uint32Var(&f.Timescale)

	app.Flag("no-graph", "Do not draw the column chart").
		UnNegatableBoolVar(&f.NoGraph)

	app.Flag("list", "List every bucket with a labeled bar").
		Short('l').
		UnNegatableBoolVar(&f.List)

	app.Flag("all-modes", "Compare stats across time, gop and frame modes").
		UnNegatableBoolVar(&f.AllModes)

	app.Flag("min-pct", "Hide listed buckets below this percentage of the peak bitrate").
		Float64Var(&f.MinPct)

	app.Flag("cursor", "Print the bucket at this fraction of the series (0 to 1)").
		StringVar(&f.Cursor)

	app.Flag("metrics", "Dump analyzer metrics to stderr on exit").
		UnNegatableBoolVar(&f.Metrics)

	app.Flag("log-level", "Log level: trace, debug, info, warn, error, disabled").
		StringVar(&f.LogLevel)

	app.Flag("log-format", "Log format: console or json").
		EnumVar(&f.LogFormat, "console", "json")

	app.MustParseWithUsage(os.Args[1:])

	if f.Window < 0 {
		fisk.Fatalf("--window must be positive")
	}
	if f.Width < 0 {
		fisk.Fatalf("--width must not be negative")
	}

	return f, path
}

// overrides returns the configuration keys set explicitly on the command line
func (f *cliFlags) overrides() (map[string]any, error) {
	o := map[string]any{}

	if f.Mode != "" {
		o["mode"] = f.Mode
	}
	if f.Window > 0 {
		o["window"] = f.Window
	}
	if f.Width > 0 {
		o["width"] = f.Width
	}
	if f.Height > 0 {
		o["height"] = f.Height
	}
	if f.Format != "" {
		o["format"] = f.Format
	}
	if f.InputFormat != "" {
		o["input_format"] = f.InputFormat
	}
	if f.Timescale > 0 {
		o["timescale"] = f.Timescale
	}
	if f.NoGraph {
		o["graph"] = false
	}
	if f.List {
		o["list"] = true
	}
	if f.AllModes {
		o["all_modes"] = true
	}
	if f.MinPct > 0 {
		o["min_pct"] = f.MinPct
	}
	if f.Cursor != "" {
		p, err := strconv.ParseFloat(f.Cursor, 64)
		if err != nil {
			return nil, fmt.Errorf("--cursor: invalid position %q", f.Cursor)
		}
		o["cursor"] = p
	}
	if f.Metrics {
		o["metrics"] = true
	}
	if f.LogLevel != "" {
		o["log.level"] = f.LogLevel
	}
	if f.LogFormat != "" {
		o["log.format"] = f.LogFormat
	}

	return o, nil
}

func run(cfg *Config, path string, out, errOut io.Writer) error {
	log := logging.With().Str("component", "main").Logger()

	reg := prometheus.NewRegistry()
	metrics := bitrate.NewMetrics(reg)
	if cfg.Metrics {
		defer func() {
			if err := dumpMetrics(errOut, reg); err != nil {
				log.Warn().Err(err).Msg("Failed to write metrics")
			}
		}()
	}

	var progress ProgressFunc
	if cfg.Format == "table" && stderrIsTerminal() {
		progress = PrintProgress
	}

	start := time.Now()
	records, err := LoadRecords(path, cfg.InputFormat, cfg.Timescale, progress)
	if progress != nil {
		ClearProgress()
	}
	if err != nil {
		return err
	}
	log.Debug().
		Str("file", path).
		Str("format", records.Format).
		Int("samples", len(records.Samples)).
		Dur("elapsed", time.Since(start)).
		Msg("Loaded records")

	a, err := bitrate.Load(records.Samples, records.Timescale,
		bitrate.WithLogger(logging.With().Str("component", "analyzer").Logger()),
		bitrate.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	mode, err := bitrate.ParseMode(cfg.Mode, cfg.Window)
	if err != nil {
		return err
	}
	if err := a.SwitchMode(mode); err != nil {
		return err
	}

	name := sourceName(path)

	switch cfg.Format {
	case "csv", "json":
		series := a.Series()
		if cfg.Width > 0 {
			if series, err = a.Resample(cfg.Width); err != nil {
				return err
			}
		}
		if cfg.Format == "csv" {
			return WriteCSV(out, mode.String(), series)
		}
		return WriteJSON(out, name, mode.String(), a, series)
	default:
		return printReport(out, cfg, name, a)
	}
}

// printReport writes the terminal report for the analyzer's current mode
func printReport(w io.Writer, cfg *Config, name string, a *bitrate.Analyzer) error {
	PrintReportHeader(w, name)
	summary := BuildSummary(a)
	PrintOverview(w, a.Stats(), summary)

	if cfg.AllModes {
		rows, err := compareModes(a, cfg.Window)
		if err != nil {
			return err
		}
		PrintModeComparison(w, rows)
	}

	PrintModeStats(w, cfg.ModeName(), a)
	PrintDistribution(w, summary)

	if cfg.Graph {
		width := cfg.Width
		if width == 0 {
			width = getGraphWidth(chartFixedCols)
		}
		series, err := a.Resample(width)
		if err != nil {
			return err
		}
		PrintChart(w, series, width, cfg.Height, a.Stats().MaxSizeBytes)
	}

	if cfg.List {
		PrintBucketList(w, a.Series(), getGraphWidth(listFixedCols), cfg.MinPct)
	}

	if cfg.Cursor >= 0 {
		a.OnSelectionChange(func(sel bitrate.Selection) {
			PrintSelection(w, sel)
		})
		a.SetCursor(cfg.Cursor)
	}

	return nil
}

// compareModes collects stats for each aggregation mode and restores the current one
func compareModes(a *bitrate.Analyzer, window time.Duration) ([]ModeRow, error) {
	current := a.Mode()

	timeMode, err := bitrate.ParseMode("time", window)
	if err != nil {
		return nil, err
	}

	rows := make([]ModeRow, 0, 3)
	for _, mode := range []bitrate.Mode{timeMode, bitrate.GOP(), bitrate.Frame()} {
		if err := a.SwitchMode(mode); err != nil {
			return nil, err
		}
		rows = append(rows, ModeRow{Label: mode.String(), Buckets: a.Series().Len(), Stats: a.Stats()})
	}

	if err := a.SwitchMode(current); err != nil {
		return nil, err
	}
	return rows, nil
}

// dumpMetrics writes every gathered metric family in text exposition format
func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func sourceName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}
