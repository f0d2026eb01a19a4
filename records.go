package main

import (
	"bufio"
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"bitrate-history/bitrate"
	"bitrate-history/logging"
)

const (
	inputAuto    = "auto"
	inputFFprobe = "ffprobe"
	inputCSV     = "csv"

	// progressEvery limits how often the progress callback fires
	progressEvery = 1000
)

// ProgressFunc is called to report progress during record decoding
type ProgressFunc func(current, total int)

// RecordSet is a decoded frame table ready for analysis
type RecordSet struct {
	Samples   []bitrate.Sample
	Timescale uint32
	Format    string
}

// LoadRecords opens path ("-" for stdin), decompresses .gz/.zst input and
// decodes it as ffprobe JSON or CSV. timescale is required for CSV input.
func LoadRecords(path, format string, timescale uint32, progress ProgressFunc) (*RecordSet, error) {
	var src io.Reader
	if path == "-" {
		src = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		src = f
	}

	r, inner, closeFn, err := decompress(src, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer closeFn()

	return DecodeRecords(r, detectFormat(format, inner), timescale, progress)
}

// DecodeRecords decodes an uncompressed stream. An "auto" format sniffs the
// first non-blank byte: '{' means ffprobe JSON, anything else CSV.
func DecodeRecords(r io.Reader, format string, timescale uint32, progress ProgressFunc) (*RecordSet, error) {
	br := bufio.NewReader(r)
	if format == inputAuto || format == "" {
		format = sniffFormat(br)
	}

	logging.Debug().Str("format", format).Msg("Decoding records")

	switch format {
	case inputFFprobe:
		return decodeFFprobe(br, progress)
	case inputCSV:
		return decodeCSV(br, timescale)
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

// decompress wraps src according to the file extension and returns the path
// with the compression suffix removed
func decompress(src io.Reader, path string) (io.Reader, string, func(), error) {
	noop := func() {}
	ext := strings.ToLower(filepath.Ext(path))
	inner := strings.TrimSuffix(path, filepath.Ext(path))

	switch ext {
	case ".gz", ".gzip":
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, "", noop, fmt.Errorf("gzip: %w", err)
		}
		return zr, inner, func() { zr.Close() }, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, "", noop, fmt.Errorf("zstd: %w", err)
		}
		return zr, inner, zr.Close, nil
	default:
		return src, path, noop, nil
	}
}

// detectFormat resolves "auto" from the file extension where possible
func detectFormat(format, path string) string {
	if format != inputAuto && format != "" {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return inputFFprobe
	case ".csv":
		return inputCSV
	}
	return inputAuto
}

func sniffFormat(br *bufio.Reader) string {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return inputCSV
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
		case '{':
			return inputFFprobe
		default:
			return inputCSV
		}
	}
}

// ffprobe -show_packets -show_streams -of json
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Packets []ffprobePacket `json:"packets"`
}

type ffprobeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	TimeBase  string `json:"time_base"`
}

type ffprobePacket struct {
	CodecType   string `json:"codec_type"`
	StreamIndex int    `json:"stream_index"`
	PTS         *int64 `json:"pts"`
	DTS         *int64 `json:"dts"`
	Duration    *int64 `json:"duration"`
	Size        string `json:"size"`
	Flags       string `json:"flags"`
}

func decodeFFprobe(r io.Reader, progress ProgressFunc) (*RecordSet, error) {
	var out ffprobeOutput
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode ffprobe JSON: %w", err)
	}

	stream, err := selectVideoStream(out.Streams)
	if err != nil {
		return nil, err
	}
	timescale, err := parseTimeBase(stream.TimeBase)
	if err != nil {
		return nil, fmt.Errorf("stream %d: %w", stream.Index, err)
	}

	packets := make([]ffprobePacket, 0, len(out.Packets))
	for _, p := range out.Packets {
		if p.StreamIndex == stream.Index {
			packets = append(packets, p)
		}
	}

	samples, err := packetsToSamples(packets, progress)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Int("stream", stream.Index).
		Uint32("timescale", timescale).
		Int("packets", len(samples)).
		Msg("Decoded ffprobe packets")

	return &RecordSet{Samples: samples, Timescale: timescale, Format: inputFFprobe}, nil
}

// selectVideoStream picks the first video stream, or the only stream
func selectVideoStream(streams []ffprobeStream) (ffprobeStream, error) {
	for _, s := range streams {
		if s.CodecType == "video" {
			return s, nil
		}
	}
	if len(streams) == 1 {
		return streams[0], nil
	}
	if len(streams) == 0 {
		return ffprobeStream{}, errors.New("ffprobe output has no streams (run with -show_streams)")
	}
	return ffprobeStream{}, fmt.Errorf("no video stream among %d streams", len(streams))
}

// parseTimeBase converts "1/90000" to a timescale of 90000 ticks per second
func parseTimeBase(tb string) (uint32, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(tb), "/")
	if !ok {
		return 0, fmt.Errorf("invalid time_base %q", tb)
	}
	n, err := strconv.ParseUint(num, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid time_base %q", tb)
	}
	d, err := strconv.ParseUint(den, 10, 32)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid time_base %q", tb)
	}
	if d%n != 0 {
		return 0, fmt.Errorf("time_base %q is not a whole number of ticks per second", tb)
	}
	return uint32(d / n), nil
}

type packetFrame struct {
	pts    int64
	dur    int64
	hasDur bool
	size   uint64
	sync   bool
}

// packetsToSamples converts decode-order packets to presentation-order samples
// with timestamps relative to the earliest pts
func packetsToSamples(packets []ffprobePacket, progress ProgressFunc) ([]bitrate.Sample, error) {
	if len(packets) == 0 {
		return nil, nil
	}

	frames := make([]packetFrame, 0, len(packets))
	var next int64
	for i, p := range packets {
		size, err := strconv.ParseUint(strings.TrimSpace(p.Size), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("packet %d: invalid size %q", i, p.Size)
		}
		f := packetFrame{size: size, sync: strings.ContainsRune(p.Flags, 'K')}
		switch {
		case p.PTS != nil:
			f.pts = *p.PTS
		case p.DTS != nil:
			f.pts = *p.DTS
		default:
			f.pts = next
		}
		if p.Duration != nil && *p.Duration >= 0 {
			f.dur = *p.Duration
			f.hasDur = true
		}
		next = f.pts + f.dur
		frames = append(frames, f)

		if progress != nil && (i+1)%progressEvery == 0 {
			progress(i+1, len(packets))
		}
	}
	if progress != nil {
		progress(len(packets), len(packets))
	}

	slices.SortStableFunc(frames, func(a, b packetFrame) int {
		return cmp.Compare(a.pts, b.pts)
	})

	// missing durations fall back to the distance to the next frame
	for i := range frames {
		if !frames[i].hasDur && i+1 < len(frames) {
			frames[i].dur = frames[i+1].pts - frames[i].pts
		}
	}

	base := frames[0].pts
	samples := make([]bitrate.Sample, len(frames))
	for i, f := range frames {
		samples[i] = bitrate.Sample{
			Duration:  uint64(max(f.dur, 0)),
			Timestamp: uint64(f.pts - base),
			Size:      f.size,
			Sync:      f.sync,
		}
	}
	return samples, nil
}

// csvColumns maps accepted header names to sample fields
var csvColumns = map[string]string{
	"duration":  "duration",
	"dur":       "duration",
	"timestamp": "timestamp",
	"pts":       "timestamp",
	"time":      "timestamp",
	"size":      "size",
	"bytes":     "size",
	"sync":      "sync",
	"keyframe":  "sync",
	"key":       "sync",
}

// decodeCSV reads duration,timestamp,size,sync rows in ticks of timescale.
// A header row is optional; without one the columns are taken in that order.
func decodeCSV(r io.Reader, timescale uint32) (*RecordSet, error) {
	if timescale == 0 {
		return nil, errors.New("csv input requires --timescale")
	}

	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	index := map[string]int{"duration": 0, "timestamp": 1, "size": 2, "sync": 3}
	var samples []bitrate.Sample

	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		if row == 1 && !isNumeric(record[0]) {
			index, err = headerIndex(record)
			if err != nil {
				return nil, err
			}
			continue
		}

		sample, err := parseCSVRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("CSV row %d: %w", row, err)
		}
		samples = append(samples, sample)
	}

	logging.Info().
		Uint32("timescale", timescale).
		Int("rows", len(samples)).
		Msg("Decoded CSV records")

	return &RecordSet{Samples: samples, Timescale: timescale, Format: inputCSV}, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, 4)
	for i, name := range header {
		if field, ok := csvColumns[strings.ToLower(strings.TrimSpace(name))]; ok {
			index[field] = i
		}
	}
	for _, field := range []string{"duration", "size"} {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("CSV header is missing a %s column", field)
		}
	}
	return index, nil
}

func parseCSVRecord(record []string, index map[string]int) (bitrate.Sample, error) {
	field := func(name string) (string, bool) {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	var s bitrate.Sample
	var err error

	v, _ := field("duration")
	if s.Duration, err = strconv.ParseUint(v, 10, 64); err != nil {
		return s, fmt.Errorf("invalid duration %q", v)
	}
	v, _ = field("size")
	if s.Size, err = strconv.ParseUint(v, 10, 64); err != nil {
		return s, fmt.Errorf("invalid size %q", v)
	}
	if v, ok := field("timestamp"); ok && v != "" {
		if s.Timestamp, err = strconv.ParseUint(v, 10, 64); err != nil {
			return s, fmt.Errorf("invalid timestamp %q", v)
		}
	}
	if v, ok := field("sync"); ok && v != "" {
		if s.Sync, err = parseSync(v); err != nil {
			return s, err
		}
	}
	return s, nil
}

func parseSync(v string) (bool, error) {
	switch strings.ToUpper(v) {
	case "K", "Y", "YES":
		return true, nil
	case "N", "NO", "-":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid sync flag %q", v)
	}
	return b, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return err == nil
}
