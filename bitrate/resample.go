package bitrate

// Resample maps series onto blocks of blockSize = len/resolution samples for
// drawing.
//
// Nothing is gained when blockSize <= 1 and series itself is returned.
// Otherwise the series is cut into consecutive blocks of blockSize samples and
// the len%blockSize leftover samples join the final block, so no bucket holds
// more than 2*blockSize-1 samples. Each bucket keeps the summed duration, the
// first timestamp and the largest size of its block, so spikes stay visible at
// low resolution.
func Resample(series *Sequence, resolution int) (*Sequence, error) {
	if resolution <= 0 {
		return nil, ErrInvalidResolution
	}
	if series.Len() == 0 {
		return nil, ErrEmptySequence
	}

	blockSize := series.Len() / resolution
	if blockSize <= 1 {
		return series, nil
	}

	samples := series.samples
	blocks := len(samples) / blockSize
	out := make([]Sample, 0, blocks)
	for b := range blocks {
		from := b * blockSize
		to := from + blockSize
		if b == blocks-1 {
			to = len(samples)
		}
		out = append(out, peak(samples[from:to]))
	}
	return newSequence(out, series.timescale), nil
}

// peak reduces a non-empty block to one sample carrying its maximum size
func peak(block []Sample) Sample {
	out := Sample{Timestamp: block[0].Timestamp}
	for _, s := range block {
		out.Duration += s.Duration
		out.Size = max(out.Size, s.Size)
	}
	return out
}

// resampleCache memoizes one resample result. It is only valid for the exact
// source series it was computed from; the Analyzer drops it on every mode switch.
type resampleCache struct {
	resolution int
	source     *Sequence
	result     *Sequence
}

func (c *resampleCache) lookup(source *Sequence, resolution int) (*Sequence, bool) {
	if c == nil || c.source != source || c.resolution != resolution {
		return nil, false
	}
	return c.result, true
}
