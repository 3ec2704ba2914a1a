package audio

// Waveform is a mono sequence of normalized samples in [-1, 1].
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Extract returns a copy of the samples between start and end seconds.
// Bounds are truncated to sample indices and clamped to the waveform; a start
// beyond end yields an empty slice.
func (w Waveform) Extract(start, end float64) Waveform {
	n := len(w.Samples)
	startSample := clamp(int(start*float64(w.SampleRate)), 0, n)
	endSample := clamp(int(end*float64(w.SampleRate)), 0, n)
	if startSample > endSample {
		startSample = endSample
	}
	out := make([]float32, endSample-startSample)
	copy(out, w.Samples[startSample:endSample])
	return Waveform{Samples: out, SampleRate: w.SampleRate}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Downmix averages interleaved channels into a mono signal.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		base := i * channels
		for c := range channels {
			sum += interleaved[base+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resample converts samples between rates with linear interpolation.
func Resample(input []float32, inputRate, outputRate int) []float32 {
	if inputRate == outputRate || inputRate <= 0 || outputRate <= 0 || len(input) == 0 {
		return input
	}
	ratio := float64(inputRate) / float64(outputRate)
	outputLength := int(float64(len(input)) / ratio)
	if outputLength == 0 {
		return []float32{}
	}
	output := make([]float32, outputLength)
	for i := 0; i < outputLength-1; i++ {
		pos := float64(i) * ratio
		indexBefore := int(pos)
		indexAfter := indexBefore + 1
		if indexAfter >= len(input) {
			indexAfter = len(input) - 1
		}
		frac := pos - float64(indexBefore)
		output[i] = float32((1-frac)*float64(input[indexBefore]) + frac*float64(input[indexAfter]))
	}
	output[outputLength-1] = input[len(input)-1]
	return output
}
