package audioasm

import (
	"math"
	"math/rand"
	"time"
)

// snippetEdge keeps random snippet starts clear of the very beginning and
// end of a preview, where fades and trailing silence live.
const snippetEdge = 10 * time.Second

// SamplesFor returns the exact number of sample frames covering d at the
// given rate. All offset math in the assembler goes through this function
// so the audio buffer and the timeline can never drift apart.
func SamplesFor(d time.Duration, rate int) int {
	return int(int64(d) * int64(rate) / int64(time.Second))
}

// Silence returns an interleaved zero buffer of duration d.
func Silence(d time.Duration, rate, channels int) []int16 {
	return make([]int16, SamplesFor(d, rate)*channels)
}

// ApplyFades applies a linear fade-in and fade-out of the given length to
// the edges of an interleaved buffer, in place. Fades longer than half the
// buffer are clamped.
func ApplyFades(samples []int16, fade time.Duration, rate, channels int) {
	if channels < 1 {
		return
	}
	frames := len(samples) / channels
	fadeFrames := SamplesFor(fade, rate)
	if fadeFrames > frames/2 {
		fadeFrames = frames / 2
	}
	if fadeFrames <= 0 {
		return
	}

	for f := 0; f < fadeFrames; f++ {
		gain := float64(f) / float64(fadeFrames)
		for ch := 0; ch < channels; ch++ {
			i := f*channels + ch
			samples[i] = int16(float64(samples[i]) * gain)

			j := (frames-1-f)*channels + ch
			samples[j] = int16(float64(samples[j]) * gain)
		}
	}
}

// Normalize scales the buffer so its peak sits just under full scale
// (0.1 dB headroom), in place. A silent buffer is left untouched.
func Normalize(samples []int16) {
	var peak int32
	for _, s := range samples {
		v := int32(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return
	}

	target := 32767.0 * math.Pow(10, -0.1/20)
	gain := target / float64(peak)
	for i, s := range samples {
		v := float64(s) * gain
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples[i] = int16(v)
	}
}

// SnippetStart picks a random start offset for a snippet within a preview
// of the given total length, avoiding the first and last ten seconds when
// the preview is long enough. Short previews always start at zero.
func SnippetStart(total, snippet time.Duration, rng *rand.Rand) time.Duration {
	slack := total - snippet - 2*snippetEdge
	if slack <= 0 {
		return 0
	}
	return snippetEdge + time.Duration(rng.Int63n(int64(slack)))
}
