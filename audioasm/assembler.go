package audioasm

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"path/filepath"
	"time"

	"blind-test-pipeline/config"
	"blind-test-pipeline/types"
)

// DownloadError reports a failed preview fetch or decode for one track.
// The assembler aborts the run on the first such failure: skipping a track
// would silently change the advertised track count and shift every later
// segment offset.
type DownloadError struct {
	Track types.Track
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Track.Label(), e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Downloader fetches a URL to a local file.
type Downloader interface {
	Download(ctx context.Context, srcURL, dest string) error
}

// Program is the assembled audio buffer plus the timeline describing it.
// Invariant: len(PCM) equals Channels × the summed per-segment sample
// counts of Timeline.
type Program struct {
	PCM      []int16
	Timeline types.Timeline
}

// Assembler builds the blind-test audio program from track previews.
type Assembler struct {
	cfg    *config.Config
	dl     Downloader
	decode DecodeFunc
	tmpDir string
	rng    *rand.Rand
}

// NewAssembler creates an assembler that downloads previews into tmpDir and
// decodes them with ffmpeg.
func NewAssembler(cfg *config.Config, dl Downloader, tmpDir string, rng *rand.Rand) *Assembler {
	return &Assembler{
		cfg:    cfg,
		dl:     dl,
		decode: FFmpegDecoder(cfg.Audio.SampleRate, cfg.Audio.Channels),
		tmpDir: tmpDir,
		rng:    rng,
	}
}

// Build downloads, trims and fades each track's preview, then concatenates
// snippets and silences into one PCM buffer with its parallel timeline.
func (a *Assembler) Build(ctx context.Context, tracks []types.Track) (*Program, error) {
	rate := a.cfg.Audio.SampleRate
	channels := a.cfg.Audio.Channels

	snippets := make([][]int16, len(tracks))
	for i, tr := range tracks {
		log.Printf("[audio] track %d/%d: %s", i+1, len(tracks), tr.Label())

		dest := filepath.Join(a.tmpDir, fmt.Sprintf("track_%02d_%d.m4a", i+1, tr.ID))
		if err := a.dl.Download(ctx, tr.PreviewURL, dest); err != nil {
			return nil, &DownloadError{Track: tr, Err: err}
		}

		samples, err := a.decode(dest)
		if err != nil {
			return nil, &DownloadError{Track: tr, Err: err}
		}

		Normalize(samples)
		snippets[i] = a.cutSnippet(samples, rate, channels)
		ApplyFades(snippets[i], a.cfg.Audio.Fade(), rate, channels)
	}

	tl := BuildTimeline(a.cfg.Run, len(tracks))

	var totalSamples int
	for _, seg := range tl {
		totalSamples += SamplesFor(seg.Length, rate) * channels
	}

	pcm := make([]int16, 0, totalSamples)
	for _, seg := range tl {
		if seg.Kind == types.SegmentSnippet {
			pcm = append(pcm, snippets[seg.TrackIndex]...)
			continue
		}
		pcm = append(pcm, Silence(seg.Length, rate, channels)...)
	}

	log.Printf("[audio] program assembled: %d segments, %.1fs", len(tl), tl.TotalDuration().Seconds())
	return &Program{PCM: pcm, Timeline: tl}, nil
}

// cutSnippet extracts exactly one snippet worth of frames from a decoded
// preview, starting at a random offset clear of the edges. Previews shorter
// than the snippet are zero-padded at the tail.
func (a *Assembler) cutSnippet(samples []int16, rate, channels int) []int16 {
	want := SamplesFor(a.cfg.Run.Snippet(), rate) * channels
	out := make([]int16, want)

	frames := len(samples) / channels
	total := time.Duration(frames) * time.Second / time.Duration(rate)
	start := SamplesFor(SnippetStart(total, a.cfg.Run.Snippet(), a.rng), rate) * channels

	if start > len(samples) {
		start = 0
	}
	copy(out, samples[start:])
	return out
}

// BuildTimeline lays out the program: intro, then snippet+pause per track,
// then one answer segment per track, then outro. Zero-length segments are
// omitted. Offsets are exact sums of the configured durations.
func BuildTimeline(run config.RunConfig, numTracks int) types.Timeline {
	var tl types.Timeline
	var cursor time.Duration

	add := func(kind types.SegmentKind, length time.Duration, trackIndex int) {
		if length <= 0 {
			return
		}
		tl = append(tl, types.Segment{Kind: kind, Start: cursor, Length: length, TrackIndex: trackIndex})
		cursor += length
	}

	add(types.SegmentIntro, run.Intro(), -1)
	for i := 0; i < numTracks; i++ {
		add(types.SegmentSnippet, run.Snippet(), i)
		add(types.SegmentPause, run.Pause(), i)
	}
	for i := 0; i < numTracks; i++ {
		add(types.SegmentAnswer, run.Answer(), i)
	}
	add(types.SegmentOutro, run.Outro(), -1)

	return tl
}
