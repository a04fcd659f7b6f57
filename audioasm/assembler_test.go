package audioasm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blind-test-pipeline/config"
	"blind-test-pipeline/types"
)

// fakeDownloader records requested URLs and creates empty files; fakeDecode
// supplies synthetic PCM so tests run without ffmpeg or network.
type fakeDownloader struct {
	failURL string
	calls   []string
}

func (f *fakeDownloader) Download(_ context.Context, srcURL, dest string) error {
	f.calls = append(f.calls, srcURL)
	if srcURL == f.failURL {
		return errors.New("connection reset")
	}
	return os.WriteFile(dest, []byte("fake"), 0644)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Run.NumTracks = 2
	cfg.Run.SnippetSec = 10
	cfg.Run.PauseSec = 2
	cfg.Run.IntroSec = 3
	cfg.Run.OutroSec = 5
	cfg.Run.AnswerSec = 4
	return cfg
}

func testTracks(n int) []types.Track {
	tracks := make([]types.Track, n)
	for i := range tracks {
		tracks[i] = types.Track{
			Title:      fmt.Sprintf("Song %d", i+1),
			Artist:     fmt.Sprintf("Artist %d", i+1),
			PreviewURL: fmt.Sprintf("https://example.com/%d.m4a", i+1),
			ID:         int64(i + 1),
		}
	}
	return tracks
}

func newTestAssembler(t *testing.T, cfg *config.Config, dl Downloader) *Assembler {
	t.Helper()
	a := NewAssembler(cfg, dl, t.TempDir(), rand.New(rand.NewSource(1)))
	// 30s constant-amplitude preview, decoded without ffmpeg.
	a.decode = func(string) ([]int16, error) {
		samples := make([]int16, 30*cfg.Audio.SampleRate*cfg.Audio.Channels)
		for i := range samples {
			samples[i] = 8000
		}
		return samples, nil
	}
	return a
}

func TestBuildTimelineLayout(t *testing.T) {
	cfg := testConfig()
	tl := BuildTimeline(cfg.Run, 2)
	require.NoError(t, tl.Validate())

	kinds := make([]types.SegmentKind, len(tl))
	for i, s := range tl {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []types.SegmentKind{
		types.SegmentIntro,
		types.SegmentSnippet, types.SegmentPause,
		types.SegmentSnippet, types.SegmentPause,
		types.SegmentAnswer, types.SegmentAnswer,
		types.SegmentOutro,
	}, kinds)

	// 3 + 2×(10+2+4) + 5 = 40 seconds.
	assert.Equal(t, 40*time.Second, tl.TotalDuration())

	// Snippets and answers reference their tracks in selection order.
	assert.Equal(t, 0, tl[1].TrackIndex)
	assert.Equal(t, 1, tl[3].TrackIndex)
	assert.Equal(t, 0, tl[5].TrackIndex)
	assert.Equal(t, 1, tl[6].TrackIndex)
}

func TestBuildTimelineOmitsZeroSegments(t *testing.T) {
	cfg := testConfig()
	cfg.Run.PauseSec = 0
	cfg.Run.IntroSec = 0
	tl := BuildTimeline(cfg.Run, 2)
	require.NoError(t, tl.Validate())

	for _, s := range tl {
		assert.NotEqual(t, types.SegmentIntro, s.Kind)
		assert.NotEqual(t, types.SegmentPause, s.Kind)
	}
	// 2×(10+4) + 5 = 33 seconds.
	assert.Equal(t, 33*time.Second, tl.TotalDuration())
}

func TestBuildAudioMatchesTimeline(t *testing.T) {
	cfg := testConfig()
	dl := &fakeDownloader{}
	a := newTestAssembler(t, cfg, dl)

	program, err := a.Build(context.Background(), testTracks(2))
	require.NoError(t, err)
	require.NoError(t, program.Timeline.Validate())

	assert.Equal(t, 40*time.Second, program.Timeline.TotalDuration())

	// Sample-exact contract between buffer and timeline.
	wantSamples := SamplesFor(program.Timeline.TotalDuration(), cfg.Audio.SampleRate) * cfg.Audio.Channels
	assert.Equal(t, wantSamples, len(program.PCM))

	// One download per track, in selection order.
	assert.Equal(t, []string{
		"https://example.com/1.m4a",
		"https://example.com/2.m4a",
	}, dl.calls)
}

func TestBuildPlacesAudioOnlyInSnippets(t *testing.T) {
	cfg := testConfig()
	a := newTestAssembler(t, cfg, &fakeDownloader{})

	program, err := a.Build(context.Background(), testTracks(2))
	require.NoError(t, err)

	rate, channels := cfg.Audio.SampleRate, cfg.Audio.Channels
	for _, seg := range program.Timeline {
		lo := SamplesFor(seg.Start, rate) * channels
		hi := lo + SamplesFor(seg.Length, rate)*channels
		slice := program.PCM[lo:hi]

		var nonZero bool
		for _, s := range slice {
			if s != 0 {
				nonZero = true
				break
			}
		}
		if seg.Kind == types.SegmentSnippet {
			assert.True(t, nonZero, "snippet %v should carry audio", seg)
			// Faded edges: the very first and last frames are silent.
			assert.Equal(t, int16(0), slice[0])
			assert.Equal(t, int16(0), slice[len(slice)-1])
		} else {
			assert.False(t, nonZero, "%s segment should be silent", seg.Kind)
		}
	}
}

func TestBuildShortPreviewZeroPads(t *testing.T) {
	cfg := testConfig()
	a := newTestAssembler(t, cfg, &fakeDownloader{})
	// 4s preview against a 10s snippet.
	a.decode = func(string) ([]int16, error) {
		samples := make([]int16, 4*cfg.Audio.SampleRate*cfg.Audio.Channels)
		for i := range samples {
			samples[i] = 8000
		}
		return samples, nil
	}

	program, err := a.Build(context.Background(), testTracks(1))
	require.NoError(t, err)

	// Total length is unchanged; the missing tail is silence.
	want := SamplesFor(program.Timeline.TotalDuration(), cfg.Audio.SampleRate) * cfg.Audio.Channels
	assert.Equal(t, want, len(program.PCM))
}

func TestBuildAbortsOnDownloadFailure(t *testing.T) {
	cfg := testConfig()
	dl := &fakeDownloader{failURL: "https://example.com/2.m4a"}
	a := newTestAssembler(t, cfg, dl)

	_, err := a.Build(context.Background(), testTracks(2))
	require.Error(t, err)

	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, "Song 2", dlErr.Track.Title)
}

func TestBuildAbortsOnDecodeFailure(t *testing.T) {
	cfg := testConfig()
	a := newTestAssembler(t, cfg, &fakeDownloader{})
	a.decode = func(string) ([]int16, error) {
		return nil, errors.New("corrupt stream")
	}

	_, err := a.Build(context.Background(), testTracks(1))
	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
}

func TestWriteWAVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	pcm := []int16{1, -1, 2, -2, 3, -3}
	require.NoError(t, WriteWAV(path, pcm, 44100, 2))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 44+len(pcm)*2)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, "data", string(data[36:40]))

	// PCM format, 2 channels, 44100 Hz.
	assert.Equal(t, byte(1), data[20])
	assert.Equal(t, byte(2), data[22])
	rate := uint32(data[24]) | uint32(data[25])<<8 | uint32(data[26])<<16 | uint32(data[27])<<24
	assert.Equal(t, uint32(44100), rate)

	// First sample round-trips little-endian.
	assert.Equal(t, byte(1), data[44])
	assert.Equal(t, byte(0), data[45])
}
