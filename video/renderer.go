package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"blind-test-pipeline/config"
	"blind-test-pipeline/types"
)

// RenderError reports a failed encoder invocation. The final output file is
// only ever created by renaming a finished temp file, so a RenderError
// guarantees no partial output exists at the target path.
type RenderError struct {
	Op     string
	Err    error
	Stderr string
}

func (e *RenderError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("render: %s: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("render: %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Downloader fetches a URL to a local file. Used for answer-card artwork.
type Downloader interface {
	Download(ctx context.Context, srcURL, dest string) error
}

// Renderer turns an assembled audio program into the final vertical video.
// Frames are synthesized in Go and piped to a single ffmpeg invocation as
// raw RGBA; text overlays ride on a drawtext filter chain keyed to the
// timeline offsets.
type Renderer struct {
	cfg    *config.Config
	dl     Downloader
	tmpDir string
}

// NewRenderer creates a renderer. dl may be nil, in which case answer cards
// render without cover art.
func NewRenderer(cfg *config.Config, dl Downloader, tmpDir string) *Renderer {
	return &Renderer{cfg: cfg, dl: dl, tmpDir: tmpDir}
}

// Render encodes the program into outPath. wavPath carries the already
// saved audio track; pcm is the same buffer, used to drive the visualizer.
func (r *Renderer) Render(ctx context.Context, wavPath string, pcm []int16, tl types.Timeline, tracks []types.Track, outPath string) error {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return &RenderError{Op: "locate ffmpeg", Err: err}
	}

	artworks := r.fetchArtwork(ctx, tracks)
	filter := r.buildFilter(tl, tracks)

	tmpOut := outPath + ".partial.mp4"
	args := []string{"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", r.cfg.Video.Width, r.cfg.Video.Height),
		"-framerate", strconv.Itoa(r.cfg.Video.FPS),
		"-i", "pipe:0",
		"-i", wavPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(r.cfg.Video.FPS),
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		tmpOut,
	}

	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &RenderError{Op: "pipe", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &RenderError{Op: "start ffmpeg", Err: err}
	}

	log.Printf("[video] encoding %d segments at %dx%d@%dfps...",
		len(tl), r.cfg.Video.Width, r.cfg.Video.Height, r.cfg.Video.FPS)

	writeErr := r.streamFrames(stdin, pcm, tl, artworks)
	stdin.Close()
	waitErr := cmd.Wait()

	if writeErr != nil || waitErr != nil {
		os.Remove(tmpOut)
		err := waitErr
		if err == nil {
			err = writeErr
		}
		return &RenderError{Op: "encode", Err: err, Stderr: stderrTail(stderr.String())}
	}

	if err := os.Rename(tmpOut, outPath); err != nil {
		os.Remove(tmpOut)
		return &RenderError{Op: "finalize", Err: err}
	}
	return nil
}

// streamFrames writes one raw RGBA frame per video frame to w, walking the
// timeline in order. Static cards are drawn once per segment; snippet
// frames redraw the visualizer from the exact audio window they cover.
func (r *Renderer) streamFrames(w io.Writer, pcm []int16, tl types.Timeline, artworks []image.Image) error {
	width := r.cfg.Video.Width
	height := r.cfg.Video.Height
	fps := r.cfg.Video.FPS
	rate := r.cfg.Audio.SampleRate
	channels := r.cfg.Audio.Channels
	maxBar := height / 3

	frame := image.NewRGBA(image.Rect(0, 0, width, height))
	totalFrames := int(int64(tl.TotalDuration()) * int64(fps) / int64(time.Second))

	segIdx := 0
	staticDrawn := false
	for f := 0; f < totalFrames; f++ {
		t := time.Duration(int64(f) * int64(time.Second) / int64(fps))
		for segIdx < len(tl)-1 && t >= tl[segIdx].End() {
			segIdx++
			staticDrawn = false
		}
		seg := tl[segIdx]

		if seg.Kind == types.SegmentSnippet {
			lo := int64(f) * int64(rate) / int64(fps) * int64(channels)
			hi := int64(f+1) * int64(rate) / int64(fps) * int64(channels)
			if hi > int64(len(pcm)) {
				hi = int64(len(pcm))
			}
			if lo > hi {
				lo = hi
			}
			r.drawBackground(frame)
			r.drawBars(frame, BarHeights(pcm[lo:hi], r.cfg.Video.Bars, maxBar))
			staticDrawn = false
		} else if !staticDrawn {
			r.drawStaticCard(frame, seg, artworks)
			staticDrawn = true
		}

		if _, err := w.Write(frame.Pix); err != nil {
			return err
		}
	}
	return nil
}

// buildFilter assembles the drawtext chain that overlays every text element,
// each windowed to its timeline segment with enable='between(t,...)'.
func (r *Renderer) buildFilter(tl types.Timeline, tracks []types.Track) string {
	var fs []string
	for _, seg := range tl {
		from, to := seg.Start, seg.End()
		switch seg.Kind {
		case types.SegmentIntro:
			fs = append(fs,
				r.drawtext("MUSIC BLIND TEST", 120, "600", colorAccent, from, to),
				r.drawtext("Can you guess the artist and song?", 60, "1200", colorGray, from, to),
			)
		case types.SegmentSnippet:
			fs = append(fs,
				r.drawtext(fmt.Sprintf("Track #%d", seg.TrackIndex+1), 80, "200", colorAccent, from, to),
				r.countdown(seg),
			)
		case types.SegmentPause:
			fs = append(fs,
				r.drawtext("Guess now!", 100, "(h-text_h)/2", colorWhite, from, to),
			)
		case types.SegmentAnswer:
			label := fmt.Sprintf("Track %d", seg.TrackIndex+1)
			answer := "?"
			if seg.TrackIndex >= 0 && seg.TrackIndex < len(tracks) {
				answer = tracks[seg.TrackIndex].Label()
			}
			fs = append(fs,
				r.drawtext(label, 70, "250", colorAccent, from, to),
				r.drawtext(answer, 60, "1050", colorWhite, from, to),
			)
		case types.SegmentOutro:
			fs = append(fs,
				r.drawtext("Thanks for playing!", 120, "200", colorAccent, from, to),
				r.drawtext("How many did you guess correctly?", 60, "800", colorWhite, from, to),
			)
		}
	}
	return "[0:v]" + strings.Join(fs, ",") + "[v]"
}

const (
	colorWhite  = "white"
	colorAccent = "0x64C8FF"
	colorGray   = "0xC8C8C8"
)

// drawtext builds one centered drawtext filter windowed to [from,to).
func (r *Renderer) drawtext(text string, fontsize int, y, color string, from, to time.Duration) string {
	return r.drawtextRaw("'"+escapeFFmpegText(text)+"'", fontsize, y, color, from, to)
}

// countdown renders the seconds remaining in a snippet via drawtext's
// expression expansion, so one filter covers the whole segment.
func (r *Renderer) countdown(seg types.Segment) string {
	expr := fmt.Sprintf(`'%%{eif\:ceil(%.3f-t)\:d}'`, seg.End().Seconds())
	return r.drawtextRaw(expr, 120, "800", colorWhite, seg.Start, seg.End())
}

func (r *Renderer) drawtextRaw(text string, fontsize int, y, color string, from, to time.Duration) string {
	parts := []string{
		"text=" + text,
		"fontcolor=" + color,
		fmt.Sprintf("fontsize=%d", fontsize),
		"x=(w-text_w)/2",
		"y=" + y,
		fmt.Sprintf("enable='between(t,%.3f,%.3f)'", from.Seconds(), to.Seconds()),
	}
	if r.cfg.Video.FontFile != "" {
		parts = append([]string{"fontfile=" + r.cfg.Video.FontFile}, parts...)
	}
	return "drawtext=" + strings.Join(parts, ":")
}

// fetchArtwork downloads and decodes per-track cover art. Failures degrade
// to answer cards without art.
func (r *Renderer) fetchArtwork(ctx context.Context, tracks []types.Track) []image.Image {
	artworks := make([]image.Image, len(tracks))
	if r.dl == nil {
		return artworks
	}
	for i, tr := range tracks {
		if tr.ArtworkURL == "" {
			continue
		}
		dest := filepath.Join(r.tmpDir, fmt.Sprintf("artwork_%02d.img", i+1))
		if err := r.dl.Download(ctx, tr.ArtworkURL, dest); err != nil {
			log.Printf("[video] artwork for %s failed: %v", tr.Label(), err)
			continue
		}
		f, err := os.Open(dest)
		if err != nil {
			continue
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			log.Printf("[video] artwork decode for %s failed: %v", tr.Label(), err)
			continue
		}
		artworks[i] = img
	}
	return artworks
}

func escapeFFmpegText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, ":", `\:`)
	return s
}

// stderrTail keeps error output readable when ffmpeg dumps pages of logs.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 6 {
		lines = lines[len(lines)-6:]
	}
	return strings.Join(lines, " | ")
}
