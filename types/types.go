package types

import (
	"fmt"
	"strings"
	"time"
)

// Track is one catalog entry with a downloadable audio preview.
type Track struct {
	Title      string        `json:"title"`
	Artist     string        `json:"artist"`
	Album      string        `json:"album"`
	Genre      string        `json:"genre"`
	PreviewURL string        `json:"preview_url"`
	ArtworkURL string        `json:"artwork_url"`
	ID         int64         `json:"id"`
	Duration   time.Duration `json:"duration"`
}

// Key identifies a track for deduplication (case-insensitive title+artist).
func (t Track) Key() string {
	return strings.ToLower(t.Title) + "|" + strings.ToLower(t.Artist)
}

// Label is the display form used on answer cards and in logs.
func (t Track) Label() string {
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// SegmentKind tags one variant of the program timeline.
type SegmentKind string

const (
	SegmentIntro   SegmentKind = "intro"
	SegmentSnippet SegmentKind = "snippet"
	SegmentPause   SegmentKind = "pause"
	SegmentAnswer  SegmentKind = "answer"
	SegmentOutro   SegmentKind = "outro"
)

// Segment is one contiguous interval of the program.
// TrackIndex is -1 for segments not tied to a track.
type Segment struct {
	Kind       SegmentKind   `json:"kind"`
	Start      time.Duration `json:"start"`
	Length     time.Duration `json:"length"`
	TrackIndex int           `json:"track_index"`
}

// End returns the exclusive end offset of the segment.
func (s Segment) End() time.Duration {
	return s.Start + s.Length
}

// Timeline is the ordered sequence of segments making up one program.
type Timeline []Segment

// TotalDuration is the sum of all segment lengths.
func (tl Timeline) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range tl {
		total += s.Length
	}
	return total
}

// Validate checks that segments start at zero, are contiguous,
// non-overlapping and have positive lengths.
func (tl Timeline) Validate() error {
	var cursor time.Duration
	for i, s := range tl {
		if s.Length <= 0 {
			return fmt.Errorf("segment %d (%s): non-positive length %v", i, s.Kind, s.Length)
		}
		if s.Start != cursor {
			return fmt.Errorf("segment %d (%s): starts at %v, want %v", i, s.Kind, s.Start, cursor)
		}
		cursor = s.End()
	}
	return nil
}

// RunState tracks one full pipeline run, saved as JSON next to the artifacts.
type RunState struct {
	RunID       string    `json:"run_id"`
	StartedAt   string    `json:"started_at"`
	CompletedAt string    `json:"completed_at"`
	Tracks      []Track   `json:"tracks,omitempty"`
	AudioFile   string    `json:"audio_file,omitempty"`
	VideoFile   string    `json:"video_file,omitempty"`
	YouTubeID   string    `json:"youtube_id,omitempty"`
	YouTubeURL  string    `json:"youtube_url,omitempty"`
	Error       string    `json:"error,omitempty"`
}
