package video

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"blind-test-pipeline/types"
)

const (
	barSpacing     = 10  // px gap inside each bar slot
	barBaselinePad = 100 // px between bar baseline and frame bottom
	artworkSize    = 600 // px, answer-card cover art
	artworkTop     = 400 // px from frame top
)

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// drawBackground repaints the whole frame with the card background.
func (r *Renderer) drawBackground(img *image.RGBA) {
	fillRect(img, img.Bounds(), bgColor)
}

// drawBars renders the visualizer bars over the current frame. Heights are
// in pixels, baseline sits barBaselinePad above the bottom edge.
func (r *Renderer) drawBars(img *image.RGBA, heights []int) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	slot := w / len(heights)

	for i, bh := range heights {
		x0 := i*slot + barSpacing
		x1 := (i+1)*slot - barSpacing
		y1 := h - barBaselinePad
		y0 := y1 - bh
		if x0 >= x1 || y0 >= y1 {
			continue
		}
		fillRect(img, image.Rect(x0, y0, x1, y1), barPalette[i%len(barPalette)])
	}

	baseY := h - barBaselinePad
	fillRect(img, image.Rect(0, baseY, w, baseY+4), accentColor)
}

// drawArtwork scales the cover art to a centered square on the answer card.
func (r *Renderer) drawArtwork(img *image.RGBA, art image.Image) {
	w := img.Bounds().Dx()
	x0 := (w - artworkSize) / 2
	dst := image.Rect(x0, artworkTop, x0+artworkSize, artworkTop+artworkSize)
	xdraw.ApproxBiLinear.Scale(img, dst, art, art.Bounds(), xdraw.Src, nil)
}

// drawStaticCard paints the non-animated frame for a segment. Text overlays
// come from the ffmpeg drawtext chain, not from the frame itself.
func (r *Renderer) drawStaticCard(img *image.RGBA, seg types.Segment, artworks []image.Image) {
	r.drawBackground(img)
	if seg.Kind == types.SegmentAnswer && seg.TrackIndex >= 0 && seg.TrackIndex < len(artworks) {
		if art := artworks[seg.TrackIndex]; art != nil {
			r.drawArtwork(img, art)
		}
	}
}
