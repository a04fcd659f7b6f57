package video

import "image/color"

var (
	bgColor     = color.RGBA{20, 20, 30, 255}
	accentColor = color.RGBA{100, 200, 255, 255}
)

// barPalette is the rainbow cycle the visualizer bars are colored with.
var barPalette = []color.RGBA{
	{255, 0, 0, 255},     // red
	{255, 127, 0, 255},   // orange
	{255, 255, 0, 255},   // yellow
	{127, 255, 0, 255},   // chartreuse
	{0, 255, 0, 255},     // lime
	{0, 255, 120, 255},   // light green
	{0, 255, 255, 255},   // cyan
	{0, 128, 255, 255},   // blue
	{0, 0, 255, 255},     // dark blue
	{127, 0, 255, 255},   // purple
	{255, 0, 255, 255},   // magenta
	{255, 0, 127, 255},   // pink
}

// BarHeights derives visualizer bar heights from one frame's audio window.
// The window is split into equal bands and each bar scales with its band's
// peak amplitude. Pure function of the samples: identical audio yields
// identical animation.
func BarHeights(window []int16, bars, maxHeight int) []int {
	if bars <= 0 {
		return nil
	}
	heights := make([]int, bars)
	if len(window) == 0 {
		return heights
	}

	for b := 0; b < bars; b++ {
		lo := b * len(window) / bars
		hi := (b + 1) * len(window) / bars
		var peak int32
		for _, s := range window[lo:hi] {
			v := int32(s)
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		heights[b] = int(int64(peak) * int64(maxHeight) / 32767)
	}
	return heights
}
