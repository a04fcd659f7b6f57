package audioasm

import (
	"encoding/binary"
	"fmt"
	"os/exec"
)

// DecodeFunc turns an audio file into interleaved int16 PCM samples.
// Injectable so tests can run without ffmpeg.
type DecodeFunc func(path string) ([]int16, error)

// FFmpegDecoder returns a DecodeFunc that shells out to ffmpeg and decodes
// any input format to raw s16le at the requested rate and channel count.
func FFmpegDecoder(rate, channels int) DecodeFunc {
	return func(path string) ([]int16, error) {
		cmd := exec.Command("ffmpeg",
			"-i", path,
			"-f", "s16le",
			"-acodec", "pcm_s16le",
			"-ar", fmt.Sprintf("%d", rate),
			"-ac", fmt.Sprintf("%d", channels),
			"-loglevel", "error",
			"pipe:1",
		)

		out, err := cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
		}

		// Ensure even byte count for int16 alignment.
		if len(out)%2 != 0 {
			out = out[:len(out)-1]
		}

		samples := make([]int16, len(out)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
		}
		return samples, nil
	}
}
