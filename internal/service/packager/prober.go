package service

import "github.com/vidgate/backend/internal/lib/ffmpeg"

// FFProbe probes durations with the ffprobe executable.
type FFProbe struct{}

func (FFProbe) Duration(path string) (float64, error) {
	return ffmpeg.Duration(path)
}
