package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vidgate/backend/internal/lib/hls"
	"github.com/vidgate/backend/internal/lib/logger/sl"
)

// FixedDuration splits the source into fixed-length transport
// stream chunks with ffmpeg. Segments are written first; the
// playlist goes to a temporary name and is renamed into place
// only after ffmpeg exits cleanly.
type FixedDuration struct {
	log           *slog.Logger
	segmentLength time.Duration
}

func NewFixedDuration(log *slog.Logger, segmentLength time.Duration) *FixedDuration {
	return &FixedDuration{
		log:           log,
		segmentLength: segmentLength,
	}
}

func (f *FixedDuration) Segment(ctx context.Context, sourcePath string, outDir string, keyInfoPath string) error {
	const op = "FixedDuration.Segment"

	log := f.log.With(
		slog.String("op", op),
		slog.String("source", sourcePath),
	)

	absSource, err := filepath.Abs(sourcePath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var keyInfoBase string
	if keyInfoPath != "" {
		keyInfoBase = filepath.Base(keyInfoPath)
	}

	tmpManifest := hls.ManifestFileBase() + ".tmp"

	cmd := exec.CommandContext(ctx, "ffmpeg",
		segmentArgs(absSource, keyInfoBase, f.segmentLength, tmpManifest)...,
	)
	cmd.Dir = outDir
	cmd.Stderr = os.Stderr

	log.Info("running ffmpeg", slog.Float64("segmentLength", f.segmentLength.Seconds()))

	if err := cmd.Run(); err != nil {
		log.Error("ffmpeg failed", sl.Err(err))
		os.Remove(filepath.Join(outDir, tmpManifest))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(
		filepath.Join(outDir, tmpManifest),
		filepath.Join(outDir, hls.ManifestFileBase()),
	); err != nil {
		log.Error("failed to place manifest", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// segmentArgs builds the ffmpeg invocation. Paths of segment and
// playlist files are relative: the command runs inside the output
// directory so playlist entries stay relative too.
func segmentArgs(source string, keyInfoBase string, segmentLength time.Duration, manifest string) []string {
	args := []string{
		"-hide_banner", //	 hide banner
		"-y",           //	 force rewriting files
		"-i", source,   //	 input file
		"-c:v", "libx264", //	video codec
		"-c:a", "aac", //	 audio codec
		"-hls_time", strconv.Itoa(int(segmentLength.Seconds())), //	segment duration
		"-hls_playlist_type", "vod", //	 VOD playlist, writes the end-of-list marker
		"-hls_list_size", "0", //	 keep every segment listed
		"-hls_segment_filename", hls.SegmentPattern(), //	zero-padded sequential names
	}

	if keyInfoBase != "" {
		args = append(args, "-hls_key_info_file", keyInfoBase)
	}

	return append(args, "-f", "hls", manifest)
}
