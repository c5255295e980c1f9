package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/vidgate/backend/internal/lib/hls"
	"github.com/vidgate/backend/internal/lib/logger/sl"
)

// Prober reports media duration in seconds.
type Prober interface {
	Duration(path string) (float64, error)
}

// SingleFile is the degenerate packaging strategy: the source is
// copied whole and the playlist references it as one segment. Any
// standard segmented-playback client accepts the result even
// though no time-based splitting happened. The key-info sidecar
// is left for a downstream segmenter; this strategy does not
// rewrite bytes.
type SingleFile struct {
	log   *slog.Logger
	probe Prober
}

func NewSingleFile(log *slog.Logger, probe Prober) *SingleFile {
	return &SingleFile{
		log:   log,
		probe: probe,
	}
}

func (s *SingleFile) Segment(ctx context.Context, sourcePath string, outDir string, _ string) error {
	const op = "SingleFile.Segment"

	log := s.log.With(
		slog.String("op", op),
		slog.String("source", sourcePath),
	)

	duration, err := s.probe.Duration(sourcePath)
	if err != nil {
		log.Error("failed to probe duration", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	mediaPath := filepath.Join(outDir, hls.MediaFileBase())

	if err := copyFile(sourcePath, mediaPath); err != nil {
		log.Error("failed to copy source", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	playlist := hls.Playlist([]hls.Entry{
		{Duration: duration, URI: hls.MediaFileBase()},
	})

	// manifest lands last, atomically
	manifestPath := filepath.Join(outDir, hls.ManifestFileBase())
	if err := renameio.WriteFile(manifestPath, []byte(playlist), 0644); err != nil {
		log.Error("failed to place manifest", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("wrote single-segment playlist", slog.Float64("duration", duration))

	return nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}

	return destination.Sync()
}
