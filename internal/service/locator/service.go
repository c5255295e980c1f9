package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vidgate/backend/internal/lib/hls"
	"github.com/vidgate/backend/internal/lib/logger/sl"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
)

// Locator resolves a video handle to its on-disk representation.
// Lookups stat the filesystem on every call: packaging may finish
// between two requests for the same handle, so results are never
// cached.
type Locator struct {
	log      *slog.Logger
	videoDir string
	hlsDir   string
}

func New(
	log *slog.Logger,
	videoDir string,
	hlsDir string,
) *Locator {
	return &Locator{
		log:      log,
		videoDir: videoDir,
		hlsDir:   hlsDir,
	}
}

// Resolve returns the segmented representation when a manifest
// exists, otherwise the progressive file. preferStreaming only
// affects what the caller advertises, not lookup order.
func (l *Locator) Resolve(ctx context.Context, handle string, preferStreaming bool) (models.MediaRepresentation, error) {
	const op = "Locator.Resolve"

	log := l.log.With(
		slog.String("op", op),
		slog.String("handle", handle),
	)

	segDir := filepath.Join(l.hlsDir, handle)
	manifest := filepath.Join(segDir, hls.ManifestFileBase())

	if _, err := os.Stat(manifest); err == nil {
		log.Debug("resolved segmented representation")

		return models.MediaRepresentation{
			Kind: models.StorageSegmented,
			Path: manifest,
			Dir:  segDir,
		}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Error("failed to stat manifest", sl.Err(err))

		return models.MediaRepresentation{}, fmt.Errorf("%s: %w", op, err)
	}

	progressive := filepath.Join(l.videoDir, handle+".mp4")

	info, err := os.Stat(progressive)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("no representation on storage")

			return models.MediaRepresentation{}, fmt.Errorf("%s: %w", op, service.ErrMediaNotFound)
		}

		log.Error("failed to stat progressive file", sl.Err(err))

		return models.MediaRepresentation{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("resolved progressive representation", slog.Int64("size", info.Size()))

	return models.MediaRepresentation{
		Kind: models.StorageProgressive,
		Path: progressive,
		Size: info.Size(),
	}, nil
}

// SegmentPath resolves one file inside the segmented representation.
// The name is flattened to its base, so a crafted request can't walk
// out of the segment directory.
func (l *Locator) SegmentPath(ctx context.Context, handle string, name string) (models.MediaRepresentation, error) {
	const op = "Locator.SegmentPath"

	log := l.log.With(
		slog.String("op", op),
		slog.String("handle", handle),
	)

	segDir := filepath.Join(l.hlsDir, filepath.Base(handle))
	path := filepath.Join(segDir, filepath.Base(name))

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("segment not found", slog.String("name", name))

			return models.MediaRepresentation{}, fmt.Errorf("%s: %w", op, service.ErrMediaNotFound)
		}

		log.Error("failed to stat segment", sl.Err(err))

		return models.MediaRepresentation{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.MediaRepresentation{
		Kind: models.StorageSegmented,
		Path: path,
		Dir:  segDir,
		Size: info.Size(),
	}, nil
}

// KeyPath resolves the raw encryption key of the segmented
// representation, if one was generated at packaging time.
func (l *Locator) KeyPath(ctx context.Context, handle string) (string, error) {
	const op = "Locator.KeyPath"

	path := filepath.Join(l.hlsDir, filepath.Base(handle), hls.KeyFileBase())

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", op, service.ErrMediaNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return path, nil
}
