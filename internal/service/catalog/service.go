package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vidgate/backend/internal/lib/logger/sl"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
	"github.com/vidgate/backend/internal/storage"
)

// Catalog owns video records. The streaming subsystem reads them
// and bumps the view counter; everything else is admin ingest.
type Catalog struct {
	log          *slog.Logger
	videoStorage VideoStorage
}

type VideoStorage interface {
	SaveVideo(ctx context.Context, video models.Video) (int64, error)
	Video(ctx context.Context, id int64) (models.Video, error)
	VideoByHandle(ctx context.Context, handle string) (models.Video, error)
	IncrementViews(ctx context.Context, id int64) error
	SetStorageKind(ctx context.Context, id int64, kind models.StorageKind) error
	SetActive(ctx context.Context, id int64, active bool) error
}

func New(
	log *slog.Logger,
	videoStorage VideoStorage,
) *Catalog {
	return &Catalog{
		log:          log,
		videoStorage: videoStorage,
	}
}

// NewVideo registers a video and returns its id.
func (c *Catalog) NewVideo(ctx context.Context, video models.Video) (int64, error) {
	const op = "Catalog.NewVideo"

	log := c.log.With(
		slog.String("op", op),
		slog.String("handle", video.Handle),
	)

	log.Info("registering new video")

	id, err := c.videoStorage.SaveVideo(ctx, video)
	if err != nil {
		if errors.Is(err, storage.ErrVideoExists) {
			log.Warn("video exists")
			return models.ErrVideoID, fmt.Errorf("%s: %w", op, service.ErrVideoExists)
		}
		log.Error("failed to save video", sl.Err(err))
		return models.ErrVideoID, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("registered video", slog.Int64("id", id), slog.String("title", video.Title))

	return id, nil
}

// VideoByHandle returns video by its public handle.
func (c *Catalog) VideoByHandle(ctx context.Context, handle string) (models.Video, error) {
	const op = "Catalog.VideoByHandle"

	log := c.log.With(
		slog.String("op", op),
		slog.String("handle", handle),
	)

	video, err := c.videoStorage.VideoByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			log.Warn("video not found")
			return models.Video{}, fmt.Errorf("%s: %w", op, service.ErrVideoNotFound)
		}
		log.Error("failed to get video", sl.Err(err))
		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}

	return video, nil
}

// IncrementViews bumps the view counter once per playback grant.
func (c *Catalog) IncrementViews(ctx context.Context, id int64) error {
	const op = "Catalog.IncrementViews"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	if err := c.videoStorage.IncrementViews(ctx, id); err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			log.Warn("video not found")
			return fmt.Errorf("%s: %w", op, service.ErrVideoNotFound)
		}
		log.Error("failed to increment views", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetStorageKind records the new layout after packaging.
func (c *Catalog) SetStorageKind(ctx context.Context, id int64, kind models.StorageKind) error {
	const op = "Catalog.SetStorageKind"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	log.Info("updating storage kind", slog.String("kind", string(kind)))

	if err := c.videoStorage.SetStorageKind(ctx, id, kind); err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			log.Warn("video not found")
			return fmt.Errorf("%s: %w", op, service.ErrVideoNotFound)
		}
		log.Error("failed to update storage kind", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Deactivate hides the video from playback. The segmented
// representation and its key stay on disk until the files are
// removed together with it.
func (c *Catalog) Deactivate(ctx context.Context, id int64) error {
	const op = "Catalog.Deactivate"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	log.Info("deactivating video")

	if err := c.videoStorage.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			log.Warn("video not found")
			return fmt.Errorf("%s: %w", op, service.ErrVideoNotFound)
		}
		log.Error("failed to deactivate video", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
