package service

import (
	"fmt"
	"log/slog"

	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
)

// Access decides how much of a video a viewer may receive.
// It is the single entitlement policy for both the signed-token
// and the session entry points, so the two can never drift.
type Access struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Access {
	return &Access{log: log}
}

// Decide computes the entitlement for one request.
//
// No side effects, no storage access. Payment completion is
// webhook-driven, so the result must be recomputed on every
// request and never cached.
func (a *Access) Decide(viewer *models.Viewer, video models.Video) (models.Entitlement, error) {
	const op = "Access.Decide"

	log := a.log.With(
		slog.String("op", op),
		slog.String("handle", video.Handle),
	)

	// Inactive content must look absent, not forbidden.
	if !video.Active {
		log.Debug("video inactive")

		return models.Entitlement{}, fmt.Errorf("%s: %w", op, service.ErrVideoNotFound)
	}

	if viewer == nil {
		log.Debug("guest viewer, preview entitlement")

		return models.Entitlement{
			Tier:           models.TierPreview,
			PreviewSeconds: video.PreviewSeconds,
		}, nil
	}

	if !viewer.PaymentCompleted {
		if video.Premium {
			log.Debug("unpaid viewer on premium video, preview entitlement", slog.Int64("viewer", viewer.ID))

			return models.Entitlement{
				Tier:           models.TierPreview,
				PreviewSeconds: video.PreviewSeconds,
			}, nil
		}

		log.Debug("unpaid viewer on free video, full entitlement", slog.Int64("viewer", viewer.ID))

		return models.Entitlement{Tier: models.TierFull}, nil
	}

	log.Debug("paid viewer, full entitlement", slog.Int64("viewer", viewer.ID))

	return models.Entitlement{Tier: models.TierFull}, nil
}
