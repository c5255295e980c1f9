package playback

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vidgate/backend/internal/controller/session"
	"github.com/vidgate/backend/internal/lib/hls"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
	streamerSrv "github.com/vidgate/backend/internal/service/streamer"
)

// New returns a fiber.App exposing the playback surface:
// token issuance, stream bytes, segments and the key endpoint.
func New(
	timeout time.Duration,
	playback Playback,
	locator Locator,
	streamer Streamer,
	sessionSecret []byte,
) *fiber.App {
	ctr := playbackController{
		timeout:       timeout,
		playback:      playback,
		locator:       locator,
		streamer:      streamer,
		sessionSecret: sessionSecret,
	}

	app := fiber.New()

	app.Post("/access-token", ctr.accessToken)
	app.Get("/stream/:handle", ctr.stream)
	app.Get("/stream/:handle/:file", ctr.segment)
	app.Get("/key/:handle", ctr.key)

	return app
}

type playbackController struct {
	timeout       time.Duration
	playback      Playback
	locator       Locator
	streamer      Streamer
	sessionSecret []byte
}

type Playback interface {
	StartPlayback(ctx context.Context, viewer *models.Viewer, handle string) (models.PlaybackGrant, error)
	AuthorizeStream(ctx context.Context, viewer *models.Viewer, handle string, token string) (models.Video, error)
}

type Locator interface {
	Resolve(ctx context.Context, handle string, preferStreaming bool) (models.MediaRepresentation, error)
	SegmentPath(ctx context.Context, handle string, name string) (models.MediaRepresentation, error)
	KeyPath(ctx context.Context, handle string) (string, error)
}

type Streamer interface {
	Serve(ctx context.Context, rep models.MediaRepresentation, rangeHeader string) (streamerSrv.Stream, error)
}

// accessToken grants playback: tier, stream URL and, for full
// access, a signed token.
func (ctr *playbackController) accessToken(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), ctr.timeout)
	defer cancel()

	handle := c.Query("videoId")
	if handle == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "videoId required",
		})
	}

	viewer := session.Viewer(c, ctr.sessionSecret)

	grant, err := ctr.playback.StartPlayback(ctx, viewer, handle)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "video not found",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(grant)
}

// stream serves the primary representation: the playlist for
// segmented videos, ranged bytes for progressive ones.
func (ctr *playbackController) stream(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), ctr.timeout)
	defer cancel()

	handle := c.Params("handle")

	video, err := ctr.authorize(c, ctx, handle)
	if err != nil {
		return ctr.authError(c, err)
	}

	rep, err := ctr.locator.Resolve(ctx, handle, video.StorageKind == models.StorageSegmented)
	if err != nil {
		if errors.Is(err, service.ErrMediaNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "media not found",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return ctr.send(c, rep)
}

// segment serves one file of the segmented representation.
func (ctr *playbackController) segment(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), ctr.timeout)
	defer cancel()

	handle := c.Params("handle")
	file := c.Params("file")

	// key material only flows through the gated /key endpoint
	if file == hls.KeyFileBase() || file == hls.KeyInfoFileBase() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "media not found",
		})
	}

	if _, err := ctr.authorize(c, ctx, handle); err != nil {
		return ctr.authError(c, err)
	}

	rep, err := ctr.locator.SegmentPath(ctx, handle, file)
	if err != nil {
		if errors.Is(err, service.ErrMediaNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "media not found",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return ctr.send(c, rep)
}

// key returns the raw 16-byte encryption key, gated by the same
// entitlement check as the stream itself.
func (ctr *playbackController) key(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), ctr.timeout)
	defer cancel()

	handle := c.Params("handle")

	if _, err := ctr.authorize(c, ctx, handle); err != nil {
		return ctr.authError(c, err)
	}

	path, err := ctr.locator.KeyPath(ctx, handle)
	if err != nil {
		if errors.Is(err, service.ErrMediaNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "media not found",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	setNoCache(c)
	c.Set(fiber.HeaderContentType, "application/octet-stream")

	return c.SendFile(path)
}

func (ctr *playbackController) authorize(c *fiber.Ctx, ctx context.Context, handle string) (models.Video, error) {
	viewer := session.Viewer(c, ctr.sessionSecret)
	token := c.Query("token")

	return ctr.playback.AuthorizeStream(ctx, viewer, handle, token)
}

func (ctr *playbackController) authError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	case errors.Is(err, service.ErrVideoNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "video not found",
		})
	default:
		return c.SendStatus(fiber.StatusInternalServerError)
	}
}

// send copies one prepared stream out. Entitlement can change
// between requests, so intermediaries must never cache bytes.
func (ctr *playbackController) send(c *fiber.Ctx, rep models.MediaRepresentation) error {
	stream, err := ctr.streamer.Serve(c.Context(), rep, c.Get(fiber.HeaderRange))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRangeNotSatisfiable):
			c.Set(fiber.HeaderContentRange, "bytes */"+strconv.FormatInt(rep.Size, 10))
			return c.SendStatus(fiber.StatusRequestedRangeNotSatisfiable)
		case errors.Is(err, service.ErrMediaNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "media not found",
			})
		default:
			return c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	setNoCache(c)
	c.Set(fiber.HeaderContentType, stream.ContentType)
	if stream.AcceptRanges != "" {
		c.Set(fiber.HeaderAcceptRanges, stream.AcceptRanges)
	}
	if stream.ContentRange != "" {
		c.Set(fiber.HeaderContentRange, stream.ContentRange)
	}

	c.Status(stream.Status)

	return c.SendStream(stream.Body, int(stream.ContentLength))
}

func setNoCache(c *fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
}
