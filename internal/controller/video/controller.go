package video

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	jwtController "github.com/vidgate/backend/internal/controller/jwt"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
	packagerSrv "github.com/vidgate/backend/internal/service/packager"
)

// New returns the admin surface for video ingest and packaging.
func New(
	srvCatalog Catalog,
	srvSrc Source,
	srvPackager Packager,
	jwtC *jwtController.JWT,
	tmpDir string,
) *fiber.App {
	ctr := videoController{
		srvCatalog:  srvCatalog,
		srvSrc:      srvSrc,
		srvPackager: srvPackager,
		tmpDir:      tmpDir,
	}

	app := fiber.New()

	app.Use(jwtC.AuthRequired())

	app.Post("/", ctr.newVideo)
	app.Post("/:handle/package", ctr.packageVideo)
	app.Delete("/:handle", ctr.deleteVideo)

	return app
}

type videoController struct {
	srvCatalog  Catalog
	srvSrc      Source
	srvPackager Packager
	tmpDir      string

	// packaging is serialized per handle to keep reruns idempotent
	packaging sync.Map
}

type Catalog interface {
	NewVideo(ctx context.Context, video models.Video) (int64, error)
	VideoByHandle(ctx context.Context, handle string) (models.Video, error)
	SetStorageKind(ctx context.Context, id int64, kind models.StorageKind) error
	Deactivate(ctx context.Context, id int64) error
}

type Source interface {
	UploadSource(ctx context.Context, path string, handle string) error
	SourcePath(handle string) string
	SegmentDir(handle string) string
	DeleteSource(ctx context.Context, handle string) error
}

type Packager interface {
	Package(ctx context.Context, sourcePath string, outDir string, encrypt bool) (packagerSrv.Result, error)
}

// newVideo saves the uploaded file and registers the video.
func (ctr *videoController) newVideo(c *fiber.Ctx) error {
	payload := c.FormValue("video")
	if payload == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no video information",
		})
	}

	var form struct {
		Title          string `json:"title"`
		Premium        bool   `json:"premium"`
		PreviewSeconds int64  `json:"previewSeconds"`
	}
	if err := json.Unmarshal([]byte(payload), &form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid video information",
		})
	}

	if form.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title required",
		})
	}

	file, err := c.FormFile("source")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid file",
		})
	}

	fileType := file.Header.Get("Content-Type")
	if fileType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content-type not found",
		})
	}

	// recognize MIME-type (allow only video/mp4)
	if fileType != "application/octet-stream" && fileType != "video/mp4" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unsupported mime-type",
		})
	} else if fileType == "application/octet-stream" {
		reader, err := file.Open()
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		mimeType, err := mimetype.DetectReader(reader)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		if !mimeType.Is("video/mp4") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unsupported mime-type",
			})
		}
	}

	tmpFile, err := os.CreateTemp(ctr.tmpDir, "*.mp4")
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	tmpFileName := tmpFile.Name()
	defer tmpFile.Close()

	if err := c.SaveFile(file, tmpFileName); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	defer os.Remove(tmpFileName)

	handle := uuid.NewString()

	if err := ctr.srvSrc.UploadSource(context.TODO(), tmpFileName, handle); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	id, err := ctr.srvCatalog.NewVideo(context.TODO(), models.Video{
		Handle:         handle,
		Title:          form.Title,
		Premium:        form.Premium,
		PreviewSeconds: form.PreviewSeconds,
		Active:         true,
		StorageKind:    models.StorageProgressive,
	})
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":     id,
		"handle": handle,
	})
}

// packageVideo runs the segmenter for one video. Concurrent runs
// against the same handle are rejected rather than queued.
func (ctr *videoController) packageVideo(c *fiber.Ctx) error {
	handle := c.Params("handle")
	encrypt := c.QueryBool("encrypt")

	video, err := ctr.srvCatalog.VideoByHandle(context.TODO(), handle)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "video not found",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	muIface, _ := ctr.packaging.LoadOrStore(handle, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)

	if !mu.TryLock() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "packaging already running",
		})
	}
	defer mu.Unlock()

	res, err := ctr.srvPackager.Package(
		c.Context(),
		ctr.srvSrc.SourcePath(handle),
		ctr.srvSrc.SegmentDir(handle),
		encrypt,
	)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if err := ctr.srvCatalog.SetStorageKind(context.TODO(), video.ID, models.StorageSegmented); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"manifest":  res.ManifestPath,
		"encrypted": encrypt,
	})
}

// deleteVideo hides the video and removes both representations,
// key material included.
func (ctr *videoController) deleteVideo(c *fiber.Ctx) error {
	handle := c.Params("handle")

	video, err := ctr.srvCatalog.VideoByHandle(context.TODO(), handle)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "video not found",
			})
		}

		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if err := ctr.srvCatalog.Deactivate(context.TODO(), video.ID); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if err := ctr.srvSrc.DeleteSource(context.TODO(), handle); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusOK)
}
