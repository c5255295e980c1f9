package router

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidgate/backend/internal/storage/sqlite"

	accessSrv "github.com/vidgate/backend/internal/service/access"
	tokenSrv "github.com/vidgate/backend/internal/service/accesstoken"
	authSrv "github.com/vidgate/backend/internal/service/auth"
	catalogSrv "github.com/vidgate/backend/internal/service/catalog"
	jwtSrv "github.com/vidgate/backend/internal/service/jwt"
	locatorSrv "github.com/vidgate/backend/internal/service/locator"
	packagerSrv "github.com/vidgate/backend/internal/service/packager"
	playbackSrv "github.com/vidgate/backend/internal/service/playback"
	sourceSrv "github.com/vidgate/backend/internal/service/source"
	streamerSrv "github.com/vidgate/backend/internal/service/streamer"

	authCtr "github.com/vidgate/backend/internal/controller/auth"
	jwtCtr "github.com/vidgate/backend/internal/controller/jwt"
	playbackCtr "github.com/vidgate/backend/internal/controller/playback"
	videoCtr "github.com/vidgate/backend/internal/controller/video"
)

type App struct {
	log     *slog.Logger
	address string
	app     *fiber.App
}

// New returns configured router.App
func New(
	log *slog.Logger,
	storage *sqlite.Storage,
	address string,
	timeout time.Duration,
	tokenTTL time.Duration,
	secret []byte,
	rootPass []byte,
	tmpDir string,
	videoDir string,
	hlsDir string,
	segmentLength time.Duration,
	keyURLBase string,
	packagingStrategy string,
) *App {
	// Create services
	jwt := jwtSrv.New(secret)

	rootPassHash, err := bcrypt.GenerateFromPassword(rootPass, bcrypt.DefaultCost)
	if err != nil {
		panic("invalid root password")
	}
	auth := authSrv.New(
		log,
		jwt,
		rootPassHash,
		tokenTTL,
	)

	catalog := catalogSrv.New(log, storage)
	access := accessSrv.New(log)
	tokens := tokenSrv.New(secret, tokenTTL)
	playback := playbackSrv.New(log, catalog, access, tokens, "/stream")

	locator := locatorSrv.New(log, videoDir, hlsDir)
	streamer := streamerSrv.New(log)
	src := sourceSrv.New(log, videoDir, hlsDir)

	var strategy packagerSrv.Strategy
	switch packagingStrategy {
	case "fixed":
		strategy = packagerSrv.NewFixedDuration(log, segmentLength)
	default:
		strategy = packagerSrv.NewSingleFile(log, packagerSrv.FFProbe{})
	}
	packager := packagerSrv.New(log, keyURLBase, strategy)

	// Create controller helper
	jwtCtr := jwtCtr.New(secret)

	app := fiber.New()

	// Mount controllers to an app
	app.Mount("/login", authCtr.New(timeout, auth))
	app.Mount("/videos", videoCtr.New(catalog, src, packager, jwtCtr, tmpDir))
	app.Mount("/", playbackCtr.New(timeout, playback, locator, streamer, secret))

	return &App{
		log:     log,
		address: address,
		app:     app,
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	return a.app.Listen(a.address)
}

func (a *App) Stop() {
	a.app.Shutdown()
}
