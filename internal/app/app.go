package app

import (
	"log/slog"
	"os"
	"time"

	routerApp "github.com/vidgate/backend/internal/app/router"
	"github.com/vidgate/backend/internal/lib/logger/sl"
	"github.com/vidgate/backend/internal/storage/sqlite"
)

type App struct {
	Router  routerApp.App
	storage *sqlite.Storage
}

func New(
	log *slog.Logger,
	address string,
	storagePath string,
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
	storage, err := sqlite.New(storagePath)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	routerApp := routerApp.New(
		log,
		storage,
		address,
		timeout,
		tokenTTL,
		secret,
		rootPass,
		tmpDir,
		videoDir,
		hlsDir,
		segmentLength,
		keyURLBase,
		packagingStrategy,
	)

	return &App{
		Router:  *routerApp,
		storage: storage,
	}
}

func (a *App) Stop() {
	a.Router.Stop()
	a.storage.Stop()
}
