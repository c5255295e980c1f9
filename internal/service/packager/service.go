package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidgate/backend/internal/lib/hls"
	"github.com/vidgate/backend/internal/lib/logger/sl"
	"github.com/vidgate/backend/internal/service"
)

const keyLength = 16

// Packager converts one uploaded source into a segmented
// representation, optionally generating an encryption key.
// It runs offline, ahead of playback; callers serialize runs
// per video id.
type Packager struct {
	log        *slog.Logger
	keyURLBase string
	strategy   Strategy
}

// Strategy writes segments into outDir and finishes by placing
// the manifest. The manifest must land last and atomically, so a
// failed run never advertises segments that do not exist.
type Strategy interface {
	Segment(ctx context.Context, sourcePath string, outDir string, keyInfoPath string) error
}

type Result struct {
	ManifestPath string
	KeyPath      string
}

func New(
	log *slog.Logger,
	keyURLBase string,
	strategy Strategy,
) *Packager {
	return &Packager{
		log:        log,
		keyURLBase: keyURLBase,
		strategy:   strategy,
	}
}

// Package builds the segmented representation of sourcePath
// inside outDir. The directory name doubles as the video handle
// for the key retrieval URL.
func (p *Packager) Package(ctx context.Context, sourcePath string, outDir string, encrypt bool) (Result, error) {
	const op = "Packager.Package"

	log := p.log.With(
		slog.String("op", op),
		slog.String("source", sourcePath),
		slog.String("out", outDir),
	)

	log.Info("packaging source", slog.Bool("encrypt", encrypt))

	if err := os.MkdirAll(outDir, 0777); err != nil {
		log.Error("failed to create output dir", sl.Err(err))

		return Result{}, fmt.Errorf("%s: %w", op, service.ErrPackagingFailed)
	}

	var keyPath, keyInfoPath string

	if encrypt {
		var err error

		keyPath, keyInfoPath, err = p.writeKey(outDir)
		if err != nil {
			log.Error("failed to write key files", sl.Err(err))

			return Result{}, fmt.Errorf("%s: %w", op, service.ErrPackagingFailed)
		}

		log.Info("generated encryption key", slog.String("key", keyPath))
	}

	if err := p.strategy.Segment(ctx, sourcePath, outDir, keyInfoPath); err != nil {
		log.Error("segmentation failed", sl.Err(err))

		return Result{}, fmt.Errorf("%s: %w", op, service.ErrPackagingFailed)
	}

	manifestPath := filepath.Join(outDir, hls.ManifestFileBase())

	log.Info("packaged source", slog.String("manifest", manifestPath))

	return Result{
		ManifestPath: manifestPath,
		KeyPath:      keyPath,
	}, nil
}

// writeKey generates the 16-byte key and its key-info sidecar.
// The sidecar holds three lines: retrieval URL, key file path and
// hex key, the layout a downstream segmenter expects.
func (p *Packager) writeKey(outDir string) (string, string, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", "", err
	}

	keyPath := filepath.Join(outDir, hls.KeyFileBase())
	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return "", "", err
	}

	handle := filepath.Base(outDir)
	keyURL := strings.TrimSuffix(p.keyURLBase, "/") + "/" + handle

	keyInfoPath := filepath.Join(outDir, hls.KeyInfoFileBase())
	keyInfo := keyURL + "\n" + keyPath + "\n" + hex.EncodeToString(key) + "\n"

	if err := os.WriteFile(keyInfoPath, []byte(keyInfo), 0600); err != nil {
		return "", "", err
	}

	return keyPath, keyInfoPath, nil
}
