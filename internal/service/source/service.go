package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vidgate/backend/internal/lib/logger/sl"
)

// Source stores uploaded video files and the segmented output
// dirs derived from them.
type Source struct {
	log      *slog.Logger
	videoDir string
	hlsDir   string
}

func New(
	log *slog.Logger,
	videoDir string,
	hlsDir string,
) *Source {
	return &Source{
		log:      log,
		videoDir: videoDir,
		hlsDir:   hlsDir,
	}
}

// UploadSource moves an uploaded file into the progressive
// storage location of the given handle.
func (s *Source) UploadSource(ctx context.Context, path string, handle string) error {
	const op = "Source.UploadSource"

	log := s.log.With(
		slog.String("op", op),
		slog.String("handle", handle),
	)

	log.Info("uploading source")

	if err := os.MkdirAll(s.videoDir, 0777); err != nil {
		log.Error("failed to create video dir", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	source, err := os.Open(path)
	if err != nil {
		log.Error("failed to open input file", slog.String("file", path), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer source.Close()

	fileName := s.SourcePath(handle)

	destination, err := os.Create(fileName)
	if err != nil {
		log.Error("failed to create file", slog.String("file", fileName), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer destination.Close()

	if _, err = io.Copy(destination, source); err != nil {
		log.Error("failed to copy file", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("uploaded source", slog.String("file", fileName))

	return nil
}

// SourcePath returns the progressive file location of a handle.
func (s *Source) SourcePath(handle string) string {
	return filepath.Join(s.videoDir, filepath.Base(handle)+".mp4")
}

// SegmentDir returns the segmented output dir of a handle.
func (s *Source) SegmentDir(handle string) string {
	return filepath.Join(s.hlsDir, filepath.Base(handle))
}

// DeleteSource removes both representations of a handle. Removing
// the segmented dir also deletes its encryption key, which is
// owned by that representation.
func (s *Source) DeleteSource(ctx context.Context, handle string) error {
	const op = "Source.DeleteSource"

	log := s.log.With(
		slog.String("op", op),
		slog.String("handle", handle),
	)

	log.Info("deleting source files")

	fileName := s.SourcePath(handle)

	if err := os.Remove(fileName); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error("failed to delete source file", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.RemoveAll(s.SegmentDir(handle)); err != nil {
		log.Error("failed to delete segment dir", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("deleted source files")

	return nil
}
