package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vidgate/backend/internal/lib/logger/sl"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
)

// Streamer serves resolved media files with partial-content
// semantics. Bytes go out through a seek + limited reader, so
// concurrent range requests against one large file never hold
// the whole file in memory.
type Streamer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Streamer {
	return &Streamer{log: log}
}

// Stream is a prepared response: status, headers and a body
// that the transport copies out and closes.
type Stream struct {
	Status        int
	ContentType   string
	ContentLength int64
	ContentRange  string
	AcceptRanges  string
	Body          io.ReadCloser
}

const (
	mimeMP4      = "video/mp4"
	mimeTS       = "video/mp2t"
	mimeM4S      = "video/iso.segment"
	mimePlaylist = "application/vnd.apple.mpegurl"
)

// Serve prepares the response for one representation.
//
// Playlists go out whole with their static content type. Media
// files (the progressive file and every segment) honor a single
// bytes=<start>-<end>? range; a malformed or unsatisfiable range
// fails with service.ErrRangeNotSatisfiable.
func (s *Streamer) Serve(ctx context.Context, rep models.MediaRepresentation, rangeHeader string) (Stream, error) {
	const op = "Streamer.Serve"

	log := s.log.With(
		slog.String("op", op),
		slog.String("path", rep.Path),
	)

	contentType := contentTypeFor(rep.Path)

	f, err := os.Open(rep.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// vanished between resolution and read
			log.Warn("media file vanished")

			return Stream{}, fmt.Errorf("%s: %w", op, service.ErrMediaNotFound)
		}

		log.Error("failed to open media file", sl.Err(err))

		return Stream{}, fmt.Errorf("%s: %w", op, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		log.Error("failed to stat media file", sl.Err(err))

		return Stream{}, fmt.Errorf("%s: %w", op, err)
	}
	size := info.Size()

	// Playlists carry no range math themselves.
	if contentType == mimePlaylist {
		return Stream{
			Status:        200,
			ContentType:   contentType,
			ContentLength: size,
			Body:          f,
		}, nil
	}

	if rangeHeader == "" {
		log.Debug("serving whole file", slog.Int64("size", size))

		return Stream{
			Status:        200,
			ContentType:   contentType,
			ContentLength: size,
			AcceptRanges:  "bytes",
			Body:          f,
		}, nil
	}

	start, end, err := parseRange(rangeHeader, size)
	if err != nil {
		f.Close()
		log.Warn("unsatisfiable range", slog.String("range", rangeHeader))

		return Stream{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		f.Close()
		log.Error("failed to seek", sl.Err(err))

		return Stream{}, fmt.Errorf("%s: %w", op, err)
	}

	length := end - start + 1

	log.Debug(
		"serving range",
		slog.Int64("start", start),
		slog.Int64("end", end),
		slog.Int64("size", size),
	)

	return Stream{
		Status:        206,
		ContentType:   contentType,
		ContentLength: length,
		ContentRange:  fmt.Sprintf("bytes %d-%d/%d", start, end, size),
		AcceptRanges:  "bytes",
		Body:          &limitedFile{r: io.LimitReader(f, length), f: f},
	}, nil
}

// parseRange parses a single bytes=<start>-<end>? range.
// The start is required; a missing end defaults to size-1 and an
// end past the file is clamped. A start at or past the file size,
// an inverted range or any syntax error is unsatisfiable.
func parseRange(header string, size int64) (int64, int64, error) {
	const prefix = "bytes="

	if !strings.HasPrefix(header, prefix) {
		return 0, 0, service.ErrRangeNotSatisfiable
	}

	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		// multipart ranges are not supported
		return 0, 0, service.ErrRangeNotSatisfiable
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found || startStr == "" {
		return 0, 0, service.ErrRangeNotSatisfiable
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, service.ErrRangeNotSatisfiable
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return 0, 0, service.ErrRangeNotSatisfiable
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if start >= size || start > end {
		return 0, 0, service.ErrRangeNotSatisfiable
	}

	return start, end, nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".m3u8":
		return mimePlaylist
	case ".ts":
		return mimeTS
	case ".m4s":
		return mimeM4S
	default:
		return mimeMP4
	}
}

// limitedFile bounds reads to the requested slice and
// releases the handle on close.
type limitedFile struct {
	r io.Reader
	f *os.File
}

func (l *limitedFile) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

func (l *limitedFile) Close() error {
	return l.f.Close()
}
