package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgate/backend/internal/lib/logger/handlers/slogdiscard"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
)

func writeTestFile(t *testing.T, name string, size int) (models.MediaRepresentation, []byte) {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))

	return models.MediaRepresentation{
		Kind: models.StorageProgressive,
		Path: path,
		Size: int64(size),
	}, data
}

func TestServeWholeFile(t *testing.T) {
	s := New(slogdiscard.NewDiscardLogger())
	rep, data := writeTestFile(t, "v.mp4", 1000)

	stream, err := s.Serve(context.Background(), rep, "")
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, 200, stream.Status)
	assert.Equal(t, "video/mp4", stream.ContentType)
	assert.Equal(t, int64(1000), stream.ContentLength)
	assert.Equal(t, "bytes", stream.AcceptRanges)
	assert.Empty(t, stream.ContentRange)

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, data, body)
}

func TestServeRange(t *testing.T) {
	s := New(slogdiscard.NewDiscardLogger())
	rep, data := writeTestFile(t, "v.mp4", 1000)

	stream, err := s.Serve(context.Background(), rep, "bytes=100-199")
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, 206, stream.Status)
	assert.Equal(t, "bytes 100-199/1000", stream.ContentRange)
	assert.Equal(t, int64(100), stream.ContentLength)

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, data[100:200], body)
}

func TestServeOpenRange(t *testing.T) {
	s := New(slogdiscard.NewDiscardLogger())
	rep, data := writeTestFile(t, "v.mp4", 1000)

	stream, err := s.Serve(context.Background(), rep, "bytes=990-")
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, 206, stream.Status)
	assert.Equal(t, "bytes 990-999/1000", stream.ContentRange)
	assert.Equal(t, int64(10), stream.ContentLength)

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, data[990:], body)
}

func TestServePlaylistIgnoresRange(t *testing.T) {
	s := New(slogdiscard.NewDiscardLogger())

	dir := t.TempDir()
	path := filepath.Join(dir, "index.m3u8")
	content := []byte("#EXTM3U\n#EXT-X-ENDLIST\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	rep := models.MediaRepresentation{Kind: models.StorageSegmented, Path: path}

	stream, err := s.Serve(context.Background(), rep, "bytes=0-3")
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, 200, stream.Status)
	assert.Equal(t, "application/vnd.apple.mpegurl", stream.ContentType)

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, content, body)
}

func TestServeSegmentRange(t *testing.T) {
	s := New(slogdiscard.NewDiscardLogger())
	rep, data := writeTestFile(t, "segment00000.ts", 500)
	rep.Kind = models.StorageSegmented

	stream, err := s.Serve(context.Background(), rep, "bytes=0-99")
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, 206, stream.Status)
	assert.Equal(t, "video/mp2t", stream.ContentType)

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, data[:100], body)
}

func TestServeVanishedFile(t *testing.T) {
	s := New(slogdiscard.NewDiscardLogger())

	rep := models.MediaRepresentation{
		Kind: models.StorageProgressive,
		Path: filepath.Join(t.TempDir(), "gone.mp4"),
	}

	_, err := s.Serve(context.Background(), rep, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrMediaNotFound))
}

func TestServeBadRanges(t *testing.T) {
	s := New(slogdiscard.NewDiscardLogger())
	rep, _ := writeTestFile(t, "v.mp4", 1000)

	for _, header := range []string{
		"bytes=abc-",
		"bytes=-",
		"bytes=-500",
		"bytes=200-100",
		"bytes=1000-",
		"bytes=0-10,20-30",
		"items=0-10",
		"bytes=",
	} {
		_, err := s.Serve(context.Background(), rep, header)
		require.Errorf(t, err, "header %q", header)
		assert.Truef(t, errors.Is(err, service.ErrRangeNotSatisfiable), "header %q", header)
	}
}

func TestParseRangeClampsEnd(t *testing.T) {
	start, end, err := parseRange("bytes=900-5000", 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(900), start)
	assert.Equal(t, int64(999), end)
}
