package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/storage"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop() })

	_, err = s.db.Exec(`
		CREATE TABLE videos
		(
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			handle          TEXT    NOT NULL UNIQUE,
			title           TEXT    NOT NULL,
			premium         INTEGER NOT NULL DEFAULT 0,
			preview_seconds INTEGER NOT NULL DEFAULT 0,
			active          INTEGER NOT NULL DEFAULT 1,
			storage_kind    TEXT    NOT NULL DEFAULT 'progressive',
			views           INTEGER NOT NULL DEFAULT 0
		)
	`)
	require.NoError(t, err)

	return s
}

func saveTestVideo(t *testing.T, s *Storage, handle string) int64 {
	t.Helper()

	id, err := s.SaveVideo(context.Background(), models.Video{
		Handle:         handle,
		Title:          "test",
		Premium:        true,
		PreviewSeconds: 30,
		Active:         true,
		StorageKind:    models.StorageProgressive,
	})
	require.NoError(t, err)

	return id
}

func TestSaveAndGetVideo(t *testing.T) {
	s := newTestStorage(t)

	id := saveTestVideo(t, s, "abc")

	byID, err := s.Video(context.Background(), id)
	require.NoError(t, err)

	byHandle, err := s.VideoByHandle(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, byID, byHandle)
	assert.Equal(t, "abc", byID.Handle)
	assert.True(t, byID.Premium)
	assert.Equal(t, int64(30), byID.PreviewSeconds)
	assert.Equal(t, models.StorageProgressive, byID.StorageKind)
	assert.Equal(t, int64(0), byID.Views)
}

func TestSaveVideoDuplicateHandle(t *testing.T) {
	s := newTestStorage(t)

	saveTestVideo(t, s, "abc")

	_, err := s.SaveVideo(context.Background(), models.Video{Handle: "abc", Title: "dup"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrVideoExists))
}

func TestVideoNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.VideoByHandle(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrVideoNotFound))

	err = s.IncrementViews(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrVideoNotFound))
}

func TestConcurrentIncrements(t *testing.T) {
	s := newTestStorage(t)

	id := saveTestVideo(t, s, "abc")

	const n = 50

	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := s.IncrementViews(context.Background(), id); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	video, err := s.Video(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(n), video.Views)
}

func TestSetStorageKindAndActive(t *testing.T) {
	s := newTestStorage(t)

	id := saveTestVideo(t, s, "abc")

	require.NoError(t, s.SetStorageKind(context.Background(), id, models.StorageSegmented))
	require.NoError(t, s.SetActive(context.Background(), id, false))

	video, err := s.Video(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StorageSegmented, video.StorageKind)
	assert.False(t, video.Active)
}
