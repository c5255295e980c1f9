package playback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgate/backend/internal/controller/session"
	"github.com/vidgate/backend/internal/lib/logger/handlers/slogdiscard"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
	accessSrv "github.com/vidgate/backend/internal/service/access"
	tokenSrv "github.com/vidgate/backend/internal/service/accesstoken"
	locatorSrv "github.com/vidgate/backend/internal/service/locator"
	playbackSrv "github.com/vidgate/backend/internal/service/playback"
	streamerSrv "github.com/vidgate/backend/internal/service/streamer"
)

var testSecret = []byte("test-secret")

type stubCatalog struct {
	videos map[string]models.Video
}

func (s *stubCatalog) VideoByHandle(_ context.Context, handle string) (models.Video, error) {
	video, ok := s.videos[handle]
	if !ok {
		return models.Video{}, service.ErrVideoNotFound
	}

	return video, nil
}

func (s *stubCatalog) IncrementViews(_ context.Context, _ int64) error {
	return nil
}

type testEnv struct {
	app      *fiber.App
	videoDir string
	hlsDir   string
	tokens   *tokenSrv.AccessToken
}

func newTestEnv(t *testing.T, videos ...models.Video) *testEnv {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()

	catalog := &stubCatalog{videos: make(map[string]models.Video)}
	for _, v := range videos {
		catalog.videos[v.Handle] = v
	}

	env := &testEnv{
		videoDir: t.TempDir(),
		hlsDir:   t.TempDir(),
		tokens:   tokenSrv.New(testSecret, 4*time.Hour),
	}

	playback := playbackSrv.New(log, catalog, accessSrv.New(log), env.tokens, "/stream")
	locator := locatorSrv.New(log, env.videoDir, env.hlsDir)
	streamer := streamerSrv.New(log)

	env.app = New(4*time.Second, playback, locator, streamer, testSecret)

	return env
}

func (e *testEnv) writeVideo(t *testing.T, handle string, size int) []byte {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}

	require.NoError(t, os.WriteFile(filepath.Join(e.videoDir, handle+".mp4"), data, 0666))

	return data
}

func sessionCookie(t *testing.T, viewerID int64, paid bool) string {
	t.Helper()

	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = viewerID
	claims["paid"] = paid
	claims["exp"] = time.Now().Add(time.Hour).Unix()

	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)

	return signed
}

func freeVideo(handle string) models.Video {
	return models.Video{
		ID:     1,
		Handle: handle,
		Title:  "free",
		Active: true,
	}
}

func premiumVideo(handle string) models.Video {
	return models.Video{
		ID:             2,
		Handle:         handle,
		Title:          "premium",
		Premium:        true,
		PreviewSeconds: 30,
		Active:         true,
	}
}

func TestStreamWholeFile(t *testing.T) {
	env := newTestEnv(t, freeVideo("abc"))
	data := env.writeVideo(t, "abc", 1000)

	req := httptest.NewRequest("GET", "/stream/abc", nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "video/mp4", res.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", res.Header.Get("Accept-Ranges"))
	assert.Contains(t, res.Header.Get("Cache-Control"), "no-store")

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, data, body)
}

func TestStreamRange(t *testing.T) {
	env := newTestEnv(t, freeVideo("abc"))
	data := env.writeVideo(t, "abc", 1000)

	req := httptest.NewRequest("GET", "/stream/abc", nil)
	req.Header.Set("Range", "bytes=100-199")

	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusPartialContent, res.StatusCode)
	assert.Equal(t, "bytes 100-199/1000", res.Header.Get("Content-Range"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, data[100:200], body)
}

func TestStreamBadRange(t *testing.T) {
	env := newTestEnv(t, freeVideo("abc"))
	env.writeVideo(t, "abc", 1000)

	req := httptest.NewRequest("GET", "/stream/abc", nil)
	req.Header.Set("Range", "bytes=2000-")

	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusRequestedRangeNotSatisfiable, res.StatusCode)
	assert.Equal(t, "bytes */1000", res.Header.Get("Content-Range"))
}

func TestStreamInactiveVideo(t *testing.T) {
	video := freeVideo("abc")
	video.Active = false

	env := newTestEnv(t, video)
	env.writeVideo(t, "abc", 1000)

	req := httptest.NewRequest("GET", "/stream/abc", nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestStreamUnknownVideo(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/stream/nope", nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestStreamExpiredToken(t *testing.T) {
	env := newTestEnv(t, premiumVideo("abc"))
	env.writeVideo(t, "abc", 1000)

	past := tokenSrv.NewWithClock(testSecret, time.Hour, func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	})
	viewerID := int64(7)
	stale, err := past.Issue(&viewerID, 2)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/stream/abc?token="+stale, nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestStreamTokenForOtherVideo(t *testing.T) {
	env := newTestEnv(t, premiumVideo("abc"))
	env.writeVideo(t, "abc", 1000)

	viewerID := int64(7)
	other, err := env.tokens.Issue(&viewerID, 999)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/stream/abc?token="+other, nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestAccessTokenGuestPreview(t *testing.T) {
	env := newTestEnv(t, premiumVideo("abc"))

	req := httptest.NewRequest("POST", "/access-token?videoId=abc", nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var grant models.PlaybackGrant
	require.NoError(t, json.NewDecoder(res.Body).Decode(&grant))

	assert.Equal(t, models.TierPreview, grant.Tier)
	assert.Empty(t, grant.Token)
	require.NotNil(t, grant.PreviewSeconds)
	assert.EqualValues(t, 30, *grant.PreviewSeconds)
}

func TestAccessTokenPaidViewer(t *testing.T) {
	env := newTestEnv(t, premiumVideo("abc"))

	req := httptest.NewRequest("POST", "/access-token?videoId=abc", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionCookie(t, 7, true)})

	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var grant models.PlaybackGrant
	require.NoError(t, json.NewDecoder(res.Body).Decode(&grant))

	assert.Equal(t, models.TierFull, grant.Tier)
	assert.NotEmpty(t, grant.Token)
	assert.Nil(t, grant.PreviewSeconds)

	claims, err := env.tokens.Verify(grant.Token)
	require.NoError(t, err)
	assert.EqualValues(t, 2, claims.VideoID)
}

func TestAccessTokenMissingVideoID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/access-token", nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestSegmentBlocksKeyFiles(t *testing.T) {
	env := newTestEnv(t, freeVideo("abc"))

	dir := filepath.Join(env.hlsDir, "abc")
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.m3u8"), []byte("#EXTM3U\n"), 0666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "key.bin"), make([]byte, 16), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "key.info"), []byte("x\ny\nz\n"), 0600))

	for _, name := range []string{"key.bin", "key.info"} {
		req := httptest.NewRequest("GET", "/stream/abc/"+name, nil)
		res, err := env.app.Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusNotFound, res.StatusCode, name)
	}
}

func TestKeyEndpoint(t *testing.T) {
	env := newTestEnv(t, freeVideo("abc"))

	dir := filepath.Join(env.hlsDir, "abc")
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.m3u8"), []byte("#EXTM3U\n"), 0666))

	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "key.bin"), key, 0600))

	req := httptest.NewRequest("GET", "/key/abc", nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)

	require.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "application/octet-stream", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, key, body)
}
