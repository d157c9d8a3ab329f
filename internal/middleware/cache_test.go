package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Techmanna/seat-reservation-api/internal/config"
)

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{Enabled: true, TTL: 30 * time.Second, Prefix: "cache", MaxBodyBytes: 1 << 20}
}

func newGetContext(e *echo.Echo, path string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	return c, rec
}

func TestCaptureWriter_OverflowKeepsClientResponseIntact(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 10}

	payload := strings.Repeat("x", 25)
	n, err := cw.Write([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	assert.Equal(t, payload, rec.Body.String(), "the client always receives the full body")
	assert.True(t, cw.overflowed())
	assert.LessOrEqual(t, cw.buf.Len(), 10)

	small := &captureWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 10}
	_, err = small.Write([]byte("tiny"))
	require.NoError(t, err)
	assert.False(t, small.overflowed())
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte("short"))
	assert.False(t, ok)
}

func TestRedisCache_HitServesStoredResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheCfg()
	e := echo.New()
	c, rec := newGetContext(e, "/api/settings")

	hdr := http.Header{"Content-Type": []string{"application/json"}}
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`{"cached":true}`))
	require.NoError(t, err)
	mock.ExpectGet(cacheKeyFrom(cfg.Prefix, c)).SetVal(string(payload))

	handlerCalled := false
	mw := NewRedisCache(cfg, rdb)
	err = mw(func(c echo.Context) error {
		handlerCalled = true
		return c.JSON(http.StatusOK, map[string]bool{"cached": false})
	})(c)
	require.NoError(t, err)

	assert.False(t, handlerCalled, "a hit never reaches the origin handler")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"cached":true}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_MissStoresSuccessfulResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheCfg()
	e := echo.New()
	c, rec := newGetContext(e, "/api/settings")
	key := cacheKeyFrom(cfg.Prefix, c)

	mock.ExpectGet(key).RedisNil()
	// The stored payload embeds response headers, so match on the key only.
	mock.CustomMatch(func(expected, actual []interface{}) error {
		return nil
	}).ExpectSetEx(key, "", cfg.TTL).SetVal("OK")

	mw := NewRedisCache(cfg, rdb)
	err := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})(c)
	require.NoError(t, err)

	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet(), "a small 200 response is stored")
}

func TestRedisCache_DoesNotStoreOversizedResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := cacheCfg()
	cfg.MaxBodyBytes = 8
	e := echo.New()
	c, rec := newGetContext(e, "/api/settings")

	// Only the lookup is expected: an overflowing body must never be
	// written back, or a later hit would serve clipped JSON.
	mock.ExpectGet(cacheKeyFrom(cfg.Prefix, c)).RedisNil()

	mw := NewRedisCache(cfg, rdb)
	body := `{"a":"0123456789abcdef"}`
	err := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, body)
	})(c)
	require.NoError(t, err)

	assert.Equal(t, body, rec.Body.String(), "the live response is untouched")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_SkipsNonGetRequests(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/initiate", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := NewRedisCache(cacheCfg(), rdb)
	err := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	require.NoError(t, err)

	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
