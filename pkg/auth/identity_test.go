package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "12345:TEST-TOKEN"

// signInitData produces a payload signed the way Telegram clients do.
func signInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	lines := make([]string, 0, len(fields))
	for k, v := range fields {
		lines = append(lines, k+"="+v)
	}
	sort.Strings(lines)
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	q := url.Values{}
	for k, v := range fields {
		q.Set(k, v)
	}
	q.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return q.Encode()
}

func freshFields(user string) map[string]string {
	return map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"query_id":  "AAF6e9YBAAAAAHp71gE",
		"user":      user,
	}
}

func TestVerifyInitData(t *testing.T) {
	data := signInitData(t, testBotToken, freshFields(`{"id":777,"first_name":"Ada","username":"ada"}`))
	v, err := VerifyInitData(data, testBotToken, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(777), v.ID)
	assert.Equal(t, "ada", v.Username)
	assert.False(t, v.Mock)
}

func TestVerifyInitDataRejectsTamper(t *testing.T) {
	data := signInitData(t, testBotToken, freshFields(`{"id":777}`))
	tampered := strings.Replace(data, "777", "778", 1)
	_, err := VerifyInitData(tampered, testBotToken, 0)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = VerifyInitData(data, "other-token", 0)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = VerifyInitData("", testBotToken, 0)
	assert.ErrorIs(t, err, ErrNoInitData)
}

func TestVerifyInitDataExpiry(t *testing.T) {
	fields := freshFields(`{"id":777}`)
	fields["auth_date"] = strconv.FormatInt(time.Now().Add(-48*time.Hour).Unix(), 10)
	data := signInitData(t, testBotToken, fields)
	_, err := VerifyInitData(data, testBotToken, 0)
	assert.ErrorIs(t, err, ErrInitDataExpired)
}

func gatewayProbe(cfg SecConfig) (http.Handler, *Viewer) {
	var seen Viewer
	h := AuthenticateRequestMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, ok := ViewerFromContext(r.Context()); ok {
			seen = v
		}
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func TestGatewayResolvesViewerFromHeader(t *testing.T) {
	cfg := SecConfig{BotToken: testBotToken}
	h, seen := gatewayProbe(cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	req.Header.Set("X-Telegram-Init-Data", signInitData(t, testBotToken, freshFields(`{"id":42,"username":"bob"}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), seen.ID)
}

func TestGatewayRejectsWithoutInitData(t *testing.T) {
	h, _ := gatewayProbe(SecConfig{BotToken: testBotToken})
	req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestGatewayMockViewerFallback(t *testing.T) {
	h, seen := gatewayProbe(SecConfig{BotToken: testBotToken, AllowMockViewer: true})
	req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MockViewerID, seen.ID)
	assert.True(t, seen.Mock)
}

func TestGatewayOpenPaths(t *testing.T) {
	h, _ := gatewayProbe(SecConfig{BotToken: testBotToken})
	for _, p := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}
}

func TestGatewayCORSPreflight(t *testing.T) {
	h, _ := gatewayProbe(SecConfig{BotToken: testBotToken, AllowedOrigins: []string{"https://app.example.com"}})
	req := httptest.NewRequest(http.MethodOptions, "/v1/items", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGatewayRateLimit(t *testing.T) {
	h, _ := gatewayProbe(SecConfig{BotToken: testBotToken, AllowMockViewer: true, RPS: 1, Burst: 2})
	codes := []int{}
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}
