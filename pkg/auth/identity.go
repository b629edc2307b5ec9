package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MockViewerID is the fixed identity substituted when mock viewers are
// enabled and a request carries no init data. Matches the id the companion
// bot seeds in development databases.
const MockViewerID int64 = 8510744654

// DefaultMaxInitDataAge bounds how old a signed init data payload may be.
const DefaultMaxInitDataAge = 24 * time.Hour

// Viewer is the authenticated Telegram user behind a request.
type Viewer struct {
	ID        int64
	Username  string
	FirstName string
	Mock      bool
}

// SecConfig carries the request-gate settings for the HTTP surface.
type SecConfig struct {
	BotToken        string
	AllowMockViewer bool
	MockViewerID    int64
	AllowedOrigins  []string
	IPWhitelist     []string
	RPS             float64
	Burst           int
	MaxInitDataAge  time.Duration
}

var (
	ErrNoInitData      = errors.New("no init data")
	ErrBadSignature    = errors.New("init data signature mismatch")
	ErrInitDataExpired = errors.New("init data expired")
)

// VerifyInitData validates a Telegram Web App initData payload against the
// bot token and returns the embedded viewer. The signature scheme is
// HMAC-SHA256 over the sorted key=value lines, keyed by
// HMAC-SHA256("WebAppData", botToken).
func VerifyInitData(initData, botToken string, maxAge time.Duration) (Viewer, error) {
	if initData == "" {
		return Viewer{}, ErrNoInitData
	}
	vals, err := url.ParseQuery(initData)
	if err != nil {
		return Viewer{}, fmt.Errorf("malformed init data: %w", err)
	}
	gotHash := vals.Get("hash")
	if gotHash == "" {
		return Viewer{}, ErrBadSignature
	}
	vals.Del("hash")

	lines := make([]string, 0, len(vals))
	for k := range vals {
		lines = append(lines, k+"="+vals.Get(k))
	}
	sort.Strings(lines)
	checkString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(gotHash)) {
		return Viewer{}, ErrBadSignature
	}

	if maxAge <= 0 {
		maxAge = DefaultMaxInitDataAge
	}
	if ad := vals.Get("auth_date"); ad != "" {
		sec, err := strconv.ParseInt(ad, 10, 64)
		if err != nil {
			return Viewer{}, fmt.Errorf("malformed auth_date: %w", err)
		}
		if time.Since(time.Unix(sec, 0)) > maxAge {
			return Viewer{}, ErrInitDataExpired
		}
	}

	var u struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}
	if raw := vals.Get("user"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return Viewer{}, fmt.Errorf("malformed user payload: %w", err)
		}
	}
	if u.ID == 0 {
		return Viewer{}, errors.New("init data carries no user id")
	}
	return Viewer{ID: u.ID, Username: u.Username, FirstName: u.FirstName}, nil
}

// MockViewer builds the development fallback identity.
func (c SecConfig) MockViewer() Viewer {
	id := c.MockViewerID
	if id == 0 {
		id = MockViewerID
	}
	return Viewer{ID: id, FirstName: "Dev", Mock: true}
}

type ctxKey int

const viewerKey ctxKey = iota

// WithViewer returns a context carrying the resolved viewer.
func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

// ViewerFromContext extracts the viewer placed by the gateway middleware.
func ViewerFromContext(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(Viewer)
	return v, ok
}
