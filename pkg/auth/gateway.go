package auth

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"saveit/pkg/logger"
	"saveit/pkg/utils"
)

// openPaths may be served without a viewer identity.
var openPaths = map[string]bool{
	"/healthz":      true,
	"/readyz":       true,
	"/metrics":      true,
	"/openapi.yaml": true,
}

// AuthenticateRequestMiddleware gates every request: CORS, IP whitelist,
// viewer resolution from Telegram init data and per-viewer rate limiting.
func AuthenticateRequestMiddleware(cfg SecConfig) func(http.Handler) http.Handler {
	// rate limiters keyed by viewer id or remote ip
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// log request (redacts sensitive headers)
			logger.LogRequest(r)

			// cors preflight
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-Telegram-Init-Data")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			// ip whitelist
			if len(cfg.IPWhitelist) > 0 {
				ip := clientIP(r)
				logger.Debug("ip_check", "ip", ip)
				if !ipWhitelisted(ip, cfg.IPWhitelist) {
					utils.JSONError(w, http.StatusForbidden, "forbidden")
					logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", ip, "path", r.URL.Path)
					return
				}
			}

			// allow unauthenticated probes and docs
			if openPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/docs") {
				next.ServeHTTP(w, r)
				return
			}

			viewer, err := resolveViewer(r, cfg)
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "open the app inside Telegram")
				logger.Warn("request_unauthorized", "path", r.URL.Path, "remote", r.RemoteAddr, "error", err)
				return
			}

			// rate limiting per viewer; fall back to ip for safety
			key := strconv.FormatInt(viewer.ID, 10)
			if viewer.ID == 0 {
				key = clientIP(r)
			}
			if !limiters.Allow(key) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("rate_limited", "viewer", viewer.ID, "path", r.URL.Path)
				return
			}

			logger.Info("request_allowed", "method", r.Method, "path", r.URL.Path, "viewer", viewer.ID, "mock", viewer.Mock)
			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), viewer)))
		})
	}
}

// resolveViewer extracts and verifies the viewer identity. Init data comes
// from the X-Telegram-Init-Data header or "Authorization: tma <data>"; with
// neither present the mock viewer applies when enabled.
func resolveViewer(r *http.Request, cfg SecConfig) (Viewer, error) {
	initData := r.Header.Get("X-Telegram-Init-Data")
	if initData == "" {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(strings.ToLower(auth), "tma ") {
			initData = strings.TrimSpace(auth[4:])
		}
	}
	if initData == "" {
		if cfg.AllowMockViewer {
			return cfg.MockViewer(), nil
		}
		return Viewer{}, ErrNoInitData
	}
	return VerifyInitData(initData, cfg.BotToken, cfg.MaxInitDataAge)
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ipWhitelisted(ip string, list []string) bool {
	for _, w := range list {
		if ip == w {
			return true
		}
	}
	return false
}
