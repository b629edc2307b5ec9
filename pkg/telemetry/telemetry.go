package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Minimal, low-overhead request telemetry designed for local usage.
// - By default only slow requests are logged (see slowThreshold).
// - Full traces are recorded only for sampled requests (very low default rate).

type ctxKeyType struct{}

var (
	writerOnce    sync.Once
	writerCh      chan []byte
	requestCtr    uint64
	sampleRate    = 0.001
	slowThreshold = 200 * time.Millisecond
)

var httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "saveit_http_request_duration_seconds",
	Help:    "HTTP request latency by method and status.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "status"})

// Span is one timed step relative to request start (milliseconds).
type Span struct {
	Op       string `json:"op"`
	StartMs  int64  `json:"start_ms"`
	Duration int64  `json:"duration_ms"`
}

// Telemetry holds the per-request trace and metadata.
type Telemetry struct {
	RequestID string `json:"request_id"`
	Op        string `json:"op"`
	StartMs   int64  `json:"start_ms"`
	Duration  int64  `json:"duration_ms"`
	Status    int    `json:"status"`
	Spans     []Span `json:"spans,omitempty"`

	startTime time.Time
	mu        sync.Mutex
}

// initWriter lazily starts a background writer that appends JSON lines to
// the telemetry sink. SAVEIT_TELEMETRY_DIR overrides the default ./logs.
func initWriter() {
	writerCh = make(chan []byte, 1024)
	go func() {
		dir := os.Getenv("SAVEIT_TELEMETRY_DIR")
		if dir == "" {
			dir = "logs"
		}
		_ = os.MkdirAll(dir, 0o755)
		f, err := os.OpenFile(filepath.Join(dir, "telemetry.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		for b := range writerCh {
			_, _ = f.Write(append(b, '\n'))
		}
	}()
}

func enqueue(b []byte) {
	writerOnce.Do(initWriter)
	select {
	case writerCh <- b:
	default:
		// drop if channel full to avoid blocking
	}
}

// Middleware wraps the provided handler and records request timing and
// sampled spans.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		sampled := shouldSample(r)

		var tel *Telemetry
		if sampled {
			tel = &Telemetry{
				RequestID: reqID,
				Op:        r.Method + " " + r.URL.Path,
				startTime: start,
				StartMs:   start.UnixMilli(),
			}
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyType{}, tel))
		}

		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		httpDuration.WithLabelValues(r.Method, http.StatusText(srw.status)).Observe(dur.Seconds())

		if tel != nil {
			tel.mu.Lock()
			tel.Status = srw.status
			tel.Duration = dur.Milliseconds()
			b, err := json.Marshal(tel)
			tel.mu.Unlock()
			if err == nil {
				enqueue(b)
			}
			return
		}

		// not sampled: only log slow requests
		if dur > slowThreshold {
			b, err := json.Marshal(map[string]any{
				"request_id":  reqID,
				"op":          r.Method + " " + r.URL.Path,
				"duration_ms": dur.Milliseconds(),
				"status":      srw.status,
				"slow":        true,
			})
			if err == nil {
				enqueue(b)
			}
		}
	})
}

// StartSpan returns an end function recording a timed step on the sampled
// request trace. When the request is not sampled it is a no-op.
func StartSpan(ctx context.Context, name string) func() {
	tel, ok := ctx.Value(ctxKeyType{}).(*Telemetry)
	if !ok {
		return func() {}
	}
	startRel := time.Since(tel.startTime).Milliseconds()
	tel.mu.Lock()
	tel.Spans = append(tel.Spans, Span{Op: name, StartMs: startRel})
	idx := len(tel.Spans) - 1
	tel.mu.Unlock()
	return func() {
		endRel := time.Since(tel.startTime).Milliseconds()
		tel.mu.Lock()
		if idx < len(tel.Spans) {
			tel.Spans[idx].Duration = endRel - tel.Spans[idx].StartMs
		}
		tel.mu.Unlock()
	}
}

// shouldSample decides whether to record a full trace. The header
// `X-Debug-Telemetry: 1` forces sampling.
func shouldSample(r *http.Request) bool {
	if r.Header.Get("X-Debug-Telemetry") == "1" {
		return true
	}
	if sampleRate <= 0 {
		return false
	}
	denom := int64(1 / sampleRate)
	if denom <= 1 {
		return true
	}
	n := int64(atomic.AddUint64(&requestCtr, 1))
	return (n % denom) == 0
}

// SetSampleRate sets the approximate sampling rate for full traces (0..1).
// A rate of 0 disables full tracing (only slow requests will be logged).
func SetSampleRate(r float64) {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	sampleRate = r
}

// SetSlowThreshold sets the duration above which non-sampled requests get a
// lightweight log.
func SetSlowThreshold(d time.Duration) {
	if d < 0 {
		d = 0
	}
	slowThreshold = d
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
