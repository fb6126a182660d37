package permission

import (
	"context"
	"errors"
	"time"

	"bottarot-be/internal/pkg/logger"
)

// ContactStore remembers, per client, when the API was last reached.
type ContactStore interface {
	LastServerContact(ctx context.Context) (time.Time, bool)
	TouchServerContact(ctx context.Context, at time.Time) error
}

type WarmupResult struct {
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	Slow       bool   `json:"slow,omitempty"` // the server was most likely asleep
	LatencyMs  int64  `json:"latency_ms"`
	ServerTime string `json:"server_time,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Warmer pings the API ahead of real traffic when it has probably gone idle.
type Warmer struct {
	client         *Client
	logger         logger.ILogger
	timeout        time.Duration
	sleepThreshold time.Duration
	slowThreshold  time.Duration
	now            func() time.Time
}

func NewWarmer(client *Client, log logger.ILogger, timeout, sleepThreshold, slowThreshold time.Duration) *Warmer {
	return &Warmer{
		client:         client,
		logger:         log,
		timeout:        timeout,
		sleepThreshold: sleepThreshold,
		slowThreshold:  slowThreshold,
		now:            time.Now,
	}
}

// WakeUp always pings.
func (w *Warmer) WakeUp(ctx context.Context) WarmupResult {
	start := w.now()
	res, err := w.client.Ping(ctx, w.timeout)
	latency := w.now().Sub(start)

	if err != nil {
		result := WarmupResult{LatencyMs: latency.Milliseconds(), Error: err.Error()}
		if errors.Is(err, context.DeadlineExceeded) {
			result.Error = "timeout"
		}
		w.logger.Warn("Warmer", "Warmup failed", map[string]interface{}{"error": err, "latency_ms": latency.Milliseconds()})
		return result
	}

	w.logger.Info("Warmer", "Server awake", map[string]interface{}{"latency_ms": latency.Milliseconds()})
	return WarmupResult{
		Success:    true,
		Slow:       latency > w.slowThreshold,
		LatencyMs:  latency.Milliseconds(),
		ServerTime: res.Time,
		Message:    res.Message,
	}
}

// SmartWarmup pings only when neither this client nor this process has heard
// from the API within the sleep threshold.
func (w *Warmer) SmartWarmup(ctx context.Context, contacts ContactStore) WarmupResult {
	now := w.now()

	last := w.client.LastContact()
	if t, ok := contacts.LastServerContact(ctx); ok && t.After(last) {
		last = t
	}

	if !last.IsZero() && now.Sub(last) <= w.sleepThreshold {
		return WarmupResult{Success: true, Skipped: true}
	}

	result := w.WakeUp(ctx)
	if result.Success {
		if err := contacts.TouchServerContact(ctx, now); err != nil {
			w.logger.Warn("Warmer", "Failed to persist last server contact", map[string]interface{}{"error": err})
		}
	}
	return result
}
