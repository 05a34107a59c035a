// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesHandled    prometheus.Counter
	CommandsDispatched *prometheus.CounterVec
	CompletionsOK      prometheus.Counter
	CompletionsFailed  prometheus.Counter
	CooldownRejections prometheus.Counter
	SlotSpins          prometheus.Counter
	FactsSent          prometheus.Counter
	ChunksSent         prometheus.Counter

	// Histograms (seconds)
	CompletionDuration prometheus.Observer

	// Gauges
	ChatConnectedGauge prometheus.Gauge // 1=connected,0=disconnected
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_handled_total", Help: "Chat messages seen by the dispatcher"})
		CommandsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_commands_dispatched_total", Help: "Commands routed to an action"}, []string{"command"})
		CompletionsOK = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_completions_succeeded_total", Help: "Completion API calls that succeeded"})
		CompletionsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_completions_failed_total", Help: "Completion API calls that failed"})
		CooldownRejections = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_cooldown_rejections_total", Help: "Actions rejected by a cooldown window"})
		SlotSpins = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_slot_spins_total", Help: "Slot machine plays"})
		FactsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_facts_sent_total", Help: "Useless facts broadcast to chat"})
		ChunksSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chunks_sent_total", Help: "Outbound chat message chunks"})
		CompletionDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_completion_duration_seconds", Help: "Completion call duration seconds", Buckets: prometheus.DefBuckets})
		ChatConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_chat_connected", Help: "Chat connection up=1 down=0"})
	})
}

// SetChatConnected flips the connection gauge.
func SetChatConnected(up bool) {
	if ChatConnectedGauge != nil {
		if up {
			ChatConnectedGauge.Set(1)
		} else {
			ChatConnectedGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or an empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger carrying the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
