// Command gaufromatic is the main entrypoint for the chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Opens the flat-file credits ledger.
//   - Connects to Twitch chat and dispatches commands to the model.
//   - Starts the periodic fact broadcaster.
//   - Exposes a minimal HTTP server with /healthz, /metrics, /gpt and the
//     overlay WebSocket.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gaufrelabs/gaufromatic/chat"
	"github.com/gaufrelabs/gaufromatic/config"
	"github.com/gaufrelabs/gaufromatic/cooldown"
	"github.com/gaufrelabs/gaufromatic/credits"
	"github.com/gaufrelabs/gaufromatic/emotes"
	"github.com/gaufrelabs/gaufromatic/facts"
	"github.com/gaufrelabs/gaufromatic/openaiapi"
	"github.com/gaufrelabs/gaufromatic/server"
	"github.com/gaufrelabs/gaufromatic/telemetry"
	"github.com/gaufrelabs/gaufromatic/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat credentials missing", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateCompletionReady(); err != nil {
		slog.Error("completion credentials missing", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("gaufromatic", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Credits ledger (flat JSON file, created on first write)
	ledger, err := credits.Open(cfg.CreditsFile)
	if err != nil {
		slog.Error("failed to open credits ledger", slog.Any("err", err), slog.String("path", cfg.CreditsFile))
		os.Exit(1)
	}

	// Model client
	llm := openaiapi.NewClient(openaiapi.Options{
		APIKey:       cfg.OpenAIKey,
		Model:        cfg.ModelName,
		ContextFile:  cfg.ContextFile,
		HistoryLimit: cfg.HistoryLength,
		DataDir:      cfg.DataDir,
	})

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Helix client for live checks. Best-effort token fetch up front so
	// credential problems surface at startup rather than mid-broadcast.
	var helix *twitchapi.HelixClient
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		ts := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
		tctx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if tok, err := ts.Get(tctx); err != nil {
			slog.Warn("twitch app token fetch failed", slog.Any("err", err))
		} else if len(tok) > 6 {
			slog.Info("twitch app token acquired", slog.String("tail", "***"+tok[len(tok)-6:]))
		}
		cancel()
		helix = &twitchapi.HelixClient{TokenSource: ts, ClientID: cfg.TwitchClientID}
	}

	// Chat client and command dispatcher
	chatClient := chat.NewClient(cfg.BotUsername, cfg.OAuthToken, cfg.Channels)

	broadcaster := &facts.Broadcaster{
		Completer: llm,
		Chat:      chatClient,
		Live:      helix,
		LiveLogin: cfg.Channels[0],
		Cooldown:  cooldown.NewStore(cfg.FactCooldown),
	}

	handlers := server.NewHandlers(ledger, llm, filepath.Join(cfg.DataDir, "public"))

	filter := emotes.NewFilter(cfg.EmoteList, cfg.SanitizerList)
	dispatcher := chat.NewDispatcher(cfg, chatClient, llm, ledger, filter, broadcaster, llm, handlers.Hub)
	chatClient.OnMessage(func(msg chat.Message) {
		dispatcher.Handle(ctx, msg)
	})

	// Periodic facts only make sense with a live gate; manual !fact still
	// works without one because it bypasses the gate.
	if helix != nil {
		go broadcaster.Start(ctx, cfg.Channels[0])
	} else {
		slog.Info("periodic facts disabled (missing twitch client credentials)")
	}

	// HTTP server (health/metrics/overlay)
	go func() {
		if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	slog.Info("connecting to chat", slog.Any("channels", cfg.Channels), slog.String("bot", cfg.BotUsername))
	if err := chatClient.Connect(ctx); err != nil && ctx.Err() == nil {
		slog.Error("chat connection failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}
