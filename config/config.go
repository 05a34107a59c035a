// Package config loads environment variables and provides a typed Config used across the bot.
// It applies literal defaults so the binary can run locally with minimal setup.
// For required chat credentials, use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultChannel is the channel the bot serves when CHANNELS is not set.
const DefaultChannel = "gaufregentille"

// defaultEmoteList is the union of the channel's emote allow-lists. It is
// configuration data (EMOTE_LIST), not derived state.
var defaultEmoteList = []string{
	"Kappa", "OMEGALUL", "PogChamp", "LUL", "BibleThump", "4Head",
	"FeelsStrongMan", "KEKW", "monkaS", "gaufre1Ffee", "gaufre1Justice",
	"gaufre1Gunner", "gaufre1Wut", "bongoTap", "catJAM", "catKISS", "HUH",
	"Jigglin", "PogTasty", "PETTHEMODS", "pedro", "muted", "LICKA", "POLICE",
	"RobustoAPT", "ThisIsFine", "VIBE", "Joel", "gachiHYPER",
}

// defaultSanitizerList is the narrower allow-list used when stripping LLM
// output (SANITIZER_EMOTE_LIST).
var defaultSanitizerList = []string{
	"Kappa", "OMEGALUL", "PogChamp", "gaufreLol", "LUL", "PepeHands",
	"BibleThump", "4Head", "FeelsStrongMan", "KEKW", "monkaS", "gachiHYPER",
}

// defaultNameTriggers are the phrases chatters use to address the bot directly.
var defaultNameTriggers = []string{"gaufromatic", "le bot", "lebot", "gaufrobot", "gaugromatic"}

type Config struct {
	// Twitch
	Channels           []string
	BotUsername        string
	OAuthToken         string
	TwitchClientID     string
	TwitchClientSecret string

	// OpenAI
	OpenAIKey     string
	ModelName     string
	HistoryLength int
	ContextFile   string

	// Dispatch
	CommandNames        []string
	NameTriggers        []string
	TrackedUsers        []string
	ChannelOwner        string
	SendUsername        bool
	EnableTTS           bool
	EnableChannelPoints bool

	// Cooldowns
	ResponseCooldown time.Duration
	SlotCooldown     time.Duration
	ReactionCooldown time.Duration
	FactCooldown     time.Duration

	// Emotes
	EmoteList     []string
	SanitizerList []string

	// Storage
	CreditsFile string
	DataDir     string

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds
// are missing; use ValidateChatReady() when you require the chat connection.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Channels = splitList(getenv("CHANNELS", DefaultChannel))
	cfg.BotUsername = os.Getenv("TWITCH_USER")
	cfg.OAuthToken = os.Getenv("TWITCH_AUTH")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.ModelName = getenv("MODEL_NAME", "gpt-3.5-turbo")
	cfg.ContextFile = getenv("CONTEXT_FILE", "file_context.txt")
	hl, err := getenvInt("HISTORY_LENGTH", 5)
	if err != nil {
		return nil, err
	}
	cfg.HistoryLength = hl

	cfg.CommandNames = splitList(strings.ToLower(getenv("COMMAND_NAME", "!gpt")))
	cfg.NameTriggers = splitList(strings.ToLower(getenv("NAME_TRIGGERS", strings.Join(defaultNameTriggers, ","))))
	cfg.TrackedUsers = splitList(strings.ToLower(getenv("TRACKED_USERS", "garryaulait,pandibullee,gaufregentille")))
	cfg.ChannelOwner = getenv("CHANNEL_OWNER", DefaultChannel)
	cfg.SendUsername = getenv("SEND_USERNAME", "true") == "true"
	cfg.EnableTTS = getenv("ENABLE_TTS", "false") == "true"
	cfg.EnableChannelPoints = getenv("ENABLE_CHANNEL_POINTS", "false") == "true"

	if cfg.ResponseCooldown, err = getenvDuration("COOLDOWN_DURATION", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SlotCooldown, err = getenvDuration("SLOT_COOLDOWN", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReactionCooldown, err = getenvDuration("USER_REACTION_COOLDOWN", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.FactCooldown, err = getenvDuration("FACT_COOLDOWN", 20*time.Minute); err != nil {
		return nil, err
	}

	cfg.EmoteList = splitList(getenv("EMOTE_LIST", strings.Join(defaultEmoteList, ",")))
	cfg.SanitizerList = splitList(getenv("SANITIZER_EMOTE_LIST", strings.Join(defaultSanitizerList, ",")))

	cfg.DataDir = getenv("DATA_DIR", "data")
	cfg.CreditsFile = getenv("CREDITS_FILE", cfg.DataDir+"/user_credits.json")

	cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")

	return cfg, nil
}

// ValidateChatReady checks required fields for connecting to Twitch chat.
func (c *Config) ValidateChatReady() error {
	if len(c.Channels) == 0 || c.BotUsername == "" || c.OAuthToken == "" {
		return fmt.Errorf("missing twitch env: require CHANNELS, TWITCH_USER, TWITCH_AUTH")
	}
	return nil
}

// ValidateCompletionReady checks required fields for calling the completion API.
func (c *Config) ValidateCompletionReady() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("missing OPENAI_API_KEY")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getenvDuration accepts Go duration syntax ("10s", "15m") or a bare number of seconds.
func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid %s: want duration or seconds, got %q", key, v)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
