// Package openaiapi wraps the OpenAI API behind the two calls the bot needs:
// single-turn chat completion with a bounded rolling history, and TTS speech
// synthesis for the audio overlay.
package openaiapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// SpeechFileName is the fixed file the overlay player watches. Each synthesis
// overwrites it and the WebSocket hub announces the change.
const SpeechFileName = "file.mp3"

// Client keeps the last HistoryLimit exchanges as rolling context across
// Complete calls. It is safe for concurrent use; history updates are serialized.
type Client struct {
	api           *openai.Client
	model         string
	systemContext string
	historyLimit  int
	dataDir       string

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

// Options configures NewClient. BaseURL is for tests against a fake server.
type Options struct {
	APIKey       string
	Model        string
	ContextFile  string
	HistoryLimit int
	DataDir      string
	BaseURL      string
}

// NewClient builds the adapter. A missing context file is tolerated: the bot
// then runs without a system prompt, matching the behavior of the original
// deployment.
func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	systemContext := ""
	if opts.ContextFile != "" {
		raw, err := os.ReadFile(opts.ContextFile)
		if err != nil {
			slog.Warn("context file not found, using empty context", slog.String("path", opts.ContextFile))
		} else {
			systemContext = string(raw)
		}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 5
	}
	return &Client{
		api:           openai.NewClientWithConfig(cfg),
		model:         opts.Model,
		systemContext: systemContext,
		historyLimit:  opts.HistoryLimit,
		dataDir:       opts.DataDir,
	}
}

// Complete sends prompt with the system context and the rolling history, and
// records the exchange. No retries; the caller decides what a failure means.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	messages := make([]openai.ChatCompletionMessage, 0, len(c.history)+2)
	if c.systemContext != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.systemContext,
		})
	}
	messages = append(messages, c.history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	c.mu.Unlock()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty choices")
	}
	answer := resp.Choices[0].Message.Content

	c.mu.Lock()
	c.history = append(c.history,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: answer},
	)
	// Keep the last historyLimit exchanges (one exchange = user + assistant).
	if max := c.historyLimit * 2; len(c.history) > max {
		c.history = c.history[len(c.history)-max:]
	}
	c.mu.Unlock()

	return answer, nil
}

// HistoryLen reports the number of stored messages. Exposed for tests and the
// status endpoint.
func (c *Client) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// Speech synthesizes text with tts-1/alloy and writes the MP3 under the data
// dir, returning the written path.
func (c *Client) Speech(ctx context.Context, text string) (string, error) {
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Voice: openai.VoiceAlloy,
		Input: text,
	})
	if err != nil {
		return "", fmt.Errorf("speech synthesis: %w", err)
	}
	defer func() {
		if err := resp.Close(); err != nil {
			slog.Warn("failed to close speech response", slog.Any("err", err))
		}
	}()
	audio, err := io.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("read speech response: %w", err)
	}
	dir := filepath.Join(c.dataDir, "public")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	path := filepath.Join(dir, SpeechFileName)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return path, nil
}
