package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/gaufrelabs/gaufromatic/telemetry"
)

// MaxMessageLength is the largest chunk sent as one chat message. Twitch
// truncates around 500 characters; 399 leaves headroom for IRC framing.
const MaxMessageLength = 399

// chunkStagger spaces consecutive chunks of one long reply.
const chunkStagger = 150 * time.Millisecond

// Message is the read-only view of a chat message handed to the dispatcher.
type Message struct {
	Channel     string
	Username    string
	DisplayName string
	Text        string
	Self        bool
	Bits        int
	// RewardID is set when the message was typed into a channel-points
	// redemption prompt (custom-reward-id tag).
	RewardID string
}

// Client adapts the IRC transport: connect/disconnect, chunked sends,
// moderation commands, and event callbacks.
type Client struct {
	irc      *twitch.Client
	channels []string
	botName  string

	send  func(channel, text string) // irc.Say, replaceable in tests
	sleep func(d time.Duration)
}

// NewClient builds the adapter and registers the greeting handlers for
// subscription and resub notices.
func NewClient(botUsername, oauthToken string, channels []string) *Client {
	irc := twitch.NewClient(botUsername, oauthToken)
	c := &Client{
		irc:      irc,
		channels: channels,
		botName:  strings.ToLower(botUsername),
		send:     irc.Say,
		sleep:    time.Sleep,
	}

	irc.OnConnect(func() {
		telemetry.SetChatConnected(true)
		slog.Info("connected to twitch chat", slog.Any("channels", channels))
	})
	irc.OnUserNoticeMessage(func(msg twitch.UserNoticeMessage) {
		c.greetUserNotice(msg)
	})

	return c
}

// OnMessage registers the dispatcher callback. Cheer greetings are handled
// here before the message is dispatched, since bits arrive on regular
// messages.
func (c *Client) OnMessage(handler func(Message)) {
	c.irc.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		username := strings.ToLower(msg.User.Name)
		if msg.Bits > 0 {
			c.Say(msg.Channel, fmt.Sprintf("✨ %s a lâché %d bits ! C'est pas des miettes !", msg.User.DisplayName, msg.Bits))
		}
		handler(Message{
			Channel:     msg.Channel,
			Username:    msg.User.Name,
			DisplayName: msg.User.DisplayName,
			Text:        msg.Message,
			Self:        username == c.botName,
			Bits:        msg.Bits,
			RewardID:    msg.Tags["custom-reward-id"],
		})
	})
}

func (c *Client) greetUserNotice(msg twitch.UserNoticeMessage) {
	switch msg.MsgID {
	case "sub":
		c.Say(msg.Channel, fmt.Sprintf("Merci %s pour ton abonnement ! Tu viens de faire pleurer une gaufre.", msg.User.DisplayName))
	case "resub":
		months := msg.MsgParams["msg-param-cumulative-months"]
		if months == "" {
			months = "plusieurs"
		}
		c.Say(msg.Channel, fmt.Sprintf("Merci %s pour %s mois de soutien ! Tu dois aimer les gaufres au suk.", msg.User.DisplayName, months))
	}
}

// Say sends text to channel, splitting anything longer than MaxMessageLength
// into consecutive chunks with a fixed stagger per chunk index. Long replies
// are never truncated.
func (c *Client) Say(channel, text string) {
	for i, chunk := range SplitMessage(text, MaxMessageLength) {
		if i > 0 {
			c.sleep(chunkStagger)
		}
		c.send(channel, chunk)
		telemetry.ChunksSent.Inc()
	}
}

// Whisper sends a private message through the IRC whisper command.
func (c *Client) Whisper(username, text string) {
	if len(c.channels) == 0 {
		return
	}
	c.send(c.channels[0], fmt.Sprintf("/w %s %s", username, text))
}

// Moderation actions, issued as IRC commands on the channel.

func (c *Client) Ban(channel, username, reason string) {
	c.send(channel, strings.TrimSpace(fmt.Sprintf("/ban %s %s", username, reason)))
}

func (c *Client) Unban(channel, username string) {
	c.send(channel, "/unban "+username)
}

func (c *Client) Clear(channel string) {
	c.send(channel, "/clear")
}

// Connect joins the configured channels and blocks until the connection ends
// or ctx is canceled.
func (c *Client) Connect(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := c.irc.Disconnect(); err != nil {
				slog.Warn("twitch disconnect", slog.Any("err", err))
			}
		case <-done:
		}
	}()
	defer close(done)

	for _, ch := range c.channels {
		c.irc.Join(ch)
	}
	err := c.irc.Connect()
	telemetry.SetChatConnected(false)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("twitch chat connect: %w", err)
	}
	return nil
}

// SplitMessage cuts text into rune-safe chunks of at most limit runes.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(runes) > 0 {
		n := limit
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
