package chat

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gaufrelabs/gaufromatic/config"
	"github.com/gaufrelabs/gaufromatic/cooldown"
	"github.com/gaufrelabs/gaufromatic/credits"
	"github.com/gaufrelabs/gaufromatic/emotes"
	"github.com/gaufrelabs/gaufromatic/telemetry"
)

// globalKey is the single shared cooldown key for all LLM-backed replies.
// The limiter is deliberately process-wide, not per-user or per-channel.
const globalKey = "llm"

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Sayer interface {
	Say(channel, text string)
}

// FactSender triggers a fact broadcast; force marks manual invocation.
type FactSender interface {
	Broadcast(ctx context.Context, channel string, force bool) error
}

// Speaker synthesizes a reply to an audio file for the overlay.
type Speaker interface {
	Speech(ctx context.Context, text string) (string, error)
}

// Notifier announces that the audio file changed (WebSocket push).
type Notifier interface {
	NotifyFileChanged(name string)
}

// Dispatcher routes each incoming message to at most one action.
type Dispatcher struct {
	cfg       *config.Config
	chat      Sayer
	completer Completer
	ledger    *credits.Ledger
	slots     *credits.Machine
	filter    *emotes.Filter
	facts     FactSender
	speaker   Speaker // nil unless TTS is enabled
	notifier  Notifier

	responseCD *cooldown.Store // global, keyed by globalKey
	slotCD     *cooldown.Store // per username
	reactionCD *cooldown.Store // per username
}

// NewDispatcher wires the dispatcher. speaker and notifier may be nil; they
// are only used when cfg.EnableTTS is set.
func NewDispatcher(cfg *config.Config, chatClient Sayer, completer Completer, ledger *credits.Ledger, filter *emotes.Filter, factSender FactSender, speaker Speaker, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		chat:       chatClient,
		completer:  completer,
		ledger:     ledger,
		slots:      credits.NewMachine(),
		filter:     filter,
		facts:      factSender,
		speaker:    speaker,
		notifier:   notifier,
		responseCD: cooldown.NewStore(cfg.ResponseCooldown),
		slotCD:     cooldown.NewStore(cfg.SlotCooldown),
		reactionCD: cooldown.NewStore(cfg.ReactionCooldown),
	}
}

// Handle processes one message. Match order is fixed and first-match-wins:
// explicit commands, bot-name triggers, tracked users, generic prefix.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) {
	if msg.Self {
		return
	}
	telemetry.MessagesHandled.Inc()

	// Channel-points redemption text is either answered directly or dropped;
	// it never falls through to the command matching below.
	if msg.RewardID != "" {
		if !d.cfg.EnableChannelPoints {
			return
		}
		telemetry.CommandsDispatched.WithLabelValues("channel_points").Inc()
		d.respond(ctx, msg.Channel, "Tu es Gaufromatic. Réagis à ce message : "+msg.Text, false)
		return
	}

	lower := strings.ToLower(msg.Text)
	user := strings.ToLower(msg.Username)

	switch {
	case strings.HasPrefix(lower, "!fact"):
		telemetry.CommandsDispatched.WithLabelValues("fact").Inc()
		if err := d.facts.Broadcast(ctx, msg.Channel, true); err != nil {
			slog.Error("manual fact failed", slog.Any("err", err))
		}
		return

	case strings.HasPrefix(lower, "!conseil"):
		telemetry.CommandsDispatched.WithLabelValues("conseil").Inc()
		d.respond(ctx, msg.Channel, "Tu es Gaufromatic. Donne un conseil original et inattendu au chat de "+d.cfg.ChannelOwner+".", true)
		return

	case strings.HasPrefix(lower, "!slot"):
		telemetry.CommandsDispatched.WithLabelValues("slot").Inc()
		d.handleSlot(msg.Channel, msg.Username)
		return

	case strings.HasPrefix(lower, "!gaufrettes") || strings.HasPrefix(lower, "!crédits") || strings.HasPrefix(lower, "!credits"):
		telemetry.CommandsDispatched.WithLabelValues("credits").Inc()
		bal := d.ledger.Balance(msg.Username)
		d.chat.Say(msg.Channel, fmt.Sprintf("@%s, tu as %d gaufrettes.", msg.Username, bal))
		return

	case strings.HasPrefix(lower, "!classement"):
		telemetry.CommandsDispatched.WithLabelValues("classement").Inc()
		d.handleRanking(msg.Channel)
		return

	case strings.HasPrefix(lower, "!ajoutercredits"):
		telemetry.CommandsDispatched.WithLabelValues("ajoutercredits").Inc()
		d.handleGrant(msg.Channel, msg.Username, msg.Text)
		return
	}

	for _, trigger := range d.cfg.NameTriggers {
		if strings.HasPrefix(lower, trigger) {
			telemetry.CommandsDispatched.WithLabelValues("name_trigger").Inc()
			d.respond(ctx, msg.Channel, "Tu es Gaufromatic. Réagis à ce message : "+msg.Text, true)
			return
		}
	}

	for _, tracked := range d.cfg.TrackedUsers {
		if user == tracked {
			d.handleReaction(ctx, msg)
			return
		}
	}

	for _, prefix := range d.cfg.CommandNames {
		if strings.HasPrefix(lower, prefix) {
			telemetry.CommandsDispatched.WithLabelValues("gpt").Inc()
			text := strings.TrimSpace(msg.Text[len(prefix):])
			if text == "" {
				return
			}
			prompt := text
			if d.cfg.SendUsername {
				prompt = msg.Username + " : " + text
			}
			d.respond(ctx, msg.Channel, prompt, true)
			return
		}
	}
}

// handleReaction is the tracked-user passive rule: its own per-username
// window, and silence on every rejection so frequent chatters are not
// answered with cooldown spam.
func (d *Dispatcher) handleReaction(ctx context.Context, msg Message) {
	if d.responseCD.Remaining(globalKey) > 0 {
		telemetry.CooldownRejections.Inc()
		return
	}
	if ok, _ := d.reactionCD.Begin(strings.ToLower(msg.Username)); !ok {
		telemetry.CooldownRejections.Inc()
		return
	}
	telemetry.CommandsDispatched.WithLabelValues("reaction").Inc()
	d.respond(ctx, msg.Channel, fmt.Sprintf("Tu es Gaufromatic. Réagis au message de %s : %s", msg.Username, msg.Text), false)
}

// respond runs one completion under the global cooldown and posts the
// formatted result. notifyWait controls whether a cooldown rejection is
// reported back to the channel.
func (d *Dispatcher) respond(ctx context.Context, channel, prompt string, notifyWait bool) {
	if rem := d.responseCD.Remaining(globalKey); rem > 0 {
		telemetry.CooldownRejections.Inc()
		if notifyWait {
			d.chat.Say(channel, fmt.Sprintf("Doucement ! Réessaie dans %.1f secondes.", rem.Seconds()))
		}
		return
	}

	var answer string
	var err error
	telemetry.TimeFunc(telemetry.CompletionDuration, func() {
		answer, err = d.completer.Complete(ctx, prompt)
	})
	if err != nil {
		// Fail silent to the channel; the operator sees the log.
		telemetry.CompletionsFailed.Inc()
		slog.Error("completion failed", slog.Any("err", err))
		return
	}
	telemetry.CompletionsOK.Inc()

	out := d.filter.AppendRandom(d.filter.Expand(d.filter.Strip(answer)))
	d.chat.Say(channel, out)
	// The window is measured from the moment the response went out.
	d.responseCD.Touch(globalKey)

	if d.cfg.EnableTTS && d.speaker != nil {
		if path, err := d.speaker.Speech(ctx, out); err != nil {
			slog.Error("tts synthesis failed", slog.Any("err", err))
		} else if d.notifier != nil {
			// Overlay clients know files by name under /public/.
			d.notifier.NotifyFileChanged(filepath.Base(path))
		}
	}
}

func (d *Dispatcher) handleSlot(channel, username string) {
	key := strings.ToLower(username)
	ok, rem := d.slotCD.Begin(key)
	if !ok {
		telemetry.CooldownRejections.Inc()
		d.chat.Say(channel, fmt.Sprintf("@%s, la machine chauffe encore ! Réessaie dans %.1f secondes.", username, rem.Seconds()))
		return
	}
	reels, payout := d.slots.Spin()
	telemetry.SlotSpins.Inc()
	bal, err := d.ledger.Change(username, payout)
	if err != nil {
		slog.Error("credits persist failed", slog.Any("err", err))
	}
	var outcome string
	switch payout {
	case credits.TriplePayout:
		outcome = fmt.Sprintf("JACKPOT ! +%d gaufrettes", payout)
	case credits.PairPayout:
		outcome = fmt.Sprintf("Une paire ! +%d gaufrettes", payout)
	default:
		outcome = fmt.Sprintf("Perdu... %d gaufrettes", payout)
	}
	d.chat.Say(channel, fmt.Sprintf("@%s [ %s %s %s ] %s (solde : %d)", username, reels[0], reels[1], reels[2], outcome, bal))
}

func (d *Dispatcher) handleRanking(channel string) {
	top := d.ledger.Top(5)
	if len(top) == 0 {
		d.chat.Say(channel, "Personne n'a encore de gaufrettes !")
		return
	}
	parts := make([]string, 0, len(top))
	for i, acct := range top {
		parts = append(parts, fmt.Sprintf("%d. %s (%d)", i+1, acct.Username, acct.Balance))
	}
	d.chat.Say(channel, "Classement gaufrettes : "+strings.Join(parts, " | "))
}

// handleGrant is the owner-only credit grant. A non-owner invocation is a
// silent no-op; malformed arguments get a usage hint and mutate nothing.
func (d *Dispatcher) handleGrant(channel, invoker, text string) {
	if !strings.EqualFold(invoker, d.cfg.ChannelOwner) {
		return
	}
	fields := strings.Fields(text)
	if len(fields) != 3 {
		d.chat.Say(channel, "Usage : !ajoutercredits <utilisateur> <montant>")
		return
	}
	amount, err := strconv.Atoi(fields[2])
	if err != nil {
		d.chat.Say(channel, "Usage : !ajoutercredits <utilisateur> <montant>")
		return
	}
	target := fields[1]
	bal, err := d.ledger.Change(target, amount)
	if err != nil {
		slog.Error("credits persist failed", slog.Any("err", err))
	}
	d.chat.Say(channel, fmt.Sprintf("%s reçoit %d gaufrettes ! Nouveau solde : %d", target, amount, bal))
}
