// Package bot routes incoming Telegram updates to the onboarding flow and the
// match dispatcher, and renders outcomes back into chat messages. It is the
// delivery collaborator for scheduled broadcasts.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/thedevi-l/eng-coffee-bot/internal/dispatch"
	"github.com/thedevi-l/eng-coffee-bot/internal/onboarding"
	"github.com/thedevi-l/eng-coffee-bot/internal/telegram"
)

// Transport is the Bot API surface the router needs. Implemented by telegram.Client.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64, pollTimeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Matcher resolves on-demand match requests. Implemented by dispatch.Dispatcher.
type Matcher interface {
	RequestMatch(userID int64) (dispatch.Outcome, error)
}

// Bot wires the transport to the onboarding flow and the dispatcher.
type Bot struct {
	tg          Transport
	flow        *onboarding.Flow
	matcher     Matcher
	pollTimeout time.Duration
	logger      *slog.Logger
}

// New creates a Bot. If pollTimeout is <= 0, it defaults to 30s.
func New(tg Transport, flow *onboarding.Flow, matcher Matcher, pollTimeout time.Duration) *Bot {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Bot{
		tg:          tg,
		flow:        flow,
		matcher:     matcher,
		pollTimeout: pollTimeout,
		logger:      slog.Default(),
	}
}

// Run long-polls for updates until ctx is cancelled. Updates are handled one
// at a time; a failing handler or poll never stops the loop.
func (b *Bot) Run(ctx context.Context) {
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := b.tg.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("polling updates", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			b.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate dispatches one update to the right handler.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.From != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if err := b.tg.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		b.logger.Warn("answering callback", "callback_id", cb.ID, "error", err)
	}

	userID := cb.From.ID
	switch cb.Data {
	case callbackStartForm:
		prompt := b.flow.Start(userID)
		b.send(ctx, userID, prompt, nil)
	case callbackMatch:
		b.handleMatch(ctx, userID)
	default:
		b.logger.Warn("unknown callback data", "data", cb.Data, "user_id", userID)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *telegram.Message) {
	userID := m.From.ID
	chatID := m.Chat.ID
	text := strings.TrimSpace(m.Text)

	switch text {
	case "/start":
		b.send(ctx, chatID, msgGreeting, telegram.SingleButton(btnStartForm, callbackStartForm))
		return
	case "/match":
		b.handleMatch(ctx, userID)
		return
	}

	if !b.flow.Active(userID) {
		b.send(ctx, chatID, msgNeedStart, nil)
		return
	}

	reply, completed, err := b.flow.HandleMessage(userID, m.From.Username, text)
	switch {
	case err != nil:
		b.send(ctx, chatID, msgSaveFailed, nil)
	case completed:
		b.send(ctx, chatID, msgProfileSaved, telegram.SingleButton(btnFindPartner, callbackMatch))
	default:
		b.send(ctx, chatID, reply, nil)
	}
}

func (b *Bot) handleMatch(ctx context.Context, userID int64) {
	outcome, err := b.matcher.RequestMatch(userID)
	if err != nil {
		b.logger.Error("match request", "user_id", userID, "error", err)
		b.send(ctx, userID, msgGenericFail, nil)
		return
	}
	if err := b.Deliver(ctx, userID, outcome); err != nil {
		b.logger.Error("delivering match outcome", "user_id", userID, "error", err)
	}
}

// Deliver renders a match outcome into a chat message. It is the
// dispatch.Delivery implementation used by the scheduled broadcast.
func (b *Bot) Deliver(ctx context.Context, userID int64, o dispatch.Outcome) error {
	switch o.Kind {
	case dispatch.OutcomeNoProfile:
		return b.tg.SendMessage(ctx, userID, msgNoProfile, nil)
	case dispatch.OutcomeNoCandidate:
		return b.tg.SendMessage(ctx, userID, msgNoCandidate, nil)
	default:
		return b.tg.SendMessage(ctx, userID, formatMatchCard(o.Match), nil)
	}
}

// send logs delivery failures instead of propagating them; chat handlers have
// nobody upstream to report to.
func (b *Bot) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) {
	if err := b.tg.SendMessage(ctx, chatID, text, markup); err != nil {
		b.logger.Error("sending message", "chat_id", chatID, "error", err)
	}
}
