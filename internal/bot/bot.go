// Package bot runs the inbound event loop: password gating for unknown
// users, command dispatch for authorized ones.
package bot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/internal/auth"
	"github.com/timik232/dataset-bot/internal/engine"
	"github.com/timik232/dataset-bot/internal/transport"
	"github.com/timik232/dataset-bot/pkg/logger"
	"github.com/timik232/dataset-bot/pkg/metrics"
)

const (
	pollRetryMin = 5 * time.Second
	pollRetryMax = 10 * time.Minute
)

// Bot wires the transport to the dispatcher.
type Bot struct {
	poller     transport.Poller
	send       transport.Messenger
	dispatcher *engine.Dispatcher
	sessions   *engine.Sessions
	gate       *auth.Gate
	logger     *logger.Logger
}

// New creates the bot.
func New(
	poller transport.Poller,
	send transport.Messenger,
	dispatcher *engine.Dispatcher,
	sessions *engine.Sessions,
	gate *auth.Gate,
	log *logger.Logger,
) *Bot {
	return &Bot{
		poller:     poller,
		send:       send,
		dispatcher: dispatcher,
		sessions:   sessions,
		gate:       gate,
		logger:     log,
	}
}

// Run polls for inbound events until the context is cancelled. Events are
// handled one at a time, in arrival order; transport failures back off
// instead of crashing the loop.
func (b *Bot) Run(ctx context.Context) error {
	retry := pollRetryMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		events, err := b.poller.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("poll failed", zap.Error(err), zap.Duration("retry_in", retry))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retry):
			}
			if retry *= 2; retry > pollRetryMax {
				retry = pollRetryMax
			}
			continue
		}
		retry = pollRetryMin

		for _, event := range events {
			b.handle(ctx, event)
		}
	}
}

// handle processes one inbound event end to end.
func (b *Bot) handle(ctx context.Context, event transport.Event) {
	log := b.logger.WithEvent(event.ID, event.UserID)

	if !b.gate.IsAuthorized(event.UserID) {
		b.register(ctx, event, log)
		return
	}

	// VK escapes double quotes in message text.
	text := strings.ReplaceAll(event.Text, "&quot;", "'")
	sess := b.sessions.Get(event.UserID)

	if err := b.dispatcher.Dispatch(ctx, sess, text); err != nil {
		metrics.EventsTotal.WithLabelValues("error").Inc()
		log.Error("dispatch failed", zap.String("state", sess.State.Current), zap.Error(err))
		if sendErr := b.send.SendText(ctx, event.UserID, "Произошла ошибка", transport.KeyboardNone); sendErr != nil {
			log.Error("failure report not delivered", zap.Error(sendErr))
		}
		return
	}
	metrics.EventsTotal.WithLabelValues("ok").Inc()
}

// register treats the first message of an unknown user as the password.
func (b *Bot) register(ctx context.Context, event transport.Event, log *logger.Logger) {
	ok, err := b.gate.TryPassword(event.UserID, event.Text)
	if err != nil {
		log.Error("user registration failed", zap.Error(err))
	}
	if !ok {
		metrics.EventsTotal.WithLabelValues("rejected").Inc()
		if sendErr := b.send.SendText(ctx, event.UserID, "Неверный пароль", transport.KeyboardNone); sendErr != nil {
			log.Error("rejection not delivered", zap.Error(sendErr))
		}
		return
	}

	metrics.EventsTotal.WithLabelValues("registered").Inc()
	b.sessions.Get(event.UserID)
	log.Info("user registered")
	if sendErr := b.send.SendText(ctx, event.UserID,
		"Вы успешно зарегистрированы. Можете использовать бота.", transport.KeyboardMenu); sendErr != nil {
		log.Error("welcome not delivered", zap.Error(sendErr))
	}
}
