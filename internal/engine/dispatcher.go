package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/internal/transport"
	"github.com/timik232/dataset-bot/pkg/logger"
	"github.com/timik232/dataset-bot/pkg/metrics"
)

// The two reserved wizard-unwind tokens. Exactly these; synonyms are not
// routed.
const (
	WordCancel = "отмена"
	WordBack   = "назад"
)

// RollbackCommand is the reserved internal name of the command invoked when
// a wizard is cancelled, to discard whatever the wizard built so far.
const RollbackCommand = "rollback"

// Prompter supplies the text and keyboard re-displayed for a named state.
type Prompter interface {
	StatePrompt(state string) (string, transport.Keyboard)
}

// Dispatcher routes raw inbound text: a command lookup while unlocked, a
// continuation of the active wizard step while locked.
type Dispatcher struct {
	registry *Registry
	prompter Prompter
	send     transport.Messenger
	logger   *logger.Logger
}

// NewDispatcher wires a dispatcher to its registry and transport.
func NewDispatcher(reg *Registry, prompter Prompter, send transport.Messenger, log *logger.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, prompter: prompter, send: send, logger: log}
}

// Registry exposes the dispatcher's command registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// ShowState sends a state's prompt and keyboard to the user.
func (d *Dispatcher) ShowState(ctx context.Context, sess *Session) error {
	text, kb := d.prompter.StatePrompt(sess.State.Current)
	if text == "" {
		return nil
	}
	return d.send.SendText(ctx, sess.UserID, text, kb)
}

// Dispatch handles one inbound message for one user. A panicking command is
// recovered here so a single user's input can never take down the loop.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, rawText string) (err error) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			d.logger.Error("command panicked",
				zap.Int64("user_id", sess.UserID),
				zap.String("state", sess.State.Current),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()

	input := strings.ToLower(strings.TrimSpace(rawText))

	if !sess.State.Locked {
		cmd, ok := d.registry.Lookup(input)
		// Internal wizard steps are reachable only through the lock, never
		// by typing their name.
		if !ok || cmd.Internal {
			if sendErr := d.send.SendText(ctx, sess.UserID,
				fmt.Sprintf("Команда «%s» не найдена.", input), transport.KeyboardNone); sendErr != nil {
				return sendErr
			}
			return d.ShowState(ctx, sess)
		}
		metrics.CommandsTotal.WithLabelValues(cmd.Name).Inc()
		if cmd.Navigable {
			sess.State.Push(cmd.Name)
		}
		return cmd.Invoke(ctx, sess, rawText)
	}

	if input == WordCancel || input == WordBack {
		return d.cancel(ctx, sess)
	}

	// Free text continues the active wizard step. The step re-locks itself
	// when it expects more input.
	sess.State.Locked = false
	step, ok := d.registry.Lookup(sess.State.Current)
	if !ok {
		d.logger.Error("locked state has no registered step",
			zap.Int64("user_id", sess.UserID),
			zap.String("state", sess.State.Current),
		)
		sess.State.CancelPop(d.registry.IsInternal)
		return d.ShowState(ctx, sess)
	}
	if err := step.Invoke(ctx, sess, rawText); err != nil {
		// A failed step keeps the session locked on the same state so the
		// same input can be retried.
		sess.State.Locked = true
		return err
	}
	return nil
}

// cancel unlocks, unwinds to the last public state, discards the
// in-construction entity and confirms to the user.
func (d *Dispatcher) cancel(ctx context.Context, sess *Session) error {
	sess.State.Locked = false
	sess.State.CancelPop(d.registry.IsInternal)
	metrics.WizardsCancelledTotal.Inc()

	if rollback, ok := d.registry.Lookup(RollbackCommand); ok {
		if err := rollback.Invoke(ctx, sess, ""); err != nil {
			return err
		}
	}
	if err := d.send.SendText(ctx, sess.UserID, "Действие отменено.", transport.KeyboardNone); err != nil {
		return err
	}
	return d.ShowState(ctx, sess)
}
