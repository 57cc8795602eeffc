package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/internal/dataset"
	"github.com/timik232/dataset-bot/internal/engine"
)

func (w *Workflows) registerAdd(reg *engine.Registry) {
	reg.Register(engine.NewSessionCommand(CmdAdd, "собрать новый диалог по шагам", w.addStart))
	reg.Register(engine.NewTextCommand(stepAddName, "", w.addName, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepAddSystemConfirm, "", w.addSystemConfirm, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepAddSystem, "", w.addSystem, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepAddActsConfirm, "", w.addActionsConfirm, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepAddActs, "", w.addActions, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepAddUser, "", w.addUserTurn, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepAddBot, "", w.addBotTurn, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepAddActionConfirm, "", w.addActionConfirm, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepAddAction, "", w.addAction, engine.AsInternal()))
}

func (w *Workflows) addStart(ctx context.Context, s *engine.Session) error {
	return w.toStep(ctx, s, stepAddName)
}

func (w *Workflows) addName(ctx context.Context, s *engine.Session, text string) error {
	key, ex, err := w.store.CreateTopic(text)
	switch {
	case errors.Is(err, dataset.ErrDuplicateTopic), errors.Is(err, dataset.ErrInvalidLength):
		return w.stay(ctx, s, err.Error())
	case err != nil:
		return err
	}
	s.Draft = &engine.Draft{Key: key, Example: ex}
	return w.toStep(ctx, s, stepAddSystemConfirm)
}

func (w *Workflows) addSystemConfirm(ctx context.Context, s *engine.Session, text string) error {
	yes, ok := yesNo(text)
	if !ok {
		return w.stay(ctx, s, "Ответьте «да» или «нет».")
	}
	if yes {
		return w.toStep(ctx, s, stepAddSystem)
	}
	return w.toStep(ctx, s, stepAddActsConfirm)
}

func (w *Workflows) addSystem(ctx context.Context, s *engine.Session, text string) error {
	s.Draft.Example.SetSystem(strings.TrimSpace(text))
	return w.toStep(ctx, s, stepAddActsConfirm)
}

func (w *Workflows) addActionsConfirm(ctx context.Context, s *engine.Session, text string) error {
	yes, ok := yesNo(text)
	if !ok {
		return w.stay(ctx, s, "Ответьте «да» или «нет».")
	}
	if yes {
		return w.toStep(ctx, s, stepAddActs)
	}
	return w.toStep(ctx, s, stepAddUser)
}

func (w *Workflows) addActions(ctx context.Context, s *engine.Session, text string) error {
	actions := parseActions(text)
	if len(actions) == 0 {
		return w.stay(ctx, s, "Список действий пуст.")
	}
	s.Draft.Example.SetAvailableActions(actions)
	return w.toStep(ctx, s, stepAddUser)
}

// addUserTurn collects one user replica. The sentinel "0" closes the dialog
// once at least one full turn pair exists.
func (w *Workflows) addUserTurn(ctx context.Context, s *engine.Session, text string) error {
	if strings.TrimSpace(text) == "0" {
		if err := s.Draft.Example.Finalize(); err != nil {
			if errors.Is(err, dataset.ErrNotReady) {
				return w.stay(ctx, s, "Диалог слишком короткий: нужна хотя бы одна пара реплик.")
			}
			return err
		}
		return w.toStep(ctx, s, stepAddActionConfirm)
	}
	s.Draft.Example.AppendHistory(dataset.SpeakerUser, text)
	return w.toStep(ctx, s, stepAddBot)
}

func (w *Workflows) addBotTurn(ctx context.Context, s *engine.Session, text string) error {
	s.Draft.Example.AppendHistory(dataset.SpeakerBot, text)
	return w.toStep(ctx, s, stepAddUser)
}

func (w *Workflows) addActionConfirm(ctx context.Context, s *engine.Session, text string) error {
	yes, ok := yesNo(text)
	if !ok {
		return w.stay(ctx, s, "Ответьте «да» или «нет».")
	}
	if yes {
		return w.toStep(ctx, s, stepAddAction)
	}
	return w.commitDraft(ctx, s)
}

func (w *Workflows) addAction(ctx context.Context, s *engine.Session, text string) error {
	s.Draft.Example.SetFinalAction(strings.TrimSpace(text))
	return w.commitDraft(ctx, s)
}

// commitDraft merges the in-construction example into the dataset, persists
// and returns to the last public state.
func (w *Workflows) commitDraft(ctx context.Context, s *engine.Session) error {
	draft := s.Draft
	s.Draft = nil
	if err := w.store.Commit(draft.Key, draft.Example); err != nil {
		w.logger.Error("commit failed", zap.String("topic", draft.Key), zap.Error(err))
		if sendErr := w.say(ctx, s, "Не удалось сохранить диалог: "+err.Error()); sendErr != nil {
			return sendErr
		}
		return w.unwind(ctx, s)
	}
	if err := w.say(ctx, s, fmt.Sprintf("Диалог «%s» сохранён.", draft.Key)); err != nil {
		return err
	}
	return w.unwind(ctx, s)
}
