package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/timik232/dataset-bot/internal/dataset"
	"github.com/timik232/dataset-bot/internal/engine"
)

func (w *Workflows) registerDelete(reg *engine.Registry) {
	reg.Register(engine.NewSessionCommand(CmdDelete, "удалить диалог из датасета", w.deleteStart))
	reg.Register(engine.NewTextCommand(stepDeleteName, "", w.deleteName, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepDeleteConfirm, "", w.deleteConfirm, engine.AsInternal()))
}

func (w *Workflows) deleteStart(ctx context.Context, s *engine.Session) error {
	if w.store.Len() == 0 {
		return w.say(ctx, s, "Датасет пуст, удалять нечего.")
	}
	return w.toStep(ctx, s, stepDeleteName)
}

func (w *Workflows) deleteName(ctx context.Context, s *engine.Session, text string) error {
	key, err := w.store.LookupByNameOrOrdinal(text)
	if errors.Is(err, dataset.ErrNotFound) {
		return w.stay(ctx, s, err.Error())
	}
	if err != nil {
		return err
	}
	s.DeleteKey = key
	if err := w.say(ctx, s, fmt.Sprintf("Будет удалён диалог «%s».", key)); err != nil {
		return err
	}
	return w.toStep(ctx, s, stepDeleteConfirm)
}

func (w *Workflows) deleteConfirm(ctx context.Context, s *engine.Session, text string) error {
	yes, ok := yesNo(text)
	if !ok {
		return w.stay(ctx, s, "Ответьте «да» или «нет».")
	}
	key := s.DeleteKey
	s.DeleteKey = ""
	if !yes {
		if err := w.say(ctx, s, "Удаление отменено."); err != nil {
			return err
		}
		return w.unwind(ctx, s)
	}
	if err := w.store.DeleteTopic(key); err != nil {
		return err
	}
	if s.EditKey == key {
		s.EditKey = ""
	}
	if err := w.say(ctx, s, fmt.Sprintf("Диалог «%s» удалён.", key)); err != nil {
		return err
	}
	return w.unwind(ctx, s)
}
