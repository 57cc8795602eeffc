package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/timik232/dataset-bot/internal/dataset"
	"github.com/timik232/dataset-bot/internal/engine"
)

func (w *Workflows) registerEdit(reg *engine.Registry) {
	reg.Register(engine.NewSessionCommand(CmdEdit, "изменить сохранённый диалог", w.editStart, engine.AsNavigable()))
	reg.Register(engine.NewTextCommand(stepEditSelect, "", w.editSelect, engine.AsInternal()))

	reg.Register(engine.NewSessionCommand(CmdRename, "переименовать выбранный диалог", w.editRenameStart))
	reg.Register(engine.NewTextCommand(stepEditRename, "", w.editRename, engine.AsInternal()))

	reg.Register(engine.NewSessionCommand(CmdEditSysLine, "изменить системную строку выбранного диалога", w.editSystemStart))
	reg.Register(engine.NewTextCommand(stepEditSystem, "", w.editSystem, engine.AsInternal()))

	reg.Register(engine.NewSessionCommand(CmdEditActions, "изменить действия выбранного диалога", w.editActionsStart))
	reg.Register(engine.NewTextCommand(stepEditActs, "", w.editActions, engine.AsInternal()))

	reg.Register(engine.NewSessionCommand(CmdEditAction, "изменить финальное действие выбранного диалога", w.editActionStart))
	reg.Register(engine.NewTextCommand(stepEditAction, "", w.editAction, engine.AsInternal()))

	reg.Register(engine.NewSessionCommand(CmdEditReplica, "изменить одну реплику выбранного диалога", w.editReplicaStart))
	reg.Register(engine.NewTextCommand(stepEditReplicaIndex, "", w.editReplicaIndex, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepEditReplicaText, "", w.editReplicaText, engine.AsInternal()))

	reg.Register(engine.NewSessionCommand(CmdShowDialog, "показать выбранный диалог целиком", w.showDialog))
	reg.Register(engine.NewSessionCommand(CmdExit, "выйти из меню изменения", w.editExit))
}

func (w *Workflows) editStart(ctx context.Context, s *engine.Session) error {
	if w.store.Len() == 0 {
		if err := w.say(ctx, s, "Датасет пуст, изменять нечего."); err != nil {
			return err
		}
		return w.unwind(ctx, s)
	}
	return w.toStep(ctx, s, stepEditSelect)
}

func (w *Workflows) editSelect(ctx context.Context, s *engine.Session, text string) error {
	key, err := w.store.LookupByNameOrOrdinal(text)
	if errors.Is(err, dataset.ErrNotFound) {
		return w.stay(ctx, s, err.Error())
	}
	if err != nil {
		return err
	}
	s.EditKey = key
	s.State.Pop()
	if err := w.say(ctx, s, fmt.Sprintf("Выбран диалог «%s».", key)); err != nil {
		return err
	}
	return w.showState(ctx, s)
}

// requireSelection guards the edit sub-commands against a missing topic
// selection.
func (w *Workflows) requireSelection(ctx context.Context, s *engine.Session) (string, error) {
	if s.EditKey == "" {
		return "", w.say(ctx, s, "Сначала выберите диалог командой «изменить диалог».")
	}
	return s.EditKey, nil
}

func (w *Workflows) editRenameStart(ctx context.Context, s *engine.Session) error {
	if key, err := w.requireSelection(ctx, s); key == "" {
		return err
	}
	return w.toStep(ctx, s, stepEditRename)
}

func (w *Workflows) editRename(ctx context.Context, s *engine.Session, text string) error {
	newKey, err := w.store.RenameTopic(s.EditKey, text)
	switch {
	case errors.Is(err, dataset.ErrDuplicateTopic), errors.Is(err, dataset.ErrInvalidLength):
		return w.stay(ctx, s, err.Error())
	case err != nil:
		return err
	}
	s.EditKey = newKey
	if err := w.say(ctx, s, fmt.Sprintf("Диалог переименован в «%s».", newKey)); err != nil {
		return err
	}
	return w.unwind(ctx, s)
}

func (w *Workflows) editSystemStart(ctx context.Context, s *engine.Session) error {
	if key, err := w.requireSelection(ctx, s); key == "" {
		return err
	}
	return w.toStep(ctx, s, stepEditSystem)
}

func (w *Workflows) editSystem(ctx context.Context, s *engine.Session, text string) error {
	if err := w.store.SetSystemLine(s.EditKey, strings.TrimSpace(text)); err != nil {
		return err
	}
	if err := w.say(ctx, s, "Системная строка обновлена."); err != nil {
		return err
	}
	return w.unwind(ctx, s)
}

func (w *Workflows) editActionsStart(ctx context.Context, s *engine.Session) error {
	if key, err := w.requireSelection(ctx, s); key == "" {
		return err
	}
	return w.toStep(ctx, s, stepEditActs)
}

func (w *Workflows) editActions(ctx context.Context, s *engine.Session, text string) error {
	actions := parseActions(text)
	if len(actions) == 0 {
		return w.stay(ctx, s, "Список действий пуст.")
	}
	if err := w.store.SetAvailableActions(s.EditKey, actions); err != nil {
		return err
	}
	if err := w.say(ctx, s, "Действия обновлены."); err != nil {
		return err
	}
	return w.unwind(ctx, s)
}

func (w *Workflows) editActionStart(ctx context.Context, s *engine.Session) error {
	if key, err := w.requireSelection(ctx, s); key == "" {
		return err
	}
	return w.toStep(ctx, s, stepEditAction)
}

func (w *Workflows) editAction(ctx context.Context, s *engine.Session, text string) error {
	if err := w.store.SetFinalAction(s.EditKey, strings.TrimSpace(text)); err != nil {
		return err
	}
	if err := w.say(ctx, s, "Финальное действие обновлено."); err != nil {
		return err
	}
	return w.unwind(ctx, s)
}

// editReplicaStart lists the editable replicas with zero-based indices and
// asks for one.
func (w *Workflows) editReplicaStart(ctx context.Context, s *engine.Session) error {
	key, err := w.requireSelection(ctx, s)
	if key == "" {
		return err
	}
	replicas, err := w.store.Replicas(key)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("Реплики:\n")
	for i, line := range replicas {
		fmt.Fprintf(&b, "%d. %s\n", i, line)
	}
	if err := w.say(ctx, s, b.String()); err != nil {
		return err
	}
	return w.toStep(ctx, s, stepEditReplicaIndex)
}

func (w *Workflows) editReplicaIndex(ctx context.Context, s *engine.Session, text string) error {
	idx, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return w.stay(ctx, s, "Нужен номер реплики из списка.")
	}
	replicas, err := w.store.Replicas(s.EditKey)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(replicas) {
		return w.stay(ctx, s, dataset.ErrBadIndex.Error())
	}
	s.ReplicaIdx = idx
	return w.toStep(ctx, s, stepEditReplicaText)
}

func (w *Workflows) editReplicaText(ctx context.Context, s *engine.Session, text string) error {
	if err := w.store.EditReplicaAt(s.EditKey, s.ReplicaIdx, text); err != nil {
		if errors.Is(err, dataset.ErrBadIndex) {
			return w.stay(ctx, s, err.Error())
		}
		return err
	}
	s.ReplicaIdx = 0
	if err := w.say(ctx, s, "Реплика обновлена."); err != nil {
		return err
	}
	return w.unwind(ctx, s)
}

// showDialog prints the selected example in its stored JSON form.
func (w *Workflows) showDialog(ctx context.Context, s *engine.Session) error {
	key, err := w.requireSelection(ctx, s)
	if key == "" {
		return err
	}
	ex, err := w.store.Get(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(ex, "", "    ")
	if err != nil {
		return err
	}
	return w.say(ctx, s, fmt.Sprintf("«%s»:\n%s", key, data))
}

// editExit leaves the edit menu without touching the dataset.
func (w *Workflows) editExit(ctx context.Context, s *engine.Session) error {
	s.EditKey = ""
	s.ReplicaIdx = 0
	return w.unwind(ctx, s)
}
