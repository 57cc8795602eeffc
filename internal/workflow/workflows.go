// Package workflow implements the dialog wizards: chained internal states
// that collect free text toward one committed dataset example.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/timik232/dataset-bot/internal/dataset"
	"github.com/timik232/dataset-bot/internal/engine"
	"github.com/timik232/dataset-bot/internal/llm"
	"github.com/timik232/dataset-bot/internal/transport"
	"github.com/timik232/dataset-bot/pkg/logger"
)

// StateMenu is the root public state every session rests on.
const StateMenu = "меню"

// Public command names. These double as navigable state names.
const (
	CmdHelp        = "помощь"
	CmdAdd         = "добавить диалог"
	CmdEdit        = "изменить диалог"
	CmdDelete      = "удалить диалог"
	CmdList        = "посмотреть диалоги"
	CmdSystem      = "системный промпт"
	CmdShowJSON    = "вывести json-структуру последнего сообщения"
	CmdChat        = "чат с моделью"
	CmdDownload    = "скачать датасет"
	CmdRename      = "переименовать"
	CmdEditSysLine = "изменить системную строку"
	CmdEditActions = "изменить действия"
	CmdEditAction  = "изменить финальное действие"
	CmdEditReplica = "изменить реплику"
	CmdShowDialog  = "показать диалог"
	CmdExit        = "выход"
)

// Internal wizard step names. Hidden from help, never navigable.
const (
	stepAddName          = "add-name"
	stepAddSystemConfirm = "add-system-confirm"
	stepAddSystem        = "add-system"
	stepAddActsConfirm   = "add-actions-confirm"
	stepAddActs          = "add-actions"
	stepAddUser          = "add-user"
	stepAddBot           = "add-bot"
	stepAddActionConfirm = "add-action-confirm"
	stepAddAction        = "add-action"

	stepEditSelect       = "edit-select"
	stepEditRename       = "edit-rename"
	stepEditSystem       = "edit-system"
	stepEditActs         = "edit-actions"
	stepEditAction       = "edit-action"
	stepEditReplicaIndex = "edit-replica-index"
	stepEditReplicaText  = "edit-replica-text"

	stepDeleteName    = "delete-name"
	stepDeleteConfirm = "delete-confirm"

	stepChatSystem = "chat-system"
	stepChatActs   = "chat-actions"
	stepChatLive   = "chat-live"
	stepChatName   = "chat-name"

	stepSystemEdit = "system-edit"
)

const (
	answerYes = "да"
	answerNo  = "нет"
)

// chatExitWord ends the live chat and moves to saving it.
const chatExitWord = "exit"

type statePrompt struct {
	text string
	kb   transport.Keyboard
}

// statePrompts holds the text and keyboard shown on entering or re-entering
// each state.
var statePrompts = map[string]statePrompt{
	StateMenu: {"Выберите действие:", transport.KeyboardMenu},
	CmdEdit:   {"Меню изменения диалога. Выберите действие:", transport.KeyboardEdit},

	stepAddName:          {"Введите название нового диалога:", transport.KeyboardNone},
	stepAddSystemConfirm: {"Задать собственный системный промпт? (да/нет)", transport.KeyboardYesNo},
	stepAddSystem:        {"Введите системный промпт:", transport.KeyboardNone},
	stepAddActsConfirm:   {"Добавить собственные действия? (да/нет)", transport.KeyboardYesNo},
	stepAddActs:          {"Введите действия через запятую:", transport.KeyboardNone},
	stepAddUser:          {"Введите реплику пользователя (0 — завершить диалог):", transport.KeyboardNone},
	stepAddBot:           {"Введите реплику бота:", transport.KeyboardNone},
	stepAddActionConfirm: {"Переопределить финальное действие? (да/нет)", transport.KeyboardYesNo},
	stepAddAction:        {"Введите финальное действие:", transport.KeyboardNone},

	stepEditSelect:       {"Введите название или номер диалога:", transport.KeyboardNone},
	stepEditRename:       {"Введите новое название диалога:", transport.KeyboardNone},
	stepEditSystem:       {"Введите новую системную строку:", transport.KeyboardNone},
	stepEditActs:         {"Введите действия через запятую:", transport.KeyboardNone},
	stepEditAction:       {"Введите финальное действие:", transport.KeyboardNone},
	stepEditReplicaIndex: {"Введите номер реплики:", transport.KeyboardNone},
	stepEditReplicaText:  {"Введите новый текст реплики:", transport.KeyboardNone},

	stepDeleteName:    {"Введите название или номер диалога для удаления:", transport.KeyboardNone},
	stepDeleteConfirm: {"Удалить диалог? (да/нет)", transport.KeyboardYesNo},

	stepChatSystem: {"Введите системный промпт или «нет», чтобы оставить стандартный:", transport.KeyboardNone},
	stepChatActs:   {"Введите доступные действия через запятую или «нет»:", transport.KeyboardNone},
	stepChatLive:   {"Чат начат. Пишите сообщения; «exit» — завершить и сохранить диалог.", transport.KeyboardNone},
	stepChatName:   {"Введите название диалога для сохранения:", transport.KeyboardNone},

	stepSystemEdit: {"Введите новый системный промпт или «нет», чтобы оставить текущий:", transport.KeyboardNone},
}

// Workflows binds every wizard to its receivers.
type Workflows struct {
	store     *dataset.Store
	model     llm.Client
	modelName string
	send      transport.Messenger
	registry  *engine.Registry
	logger    *logger.Logger
}

// New creates the workflow set. Register must be called before dispatching.
func New(store *dataset.Store, model llm.Client, modelName string, send transport.Messenger, log *logger.Logger) *Workflows {
	return &Workflows{
		store:     store,
		model:     model,
		modelName: modelName,
		send:      send,
		logger:    log,
	}
}

// StatePrompt implements engine.Prompter.
func (w *Workflows) StatePrompt(state string) (string, transport.Keyboard) {
	p, ok := statePrompts[state]
	if !ok {
		return "", transport.KeyboardNone
	}
	return p.text, p.kb
}

// Register installs every command and wizard step into the registry.
func (w *Workflows) Register(reg *engine.Registry) {
	w.registry = reg

	reg.Register(engine.NewSessionCommand(StateMenu, "показать главное меню", w.showMenu))
	reg.Register(engine.NewSessionCommand(CmdHelp, "показать список команд", w.help))
	reg.Register(engine.NewSessionCommand(CmdList, "показать список диалогов", w.listDialogs))
	reg.Register(engine.NewSessionCommand(CmdDownload, "прислать файл датасета", w.downloadDataset))
	reg.Register(engine.NewSessionCommand(CmdShowJSON, "показать структуру последнего ответа модели", w.showLastReply))
	reg.Register(engine.NewSessionCommand(CmdSystem, "посмотреть или изменить системный промпт", w.systemPrompt))
	reg.Register(engine.NewTextCommand(stepSystemEdit, "", w.systemPromptEdit, engine.AsInternal()))

	reg.Register(engine.NewSessionCommand(engine.RollbackCommand, "", w.rollback, engine.AsInternal()))

	w.registerAdd(reg)
	w.registerEdit(reg)
	w.registerDelete(reg)
	w.registerChat(reg)
}

// rollback discards everything the cancelled wizard accumulated.
func (w *Workflows) rollback(ctx context.Context, s *engine.Session) error {
	s.DiscardWizardState()
	return nil
}

// say sends plain text with no keyboard.
func (w *Workflows) say(ctx context.Context, s *engine.Session, text string) error {
	return w.send.SendText(ctx, s.UserID, text, transport.KeyboardNone)
}

// showState re-displays the prompt of the session's current state.
func (w *Workflows) showState(ctx context.Context, s *engine.Session) error {
	text, kb := w.StatePrompt(s.State.Current)
	if text == "" {
		return nil
	}
	return w.send.SendText(ctx, s.UserID, text, kb)
}

// toStep pushes an internal wizard step, locks input into it and shows its
// prompt.
func (w *Workflows) toStep(ctx context.Context, s *engine.Session, step string) error {
	s.State.Push(step)
	s.State.Locked = true
	return w.showState(ctx, s)
}

// stay keeps the session on the current step after a validation failure:
// report the reason, re-lock, re-prompt.
func (w *Workflows) stay(ctx context.Context, s *engine.Session, reason string) error {
	s.State.Locked = true
	if reason != "" {
		if err := w.say(ctx, s, reason); err != nil {
			return err
		}
	}
	return w.showState(ctx, s)
}

// unwind leaves the wizard for the last public state and shows its prompt.
func (w *Workflows) unwind(ctx context.Context, s *engine.Session) error {
	s.State.CancelPop(w.registry.IsInternal)
	return w.showState(ctx, s)
}

func (w *Workflows) showMenu(ctx context.Context, s *engine.Session) error {
	return w.send.SendText(ctx, s.UserID, "Выберите действие:", transport.KeyboardMenu)
}

// help enumerates the public commands sorted lexicographically.
func (w *Workflows) help(ctx context.Context, s *engine.Session) error {
	var b strings.Builder
	b.WriteString("Доступные команды:\n")
	for _, cmd := range w.registry.Public() {
		fmt.Fprintf(&b, "• %s — %s\n", cmd.Name, cmd.Description)
	}
	return w.say(ctx, s, b.String())
}

// listDialogs shows every committed topic with its ordinal.
func (w *Workflows) listDialogs(ctx context.Context, s *engine.Session) error {
	keys := w.store.Keys()
	if len(keys) == 0 {
		return w.say(ctx, s, "Датасет пуст.")
	}
	var b strings.Builder
	b.WriteString("Диалоги:\n")
	for i, key := range keys {
		fmt.Fprintf(&b, "%d. %s\n", i, key)
	}
	return w.say(ctx, s, b.String())
}

// downloadDataset sends the dataset file itself.
func (w *Workflows) downloadDataset(ctx context.Context, s *engine.Session) error {
	return w.send.SendDocument(ctx, s.UserID, w.store.Path())
}

// showLastReply prints the last structured model answer as JSON.
func (w *Workflows) showLastReply(ctx context.Context, s *engine.Session) error {
	if s.LastReply == nil {
		return w.say(ctx, s, "Нет сохранённого ответа модели.")
	}
	return w.say(ctx, s, formatReplyJSON(s.LastReply))
}

// systemPrompt shows the dataset-wide system prompt and opens its edit step.
func (w *Workflows) systemPrompt(ctx context.Context, s *engine.Session) error {
	if err := w.say(ctx, s, "Текущий системный промпт:\n"+w.store.System()); err != nil {
		return err
	}
	return w.toStep(ctx, s, stepSystemEdit)
}

func (w *Workflows) systemPromptEdit(ctx context.Context, s *engine.Session, text string) error {
	if strings.EqualFold(strings.TrimSpace(text), answerNo) {
		s.State.Pop()
		return w.say(ctx, s, "Системный промпт оставлен без изменений.")
	}
	if err := w.store.SetSystem(strings.TrimSpace(text)); err != nil {
		return fmt.Errorf("save system prompt: %w", err)
	}
	s.State.Pop()
	return w.say(ctx, s, "Системный промпт обновлён.")
}

// parseActions splits a comma-separated action list, dropping empty parts.
func parseActions(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// yesNo normalizes a confirmation answer. The bool reports whether the
// answer was recognized at all.
func yesNo(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case answerYes:
		return true, true
	case answerNo:
		return false, true
	default:
		return false, false
	}
}
