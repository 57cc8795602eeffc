package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/internal/dataset"
	"github.com/timik232/dataset-bot/internal/engine"
	"github.com/timik232/dataset-bot/internal/llm"
	"github.com/timik232/dataset-bot/pkg/metrics"
)

func (w *Workflows) registerChat(reg *engine.Registry) {
	reg.Register(engine.NewSessionCommand(CmdChat, "поговорить с моделью и сохранить диалог", w.chatStart))
	reg.Register(engine.NewTextCommand(stepChatSystem, "", w.chatSystem, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepChatActs, "", w.chatActions, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepChatLive, "", w.chatLive, engine.AsInternal()))
	reg.Register(engine.NewTextCommand(stepChatName, "", w.chatName, engine.AsInternal()))
}

func (w *Workflows) chatStart(ctx context.Context, s *engine.Session) error {
	if w.model == nil {
		return w.say(ctx, s, "Модель не настроена.")
	}
	system := w.store.System()
	s.Chat = &engine.ChatState{
		System:  system,
		History: []string{dataset.FormatLine(dataset.SpeakerSystem, system)},
	}
	return w.toStep(ctx, s, stepChatSystem)
}

func (w *Workflows) chatSystem(ctx context.Context, s *engine.Session, text string) error {
	if trimmed := strings.TrimSpace(text); !strings.EqualFold(trimmed, answerNo) {
		s.Chat.System = trimmed
		s.Chat.History[0] = dataset.FormatLine(dataset.SpeakerSystem, trimmed)
	}
	return w.toStep(ctx, s, stepChatActs)
}

func (w *Workflows) chatActions(ctx context.Context, s *engine.Session, text string) error {
	if trimmed := strings.TrimSpace(text); !strings.EqualFold(trimmed, answerNo) {
		s.Chat.Actions = parseActions(trimmed)
	}
	return w.toStep(ctx, s, stepChatLive)
}

// chatLive handles one live turn: append the user line, query the model with
// the accumulated history and actions, show the reply. A reply that fails
// strict parsing is still shown raw but never recorded as a structured
// answer. The sentinel "exit" moves to saving the collected chat.
func (w *Workflows) chatLive(ctx context.Context, s *engine.Session, text string) error {
	if strings.EqualFold(strings.TrimSpace(text), chatExitWord) {
		if s.Chat.Last == nil {
			if err := w.say(ctx, s, "Нет завершённой пары реплик, сохранять нечего."); err != nil {
				return err
			}
			s.Chat = nil
			return w.unwind(ctx, s)
		}
		return w.toStep(ctx, s, stepChatName)
	}

	prompt := llm.BuildPrompt(s.Chat.History, s.Chat.Actions, text)
	s.Chat.History = append(s.Chat.History, dataset.FormatLine(dataset.SpeakerUser, text))

	start := time.Now()
	resp, err := w.model.Complete(ctx, &llm.CompletionRequest{
		Model: w.modelName,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		metrics.RecordLLMRequest(w.model.Name(), "error", time.Since(start).Seconds())
		w.logger.Error("model completion failed", zap.Int64("user_id", s.UserID), zap.Error(err))
		return w.stay(ctx, s, "Ошибка обращения к модели, попробуйте ещё раз.")
	}
	metrics.RecordLLMRequest(w.model.Name(), "success", time.Since(start).Seconds())

	reply, perr := llm.ParseReply(resp.Content)
	if perr != nil {
		metrics.LLMMalformedRepliesTotal.Inc()
		if err := w.say(ctx, s, resp.Content); err != nil {
			return err
		}
		return w.stay(ctx, s, "Ответ модели не удалось разобрать как JSON, он не будет записан.")
	}

	s.Chat.History = append(s.Chat.History, dataset.FormatLine(dataset.SpeakerBot, reply.MessageText))
	s.Chat.Last = reply
	s.LastReply = reply

	s.State.Locked = true
	return w.say(ctx, s, formatReplyText(reply))
}

// chatName freezes the collected chat under a new topic key.
func (w *Workflows) chatName(ctx context.Context, s *engine.Session, text string) error {
	key, ex, err := w.store.CreateTopic(text)
	switch {
	case errors.Is(err, dataset.ErrDuplicateTopic), errors.Is(err, dataset.ErrInvalidLength):
		return w.stay(ctx, s, err.Error())
	case err != nil:
		return err
	}

	history := append([]string(nil), s.Chat.History...)
	// Drop trailing user lines left unanswered by malformed model replies.
	for len(history) > 0 {
		speaker, _, splitErr := dataset.SplitLine(history[len(history)-1])
		if splitErr != nil || speaker != dataset.SpeakerUser {
			break
		}
		history = history[:len(history)-1]
	}
	ex.Prompt.History = history
	ex.Prompt.AvailableActions = append([]string(nil), s.Chat.Actions...)
	if err := ex.Finalize(); err != nil {
		if sendErr := w.say(ctx, s, "Нельзя сохранить: "+err.Error()); sendErr != nil {
			return sendErr
		}
		s.Chat = nil
		return w.unwind(ctx, s)
	}
	if len(s.Chat.Last.Actions) > 0 {
		ex.SetFinalAction(s.Chat.Last.Actions[0])
	}

	if err := w.store.Commit(key, ex); err != nil {
		return err
	}
	s.Chat = nil
	s.LastReply = nil
	if err := w.say(ctx, s, fmt.Sprintf("Диалог «%s» сохранён.", key)); err != nil {
		return err
	}
	return w.unwind(ctx, s)
}

// formatReplyText renders a structured reply for the chat transcript.
func formatReplyText(reply *llm.Reply) string {
	if len(reply.Actions) == 0 {
		return reply.MessageText
	}
	return fmt.Sprintf("%s\n\nДействия: %s", reply.MessageText, strings.Join(reply.Actions, ", "))
}

// formatReplyJSON renders a structured reply in its raw JSON shape.
func formatReplyJSON(reply *llm.Reply) string {
	data, err := json.MarshalIndent(reply, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}
