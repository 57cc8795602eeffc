package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/internal/transport"
	"github.com/timik232/dataset-bot/pkg/logger"
)

type sentMessage struct {
	userID int64
	text   string
	kb     transport.Keyboard
}

type recordingMessenger struct {
	sent []sentMessage
}

func (m *recordingMessenger) SendText(_ context.Context, userID int64, text string, kb transport.Keyboard) error {
	m.sent = append(m.sent, sentMessage{userID: userID, text: text, kb: kb})
	return nil
}

func (m *recordingMessenger) SendDocument(context.Context, int64, string) error {
	return nil
}

func (m *recordingMessenger) lastText() string {
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].text
}

type mapPrompter map[string]string

func (p mapPrompter) StatePrompt(state string) (string, transport.Keyboard) {
	return p[state], transport.KeyboardNone
}

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func newTestDispatcher(reg *Registry, send transport.Messenger) *Dispatcher {
	return NewDispatcher(reg, mapPrompter{"меню": "Выберите действие:"}, send, nopLogger())
}

func TestDispatchUnknownCommand(t *testing.T) {
	reg := NewRegistry()
	send := &recordingMessenger{}
	d := newTestDispatcher(reg, send)
	sess := &Session{UserID: 7, State: NewState("меню")}

	require.NoError(t, d.Dispatch(context.Background(), sess, "  Чепуха  "))

	require.Len(t, send.sent, 2)
	assert.Equal(t, "Команда «чепуха» не найдена.", send.sent[0].text)
	assert.Equal(t, "Выберите действие:", send.sent[1].text)
}

func TestDispatchNormalizesCommandName(t *testing.T) {
	reg := NewRegistry()
	var ran bool
	reg.Register(NewSessionCommand("помощь", "", func(context.Context, *Session) error {
		ran = true
		return nil
	}))
	d := newTestDispatcher(reg, &recordingMessenger{})
	sess := &Session{UserID: 7, State: NewState("меню")}

	require.NoError(t, d.Dispatch(context.Background(), sess, " ПОМОЩЬ "))
	assert.True(t, ran)
	// Non-navigable commands leave the state alone.
	assert.Equal(t, "меню", sess.State.Current)
}

func TestDispatchInternalStepNotInvocableByName(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewTextCommand("wizard-step", "", func(context.Context, *Session, string) error {
		t.Fatal("internal step must not be reachable by name")
		return nil
	}, AsInternal()))
	reg.Register(NewSessionCommand(RollbackCommand, "", func(context.Context, *Session) error {
		t.Fatal("rollback must not be reachable by name")
		return nil
	}, AsInternal()))

	send := &recordingMessenger{}
	d := newTestDispatcher(reg, send)

	for _, name := range []string{"wizard-step", RollbackCommand} {
		sess := &Session{UserID: 7, State: NewState("меню")}
		require.NoError(t, d.Dispatch(context.Background(), sess, name))
		assert.Equal(t, "меню", sess.State.Current, name)
		assert.Contains(t, send.sent[0].text, "не найдена", name)
		send.sent = nil
	}
}

func TestDispatchNavigablePushesState(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewSessionCommand("изменить диалог", "", func(context.Context, *Session) error {
		return nil
	}, AsNavigable()))
	d := newTestDispatcher(reg, &recordingMessenger{})
	sess := &Session{UserID: 7, State: NewState("меню")}

	require.NoError(t, d.Dispatch(context.Background(), sess, "изменить диалог"))
	assert.Equal(t, "изменить диалог", sess.State.Current)
	assert.Equal(t, []string{"меню"}, sess.State.Stack)
}

func TestDispatchLockedRoutesToCurrentStep(t *testing.T) {
	reg := NewRegistry()
	var got string
	reg.Register(NewTextCommand("wizard-step", "", func(_ context.Context, _ *Session, text string) error {
		got = text
		return nil
	}, AsInternal()))
	d := newTestDispatcher(reg, &recordingMessenger{})

	sess := &Session{UserID: 7, State: NewState("меню")}
	sess.State.Push("wizard-step")
	sess.State.Locked = true

	// Raw text reaches the step uncased and untrimmed.
	require.NoError(t, d.Dispatch(context.Background(), sess, "Свободный Текст"))
	assert.Equal(t, "Свободный Текст", got)
}

func TestDispatchCancelWords(t *testing.T) {
	for _, word := range []string{"отмена", "назад", " Отмена "} {
		reg := NewRegistry()
		reg.Register(NewTextCommand("wizard-step", "", func(context.Context, *Session, string) error {
			t.Fatal("step must not run on cancel")
			return nil
		}, AsInternal()))
		var rolledBack bool
		reg.Register(NewSessionCommand(RollbackCommand, "", func(context.Context, *Session) error {
			rolledBack = true
			return nil
		}, AsInternal()))

		send := &recordingMessenger{}
		d := newTestDispatcher(reg, send)
		sess := &Session{UserID: 7, State: NewState("меню")}
		sess.State.Push("wizard-step")
		sess.State.Locked = true

		require.NoError(t, d.Dispatch(context.Background(), sess, word))
		assert.True(t, rolledBack, word)
		assert.False(t, sess.State.Locked, word)
		assert.Equal(t, "меню", sess.State.Current, word)
		assert.Equal(t, "Действие отменено.", send.sent[0].text, word)
	}
}

func TestDispatchStepErrorKeepsLock(t *testing.T) {
	reg := NewRegistry()
	wantErr := errors.New("send failed")
	reg.Register(NewTextCommand("wizard-step", "", func(context.Context, *Session, string) error {
		return wantErr
	}, AsInternal()))
	d := newTestDispatcher(reg, &recordingMessenger{})

	sess := &Session{UserID: 7, State: NewState("меню")}
	sess.State.Push("wizard-step")
	sess.State.Locked = true

	assert.ErrorIs(t, d.Dispatch(context.Background(), sess, "ввод"), wantErr)
	// The session stays locked on the same step so the input can be retried.
	assert.True(t, sess.State.Locked)
	assert.Equal(t, "wizard-step", sess.State.Current)
}

func TestDispatchLockedUnregisteredStepRecovers(t *testing.T) {
	reg := NewRegistry()
	send := &recordingMessenger{}
	d := newTestDispatcher(reg, send)
	sess := &Session{UserID: 7, State: NewState("меню")}
	sess.State.Push("ghost-step")
	sess.State.Locked = true

	require.NoError(t, d.Dispatch(context.Background(), sess, "anything"))
	assert.Equal(t, "меню", sess.State.Current)
	assert.Equal(t, "Выберите действие:", send.lastText())
}

func TestDispatchRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewSessionCommand("помощь", "", func(context.Context, *Session) error {
		panic("boom")
	}))
	d := newTestDispatcher(reg, &recordingMessenger{})
	sess := &Session{UserID: 7, State: NewState("меню")}

	err := d.Dispatch(context.Background(), sess, "помощь")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestDispatchPropagatesCommandError(t *testing.T) {
	reg := NewRegistry()
	wantErr := errors.New("command failed")
	reg.Register(NewSessionCommand("помощь", "", func(context.Context, *Session) error {
		return wantErr
	}))
	d := newTestDispatcher(reg, &recordingMessenger{})
	sess := &Session{UserID: 7, State: NewState("меню")}

	assert.ErrorIs(t, d.Dispatch(context.Background(), sess, "помощь"), wantErr)
}
