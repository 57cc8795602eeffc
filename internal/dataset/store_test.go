package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.json")
	s := NewStore(path, &logger.Logger{Logger: zap.NewNop()})
	require.NoError(t, s.Load("default system"))
	return s
}

func commitExample(t *testing.T, s *Store, rawName string) string {
	t.Helper()
	key, ex, err := s.CreateTopic(rawName)
	require.NoError(t, err)
	ex.AppendHistory(SpeakerUser, "hello")
	ex.AppendHistory(SpeakerBot, "hi")
	require.NoError(t, ex.Finalize())
	require.NoError(t, s.Commit(key, ex))
	return key
}

func TestCreateTopicStaysDetached(t *testing.T) {
	s := newTestStore(t)

	key, ex, err := s.CreateTopic("Test Dialog")
	require.NoError(t, err)
	assert.Equal(t, "test_dialog", key)
	require.NotNil(t, ex)
	assert.Equal(t, []string{FormatLine(SpeakerSystem, "default system")}, ex.Prompt.History)

	// The shell is not part of the document until Commit.
	assert.Equal(t, 0, s.Len())
	_, err = s.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Abandoning the shell leaves no trace on disk.
	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreateTopicValidation(t *testing.T) {
	s := newTestStore(t)
	commitExample(t, s, "Test")

	_, _, err := s.CreateTopic("abc")
	assert.ErrorIs(t, err, ErrInvalidLength)

	// Duplicate detection runs on the normalized key.
	_, _, err = s.CreateTopic("TEST")
	assert.ErrorIs(t, err, ErrDuplicateTopic)
}

func TestCommitRejectsTakenKey(t *testing.T) {
	s := newTestStore(t)

	key, ex, err := s.CreateTopic("race_topic")
	require.NoError(t, err)
	ex.AppendHistory(SpeakerUser, "q")
	ex.AppendHistory(SpeakerBot, "a")
	require.NoError(t, ex.Finalize())

	commitExample(t, s, "race_topic")
	assert.ErrorIs(t, s.Commit(key, ex), ErrDuplicateTopic)
	assert.Equal(t, 1, s.Len())
}

func TestLookupByNameOrOrdinal(t *testing.T) {
	s := newTestStore(t)
	commitExample(t, s, "first_topic")
	commitExample(t, s, "second_topic")

	key, err := s.LookupByNameOrOrdinal("First Topic")
	require.NoError(t, err)
	assert.Equal(t, "first_topic", key)

	key, err = s.LookupByNameOrOrdinal("1")
	require.NoError(t, err)
	assert.Equal(t, "second_topic", key)

	_, err = s.LookupByNameOrOrdinal("5")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LookupByNameOrOrdinal("nothing_here")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameTopic(t *testing.T) {
	s := newTestStore(t)
	commitExample(t, s, "old_name_topic")
	commitExample(t, s, "taken_topic")

	newKey, err := s.RenameTopic("old_name_topic", "New Name")
	require.NoError(t, err)
	assert.Equal(t, "new_name", newKey)
	assert.Equal(t, []string{"new_name", "taken_topic"}, s.Keys())

	_, err = s.RenameTopic("new_name", "taken_topic")
	assert.ErrorIs(t, err, ErrDuplicateTopic)

	_, err = s.RenameTopic("missing_topic", "whatever_name")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTopic(t *testing.T) {
	s := newTestStore(t)
	key := commitExample(t, s, "doomed_topic")

	require.NoError(t, s.DeleteTopic(key))
	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.DeleteTopic(key), ErrNotFound)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	commitExample(t, s, "zulu_topic")
	commitExample(t, s, "alpha_topic")
	require.NoError(t, s.SetSystem("updated system"))

	reopened := NewStore(s.Path(), &logger.Logger{Logger: zap.NewNop()})
	require.NoError(t, reopened.Load("unused fallback"))

	assert.Equal(t, "updated system", reopened.System())
	assert.Equal(t, []string{"zulu_topic", "alpha_topic"}, reopened.Keys())

	ex, err := reopened.Get("zulu_topic")
	require.NoError(t, err)
	assert.Equal(t, "hi", ex.Answer.MessageText)
	assert.Equal(t, DefaultAction, ex.Answer.Content.Action)
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, "default system", s.System())
	assert.Equal(t, 0, s.Len())
}

func TestLoadEmptyFallbackUsesDefaultPrompt(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "dataset.json"), &logger.Logger{Logger: zap.NewNop()})
	require.NoError(t, s.Load(""))

	// The system prompt is never empty, even with no configuration at all.
	assert.Equal(t, DefaultSystemPrompt, s.System())

	_, ex, err := s.CreateTopic("fresh_topic")
	require.NoError(t, err)
	assert.Equal(t, FormatLine(SpeakerSystem, DefaultSystemPrompt), ex.Prompt.History[0])
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	key := commitExample(t, s, "copy_topic")

	ex, err := s.Get(key)
	require.NoError(t, err)
	ex.Prompt.History[0] = "mutated"
	ex.Answer.MessageText = "mutated"

	fresh, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, FormatLine(SpeakerSystem, "default system"), fresh.Prompt.History[0])
	assert.Equal(t, "hi", fresh.Answer.MessageText)
}

func TestMutateHelpersPersist(t *testing.T) {
	s := newTestStore(t)
	key := commitExample(t, s, "edit_topic")

	require.NoError(t, s.SetSystemLine(key, "new system line"))
	require.NoError(t, s.SetAvailableActions(key, []string{"Свет", "Музыка"}))
	require.NoError(t, s.SetFinalAction(key, "Свет"))
	require.NoError(t, s.EditReplicaAt(key, 0, "привет"))

	reopened := NewStore(s.Path(), &logger.Logger{Logger: zap.NewNop()})
	require.NoError(t, reopened.Load(""))
	ex, err := reopened.Get(key)
	require.NoError(t, err)
	assert.Equal(t, FormatLine(SpeakerSystem, "new system line"), ex.Prompt.History[0])
	assert.Equal(t, []string{"Свет", "Музыка"}, ex.Prompt.AvailableActions)
	assert.Equal(t, "Свет", ex.Answer.Content.Action)
	assert.Equal(t, "привет", ex.Answer.MessageText)
}
