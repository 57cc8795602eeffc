package dataset

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTopic(t *testing.T) {
	assert.Equal(t, "test_topic", NormalizeTopic("Test Topic"))
	assert.Equal(t, "test_topic", NormalizeTopic("  test topic  "))

	// Normalization is idempotent.
	once := NormalizeTopic("Моя Тема Диалога")
	assert.Equal(t, once, NormalizeTopic(once))
}

func TestValidateTopicBounds(t *testing.T) {
	assert.ErrorIs(t, validateTopic("abc"), ErrInvalidLength)
	assert.NoError(t, validateTopic("abcd"))
	assert.NoError(t, validateTopic("тема")) // 4 runes, 8 bytes
	assert.NoError(t, validateTopic(strings.Repeat("a", 39)))
	assert.ErrorIs(t, validateTopic(strings.Repeat("a", 40)), ErrInvalidLength)
}

func TestFormatAndSplitLine(t *testing.T) {
	line := FormatLine(SpeakerUser, "привет")
	assert.Equal(t, "user: 'привет'", line)

	speaker, text, err := SplitLine(line)
	require.NoError(t, err)
	assert.Equal(t, SpeakerUser, speaker)
	assert.Equal(t, "привет", text)

	_, _, err = SplitLine("no tag here")
	assert.Error(t, err)
}

func TestFinalize(t *testing.T) {
	ex := NewExample("be helpful")
	ex.AppendHistory(SpeakerUser, "hello")
	ex.AppendHistory(SpeakerBot, "hi there")

	require.NoError(t, ex.Finalize())
	assert.Equal(t, "hello", ex.Prompt.UserInput)
	assert.Equal(t, "hi there", ex.Answer.MessageText)
	assert.Equal(t, DefaultAction, ex.Answer.Content.Action)
	assert.Equal(t, []string{FormatLine(SpeakerSystem, "be helpful")}, ex.Prompt.History)
}

func TestFinalizeTooShort(t *testing.T) {
	ex := NewExample("system")
	assert.ErrorIs(t, ex.Finalize(), ErrNotReady)

	ex.AppendHistory(SpeakerUser, "hello")
	assert.ErrorIs(t, ex.Finalize(), ErrNotReady)
}

func TestFinalizeKeepsCustomAction(t *testing.T) {
	ex := NewExample("system")
	ex.AppendHistory(SpeakerUser, "включи свет")
	ex.AppendHistory(SpeakerBot, "включаю")
	ex.SetFinalAction("Свет")

	require.NoError(t, ex.Finalize())
	assert.Equal(t, "Свет", ex.Answer.Content.Action)
}

func TestEditReplicaAt(t *testing.T) {
	ex := NewExample("system")
	ex.AppendHistory(SpeakerUser, "q1")
	ex.AppendHistory(SpeakerBot, "a1")
	ex.AppendHistory(SpeakerUser, "q2")
	ex.AppendHistory(SpeakerBot, "a2")
	require.NoError(t, ex.Finalize())

	// Replicas: [user q1, VIKA a1, user q2(? popped)] -> after Finalize the
	// history holds q1/a1 and the answer holds a2.
	replicas := ex.Replicas()
	require.Len(t, replicas, 3)
	assert.Equal(t, "user: 'q1'", replicas[0])
	assert.Equal(t, "VIKA: 'a2'", replicas[2])

	// A middle edit keeps the speaker tag.
	require.NoError(t, ex.EditReplicaAt(1, "fixed"))
	assert.Equal(t, "VIKA: 'fixed'", ex.Prompt.History[2])

	// The last index addresses the final answer text.
	require.NoError(t, ex.EditReplicaAt(2, "bye"))
	assert.Equal(t, "bye", ex.Answer.MessageText)

	assert.ErrorIs(t, ex.EditReplicaAt(3, "x"), ErrBadIndex)
	assert.ErrorIs(t, ex.EditReplicaAt(-1, "x"), ErrBadIndex)
}

func TestDocumentOrderRoundTrip(t *testing.T) {
	doc := NewDocument("system prompt")
	keys := []string{"zulu_topic", "alpha_topic", "mike_topic"}
	for _, key := range keys {
		ex := NewExample("system prompt")
		ex.AppendHistory(SpeakerUser, "hello "+key)
		ex.AppendHistory(SpeakerBot, "hi")
		require.NoError(t, ex.Finalize())
		doc.insert(key, ex)
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var restored Document
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, "system prompt", restored.System)
	assert.Equal(t, keys, restored.Keys())

	ex, ok := restored.Get("alpha_topic")
	require.True(t, ok)
	assert.Equal(t, "hello alpha_topic", ex.Prompt.UserInput)
}

func TestDocumentRename(t *testing.T) {
	doc := NewDocument("s")
	doc.insert("first_topic", NewExample("s"))
	doc.insert("second_topic", NewExample("s"))

	doc.rename("first_topic", "renamed_topic")
	assert.Equal(t, []string{"renamed_topic", "second_topic"}, doc.Keys())

	_, ok := doc.Get("first_topic")
	assert.False(t, ok)
	_, ok = doc.Get("renamed_topic")
	assert.True(t, ok)
}
