package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	reply, err := ParseReply(` {"MessageText":"привет","Actions":["Разговор","Свет"]} `)
	require.NoError(t, err)
	assert.Equal(t, "привет", reply.MessageText)
	assert.Equal(t, []string{"Разговор", "Свет"}, reply.Actions)
}

func TestParseReplyNoActions(t *testing.T) {
	reply, err := ParseReply(`{"MessageText":"привет"}`)
	require.NoError(t, err)
	assert.Empty(t, reply.Actions)
}

func TestParseReplyMalformed(t *testing.T) {
	for _, raw := range []string{
		"просто текст",
		`{"MessageText":`,
		`{"Actions":["Разговор"]}`,
		`""`,
	} {
		_, err := ParseReply(raw)
		assert.ErrorIs(t, err, ErrMalformedReply, raw)
	}
}
