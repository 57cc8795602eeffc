package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessageUpdate(t *testing.T) {
	ev, ok := parseMessageUpdate(json.RawMessage(`[4, 101, 1, 123456, 1700000000, "привет", {}]`))
	require.True(t, ok)
	assert.Equal(t, int64(123456), ev.UserID)
	assert.Equal(t, "привет", ev.Text)
}

func TestParseMessageUpdateSkipsOutbox(t *testing.T) {
	_, ok := parseMessageUpdate(json.RawMessage(`[4, 101, 2, 123456, 1700000000, "ответ бота"]`))
	assert.False(t, ok)
}

func TestParseMessageUpdateSkipsOtherKinds(t *testing.T) {
	for _, raw := range []string{
		`[8, 123456, 1]`,          // friend online
		`[4, 101, 1]`,             // too short
		`"not an array"`,          // wrong shape
		`[4, 101, 1, "x", 0, ""]`, // bad peer
	} {
		_, ok := parseMessageUpdate(json.RawMessage(raw))
		assert.False(t, ok, raw)
	}
}
