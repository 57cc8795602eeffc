package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedReply marks model output that is not the expected JSON shape.
// It is distinct from a hard completion failure: the raw text is still worth
// showing to the user.
var ErrMalformedReply = errors.New("model reply is not the expected JSON object")

// Reply is the structured answer the model is instructed to produce.
type Reply struct {
	MessageText string   `json:"MessageText"`
	Actions     []string `json:"Actions"`
}

// ParseReply parses raw model output as a strict JSON object with the
// MessageText and Actions keys.
func ParseReply(raw string) (*Reply, error) {
	trimmed := strings.TrimSpace(raw)
	var reply Reply
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if reply.MessageText == "" {
		return nil, fmt.Errorf("%w: missing MessageText", ErrMalformedReply)
	}
	return &reply, nil
}
