// Package dataset owns the persisted dialog dataset: a system prompt plus an
// ordered mapping of named dialog examples.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Speaker tags used for history lines.
const (
	SpeakerSystem = "system"
	SpeakerUser   = "user"
	SpeakerBot    = "VIKA"
)

// DefaultAction is the action every example carries unless overridden.
const DefaultAction = "Разговор"

// DefaultSystemPrompt seeds a dataset created from scratch.
const DefaultSystemPrompt = "Ты - помощник по имени ВИКА на заброшенной космической станции. " +
	"У тебя есть доступ к системам станции. Отвечай только в формате JSON с ключами " +
	"'MessageText' и 'Actions', содержащими как минимум одно (или несколько) доступных " +
	"вам действий. Если в Actions есть имя действия, оно будет исполнено. " +
	"Заканчивайте ответ символом }. Ниже - история сообщений из предыдущего диалога " +
	"с пользователем, а также список доступных тебе действий."

// Topic name bounds after normalization, in runes.
const (
	minTopicLen = 4
	maxTopicLen = 39
)

var (
	ErrDuplicateTopic = errors.New("диалог с таким названием уже существует")
	ErrInvalidLength  = errors.New("название должно быть от 4 до 39 символов")
	ErrNotFound       = errors.New("диалог не найден")
	ErrBadIndex       = errors.New("номер реплики вне диапазона")
	ErrNotReady       = errors.New("в диалоге нет завершённой пары реплик")
)

// Prompt is the request half of a dialog example.
type Prompt struct {
	History          []string `json:"History"`
	AvailableActions []string `json:"AvailableActions"`
	UserInput        string   `json:"UserInput"`
}

// Content carries the single action the agent takes in its final reply.
type Content struct {
	Action string `json:"Action"`
}

// Answer is the response half of a dialog example.
type Answer struct {
	MessageText string  `json:"MessageText"`
	Content     Content `json:"Content"`
}

// Example is one collected conversation stored under a topic key.
type Example struct {
	Prompt Prompt `json:"prompt"`
	Answer Answer `json:"answer"`
}

// NewExample creates an example shell whose history starts with the given
// system instruction.
func NewExample(system string) *Example {
	return &Example{
		Prompt: Prompt{
			History:          []string{FormatLine(SpeakerSystem, system)},
			AvailableActions: []string{},
		},
	}
}

// FormatLine renders a single history line in the dataset's quoted form.
func FormatLine(speaker, text string) string {
	return fmt.Sprintf("%s: '%s'", speaker, text)
}

// SplitLine is the inverse of FormatLine. It reports an error for lines that
// do not carry a speaker tag.
func SplitLine(line string) (speaker, text string, err error) {
	speaker, rest, ok := strings.Cut(line, ": '")
	if !ok {
		return "", "", fmt.Errorf("history line %q has no speaker tag", line)
	}
	return speaker, strings.TrimSuffix(rest, "'"), nil
}

// SetSystem replaces the leading system line.
func (e *Example) SetSystem(system string) {
	if len(e.Prompt.History) == 0 {
		e.Prompt.History = []string{FormatLine(SpeakerSystem, system)}
		return
	}
	e.Prompt.History[0] = FormatLine(SpeakerSystem, system)
}

// AppendHistory adds one tagged line to the history.
func (e *Example) AppendHistory(speaker, text string) {
	e.Prompt.History = append(e.Prompt.History, FormatLine(speaker, text))
}

// SetAvailableActions replaces the example's action list.
func (e *Example) SetAvailableActions(actions []string) {
	e.Prompt.AvailableActions = actions
}

// SetFinalAction overrides the action asserted in the final answer.
func (e *Example) SetFinalAction(action string) {
	e.Answer.Content.Action = action
}

// TurnCount reports the number of history lines past the system line.
func (e *Example) TurnCount() int {
	if len(e.Prompt.History) == 0 {
		return 0
	}
	return len(e.Prompt.History) - 1
}

// Finalize extracts the closing user/agent pair out of the history into
// UserInput and MessageText and applies the default action. The history must
// end with an agent line preceded by a user line.
func (e *Example) Finalize() error {
	h := e.Prompt.History
	if len(h) < 3 {
		return ErrNotReady
	}
	botSpeaker, botText, err := SplitLine(h[len(h)-1])
	if err != nil {
		return err
	}
	userSpeaker, userText, err := SplitLine(h[len(h)-2])
	if err != nil {
		return err
	}
	if botSpeaker != SpeakerBot || userSpeaker != SpeakerUser {
		return ErrNotReady
	}
	e.Prompt.History = h[:len(h)-2]
	e.Prompt.UserInput = userText
	e.Answer.MessageText = botText
	if e.Answer.Content.Action == "" {
		e.Answer.Content.Action = DefaultAction
	}
	return nil
}

// Replicas flattens the editable turns: the history minus its leading system
// line, with the final agent message appended as the last index.
func (e *Example) Replicas() []string {
	var out []string
	if len(e.Prompt.History) > 1 {
		out = append(out, e.Prompt.History[1:]...)
	}
	return append(out, FormatLine(SpeakerBot, e.Answer.MessageText))
}

// EditReplicaAt rewrites the replica at the given zero-based index, keeping
// the speaker tag. The last index addresses the final MessageText.
func (e *Example) EditReplicaAt(index int, newText string) error {
	n := len(e.Replicas())
	if index < 0 || index >= n {
		return ErrBadIndex
	}
	if index == n-1 {
		e.Answer.MessageText = newText
		return nil
	}
	speaker, _, err := SplitLine(e.Prompt.History[index+1])
	if err != nil {
		return err
	}
	e.Prompt.History[index+1] = FormatLine(speaker, newText)
	return nil
}

// NormalizeTopic lower-cases a raw topic name and replaces spaces with
// underscores. Normalization is idempotent.
func NormalizeTopic(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
}

func validateTopic(key string) error {
	if n := utf8.RuneCountInString(key); n < minTopicLen || n > maxTopicLen {
		return ErrInvalidLength
	}
	return nil
}

// Document is the whole persisted dataset. Example order is preserved across
// marshal/unmarshal so ordinal references stay stable.
type Document struct {
	System string

	keys     []string
	examples map[string]*Example
}

// NewDocument creates an empty document with the given system instruction.
func NewDocument(system string) *Document {
	return &Document{
		System:   system,
		examples: make(map[string]*Example),
	}
}

// Len reports the number of committed examples.
func (d *Document) Len() int { return len(d.keys) }

// Keys returns the topic keys in insertion order.
func (d *Document) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Get returns the example stored under key.
func (d *Document) Get(key string) (*Example, bool) {
	ex, ok := d.examples[key]
	return ex, ok
}

func (d *Document) insert(key string, ex *Example) {
	if _, ok := d.examples[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.examples[key] = ex
}

func (d *Document) remove(key string) bool {
	if _, ok := d.examples[key]; !ok {
		return false
	}
	delete(d.examples, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// rename moves an entry to a new key, keeping its position.
func (d *Document) rename(oldKey, newKey string) {
	ex := d.examples[oldKey]
	delete(d.examples, oldKey)
	d.examples[newKey] = ex
	for i, k := range d.keys {
		if k == oldKey {
			d.keys[i] = newKey
			break
		}
	}
}

// MarshalJSON emits the document in its on-disk shape, keeping example order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"system":`)
	sys, err := json.Marshal(d.System)
	if err != nil {
		return nil, err
	}
	buf.Write(sys)
	buf.WriteString(`,"examples":{`)
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(d.examples[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON walks the raw tokens so the examples object's key order is
// recovered, which encoding/json's map decoding would lose.
func (d *Document) UnmarshalJSON(data []byte) error {
	d.keys = nil
	d.examples = make(map[string]*Example)

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		field, _ := tok.(string)
		switch field {
		case "system":
			if err := dec.Decode(&d.System); err != nil {
				return err
			}
		case "examples":
			if err := expectDelim(dec, '{'); err != nil {
				return err
			}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := keyTok.(string)
				var ex Example
				if err := dec.Decode(&ex); err != nil {
					return fmt.Errorf("example %q: %w", key, err)
				}
				d.insert(key, &ex)
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
		}
	}
	if d.System == "" {
		return errors.New("dataset document has an empty system prompt")
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
