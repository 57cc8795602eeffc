package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timik232/dataset-bot/pkg/logger"
)

const (
	vkAPIBase    = "https://api.vk.com/method/"
	vkAPIVersion = "5.131"
	longPollWait = 25
)

// Message flag set on outbound messages in the user long-poll protocol.
const flagOutbox = 2

// newMessageUpdate is the long-poll update code for a new message.
const newMessageUpdate = 4

// VKClient talks to the VK messages API and its user long-poll server.
// It implements both Poller and Messenger.
type VKClient struct {
	token  string
	http   *http.Client
	logger *logger.Logger

	lpServer string
	lpKey    string
	lpTS     int64
}

// NewVKClient creates a VK transport client.
func NewVKClient(token string, log *logger.Logger) *VKClient {
	return &VKClient{
		token:  token,
		http:   &http.Client{Timeout: 90 * time.Second},
		logger: log,
	}
}

type vkError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *vkError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

// callMethod performs one VK API method call and returns the raw response
// payload.
func (c *VKClient) callMethod(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	params.Set("access_token", c.token)
	params.Set("v", vkAPIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vkAPIBase+method, bytes.NewBufferString(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vk %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vk %s: read body: %w", method, err)
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    *vkError        `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("vk %s: parse response: %w", method, err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("vk %s: %w", method, envelope.Error)
	}
	return envelope.Response, nil
}

func (c *VKClient) ensureLongPoll(ctx context.Context) error {
	if c.lpServer != "" {
		return nil
	}
	raw, err := c.callMethod(ctx, "messages.getLongPollServer", url.Values{})
	if err != nil {
		return err
	}
	var srv struct {
		Key    string `json:"key"`
		Server string `json:"server"`
		TS     int64  `json:"ts"`
	}
	if err := json.Unmarshal(raw, &srv); err != nil {
		return fmt.Errorf("parse long poll server: %w", err)
	}
	c.lpServer, c.lpKey, c.lpTS = srv.Server, srv.Key, srv.TS
	c.logger.Info("long poll server acquired")
	return nil
}

// Poll blocks on the long-poll server and returns the inbound messages of
// one batch. Messages the bot itself sent are filtered out.
func (c *VKClient) Poll(ctx context.Context) ([]Event, error) {
	if err := c.ensureLongPoll(ctx); err != nil {
		return nil, err
	}

	pollURL := fmt.Sprintf("https://%s?act=a_check&key=%s&ts=%d&wait=%d&mode=2&version=3",
		c.lpServer, c.lpKey, c.lpTS, longPollWait)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("long poll: %w", err)
	}
	defer resp.Body.Close()

	var batch struct {
		Failed  int               `json:"failed"`
		TS      int64             `json:"ts"`
		Updates []json.RawMessage `json:"updates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("long poll: parse batch: %w", err)
	}

	switch batch.Failed {
	case 0:
	case 1:
		c.lpTS = batch.TS
		return nil, nil
	default:
		// Key expired or information lost, reacquire the server.
		c.lpServer = ""
		return nil, nil
	}
	c.lpTS = batch.TS

	var events []Event
	for _, raw := range batch.Updates {
		ev, ok := parseMessageUpdate(raw)
		if !ok {
			continue
		}
		ev.ID = uuid.Must(uuid.NewV7()).String()
		events = append(events, ev)
	}
	return events, nil
}

// parseMessageUpdate extracts an inbound message from one long-poll update
// array: [4, message_id, flags, peer_id, timestamp, text, ...].
func parseMessageUpdate(raw json.RawMessage) (Event, bool) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) < 6 {
		return Event{}, false
	}
	var kind, flags int
	var peer int64
	var text string
	if json.Unmarshal(fields[0], &kind) != nil || kind != newMessageUpdate {
		return Event{}, false
	}
	if json.Unmarshal(fields[2], &flags) != nil || flags&flagOutbox != 0 {
		return Event{}, false
	}
	if json.Unmarshal(fields[3], &peer) != nil {
		return Event{}, false
	}
	if json.Unmarshal(fields[5], &text) != nil {
		return Event{}, false
	}
	return Event{UserID: peer, Text: text}, true
}

// SendText sends a message, optionally with a named keyboard layout.
func (c *VKClient) SendText(ctx context.Context, userID int64, text string, kb Keyboard) error {
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("random_id", strconv.FormatInt(int64(rand.Int31()), 10))
	params.Set("message", text)
	if data := renderKeyboard(kb); data != nil {
		params.Set("keyboard", string(data))
	}
	if _, err := c.callMethod(ctx, "messages.send", params); err != nil {
		return err
	}
	return nil
}

// SendDocument uploads a file and sends it as a document attachment.
func (c *VKClient) SendDocument(ctx context.Context, userID int64, path string) error {
	raw, err := c.callMethod(ctx, "docs.getMessagesUploadServer", url.Values{
		"type":    {"doc"},
		"peer_id": {strconv.FormatInt(userID, 10)},
	})
	if err != nil {
		return err
	}
	var srv struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(raw, &srv); err != nil {
		return fmt.Errorf("parse upload server: %w", err)
	}

	uploaded, err := c.uploadFile(ctx, srv.UploadURL, path)
	if err != nil {
		return err
	}

	raw, err = c.callMethod(ctx, "docs.save", url.Values{
		"file":  {uploaded},
		"title": {filepath.Base(path)},
	})
	if err != nil {
		return err
	}
	var saved struct {
		Doc struct {
			ID      int64 `json:"id"`
			OwnerID int64 `json:"owner_id"`
		} `json:"doc"`
	}
	if err := json.Unmarshal(raw, &saved); err != nil {
		return fmt.Errorf("parse saved doc: %w", err)
	}

	params := url.Values{}
	params.Set("peer_id", strconv.FormatInt(userID, 10))
	params.Set("random_id", strconv.FormatInt(int64(rand.Int31()), 10))
	params.Set("attachment", fmt.Sprintf("doc%d_%d", saved.Doc.OwnerID, saved.Doc.ID))
	if _, err := c.callMethod(ctx, "messages.send", params); err != nil {
		c.logger.Warn("document send failed", zap.Error(err))
		return c.SendText(ctx, userID, "Не удалось отправить документ", KeyboardNone)
	}
	return nil
}

func (c *VKClient) uploadFile(ctx context.Context, uploadURL, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload document: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		File string `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parse upload result: %w", err)
	}
	if result.File == "" {
		return "", fmt.Errorf("upload rejected by server")
	}
	return result.File, nil
}
