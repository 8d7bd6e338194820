package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

var errBotTokenRequired = errors.New("telegram bot token is required")

// Telegram delivers messages through the Telegram Bot API.
type Telegram struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// TelegramOption configures optional client behavior.
type TelegramOption func(*Telegram)

// WithTelegramHTTPClient overrides the default HTTP client.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(t *Telegram) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithTelegramBaseURL overrides the Bot API base URL.
func WithTelegramBaseURL(baseURL string) TelegramOption {
	return func(t *Telegram) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			t.baseURL = trimmed
		}
	}
}

// NewTelegram builds the Bot API client from config.
func NewTelegram(cfg config.TelegramConfig, opts ...TelegramOption) (*Telegram, error) {
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" {
		return nil, errBotTokenRequired
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Telegram{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultTelegramBaseURL,
		token:      token,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send implements Notifier. A document, when present, is delivered with the
// text as its caption in a single API call.
func (t *Telegram) Send(ctx context.Context, recipientID int64, msg Message) error {
	if msg.Document != nil {
		return t.sendDocument(ctx, recipientID, msg)
	}
	return t.sendMessage(ctx, recipientID, msg.Text)
}

func (t *Telegram) sendMessage(ctx context.Context, recipientID int64, text string) error {
	payload := map[string]any{
		"chat_id": recipientID,
		"text":    text,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendMessage"), bytes.NewReader(encoded))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(req)
}

func (t *Telegram) sendDocument(ctx context.Context, recipientID int64, msg Message) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", strconv.FormatInt(recipientID, 10)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding document")
	}
	if msg.Text != "" {
		if err := writer.WriteField("caption", msg.Text); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding document")
		}
	}
	part, err := writer.CreateFormFile("document", msg.Document.Name)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding document")
	}
	if _, err := part.Write(msg.Document.Content); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding document")
	}
	if err := writer.Close(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding document")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL("sendDocument"), &body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return t.do(req)
}

func (t *Telegram) methodURL(method string) string {
	return t.baseURL + "/bot" + t.token + "/" + method
}

func (t *Telegram) do(req *http.Request) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling telegram")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading telegram response")
	}

	var parsed telegramResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding telegram response")
	}
	if !parsed.OK {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("telegram rejected the message: %s", parsed.Description))
	}
	return nil
}
