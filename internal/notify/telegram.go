// Package notify reports processing results to a Telegram chat.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"workorder-board/internal/types"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier receives processing outcomes
type Notifier interface {
	Info(ctx context.Context, text string)
	Success(ctx context.Context, order types.WorkOrder)
	Failure(ctx context.Context, file string, err error)
}

// Telegram sends messages through the Bot API. The zero-token value is a
// no-op notifier.
type Telegram struct {
	token  string
	chatID string
	apiURL string
	client *http.Client
	now    func() time.Time
}

// NewTelegram returns a Telegram notifier; empty token or chat disables it
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Enabled reports whether messages are actually sent
func (t *Telegram) Enabled() bool {
	return t != nil && t.token != "" && t.chatID != ""
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts an HTML-formatted message to the chat
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return nil
	}

	form := url.Values{
		"chat_id":    {t.chatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL carries the token
		if ue, ok := err.(*url.Error); ok {
			err = ue.Err
		}
		return fmt.Errorf("sendMessage failed: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("sendMessage: HTTP %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !body.OK {
		return fmt.Errorf("sendMessage: HTTP %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

func (t *Telegram) send(ctx context.Context, kind, text string) {
	if !t.Enabled() {
		return
	}
	if err := t.Send(ctx, text); err != nil {
		logrus.WithError(err).WithField("kind", kind).Warn("Telegram message failed")
		return
	}
	logrus.WithField("kind", kind).Info("Sent Telegram message")
}

// Info sends a plain informational message
func (t *Telegram) Info(ctx context.Context, text string) {
	t.send(ctx, "info", html.EscapeString(text))
}

// Success reports a published work order
func (t *Telegram) Success(ctx context.Context, order types.WorkOrder) {
	text := fmt.Sprintf("✅ <b>Obrada uspješno završena</b>\n\n"+
		"<b>Datum</b>: %s\n"+
		"<b>Radni nalog</b>: %s\n"+
		"<b>Datum u Excelu</b>: %s\n"+
		"<b>Excel datoteka</b>: %s\n\n"+
		"Podaci su uspješno objavljeni.",
		t.now().Format("02.01.2006 15:04:05"),
		html.EscapeString(order.Number),
		html.EscapeString(order.Date),
		html.EscapeString(order.SourceFile))
	t.send(ctx, "success", text)
}

// Failure reports a work order that could not be processed
func (t *Telegram) Failure(ctx context.Context, file string, err error) {
	text := fmt.Sprintf("❌ <b>Greška pri obradi!</b>\n\n"+
		"<b>Datum</b>: %s\n"+
		"<b>Datoteka</b>: %s\n"+
		"<b>Greška</b>: %s\n\n"+
		"Obrada nije uspjela, provjerite logove.",
		t.now().Format("02.01.2006 15:04:05"),
		html.EscapeString(file),
		html.EscapeString(err.Error()))
	t.send(ctx, "error", text)
}
