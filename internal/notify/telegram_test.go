package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

func newTelegramTest(t *testing.T, handler http.HandlerFunc) *Telegram {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewTelegram(
		config.TelegramConfig{BotToken: "123:abc"},
		WithTelegramBaseURL(server.URL),
	)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return client
}

func TestTelegramSendMessage(t *testing.T) {
	client := newTelegramTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/sendMessage" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["chat_id"] != float64(42) || body["text"] != "your subscription is active" {
			t.Fatalf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	err := client.Send(context.Background(), 42, Message{Text: "your subscription is active"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTelegramSendDocument(t *testing.T) {
	client := newTelegramTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/sendDocument" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("chat_id") != "42" {
			t.Fatalf("unexpected chat id %q", r.FormValue("chat_id"))
		}
		if r.FormValue("caption") != "your config" {
			t.Fatalf("unexpected caption %q", r.FormValue("caption"))
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "vpn.conf" {
			t.Fatalf("unexpected filename %q", header.Filename)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	err := client.Send(context.Background(), 42, Message{
		Text:     "your config",
		Document: &Document{Name: "vpn.conf", Content: []byte("[Interface]\n")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTelegramRejection(t *testing.T) {
	client := newTelegramTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	})

	err := client.Send(context.Background(), 42, Message{Text: "hi"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected description in error, got %v", err)
	}
}

func TestTelegramMissingToken(t *testing.T) {
	if _, err := NewTelegram(config.TelegramConfig{}); err == nil {
		t.Fatal("expected error for missing token")
	}
}
