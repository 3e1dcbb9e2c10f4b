package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRenderCompleted(t *testing.T) {
	n := Notification{FlowType: "payment", Code: "s-1", Status: "completed", Receipt: "R123", TxnHash: "0xhash"}
	out := n.Render()
	for _, want := range []string{"payment settled", "s-1", "R123", "0xhash"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered message missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFailed(t *testing.T) {
	n := Notification{FlowType: "onramp", Code: "o-1", Status: "failed", Message: "insufficient float"}
	out := n.Render()
	if !strings.Contains(out, "failed") || !strings.Contains(out, "insufficient float") {
		t.Fatalf("unexpected render:\n%s", out)
	}
}

func TestTelegramNotify(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramOptions{BotToken: "token", ChatID: "42", APIBase: srv.URL}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), Notification{FlowType: "payment", Code: "s-1", Status: "completed"}); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/bottoken/sendMessage" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotBody["chat_id"] != "42" {
		t.Fatalf("unexpected chat id %q", gotBody["chat_id"])
	}
}

func TestTelegramNotifyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramOptions{BotToken: "token", ChatID: "42", APIBase: srv.URL}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), Notification{Code: "s-1"}); err == nil {
		t.Fatal("HTTP 403 应返回错误")
	}
}

func TestTelegramRequiresCredentials(t *testing.T) {
	if _, err := NewTelegramNotifier(TelegramOptions{ChatID: "42"}, testLogger()); err == nil {
		t.Fatal("缺少 token 时应返回错误")
	}
	if _, err := NewTelegramNotifier(TelegramOptions{BotToken: "token"}, testLogger()); err == nil {
		t.Fatal("缺少 chat id 时应返回错误")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
