package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNotifierPublishDigest(t *testing.T) {
	t.Parallel()

	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("chat_id") != "42" {
			t.Errorf("unexpected chat id: %s", r.PostForm.Get("chat_id"))
		}
		texts = append(texts, r.PostForm.Get("text"))
	}))
	defer server.Close()

	n := NewNotifier("token", "42")
	n.apiBase = server.URL
	n.client = server.Client()

	if err := n.PublishDigest(context.Background(), "HDC digest 2026-01-05\n- item\n"); err != nil {
		t.Fatalf("PublishDigest error: %v", err)
	}
	if len(texts) != 1 || !strings.Contains(texts[0], "- item") {
		t.Fatalf("unexpected messages: %q", texts)
	}
}

func TestNotifierErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	n := NewNotifier("token", "42")
	n.apiBase = server.URL
	n.client = server.Client()

	err := n.PublishDigest(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected telegram error, got %v", err)
	}
}

func TestNotifierMisconfigured(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "42").PublishDigest(context.Background(), "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("abcd\n", 5)
	chunks := splitMessage(text, 10)
	if strings.Join(chunks, "") != text {
		t.Fatalf("chunks lose text: %q", chunks)
	}
	for _, c := range chunks {
		if len([]rune(c)) > 10 {
			t.Fatalf("chunk too long: %q", c)
		}
	}

	long := splitMessage(strings.Repeat("x", 25), 10)
	if len(long) != 3 || long[2] != "xxxxx" {
		t.Fatalf("unexpected split of long line: %q", long)
	}

	if got := splitMessage("", 10); len(got) != 1 {
		t.Fatalf("empty text should yield one chunk, got %q", got)
	}
}
