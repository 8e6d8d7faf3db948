package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
)

func TestSplit(t *testing.T) {
	testCases := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{name: "empty", in: "", limit: 10, want: nil},
		{name: "short", in: "abc", limit: 10, want: []string{"abc"}},
		{name: "on lines", in: "aaa\nbbb\nccc\n", limit: 8, want: []string{"aaa\nbbb\n", "ccc\n"}},
		{name: "long line", in: "abcdefghij", limit: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "multibyte", in: "●●●\n●●", limit: 4, want: []string{"●●●\n", "●●"}},
		{name: "no limit", in: "abc\ndef", limit: 0, want: []string{"abc\ndef"}},
		{name: "negative limit", in: "abc", limit: -1, want: []string{"abc"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Split(tc.in, tc.limit); !slices.Equal(got, tc.want) {
				t.Errorf("Split(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
		})
	}
}

func TestWebhook_Send(t *testing.T) {
	var mu sync.Mutex
	var received []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var body struct{ Content string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, body.Content)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := &Webhook{URL: srv.URL}
	if err := w.Send(context.Background(), "● 2330.TW: NT$650.0 (8.33%)\n"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	long := strings.Repeat(strings.Repeat("x", 99)+"\n", 30)
	if err := w.Send(context.Background(), long); err != nil {
		t.Fatalf("Send(long) error = %v", err)
	}
	if len(received) != 3 {
		t.Fatalf("received %d messages, want 3", len(received))
	}
	if received[0] != "● 2330.TW: NT$650.0 (8.33%)\n" {
		t.Errorf("received[0] = %q", received[0])
	}
	if got := received[1] + received[2]; got != long {
		t.Error("split messages do not add up to the report")
	}
}

func TestWebhook_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid webhook token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	if err := (&Webhook{URL: srv.URL}).Send(context.Background(), "hi"); err == nil || !strings.Contains(err.Error(), "invalid webhook token") {
		t.Errorf("Send() error = %v, want the server message", err)
	}
	if err := (&Webhook{}).Send(context.Background(), "hi"); err == nil {
		t.Error("Send() without URL succeeded")
	}
}
