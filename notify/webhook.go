// Package notify posts reports to chat webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxContent is the longest message a webhook accepts, in characters.
const MaxContent = 2000

// Webhook posts messages as {"content": "..."} JSON, the format of Discord and
// compatible incoming webhooks.
type Webhook struct {
	URL    string
	Client *http.Client // Client defaults to http.DefaultClient.
}

// Send posts content, split on line boundaries into as many messages as
// needed to stay under MaxContent.
func (w *Webhook) Send(ctx context.Context, content string) error {
	if w.URL == "" {
		return fmt.Errorf("webhook URL is not configured")
	}
	for _, part := range Split(content, MaxContent) {
		if err := w.post(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (w *Webhook) post(ctx context.Context, content string) error {
	body, err := json.Marshal(struct {
		Content string `json:"content"`
	}{content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot post to webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

// Split cuts s into parts of at most limit characters, preferring to cut
// after a newline. A single line longer than limit is cut anywhere. A limit
// that is not positive leaves s whole.
func Split(s string, limit int) []string {
	if limit <= 0 {
		return []string{s}
	}
	var parts []string
	runes := []rune(s)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
