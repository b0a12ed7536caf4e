package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookForwarder posts forwardable events to an external automation
// endpoint. Fire and forget: one attempt, raw payload plus timestamp.
type WebhookForwarder struct {
	url    string
	client *http.Client
}

func NewWebhookForwarder(url string) *WebhookForwarder {
	if url == "" {
		return nil
	}
	return &WebhookForwarder{url: url, client: &http.Client{Timeout: 5 * time.Second}}
}

func (w *WebhookForwarder) Forward(ev Event) error {
	body, err := json.Marshal(struct {
		Event     string         `json:"event"`
		Payload   map[string]any `json:"payload"`
		Timestamp string         `json:"timestamp"`
	}{ev.Type, ev.Payload, ev.OccurredAt.Format(time.RFC3339)})
	if err != nil {
		return err
	}
	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
