package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookSender posts a Slack-compatible attachment payload to a chat
// webhook URL.
type WebhookSender struct {
	url    string
	client *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSender) Name() string { return "webhook" }

type webhookField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type webhookAttachment struct {
	Color  string         `json:"color"`
	Fields []webhookField `json:"fields"`
	Footer string         `json:"footer"`
	TS     int64          `json:"ts"`
}

type webhookPayload struct {
	Text        string              `json:"text"`
	Attachments []webhookAttachment `json:"attachments"`
}

func (s *WebhookSender) Send(ctx context.Context, ev Event) error {
	color := "#ffa000"
	if ev.Kind == "down" {
		color = "#d32f2f"
	}

	payload := webhookPayload{
		Text: fmt.Sprintf("Vigil Alert: %s", ev.MonitorName),
		Attachments: []webhookAttachment{{
			Color: color,
			Fields: []webhookField{
				{Title: "Monitor", Value: ev.MonitorName, Short: true},
				{Title: "Status", Value: strings.ToUpper(ev.Kind), Short: true},
				{Title: "Time", Value: ev.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
				{Title: "Message", Value: ev.Message},
			},
			Footer: "vigil",
			TS:     ev.CreatedAt.Unix(),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
