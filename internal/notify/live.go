package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"github.com/akmatori/opsconsole/internal/models"
)

// severityColors are the slack attachment colors per severity
var severityColors = map[models.Severity]string{
	models.SeverityCritical: "#d32f2f",
	models.SeverityHigh:     "#f57c00",
	models.SeverityWarning:  "#fbc02d",
	models.SeverityInfo:     "#1976d2",
}

// LiveSender delivers slack and webhook channels for real. Other channel
// types have no outbound integration and are simulated.
type LiveSender struct {
	client *http.Client
}

// NewLiveSender creates a live sender; a nil client gets a 10s timeout client
func NewLiveSender(client *http.Client) *LiveSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &LiveSender{client: client}
}

// Send implements Sender
func (s *LiveSender) Send(ctx context.Context, channel *models.NotificationChannel, msg Message) (string, error) {
	if err := ValidateConfig(channel); err != nil {
		return models.DeliveryFailed, err
	}

	var err error
	switch channel.Type {
	case models.ChannelSlack:
		err = s.sendSlack(ctx, channel, msg)
	case models.ChannelWebhook:
		err = s.sendWebhook(ctx, channel, msg)
	default:
		return Simulator{}.Send(ctx, channel, msg)
	}
	if err != nil {
		logrus.Warnf("Delivery to %s channel %s failed: %v", channel.Type, channel.ID, err)
		return models.DeliveryFailed, err
	}
	return models.DeliverySent, nil
}

func (s *LiveSender) sendSlack(ctx context.Context, channel *models.NotificationChannel, msg Message) error {
	text := msg.Text
	if msg.Link != "" {
		text += fmt.Sprintf("\n<%s|Open in console>", msg.Link)
	}
	payload := &slack.WebhookMessage{
		Channel: slackChannel(channel.ConfigString("channel")),
		Text:    msg.Subject,
		Attachments: []slack.Attachment{{
			Color:  severityColors[msg.Severity],
			Text:   text,
			Footer: "opsconsole",
			Ts:     json.Number(fmt.Sprint(time.Now().Unix())),
		}},
	}
	return slack.PostWebhookCustomHTTPContext(ctx, channel.ConfigString("webhook_url"), s.client, payload)
}

func (s *LiveSender) sendWebhook(ctx context.Context, channel *models.NotificationChannel, msg Message) error {
	body, err := json.Marshal(map[string]interface{}{
		"subject":  msg.Subject,
		"message":  msg.Text,
		"severity": msg.Severity,
		"link":     msg.Link,
		"channel":  channel.Name,
	})
	if err != nil {
		return err
	}

	method := strings.ToUpper(channel.ConfigString("method"))
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, channel.ConfigString("url"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// slackChannel turns a configured channel into the form incoming webhooks accept:
// channel ids are kept, bare names get a "#" prefix.
func slackChannel(nameOrID string) string {
	if nameOrID == "" || isChannelID(nameOrID) || strings.HasPrefix(nameOrID, "#") || strings.HasPrefix(nameOrID, "@") {
		return nameOrID
	}
	return "#" + nameOrID
}

// isChannelID checks if a string looks like a Slack channel ID
// Channel IDs start with C and are followed by alphanumeric characters
func isChannelID(s string) bool {
	if len(s) < 9 || len(s) > 15 {
		return false
	}
	if !strings.HasPrefix(s, "C") {
		return false
	}
	for _, c := range s[1:] {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
