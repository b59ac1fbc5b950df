// Package notify delivers notification messages to configured channels.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/akmatori/opsconsole/internal/models"
)

// Delivery modes
const (
	ModeSimulate = "simulate"
	ModeLive     = "live"
)

// Message is one notification to deliver
type Message struct {
	Subject  string
	Text     string
	Severity models.Severity
	Link     string
}

// Sender delivers a message through one channel and reports the delivery
// status recorded in history: sent or simulated.
type Sender interface {
	Send(ctx context.Context, channel *models.NotificationChannel, msg Message) (string, error)
}

// requiredKeys lists the config keys each channel type needs
var requiredKeys = map[models.ChannelType][]string{
	models.ChannelEmail:   {"recipients"},
	models.ChannelWebhook: {"url"},
	models.ChannelSlack:   {"webhook_url"},
	models.ChannelLine:    {"token"},
	models.ChannelSMS:     {"phone_numbers"},
}

// ValidateConfig checks that channel carries the config its type needs
func ValidateConfig(channel *models.NotificationChannel) error {
	keys, ok := requiredKeys[channel.Type]
	if !ok {
		return fmt.Errorf("unsupported channel type %q", channel.Type)
	}
	var missing []string
	for _, key := range keys {
		if !present(channel.Config[key]) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s channel config is missing %s", channel.Type, strings.Join(missing, ", "))
	}
	return nil
}

func present(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []interface{}:
		return len(t) > 0
	case []string:
		return len(t) > 0
	default:
		return true
	}
}

// New returns the sender for mode; anything but "live" simulates
func New(mode string) Sender {
	if mode == ModeLive {
		return NewLiveSender(nil)
	}
	return Simulator{}
}

// Simulator validates the channel and records the message without sending it
type Simulator struct{}

// Send implements Sender
func (Simulator) Send(ctx context.Context, channel *models.NotificationChannel, msg Message) (string, error) {
	if err := ValidateConfig(channel); err != nil {
		return models.DeliveryFailed, err
	}
	if err := ctx.Err(); err != nil {
		return models.DeliveryFailed, err
	}
	return models.DeliverySimulated, nil
}
