package services

import (
	"log/slog"

	pubnub "github.com/pubnub/go"
)

// Notifier pushes realtime events to interested channels. Delivery is best
// effort; no core operation depends on a notification landing.
type Notifier interface {
	Publish(channel string, message map[string]any)
}

type PubNubNotifier struct {
	pn *pubnub.PubNub
}

func NewPubNubNotifier(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{pn: pn}
}

func (n *PubNubNotifier) Publish(channel string, message map[string]any) {
	go func() {
		_, _, err := n.pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			slog.Warn("pubnub publish failed", "channel", channel, "error", err)
		}
	}()
}

// NoopNotifier is used when PubNub keys are not configured.
type NoopNotifier struct{}

func (NoopNotifier) Publish(channel string, message map[string]any) {}
