package wa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidPayload marks a webhook body that cannot be used. Per channel
// convention the HTTP call is still acknowledged with 200; the payload is
// dropped.
var ErrInvalidPayload = errors.New("wa: invalid webhook payload")

// Placeholders substituted for non-text message types without a textual
// body, so every downstream stage can assume text content.
var typePlaceholders = map[string]string{
	"image":    "[image]",
	"audio":    "[audio]",
	"video":    "[video]",
	"document": "[document]",
	"location": "[location]",
	"sticker":  "[sticker]",
}

// Event is one normalized inbound message, decoupled from the webhook
// wire format.
type Event struct {
	// DeliveryID is the channel's message id, used for retry
	// deduplication: webhook deliveries may repeat on timeout.
	DeliveryID string

	CustomerID   string
	CustomerName string

	// Content is always text: the message body, the selected interactive
	// option id, or a fixed placeholder for media.
	Content string

	// MessageType is the original channel type (text, interactive, image, …).
	MessageType string

	Timestamp time.Time
}

// ParseWebhook extracts normalized events from a webhook body. A body
// that is not a WhatsApp message envelope returns ErrInvalidPayload.
// Status-only deliveries (no messages) return an empty slice and no error.
func ParseWebhook(body []byte) ([]Event, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if payload.Object != "whatsapp_business_account" {
		return nil, fmt.Errorf("%w: unexpected object %q", ErrInvalidPayload, payload.Object)
	}

	var events []Event
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			names := contactNames(change.Value.Contacts)
			for _, msg := range change.Value.Messages {
				ev, ok := normalize(msg, names)
				if !ok {
					continue
				}
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

// normalize converts one wire message to an Event. Messages without a
// sender or id are unusable and skipped.
func normalize(msg InboundMessage, names map[string]string) (Event, bool) {
	if msg.From == "" || msg.ID == "" {
		return Event{}, false
	}

	ev := Event{
		DeliveryID:   msg.ID,
		CustomerID:   msg.From,
		CustomerName: names[msg.From],
		MessageType:  msg.Type,
		Timestamp:    parseTimestamp(msg.Timestamp),
	}

	switch {
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		// The selected option's id is the canonical text.
		ev.Content = msg.Interactive.ButtonReply.ID
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		ev.Content = msg.Interactive.ListReply.ID
	case msg.Text != nil:
		ev.Content = msg.Text.Body
	case msg.Image != nil && msg.Image.Caption != "":
		ev.Content = msg.Image.Caption
	case msg.Document != nil && msg.Document.Caption != "":
		ev.Content = msg.Document.Caption
	default:
		placeholder, ok := typePlaceholders[msg.Type]
		if !ok {
			placeholder = "[unsupported]"
		}
		ev.Content = placeholder
	}

	return ev, true
}

func contactNames(contacts []Contact) map[string]string {
	if len(contacts) == 0 {
		return nil
	}
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.WaID] = c.Profile.Name
	}
	return names
}

// parseTimestamp converts the channel's unix-seconds string. A malformed
// value falls back to the current time so ordering stays monotonic.
func parseTimestamp(s string) time.Time {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
