package wa

import (
	"errors"
	"testing"
	"time"
)

const textWebhook = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "ent-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "221700000000", "phone_number_id": "ph-1"},
        "contacts": [{"wa_id": "221771234567", "profile": {"name": "Awa"}}],
        "messages": [{
          "from": "221771234567",
          "id": "wamid.A1",
          "timestamp": "1717243200",
          "type": "text",
          "text": {"body": "bonjour"}
        }]
      }
    }]
  }]
}`

func TestParseWebhook_Text(t *testing.T) {
	t.Parallel()

	events, err := ParseWebhook([]byte(textWebhook))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.CustomerID != "221771234567" || ev.CustomerName != "Awa" {
		t.Errorf("customer = %q/%q", ev.CustomerID, ev.CustomerName)
	}
	if ev.Content != "bonjour" || ev.DeliveryID != "wamid.A1" {
		t.Errorf("content = %q, delivery = %q", ev.Content, ev.DeliveryID)
	}
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ev.Timestamp, want)
	}
}

func TestParseWebhook_InteractiveUsesOptionID(t *testing.T) {
	t.Parallel()

	body := `{
	  "object": "whatsapp_business_account",
	  "entry": [{"changes": [{"field": "messages", "value": {"messages": [
	    {"from": "c1", "id": "wamid.B1", "type": "interactive",
	     "interactive": {"type": "button_reply", "button_reply": {"id": "product_42", "title": "Voir"}}},
	    {"from": "c1", "id": "wamid.B2", "type": "interactive",
	     "interactive": {"type": "list_reply", "list_reply": {"id": "pay_wave", "title": "Wave"}}}
	  ]}}]}]
	}`

	events, err := ParseWebhook([]byte(body))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Content != "product_42" || events[1].Content != "pay_wave" {
		t.Errorf("contents = %q, %q; want option ids", events[0].Content, events[1].Content)
	}
}

func TestParseWebhook_MediaPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ   string
		extra string
		want  string
	}{
		{"image", `"image": {"id": "m1"}`, "[image]"},
		{"audio", `"audio": {"id": "m2"}`, "[audio]"},
		{"video", `"video": {"id": "m3"}`, "[video]"},
		{"document", `"document": {"id": "m4"}`, "[document]"},
		{"location", `"location": {"latitude": 14.7, "longitude": -17.5}`, "[location]"},
		{"image", `"image": {"id": "m5", "caption": "ceci"}`, "ceci"},
	}
	for _, tt := range tests {
		body := `{"object": "whatsapp_business_account", "entry": [{"changes": [{"field": "messages",
		  "value": {"messages": [{"from": "c1", "id": "wamid.X", "type": "` + tt.typ + `", ` + tt.extra + `}]}}]}]}`

		events, err := ParseWebhook([]byte(body))
		if err != nil {
			t.Fatalf("%s: ParseWebhook: %v", tt.typ, err)
		}
		if len(events) != 1 || events[0].Content != tt.want {
			t.Errorf("%s: content = %q, want %q", tt.typ, events[0].Content, tt.want)
		}
	}
}

func TestParseWebhook_Invalid(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"not json", `{"object": "something_else"}`} {
		if _, err := ParseWebhook([]byte(body)); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("ParseWebhook(%q) err = %v, want ErrInvalidPayload", body, err)
		}
	}
}

func TestParseWebhook_StatusOnlyDeliveryIsEmpty(t *testing.T) {
	t.Parallel()

	body := `{"object": "whatsapp_business_account", "entry": [{"changes": [{"field": "statuses", "value": {}}]}]}`
	events, err := ParseWebhook([]byte(body))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("short", 24); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	long := "this title is definitely longer than the limit"
	got := Truncate(long, 24)
	if len([]rune(got)) != 24 {
		t.Errorf("Truncate length = %d, want 24", len([]rune(got)))
	}
}
