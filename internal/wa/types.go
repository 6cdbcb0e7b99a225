// Package wa is the WhatsApp Cloud API boundary: webhook envelope
// parsing, inbound normalization, the Graph API send client, and the soft
// per-customer outbound rate limiter.
package wa

// Channel formatting limits. Interactive button arrays are capped at 3
// entries; interactive list sections at 10 rows with bounded row text.
const (
	MaxButtons        = 3
	MaxListRows       = 10
	MaxRowTitleLen    = 24
	MaxRowDescLen     = 72
	MaxButtonTitleLen = 20
)

// --- Inbound webhook envelope ---

// WebhookPayload is the top-level webhook envelope.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one WhatsApp business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one field update within an entry.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries the messages and contact info of a change.
type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         ChangeMetadata   `json:"metadata"`
	Contacts         []Contact        `json:"contacts,omitempty"`
	Messages         []InboundMessage `json:"messages,omitempty"`
}

// ChangeMetadata identifies the receiving phone number.
type ChangeMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender's contact record.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// InboundMessage is one message object inside a webhook change.
type InboundMessage struct {
	From        string          `json:"from"`
	ID          string          `json:"id"`
	Timestamp   string          `json:"timestamp"`
	Type        string          `json:"type"`
	Text        *TextBody       `json:"text,omitempty"`
	Interactive *InteractiveIn  `json:"interactive,omitempty"`
	Image       *MediaReference `json:"image,omitempty"`
	Audio       *MediaReference `json:"audio,omitempty"`
	Video       *MediaReference `json:"video,omitempty"`
	Document    *MediaReference `json:"document,omitempty"`
	Location    *LocationIn     `json:"location,omitempty"`
}

// TextBody is the payload of a text message.
type TextBody struct {
	Body string `json:"body"`
}

// InteractiveIn is an interactive reply; the selected option's id becomes
// the canonical message text downstream.
type InteractiveIn struct {
	Type        string       `json:"type"`
	ButtonReply *OptionReply `json:"button_reply,omitempty"`
	ListReply   *OptionReply `json:"list_reply,omitempty"`
}

// OptionReply identifies the selected button or list row.
type OptionReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MediaReference points at uploaded media. Caption may carry text.
type MediaReference struct {
	ID      string `json:"id,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// LocationIn is a shared location.
type LocationIn struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// --- Outbound message envelope ---

// OutboundPayload is the Graph API send envelope. Exactly one of the
// type-specific fields matching Type is set.
type OutboundPayload struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type,omitempty"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *TextPayload     `json:"text,omitempty"`
	Image            *MediaPayload    `json:"image,omitempty"`
	Audio            *MediaPayload    `json:"audio,omitempty"`
	Video            *MediaPayload    `json:"video,omitempty"`
	Document         *MediaPayload    `json:"document,omitempty"`
	Location         *LocationOut     `json:"location,omitempty"`
	Interactive      *InteractiveOut  `json:"interactive,omitempty"`
	Template         *TemplatePayload `json:"template,omitempty"`
}

// Outbound message types.
const (
	TypeText        = "text"
	TypeImage       = "image"
	TypeAudio       = "audio"
	TypeVideo       = "video"
	TypeDocument    = "document"
	TypeLocation    = "location"
	TypeInteractive = "interactive"
	TypeTemplate    = "template"
)

// TextPayload is an outbound text body.
type TextPayload struct {
	Body string `json:"body"`
}

// MediaPayload is an outbound media reference by link. Filename only
// applies to documents.
type MediaPayload struct {
	Link     string `json:"link"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// LocationOut is an outbound shared location.
type LocationOut struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// TemplatePayload is a pre-approved message template, the only outbound
// form the channel accepts outside the 24-hour customer service window.
type TemplatePayload struct {
	Name       string              `json:"name"`
	Language   TemplateLanguage    `json:"language"`
	Components []TemplateComponent `json:"components,omitempty"`
}

// TemplateLanguage selects the template translation.
type TemplateLanguage struct {
	Code string `json:"code"`
}

// TemplateComponent fills one template slot.
type TemplateComponent struct {
	Type       string              `json:"type"`
	Parameters []TemplateParameter `json:"parameters,omitempty"`
}

// TemplateParameter is one substituted value.
type TemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// InteractiveOut is an outbound interactive message: "button" or "list".
type InteractiveOut struct {
	Type   string             `json:"type"`
	Header *InteractiveHeader `json:"header,omitempty"`
	Body   InteractiveBody    `json:"body"`
	Footer *InteractiveBody   `json:"footer,omitempty"`
	Action InteractiveAction  `json:"action"`
}

// InteractiveHeader is an optional header line.
type InteractiveHeader struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// InteractiveBody wraps interactive body or footer text.
type InteractiveBody struct {
	Text string `json:"text"`
}

// InteractiveAction holds buttons (button type) or sections plus the list
// opener label (list type).
type InteractiveAction struct {
	Buttons  []Button      `json:"buttons,omitempty"`
	Button   string        `json:"button,omitempty"`
	Sections []ListSection `json:"sections,omitempty"`
}

// Button is one reply button.
type Button struct {
	Type  string      `json:"type"`
	Reply OptionReply `json:"reply"`
}

// ListSection groups list rows.
type ListSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []ListRow `json:"rows"`
}

// ListRow is one interactive list entry.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// NewText builds a plain text payload for to.
func NewText(to, body string) OutboundPayload {
	return OutboundPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             TypeText,
		Text:             &TextPayload{Body: body},
	}
}

// NewReplyButton builds one reply button with the title truncated to the
// channel limit.
func NewReplyButton(id, title string) Button {
	return Button{Type: "reply", Reply: OptionReply{ID: id, Title: Truncate(title, MaxButtonTitleLen)}}
}

// Truncate shortens s to at most limit characters, rune-safe.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
