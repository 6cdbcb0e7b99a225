// Package message defines the normalized conversation message model shared
// by the context store, intent resolver, and turn engine. It is the data
// contract between the channel boundary and everything downstream.
package message

import "time"

// Role identifies the author of a conversation message.
type Role string

// Supported roles.
const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

// Metadata carries per-message annotations produced during a turn.
type Metadata struct {
	// IntentType is the resolved intent type for customer messages, or the
	// intent the assistant was responding to.
	IntentType string `json:"intent_type,omitempty"`

	// Parameters are the intent parameters extracted from the message.
	Parameters map[string]string `json:"parameters,omitempty"`

	// ProductIDs lists products referenced by this message.
	ProductIDs []string `json:"product_ids,omitempty"`

	// IsError marks assistant messages produced by a failure fallback.
	IsError bool `json:"is_error,omitempty"`
}

// IsEmpty reports whether the metadata carries no data.
func (m *Metadata) IsEmpty() bool {
	return m == nil || (m.IntentType == "" && len(m.Parameters) == 0 && len(m.ProductIDs) == 0 && !m.IsError)
}

// Message is one entry in a customer's conversation history.
// History ordering follows Timestamp; the durable store assigns a
// monotonic sequence per customer so equal timestamps stay stable.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// NewCustomerMessage creates a customer message stamped with now.
func NewCustomerMessage(content string, now time.Time) Message {
	return Message{Role: RoleCustomer, Content: content, Timestamp: now}
}

// NewAssistantMessage creates an assistant message stamped with now.
func NewAssistantMessage(content string, now time.Time) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: now}
}
