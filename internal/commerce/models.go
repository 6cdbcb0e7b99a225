// Package commerce defines the business-collaborator contracts the
// dispatcher calls and the domain records they exchange. Persistence and
// CRUD for these records live outside this service; only the call
// contracts are owned here.
package commerce

import "time"

// Product is a catalog item. Amounts are integer cents to avoid float
// rounding in prices.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	ImageURL    string `json:"image_url,omitempty"`
	InStock     bool   `json:"in_stock"`
}

// PriceRange bounds a catalog search by price.
type PriceRange struct {
	MinCents int64 `json:"min_cents"`
	MaxCents int64 `json:"max_cents"`
}

// SearchQuery is the input to Catalog.Search. Zero-valued fields are
// unconstrained.
type SearchQuery struct {
	Term     string
	Category string
	Price    *PriceRange
	Limit    int
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// Order statuses used across the conversation flow.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order is a customer order.
type Order struct {
	ID            string      `json:"id"`
	CustomerID    string      `json:"customer_id"`
	SellerID      string      `json:"seller_id"`
	Status        string      `json:"status"`
	Items         []OrderItem `json:"items"`
	TotalCents    int64       `json:"total_cents"`
	Currency      string      `json:"currency"`
	Address       string      `json:"address,omitempty"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// PaymentMethodKind partitions payment methods for rendering: mobile
// money and digital wallets are the primary group on this channel.
type PaymentMethodKind string

// Payment method kinds.
const (
	KindMobileMoney   PaymentMethodKind = "mobile_money"
	KindDigitalWallet PaymentMethodKind = "digital_wallet"
	KindCard          PaymentMethodKind = "card"
	KindBankTransfer  PaymentMethodKind = "bank_transfer"
	KindCashOnDeliver PaymentMethodKind = "cash_on_delivery"
)

// IsPrimary reports whether the kind belongs to the primary render group.
func (k PaymentMethodKind) IsPrimary() bool {
	return k == KindMobileMoney || k == KindDigitalWallet
}

// PaymentMethod is one way a customer can pay.
type PaymentMethod struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Kind PaymentMethodKind `json:"kind"`
}

// PaymentTransaction is an initiated payment.
type PaymentTransaction struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Method      string `json:"method"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference,omitempty"`
}

// Ticket is a customer-support ticket.
type Ticket struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Issue      string    `json:"issue"`
	Priority   string    `json:"priority"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
