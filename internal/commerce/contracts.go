package commerce

import "context"

// Catalog looks up and searches products.
type Catalog interface {
	Search(ctx context.Context, q SearchQuery) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
}

// CreateOrderInput is the input to Orders.Create.
type CreateOrderInput struct {
	CustomerID    string
	SellerID      string
	Items         []OrderItem
	Address       string
	PaymentMethod string
}

// Orders creates and tracks customer orders.
type Orders interface {
	Create(ctx context.Context, in CreateOrderInput) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// Payments lists payment methods and initiates transactions.
type Payments interface {
	ListMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
	Initiate(ctx context.Context, orderID, method string) (PaymentTransaction, error)
}

// Support opens customer-support tickets.
type Support interface {
	CreateTicket(ctx context.Context, customerID, issue, priority string) (Ticket, error)
}
