package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sdiabate1337/djula-com-sub000/internal/commerce"
	"github.com/Sdiabate1337/djula-com-sub000/internal/intent"
	"github.com/Sdiabate1337/djula-com-sub000/internal/session"
)

// defaultSearchLimit caps catalog searches when the intent carries none.
const defaultSearchLimit = 10

// similarLimit is the fan-out size for similar-product lookups.
const similarLimit = 4

// Config groups the dispatcher's collaborators.
type Config struct {
	Catalog  commerce.Catalog
	Orders   commerce.Orders
	Payments commerce.Payments
	Support  commerce.Support

	// SellerID identifies the shop on whose behalf orders are created.
	SellerID string

	Logger *slog.Logger
}

// Dispatcher maps an Intent to collaborator calls, producing one or more
// tagged Actions. Every branch is independently fault-isolated: a
// collaborator failure appends an Error action and the turn continues.
// Dispatch has side effects (order creation, payment initiation) and is
// not idempotent; callers dedup retried deliveries before dispatching.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cfg: cfg, logger: logger.With("component", "dispatch")}
}

// Dispatch maps it to business operations. The result is never empty.
func (d *Dispatcher) Dispatch(ctx context.Context, it intent.Intent, customerID string, st session.State) []Action {
	var actions []Action

	switch it.Type {
	case intent.TypeCatalogBrowse:
		actions = d.browse(ctx, it)
	case intent.TypeProductQuery:
		actions = d.productQuery(ctx, it)
	case intent.TypeOrderPlacement:
		actions = d.placeOrder(ctx, it, customerID)
	case intent.TypeOrderStatus:
		actions = d.orderStatus(ctx, it, st)
	case intent.TypePayment:
		actions = d.payment(ctx, it, customerID, st)
	case intent.TypeCustomerSupport:
		actions = d.supportTicket(ctx, it, customerID)
	case intent.TypeUnknown:
		actions = d.unknown(ctx, st)
	default:
		actions = d.unknown(ctx, st)
	}

	// A turn never ends with zero actions.
	if len(actions) == 0 {
		actions = append(actions, Action{Type: ActionFallback})
	}
	return actions
}

func (d *Dispatcher) browse(ctx context.Context, it intent.Intent) []Action {
	q := commerce.SearchQuery{
		Term:     it.Param("query"),
		Category: it.Param("category"),
		Limit:    defaultSearchLimit,
	}

	products, err := d.cfg.Catalog.Search(ctx, q)
	if err != nil {
		d.logger.Warn("catalog search failed", "error", err)
		return []Action{errorAction("catalog search", err)}
	}
	if len(products) == 0 {
		return []Action{
			{Type: ActionNoResults},
			{Type: ActionSuggestions, Suggestions: []string{"suggestion_product", "suggestion_support"}},
		}
	}
	return []Action{{Type: ActionShowProducts, Products: products}}
}

func (d *Dispatcher) productQuery(ctx context.Context, it intent.Intent) []Action {
	id := it.Param("productId")
	if id == "" {
		return []Action{{Type: ActionAskClarification}}
	}

	product, err := d.cfg.Catalog.Get(ctx, id)
	if err != nil {
		d.logger.Warn("product lookup failed", "product_id", id, "error", err)
		return []Action{errorAction("product lookup", err)}
	}

	actions := []Action{{Type: ActionShowProduct, Product: &product}}

	// Fan out: also suggest similar products from the same category.
	// A failure here is tolerated silently; the product reply stands alone.
	similar, err := d.cfg.Catalog.Search(ctx, commerce.SearchQuery{
		Category: product.Category,
		Limit:    similarLimit,
	})
	if err != nil {
		d.logger.Debug("similar-product lookup failed", "product_id", id, "error", err)
		return actions
	}
	similar = withoutProduct(similar, product.ID)
	if len(similar) > 0 {
		actions = append(actions, Action{Type: ActionShowSimilar, Products: similar})
	}
	return actions
}

func (d *Dispatcher) placeOrder(ctx context.Context, it intent.Intent, customerID string) []Action {
	productID := it.Param("productId")
	if productID == "" {
		return []Action{{Type: ActionAskClarification}}
	}

	qty := 1
	if q := it.Param("quantity"); q != "" {
		if _, err := fmt.Sscanf(q, "%d", &qty); err != nil || qty < 1 {
			qty = 1
		}
	}

	order, err := d.cfg.Orders.Create(ctx, commerce.CreateOrderInput{
		CustomerID: customerID,
		SellerID:   d.cfg.SellerID,
		Items:      []commerce.OrderItem{{ProductID: productID, Quantity: qty}},
	})
	if err != nil {
		d.logger.Warn("order creation failed", "product_id", productID, "error", err)
		return []Action{errorAction("order creation", err)}
	}

	tag := ActionOrderCreated
	if it.Param("action") == "add_to_cart" {
		tag = ActionCartUpdated
	}
	return []Action{
		{Type: tag, Order: &order},
		{Type: ActionOrderSummary, Order: &order},
	}
}

func (d *Dispatcher) orderStatus(ctx context.Context, it intent.Intent, st session.State) []Action {
	orderID := it.Param("orderId")
	if orderID == "" && st.ActiveOrder != nil {
		orderID = st.ActiveOrder.ID
	}
	if orderID == "" {
		return []Action{{Type: ActionOrderNotFound}}
	}

	if it.Param("action") == "cancel" {
		if err := d.cfg.Orders.UpdateStatus(ctx, orderID, commerce.OrderStatusCancelled); err != nil {
			d.logger.Warn("order cancellation failed", "order_id", orderID, "error", err)
			return []Action{errorAction("order cancellation", err)}
		}
		order, err := d.cfg.Orders.Get(ctx, orderID)
		if err != nil {
			// Cancellation succeeded; report it even without the record.
			return []Action{{Type: ActionOrderCancelled}}
		}
		return []Action{{Type: ActionOrderCancelled, Order: &order}}
	}

	order, err := d.cfg.Orders.Get(ctx, orderID)
	if err != nil {
		d.logger.Warn("order lookup failed", "order_id", orderID, "error", err)
		return []Action{errorAction("order lookup", err)}
	}
	return []Action{{Type: ActionOrderStatus, Order: &order}}
}

func (d *Dispatcher) payment(ctx context.Context, it intent.Intent, customerID string, st session.State) []Action {
	method := it.Param("method")

	// A chosen method with an active order initiates payment directly.
	if method != "" && st.ActiveOrder != nil {
		tx, err := d.cfg.Payments.Initiate(ctx, st.ActiveOrder.ID, method)
		if err != nil {
			d.logger.Warn("payment initiation failed",
				"order_id", st.ActiveOrder.ID, "method", method, "error", err)
			return []Action{errorAction("payment initiation", err)}
		}
		return []Action{{Type: ActionPaymentInitiated, Transaction: &tx}}
	}

	methods, err := d.cfg.Payments.ListMethods(ctx, customerID)
	if err != nil {
		d.logger.Warn("payment method listing failed", "error", err)
		return []Action{errorAction("payment methods", err)}
	}
	return []Action{{Type: ActionShowPaymentMethods, Methods: methods}}
}

func (d *Dispatcher) supportTicket(ctx context.Context, it intent.Intent, customerID string) []Action {
	issue := it.Param("issue")
	if issue == "" {
		issue = it.Param("query")
	}
	priority := it.Param("priority")
	if priority == "" {
		priority = "normal"
	}

	ticket, err := d.cfg.Support.CreateTicket(ctx, customerID, issue, priority)
	if err != nil {
		d.logger.Warn("ticket creation failed", "error", err)
		return []Action{errorAction("support ticket", err), {Type: ActionSupportEscalated}}
	}
	return []Action{{Type: ActionTicketCreated, Ticket: &ticket}}
}

// unknown still yields a non-empty result: suggested next steps, plus a
// few recommendations when the catalog answers in time.
func (d *Dispatcher) unknown(ctx context.Context, st session.State) []Action {
	actions := []Action{{Type: ActionSuggestions, Suggestions: []string{
		"suggestion_product",
		"suggestion_order",
		"suggestion_support",
	}}}

	if st.Phase == session.PhaseNew {
		actions = append([]Action{{Type: ActionGreeting}}, actions...)
	}

	recs, err := d.cfg.Catalog.Search(ctx, commerce.SearchQuery{Limit: 3})
	if err == nil && len(recs) > 0 {
		actions = append(actions, Action{Type: ActionRecommendations, Products: recs})
	}
	return actions
}

func withoutProduct(products []commerce.Product, id string) []commerce.Product {
	out := products[:0]
	for _, p := range products {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
