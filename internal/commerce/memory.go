package commerce

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrNotFound marks lookups for records that do not exist.
var ErrNotFound = errors.New("commerce: not found")

// MemoryBackend implements all four collaborator contracts in-process,
// backed by a catalog file. It serves single-instance deployments and
// local development; production deployments swap in real services per
// interface. Views are exposed per contract because Catalog and Orders
// both name a Get operation.
type MemoryBackend struct {
	mu       sync.Mutex
	products []Product
	orders   map[string]Order
	tickets  map[string]Ticket
	methods  []PaymentMethod
	now      func() time.Time
}

// catalogFile is the YAML shape of a seeded catalog.
type catalogFile struct {
	Products []seedProduct `yaml:"products"`
	Methods  []seedMethod  `yaml:"payment_methods"`
}

type seedProduct struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	PriceCents  int64  `yaml:"price_cents"`
	Currency    string `yaml:"currency"`
	ImageURL    string `yaml:"image_url"`
	InStock     bool   `yaml:"in_stock"`
}

type seedMethod struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// defaultMethods is used when the catalog file lists none.
var defaultMethods = []PaymentMethod{
	{ID: "orange-money", Name: "Orange Money", Kind: KindMobileMoney},
	{ID: "wave", Name: "Wave", Kind: KindDigitalWallet},
	{ID: "card", Name: "Carte bancaire", Kind: KindCard},
	{ID: "cash", Name: "Paiement à la livraison", Kind: KindCashOnDeliver},
}

// NewMemoryBackend builds an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		orders:  make(map[string]Order),
		tickets: make(map[string]Ticket),
		methods: defaultMethods,
		now:     time.Now,
	}
}

// LoadMemoryBackend builds a backend seeded from a YAML catalog file.
func LoadMemoryBackend(path string) (*MemoryBackend, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("commerce: reading catalog %s: %w", path, err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("commerce: parsing catalog %s: %w", path, err)
	}

	b := NewMemoryBackend()
	for _, sp := range cf.Products {
		b.products = append(b.products, Product{
			ID:          sp.ID,
			Name:        sp.Name,
			Description: sp.Description,
			Category:    sp.Category,
			PriceCents:  sp.PriceCents,
			Currency:    sp.Currency,
			ImageURL:    sp.ImageURL,
			InStock:     sp.InStock,
		})
	}
	if len(cf.Methods) > 0 {
		b.methods = nil
		for _, sm := range cf.Methods {
			b.methods = append(b.methods, PaymentMethod{
				ID:   sm.ID,
				Name: sm.Name,
				Kind: PaymentMethodKind(sm.Kind),
			})
		}
	}
	return b, nil
}

// Catalog returns the Catalog view of the backend.
func (b *MemoryBackend) Catalog() Catalog { return catalogView{b} }

// Orders returns the Orders view of the backend.
func (b *MemoryBackend) Orders() Orders { return ordersView{b} }

// Payments returns the Payments view of the backend.
func (b *MemoryBackend) Payments() Payments { return paymentsView{b} }

// Support returns the Support view of the backend.
func (b *MemoryBackend) Support() Support { return supportView{b} }

var (
	_ Catalog  = catalogView{}
	_ Orders   = ordersView{}
	_ Payments = paymentsView{}
	_ Support  = supportView{}
)

type catalogView struct{ b *MemoryBackend }

// Search filters the catalog by term, category and price range.
func (v catalogView) Search(_ context.Context, q SearchQuery) ([]Product, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	var out []Product
	for _, p := range v.b.products {
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if q.Term != "" && !matches(p, q.Term) {
			continue
		}
		if q.Price != nil {
			if q.Price.MinCents > 0 && p.PriceCents < q.Price.MinCents {
				continue
			}
			if q.Price.MaxCents > 0 && p.PriceCents > q.Price.MaxCents {
				continue
			}
		}
		out = append(out, p)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func matches(p Product, term string) bool {
	t := strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), t) ||
		strings.Contains(strings.ToLower(p.Description), t) ||
		strings.Contains(strings.ToLower(p.Category), t)
}

func (v catalogView) Get(_ context.Context, id string) (Product, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	for _, p := range v.b.products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
}

type ordersView struct{ b *MemoryBackend }

// Create opens a new order, pricing items from the catalog.
func (v ordersView) Create(_ context.Context, in CreateOrderInput) (Order, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	var total int64
	currency := ""
	for i, item := range in.Items {
		for _, p := range v.b.products {
			if p.ID == item.ProductID {
				in.Items[i].PriceCents = p.PriceCents
				total += p.PriceCents * int64(item.Quantity)
				currency = p.Currency
			}
		}
	}

	o := Order{
		ID:            uuid.NewString(),
		CustomerID:    in.CustomerID,
		SellerID:      in.SellerID,
		Items:         in.Items,
		Status:        OrderStatusPending,
		TotalCents:    total,
		Currency:      currency,
		Address:       in.Address,
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     v.b.now().UTC(),
	}
	v.b.orders[o.ID] = o
	return o, nil
}

func (v ordersView) Get(_ context.Context, id string) (Order, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	o, ok := v.b.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return o, nil
}

func (v ordersView) UpdateStatus(_ context.Context, id, status string) error {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	o, ok := v.b.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	o.Status = status
	v.b.orders[id] = o
	return nil
}

type paymentsView struct{ b *MemoryBackend }

func (v paymentsView) ListMethods(context.Context, string) ([]PaymentMethod, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	out := make([]PaymentMethod, len(v.b.methods))
	copy(out, v.b.methods)
	return out, nil
}

func (v paymentsView) Initiate(_ context.Context, orderID, method string) (PaymentTransaction, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	o, ok := v.b.orders[orderID]
	if !ok {
		return PaymentTransaction{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}

	return PaymentTransaction{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Method:      method,
		Status:      "initiated",
		AmountCents: o.TotalCents,
		Currency:    o.Currency,
	}, nil
}

type supportView struct{ b *MemoryBackend }

func (v supportView) CreateTicket(_ context.Context, customerID, issue, priority string) (Ticket, error) {
	v.b.mu.Lock()
	defer v.b.mu.Unlock()

	t := Ticket{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Issue:      issue,
		Priority:   priority,
		Status:     "open",
		CreatedAt:  v.b.now().UTC(),
	}
	v.b.tickets[t.ID] = t
	return t, nil
}
