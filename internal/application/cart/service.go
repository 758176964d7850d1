package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/shoplite/shoplite/internal/domain"
	"github.com/shoplite/shoplite/internal/pkg/validate"
)

// Cart is the assembled view of a session's cart.
type Cart struct {
	Items      []domain.CartItem `json:"items"`
	TotalCents int64             `json:"total_cents"`
}

type Service interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	// SetItem puts a product line in the cart with the given quantity,
	// snapshotting the product's current name and price. Calling it again
	// for the same product overwrites the quantity.
	SetItem(ctx context.Context, sessionID, productID string, req domain.SetCartItemRequest) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, sessionID, productID string) error
	Clear(ctx context.Context, sessionID string) error
}

type cartStore interface {
	SetItem(ctx context.Context, item *domain.CartItem) error
	List(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	Delete(ctx context.Context, sessionID, productID string) error
	Clear(ctx context.Context, sessionID string) error
}

type productStore interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
}

type service struct {
	cartRepo    cartStore
	productRepo productStore
}

func NewService(cartRepo cartStore, productRepo productStore) Service {
	return &service{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	items, err := s.cartRepo.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c := &Cart{Items: items}
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	for i := range items {
		c.TotalCents += items[i].PriceCents * int64(items[i].Quantity)
	}
	return c, nil
}

func (s *service) SetItem(ctx context.Context, sessionID, productID string, req domain.SetCartItemRequest) (*domain.CartItem, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	p, err := s.productRepo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Enable {
		return nil, fmt.Errorf("product not available: %w", domain.ErrNotFound)
	}
	now := time.Now().UTC()
	item := &domain.CartItem{
		SessionID:  sessionID,
		ProductID:  p.ProductID,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Quantity:   req.Quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.cartRepo.SetItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID, productID string) error {
	return s.cartRepo.Delete(ctx, sessionID, productID)
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	return s.cartRepo.Clear(ctx, sessionID)
}
