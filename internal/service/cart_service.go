package service

import (
	"context"
	"time"

	"retail-ops/internal/cart"
	"retail-ops/internal/domain"
	"retail-ops/internal/pricing"
	"retail-ops/internal/repository"

	"github.com/google/uuid"
)

// CartService manages a customer's advisory cart. Display prices are taken
// from the catalog when a line is added and are re-checked at checkout.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error)
	ChangeQuantity(ctx context.Context, userID, productID uuid.UUID, delta int) (*cart.Cart, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	policy      pricing.Policy
	now         func() time.Time
}

// NewCartService creates a new instance of CartService
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, policy pricing.Policy) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		policy:      policy,
		now:         time.Now,
	}
}

func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return s.cartRepo.Get(ctx, userID)
}

func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	line := cart.Line{
		ProductID:       product.ID,
		ProductName:     product.Name,
		Quantity:        quantity,
		Price:           product.SellingPrice,
		DiscountPercent: s.policy.ActiveDiscount(product, s.now()),
	}
	return s.cartRepo.Update(ctx, userID, func(c *cart.Cart) error {
		return c.Add(line)
	})
}

func (s *cartService) ChangeQuantity(ctx context.Context, userID, productID uuid.UUID, delta int) (*cart.Cart, error) {
	return s.cartRepo.Update(ctx, userID, func(c *cart.Cart) error {
		return c.SetQuantity(productID, delta)
	})
}

// SetQuantity sets an absolute quantity; zero removes the line.
func (s *cartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Cart, error) {
	return s.cartRepo.Update(ctx, userID, func(c *cart.Cart) error {
		return c.UpdateQuantity(productID, quantity)
	})
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cart.Cart, error) {
	return s.cartRepo.Update(ctx, userID, func(c *cart.Cart) error {
		if !c.Remove(productID) {
			return &domain.NotFoundError{Entity: "cart line", ID: productID.String()}
		}
		return nil
	})
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.cartRepo.Delete(ctx, userID)
}
