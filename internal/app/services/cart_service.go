package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartService struct {
	db        *gorm.DB
	validator *infrastructures.Validator
}

func NewCartService(db *gorm.DB, validator *infrastructures.Validator) *CartService {
	return &CartService{
		db:        db,
		validator: validator,
	}
}

// GetLines returns the user's cart with the current catalog price of each product.
func (s *CartService) GetLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	return s.GetLinesTx(s.db.WithContext(ctx), userID)
}

func (s *CartService) GetLinesTx(tx *gorm.DB, userID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := tx.Table("cart_items").
		Select("cart_items.product_id, products.name, cart_items.quantity, products.price AS unit_price").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get cart")
	}

	return lines, nil
}

// AddItem adds quantity to the product's cart line, creating it when missing.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.CartItemRequest) ([]models.CartLine, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", req.ProductID).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Product not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get product")
	}

	item := &models.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: req.Quantity}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart_items.quantity + ?", req.Quantity)}),
	}).Create(item).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to add cart item")
	}

	return s.GetLines(ctx, userID)
}

// UpdateQuantity sets the quantity of a line; zero removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID uuid.UUID, productID uint, req *models.CartQuantityRequest) ([]models.CartLine, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	result := s.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", req.Quantity)
	if result.Error != nil {
		return nil, errors.NewInternalServerError(result.Error, "Failed to update cart item")
	}
	if result.RowsAffected == 0 {
		return nil, errors.NewNotFoundError("Cart item not found")
	}

	return s.GetLines(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, productID uint) ([]models.CartLine, error) {
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to remove cart item")
	}

	return s.GetLines(ctx, userID)
}

func (s *CartService) ClearTx(tx *gorm.DB, userID uuid.UUID) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to clear cart")
	}
	return nil
}
