package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"gorm.io/gorm"
)

type CatalogService struct {
	db        *gorm.DB
	validator *infrastructures.Validator
}

func NewCatalogService(db *gorm.DB, validator *infrastructures.Validator) *CatalogService {
	return &CatalogService{
		db:        db,
		validator: validator,
	}
}

func (s *CatalogService) CreateProduct(req *models.ProductCreateRequest) (*models.Product, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	price := pkg.RoundMoney(req.Price)
	if !price.IsPositive() {
		return nil, errors.NewBadRequestError("price must be greater than 0")
	}

	product := &models.Product{
		Name:  req.Name,
		Price: price,
		Stock: req.Stock,
	}
	if err := s.db.Create(product).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to create product")
	}

	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productId string) (*models.Product, error) {
	id, err := strconv.ParseUint(productId, 10, 64)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid product ID format")
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Product not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get product")
	}

	return &product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get products")
	}
	return products, nil
}

// DecrementStockTx removes qty from stock only if enough is left, in a single conditional update.
func (s *CatalogService) DecrementStockTx(tx *gorm.DB, productID uint, qty int) error {
	if qty <= 0 {
		return errors.NewBadRequestError("Quantity must be greater than 0")
	}

	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return errors.NewInternalServerError(result.Error, "Failed to update stock")
	}
	if result.RowsAffected == 0 {
		return errors.NewConflictError(errors.CodeInsufficientStock, fmt.Sprintf("Insufficient stock for product %d", productID))
	}

	return nil
}
