package services

import (
	"context"

	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"gorm.io/gorm"
)

// PaymentReferenceService records the single resolution of every external payment reference.
type PaymentReferenceService struct {
	db *gorm.DB
}

func NewPaymentReferenceService(db *gorm.DB) *PaymentReferenceService {
	return &PaymentReferenceService{db: db}
}

// Find returns nil when the reference has not been resolved yet.
func (s *PaymentReferenceService) Find(ctx context.Context, reference string) (*models.ProcessedPaymentReference, error) {
	return s.FindTx(s.db.WithContext(ctx), reference)
}

func (s *PaymentReferenceService) FindTx(tx *gorm.DB, reference string) (*models.ProcessedPaymentReference, error) {
	var processed models.ProcessedPaymentReference
	err := tx.Where("reference = ?", reference).First(&processed).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.NewInternalServerError(err, "Failed to get payment reference")
	}
	return &processed, nil
}

// ClaimTx inserts claim unless the reference is already resolved. When another
// writer got there first it returns false with the stored row.
func (s *PaymentReferenceService) ClaimTx(tx *gorm.DB, claim *models.ProcessedPaymentReference) (bool, *models.ProcessedPaymentReference, error) {
	if claim.Reference == "" {
		return false, nil, errors.NewBadRequestError("Payment reference is required")
	}
	claim.Amount = pkg.RoundMoney(claim.Amount)

	claimed, err := pkg.InsertIgnore(tx, claim)
	if err != nil {
		return false, nil, errors.NewInternalServerError(err, "Failed to claim payment reference")
	}
	if claimed {
		return true, claim, nil
	}

	existing, err := s.FindTx(tx, claim.Reference)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		return false, nil, errors.NewInternalServerError(nil, "Payment reference claim vanished")
	}
	return false, existing, nil
}
