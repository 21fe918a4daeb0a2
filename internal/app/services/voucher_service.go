package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	templateCodePrefix = "TPL"
	loyaltyCodePrefix  = "VCH"
	couponCodePrefix   = "CPN"
)

// VoucherLedger is the read side of the voucher store used by discount evaluation.
type VoucherLedger interface {
	FindByCodes(ctx context.Context, codes []string) (map[string]models.Voucher, error)
	ListAutoApply(ctx context.Context) ([]models.Voucher, error)
	UsageCounts(ctx context.Context, voucherID uint, userID uuid.UUID) (models.UsageCounts, error)
}

type VoucherService struct {
	db           *gorm.DB
	validator    *infrastructures.Validator
	auditService *AuditService
}

func NewVoucherService(db *gorm.DB, validator *infrastructures.Validator, auditService *AuditService) *VoucherService {
	return &VoucherService{
		db:           db,
		validator:    validator,
		auditService: auditService,
	}
}

// NormalizeCode trims and upper-cases a voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *VoucherService) FindByCodes(ctx context.Context, codes []string) (map[string]models.Voucher, error) {
	found := make(map[string]models.Voucher, len(codes))
	if len(codes) == 0 {
		return found, nil
	}

	var vouchers []models.Voucher
	if err := s.db.WithContext(ctx).Where("code IN ?", codes).Find(&vouchers).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to look up vouchers")
	}
	for _, voucher := range vouchers {
		found[voucher.Code] = voucher
	}

	return found, nil
}

func (s *VoucherService) ListAutoApply(ctx context.Context) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := s.db.WithContext(ctx).
		Where("auto_apply = ? AND is_active = ?", true, true).
		Order("created_at DESC").
		Find(&vouchers).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to list auto-apply vouchers")
	}

	return vouchers, nil
}

func (s *VoucherService) UsageCounts(ctx context.Context, voucherID uint, userID uuid.UUID) (models.UsageCounts, error) {
	return s.UsageCountsTx(s.db.WithContext(ctx), voucherID, userID)
}

// UsageCountsTx counts redemptions through tx so a locked voucher row can be recounted.
func (s *VoucherService) UsageCountsTx(tx *gorm.DB, voucherID uint, userID uuid.UUID) (models.UsageCounts, error) {
	var counts models.UsageCounts
	if err := tx.Model(&models.VoucherRedemption{}).
		Where("voucher_id = ?", voucherID).
		Count(&counts.Total).Error; err != nil {
		return counts, errors.NewInternalServerError(err, "Failed to count voucher usage")
	}
	if err := tx.Model(&models.VoucherRedemption{}).
		Where("voucher_id = ? AND user_id = ?", voucherID, userID).
		Count(&counts.User).Error; err != nil {
		return counts, errors.NewInternalServerError(err, "Failed to count voucher usage")
	}

	return counts, nil
}

// LockVoucherTx loads a voucher with a row lock held until tx ends.
func (s *VoucherService) LockVoucherTx(tx *gorm.DB, voucherID uint) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := pkg.ForUpdate(tx).Where("id = ?", voucherID).First(&voucher).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Voucher not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to lock voucher")
	}

	return &voucher, nil
}

func (s *VoucherService) CreateTemplate(req *models.VoucherTemplateCreateRequest, createdBy *uuid.UUID) (*models.Voucher, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := validateDiscountTerms(req.DiscountType, req.DiscountValue, req.MaxDiscount, req.MinSpend); err != nil {
		return nil, err
	}

	code := NormalizeCode(req.Code)
	if code == "" {
		generated, err := s.generateCode(s.db, templateCodePrefix)
		if err != nil {
			return nil, err
		}
		code = generated
	} else if s.codeExists(s.db, code) {
		return nil, errors.NewBadRequestError("Voucher code already exists")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	voucher := &models.Voucher{
		Code:            code,
		IsTemplate:      true,
		DiscountType:    req.DiscountType,
		DiscountValue:   pkg.RoundMoney(req.DiscountValue),
		MaxDiscount:     roundOptional(req.MaxDiscount),
		MinSpend:        pkg.RoundMoney(req.MinSpend),
		StartsAt:        req.StartsAt,
		ExpiresAt:       req.ExpiresAt,
		TotalUsageLimit: req.TotalUsageLimit,
		PerUserLimit:    req.PerUserLimit,
		Stackable:       req.Stackable,
		AutoApply:       req.AutoApply,
		IsActive:        isActive,
		Description:     req.Description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(voucher).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create voucher")
		}
		// gorm skips zero values that have a column default
		if !isActive {
			if err := tx.Model(voucher).Update("is_active", false).Error; err != nil {
				return errors.NewInternalServerError(err, "Failed to create voucher")
			}
			voucher.IsActive = false
		}
		return s.auditService.LogAuditTx(tx, "vouchers", strconv.FormatUint(uint64(voucher.ID), 10), models.AuditActionCreate, nil, voucher, createdBy)
	})
	if err != nil {
		return nil, err
	}

	return voucher, nil
}

func (s *VoucherService) GetVoucher(voucherId string) (*models.Voucher, error) {
	id, err := strconv.ParseUint(voucherId, 10, 64)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid voucher ID format")
	}

	return s.getVoucherTx(s.db, uint(id))
}

func (s *VoucherService) getVoucherTx(tx *gorm.DB, id uint) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := tx.Where("id = ?", id).First(&voucher).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Voucher not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get voucher")
	}

	return &voucher, nil
}

// GetTemplateTx loads an active template, the source for issued instances.
func (s *VoucherService) GetTemplateTx(tx *gorm.DB, id uint) (*models.Voucher, error) {
	voucher, err := s.getVoucherTx(tx, id)
	if err != nil {
		return nil, err
	}
	if !voucher.IsTemplate {
		return nil, errors.NewNotFoundError("Voucher template not found")
	}
	if !voucher.IsActive {
		return nil, errors.NewBadRequestError("Voucher template is inactive")
	}

	return voucher, nil
}

func (s *VoucherService) GetVoucherByCode(code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := s.db.Where("code = ?", NormalizeCode(code)).First(&voucher).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Voucher not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get voucher")
	}

	return &voucher, nil
}

func (s *VoucherService) ListTemplates(pagination *models.PaginationRequest, active *bool) (*models.Pagination[[]models.Voucher], error) {
	pagination.Normalize()

	query := s.db.Model(&models.Voucher{}).Where("is_template = ?", true)
	if active != nil {
		query = query.Where("is_active = ?", *active)
	}
	query = query.Session(&gorm.Session{})

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to count vouchers")
	}

	var vouchers []models.Voucher
	err := query.Order("created_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset()).
		Find(&vouchers).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get vouchers")
	}

	return models.NewPagination(pagination, totalItems, vouchers), nil
}

// ListUserVouchers returns the active instances issued to a user.
func (s *VoucherService) ListUserVouchers(userID uuid.UUID) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := s.db.Where("user_id = ? AND is_template = ? AND is_active = ?", userID, false, true).
		Order("created_at DESC").
		Find(&vouchers).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get vouchers")
	}

	return vouchers, nil
}

func (s *VoucherService) UpdateTemplate(voucherId string, req *models.VoucherTemplateUpdateRequest, changedBy *uuid.UUID) (*models.Voucher, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	voucher, err := s.GetVoucher(voucherId)
	if err != nil {
		return nil, err
	}
	if !voucher.IsTemplate {
		return nil, errors.NewBadRequestError("Issued vouchers cannot be edited")
	}
	before := *voucher

	if req.DiscountType != nil {
		voucher.DiscountType = *req.DiscountType
	}
	if req.DiscountValue != nil {
		voucher.DiscountValue = pkg.RoundMoney(*req.DiscountValue)
	}
	if req.MaxDiscount != nil {
		voucher.MaxDiscount = roundOptional(req.MaxDiscount)
	}
	if req.MinSpend != nil {
		voucher.MinSpend = pkg.RoundMoney(*req.MinSpend)
	}
	if req.StartsAt != nil {
		voucher.StartsAt = req.StartsAt
	}
	if req.ExpiresAt != nil {
		voucher.ExpiresAt = req.ExpiresAt
	}
	if req.TotalUsageLimit != nil {
		voucher.TotalUsageLimit = req.TotalUsageLimit
	}
	if req.PerUserLimit != nil {
		voucher.PerUserLimit = req.PerUserLimit
	}
	if req.Stackable != nil {
		voucher.Stackable = *req.Stackable
	}
	if req.AutoApply != nil {
		voucher.AutoApply = *req.AutoApply
	}
	if req.Description != nil {
		voucher.Description = req.Description
	}

	if err := validateDiscountTerms(voucher.DiscountType, voucher.DiscountValue, voucher.MaxDiscount, voucher.MinSpend); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(voucher).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update voucher")
		}
		return s.auditService.LogAuditTx(tx, "vouchers", voucherId, models.AuditActionUpdate, before, voucher, changedBy)
	})
	if err != nil {
		return nil, err
	}

	return voucher, nil
}

// SetTemplateActive toggles a template. Deactivation also deactivates every instance issued from it.
func (s *VoucherService) SetTemplateActive(voucherId string, active bool, changedBy *uuid.UUID) (*models.Voucher, error) {
	voucher, err := s.GetVoucher(voucherId)
	if err != nil {
		return nil, err
	}
	if !voucher.IsTemplate {
		return nil, errors.NewBadRequestError("Only templates can be toggled")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Voucher{}).Where("id = ?", voucher.ID).Update("is_active", active).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update voucher")
		}
		if !active {
			if err := tx.Model(&models.Voucher{}).
				Where("template_id = ? AND is_active = ?", voucher.ID, true).
				Update("is_active", false).Error; err != nil {
				return errors.NewInternalServerError(err, "Failed to deactivate issued vouchers")
			}
		}
		return s.auditService.LogAuditTx(tx, "vouchers", voucherId, models.AuditActionStatusChange,
			map[string]bool{"is_active": voucher.IsActive}, map[string]bool{"is_active": active}, changedBy)
	})
	if err != nil {
		return nil, err
	}

	voucher.IsActive = active
	return voucher, nil
}

func (s *VoucherService) DeleteTemplate(voucherId string, changedBy *uuid.UUID) error {
	voucher, err := s.GetVoucher(voucherId)
	if err != nil {
		return err
	}
	if !voucher.IsTemplate {
		return errors.NewBadRequestError("Only templates can be deleted")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(voucher).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to delete voucher")
		}
		return s.auditService.LogAuditTx(tx, "vouchers", voucherId, models.AuditActionDelete, voucher, nil, changedBy)
	})
}

// IssueFromTemplateTx creates a single-use instance of template owned by userID.
func (s *VoucherService) IssueFromTemplateTx(tx *gorm.DB, template *models.Voucher, userID uuid.UUID, prefix string) (*models.Voucher, error) {
	if !template.IsTemplate {
		return nil, errors.NewBadRequestError("Voucher is not a template")
	}

	code, err := s.generateCode(tx, prefix)
	if err != nil {
		return nil, err
	}

	one := 1
	templateID := template.ID
	instance := &models.Voucher{
		Code:            code,
		IsTemplate:      false,
		TemplateID:      &templateID,
		DiscountType:    template.DiscountType,
		DiscountValue:   template.DiscountValue,
		MaxDiscount:     template.MaxDiscount,
		MinSpend:        template.MinSpend,
		StartsAt:        template.StartsAt,
		ExpiresAt:       template.ExpiresAt,
		TotalUsageLimit: &one,
		PerUserLimit:    &one,
		Stackable:       template.Stackable,
		AutoApply:       template.AutoApply,
		IsActive:        true,
		UserID:          &userID,
		Description:     template.Description,
	}

	if err := tx.Create(instance).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to issue voucher")
	}

	return instance, nil
}

// HasIssuedTx reports whether userID already holds an instance of templateID.
func (s *VoucherService) HasIssuedTx(tx *gorm.DB, templateID uint, userID uuid.UUID) (bool, error) {
	var count int64
	if err := tx.Model(&models.Voucher{}).
		Where("template_id = ? AND user_id = ?", templateID, userID).
		Count(&count).Error; err != nil {
		return false, errors.NewInternalServerError(err, "Failed to check issued vouchers")
	}

	return count > 0, nil
}

func (s *VoucherService) codeExists(tx *gorm.DB, code string) bool {
	var count int64
	tx.Unscoped().Model(&models.Voucher{}).Where("code = ?", code).Count(&count)
	return count > 0
}

func (s *VoucherService) generateCode(tx *gorm.DB, prefix string) (string, error) {
	for i := 0; i < 5; i++ {
		code := pkg.VoucherCode(prefix)
		if !s.codeExists(tx, code) {
			return code, nil
		}
	}
	return "", errors.NewInternalServerError(nil, "Failed to generate a unique voucher code")
}

func validateDiscountTerms(discountType models.DiscountType, value decimal.Decimal, maxDiscount *decimal.Decimal, minSpend decimal.Decimal) error {
	if !value.IsPositive() {
		return errors.NewBadRequestError("Discount value must be greater than 0")
	}
	if discountType == models.DiscountTypePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return errors.NewBadRequestError("Percentage discount cannot exceed 100")
	}
	if maxDiscount != nil && !maxDiscount.IsPositive() {
		return errors.NewBadRequestError("Max discount must be greater than 0")
	}
	if minSpend.IsNegative() {
		return errors.NewBadRequestError("Minimum spend cannot be negative")
	}
	return nil
}

func roundOptional(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	rounded := pkg.RoundMoney(*d)
	return &rounded
}
