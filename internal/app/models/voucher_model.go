package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePercentage DiscountType = "percentage"
)

// Voucher is either an admin-managed template or an instance issued to one user.
// Templates are never redeemable; instances inherit the template terms with single-use limits.
type Voucher struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Code            string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	IsTemplate      bool             `gorm:"not null;default:false" json:"is_template"`
	TemplateID      *uint            `gorm:"index" json:"template_id,omitempty"`
	DiscountType    DiscountType     `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue   decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"discount_value"`
	MaxDiscount     *decimal.Decimal `gorm:"type:decimal(12,2)" json:"max_discount,omitempty"`
	MinSpend        decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"min_spend"`
	StartsAt        *time.Time       `json:"starts_at,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	TotalUsageLimit *int             `json:"total_usage_limit,omitempty"`
	PerUserLimit    *int             `json:"per_user_limit,omitempty"`
	Stackable       bool             `gorm:"not null;default:false" json:"stackable"`
	AutoApply       bool             `gorm:"not null;default:false;index" json:"auto_apply"`
	IsActive        bool             `gorm:"not null;default:true;index" json:"is_active"`
	UserID          *uuid.UUID       `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Description     *string          `json:"description,omitempty"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

// WithinWindow reports whether now falls inside the optional start/expiry window.
func (v *Voucher) WithinWindow(now time.Time) bool {
	if v.StartsAt != nil && v.StartsAt.After(now) {
		return false
	}
	if v.ExpiresAt != nil && v.ExpiresAt.Before(now) {
		return false
	}
	return true
}

type VoucherTemplateCreateRequest struct {
	Code            string           `json:"code" validate:"omitempty,max=50"`
	DiscountType    DiscountType     `json:"discount_type" validate:"required,oneof=fixed percentage"`
	DiscountValue   decimal.Decimal  `json:"discount_value"`
	MaxDiscount     *decimal.Decimal `json:"max_discount,omitempty"`
	MinSpend        decimal.Decimal  `json:"min_spend"`
	StartsAt        *time.Time       `json:"starts_at,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	TotalUsageLimit *int             `json:"total_usage_limit,omitempty" validate:"omitempty,min=1"`
	PerUserLimit    *int             `json:"per_user_limit,omitempty" validate:"omitempty,min=1"`
	Stackable       bool             `json:"stackable"`
	AutoApply       bool             `json:"auto_apply"`
	IsActive        *bool            `json:"is_active,omitempty"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
}

type VoucherTemplateUpdateRequest struct {
	DiscountType    *DiscountType    `json:"discount_type,omitempty" validate:"omitempty,oneof=fixed percentage"`
	DiscountValue   *decimal.Decimal `json:"discount_value,omitempty"`
	MaxDiscount     *decimal.Decimal `json:"max_discount,omitempty"`
	MinSpend        *decimal.Decimal `json:"min_spend,omitempty"`
	StartsAt        *time.Time       `json:"starts_at,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	TotalUsageLimit *int             `json:"total_usage_limit,omitempty" validate:"omitempty,min=1"`
	PerUserLimit    *int             `json:"per_user_limit,omitempty" validate:"omitempty,min=1"`
	Stackable       *bool            `json:"stackable,omitempty"`
	AutoApply       *bool            `json:"auto_apply,omitempty"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
}

type VoucherActiveRequest struct {
	IsActive bool `json:"is_active"`
}
