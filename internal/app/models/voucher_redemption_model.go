package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherRedemption links a voucher to the receipt it discounted. Rows are never updated.
type VoucherRedemption struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	VoucherID      uint            `gorm:"not null;uniqueIndex:idx_redemption_voucher_receipt;index" json:"voucher_id"`
	ReceiptID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_redemption_voucher_receipt" json:"receipt_id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// UsageCounts holds the global and per-user redemption counts of one voucher.
type UsageCounts struct {
	Total int64
	User  int64
}
