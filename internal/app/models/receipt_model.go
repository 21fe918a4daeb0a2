package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReceiptStatus string

const (
	ReceiptStatusProcessing ReceiptStatus = "processing"
	ReceiptStatusDelivered  ReceiptStatus = "delivered"
	ReceiptStatusCompleted  ReceiptStatus = "completed"
)

// PaymentRail labels how a receipt was paid.
type PaymentRail string

const (
	PaymentRailWallet PaymentRail = "wallet"
	PaymentRailPaypal PaymentRail = "paypal"
	PaymentRailNets   PaymentRail = "nets"
)

// Receipt is the header of a materialized purchase. The refund marker is set at most once.
type Receipt struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Subtotal         decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountAmount   decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	DeliveryFee      decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"delivery_fee"`
	FinalTotal       decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"final_total"`
	PaymentMethod    PaymentRail       `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentReference *string           `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`
	Status           ReceiptStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	DeliveredAt      *time.Time        `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	RefundedAmount   *decimal.Decimal  `gorm:"type:decimal(12,2)" json:"refunded_amount,omitempty"`
	RefundedAt       *time.Time        `json:"refunded_at,omitempty"`
	RefundedBy       *uuid.UUID        `gorm:"type:uuid" json:"refunded_by,omitempty"`
	Items            []ReceiptItem     `gorm:"foreignKey:ReceiptID" json:"items,omitempty"`
	Discounts        []ReceiptDiscount `gorm:"foreignKey:ReceiptID" json:"discounts,omitempty"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Receipt) IsRefunded() bool {
	return r.RefundedAt != nil
}

type ReceiptItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ReceiptID uuid.UUID       `gorm:"type:uuid;not null;index" json:"receipt_id"`
	Position  int             `gorm:"not null" json:"position"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Name      string          `gorm:"type:varchar(255)" json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
}

type ReceiptDiscount struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ReceiptID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"receipt_id"`
	VoucherID      uint            `gorm:"not null" json:"voucher_id"`
	Code           string          `gorm:"type:varchar(50);not null" json:"code"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	AutoApplied    bool            `gorm:"not null;default:false" json:"auto_applied"`
}

// OrderLine is the per-product fulfilment row written alongside the receipt.
type OrderLine struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	ReceiptID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"receipt_id"`
	ProductID     uint            `gorm:"not null;index" json:"product_id"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	PaymentMethod PaymentRail     `gorm:"type:varchar(20);not null" json:"payment_method"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type RefundRequestStatus string

const (
	RefundRequestPending  RefundRequestStatus = "PENDING"
	RefundRequestApproved RefundRequestStatus = "APPROVED"
	RefundRequestRejected RefundRequestStatus = "REJECTED"
)

type RefundRequest struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	ReceiptID uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex" json:"receipt_id"`
	UserID    uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount    decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reason    string              `gorm:"type:text;not null" json:"reason"`
	Status    RefundRequestStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	AdminNote *string             `gorm:"type:text" json:"admin_note,omitempty"`
	DecidedBy *uuid.UUID          `gorm:"type:uuid" json:"decided_by,omitempty"`
	DecidedAt *time.Time          `json:"decided_at,omitempty"`
	CreatedAt time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type RefundRequestCreateRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

type RefundDecisionRequest struct {
	Note *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}
