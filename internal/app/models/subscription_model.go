package models

import (
	"time"

	"github.com/google/uuid"
)

type Subscription struct {
	UserID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	IsActive          bool       `gorm:"not null;default:false" json:"is_active"`
	FirstDeliveryUsed bool       `gorm:"not null;default:false" json:"first_delivery_used"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubscriptionStatus is what pricing needs to know about a user's plan.
type SubscriptionStatus struct {
	Active            bool       `json:"active"`
	FirstDeliveryUsed bool       `json:"first_delivery_used"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

type LoyaltyAccount struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Points         int64     `gorm:"not null;default:0" json:"points"`
	LifetimeEarned int64     `gorm:"not null;default:0" json:"lifetime_earned"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type LoyaltyLedgerEntry struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Points      int64      `gorm:"not null" json:"points"`
	PointsAfter int64      `gorm:"not null" json:"points_after"`
	ReceiptID   *uuid.UUID `gorm:"type:uuid" json:"receipt_id,omitempty"`
	VoucherID   *uint      `json:"voucher_id,omitempty"`
	Note        string     `gorm:"type:text" json:"note"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
