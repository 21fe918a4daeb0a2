package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerEntryType string

const (
	LedgerEntryTopUp        LedgerEntryType = "TOPUP"
	LedgerEntryPurchase     LedgerEntryType = "PURCHASE"
	LedgerEntryRefund       LedgerEntryType = "REFUND"
	LedgerEntrySubscription LedgerEntryType = "SUBSCRIPTION"
)

// WalletAccount holds the running balance. It only changes together with a ledger entry.
type WalletAccount struct {
	UserID    uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type WalletLedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Type          LedgerEntryType `gorm:"type:varchar(20);not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_after"`
	ReferenceType *string         `gorm:"type:varchar(50)" json:"reference_type,omitempty"`
	ReferenceID   *string         `gorm:"type:varchar(100)" json:"reference_id,omitempty"`
	Note          *string         `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

// LedgerMeta classifies a balance movement for the audit trail.
type LedgerMeta struct {
	Type          LedgerEntryType
	ReferenceType string
	ReferenceID   string
	Note          string
}

type WalletBalanceResponse struct {
	UserID  uuid.UUID       `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
