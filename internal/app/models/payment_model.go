package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentProvider string

const (
	PaymentProviderPaypal PaymentProvider = "PAYPAL"
	PaymentProviderNets   PaymentProvider = "NETS"
)

type PaymentPurpose string

const (
	PaymentPurposeCheckout    PaymentPurpose = "CHECKOUT"
	PaymentPurposeWalletTopUp PaymentPurpose = "WALLET_TOPUP"
)

// PendingPayment is kept in redis from initiation until the reference resolves or expires.
type PendingPayment struct {
	Reference    string          `json:"reference"`
	Provider     PaymentProvider `json:"provider"`
	Purpose      PaymentPurpose  `json:"purpose"`
	UserID       uuid.UUID       `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	VoucherCodes []string        `json:"voucher_codes,omitempty"`
	Captured     bool            `json:"captured,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PaymentResolution string

const (
	PaymentResolutionConfirmed PaymentResolution = "CONFIRMED"
	PaymentResolutionFailed    PaymentResolution = "FAILED"
	PaymentResolutionTimedOut  PaymentResolution = "TIMED_OUT"
)

// ProcessedPaymentReference is the durable idempotency key of an external payment.
// The first writer wins; the row is never updated afterwards.
type ProcessedPaymentReference struct {
	Reference string            `gorm:"type:varchar(100);primaryKey" json:"reference"`
	Provider  PaymentProvider   `gorm:"type:varchar(20);not null" json:"provider"`
	Purpose   PaymentPurpose    `gorm:"type:varchar(20);not null" json:"purpose"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Status    PaymentResolution `gorm:"type:varchar(20);not null" json:"status"`
	ReceiptID *uuid.UUID        `gorm:"type:uuid" json:"receipt_id,omitempty"`
	Amount    decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Note      *string           `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// PaymentOutcome is what callers see once a reference has been resolved.
type PaymentOutcome struct {
	Reference string            `json:"reference"`
	Status    PaymentResolution `json:"status"`
	Purpose   PaymentPurpose    `json:"purpose"`
	ReceiptID *uuid.UUID        `json:"receipt_id,omitempty"`
	Amount    decimal.Decimal   `json:"amount"`
	Note      *string           `json:"note,omitempty"`
	Replayed  bool              `json:"replayed"`
}

func (r *ProcessedPaymentReference) Outcome(replayed bool) *PaymentOutcome {
	return &PaymentOutcome{
		Reference: r.Reference,
		Status:    r.Status,
		Purpose:   r.Purpose,
		ReceiptID: r.ReceiptID,
		Amount:    r.Amount,
		Note:      r.Note,
		Replayed:  replayed,
	}
}

// PaymentEventType is the kind of progress event sent to a watching client.
type PaymentEventType string

const (
	PaymentEventStatus   PaymentEventType = "status"
	PaymentEventError    PaymentEventType = "error"
	PaymentEventTimeout  PaymentEventType = "timeout"
	PaymentEventResolved PaymentEventType = "resolved"
)

type PaymentEvent struct {
	Type         PaymentEventType `json:"type"`
	Reference    string           `json:"reference"`
	Attempt      int              `json:"attempt"`
	ResponseCode string           `json:"response_code,omitempty"`
	TxnStatus    int              `json:"txn_status,omitempty"`
	Message      string           `json:"message,omitempty"`
	Outcome      *PaymentOutcome  `json:"outcome,omitempty"`
}

// PaypalOrderResponse is returned to the client after an order is created.
type PaypalOrderResponse struct {
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Purpose PaymentPurpose  `json:"purpose"`
}

type NetsChallengeResponse struct {
	Reference string          `json:"reference"`
	QRCode    string          `json:"qr_code"`
	Amount    decimal.Decimal `json:"amount"`
	Purpose   PaymentPurpose  `json:"purpose"`
}

type NetsWebhookRequest struct {
	Reference string `json:"txn_retrieval_ref" validate:"required,max=100"`
}
