package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
	AuditActionRefund       AuditAction = "REFUND"
)

// AuditLog represents a record of changes made to any entity in the system
type AuditLog struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	TableName string      `json:"table_name" gorm:"type:varchar(50);not null"`
	RecordID  string      `json:"record_id" gorm:"type:varchar(64);not null;index"`
	Action    AuditAction `json:"action" gorm:"type:varchar(20);not null"`
	OldData   *string     `json:"old_data" gorm:"type:text"`
	NewData   *string     `json:"new_data" gorm:"type:text"`
	ChangedBy *uuid.UUID  `json:"changed_by" gorm:"type:uuid"`
	ChangedAt time.Time   `json:"changed_at" gorm:"not null"`
}

// ReceiptStatusHistory records every status transition of a receipt
type ReceiptStatusHistory struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ReceiptID  uuid.UUID      `json:"receipt_id" gorm:"type:uuid;not null;index"`
	FromStatus *ReceiptStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus   ReceiptStatus  `json:"to_status" gorm:"type:varchar(20);not null"`
	Reason     *string        `json:"reason" gorm:"type:text"`
	CreatedBy  *uuid.UUID     `json:"created_by" gorm:"type:uuid"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null"`
}
