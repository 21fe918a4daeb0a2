package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"gorm.io/gorm"
)

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// LogAuditTx writes an audit entry through the caller's transaction.
func (s *AuditService) LogAuditTx(tx *gorm.DB, tableName string, recordID string, action models.AuditAction, oldData, newData interface{}, changedBy *uuid.UUID) error {
	oldDataJSON, err := marshalOptional(oldData)
	if err != nil {
		return fmt.Errorf("failed to marshal old data: %w", err)
	}
	newDataJSON, err := marshalOptional(newData)
	if err != nil {
		return fmt.Errorf("failed to marshal new data: %w", err)
	}

	auditLog := &models.AuditLog{
		ID:        uuid.New(),
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		OldData:   oldDataJSON,
		NewData:   newDataJSON,
		ChangedBy: changedBy,
		ChangedAt: time.Now(),
	}

	if err := tx.Create(auditLog).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to create audit log")
	}

	return nil
}

// LogReceiptStatusChangeTx records a receipt transition through the caller's transaction.
func (s *AuditService) LogReceiptStatusChangeTx(
	tx *gorm.DB,
	receiptID uuid.UUID,
	fromStatus *models.ReceiptStatus,
	toStatus models.ReceiptStatus,
	reason string,
	createdBy *uuid.UUID,
) error {
	history := &models.ReceiptStatusHistory{
		ID:         uuid.New(),
		ReceiptID:  receiptID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Reason:     &reason,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now(),
	}

	if err := tx.Create(history).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to create receipt status history")
	}

	return nil
}

// GetReceiptStatusHistory retrieves the status history for a receipt
func (s *AuditService) GetReceiptStatusHistory(receiptID uuid.UUID) ([]models.ReceiptStatusHistory, error) {
	var history []models.ReceiptStatusHistory
	if err := s.db.Where("receipt_id = ?", receiptID).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get receipt status history")
	}

	return history, nil
}

// GetAuditLogs retrieves audit logs with pagination
func (s *AuditService) GetAuditLogs(pagination *models.PaginationRequest) (*models.Pagination[[]models.AuditLog], error) {
	pagination.Normalize()

	var totalItems int64
	if err := s.db.Model(&models.AuditLog{}).Count(&totalItems).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to count audit logs")
	}

	var logs []models.AuditLog
	if err := s.db.Order("changed_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset()).
		Find(&logs).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get audit logs")
	}

	return models.NewPagination(pagination, totalItems, logs), nil
}

func marshalOptional(data interface{}) (*string, error) {
	if data == nil {
		return nil, nil
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	strJSON := string(jsonBytes)
	return &strJSON, nil
}
