package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService is the balance ledger. Balance and ledger rows only change together,
// under a row lock on the account.
type WalletService struct {
	db            *gorm.DB
	outboxService *OutboxService
}

func NewWalletService(db *gorm.DB, outboxService *OutboxService) *WalletService {
	return &WalletService{
		db:            db,
		outboxService: outboxService,
	}
}

func (s *WalletService) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, meta models.LedgerMeta) (*models.WalletLedgerEntry, error) {
	var entry *models.WalletLedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.CreditTx(tx, userID, amount, meta)
		return err
	})
	return entry, err
}

func (s *WalletService) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, meta models.LedgerMeta) (*models.WalletLedgerEntry, error) {
	var entry *models.WalletLedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.DebitTx(tx, userID, amount, meta)
		return err
	})
	return entry, err
}

func (s *WalletService) CreditTx(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, meta models.LedgerMeta) (*models.WalletLedgerEntry, error) {
	amount = pkg.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, errors.NewBadRequestError("Amount must be greater than 0")
	}

	entry, err := s.apply(tx, userID, amount, meta)
	if err != nil {
		return nil, err
	}

	err = s.outboxService.EnqueueTx(tx, models.EventWalletCredited, userID.String(), entry)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *WalletService) DebitTx(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, meta models.LedgerMeta) (*models.WalletLedgerEntry, error) {
	amount = pkg.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, errors.NewBadRequestError("Amount must be greater than 0")
	}

	return s.apply(tx, userID, amount.Neg(), meta)
}

// apply moves the balance by the signed delta and appends the ledger entry.
func (s *WalletService) apply(tx *gorm.DB, userID uuid.UUID, delta decimal.Decimal, meta models.LedgerMeta) (*models.WalletLedgerEntry, error) {
	if _, err := pkg.InsertIgnore(tx, &models.WalletAccount{UserID: userID, Balance: decimal.Zero}); err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to open wallet")
	}

	var account models.WalletAccount
	if err := pkg.ForUpdate(tx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to lock wallet")
	}

	next := pkg.RoundMoney(account.Balance.Add(delta))
	if next.IsNegative() {
		return nil, errors.NewConflictError(errors.CodeInsufficientFunds, "Insufficient wallet balance")
	}

	if err := tx.Model(&models.WalletAccount{}).
		Where("user_id = ?", userID).
		Update("balance", next).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to update wallet balance")
	}

	entry := &models.WalletLedgerEntry{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          meta.Type,
		Amount:        delta,
		BalanceAfter:  next,
		ReferenceType: optionalString(meta.ReferenceType),
		ReferenceID:   optionalString(meta.ReferenceID),
		Note:          optionalString(meta.Note),
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to write wallet ledger")
	}

	return entry, nil
}

func (s *WalletService) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var account models.WalletAccount
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.NewInternalServerError(err, "Failed to get wallet balance")
	}

	return account.Balance, nil
}

func (s *WalletService) ListLedger(ctx context.Context, userID uuid.UUID, pagination *models.PaginationRequest) (*models.Pagination[[]models.WalletLedgerEntry], error) {
	pagination.Normalize()

	query := s.db.WithContext(ctx).Model(&models.WalletLedgerEntry{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to count wallet ledger")
	}

	var entries []models.WalletLedgerEntry
	if err := query.Order("created_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset()).
		Find(&entries).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get wallet ledger")
	}

	return models.NewPagination(pagination, totalItems, entries), nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
