package infrastructures

import (
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func NewDatabase() *gorm.DB {
	db, err := gorm.Open(postgres.Open(Config.DATABASE_URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}

	if err := Migrate(db); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

// Migrate creates or updates every table the checkout owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.CartItem{},
		&models.Voucher{},
		&models.VoucherRedemption{},
		&models.Receipt{},
		&models.ReceiptItem{},
		&models.ReceiptDiscount{},
		&models.OrderLine{},
		&models.RefundRequest{},
		&models.WalletAccount{},
		&models.WalletLedgerEntry{},
		&models.Subscription{},
		&models.LoyaltyAccount{},
		&models.LoyaltyLedgerEntry{},
		&models.ProcessedPaymentReference{},
		&models.OutboxMessage{},
		&models.AuditLog{},
		&models.ReceiptStatusHistory{},
	)
}
