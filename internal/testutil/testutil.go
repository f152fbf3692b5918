package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"procurement-backend/config"
	"procurement-backend/db/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// SetupTestDB opens an isolated in-memory SQLite database with every model
// migrated. The pool is pinned to one connection so transactions serialize the
// same way row locks serialize them on Postgres.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, dbCounter.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(config.AllModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

var numberCounter atomic.Int64

func nextNumber(prefix string) string {
	return fmt.Sprintf("%s-TEST-%06d", prefix, numberCounter.Add(1))
}

// SeedPurchaseRequest inserts a purchase request directly in the given status.
func SeedPurchaseRequest(t *testing.T, db *gorm.DB, status models.DocumentStatus) *models.PurchaseRequest {
	t.Helper()
	pr := &models.PurchaseRequest{
		PRNumber:          nextNumber("PR"),
		Status:            status,
		ProjectTitle:      "Office supplies",
		Purpose:           "Replenish stock",
		EndUserID:         100,
		EndUserDepartment: "General Services",
		FundSource:        "GF-2026",
		EstimatedBudget:   decimal.RequireFromString("150000.00"),
		UrgencyLevel:      models.UrgencyMedium,
	}
	mustCreate(t, db, pr)
	return pr
}

func SeedRFQ(t *testing.T, db *gorm.DB, prID uint, status models.DocumentStatus) *models.RFQ {
	t.Helper()
	rfq := &models.RFQ{
		RFQNumber:            nextNumber("RFQ"),
		PurchaseRequestID:    prID,
		Status:               status,
		ProcurementOfficerID: 200,
		PaymentTerms:         "30 days",
	}
	mustCreate(t, db, rfq)
	return rfq
}

func SeedCanvass(t *testing.T, db *gorm.DB, rfqID uint, status models.DocumentStatus, deadline time.Time) *models.Canvass {
	t.Helper()
	c := &models.Canvass{
		CanvassNumber:   nextNumber("CANVASS"),
		RFQID:           rfqID,
		Status:          status,
		CanvasserID:     300,
		TaskDescription: "Collect three quotations",
		Deadline:        deadline,
	}
	mustCreate(t, db, c)
	return c
}

func SeedBACDocument(t *testing.T, db *gorm.DB, prID uint, status models.DocumentStatus) *models.BACDocument {
	t.Helper()
	doc := &models.BACDocument{
		BACDocumentNumber: nextNumber("BAC"),
		PurchaseRequestID: prID,
		Status:            status,
		ProcurementMode:   models.ProcurementModeSVP,
		DocumentKind:      models.BACAbstractOfQuotations,
		ContractAmount:    decimal.RequireFromString("120000.00"),
	}
	mustCreate(t, db, doc)
	return doc
}

func SeedPurchaseOrder(t *testing.T, db *gorm.DB, prID uint, status models.DocumentStatus) *models.PurchaseOrder {
	t.Helper()
	po := &models.PurchaseOrder{
		PONumber:          nextNumber("PO"),
		PurchaseRequestID: prID,
		Status:            status,
		SupplierID:        400,
		ContractAmount:    decimal.RequireFromString("118500.00"),
	}
	mustCreate(t, db, po)
	return po
}

// StatusOf reads the stored status of a document row.
func StatusOf(t *testing.T, db *gorm.DB, model interface{}, id uint) models.DocumentStatus {
	t.Helper()
	var statuses []string
	if err := db.Model(model).Where("id = ?", id).Pluck("status", &statuses).Error; err != nil {
		t.Fatalf("failed to read status: %v", err)
	}
	if len(statuses) == 0 {
		t.Fatalf("no %T with id %d", model, id)
	}
	return models.DocumentStatus(statuses[0])
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("failed to seed %T: %v", value, err)
	}
}
