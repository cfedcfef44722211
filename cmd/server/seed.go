package main

import (
	"encoding/json"
	"fmt"
	"time"

	"rentdesk/internal/database"
	"rentdesk/internal/models"
	"rentdesk/pkg/config"
	"rentdesk/pkg/logger"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// seedData 初始化演示数据
// 仅在 SEED_DEMO_DATA=true 且库为空时写入
func seedData(cfg *config.Config) error {
	if !cfg.Seed.DemoData {
		return nil
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting demo data initialization...")

	db := database.GetDB()

	var count int64
	if err := db.Model(&models.Property{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		appLogger.Info("Demo data already present, skipping")
		return nil
	}

	if err := createDemoRecords(db); err != nil {
		return fmt.Errorf("创建演示数据失败: %v", err)
	}

	appLogger.Info("Demo data initialization completed successfully")
	return nil
}

func createDemoRecords(db *gorm.DB) error {
	amenities, _ := json.Marshal([]string{"Pool", "Gym", "Parking"})

	property := &models.Property{
		Name:      "Sample Apartment Complex",
		Address:   "123 Main St, Sample City, SC 12345",
		Type:      models.PropertyTypeApartment,
		Units:     24,
		Rent:      1200,
		Status:    models.PropertyStatusAvailable,
		Amenities: datatypes.JSON(amenities),
	}
	if err := db.Create(property).Error; err != nil {
		return err
	}

	leaseStart := time.Date(time.Now().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	tenant := &models.Tenant{
		FirstName:  "John",
		LastName:   "Smith",
		Email:      "john.smith@email.com",
		Phone:      "5551234567",
		PropertyID: property.ID,
		UnitNumber: "101",
		Lease: models.LeaseDetails{
			StartDate:       leaseStart,
			EndDate:         leaseStart.AddDate(1, 0, 0),
			MonthlyRent:     1200,
			SecurityDeposit: 1200,
			PaymentDay:      1,
		},
		Status: models.TenantStatusActive,
		EmergencyContact: models.EmergencyContact{
			Name:         "Jane Smith",
			Relationship: "Spouse",
			Phone:        "5559876543",
		},
	}
	if err := db.Create(tenant).Error; err != nil {
		return err
	}

	// 演示租客直接入库，计数同步抬到1
	return db.Model(property).UpdateColumn("occupied_units", 1).Error
}
