package services_test

import (
	"fmt"
	"testing"
	"time"

	"rentdesk/internal/models"
	"rentdesk/internal/services"
	apperrors "rentdesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Property{},
		&models.MaintenanceRequest{},
		&models.Tenant{},
		&models.TenantDocument{},
		&models.TenantPayment{},
	)
	require.NoError(t, err)
	return db
}

func createProperty(t *testing.T, db *gorm.DB, units int) *models.Property {
	property := &models.Property{
		Name:    fmt.Sprintf("Test Property %d", time.Now().UnixNano()),
		Address: "1 Test Street",
		Type:    models.PropertyTypeApartment,
		Units:   units,
		Rent:    1000,
		Status:  models.PropertyStatusAvailable,
	}
	require.NoError(t, db.Create(property).Error)
	return property
}

func buildTenant(propertyID uint, unit, email, status string) *models.Tenant {
	start := time.Now().AddDate(0, -1, 0)
	return &models.Tenant{
		FirstName:  "Test",
		LastName:   "Tenant",
		Email:      email,
		Phone:      "5550001111",
		PropertyID: propertyID,
		UnitNumber: unit,
		Lease: models.LeaseDetails{
			StartDate:       start,
			EndDate:         start.AddDate(1, 0, 0),
			MonthlyRent:     1000,
			SecurityDeposit: 1000,
			PaymentDay:      1,
		},
		Status: status,
	}
}

func occupiedUnits(t *testing.T, db *gorm.DB, propertyID uint) int {
	var property models.Property
	require.NoError(t, db.First(&property, propertyID).Error)
	return property.OccupiedUnits
}

func TestCreateAndDeleteActiveTenantRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	property := createProperty(t, db, 10)

	tenant := buildTenant(property.ID, "A1", "a1@test.com", models.TenantStatusActive)
	require.NoError(t, svc.Create(tenant))
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))

	_, err := svc.Delete(tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, occupiedUnits(t, db, property.ID))
}

func TestDuplicateActiveUnitRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	property := createProperty(t, db, 10)

	first := buildTenant(property.ID, "A1", "first@test.com", models.TenantStatusActive)
	require.NoError(t, svc.Create(first))

	second := buildTenant(property.ID, "A1", "second@test.com", models.TenantStatusActive)
	err := svc.Create(second)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	// 冲突不会改变计数，也不会留下半写入的租客
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))
	var count int64
	require.NoError(t, db.Model(&models.Tenant{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInactiveTenantDoesNotTouchCounter(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	property := createProperty(t, db, 10)

	for i, status := range []string{
		models.TenantStatusInactive,
		models.TenantStatusPending,
		models.TenantStatusEvicted,
	} {
		tenant := buildTenant(property.ID, fmt.Sprintf("B%d", i), fmt.Sprintf("b%d@test.com", i), status)
		require.NoError(t, svc.Create(tenant))
		assert.Equal(t, 0, occupiedUnits(t, db, property.ID))

		_, err := svc.Delete(tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, occupiedUnits(t, db, property.ID))
	}
}

func TestOccupiedUnitsNeverExceedsUnits(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	property := createProperty(t, db, 1)

	first := buildTenant(property.ID, "1", "one@test.com", models.TenantStatusActive)
	require.NoError(t, svc.Create(first))
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))

	// 单元号不同但房产已满，创建被拒绝且事务回滚
	second := buildTenant(property.ID, "2", "two@test.com", models.TenantStatusActive)
	err := svc.Create(second)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))
	var count int64
	require.NoError(t, db.Model(&models.Tenant{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStatusTransitionAdjustsCounter(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	property := createProperty(t, db, 10)

	tenant := buildTenant(property.ID, "C1", "c1@test.com", models.TenantStatusActive)
	require.NoError(t, svc.Create(tenant))
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))

	inactive := models.TenantStatusInactive
	_, err := svc.Update(tenant.ID, &services.UpdateTenantRequest{Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 0, occupiedUnits(t, db, property.ID))

	active := models.TenantStatusActive
	_, err = svc.Update(tenant.ID, &services.UpdateTenantRequest{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))
}

func TestReactivationChecksUnitConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	property := createProperty(t, db, 10)

	resting := buildTenant(property.ID, "D1", "resting@test.com", models.TenantStatusInactive)
	require.NoError(t, svc.Create(resting))

	occupant := buildTenant(property.ID, "D1", "occupant@test.com", models.TenantStatusActive)
	require.NoError(t, svc.Create(occupant))

	// 单元已被占用，不能再转为Active
	active := models.TenantStatusActive
	_, err := svc.Update(resting.ID, &services.UpdateTenantRequest{Status: &active})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))
}

func TestMoveBetweenPropertiesAdjustsBothCounters(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	oldProperty := createProperty(t, db, 10)
	newProperty := createProperty(t, db, 10)

	tenant := buildTenant(oldProperty.ID, "E1", "mover@test.com", models.TenantStatusActive)
	require.NoError(t, svc.Create(tenant))
	assert.Equal(t, 1, occupiedUnits(t, db, oldProperty.ID))

	newID := newProperty.ID
	_, err := svc.Update(tenant.ID, &services.UpdateTenantRequest{PropertyID: &newID})
	require.NoError(t, err)

	assert.Equal(t, 0, occupiedUnits(t, db, oldProperty.ID))
	assert.Equal(t, 1, occupiedUnits(t, db, newProperty.ID))
}

func TestUnitChangeWithinPropertyKeepsCounter(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	property := createProperty(t, db, 10)

	tenant := buildTenant(property.ID, "F1", "f1@test.com", models.TenantStatusActive)
	require.NoError(t, svc.Create(tenant))

	unit := "F2"
	updated, err := svc.Update(tenant.ID, &services.UpdateTenantRequest{UnitNumber: &unit})
	require.NoError(t, err)
	assert.Equal(t, "F2", updated.UnitNumber)
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))
}

func TestUpdateKeepingOwnUnitAllowed(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewTenantService(db, nil)
	property := createProperty(t, db, 10)

	tenant := buildTenant(property.ID, "G1", "g1@test.com", models.TenantStatusActive)
	require.NoError(t, svc.Create(tenant))

	// 单元号没变，唯一性检查要排除自身
	unit := "G1"
	phone := "5559998888"
	_, err := svc.Update(tenant.ID, &services.UpdateTenantRequest{UnitNumber: &unit, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))
}

func TestRecountCorrectsDrift(t *testing.T) {
	db := setupTestDB(t)
	tenantSvc := services.NewTenantService(db, nil)
	occupancySvc := services.NewOccupancyService(db)
	property := createProperty(t, db, 10)

	tenant := buildTenant(property.ID, "H1", "h1@test.com", models.TenantStatusActive)
	require.NoError(t, tenantSvc.Create(tenant))

	// 人为制造偏差
	require.NoError(t, db.Model(&models.Property{}).
		Where("id = ?", property.ID).
		UpdateColumn("occupied_units", 7).Error)

	result, err := occupancySvc.Recount(property.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Corrected)
	assert.Equal(t, 1, occupiedUnits(t, db, property.ID))
}

func TestRecountAllCapsAtUnits(t *testing.T) {
	db := setupTestDB(t)
	occupancySvc := services.NewOccupancyService(db)
	property := createProperty(t, db, 2)

	// 直接入库绕过协调逻辑，制造超过单元数的Active租客
	for i := 0; i < 3; i++ {
		tenant := buildTenant(property.ID, fmt.Sprintf("I%d", i), fmt.Sprintf("i%d@test.com", i), models.TenantStatusActive)
		require.NoError(t, db.Create(tenant).Error)
	}

	result, err := occupancySvc.RecountAll()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Corrected)
	assert.Equal(t, 2, occupiedUnits(t, db, property.ID))
}

func TestRecountMissingProperty(t *testing.T) {
	db := setupTestDB(t)
	occupancySvc := services.NewOccupancyService(db)

	_, err := occupancySvc.Recount(9999)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
