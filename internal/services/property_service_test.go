package services_test

import (
	"testing"

	"rentdesk/internal/models"
	"rentdesk/internal/services"
	apperrors "rentdesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePropertyDefaults(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewPropertyService(db, nil)

	property := &models.Property{
		Name:    "Riverside Flats",
		Address: "88 River Road",
		Units:   12,
		Rent:    1500,
		// 调用方传入的入住计数会被忽略
		OccupiedUnits: 5,
	}
	require.NoError(t, svc.Create(property))

	assert.Equal(t, models.PropertyTypeApartment, property.Type)
	assert.Equal(t, models.PropertyStatusAvailable, property.Status)
	assert.Equal(t, 0, property.OccupiedUnits)
	assert.Equal(t, float64(0), property.OccupancyRate)
	assert.Equal(t, 12, property.AvailableUnits)
}

func TestPropertyOccupancyRateTwoDecimals(t *testing.T) {
	db := setupTestDB(t)
	propertySvc := services.NewPropertyService(db, nil)
	tenantSvc := services.NewTenantService(db, nil)

	property := createProperty(t, db, 3)
	tenant := buildTenant(property.ID, "101", "rate@test.com", models.TenantStatusActive)
	require.NoError(t, tenantSvc.Create(tenant))

	// 1/3 入住率保留两位小数
	loaded, err := propertySvc.GetByID(property.ID)
	require.NoError(t, err)
	assert.Equal(t, 33.33, loaded.OccupancyRate)
	assert.Equal(t, 2, loaded.AvailableUnits)
}

func TestUpdatePropertyUnitsFloor(t *testing.T) {
	db := setupTestDB(t)
	propertySvc := services.NewPropertyService(db, nil)
	tenantSvc := services.NewTenantService(db, nil)

	property := createProperty(t, db, 10)
	for _, unit := range []string{"101", "102", "103"} {
		tenant := buildTenant(property.ID, unit, unit+"-floor@test.com", models.TenantStatusActive)
		require.NoError(t, tenantSvc.Create(tenant))
	}

	// 单元总数不能低于已入住数
	_, err := propertySvc.Update(property.ID, map[string]interface{}{"units": 2})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInvalidParam, appErr.Code)

	// 等于已入住数可以
	updated, err := propertySvc.Update(property.ID, map[string]interface{}{"units": 3})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Units)
	assert.Equal(t, float64(100), updated.OccupancyRate)
}

func TestUpdatePropertyNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewPropertyService(db, nil)

	_, err := svc.Update(9999, map[string]interface{}{"name": "ghost"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestListPropertiesFilterAndSort(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewPropertyService(db, nil)

	cheap := &models.Property{Name: "Cheap", Address: "1 Low St", Type: models.PropertyTypeHouse, Units: 1, Rent: 500}
	mid := &models.Property{Name: "Mid", Address: "2 Mid St", Type: models.PropertyTypeApartment, Units: 10, Rent: 1200, Status: models.PropertyStatusOccupied}
	dear := &models.Property{Name: "Dear", Address: "3 High St", Type: models.PropertyTypeVilla, Units: 1, Rent: 5000}
	for _, p := range []*models.Property{cheap, mid, dear} {
		require.NoError(t, svc.Create(p))
	}

	// 类型过滤
	properties, err := svc.List(services.PropertyListFilters{Type: models.PropertyTypeVilla})
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, "Dear", properties[0].Name)

	// 状态过滤
	properties, err = svc.List(services.PropertyListFilters{Status: models.PropertyStatusOccupied})
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, "Mid", properties[0].Name)

	// 租金区间取AND
	minRent, maxRent := float64(600), float64(2000)
	properties, err = svc.List(services.PropertyListFilters{MinRent: &minRent, MaxRent: &maxRent})
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, "Mid", properties[0].Name)

	// 升序与带 "-" 前缀的倒序
	properties, err = svc.List(services.PropertyListFilters{SortBy: "rent"})
	require.NoError(t, err)
	require.Len(t, properties, 3)
	assert.Equal(t, "Cheap", properties[0].Name)
	assert.Equal(t, "Dear", properties[2].Name)

	properties, err = svc.List(services.PropertyListFilters{SortBy: "-rent"})
	require.NoError(t, err)
	assert.Equal(t, "Dear", properties[0].Name)

	// 白名单外的排序字段被拒绝
	_, err = svc.List(services.PropertyListFilters{SortBy: "owner_email"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInvalidParam, appErr.Code)
}

func TestDeletePropertyRemovesMaintenance(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewPropertyService(db, nil)
	property := createProperty(t, db, 10)

	_, err := svc.AddMaintenanceRequest(property.ID, &models.MaintenanceRequest{
		Title:       "Broken window",
		Description: "Unit 101 window cracked",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(property.ID))

	var count int64
	require.NoError(t, db.Model(&models.MaintenanceRequest{}).Where("property_id = ?", property.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	err = svc.Delete(property.ID)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestPropertyStatsAggregation(t *testing.T) {
	db := setupTestDB(t)
	propertySvc := services.NewPropertyService(db, nil)
	tenantSvc := services.NewTenantService(db, nil)

	first := &models.Property{Name: "First", Address: "1 First St", Units: 10, Rent: 1000}
	second := &models.Property{Name: "Second", Address: "2 Second St", Units: 20, Rent: 1501, Status: models.PropertyStatusOccupied}
	require.NoError(t, propertySvc.Create(first))
	require.NoError(t, propertySvc.Create(second))

	// 每个房产5个Active租客
	for i := 0; i < 5; i++ {
		a := buildTenant(first.ID, string(rune('A'+i)), string(rune('a'+i))+"@first.test", models.TenantStatusActive)
		require.NoError(t, tenantSvc.Create(a))
		b := buildTenant(second.ID, string(rune('A'+i)), string(rune('a'+i))+"@second.test", models.TenantStatusActive)
		require.NoError(t, tenantSvc.Create(b))
	}

	stats, err := propertySvc.GetStats()
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalProperties)
	assert.Equal(t, int64(1), stats.AvailableProperties)
	assert.Equal(t, int64(1), stats.OccupiedProperties)
	assert.Equal(t, int64(30), stats.TotalUnits)
	assert.Equal(t, int64(10), stats.TotalOccupiedUnits)
	assert.Equal(t, int64(20), stats.AvailableUnits)
	// 10/30 保留两位小数
	assert.Equal(t, 33.33, stats.OverallOccupancyRate)
	// (1000+1501)/2 = 1250.5，四舍五入到1251
	assert.Equal(t, int64(1251), stats.AverageRent)
	assert.Equal(t, float64(1000), stats.MinRent)
	assert.Equal(t, float64(1501), stats.MaxRent)
}

func TestPropertyStatsEmpty(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewPropertyService(db, nil)

	stats, err := svc.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalProperties)
	assert.Equal(t, float64(0), stats.OverallOccupancyRate)
	assert.Equal(t, int64(0), stats.AverageRent)
}

func TestMaintenanceLifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := services.NewPropertyService(db, nil)
	property := createProperty(t, db, 10)

	loaded, err := svc.AddMaintenanceRequest(property.ID, &models.MaintenanceRequest{
		Title: "AC not cooling",
	})
	require.NoError(t, err)
	require.Len(t, loaded.MaintenanceRequests, 1)

	request := loaded.MaintenanceRequests[0]
	assert.Equal(t, models.MaintenancePriorityMedium, request.Priority)
	assert.Equal(t, models.MaintenanceStatusPending, request.Status)
	assert.Nil(t, request.CompletedAt)

	loaded, err = svc.UpdateMaintenanceStatus(property.ID, request.ID, models.MaintenanceStatusCompleted)
	require.NoError(t, err)
	require.Len(t, loaded.MaintenanceRequests, 1)
	assert.Equal(t, models.MaintenanceStatusCompleted, loaded.MaintenanceRequests[0].Status)
	assert.NotNil(t, loaded.MaintenanceRequests[0].CompletedAt)

	var appErr *apperrors.AppError

	_, err = svc.AddMaintenanceRequest(9999, &models.MaintenanceRequest{Title: "x"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	_, err = svc.UpdateMaintenanceStatus(property.ID, 9999, models.MaintenanceStatusCompleted)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
