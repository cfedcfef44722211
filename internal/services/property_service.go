package services

import (
	"math"
	"strings"

	"rentdesk/internal/models"
	"rentdesk/pkg/cache"
	"rentdesk/pkg/errors"
	"rentdesk/pkg/logger"

	"gorm.io/gorm"
)

// PropertyService 房产服务
type PropertyService struct {
	db         *gorm.DB
	statsCache *cache.RedisCache // 可为nil，nil时不走缓存
}

// NewPropertyService 创建房产服务实例
func NewPropertyService(db *gorm.DB, statsCache *cache.RedisCache) *PropertyService {
	return &PropertyService{
		db:         db,
		statsCache: statsCache,
	}
}

// Create 创建房产
func (s *PropertyService) Create(property *models.Property) error {
	if property.Type == "" {
		property.Type = models.PropertyTypeApartment
	}
	if property.Status == "" {
		property.Status = models.PropertyStatusAvailable
	}
	// 入住计数只能从0开始，由入住协调逻辑维护
	property.OccupiedUnits = 0

	if err := s.db.Create(property).Error; err != nil {
		return err
	}
	property.FillDerived()
	return nil
}

// UpdatePropertyRequest 房产更新请求
// 全量更新，所有校验规则重新执行
type UpdatePropertyRequest struct {
	Name        string               `json:"name" binding:"required,min=1,max=100"`
	Address     string               `json:"address" binding:"required"`
	Type        string               `json:"type" binding:"required,oneof=Apartment House Commercial Condo Townhouse Villa"`
	Units       int                  `json:"units" binding:"required,min=1"`
	Rent        *float64             `json:"rent" binding:"required,min=0"`
	Status      string               `json:"status" binding:"omitempty,oneof=Available Occupied Maintenance Reserved"`
	Amenities   []string             `json:"amenities"`
	Description string               `json:"description" binding:"max=500"`
	Owner       models.PropertyOwner `json:"owner"`
	Images      []string             `json:"images"`
}

// Update 更新房产
func (s *PropertyService) Update(id uint, updates map[string]interface{}) (*models.Property, error) {
	var property models.Property
	if err := s.db.First(&property, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("房产不存在")
		}
		return nil, err
	}

	// 减少单元总数时不能低于当前入住数
	if units, ok := updates["units"]; ok {
		if u, ok := units.(int); ok && u < property.OccupiedUnits {
			return nil, errors.NewInvalidParam("单元总数不能小于当前已入住数")
		}
	}

	if err := s.db.Model(&property).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.GetByID(id)
}

// GetByID 根据ID获取房产
func (s *PropertyService) GetByID(id uint) (*models.Property, error) {
	var property models.Property
	err := s.db.Preload("MaintenanceRequests").First(&property, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("房产不存在")
		}
		return nil, err
	}
	return &property, nil
}

// PropertyListFilters 房产列表过滤条件
type PropertyListFilters struct {
	Type    string
	Status  string
	MinRent *float64
	MaxRent *float64
	SortBy  string
}

// 可排序字段白名单，请求字段名到列名的映射
var propertySortFields = map[string]string{
	"name":          "name",
	"rent":          "rent",
	"units":         "units",
	"type":          "type",
	"status":        "status",
	"createdAt":     "created_at",
	"created_at":    "created_at",
	"occupiedUnits": "occupied_units",
}

// List 获取房产列表，过滤条件取AND
func (s *PropertyService) List(filters PropertyListFilters) ([]models.Property, error) {
	query := s.db.Model(&models.Property{})

	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.MinRent != nil {
		query = query.Where("rent >= ?", *filters.MinRent)
	}
	if filters.MaxRent != nil {
		query = query.Where("rent <= ?", *filters.MaxRent)
	}

	// 排序字段带 "-" 前缀表示倒序，默认按创建时间倒序
	order := "created_at DESC"
	if filters.SortBy != "" {
		field := filters.SortBy
		desc := strings.HasPrefix(field, "-")
		if desc {
			field = field[1:]
		}
		if column, ok := propertySortFields[field]; ok {
			order = column
			if desc {
				order += " DESC"
			}
		} else {
			return nil, errors.NewInvalidParam("不支持的排序字段: " + field)
		}
	}

	var properties []models.Property
	if err := query.Order(order).Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}

// Delete 删除房产
// 不做租客级联，指向该房产的租客记录会悬空，留给对账处理
func (s *PropertyService) Delete(id uint) error {
	var property models.Property
	if err := s.db.First(&property, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NewNotFound("房产不存在")
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Delete(&models.MaintenanceRequest{}).Error; err != nil {
			return err
		}
		return tx.Delete(&property).Error
	})
}

// PropertyStats 房产统计
type PropertyStats struct {
	TotalProperties       int64   `json:"total_properties"`
	AvailableProperties   int64   `json:"available_properties"`
	OccupiedProperties    int64   `json:"occupied_properties"`
	MaintenanceProperties int64   `json:"maintenance_properties"`
	ReservedProperties    int64   `json:"reserved_properties"`
	TotalUnits            int64   `json:"total_units"`
	TotalOccupiedUnits    int64   `json:"total_occupied_units"`
	AvailableUnits        int64   `json:"available_units"`
	OverallOccupancyRate  float64 `json:"overall_occupancy_rate"`
	AverageRent           int64   `json:"average_rent"`
	MinRent               float64 `json:"min_rent"`
	MaxRent               float64 `json:"max_rent"`
}

const propertyStatsCacheKey = "property:stats"

// GetStats 房产统计概览
func (s *PropertyService) GetStats() (*PropertyStats, error) {
	if s.statsCache != nil {
		var cached PropertyStats
		if hit, err := s.statsCache.Get(propertyStatsCacheKey, &cached); err == nil && hit {
			return &cached, nil
		} else if err != nil {
			logger.GetLogger().Warnf("读取房产统计缓存失败: %v", err)
		}
	}

	stats := &PropertyStats{}

	if err := s.db.Model(&models.Property{}).Count(&stats.TotalProperties).Error; err != nil {
		return nil, err
	}

	statusCounts := map[string]*int64{
		models.PropertyStatusAvailable:   &stats.AvailableProperties,
		models.PropertyStatusOccupied:    &stats.OccupiedProperties,
		models.PropertyStatusMaintenance: &stats.MaintenanceProperties,
		models.PropertyStatusReserved:    &stats.ReservedProperties,
	}
	for status, target := range statusCounts {
		err := s.db.Model(&models.Property{}).Where("status = ?", status).Count(target).Error
		if err != nil {
			return nil, err
		}
	}

	if stats.TotalProperties > 0 {
		var agg struct {
			TotalUnits         int64
			TotalOccupiedUnits int64
			AverageRent        float64
			MinRent            float64
			MaxRent            float64
		}
		err := s.db.Model(&models.Property{}).
			Select("COALESCE(SUM(units),0) AS total_units, COALESCE(SUM(occupied_units),0) AS total_occupied_units, COALESCE(AVG(rent),0) AS average_rent, COALESCE(MIN(rent),0) AS min_rent, COALESCE(MAX(rent),0) AS max_rent").
			Scan(&agg).Error
		if err != nil {
			return nil, err
		}

		stats.TotalUnits = agg.TotalUnits
		stats.TotalOccupiedUnits = agg.TotalOccupiedUnits
		stats.AvailableUnits = agg.TotalUnits - agg.TotalOccupiedUnits
		stats.AverageRent = int64(math.Round(agg.AverageRent))
		stats.MinRent = agg.MinRent
		stats.MaxRent = agg.MaxRent
		if agg.TotalUnits > 0 {
			rate := float64(agg.TotalOccupiedUnits) / float64(agg.TotalUnits) * 100
			stats.OverallOccupancyRate = math.Round(rate*100) / 100
		}
	}

	if s.statsCache != nil {
		if err := s.statsCache.Set(propertyStatsCacheKey, stats); err != nil {
			logger.GetLogger().Warnf("写入房产统计缓存失败: %v", err)
		}
	}
	return stats, nil
}

// AddMaintenanceRequest 追加维修请求
func (s *PropertyService) AddMaintenanceRequest(propertyID uint, request *models.MaintenanceRequest) (*models.Property, error) {
	var property models.Property
	if err := s.db.First(&property, propertyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("房产不存在")
		}
		return nil, err
	}

	request.PropertyID = propertyID
	if request.Priority == "" {
		request.Priority = models.MaintenancePriorityMedium
	}
	if request.Status == "" {
		request.Status = models.MaintenanceStatusPending
	}
	if err := s.db.Create(request).Error; err != nil {
		return nil, err
	}

	return s.GetByID(propertyID)
}

// UpdateMaintenanceStatus 更新维修请求状态
func (s *PropertyService) UpdateMaintenanceStatus(propertyID, requestID uint, status string) (*models.Property, error) {
	var property models.Property
	if err := s.db.First(&property, propertyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("房产不存在")
		}
		return nil, err
	}

	var request models.MaintenanceRequest
	err := s.db.Where("id = ? AND property_id = ?", requestID, propertyID).First(&request).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("维修请求不存在")
		}
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if status == models.MaintenanceStatusCompleted && request.CompletedAt == nil {
		updates["completed_at"] = gorm.Expr("CURRENT_TIMESTAMP")
	}
	if err := s.db.Model(&request).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.GetByID(propertyID)
}
