package services

import (
	"fmt"

	"rentdesk/internal/models"
	"rentdesk/pkg/errors"
	"rentdesk/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OccupancyService 入住一致性维护
// Property.OccupiedUnits 的所有变更都必须经过这里，
// 同时保证同一 (房产, 单元) 上最多一个Active租客
type OccupancyService struct {
	db *gorm.DB
}

// NewOccupancyService 创建入住一致性服务实例
func NewOccupancyService(db *gorm.DB) *OccupancyService {
	return &OccupancyService{db: db}
}

// CheckUnitVacant 检查指定单元上是否已有Active租客
// excludeTenantID 用于更新场景排除租客自身
func (s *OccupancyService) CheckUnitVacant(tx *gorm.DB, propertyID uint, unitNumber string, excludeTenantID uint) error {
	query := tx.Model(&models.Tenant{}).
		Where("property_id = ? AND unit_number = ? AND status = ?",
			propertyID, unitNumber, models.TenantStatusActive)
	if excludeTenantID > 0 {
		query = query.Where("id != ?", excludeTenantID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.NewConflict(fmt.Sprintf("单元 %s 已有在住租客", unitNumber))
	}
	return nil
}

// IncrementOccupied 入住计数加一
// 单条带条件的更新语句保证 occupied_units 不会超过 units
func (s *OccupancyService) IncrementOccupied(tx *gorm.DB, propertyID uint) error {
	result := tx.Model(&models.Property{}).
		Where("id = ? AND occupied_units < units", propertyID).
		UpdateColumn("occupied_units", gorm.Expr("occupied_units + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NewConflict("该房产已无可用单元")
	}
	return nil
}

// DecrementOccupied 入住计数减一，最低减到0
func (s *OccupancyService) DecrementOccupied(tx *gorm.DB, propertyID uint) error {
	return tx.Model(&models.Property{}).
		Where("id = ? AND occupied_units > 0", propertyID).
		UpdateColumn("occupied_units", gorm.Expr("occupied_units - ?", 1)).Error
}

// RecountResult 对账结果
type RecountResult struct {
	RunID     string           `json:"run_id"`
	Checked   int              `json:"checked"`
	Corrected int              `json:"corrected"`
	Drifts    []RecountedDrift `json:"drifts,omitempty"`
}

// RecountedDrift 单个房产的计数偏差
type RecountedDrift struct {
	PropertyID uint `json:"property_id"`
	Recorded   int  `json:"recorded"`
	Actual     int  `json:"actual"`
}

// Recount 按Active租客数重算单个房产的入住计数
func (s *OccupancyService) Recount(propertyID uint) (*RecountResult, error) {
	var property models.Property
	if err := s.db.First(&property, propertyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("房产不存在")
		}
		return nil, err
	}

	result := &RecountResult{RunID: uuid.New().String()}
	if err := s.recountOne(&property, result); err != nil {
		return nil, err
	}
	result.Checked = 1
	return result, nil
}

// RecountAll 重算所有房产的入住计数，作为两次写入不一致时的纠偏手段
func (s *OccupancyService) RecountAll() (*RecountResult, error) {
	var properties []models.Property
	if err := s.db.Find(&properties).Error; err != nil {
		return nil, err
	}

	result := &RecountResult{RunID: uuid.New().String()}
	for i := range properties {
		if err := s.recountOne(&properties[i], result); err != nil {
			return nil, err
		}
	}
	result.Checked = len(properties)
	return result, nil
}

func (s *OccupancyService) recountOne(property *models.Property, result *RecountResult) error {
	var active int64
	err := s.db.Model(&models.Tenant{}).
		Where("property_id = ? AND status = ?", property.ID, models.TenantStatusActive).
		Count(&active).Error
	if err != nil {
		return err
	}

	// 计数不超过单元总数
	actual := int(active)
	if actual > property.Units {
		actual = property.Units
	}

	if actual == property.OccupiedUnits {
		return nil
	}

	logger.GetLogger().Warnf("对账 %s 发现房产 %d 入住计数偏差: 记录=%d 实际=%d",
		result.RunID, property.ID, property.OccupiedUnits, actual)

	err = s.db.Model(&models.Property{}).
		Where("id = ?", property.ID).
		UpdateColumn("occupied_units", actual).Error
	if err != nil {
		return err
	}

	result.Corrected++
	result.Drifts = append(result.Drifts, RecountedDrift{
		PropertyID: property.ID,
		Recorded:   property.OccupiedUnits,
		Actual:     actual,
	})
	return nil
}
