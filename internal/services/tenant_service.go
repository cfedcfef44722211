package services

import (
	"math"
	"strings"
	"time"

	"rentdesk/internal/models"
	"rentdesk/pkg/cache"
	"rentdesk/pkg/errors"
	"rentdesk/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantService 租客服务
// 租客的创建、更新、删除都会牵动所属房产的入住计数，
// 计数调整和租客写入放在同一个事务里
type TenantService struct {
	db         *gorm.DB
	occupancy  *OccupancyService
	statsCache *cache.RedisCache // 可为nil
}

// NewTenantService 创建租客服务实例
func NewTenantService(db *gorm.DB, statsCache *cache.RedisCache) *TenantService {
	return &TenantService{
		db:         db,
		occupancy:  NewOccupancyService(db),
		statsCache: statsCache,
	}
}

// validateLease 校验租约区间
func validateLease(lease *models.LeaseDetails) error {
	if !lease.EndDate.After(lease.StartDate) {
		return errors.NewInvalidParam("租约结束日期必须晚于开始日期")
	}
	return nil
}

// Create 创建租客
// 前置条件：房产存在、目标单元无Active租客、邮箱未注册
// 成功时在同一事务内将房产入住计数加一
func (s *TenantService) Create(tenant *models.Tenant) error {
	tenant.Email = strings.ToLower(strings.TrimSpace(tenant.Email))
	if tenant.Status == "" {
		tenant.Status = models.TenantStatusActive
	}
	if tenant.Lease.PaymentDay == 0 {
		tenant.Lease.PaymentDay = 1
	}

	if err := validateLease(&tenant.Lease); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 房产必须存在
		var property models.Property
		if err := tx.First(&property, tenant.PropertyID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NewInvalidParam("房产不存在")
			}
			return err
		}

		// 邮箱唯一
		var count int64
		err := tx.Model(&models.Tenant{}).Where("email = ?", tenant.Email).Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.NewConflict("邮箱已被注册")
		}

		if tenant.Status == models.TenantStatusActive {
			// 单元上不能已有Active租客
			if err := s.occupancy.CheckUnitVacant(tx, tenant.PropertyID, tenant.UnitNumber, 0); err != nil {
				return err
			}
		}

		if err := tx.Create(tenant).Error; err != nil {
			return err
		}

		if tenant.Status == models.TenantStatusActive {
			if err := s.occupancy.IncrementOccupied(tx, tenant.PropertyID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// 重新加载带房产信息的租客，加载失败不影响创建结果
	if reloaded, err := s.GetByID(tenant.ID); err == nil {
		*tenant = *reloaded
	}
	return nil
}

// UpdateTenantRequest 租客更新请求
type UpdateTenantRequest struct {
	FirstName        *string                  `json:"first_name" binding:"omitempty,min=1,max=50"`
	LastName         *string                  `json:"last_name" binding:"omitempty,min=1,max=50"`
	Email            *string                  `json:"email" binding:"omitempty,email"`
	Phone            *string                  `json:"phone" binding:"omitempty,len=10,numeric"`
	PropertyID       *uint                    `json:"property_id"`
	UnitNumber       *string                  `json:"unit_number" binding:"omitempty,min=1,max=20"`
	Lease            *models.LeaseDetails     `json:"lease_details"`
	Status           *string                  `json:"status" binding:"omitempty,oneof=Active Inactive Pending Evicted"`
	EmergencyContact *models.EmergencyContact `json:"emergency_contact"`
	Notes            *string                  `json:"notes" binding:"omitempty,max=1000"`
}

// Update 更新租客
// 目标 (房产, 单元) 或状态变化时重新校验单元唯一性，
// 并调整新旧房产的入住计数
func (s *TenantService) Update(id uint, req *UpdateTenantRequest) (*models.Tenant, error) {
	var current models.Tenant
	if err := s.db.First(&current, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("租客不存在")
		}
		return nil, err
	}

	// 合并出更新后的目标值
	newPropertyID := current.PropertyID
	if req.PropertyID != nil {
		newPropertyID = *req.PropertyID
	}
	newUnit := current.UnitNumber
	if req.UnitNumber != nil {
		newUnit = *req.UnitNumber
	}
	newStatus := current.Status
	if req.Status != nil {
		newStatus = *req.Status
	}

	if req.Lease != nil {
		if req.Lease.PaymentDay == 0 {
			req.Lease.PaymentDay = 1
		}
		if req.Lease.PaymentDay < 1 || req.Lease.PaymentDay > 31 {
			return nil, errors.NewInvalidParam("缴租日必须在1到31之间")
		}
		if req.Lease.MonthlyRent < 0 || req.Lease.SecurityDeposit < 0 {
			return nil, errors.NewInvalidParam("月租金和押金不能为负数")
		}
		if err := validateLease(req.Lease); err != nil {
			return nil, err
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 换房产时目标房产必须存在
		if newPropertyID != current.PropertyID {
			var property models.Property
			if err := tx.First(&property, newPropertyID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return errors.NewInvalidParam("房产不存在")
				}
				return err
			}
		}

		// 换邮箱时重新检查唯一性
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			*req.Email = email
			if email != current.Email {
				var count int64
				err := tx.Model(&models.Tenant{}).
					Where("email = ? AND id != ?", email, id).Count(&count).Error
				if err != nil {
					return err
				}
				if count > 0 {
					return errors.NewConflict("邮箱已被注册")
				}
			}
		}

		wasActive := current.Status == models.TenantStatusActive
		isActive := newStatus == models.TenantStatusActive
		unitChanged := newPropertyID != current.PropertyID || newUnit != current.UnitNumber

		// 更新后处于Active且落点变化（或刚转为Active）时重查单元占用
		if isActive && (unitChanged || !wasActive) {
			if err := s.occupancy.CheckUnitVacant(tx, newPropertyID, newUnit, id); err != nil {
				return err
			}
		}

		// 入住计数调整
		switch {
		case wasActive && !isActive:
			if err := s.occupancy.DecrementOccupied(tx, current.PropertyID); err != nil {
				return err
			}
		case !wasActive && isActive:
			if err := s.occupancy.IncrementOccupied(tx, newPropertyID); err != nil {
				return err
			}
		case wasActive && isActive && newPropertyID != current.PropertyID:
			if err := s.occupancy.DecrementOccupied(tx, current.PropertyID); err != nil {
				return err
			}
			if err := s.occupancy.IncrementOccupied(tx, newPropertyID); err != nil {
				return err
			}
		}

		// 应用字段更新
		if req.FirstName != nil {
			current.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			current.LastName = *req.LastName
		}
		if req.Email != nil {
			current.Email = *req.Email
		}
		if req.Phone != nil {
			current.Phone = *req.Phone
		}
		current.PropertyID = newPropertyID
		current.UnitNumber = newUnit
		current.Status = newStatus
		if req.Lease != nil {
			current.Lease = *req.Lease
		}
		if req.EmergencyContact != nil {
			current.EmergencyContact = *req.EmergencyContact
		}
		if req.Notes != nil {
			current.Notes = *req.Notes
		}

		return tx.Save(&current).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(id)
}

// GetByID 根据ID获取租客，附带房产与历史记录
func (s *TenantService) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.Preload("Property").Preload("Documents").
		Preload("Payments").Preload("MaintenanceRequests").
		First(&tenant, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("租客不存在")
		}
		return nil, err
	}
	return &tenant, nil
}

// TenantListFilters 租客列表过滤条件
type TenantListFilters struct {
	Status     string
	PropertyID uint
	Search     string // 在姓名、邮箱、单元号上做不区分大小写的模糊匹配
}

// List 获取租客列表
func (s *TenantService) List(filters TenantListFilters, page, pageSize int) ([]models.Tenant, int64, error) {
	query := s.db.Model(&models.Tenant{})

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.PropertyID > 0 {
		query = query.Where("property_id = ?", filters.PropertyID)
	}
	if filters.Search != "" {
		// LOWER + LIKE 在postgres和sqlite上行为一致
		pattern := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(unit_number) LIKE ?",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	var tenants []models.Tenant
	err := query.Preload("Property").
		Offset(offset).Limit(pageSize).
		Order("created_at DESC").
		Find(&tenants).Error
	if err != nil {
		return nil, 0, err
	}

	return tenants, total, nil
}

// ListByProperty 获取某房产下的全部租客，按单元号排序
func (s *TenantService) ListByProperty(propertyID uint) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := s.db.Preload("Property").
		Where("property_id = ?", propertyID).
		Order("unit_number").
		Find(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

// Delete 删除租客
// 租客处于Active时在同一事务内将房产入住计数减一
func (s *TenantService) Delete(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.First(&tenant, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFound("租客不存在")
		}
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", id).Delete(&models.TenantDocument{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&models.TenantPayment{}).Error; err != nil {
			return err
		}
		// 租客发起的维修请求保留在房产名下，只解除租客关联
		err := tx.Model(&models.MaintenanceRequest{}).
			Where("tenant_id = ?", id).Update("tenant_id", nil).Error
		if err != nil {
			return err
		}

		if err := tx.Delete(&tenant).Error; err != nil {
			return err
		}

		if tenant.Status == models.TenantStatusActive {
			return s.occupancy.DecrementOccupied(tx, tenant.PropertyID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tenant.FillDerived()
	return &tenant, nil
}

// TenantStats 租客统计
type TenantStats struct {
	TotalTenants        int64   `json:"total_tenants"`
	ActiveTenants       int64   `json:"active_tenants"`
	InactiveTenants     int64   `json:"inactive_tenants"`
	PendingTenants      int64   `json:"pending_tenants"`
	EvictedTenants      int64   `json:"evicted_tenants"`
	AverageRent         int64   `json:"average_rent"`
	TotalMonthlyRevenue float64 `json:"total_monthly_revenue"`
}

const tenantStatsCacheKey = "tenant:stats"

// GetStats 租客统计概览，租金只统计Active租客
func (s *TenantService) GetStats() (*TenantStats, error) {
	if s.statsCache != nil {
		var cached TenantStats
		if hit, err := s.statsCache.Get(tenantStatsCacheKey, &cached); err == nil && hit {
			return &cached, nil
		} else if err != nil {
			logger.GetLogger().Warnf("读取租客统计缓存失败: %v", err)
		}
	}

	stats := &TenantStats{}

	if err := s.db.Model(&models.Tenant{}).Count(&stats.TotalTenants).Error; err != nil {
		return nil, err
	}

	statusCounts := map[string]*int64{
		models.TenantStatusActive:   &stats.ActiveTenants,
		models.TenantStatusInactive: &stats.InactiveTenants,
		models.TenantStatusPending:  &stats.PendingTenants,
		models.TenantStatusEvicted:  &stats.EvictedTenants,
	}
	for status, target := range statusCounts {
		err := s.db.Model(&models.Tenant{}).Where("status = ?", status).Count(target).Error
		if err != nil {
			return nil, err
		}
	}

	if stats.ActiveTenants > 0 {
		var agg struct {
			AverageRent float64
			TotalRent   float64
		}
		err := s.db.Model(&models.Tenant{}).
			Where("status = ?", models.TenantStatusActive).
			Select("COALESCE(AVG(lease_monthly_rent),0) AS average_rent, COALESCE(SUM(lease_monthly_rent),0) AS total_rent").
			Scan(&agg).Error
		if err != nil {
			return nil, err
		}
		stats.AverageRent = int64(math.Round(agg.AverageRent))
		stats.TotalMonthlyRevenue = agg.TotalRent
	}

	if s.statsCache != nil {
		if err := s.statsCache.Set(tenantStatsCacheKey, stats); err != nil {
			logger.GetLogger().Warnf("写入租客统计缓存失败: %v", err)
		}
	}
	return stats, nil
}

// AddPayment 追加缴费记录
func (s *TenantService) AddPayment(tenantID uint, payment *models.TenantPayment) error {
	var tenant models.Tenant
	if err := s.db.First(&tenant, tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NewNotFound("租客不存在")
		}
		return err
	}

	payment.TenantID = tenantID
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now()
	}
	if payment.TransactionID == "" {
		payment.TransactionID = uuid.New().String()
	}

	return s.db.Create(payment).Error
}

// AddDocument 追加资料记录
func (s *TenantService) AddDocument(tenantID uint, document *models.TenantDocument) error {
	var tenant models.Tenant
	if err := s.db.First(&tenant, tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NewNotFound("租客不存在")
		}
		return err
	}

	document.TenantID = tenantID
	if document.UploadedAt.IsZero() {
		document.UploadedAt = time.Now()
	}

	return s.db.Create(document).Error
}
