package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 房产类型
const (
	PropertyTypeApartment  = "Apartment"
	PropertyTypeHouse      = "House"
	PropertyTypeCommercial = "Commercial"
	PropertyTypeCondo      = "Condo"
	PropertyTypeTownhouse  = "Townhouse"
	PropertyTypeVilla      = "Villa"
)

// 房产状态
const (
	PropertyStatusAvailable   = "Available"
	PropertyStatusOccupied    = "Occupied"
	PropertyStatusMaintenance = "Maintenance"
	PropertyStatusReserved    = "Reserved"
)

// PropertyOwner 业主信息
type PropertyOwner struct {
	Name    string `gorm:"size:100" json:"name"`
	Contact string `gorm:"size:50" json:"contact"`
	Email   string `gorm:"size:100" json:"email"`
}

// Property 房产模型
type Property struct {
	BaseModel

	// 核心字段
	Name    string  `gorm:"size:100;not null;index" json:"name"`
	Address string  `gorm:"size:255;not null" json:"address"`
	Type    string  `gorm:"size:20;not null;default:'Apartment';index" json:"type"`
	Units   int     `gorm:"not null" json:"units"`
	Rent    float64 `gorm:"not null;index" json:"rent"`
	Status  string  `gorm:"size:20;default:'Available';index" json:"status"`

	// 附加信息
	Amenities   datatypes.JSON `gorm:"type:json" json:"amenities"`
	Description string         `gorm:"size:500" json:"description"`
	Owner       PropertyOwner  `gorm:"embedded;embeddedPrefix:owner_" json:"owner"`
	Images      datatypes.JSON `gorm:"type:json" json:"images"`

	// 入住计数，只由入住协调逻辑维护
	OccupiedUnits int `gorm:"default:0" json:"occupied_units"`

	// 派生字段，读取时计算
	OccupancyRate  float64 `gorm:"-" json:"occupancy_rate"`
	AvailableUnits int     `gorm:"-" json:"available_units"`

	// 关联
	MaintenanceRequests []MaintenanceRequest `gorm:"foreignKey:PropertyID" json:"maintenance_requests,omitempty"`
}

// AfterFind 填充派生字段
func (p *Property) AfterFind(tx *gorm.DB) error {
	p.FillDerived()
	return nil
}

// FillDerived 计算入住率和可用单元数
func (p *Property) FillDerived() {
	if p.Units > 0 {
		p.OccupancyRate = math.Round(float64(p.OccupiedUnits)/float64(p.Units)*100*100) / 100
	} else {
		p.OccupancyRate = 0
	}
	p.AvailableUnits = p.Units - p.OccupiedUnits
}

// 维修请求优先级
const (
	MaintenancePriorityLow    = "Low"
	MaintenancePriorityMedium = "Medium"
	MaintenancePriorityHigh   = "High"
	MaintenancePriorityUrgent = "Urgent"
)

// 维修请求状态
const (
	MaintenanceStatusPending    = "Pending"
	MaintenanceStatusInProgress = "In Progress"
	MaintenanceStatusCompleted  = "Completed"
)

// MaintenanceRequest 维修请求
type MaintenanceRequest struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	PropertyID  uint       `gorm:"not null;index" json:"property_id"`
	TenantID    *uint      `gorm:"index" json:"tenant_id,omitempty"` // 租客发起的维修请求
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"size:1000" json:"description"`
	Priority    string     `gorm:"size:20;default:'Medium'" json:"priority"`
	Status      string     `gorm:"size:20;default:'Pending'" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
