package models

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

// 租客状态
const (
	TenantStatusActive   = "Active"
	TenantStatusInactive = "Inactive"
	TenantStatusPending  = "Pending"
	TenantStatusEvicted  = "Evicted"
)

// 租约状态（派生值，与租客状态区分）
const (
	LeaseStatusExpired = "Expired"
	LeaseStatusFuture  = "Future"
	LeaseStatusActive  = "Active"
)

// LeaseDetails 租约信息
type LeaseDetails struct {
	StartDate       time.Time `gorm:"not null" json:"start_date"`
	EndDate         time.Time `gorm:"not null;index" json:"end_date"`
	MonthlyRent     float64   `gorm:"not null" json:"monthly_rent"`
	SecurityDeposit float64   `gorm:"not null" json:"security_deposit"`
	PaymentDay      int       `gorm:"default:1" json:"payment_day"` // 每月缴租日 1-31
}

// EmergencyContact 紧急联系人
type EmergencyContact struct {
	Name         string `gorm:"size:100" json:"name"`
	Relationship string `gorm:"size:50" json:"relationship"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// Tenant 租客模型
type Tenant struct {
	BaseModel

	// 身份信息
	FirstName string `gorm:"size:50;not null" json:"first_name"`
	LastName  string `gorm:"size:50;not null" json:"last_name"`
	Email     string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Phone     string `gorm:"size:20;not null" json:"phone"`

	// 入住信息，(PropertyID, UnitNumber) 上同一时间最多一个Active租客
	PropertyID uint   `gorm:"not null;index" json:"property_id"`
	UnitNumber string `gorm:"size:20;not null" json:"unit_number"`

	Lease  LeaseDetails `gorm:"embedded;embeddedPrefix:lease_" json:"lease_details"`
	Status string       `gorm:"size:20;default:'Active';index" json:"status"`

	EmergencyContact EmergencyContact `gorm:"embedded;embeddedPrefix:emergency_" json:"emergency_contact"`
	Notes            string           `gorm:"size:1000" json:"notes"`

	// 派生字段，读取时计算
	FullName          string `gorm:"-" json:"full_name"`
	LeaseStatus       string `gorm:"-" json:"lease_status"`
	DaysUntilLeaseEnd int    `gorm:"-" json:"days_until_lease_end"`

	// 关联
	Property            *Property            `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Documents           []TenantDocument     `gorm:"foreignKey:TenantID" json:"documents,omitempty"`
	Payments            []TenantPayment      `gorm:"foreignKey:TenantID" json:"payment_history,omitempty"`
	MaintenanceRequests []MaintenanceRequest `gorm:"foreignKey:TenantID" json:"maintenance_requests,omitempty"`
}

// AfterFind 填充派生字段
func (t *Tenant) AfterFind(tx *gorm.DB) error {
	t.FillDerived()
	return nil
}

// FillDerived 计算姓名、租约状态和剩余天数
func (t *Tenant) FillDerived() {
	t.FullName = fmt.Sprintf("%s %s", t.FirstName, t.LastName)

	now := time.Now()
	switch {
	case t.Lease.EndDate.Before(now):
		t.LeaseStatus = LeaseStatusExpired
	case t.Lease.StartDate.After(now):
		t.LeaseStatus = LeaseStatusFuture
	default:
		t.LeaseStatus = LeaseStatusActive
	}

	t.DaysUntilLeaseEnd = int(math.Ceil(t.Lease.EndDate.Sub(now).Hours() / 24))
}

// 租客资料类型
const (
	DocumentTypeIDProof        = "ID Proof"
	DocumentTypeLeaseAgreement = "Lease Agreement"
	DocumentTypeIncomeProof    = "Income Proof"
	DocumentTypeOther          = "Other"
)

// TenantDocument 租客资料记录
type TenantDocument struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	TenantID   uint      `gorm:"not null;index" json:"tenant_id"`
	Type       string    `gorm:"size:30;not null" json:"type"`
	FileName   string    `gorm:"size:255" json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// 缴费方式
const (
	PaymentMethodCash         = "Cash"
	PaymentMethodCheck        = "Check"
	PaymentMethodBankTransfer = "Bank Transfer"
	PaymentMethodOnline       = "Online"
	PaymentMethodCreditCard   = "Credit Card"
)

// 缴费状态
const (
	PaymentStatusPaid    = "Paid"
	PaymentStatusPending = "Pending"
	PaymentStatusLate    = "Late"
	PaymentStatusPartial = "Partial"
)

// TenantPayment 租客缴费记录
type TenantPayment struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TenantID      uint      `gorm:"not null;index" json:"tenant_id"`
	Amount        float64   `gorm:"not null" json:"amount"`
	PaymentDate   time.Time `json:"payment_date"`
	Method        string    `gorm:"size:20" json:"payment_method"`
	Status        string    `gorm:"size:20;default:'Pending'" json:"status"`
	Month         string    `gorm:"size:20" json:"month"`
	Year          int       `json:"year"`
	TransactionID string    `gorm:"size:40;index" json:"transaction_id"`
}
