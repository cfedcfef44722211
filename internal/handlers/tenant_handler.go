package handlers

import (
	"fmt"
	"strconv"
	"time"

	"rentdesk/internal/models"
	"rentdesk/internal/services"
	"rentdesk/pkg/pagination"
	"rentdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// TenantHandler 租客处理器
type TenantHandler struct {
	tenantService *services.TenantService
}

// NewTenantHandler 创建租客处理器实例
func NewTenantHandler(tenantService *services.TenantService) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
	}
}

// 校验错误转换为友好提示
func tenantValidationMessage(err error) string {
	if validationErr, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErr {
			switch fieldErr.Field() {
			case "FirstName", "LastName":
				return "姓名不能为空，且不超过50个字符"
			case "Email":
				return "请提供有效的邮箱地址"
			case "Phone":
				return "请提供10位数字的电话号码"
			case "PropertyID":
				return "必须指定所属房产"
			case "UnitNumber":
				return "单元号不能为空"
			case "StartDate", "EndDate":
				return "租约开始和结束日期不能为空"
			case "MonthlyRent", "SecurityDeposit":
				return "月租金和押金不能为负数"
			case "PaymentDay":
				return "缴租日必须在1到31之间"
			case "Status":
				return "租客状态必须是 Active、Inactive、Pending 或 Evicted"
			case "Notes":
				return "备注不能超过1000个字符"
			default:
				return fmt.Sprintf("字段 %s 验证失败", fieldErr.Field())
			}
		}
	}
	return "请求参数格式错误"
}

// Create 创建租客
func (h *TenantHandler) Create(c *gin.Context) {
	var req struct {
		FirstName  string `json:"first_name" binding:"required,min=1,max=50"`
		LastName   string `json:"last_name" binding:"required,min=1,max=50"`
		Email      string `json:"email" binding:"required,email"`
		Phone      string `json:"phone" binding:"required,len=10,numeric"`
		PropertyID uint   `json:"property_id" binding:"required"`
		UnitNumber string `json:"unit_number" binding:"required,min=1,max=20"`
		Lease      struct {
			StartDate       time.Time `json:"start_date" binding:"required"`
			EndDate         time.Time `json:"end_date" binding:"required"`
			MonthlyRent     float64   `json:"monthly_rent" binding:"min=0"`
			SecurityDeposit float64   `json:"security_deposit" binding:"min=0"`
			PaymentDay      int       `json:"payment_day" binding:"omitempty,min=1,max=31"`
		} `json:"lease_details" binding:"required"`
		Status           string                  `json:"status" binding:"omitempty,oneof=Active Inactive Pending Evicted"`
		EmergencyContact models.EmergencyContact `json:"emergency_contact"`
		Notes            string                  `json:"notes" binding:"max=1000"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, tenantValidationMessage(err))
		return
	}

	tenant := &models.Tenant{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		PropertyID: req.PropertyID,
		UnitNumber: req.UnitNumber,
		Lease: models.LeaseDetails{
			StartDate:       req.Lease.StartDate,
			EndDate:         req.Lease.EndDate,
			MonthlyRent:     req.Lease.MonthlyRent,
			SecurityDeposit: req.Lease.SecurityDeposit,
			PaymentDay:      req.Lease.PaymentDay,
		},
		Status:           req.Status,
		EmergencyContact: req.EmergencyContact,
		Notes:            req.Notes,
	}

	if err := h.tenantService.Create(tenant); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租客创建成功", tenant)
}

// GetByID 获取租客详情（附带房产信息）
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的租客ID")
		return
	}

	tenant, err := h.tenantService.GetByID(uint(id))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, tenant)
}

// Update 更新租客
func (h *TenantHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的租客ID")
		return
	}

	var req services.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, tenantValidationMessage(err))
		return
	}

	tenant, err := h.tenantService.Update(uint(id), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租客更新成功", tenant)
}

// Delete 删除租客
func (h *TenantHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的租客ID")
		return
	}

	tenant, err := h.tenantService.Delete(uint(id))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租客删除成功", tenant)
}

// List 获取租客列表
func (h *TenantHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)

	filters := services.TenantListFilters{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}
	if property := c.Query("property"); property != "" {
		propertyID, err := strconv.ParseUint(property, 10, 64)
		if err != nil {
			response.BadRequest(c, "无效的房产ID")
			return
		}
		filters.PropertyID = uint(propertyID)
	}

	tenants, total, err := h.tenantService.List(filters, params.Page, params.PageSize)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	pageInfo := pagination.NewPageInfo(params.Page, params.PageSize, total)
	response.SuccessWithPage(c, tenants, pageInfo)
}

// ListByProperty 获取某房产下的租客
func (h *TenantHandler) ListByProperty(c *gin.Context) {
	propertyID, err := strconv.ParseUint(c.Param("propertyId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房产ID")
		return
	}

	tenants, err := h.tenantService.ListByProperty(uint(propertyID))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, tenants)
}

// GetStats 租客统计概览
func (h *TenantHandler) GetStats(c *gin.Context) {
	stats, err := h.tenantService.GetStats()
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, stats)
}

// AddPayment 追加缴费记录
func (h *TenantHandler) AddPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的租客ID")
		return
	}

	var req struct {
		Amount      float64   `json:"amount" binding:"required,min=0"`
		PaymentDate time.Time `json:"payment_date"`
		Method      string    `json:"payment_method" binding:"omitempty,oneof=Cash Check 'Bank Transfer' Online 'Credit Card'"`
		Status      string    `json:"status" binding:"omitempty,oneof=Paid Pending Late Partial"`
		Month       string    `json:"month" binding:"max=20"`
		Year        int       `json:"year"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "缴费记录参数错误: "+err.Error())
		return
	}

	payment := &models.TenantPayment{
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate,
		Method:      req.Method,
		Status:      req.Status,
		Month:       req.Month,
		Year:        req.Year,
	}

	if err := h.tenantService.AddPayment(uint(id), payment); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "缴费记录已添加", payment)
}

// AddDocument 追加资料记录
func (h *TenantHandler) AddDocument(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的租客ID")
		return
	}

	var req struct {
		Type     string `json:"type" binding:"required,oneof='ID Proof' 'Lease Agreement' 'Income Proof' Other"`
		FileName string `json:"file_name" binding:"max=255"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "资料类型必须是 ID Proof、Lease Agreement、Income Proof 或 Other")
		return
	}

	document := &models.TenantDocument{
		Type:     req.Type,
		FileName: req.FileName,
	}

	if err := h.tenantService.AddDocument(uint(id), document); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "资料记录已添加", document)
}
