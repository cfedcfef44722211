package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"

	"rentdesk/internal/models"
	"rentdesk/internal/services"
	"rentdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// PropertyHandler 房产处理器
type PropertyHandler struct {
	propertyService  *services.PropertyService
	occupancyService *services.OccupancyService
}

// NewPropertyHandler 创建房产处理器实例
func NewPropertyHandler(propertyService *services.PropertyService, occupancyService *services.OccupancyService) *PropertyHandler {
	return &PropertyHandler{
		propertyService:  propertyService,
		occupancyService: occupancyService,
	}
}

// 校验错误转换为友好提示
func propertyValidationMessage(err error) string {
	if validationErr, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErr {
			switch fieldErr.Field() {
			case "Name":
				return "房产名称不能为空，且不超过100个字符"
			case "Address":
				return "房产地址不能为空"
			case "Type":
				return "房产类型必须是 Apartment、House、Commercial、Condo、Townhouse 或 Villa"
			case "Units":
				return "单元数必须大于等于1"
			case "Rent":
				return "租金不能为负数"
			case "Status":
				return "房产状态必须是 Available、Occupied、Maintenance 或 Reserved"
			case "Description":
				return "描述不能超过500个字符"
			default:
				return fmt.Sprintf("字段 %s 验证失败", fieldErr.Field())
			}
		}
	}
	return "请求参数格式错误"
}

func toJSONList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}

// Create 创建房产
func (h *PropertyHandler) Create(c *gin.Context) {
	var req services.UpdatePropertyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, propertyValidationMessage(err))
		return
	}

	property := &models.Property{
		Name:        req.Name,
		Address:     req.Address,
		Type:        req.Type,
		Units:       req.Units,
		Rent:        *req.Rent,
		Status:      req.Status,
		Amenities:   toJSONList(req.Amenities),
		Description: req.Description,
		Owner:       req.Owner,
		Images:      toJSONList(req.Images),
	}

	if err := h.propertyService.Create(property); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "房产创建成功", property)
}

// GetByID 获取房产详情
func (h *PropertyHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房产ID")
		return
	}

	property, err := h.propertyService.GetByID(uint(id))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, property)
}

// Update 更新房产
// 全量更新，所有字段重新校验
func (h *PropertyHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房产ID")
		return
	}

	var req services.UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, propertyValidationMessage(err))
		return
	}

	updates := map[string]interface{}{
		"name":          req.Name,
		"address":       req.Address,
		"type":          req.Type,
		"units":         req.Units,
		"rent":          *req.Rent,
		"description":   req.Description,
		"amenities":     toJSONList(req.Amenities),
		"images":        toJSONList(req.Images),
		"owner_name":    req.Owner.Name,
		"owner_contact": req.Owner.Contact,
		"owner_email":   req.Owner.Email,
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}

	property, err := h.propertyService.Update(uint(id), updates)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "房产更新成功", property)
}

// Delete 删除房产
func (h *PropertyHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房产ID")
		return
	}

	if err := h.propertyService.Delete(uint(id)); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "房产删除成功", nil)
}

// List 获取房产列表
func (h *PropertyHandler) List(c *gin.Context) {
	filters := services.PropertyListFilters{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		SortBy: c.Query("sortBy"),
	}

	if minRent := c.Query("minRent"); minRent != "" {
		value, err := strconv.ParseFloat(minRent, 64)
		if err != nil {
			response.BadRequest(c, "无效的最低租金")
			return
		}
		filters.MinRent = &value
	}
	if maxRent := c.Query("maxRent"); maxRent != "" {
		value, err := strconv.ParseFloat(maxRent, 64)
		if err != nil {
			response.BadRequest(c, "无效的最高租金")
			return
		}
		filters.MaxRent = &value
	}

	properties, err := h.propertyService.List(filters)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"count":      len(properties),
		"properties": properties,
	})
}

// GetStats 房产统计概览
func (h *PropertyHandler) GetStats(c *gin.Context) {
	stats, err := h.propertyService.GetStats()
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, stats)
}

// AddMaintenance 追加维修请求
func (h *PropertyHandler) AddMaintenance(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房产ID")
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required,min=1,max=200"`
		Description string `json:"description" binding:"max=1000"`
		Priority    string `json:"priority" binding:"omitempty,oneof=Low Medium High Urgent"`
		Status      string `json:"status" binding:"omitempty,oneof=Pending 'In Progress' Completed"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "维修请求参数错误: "+err.Error())
		return
	}

	request := &models.MaintenanceRequest{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
	}

	property, err := h.propertyService.AddMaintenanceRequest(uint(id), request)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "维修请求已创建", property)
}

// UpdateMaintenanceStatus 更新维修请求状态
func (h *PropertyHandler) UpdateMaintenanceStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房产ID")
		return
	}
	requestID, err := strconv.ParseUint(c.Param("requestId"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的维修请求ID")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=Pending 'In Progress' Completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "维修状态必须是 Pending、In Progress 或 Completed")
		return
	}

	property, err := h.propertyService.UpdateMaintenanceStatus(uint(id), uint(requestID), req.Status)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "维修状态已更新", property)
}

// Recount 重算单个房产的入住计数
func (h *PropertyHandler) Recount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的房产ID")
		return
	}

	result, err := h.occupancyService.Recount(uint(id))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "入住计数对账完成", result)
}

// RecountAll 重算所有房产的入住计数
func (h *PropertyHandler) RecountAll(c *gin.Context) {
	result, err := h.occupancyService.RecountAll()
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "入住计数对账完成", result)
}
