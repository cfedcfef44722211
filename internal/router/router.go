package router

import (
	"time"

	"rentdesk/internal/database"
	"rentdesk/internal/handlers"
	"rentdesk/internal/middleware"
	"rentdesk/internal/services"
	"rentdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter() *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	// 注册路由
	registerRoutes(router)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine) {
	db := database.GetDB()
	statsCache := database.GetStatsCache()

	propertyService := services.NewPropertyService(db, statsCache)
	tenantService := services.NewTenantService(db, statsCache)
	occupancyService := services.NewOccupancyService(db)

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 房产路由
		propertyHandler := handlers.NewPropertyHandler(propertyService, occupancyService)
		properties := api.Group("/properties")
		{
			// 基础CRUD
			properties.GET("", propertyHandler.List)
			properties.POST("", propertyHandler.Create)
			properties.GET("/:id", propertyHandler.GetByID)
			properties.PUT("/:id", propertyHandler.Update)
			properties.DELETE("/:id", propertyHandler.Delete)

			// 统计
			properties.GET("/stats/overview", propertyHandler.GetStats)

			// 维修请求子资源
			properties.POST("/:id/maintenance", propertyHandler.AddMaintenance)
			properties.PUT("/:id/maintenance/:requestId", propertyHandler.UpdateMaintenanceStatus)

			// 入住计数对账（纠偏工具，非常规路径）
			properties.POST("/occupancy/recount", propertyHandler.RecountAll)
			properties.POST("/:id/occupancy/recount", propertyHandler.Recount)
		}

		// 租客路由
		tenantHandler := handlers.NewTenantHandler(tenantService)
		tenants := api.Group("/tenants")
		{
			// 基础CRUD
			tenants.GET("", tenantHandler.List)
			tenants.POST("", tenantHandler.Create)
			tenants.GET("/:id", tenantHandler.GetByID)
			tenants.PUT("/:id", tenantHandler.Update)
			tenants.DELETE("/:id", tenantHandler.Delete)

			// 按房产查询
			tenants.GET("/property/:propertyId", tenantHandler.ListByProperty)

			// 统计
			tenants.GET("/stats/overview", tenantHandler.GetStats)

			// 缴费与资料子资源
			tenants.POST("/:id/payments", tenantHandler.AddPayment)
			tenants.POST("/:id/documents", tenantHandler.AddDocument)
		}

		// 仪表盘实时推送
		dashboardHandler := handlers.NewDashboardHandler(propertyService, tenantService)
		api.GET("/dashboard/live", dashboardHandler.Live)
	}
}

// healthCheck 健康检查
func healthCheck(c *gin.Context) {
	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		response.ServerError(c, "数据库连接异常")
		return
	}

	response.Success(c, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// ping 探活
func ping(c *gin.Context) {
	response.Success(c, gin.H{
		"message": "pong",
	})
}
