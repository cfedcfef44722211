package handlers

import (
	"net/http"
	"time"

	"rentdesk/internal/services"
	"rentdesk/pkg/config"
	"rentdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// DashboardHandler 仪表盘实时推送处理器
type DashboardHandler struct {
	upgrader        websocket.Upgrader
	propertyService *services.PropertyService
	tenantService   *services.TenantService
	log             *logrus.Logger
	interval        time.Duration
}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler(propertyService *services.PropertyService, tenantService *services.TenantService) *DashboardHandler {
	cfg := config.GetConfig()
	allowedOrigins := cfg.CORS.AllowOrigins

	return &DashboardHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// 同源请求Origin为空，直接允许
				if origin == "" {
					return true
				}

				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}

				logger.GetLogger().Warnf("WebSocket连接被拒绝，非法Origin: %s", origin)
				return false
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		propertyService: propertyService,
		tenantService:   tenantService,
		log:             logger.GetLogger(),
		interval:        5 * time.Second,
	}
}

// dashboardSnapshot 推送给前端的统计快照
type dashboardSnapshot struct {
	PropertyStats *services.PropertyStats `json:"property_stats"`
	TenantStats   *services.TenantStats   `json:"tenant_stats"`
	Timestamp     int64                   `json:"timestamp"`
}

// Live 仪表盘实时统计推送
// 建立连接后立即推送一次快照，之后按固定间隔推送
func (h *DashboardHandler) Live(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("WebSocket升级失败: %v", err)
		return
	}
	defer conn.Close()

	// 读协程只用于感知客户端断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.pushSnapshot(conn); err != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.pushSnapshot(conn); err != nil {
				return
			}
		}
	}
}

func (h *DashboardHandler) pushSnapshot(conn *websocket.Conn) error {
	propertyStats, err := h.propertyService.GetStats()
	if err != nil {
		h.log.Errorf("获取房产统计失败: %v", err)
		return err
	}
	tenantStats, err := h.tenantService.GetStats()
	if err != nil {
		h.log.Errorf("获取租客统计失败: %v", err)
		return err
	}

	snapshot := dashboardSnapshot{
		PropertyStats: propertyStats,
		TenantStats:   tenantStats,
		Timestamp:     time.Now().Unix(),
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(snapshot)
}
