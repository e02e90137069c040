package handlers

import (
	"net/http"
	"time"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler はモニタリング関連の操作のハンドラです。
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{
		Service: service,
	}
}

// GetLogs は集計されたリクエスト統計を返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	periodStr := c.DefaultQuery("period", "24h")
	var period time.Duration

	switch periodStr {
	case "1h":
		period = time.Hour
	case "24h":
		period = 24 * time.Hour
	case "7d":
		period = 7 * 24 * time.Hour
	default:
		period = 24 * time.Hour
	}

	c.JSON(http.StatusOK, h.Service.GetStats(period))
}
