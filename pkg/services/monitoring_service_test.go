package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitoringGetStats(t *testing.T) {
	service := NewMonitoringService()
	now := time.Now()

	service.LogRequest(RequestLog{Timestamp: now, Path: "/api/v1/chat", Method: "POST", StatusCode: 200, ResponseTime: 10 * time.Millisecond})
	service.LogRequest(RequestLog{Timestamp: now, Path: "/api/v1/chat", Method: "POST", StatusCode: 200, ResponseTime: 30 * time.Millisecond})
	service.LogRequest(RequestLog{Timestamp: now, Path: "/api/v1/upload", Method: "POST", StatusCode: 500, ResponseTime: 5 * time.Millisecond})
	// 期間外のログは集計されない
	service.LogRequest(RequestLog{Timestamp: now.Add(-2 * time.Hour), Path: "/api/v1/summary", Method: "GET", StatusCode: 200, ResponseTime: time.Millisecond})

	stats := service.GetStats(time.Hour)

	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 2, stats.Endpoints["/api/v1/chat"])
	assert.Equal(t, 2, stats.StatusCodes["2xx Success"])
	assert.Equal(t, 1, stats.StatusCodes["5xx Server Error"])
	assert.Equal(t, int64(20), stats.AvgResponseTimes["/api/v1/chat"])
	assert.Len(t, stats.RecentErrors, 1)
	assert.Equal(t, "/api/v1/upload", stats.RecentErrors[0].Path)
}
