package main

import (
	"encoding/csv"
	"log"
	"net/http"
	"os"

	config "github.com/surabhi65/Retail-Sales-Chatbot/configs"
	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/handlers"
	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	// Ginルーターの初期化
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService()
	datasetService := services.NewDatasetService()
	aggregationService := services.NewAggregationService()
	repurchaseService := services.NewRepurchaseService(
		cfg.RepurchaseOrdersThreshold,
		cfg.RepurchaseSalesThreshold,
		cfg.TrainSplit,
		cfg.RandomSeed,
	)
	forecastService := services.NewForecastService(cfg.ForecastHorizonYears)
	chatbotService := services.NewChatbotService(aggregationService, repurchaseService, forecastService)

	// ハンドラーの初期化
	chatHandler := handlers.NewChatHandler(
		cfg,
		datasetService,
		aggregationService,
		repurchaseService,
		forecastService,
		chatbotService,
	)
	adminHandler := handlers.NewAdminHandler(cfg)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// 起動時データロード（任意）
	if cfg.SalesDataPath != "" {
		if err := loadInitialDataset(cfg.SalesDataPath, datasetService, chatHandler); err != nil {
			log.Printf("⚠️ 起動時のデータロードに失敗しました: %v", err)
		}
	}

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" || apiKey == "default_secret_key" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	// ヘルスチェックエンドポイント
	r.GET("/health", handlers.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}

		// チャットボットAPI
		chat := v1.Group("/chat")
		{
			chat.POST("", chatHandler.Chat)
			chat.GET("/suggestions", chatHandler.Suggestions)
		}

		// ダッシュボード・モデルAPI
		v1.GET("/summary", chatHandler.Summary)
		v1.GET("/forecast", chatHandler.Forecast)
		v1.POST("/repurchase", chatHandler.PredictRepurchase)
		v1.POST("/upload", chatHandler.UploadDataset)
	}

	log.Printf("Starting Retail Sales Chatbot API server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// loadInitialDataset はCSVファイルからアクティブなデータセットを初期化します。
func loadInitialDataset(path string, datasetService *services.DatasetService, chatHandler *handlers.ChatHandler) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return err
	}

	dataset, err := datasetService.Load(rows)
	if err != nil {
		return err
	}

	chatHandler.SetDataset(dataset)
	log.Printf("✅ 起動時データロード完了: %s (%d行)", path, dataset.Len())
	return nil
}
