package handlers

import (
	"log"
	"net/http"
	"strconv"
	"sync"

	config "github.com/surabhi65/Retail-Sales-Chatbot/configs"
	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"
	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// trainedModels はあるビューに対して学習済みのモデル一式です。
type trainedModels struct {
	profiles    []models.CustomerProfile
	repurchase  *models.RepurchaseModel
	forecast    *models.ForecastModel
	forecastErr error
}

// ChatHandler はチャット・ダッシュボード関連のハンドラです。
// アクティブなDatasetと、(データセットバージョン, フィルタ)ごとの
// 学習済みモデルキャッシュを保持します。Datasetの差し替えでキャッシュは
// 丸ごと無効になります。
type ChatHandler struct {
	cfg               *config.Config
	datasetService    *services.DatasetService
	aggregation       *services.AggregationService
	repurchaseService *services.RepurchaseService
	forecastService   *services.ForecastService
	chatbotService    *services.ChatbotService

	mu         sync.RWMutex
	dataset    *models.Dataset
	modelCache map[string]*trainedModels
}

// NewChatHandler は新しいChatHandlerを生成します。
func NewChatHandler(
	cfg *config.Config,
	datasetService *services.DatasetService,
	aggregation *services.AggregationService,
	repurchaseService *services.RepurchaseService,
	forecastService *services.ForecastService,
	chatbotService *services.ChatbotService,
) *ChatHandler {
	return &ChatHandler{
		cfg:               cfg,
		datasetService:    datasetService,
		aggregation:       aggregation,
		repurchaseService: repurchaseService,
		forecastService:   forecastService,
		chatbotService:    chatbotService,
		modelCache:        make(map[string]*trainedModels),
	}
}

// SetDataset はアクティブなDatasetを差し替え、モデルキャッシュを破棄します。
func (h *ChatHandler) SetDataset(ds *models.Dataset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dataset = ds
	h.modelCache = make(map[string]*trainedModels)
	log.Printf("📊 データセットを差し替えました: version=%s, %d行", ds.Version, ds.Len())
}

// Dataset は現在のDatasetを返します（未ロードならnil）。
func (h *ChatHandler) Dataset() *models.Dataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dataset
}

// modelsFor はビューに対する学習済みモデルを返します（なければ学習してキャッシュ）。
func (h *ChatHandler) modelsFor(ds *models.Dataset, filter models.DatasetFilter, view models.DatasetView) *trainedModels {
	key := ds.Version + "|" + filter.Key()

	h.mu.RLock()
	cached, ok := h.modelCache[key]
	h.mu.RUnlock()
	if ok {
		return cached
	}

	tm := &trainedModels{}
	tm.profiles = h.repurchaseService.BuildProfiles(view)

	model, err := h.repurchaseService.Train(tm.profiles)
	if err != nil {
		log.Printf("⚠️ 再購入モデルを学習できません: %v", err)
	} else {
		tm.repurchase = model
		log.Printf("✅ 再購入モデル学習完了: 学習%d件/検証%d件, 精度%.1f%%",
			model.TrainSize, model.TestSize, model.Accuracy*100)
	}

	forecast, err := h.forecastService.Train(view)
	if err != nil {
		tm.forecastErr = err
		log.Printf("⚠️ 売上予測モデルを学習できません: %v", err)
	} else {
		tm.forecast = forecast
		log.Printf("✅ 売上予測モデル学習完了: slope=%.2f, R²=%.3f", forecast.Slope, forecast.RSquared)
	}

	h.mu.Lock()
	h.modelCache[key] = tm
	h.mu.Unlock()
	return tm
}

// Chat は自由入力のクエリをディスパッチして結果エンベロープを返します。
func (h *ChatHandler) Chat(c *gin.Context) {
	ds := h.Dataset()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "売上データがまだロードされていません。/upload でデータを登録してください。",
		})
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	// セッションIDが指定されていない場合は新規生成
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	view := h.datasetService.Filter(ds, req.Filter)
	tm := h.modelsFor(ds, req.Filter, view)

	result := h.chatbotService.Dispatch(req.Message, &services.QueryContext{
		View:        view,
		Profiles:    tm.profiles,
		Repurchase:  tm.repurchase,
		Forecast:    tm.forecast,
		ForecastErr: tm.forecastErr,
	})

	log.Printf("💬 query=%q filter=%s -> %s", req.Message, req.Filter.Key(), result.Type)

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"session_id":      req.SessionID,
		"dataset_version": ds.Version,
		"matched_rows":    view.Len(),
		"result":          result,
	})
}

// Suggestions は入力例の一覧を返します。
func (h *ChatHandler) Suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"suggestions": h.chatbotService.Suggestions(),
	})
}

// Summary はダッシュボード先頭のメトリクスカード一式を返します。
func (h *ChatHandler) Summary(c *gin.Context) {
	ds := h.Dataset()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "売上データがまだロードされていません。",
		})
		return
	}

	totalSales, err := h.aggregation.Sum(ds, models.ColSales)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	count := func(col models.Column) int {
		n, countErr := h.aggregation.CountDistinct(ds, col)
		if countErr != nil {
			return 0
		}
		return n
	}

	summary := models.DashboardSummary{
		TotalSales:         totalSales,
		TotalTransactions:  count(models.ColOrderID),
		TotalCustomers:     count(models.ColCustomerID),
		TotalStates:        count(models.ColState),
		TotalCountries:     count(models.ColCountry),
		TotalCities:        count(models.ColCity),
		TotalCategories:    count(models.ColCategory),
		TotalProducts:      count(models.ColProductName),
		TotalSegments:      count(models.ColSegment),
		TotalSubCategories: count(models.ColSubCategory),
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"dataset_version": ds.Version,
		"loaded_at":       ds.LoadedAt,
		"rows":            ds.Len(),
		"summary":         summary,
	})
}

// Forecast は年次売上予測を返します。horizonクエリパラメータで年数を指定できます。
func (h *ChatHandler) Forecast(c *gin.Context) {
	ds := h.Dataset()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "売上データがまだロードされていません。",
		})
		return
	}

	horizon := 0
	if v := c.Query("horizon"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			horizon = n
		}
	}

	filter := filterFromQuery(c)
	view := h.datasetService.Filter(ds, filter)
	tm := h.modelsFor(ds, filter, view)

	if tm.forecast == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   tm.forecastErr.Error(),
		})
		return
	}

	series, _ := h.forecastService.BuildYearlySeries(view)
	points := h.forecastService.Forecast(tm.forecast, horizon)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"history":   series,
		"forecast":  points,
		"slope":     tm.forecast.Slope,
		"r_squared": tm.forecast.RSquared,
	})
}

// PredictRepurchase は指定顧客の再購入予測を返します。
// 未知の顧客はfound=falseの正常応答です（404にはしません）。
func (h *ChatHandler) PredictRepurchase(c *gin.Context) {
	ds := h.Dataset()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "売上データがまだロードされていません。",
		})
		return
	}

	var req models.RepurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が正しくありません: " + err.Error()})
		return
	}

	view := h.datasetService.Filter(ds, req.Filter)
	tm := h.modelsFor(ds, req.Filter, view)

	if tm.repurchase == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   "この絞り込みでは再購入モデルを学習できません（顧客数が不足しています）。",
		})
		return
	}

	pred := h.repurchaseService.Predict(tm.repurchase, req.CustomerName, tm.profiles)
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"prediction":     pred,
		"model_accuracy": tm.repurchase.Accuracy,
	})
}

// filterFromQuery はクエリパラメータから絞り込み条件を組み立てます。
func filterFromQuery(c *gin.Context) models.DatasetFilter {
	filter := models.DatasetFilter{
		Category: c.Query("category"),
		Region:   c.Query("region"),
		Customer: c.Query("customer"),
	}
	if v := c.Query("year"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			filter.Year = year
		}
	}
	return filter
}
