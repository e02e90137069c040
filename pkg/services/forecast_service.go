package services

import (
	"fmt"
	"sort"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"
)

// ForecastService は年次売上のトレンドモデルを学習し、将来の売上を予測します。
//
// 予測値はトレンドの延長そのままで、下降トレンドでは負値になり得ます。
// ゼロでのクランプは意図的に行っていません（仕様判断）。
type ForecastService struct {
	defaultHorizon int
}

// NewForecastService は新しいForecastServiceを作成します。
func NewForecastService(defaultHorizon int) *ForecastService {
	if defaultHorizon <= 0 {
		defaultHorizon = 4
	}
	return &ForecastService{defaultHorizon: defaultHorizon}
}

// DefaultHorizon は既定の予測年数を返します。
func (s *ForecastService) DefaultHorizon() int {
	return s.defaultHorizon
}

// BuildYearlySeries は年ごとの売上合計を年昇順で返します。
// 2年未満の履歴しか無い場合はInsufficientHistoryErrorを返します
// （1点には意味のある直線を引けないため）。
func (s *ForecastService) BuildYearlySeries(view models.DatasetView) ([]models.YearlyRevenue, error) {
	if view.Len() == 0 {
		return nil, &models.EmptyDatasetError{Operation: "buildYearlySeries"}
	}

	totals := make(map[int]float64)
	for _, r := range view.Records() {
		totals[r.Year] += r.Sales
	}

	if len(totals) < 2 {
		return nil, &models.InsufficientHistoryError{Years: len(totals)}
	}

	series := make([]models.YearlyRevenue, 0, len(totals))
	for year, total := range totals {
		series = append(series, models.YearlyRevenue{Year: year, TotalSales: total})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series, nil
}

// Fit は年次系列に対して最小二乗法で直線を当てはめます。
func (s *ForecastService) Fit(series []models.YearlyRevenue) (*models.ForecastModel, error) {
	if len(series) < 2 {
		return nil, &models.InsufficientHistoryError{Years: len(series)}
	}

	n := float64(len(series))
	var sumX, sumY, sumXY, sumX2 float64

	for _, p := range series {
		x := float64(p.Year)
		y := p.TotalSales
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return nil, fmt.Errorf("年の分散が0のため直線を当てはめられません")
	}

	// 傾き（slope）の計算
	slope := (n*sumXY - sumX*sumY) / denom

	// 切片（intercept）の計算
	intercept := (sumY - slope*sumX) / n

	// R²（決定係数）の計算
	meanY := sumY / n
	var ssTotal, ssResidual float64
	for _, p := range series {
		predicted := slope*float64(p.Year) + intercept
		ssTotal += (p.TotalSales - meanY) * (p.TotalSales - meanY)
		ssResidual += (p.TotalSales - predicted) * (p.TotalSales - predicted)
	}
	rSquared := 1.0
	if ssTotal > 0 {
		rSquared = 1 - (ssResidual / ssTotal)
	}

	return &models.ForecastModel{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared,
		LastYear:  series[len(series)-1].Year,
	}, nil
}

// Forecast はlastYear+1からhorizon年分の予測値を年昇順で返します。
// horizonが0以下の場合は既定値を使います。
func (s *ForecastService) Forecast(model *models.ForecastModel, horizon int) []models.ForecastPoint {
	if horizon <= 0 {
		horizon = s.defaultHorizon
	}

	points := make([]models.ForecastPoint, 0, horizon)
	for i := 1; i <= horizon; i++ {
		year := model.LastYear + i
		points = append(points, models.ForecastPoint{
			Year:           year,
			PredictedSales: model.Slope*float64(year) + model.Intercept,
		})
	}
	return points
}

// Train はビューから系列構築と当てはめを一括で行います。
func (s *ForecastService) Train(view models.DatasetView) (*models.ForecastModel, error) {
	series, err := s.BuildYearlySeries(view)
	if err != nil {
		return nil, err
	}
	return s.Fit(series)
}
