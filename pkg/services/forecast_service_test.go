package services

import (
	"errors"
	"testing"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildYearlySeries(t *testing.T) {
	service := NewForecastService(4)
	dataset := datasetOf(
		models.SalesRecord{Year: 2017, Sales: 300},
		models.SalesRecord{Year: 2015, Sales: 100},
		models.SalesRecord{Year: 2016, Sales: 150},
		models.SalesRecord{Year: 2015, Sales: 50},
	)

	series, err := service.BuildYearlySeries(dataset)
	require.NoError(t, err)

	// 年昇順で、年ごとの合計になっていること
	require.Len(t, series, 3)
	assert.Equal(t, models.YearlyRevenue{Year: 2015, TotalSales: 150}, series[0])
	assert.Equal(t, models.YearlyRevenue{Year: 2016, TotalSales: 150}, series[1])
	assert.Equal(t, models.YearlyRevenue{Year: 2017, TotalSales: 300}, series[2])
}

func TestBuildYearlySeriesInsufficientHistory(t *testing.T) {
	service := NewForecastService(4)
	dataset := datasetOf(
		models.SalesRecord{Year: 2017, Sales: 100},
		models.SalesRecord{Year: 2017, Sales: 200},
	)

	// 1年分では直線を引けない
	_, err := service.BuildYearlySeries(dataset)
	var insufficient *models.InsufficientHistoryError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Years)
}

func TestBuildYearlySeriesEmptyView(t *testing.T) {
	service := NewForecastService(4)

	_, err := service.BuildYearlySeries(datasetOf())
	var emptyErr *models.EmptyDatasetError
	assert.True(t, errors.As(err, &emptyErr))
}

func TestFitPerfectLine(t *testing.T) {
	service := NewForecastService(4)
	series := []models.YearlyRevenue{
		{Year: 2015, TotalSales: 1000},
		{Year: 2016, TotalSales: 1100},
		{Year: 2017, TotalSales: 1200},
	}

	model, err := service.Fit(series)
	require.NoError(t, err)

	assert.InDelta(t, 100, model.Slope, 1e-6)
	assert.InDelta(t, 1.0, model.RSquared, 1e-9)
	assert.Equal(t, 2017, model.LastYear)

	// 直線の延長そのまま
	points := service.Forecast(model, 2)
	require.Len(t, points, 2)
	assert.Equal(t, 2018, points[0].Year)
	assert.InDelta(t, 1300, points[0].PredictedSales, 1e-6)
	assert.Equal(t, 2019, points[1].Year)
	assert.InDelta(t, 1400, points[1].PredictedSales, 1e-6)
}

func TestForecastMonotonicWithTrend(t *testing.T) {
	service := NewForecastService(4)

	// 上昇トレンド → 予測は単調増加
	up, err := service.Fit([]models.YearlyRevenue{
		{Year: 2015, TotalSales: 100},
		{Year: 2016, TotalSales: 180},
		{Year: 2017, TotalSales: 240},
	})
	require.NoError(t, err)
	points := service.Forecast(up, 4)
	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].PredictedSales, points[i-1].PredictedSales)
	}

	// 下降トレンド → 予測は単調減少（負値も許容、クランプしない）
	down, err := service.Fit([]models.YearlyRevenue{
		{Year: 2015, TotalSales: 300},
		{Year: 2016, TotalSales: 150},
		{Year: 2017, TotalSales: 20},
	})
	require.NoError(t, err)
	points = service.Forecast(down, 4)
	for i := 1; i < len(points); i++ {
		assert.Less(t, points[i].PredictedSales, points[i-1].PredictedSales)
	}
	assert.Negative(t, points[len(points)-1].PredictedSales)

	// 傾きゼロ → 一定
	flat, err := service.Fit([]models.YearlyRevenue{
		{Year: 2015, TotalSales: 100},
		{Year: 2016, TotalSales: 100},
	})
	require.NoError(t, err)
	points = service.Forecast(flat, 3)
	for _, p := range points {
		assert.InDelta(t, 100, p.PredictedSales, 1e-9)
	}
}

func TestForecastDefaultHorizon(t *testing.T) {
	service := NewForecastService(4)
	model := &models.ForecastModel{Slope: 1, Intercept: 0, LastYear: 2017}

	// horizon<=0は既定の4年
	points := service.Forecast(model, 0)
	require.Len(t, points, 4)
	assert.Equal(t, 2018, points[0].Year)
	assert.Equal(t, 2021, points[3].Year)
}

func TestTrainFromView(t *testing.T) {
	service := NewForecastService(4)
	dataset := datasetOf(
		models.SalesRecord{Year: 2016, Sales: 100},
		models.SalesRecord{Year: 2017, Sales: 200},
	)

	model, err := service.Train(dataset)
	require.NoError(t, err)
	assert.InDelta(t, 100, model.Slope, 1e-6)
}
