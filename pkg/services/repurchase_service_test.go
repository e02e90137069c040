package services

import (
	"fmt"
	"testing"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProfiles(t *testing.T) {
	service := NewRepurchaseService(5, 2000, 0.8, 42)
	dataset := datasetOf(
		models.SalesRecord{OrderID: "O-1", CustomerName: "Claire Gute", Sales: 100},
		models.SalesRecord{OrderID: "O-1", CustomerName: "Claire Gute", Sales: 50},
		models.SalesRecord{OrderID: "O-2", CustomerName: "Claire Gute", Sales: 25},
		models.SalesRecord{OrderID: "O-3", CustomerName: "Darrin Van Huff", Sales: 300},
	)

	profiles := service.BuildProfiles(dataset)
	require.Len(t, profiles, 2)

	// 初出順。注文数は注文IDの異なり数（明細行数ではない）
	assert.Equal(t, "Claire Gute", profiles[0].CustomerName)
	assert.Equal(t, 2, profiles[0].OrderCount)
	assert.Equal(t, 175.0, profiles[0].TotalSales)

	assert.Equal(t, "Darrin Van Huff", profiles[1].CustomerName)
	assert.Equal(t, 1, profiles[1].OrderCount)
	assert.Equal(t, 300.0, profiles[1].TotalSales)
}

func TestRepurchaseLabelThresholds(t *testing.T) {
	service := NewRepurchaseService(5, 2000, 0.8, 42)

	// 注文数6・売上2500 → 両しきい値を超えるので再購入
	records := ordersFor("Heavy Buyer", 6, 2500.0/6)
	// 注文数6・売上1000 → 売上しきい値に届かないので非再購入
	records = append(records, ordersFor("Frequent Cheap", 6, 1000.0/6)...)
	// 注文数3・売上5000 → 注文数しきい値に届かないので非再購入
	records = append(records, ordersFor("Big Spender", 3, 5000.0/3)...)

	profiles := service.BuildProfiles(datasetOf(records...))
	require.Len(t, profiles, 3)
	assert.True(t, profiles[0].Repurchased)
	assert.False(t, profiles[1].Repurchased)
	assert.False(t, profiles[2].Repurchased)

	// 境界値ちょうどは「超えた」とはみなさない
	boundary := service.BuildProfiles(datasetOf(ordersFor("On The Line", 5, 400)...))
	assert.False(t, boundary[0].Repurchased)
}

// ordersFor は1注文1行で指定件数分の明細を生成します。
func ordersFor(name string, orderCount int, salesPerOrder float64) []models.SalesRecord {
	records := make([]models.SalesRecord, 0, orderCount)
	for i := 0; i < orderCount; i++ {
		records = append(records, models.SalesRecord{
			OrderID:      fmt.Sprintf("%s-%d", name, i),
			CustomerName: name,
			Sales:        salesPerOrder,
		})
	}
	return records
}

// syntheticProfiles は明確に分離可能な顧客集団を作ります。
func syntheticProfiles() []models.CustomerProfile {
	var profiles []models.CustomerProfile
	for i := 0; i < 10; i++ {
		profiles = append(profiles, models.CustomerProfile{
			CustomerName: fmt.Sprintf("loyal-%d", i),
			OrderCount:   8 + i,
			TotalSales:   3000 + float64(i)*100,
			Repurchased:  true,
		})
	}
	for i := 0; i < 10; i++ {
		profiles = append(profiles, models.CustomerProfile{
			CustomerName: fmt.Sprintf("casual-%d", i),
			OrderCount:   1 + i%3,
			TotalSales:   100 + float64(i)*50,
			Repurchased:  false,
		})
	}
	return profiles
}

func TestTrainDeterministic(t *testing.T) {
	service := NewRepurchaseService(5, 2000, 0.8, 42)
	profiles := syntheticProfiles()

	a, err := service.Train(profiles)
	require.NoError(t, err)
	b, err := service.Train(profiles)
	require.NoError(t, err)

	// 同じシード・同じプロファイルなら完全に同じモデル
	assert.Equal(t, a.Weights, b.Weights)
	assert.Equal(t, a.Bias, b.Bias)
	assert.Equal(t, a.Accuracy, b.Accuracy)
	assert.Equal(t, a.TrainSize, b.TrainSize)
	assert.Equal(t, a.TestSize, b.TestSize)

	// 80/20分割
	assert.Equal(t, 16, a.TrainSize)
	assert.Equal(t, 4, a.TestSize)

	// 分離可能なデータなのでホールドアウト精度は高いはず
	assert.GreaterOrEqual(t, a.Accuracy, 0.75)
}

func TestTrainTooFewProfiles(t *testing.T) {
	service := NewRepurchaseService(5, 2000, 0.8, 42)

	_, err := service.Train(syntheticProfiles()[:5])
	assert.Error(t, err)
}

func TestPredict(t *testing.T) {
	service := NewRepurchaseService(5, 2000, 0.8, 42)
	profiles := syntheticProfiles()
	model, err := service.Train(profiles)
	require.NoError(t, err)

	// 大文字小文字を無視した完全一致
	prediction := service.Predict(model, "LOYAL-3", profiles)
	require.True(t, prediction.Found)
	assert.Equal(t, "loyal-3", prediction.CustomerName)
	assert.True(t, prediction.WillRepurchase)
	assert.Greater(t, prediction.Probability, 0.5)

	prediction = service.Predict(model, "casual-2", profiles)
	require.True(t, prediction.Found)
	assert.False(t, prediction.WillRepurchase)
	assert.Less(t, prediction.Probability, 0.5)

	// 未知の顧客はエラーではなくFound=false
	prediction = service.Predict(model, "Nobody Here", profiles)
	assert.False(t, prediction.Found)

	// 部分一致では見つからない
	prediction = service.Predict(model, "loyal", profiles)
	assert.False(t, prediction.Found)
}
