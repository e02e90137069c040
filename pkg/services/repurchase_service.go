package services

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"
)

// RepurchaseService は顧客の再購入予測モデルを構築します。
//
// ラベル自体はしきい値による決定的なルール（注文数としきい値の両方を超えたら
// 再購入）ですが、分類器はその平滑化された確率版を学習します。UIが
// 「はい/いいえ」だけでなく確信度を出せるようにするための設計です。
type RepurchaseService struct {
	ordersThreshold int
	salesThreshold  float64
	trainSplit      float64
	seed            int64
}

// NewRepurchaseService は新しいRepurchaseServiceを作成します。
func NewRepurchaseService(ordersThreshold int, salesThreshold float64, trainSplit float64, seed int64) *RepurchaseService {
	if trainSplit <= 0 || trainSplit >= 1 {
		trainSplit = 0.8
	}
	return &RepurchaseService{
		ordersThreshold: ordersThreshold,
		salesThreshold:  salesThreshold,
		trainSplit:      trainSplit,
		seed:            seed,
	}
}

// BuildProfiles は顧客名ごとのプロファイルを初出順で構築します。
// 注文数は注文IDの異なり数、売上は明細行の合計です。
func (s *RepurchaseService) BuildProfiles(view models.DatasetView) []models.CustomerProfile {
	orders := make(map[string]map[string]bool)
	totals := make(map[string]float64)
	var order []string

	for _, r := range view.Records() {
		name := r.CustomerName
		if _, exists := orders[name]; !exists {
			order = append(order, name)
			orders[name] = make(map[string]bool)
		}
		orders[name][r.OrderID] = true
		totals[name] += r.Sales
	}

	profiles := make([]models.CustomerProfile, 0, len(order))
	for _, name := range order {
		orderCount := len(orders[name])
		totalSales := totals[name]
		profiles = append(profiles, models.CustomerProfile{
			CustomerName: name,
			OrderCount:   orderCount,
			TotalSales:   totalSales,
			Repurchased:  orderCount > s.ordersThreshold && totalSales > s.salesThreshold,
		})
	}
	return profiles
}

const (
	trainEpochs       = 1000
	trainLearningRate = 0.1
	minTrainProfiles  = 10
)

// Train はプロファイルに対してロジスティック回帰を学習します。
// 分割は固定シードの決定的なホールドアウトで、精度は検証側のみで計算します。
// 同じプロファイルとシードなら常に同じモデルと精度が得られます。
func (s *RepurchaseService) Train(profiles []models.CustomerProfile) (*models.RepurchaseModel, error) {
	if len(profiles) < minTrainProfiles {
		return nil, fmt.Errorf("学習には最低%d人分の顧客プロファイルが必要です（現在%d人）", minTrainProfiles, len(profiles))
	}

	// 決定的なシャッフルでホールドアウトを切り出す
	rng := rand.New(rand.NewSource(s.seed))
	perm := rng.Perm(len(profiles))

	trainCount := int(float64(len(profiles)) * s.trainSplit)
	if trainCount < 1 {
		trainCount = 1
	}
	if trainCount >= len(profiles) {
		trainCount = len(profiles) - 1
	}
	trainIdx := perm[:trainCount]
	testIdx := perm[trainCount:]

	// 学習側の統計で特徴量を標準化する
	var means, stds [2]float64
	for _, i := range trainIdx {
		means[0] += float64(profiles[i].OrderCount)
		means[1] += profiles[i].TotalSales
	}
	n := float64(len(trainIdx))
	means[0] /= n
	means[1] /= n
	for _, i := range trainIdx {
		d0 := float64(profiles[i].OrderCount) - means[0]
		d1 := profiles[i].TotalSales - means[1]
		stds[0] += d0 * d0
		stds[1] += d1 * d1
	}
	stds[0] = math.Sqrt(stds[0] / n)
	stds[1] = math.Sqrt(stds[1] / n)
	if stds[0] == 0 {
		stds[0] = 1
	}
	if stds[1] == 0 {
		stds[1] = 1
	}

	standardize := func(p *models.CustomerProfile) [2]float64 {
		return [2]float64{
			(float64(p.OrderCount) - means[0]) / stds[0],
			(p.TotalSales - means[1]) / stds[1],
		}
	}

	// 勾配降下法で重みを学習
	var weights [2]float64
	var bias float64
	for epoch := 0; epoch < trainEpochs; epoch++ {
		var grad0, grad1, gradB float64
		for _, i := range trainIdx {
			x := standardize(&profiles[i])
			y := 0.0
			if profiles[i].Repurchased {
				y = 1.0
			}
			p := sigmoid(weights[0]*x[0] + weights[1]*x[1] + bias)
			err := p - y
			grad0 += err * x[0]
			grad1 += err * x[1]
			gradB += err
		}
		weights[0] -= trainLearningRate * grad0 / n
		weights[1] -= trainLearningRate * grad1 / n
		bias -= trainLearningRate * gradB / n
	}

	model := &models.RepurchaseModel{
		Weights:      weights,
		Bias:         bias,
		FeatureMeans: means,
		FeatureStds:  stds,
		TrainSize:    len(trainIdx),
		TestSize:     len(testIdx),
	}

	// 精度はホールドアウト側のみで計算する（学習側では計算しない）
	correct := 0
	for _, i := range testIdx {
		p := s.probability(model, &profiles[i])
		predicted := p >= 0.5
		if predicted == profiles[i].Repurchased {
			correct++
		}
	}
	model.Accuracy = float64(correct) / float64(len(testIdx))

	return model, nil
}

// Predict は顧客名（大文字小文字を無視した完全一致）で再購入予測を返します。
// 未知の顧客はFound=falseの正常な結果であり、エラーではありません。
func (s *RepurchaseService) Predict(model *models.RepurchaseModel, customerName string, profiles []models.CustomerProfile) models.RepurchasePrediction {
	for i := range profiles {
		if strings.EqualFold(profiles[i].CustomerName, customerName) {
			p := s.probability(model, &profiles[i])
			return models.RepurchasePrediction{
				Found:          true,
				CustomerName:   profiles[i].CustomerName,
				WillRepurchase: p >= 0.5,
				Probability:    p,
			}
		}
	}
	return models.RepurchasePrediction{Found: false}
}

func (s *RepurchaseService) probability(model *models.RepurchaseModel, p *models.CustomerProfile) float64 {
	x0 := (float64(p.OrderCount) - model.FeatureMeans[0]) / model.FeatureStds[0]
	x1 := (p.TotalSales - model.FeatureMeans[1]) / model.FeatureStds[1]
	return sigmoid(model.Weights[0]*x0 + model.Weights[1]*x1 + model.Bias)
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
