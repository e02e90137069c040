package services

import (
	"fmt"
	"sort"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"
)

// AggregationService は売上ビューに対する純粋な集計関数群です。
// 状態を持たず、同じ入力に対して常に同じ結果を返します。
//
// 0件のビューに対する集計はEmptyDatasetErrorで失敗します。
// 「合計0」と「該当なし」が区別できないためです。
type AggregationService struct{}

// NewAggregationService は新しいAggregationServiceを作成します。
func NewAggregationService() *AggregationService {
	return &AggregationService{}
}

// Sum は数値列の合計を返します。
func (s *AggregationService) Sum(view models.DatasetView, col models.Column) (float64, error) {
	if view.Len() == 0 {
		return 0, &models.EmptyDatasetError{Operation: "sum"}
	}
	var total float64
	for _, r := range view.Records() {
		v, err := numericValue(&r, col)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// CountDistinct は列の異なり数を返します。
func (s *AggregationService) CountDistinct(view models.DatasetView, col models.Column) (int, error) {
	if view.Len() == 0 {
		return 0, &models.EmptyDatasetError{Operation: "countDistinct"}
	}
	seen := make(map[string]bool)
	for _, r := range view.Records() {
		seen[r.Field(col)] = true
	}
	return len(seen), nil
}

// GroupSum はグループ列ごとの数値列の合計を返します。
// 順序は各グループの初出順です（呼び出し側で並べ替える想定）。
func (s *AggregationService) GroupSum(view models.DatasetView, groupCol, valueCol models.Column) ([]models.RankingEntry, error) {
	if view.Len() == 0 {
		return nil, &models.EmptyDatasetError{Operation: "groupSum"}
	}

	totals := make(map[string]float64)
	var order []string
	for _, r := range view.Records() {
		key := r.Field(groupCol)
		v, err := numericValue(&r, valueCol)
		if err != nil {
			return nil, err
		}
		if _, exists := totals[key]; !exists {
			order = append(order, key)
		}
		totals[key] += v
	}

	entries := make([]models.RankingEntry, 0, len(order))
	for _, key := range order {
		entries = append(entries, models.RankingEntry{Label: key, Value: totals[key]})
	}
	return entries, nil
}

// GroupCountDistinct はグループ列ごとの値列の異なり数を返します。順序は初出順です。
func (s *AggregationService) GroupCountDistinct(view models.DatasetView, groupCol, valueCol models.Column) ([]models.RankingEntry, error) {
	if view.Len() == 0 {
		return nil, &models.EmptyDatasetError{Operation: "groupCountDistinct"}
	}

	distinct := make(map[string]map[string]bool)
	var order []string
	for _, r := range view.Records() {
		key := r.Field(groupCol)
		if _, exists := distinct[key]; !exists {
			order = append(order, key)
			distinct[key] = make(map[string]bool)
		}
		distinct[key][r.Field(valueCol)] = true
	}

	entries := make([]models.RankingEntry, 0, len(order))
	for _, key := range order {
		entries = append(entries, models.RankingEntry{Label: key, Value: float64(len(distinct[key]))})
	}
	return entries, nil
}

// TopN は値の大きい（descending=falseなら小さい）順にn件を返します。
// 同値の順位は元のマッピングの初出順で決まります。n<=0は空、nが件数超なら全件です。
func (s *AggregationService) TopN(entries []models.RankingEntry, n int, descending bool) []models.RankingEntry {
	if n <= 0 {
		return []models.RankingEntry{}
	}

	sorted := make([]models.RankingEntry, len(entries))
	copy(sorted, entries)
	// 安定ソートで同値時の初出順を保存する
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].Value < sorted[j].Value
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// DistinctValues は列の異なり値を初出順で返します。
func (s *AggregationService) DistinctValues(view models.DatasetView, col models.Column) ([]string, error) {
	if view.Len() == 0 {
		return nil, &models.EmptyDatasetError{Operation: "distinctValues"}
	}

	seen := make(map[string]bool)
	var values []string
	for _, r := range view.Records() {
		v := r.Field(col)
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values, nil
}

// numericValue は数値として扱える列の値を取り出します。
func numericValue(r *models.SalesRecord, col models.Column) (float64, error) {
	switch col {
	case models.ColSales:
		return r.Sales, nil
	}
	return 0, fmt.Errorf("列 '%s' は数値列として集計できません", col)
}
