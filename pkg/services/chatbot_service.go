package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"
)

// QueryContext は1クエリの解決に必要な読み取り専用の状態です。
// ディスパッチャー自身はデータを保持しません（純粋なルーティング）。
type QueryContext struct {
	View     models.DatasetView
	Profiles []models.CustomerProfile

	Repurchase *models.RepurchaseModel

	Forecast    *models.ForecastModel
	ForecastErr error // 学習できなかった理由（InsufficientHistoryError等）
}

// queryRule は（部分文字列パターン, ハンドラ）の1組です。
type queryRule struct {
	pattern string
	handler func(s *ChatbotService, qc *QueryContext, query string) models.QueryResult
}

// ChatbotService は自由入力をあらかじめ登録した集計・モデル操作へ振り分けます。
//
// ルールは順序付きリストで、最初にマッチしたものが勝ちます。この順序は
// 仕様の一部です。例えば "total sub categories" はより広い "category" より
// 先に登録されていないと、広い方に吸われてしまいます。
type ChatbotService struct {
	agg        *AggregationService
	repurchase *RepurchaseService
	forecast   *ForecastService
	rules      []queryRule
}

// NewChatbotService は既定のルール一式を登録したChatbotServiceを作成します。
func NewChatbotService(agg *AggregationService, repurchase *RepurchaseService, forecast *ForecastService) *ChatbotService {
	s := &ChatbotService{
		agg:        agg,
		repurchase: repurchase,
		forecast:   forecast,
	}
	s.rules = defaultRules()
	return s
}

// helpMessage は未対応クエリへの固定の案内文です。
const helpMessage = "Sorry, I don't understand that yet. Try asking about total sales, top product, top category, sales by region/state/city/customer, top 5 customers/cities/states, a revenue forecast, or whether a customer will buy again."

// Dispatch はクエリを小文字化し、登録順にパターンを照合して結果を返します。
// どのパターンにもマッチしない入力はエラーではなく "not understood" です。
func (s *ChatbotService) Dispatch(text string, qc *QueryContext) models.QueryResult {
	query := strings.ToLower(strings.TrimSpace(text))

	for _, rule := range s.rules {
		if strings.Contains(query, rule.pattern) {
			return rule.handler(s, qc, query)
		}
	}

	return models.QueryResult{
		Type: models.ResultNotUnderstood,
		Text: helpMessage,
	}
}

// Suggestions は入力例の一覧を返します。
func (s *ChatbotService) Suggestions() []string {
	return []string{
		"summarize",
		"total sales",
		"sales by region",
		"top 5 customers",
		"top category by sales",
		"forecast revenue",
		"will {customer name} buy again?",
	}
}

// noResultsResult は0件ビューへの集計を「該当なし」の結果へ変換します。
// EmptyDatasetErrorは回復可能で、呼び出し側へは伝播させません。
func noResultsResult() models.QueryResult {
	return models.QueryResult{
		Type: models.ResultText,
		Text: "No results for this selection. Try removing some filters.",
	}
}

// wrapAggError は集計エラーをQueryResultに変換します。
func wrapAggError(err error) models.QueryResult {
	var emptyErr *models.EmptyDatasetError
	if errors.As(err, &emptyErr) {
		return noResultsResult()
	}
	return models.QueryResult{
		Type: models.ResultText,
		Text: fmt.Sprintf("Something went wrong: %v", err),
	}
}

func scalarAmount(title string, value float64) models.QueryResult {
	return models.QueryResult{
		Type:  models.ResultScalar,
		Title: title,
		Value: fmt.Sprintf("%.2f", value),
	}
}

func scalarCount(title string, value int) models.QueryResult {
	return models.QueryResult{
		Type:  models.ResultScalar,
		Title: title,
		Value: fmt.Sprintf("%d", value),
	}
}
