package services

import (
	"fmt"
	"strings"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"
)

// defaultRules は既定のクエリメニューを登録順に返します。
//
// 並び順は意味を持ちます。長く具体的なフレーズほど先に置きます
// （"total sub categories" は "category" より先、"sales by customers" は
// "sales by customer" より先、など）。
func defaultRules() []queryRule {
	return []queryRule{
		// モデル系のクエリ
		{"buy again", handleRepurchase},
		{"repurchase", handleRepurchase},
		{"model accuracy", handleModelAccuracy},
		{"forecast", handleForecast},
		{"future sales", handleForecast},

		// 合計・異なり数のスカラー
		{"total sales", handleTotalSales},
		{"total transactions", totalDistinct("Total Transactions", models.ColOrderID)},
		{"total customers", totalDistinct("Total Customers", models.ColCustomerName)},
		{"total state", totalDistinct("Total States", models.ColState)},
		{"total country", totalDistinct("Total Countries", models.ColCountry)},
		{"total city", totalDistinct("Total Cities", models.ColCity)},
		{"total sub categories", totalDistinct("Total Sub Categories", models.ColSubCategory)},
		{"total category", totalDistinct("Total Categories", models.ColCategory)},
		{"total product", totalDistinct("Total Products", models.ColProductName)},
		{"total segments", totalDistinct("Total Segments", models.ColSegment)},

		// トップ系
		{"top product by sales", topOneBySales("Top Selling Product", models.ColProductName)},
		{"top category by sales", topOneBySales("Top Performing Category", models.ColCategory)},
		{"top 5 customers", topNBySales("Top 5 Customers", models.ColCustomerName, 5)},
		{"top 5 city", topNBySales("Top 5 Cities", models.ColCity, 5)},
		{"top 5 state", topNBySales("Top 5 States", models.ColState, 5)},

		// サマリー
		{"summarize", handleSummarize},
		{"key insights", handleSummarize},

		// グループ集計（売上）
		{"sales by region", groupSales("Sales by Region", models.ColRegion, 0)},
		{"sales by state", groupSales("Sales by State", models.ColState, 10)},
		{"sales by customers", groupSales("Sales by Customers", models.ColCustomerName, 0)},
		{"sales by city", groupSales("Top 5 Cities", models.ColCity, 5)},
		{"sales by customer", groupSales("Top 5 Customers", models.ColCustomerName, 5)},
		{"sales by segment", groupSales("Sales by Segment", models.ColSegment, 0)},

		// グループ集計（顧客の異なり数）
		{"customer by segment", groupCustomers("Customers by Segment", models.ColSegment, models.ColCustomerName)},
		{"customer by region", groupCustomers("Customers by Region", models.ColRegion, models.ColCustomerName)},
		{"ship mode by customer", groupCustomers("Shipping Mode by Customer", models.ColShipMode, models.ColCustomerID)},
		{"customer by city", groupCustomers("Customers by City", models.ColCity, models.ColCustomerID)},
		{"customer by state", groupCustomers("Customers by State", models.ColState, models.ColCustomerID)},

		// 異なり値の一覧
		{"shipping modes", listDistinct("Available Shipping Modes", models.ColShipMode)},
		{"customers", listDistinct("Customers", models.ColCustomerName)},
		{"city", listDistinct("Cities", models.ColCity)},
		{"state", listDistinct("States", models.ColState)},
		{"sub category", listDistinct("Sub Categories", models.ColSubCategory)},
		{"category", listDistinct("Categories", models.ColCategory)},
		{"product", listDistinct("Products", models.ColProductName)},
		{"region", listDistinct("Regions", models.ColRegion)},
		{"postal codes", listDistinct("Postal Codes", models.ColPostalCode)},
		{"country", listDistinct("Countries", models.ColCountry)},
	}
}

func handleTotalSales(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
	total, err := s.agg.Sum(qc.View, models.ColSales)
	if err != nil {
		return wrapAggError(err)
	}
	return scalarAmount("Total Sales", total)
}

// totalDistinct は「列の異なり数」を返すハンドラを作ります。
func totalDistinct(title string, col models.Column) func(*ChatbotService, *QueryContext, string) models.QueryResult {
	return func(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
		count, err := s.agg.CountDistinct(qc.View, col)
		if err != nil {
			return wrapAggError(err)
		}
		return scalarCount(title, count)
	}
}

// topOneBySales は売上合計が最大のグループ名をスカラーで返すハンドラを作ります。
func topOneBySales(title string, groupCol models.Column) func(*ChatbotService, *QueryContext, string) models.QueryResult {
	return func(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
		grouped, err := s.agg.GroupSum(qc.View, groupCol, models.ColSales)
		if err != nil {
			return wrapAggError(err)
		}
		top := s.agg.TopN(grouped, 1, true)
		if len(top) == 0 {
			return noResultsResult()
		}
		return models.QueryResult{
			Type:  models.ResultScalar,
			Title: title,
			Value: top[0].Label,
		}
	}
}

// topNBySales は売上合計の上位n件のランキングを返すハンドラを作ります。
func topNBySales(title string, groupCol models.Column, n int) func(*ChatbotService, *QueryContext, string) models.QueryResult {
	return func(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
		grouped, err := s.agg.GroupSum(qc.View, groupCol, models.ColSales)
		if err != nil {
			return wrapAggError(err)
		}
		return models.QueryResult{
			Type:    models.ResultRanking,
			Title:   title,
			Entries: s.agg.TopN(grouped, n, true),
		}
	}
}

// groupSales はグループ別売上合計のランキングを返すハンドラを作ります。
// limit=0は全件（降順）です。
func groupSales(title string, groupCol models.Column, limit int) func(*ChatbotService, *QueryContext, string) models.QueryResult {
	return func(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
		grouped, err := s.agg.GroupSum(qc.View, groupCol, models.ColSales)
		if err != nil {
			return wrapAggError(err)
		}
		n := limit
		if n <= 0 {
			n = len(grouped)
		}
		return models.QueryResult{
			Type:    models.ResultRanking,
			Title:   title,
			Entries: s.agg.TopN(grouped, n, true),
		}
	}
}

// groupCustomers はグループ別の顧客（ID/名前）の異なり数を返すハンドラを作ります。
func groupCustomers(title string, groupCol, valueCol models.Column) func(*ChatbotService, *QueryContext, string) models.QueryResult {
	return func(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
		grouped, err := s.agg.GroupCountDistinct(qc.View, groupCol, valueCol)
		if err != nil {
			return wrapAggError(err)
		}
		return models.QueryResult{
			Type:    models.ResultRanking,
			Title:   title,
			Entries: grouped,
		}
	}
}

// listDistinct は列の異なり値一覧を返すハンドラを作ります。
func listDistinct(title string, col models.Column) func(*ChatbotService, *QueryContext, string) models.QueryResult {
	return func(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
		values, err := s.agg.DistinctValues(qc.View, col)
		if err != nil {
			return wrapAggError(err)
		}
		return models.QueryResult{
			Type:  models.ResultList,
			Title: title,
			Items: values,
		}
	}
}

func handleRepurchase(s *ChatbotService, qc *QueryContext, query string) models.QueryResult {
	if qc.Repurchase == nil {
		return models.QueryResult{
			Type:  models.ResultText,
			Title: "Repurchase Prediction",
			Text:  "The repurchase model is not available for this selection (not enough customers to train on).",
		}
	}

	// クエリ文字列の中から既知の顧客名を探す
	name := findCustomerInQuery(query, qc.Profiles)
	if name == "" {
		return models.QueryResult{
			Type:  models.ResultText,
			Title: "Repurchase Prediction",
			Text:  "Tell me the customer name, e.g. \"will Aaron Hawkins buy again?\"",
		}
	}

	pred := s.repurchase.Predict(qc.Repurchase, name, qc.Profiles)
	if !pred.Found {
		return models.QueryResult{
			Type:  models.ResultText,
			Title: "Repurchase Prediction",
			Text:  fmt.Sprintf("I couldn't find a customer named \"%s\" in the current data.", name),
		}
	}

	verdict := "is likely to buy again"
	if !pred.WillRepurchase {
		verdict = "is unlikely to buy again"
	}
	return models.QueryResult{
		Type:  models.ResultText,
		Title: "Repurchase Prediction",
		Value: fmt.Sprintf("%.1f%%", pred.Probability*100),
		Text:  fmt.Sprintf("Customer %s %s (probability %.1f%%).", pred.CustomerName, verdict, pred.Probability*100),
	}
}

func handleModelAccuracy(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
	if qc.Repurchase == nil {
		return models.QueryResult{
			Type:  models.ResultText,
			Title: "Model Accuracy",
			Text:  "The repurchase model is not available for this selection.",
		}
	}
	return models.QueryResult{
		Type:  models.ResultScalar,
		Title: "Repurchase Model Accuracy",
		Value: fmt.Sprintf("%.1f%%", qc.Repurchase.Accuracy*100),
	}
}

func handleForecast(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
	if qc.Forecast == nil {
		text := "The revenue forecast is not available for this selection."
		if qc.ForecastErr != nil {
			text = fmt.Sprintf("The revenue forecast is not available: %v", qc.ForecastErr)
		}
		return models.QueryResult{
			Type:  models.ResultText,
			Title: "Revenue Forecast",
			Text:  text,
		}
	}

	points := s.forecast.Forecast(qc.Forecast, 0)
	entries := make([]models.RankingEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, models.RankingEntry{
			Label: fmt.Sprintf("%d", p.Year),
			Value: p.PredictedSales,
		})
	}
	return models.QueryResult{
		Type:    models.ResultRanking,
		Title:   fmt.Sprintf("Revenue Forecast (trend fit R² = %.3f)", qc.Forecast.RSquared),
		Entries: entries,
	}
}

func handleSummarize(s *ChatbotService, qc *QueryContext, _ string) models.QueryResult {
	if qc.View.Len() == 0 {
		return noResultsResult()
	}

	var b strings.Builder
	b.WriteString("Key Insights\n\n")
	b.WriteString("Top Customers: a small group of customers contributes a disproportionately high share of total revenue. ")
	b.WriteString("Strengthen retention for top clients and diversify the revenue base to reduce dependency risk.\n\n")
	b.WriteString("Top Sold Items: a limited number of items dominate sales volume and revenue (80/20 pattern). ")
	b.WriteString("Keep strong inventory for top performers and focus marketing on best-selling categories.\n\n")
	b.WriteString("Category Performance: revenue concentrates in a few categories. ")
	b.WriteString("Optimize or bundle the long tail and invest in high-margin categories.\n\n")
	b.WriteString("Geography: revenue varies significantly across regions and states. ")
	b.WriteString("Expand marketing in mid-performing regions and study what the best performers do differently.")

	return models.QueryResult{
		Type:  models.ResultText,
		Title: "Summary",
		Text:  b.String(),
	}
}

// findCustomerInQuery はクエリに含まれる既知の顧客名を返します。
// 複数候補がある場合は最長の名前を優先します。
func findCustomerInQuery(query string, profiles []models.CustomerProfile) string {
	best := ""
	for i := range profiles {
		name := profiles[i].CustomerName
		if len(name) > len(best) && strings.Contains(query, strings.ToLower(name)) {
			best = name
		}
	}
	return best
}
