package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"

	"github.com/google/uuid"
)

// DatasetService は表形式データからDatasetを構築し、絞り込みビューを提供します。
type DatasetService struct{}

// NewDatasetService は新しいDatasetServiceを作成します。
func NewDatasetService() *DatasetService {
	return &DatasetService{}
}

// 日付はday-first形式（例: 08/11/2017 = 2017年11月8日）
var orderDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
}

// 列ヘッダーのエイリアス。先頭が正規名です。
var columnAliases = map[models.Column][]string{
	models.ColOrderID:      {"Order ID", "order_id"},
	models.ColOrderDate:    {"Order Date", "order_date"},
	models.ColCustomerID:   {"Customer ID", "customer_id"},
	models.ColCustomerName: {"Customer Name", "customer_name"},
	models.ColSegment:      {"Segment"},
	models.ColCountry:      {"Country"},
	models.ColCity:         {"City"},
	models.ColState:        {"State"},
	models.ColPostalCode:   {"Postal Code", "postal_code"},
	models.ColRegion:       {"Region"},
	models.ColProductName:  {"Product Name", "product_name"},
	models.ColCategory:     {"Category"},
	models.ColSubCategory:  {"Sub-Category", "Sub Category", "sub_category"},
	models.ColShipMode:     {"Ship Mode", "ship_mode"},
	models.ColSales:        {"Sales"},
}

// requiredColumns は検出順を固定するための列挙です。
var requiredColumns = []models.Column{
	models.ColOrderID, models.ColOrderDate, models.ColCustomerID,
	models.ColCustomerName, models.ColSegment, models.ColCountry,
	models.ColCity, models.ColState, models.ColPostalCode, models.ColRegion,
	models.ColProductName, models.ColCategory, models.ColSubCategory,
	models.ColShipMode, models.ColSales,
}

// Load はヘッダー行付きの行データからDatasetを構築します。
// 必須項目が1行でも解釈できない場合はMalformedRecordErrorで全体が失敗し、
// 部分的なデータセットは作られません。
func (s *DatasetService) Load(rows [][]string) (*models.Dataset, error) {
	return s.LoadWithProgress(rows, nil)
}

// LoadWithProgress はLoadと同じですが、1行解釈するごとにonRowを呼びます（CLIの進捗表示用）。
func (s *DatasetService) LoadWithProgress(rows [][]string, onRow func()) (*models.Dataset, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("ヘッダー行と少なくとも1行のデータが必要です")
	}

	header := rows[0]
	colIdx, missing := detectColumns(header)
	if len(missing) > 0 {
		return nil, fmt.Errorf("必要な列が見つかりませんでした: %s（ヘッダー: %v）", strings.Join(missing, ", "), header)
	}

	dataRows := rows[1:]
	records := make([]models.SalesRecord, 0, len(dataRows))

	for i, row := range dataRows {
		rowNum := i + 1

		get := func(col models.Column) string {
			idx := colIdx[col]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		dateStr := get(models.ColOrderDate)
		orderDate, ok := parseOrderDate(dateStr)
		if !ok {
			return nil, &models.MalformedRecordError{
				Row: rowNum, Field: string(models.ColOrderDate), Value: dateStr,
				Reason: "日付を解釈できません（day-first形式を想定）",
			}
		}

		customerName := get(models.ColCustomerName)
		if customerName == "" {
			return nil, &models.MalformedRecordError{
				Row: rowNum, Field: string(models.ColCustomerName), Value: "",
				Reason: "顧客名が空です",
			}
		}

		salesStr := get(models.ColSales)
		sales, err := strconv.ParseFloat(salesStr, 64)
		if err != nil {
			return nil, &models.MalformedRecordError{
				Row: rowNum, Field: string(models.ColSales), Value: salesStr,
				Reason: "数値として解釈できません",
			}
		}

		records = append(records, models.SalesRecord{
			OrderID:      get(models.ColOrderID),
			OrderDate:    orderDate,
			CustomerID:   get(models.ColCustomerID),
			CustomerName: customerName,
			Segment:      get(models.ColSegment),
			Country:      get(models.ColCountry),
			City:         get(models.ColCity),
			State:        get(models.ColState),
			PostalCode:   get(models.ColPostalCode),
			Region:       get(models.ColRegion),
			ProductName:  get(models.ColProductName),
			Category:     get(models.ColCategory),
			SubCategory:  get(models.ColSubCategory),
			ShipMode:     get(models.ColShipMode),
			Sales:        sales,
			Year:         orderDate.Year(),
			Month:        int(orderDate.Month()),
		})

		if onRow != nil {
			onRow()
		}
	}

	return models.NewDataset(uuid.New().String(), time.Now(), records), nil
}

// Filter は親Datasetを変更せずに絞り込みビューを作ります。
// 各条件は独立に省略可能で、省略＝「すべて」、組み合わせはANDです。
func (s *DatasetService) Filter(ds *models.Dataset, f models.DatasetFilter) *models.FilteredDataset {
	if f.IsZero() {
		return models.NewFilteredDataset(ds, f, ds.Records())
	}

	var matched []models.SalesRecord
	for _, r := range ds.Records() {
		if f.Matches(&r) {
			matched = append(matched, r)
		}
	}
	return models.NewFilteredDataset(ds, f, matched)
}

// detectColumns はヘッダーから必須列のインデックスを検出します。
func detectColumns(header []string) (map[models.Column]int, []string) {
	colIdx := make(map[models.Column]int, len(requiredColumns))
	var missing []string

	for _, col := range requiredColumns {
		idx := findColumnIndex(header, columnAliases[col]...)
		if idx == -1 {
			missing = append(missing, string(col))
			continue
		}
		colIdx[col] = idx
	}
	return colIdx, missing
}

// findColumnIndex finds the index of the first matching candidate in a header row
func findColumnIndex(header []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range header {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}

func parseOrderDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
