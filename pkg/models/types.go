package models

import (
	"fmt"
	"strings"
	"time"
)

// Column は売上データの列を識別します。値は入力ファイルの正規ヘッダー名です。
type Column string

const (
	ColOrderID      Column = "Order ID"
	ColOrderDate    Column = "Order Date"
	ColCustomerID   Column = "Customer ID"
	ColCustomerName Column = "Customer Name"
	ColSegment      Column = "Segment"
	ColCountry      Column = "Country"
	ColCity         Column = "City"
	ColState        Column = "State"
	ColPostalCode   Column = "Postal Code"
	ColRegion       Column = "Region"
	ColProductName  Column = "Product Name"
	ColCategory     Column = "Category"
	ColSubCategory  Column = "Sub-Category"
	ColShipMode     Column = "Ship Mode"
	ColSales        Column = "Sales"
)

// SalesRecord は1注文明細行を表します。ロード後は不変です。
type SalesRecord struct {
	OrderID      string    `json:"order_id"`
	OrderDate    time.Time `json:"order_date"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Segment      string    `json:"segment"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Region       string    `json:"region"`
	ProductName  string    `json:"product_name"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"sub_category"`
	ShipMode     string    `json:"ship_mode"`
	Sales        float64   `json:"sales"`

	// Order Dateからロード時に一度だけ導出されるカレンダー項目
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Field は列セレクタに対応する文字列値を返します。
func (r *SalesRecord) Field(col Column) string {
	switch col {
	case ColOrderID:
		return r.OrderID
	case ColOrderDate:
		return r.OrderDate.Format("2006-01-02")
	case ColCustomerID:
		return r.CustomerID
	case ColCustomerName:
		return r.CustomerName
	case ColSegment:
		return r.Segment
	case ColCountry:
		return r.Country
	case ColCity:
		return r.City
	case ColState:
		return r.State
	case ColPostalCode:
		return r.PostalCode
	case ColRegion:
		return r.Region
	case ColProductName:
		return r.ProductName
	case ColCategory:
		return r.Category
	case ColSubCategory:
		return r.SubCategory
	case ColShipMode:
		return r.ShipMode
	case ColSales:
		return fmt.Sprintf("%.2f", r.Sales)
	}
	return ""
}

// DatasetView は集計・モデル構築が受け取るデータソースの抽象です。
// DatasetとFilteredDatasetの両方が実装します。
type DatasetView interface {
	Records() []SalesRecord
	Len() int
}

// Dataset はロード済みの売上データ一式です。構築後に変更されることはありません。
type Dataset struct {
	Version  string
	LoadedAt time.Time
	records  []SalesRecord
}

// NewDataset はレコード列からDatasetを構築します。
func NewDataset(version string, loadedAt time.Time, records []SalesRecord) *Dataset {
	return &Dataset{Version: version, LoadedAt: loadedAt, records: records}
}

// Records は全レコードを返します。呼び出し側は変更してはいけません。
func (d *Dataset) Records() []SalesRecord { return d.records }

// Len はレコード数を返します。
func (d *Dataset) Len() int { return len(d.records) }

// DatasetFilter は任意条件の等値フィルタです。ゼロ値の項目は「すべて」を意味します。
type DatasetFilter struct {
	Year     int    `json:"year,omitempty"`
	Category string `json:"category,omitempty"`
	Region   string `json:"region,omitempty"`
	Customer string `json:"customer,omitempty"`
}

// IsZero は何も絞り込まないフィルタかどうかを返します。
func (f DatasetFilter) IsZero() bool {
	return f.Year == 0 && f.Category == "" && f.Region == "" && f.Customer == ""
}

// Key はモデルキャッシュ用の正規化キーを返します。
func (f DatasetFilter) Key() string {
	return fmt.Sprintf("y=%d|c=%s|r=%s|cu=%s",
		f.Year,
		strings.ToLower(f.Category),
		strings.ToLower(f.Region),
		strings.ToLower(f.Customer),
	)
}

// Matches はレコードが全条件を満たすか判定します（条件はAND結合）。
func (f DatasetFilter) Matches(r *SalesRecord) bool {
	if f.Year != 0 && r.Year != f.Year {
		return false
	}
	if f.Category != "" && !strings.EqualFold(r.Category, f.Category) {
		return false
	}
	if f.Region != "" && !strings.EqualFold(r.Region, f.Region) {
		return false
	}
	if f.Customer != "" && !strings.EqualFold(r.CustomerName, f.Customer) {
		return false
	}
	return true
}

// FilteredDataset は親Datasetを変更しない絞り込みビューです。
type FilteredDataset struct {
	Source  *Dataset
	Applied DatasetFilter
	records []SalesRecord
}

// NewFilteredDataset はフィルタ適用結果のビューを構築します。
func NewFilteredDataset(source *Dataset, applied DatasetFilter, records []SalesRecord) *FilteredDataset {
	return &FilteredDataset{Source: source, Applied: applied, records: records}
}

// Records は条件を満たすレコードを返します。
func (d *FilteredDataset) Records() []SalesRecord { return d.records }

// Len は条件を満たすレコード数を返します。
func (d *FilteredDataset) Len() int { return len(d.records) }

// CustomerProfile は顧客ごとの特徴量と再購入ラベルです。
type CustomerProfile struct {
	CustomerName string  `json:"customer_name"`
	OrderCount   int     `json:"order_count"`
	TotalSales   float64 `json:"total_sales"`
	Repurchased  bool    `json:"repurchased"`
}

// RepurchaseModel は学習済みの再購入分類器です（標準化済み特徴量のロジスティック回帰）。
type RepurchaseModel struct {
	Weights      [2]float64 `json:"weights"`
	Bias         float64    `json:"bias"`
	FeatureMeans [2]float64 `json:"feature_means"`
	FeatureStds  [2]float64 `json:"feature_stds"`
	Accuracy     float64    `json:"accuracy"`
	TrainSize    int        `json:"train_size"`
	TestSize     int        `json:"test_size"`
}

// RepurchasePrediction は再購入予測の結果です。
// 未知の顧客名はFound=falseで表現され、エラーではありません。
type RepurchasePrediction struct {
	Found          bool    `json:"found"`
	CustomerName   string  `json:"customer_name,omitempty"`
	WillRepurchase bool    `json:"will_repurchase"`
	Probability    float64 `json:"probability"`
}

// YearlyRevenue は1年分の売上合計です。
type YearlyRevenue struct {
	Year       int     `json:"year"`
	TotalSales float64 `json:"total_sales"`
}

// ForecastModel は年次売上の線形トレンドモデルです。
type ForecastModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	LastYear  int     `json:"last_year"`
}

// ForecastPoint は将来1年分の予測値です。負値もそのまま返します（ゼロで切り捨てない方針）。
type ForecastPoint struct {
	Year           int     `json:"year"`
	PredictedSales float64 `json:"predicted_sales"`
}

// QueryResultType はQueryResultのバリアント種別です。
type QueryResultType string

const (
	ResultScalar        QueryResultType = "scalar"
	ResultRanking       QueryResultType = "ranking"
	ResultList          QueryResultType = "list"
	ResultTable         QueryResultType = "table"
	ResultText          QueryResultType = "text"
	ResultNotUnderstood QueryResultType = "not_understood"
)

// RankingEntry は順序付きのキー→値の1要素です。
type RankingEntry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// QueryResult はディスパッチャーが返す表示非依存の結果エンベロープです。
// 描画方法（テキスト/テーブル/チャート）の決定はフロントエンドに委ねます。
type QueryResult struct {
	Type    QueryResultType `json:"type"`
	Title   string          `json:"title,omitempty"`
	Value   string          `json:"value,omitempty"`
	Text    string          `json:"text,omitempty"`
	Entries []RankingEntry  `json:"entries,omitempty"`
	Items   []string        `json:"items,omitempty"`
	Columns []string        `json:"columns,omitempty"`
	Rows    [][]string      `json:"rows,omitempty"`
}

// ChatRequest はチャットAPIのリクエストボディです。
type ChatRequest struct {
	Message   string        `json:"message" binding:"required"`
	SessionID string        `json:"session_id,omitempty"`
	Filter    DatasetFilter `json:"filter"`
}

// RepurchaseRequest は再購入予測APIのリクエストボディです。
type RepurchaseRequest struct {
	CustomerName string        `json:"customer_name" binding:"required"`
	Filter       DatasetFilter `json:"filter"`
}

// DashboardSummary はダッシュボード先頭のメトリクスカード一式です。
type DashboardSummary struct {
	TotalSales         float64 `json:"total_sales"`
	TotalTransactions  int     `json:"total_transactions"`
	TotalCustomers     int     `json:"total_customers"`
	TotalStates        int     `json:"total_states"`
	TotalCountries     int     `json:"total_countries"`
	TotalCities        int     `json:"total_cities"`
	TotalCategories    int     `json:"total_categories"`
	TotalProducts      int     `json:"total_products"`
	TotalSegments      int     `json:"total_segments"`
	TotalSubCategories int     `json:"total_sub_categories"`
}
