package services

import (
	"errors"
	"testing"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHeader = []string{
	"Order ID", "Order Date", "Customer ID", "Customer Name", "Segment",
	"Country", "City", "State", "Postal Code", "Region",
	"Product Name", "Category", "Sub-Category", "Ship Mode", "Sales",
}

func testRows() [][]string {
	return [][]string{
		testHeader,
		{"CA-1001", "08/11/2016", "CG-100", "Claire Gute", "Consumer", "United States", "Henderson", "Kentucky", "42420", "South", "Bush Somerset Bookcase", "Furniture", "Bookcases", "Second Class", "261.96"},
		{"CA-1001", "08/11/2016", "CG-100", "Claire Gute", "Consumer", "United States", "Henderson", "Kentucky", "42420", "South", "Hon Chairs", "Furniture", "Chairs", "Second Class", "731.94"},
		{"CA-1002", "12/06/2017", "DV-200", "Darrin Van Huff", "Corporate", "United States", "Los Angeles", "California", "90036", "West", "Self-Adhesive Labels", "Office Supplies", "Labels", "Second Class", "14.62"},
		{"CA-1003", "11/10/2017", "SO-300", "Sean O'Donnell", "Consumer", "United States", "Fort Lauderdale", "Florida", "33311", "South", "Bretford Table", "Furniture", "Tables", "Standard Class", "957.58"},
	}
}

func TestLoadDataset(t *testing.T) {
	service := NewDatasetService()

	dataset, err := service.Load(testRows())
	require.NoError(t, err)
	require.Equal(t, 4, dataset.Len())
	assert.NotEmpty(t, dataset.Version)

	// day-first形式: 08/11/2016 は2016年11月8日
	first := dataset.Records()[0]
	assert.Equal(t, 2016, first.Year)
	assert.Equal(t, 11, first.Month)
	assert.Equal(t, 8, first.OrderDate.Day())
	assert.Equal(t, "Claire Gute", first.CustomerName)
	assert.Equal(t, 261.96, first.Sales)
	assert.Equal(t, "Bookcases", first.SubCategory)
}

func TestLoadDatasetMalformedSales(t *testing.T) {
	service := NewDatasetService()

	rows := testRows()
	rows[2][14] = "not-a-number"

	// 1行でも壊れていればロード全体が失敗し、部分データは作られない
	dataset, err := service.Load(rows)
	assert.Nil(t, dataset)

	var malformed *models.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 2, malformed.Row)
	assert.Equal(t, "Sales", malformed.Field)
}

func TestLoadDatasetMalformedDate(t *testing.T) {
	service := NewDatasetService()

	rows := testRows()
	rows[1][1] = "2016-11-08" // ISO形式はday-firstとして解釈できない

	_, err := service.Load(rows)
	var malformed *models.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "Order Date", malformed.Field)
}

func TestLoadDatasetMissingColumn(t *testing.T) {
	service := NewDatasetService()

	rows := testRows()
	rows[0] = rows[0][:14] // Sales列を落とす
	for i := 1; i < len(rows); i++ {
		rows[i] = rows[i][:14]
	}

	_, err := service.Load(rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sales")
}

func TestFilterDataset(t *testing.T) {
	service := NewDatasetService()
	dataset, err := service.Load(testRows())
	require.NoError(t, err)

	// 単一条件
	view := service.Filter(dataset, models.DatasetFilter{Year: 2017})
	assert.Equal(t, 2, view.Len())

	// AND結合
	view = service.Filter(dataset, models.DatasetFilter{Year: 2017, Region: "South"})
	assert.Equal(t, 1, view.Len())
	assert.Equal(t, "Sean O'Donnell", view.Records()[0].CustomerName)

	// 大文字小文字を無視
	view = service.Filter(dataset, models.DatasetFilter{Category: "furniture"})
	assert.Equal(t, 3, view.Len())

	// ゼロ値のフィルタは「すべて」
	view = service.Filter(dataset, models.DatasetFilter{})
	assert.Equal(t, dataset.Len(), view.Len())

	// 親Datasetは変更されない
	assert.Equal(t, 4, dataset.Len())
}

func TestFilterOrderIndependence(t *testing.T) {
	service := NewDatasetService()
	dataset, err := service.Load(testRows())
	require.NoError(t, err)

	// {year, region} と {region, year} は同じ行集合になる
	a := service.Filter(dataset, models.DatasetFilter{Year: 2016, Region: "South"})
	b := service.Filter(dataset, models.DatasetFilter{Region: "South", Year: 2016})

	require.Equal(t, a.Len(), b.Len())
	for i := range a.Records() {
		assert.Equal(t, a.Records()[i].OrderID, b.Records()[i].OrderID)
	}
}

func TestFilterMatchingNothing(t *testing.T) {
	service := NewDatasetService()
	dataset, err := service.Load(testRows())
	require.NoError(t, err)

	view := service.Filter(dataset, models.DatasetFilter{Year: 1999})
	assert.Equal(t, 0, view.Len())
}
