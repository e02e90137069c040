package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// UploadDataset は.csvまたは.xlsxの売上ファイルを受け取り、アクティブな
// データセットを差し替えます。1行でも必須項目が解釈できなければロード全体が
// 失敗し、以前のデータセットがそのまま残ります。
func (h *ChatHandler) UploadDataset(c *gin.Context) {
	c.Request.ParseMultipartForm(10 << 20) // 10MB limit

	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ファイルの取得に失敗しました。"})
		return
	}
	defer file.Close()

	rows, err := readTabularRows(file, fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset, err := h.datasetService.Load(rows)
	if err != nil {
		var malformed *models.MalformedRecordError
		if errors.As(err, &malformed) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "データに解釈できない行があるため、ロードを中止しました: " + malformed.Error(),
				"row":     malformed.Row,
				"field":   malformed.Field,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.SetDataset(dataset)

	// 既定（フィルタなし）のモデルを先に学習しておく
	tm := h.modelsFor(dataset, models.DatasetFilter{}, dataset)

	log.Printf("📂 ファイルアップロード完了: %s (%d行)", fileHeader.Filename, dataset.Len())

	response := gin.H{
		"success":         true,
		"file_name":       fileHeader.Filename,
		"rows":            dataset.Len(),
		"dataset_version": dataset.Version,
	}
	if tm.repurchase != nil {
		response["repurchase_model_accuracy"] = tm.repurchase.Accuracy
	}
	if tm.forecast != nil {
		response["forecast_r_squared"] = tm.forecast.RSquared
	} else if tm.forecastErr != nil {
		response["forecast_unavailable"] = tm.forecastErr.Error()
	}

	c.JSON(http.StatusOK, response)
}

// readTabularRows はファイル名の拡張子に応じて行データを読み出します。
func readTabularRows(r io.Reader, fileName string) ([][]string, error) {
	lower := strings.ToLower(fileName)

	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, errors.New("Excelファイルの読み込みに失敗しました。")
		}
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, errors.New("Excelシートの行取得に失敗しました。")
		}
		return rows, nil

	case strings.HasSuffix(lower, ".csv"):
		reader := csv.NewReader(r)
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, errors.New("CSVファイルの解析に失敗しました。")
		}
		return rows, nil
	}

	return nil, errors.New("サポートされていないファイル形式です。.xlsxまたは.csvをアップロードしてください。")
}
