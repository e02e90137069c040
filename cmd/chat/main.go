package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	config "github.com/surabhi65/Retail-Sales-Chatbot/configs"
	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/models"
	"github.com/surabhi65/Retail-Sales-Chatbot/pkg/services"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
)

// 対話型のチャットボットCLI。サーバーを立てずに同じディスパッチャーを叩けます。
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err == nil {
		log.Printf("[INFO] .env loaded")
	}
	cfg := config.LoadConfig()

	dataPath := flag.String("data", cfg.SalesDataPath, "売上CSVファイルのパス")
	year := flag.Int("year", 0, "年で絞り込み (0=すべて)")
	category := flag.String("category", "", "カテゴリで絞り込み")
	region := flag.String("region", "", "リージョンで絞り込み")
	flag.Parse()

	if *dataPath == "" {
		log.Fatalf("Usage: chat --data train.csv [--year 2017] [--category Furniture] [--region West]")
	}

	// CSVを読み込み
	f, err := os.Open(*dataPath)
	if err != nil {
		log.Fatalf("open data: %v", err)
	}
	rows, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		log.Fatalf("read csv: %v", err)
	}

	// サービス一式を組み立て
	datasetService := services.NewDatasetService()
	aggregationService := services.NewAggregationService()
	repurchaseService := services.NewRepurchaseService(
		cfg.RepurchaseOrdersThreshold,
		cfg.RepurchaseSalesThreshold,
		cfg.TrainSplit,
		cfg.RandomSeed,
	)
	forecastService := services.NewForecastService(cfg.ForecastHorizonYears)
	chatbotService := services.NewChatbotService(aggregationService, repurchaseService, forecastService)

	// 行の解釈に進捗バーを付ける
	bar := progressbar.Default(int64(len(rows) - 1))
	dataset, err := datasetService.LoadWithProgress(rows, func() { _ = bar.Add(1) })
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}
	log.Printf("[INFO] loaded %d rows from %s", dataset.Len(), *dataPath)

	filter := models.DatasetFilter{Year: *year, Category: *category, Region: *region}
	view := datasetService.Filter(dataset, filter)
	if !filter.IsZero() {
		log.Printf("[INFO] filter %s -> %d rows", filter.Key(), view.Len())
	}

	// モデルを学習
	qc := &services.QueryContext{View: view}
	qc.Profiles = repurchaseService.BuildProfiles(view)
	if model, trainErr := repurchaseService.Train(qc.Profiles); trainErr != nil {
		log.Printf("[WARN] repurchase model unavailable: %v", trainErr)
	} else {
		qc.Repurchase = model
		log.Printf("[INFO] repurchase model ready (accuracy %.1f%% on holdout)", model.Accuracy*100)
	}
	if model, trainErr := forecastService.Train(view); trainErr != nil {
		qc.ForecastErr = trainErr
		log.Printf("[WARN] forecast model unavailable: %v", trainErr)
	} else {
		qc.Forecast = model
		log.Printf("[INFO] forecast model ready (slope %.2f, R² %.3f)", model.Slope, model.RSquared)
	}

	fmt.Println("🤖 Retail Sales Chatbot")
	fmt.Println("Ask me about sales, products, category, region, etc. (empty line to quit)")
	fmt.Printf("Suggestions: %s\n", strings.Join(chatbotService.Suggestions(), ", "))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		printResult(chatbotService.Dispatch(line, qc))
	}
}

// printResult は結果エンベロープを種別ごとに整形して表示します。
func printResult(result models.QueryResult) {
	switch result.Type {
	case models.ResultScalar:
		fmt.Printf("%s = %s\n", result.Title, result.Value)
	case models.ResultRanking:
		fmt.Printf("%s:\n", result.Title)
		for _, e := range result.Entries {
			fmt.Printf("  %-30s %12.2f\n", e.Label, e.Value)
		}
	case models.ResultList:
		fmt.Printf("%s (%d):\n", result.Title, len(result.Items))
		for _, item := range result.Items {
			fmt.Printf("  - %s\n", item)
		}
	case models.ResultTable:
		fmt.Printf("%s:\n", result.Title)
		fmt.Println(strings.Join(result.Columns, " | "))
		for _, row := range result.Rows {
			fmt.Println(strings.Join(row, " | "))
		}
	default:
		if result.Title != "" {
			fmt.Printf("%s:\n", result.Title)
		}
		fmt.Println(result.Text)
	}
}
