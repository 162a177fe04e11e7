package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bar-bartender/internal/config"
	"bar-bartender/internal/llm"
	"bar-bartender/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

type Scenario struct {
	Description string
	Supplier    string
	Category    string
	SubCategory string
}

// categorize_check mide la sugerencia de categorias del modelo configurado
// contra productos de barra conocidos.
func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.LLMAPIKey == "" {
		log.Fatal("LLM_API_KEY is required")
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, time.Duration(cfg.LLMTimeoutSeconds)*time.Second, logger)
	categorizer := service.NewLLMCategorizer(client, logger)

	scenarios := []Scenario{
		{Description: "Tanqueray London Dry Gin 750ml", Supplier: "Diageo", Category: "Beverage", SubCategory: "Gin"},
		{Description: "Bacardi Carta Blanca", Category: "Beverage", SubCategory: "Rum"},
		{Description: "Fresh Limes (per kg)", Supplier: "Local Market", Category: "Food", SubCategory: "Fruits"},
		{Description: "Monin Passion Fruit Puree", Category: "Beverage", SubCategory: "Puree"},
		{Description: "Fever-Tree Indian Tonic Water", Category: "Beverage", SubCategory: "Soft Drink"},
		{Description: "Heavy Whipping Cream", Category: "Food", SubCategory: "Dairy"},
	}

	var catHits, subHits, answered int
	for _, sc := range scenarios {
		fmt.Printf("%s[Producto]%s %s\n", colorCyan, colorReset, sc.Description)

		cat, sub, ok := categorizer.Categorize(ctx, sc.Description, sc.Supplier)
		if !ok {
			fmt.Printf("%s❌ sin sugerencia%s\n\n", colorRed, colorReset)
			continue
		}
		answered++
		if cat == sc.Category {
			catHits++
		}
		if sub == sc.SubCategory {
			subHits++
		}
		color := colorGreen
		if cat != sc.Category || sub != sc.SubCategory {
			color = colorRed
		}
		fmt.Printf("%ssugerido=%s/%s esperado=%s/%s%s\n\n", color, cat, sub, sc.Category, sc.SubCategory, colorReset)
	}

	n := len(scenarios)
	fmt.Println("==== Resultados ====")
	fmt.Printf("Respondidos: %d/%d | Categoria: %d/%d | Sub categoria: %d/%d\n", answered, n, catHits, n, subHits, n)
	if answered != n {
		os.Exit(1)
	}
}
