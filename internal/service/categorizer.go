package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"bar-bartender/internal/llm"
)

// ProductCategories y ProductSubCategories son los vocabularios cerrados que
// acepta la sugerencia automatica.
var ProductCategories = []string{"Beverage", "Food"}

var ProductSubCategories = []string{
	"Alcohol", "Vodka", "Gin", "Rum", "American Whiskey", "Scotch Whisky",
	"Single Malt", "Rye Whiskey", "Irish Whiskey", "Japanese Whiskey",
	"Amaro / Vermouth", "Brandy", "Cognac", "Red Wine", "White Wine",
	"Rose Wine", "Sparkling Wine", "Generic Liqueur", "Branded Liqueur",
	"Tequila", "Non Alcohol", "Non-Alcohol", "Non-Alcoholic Spirit",
	"Non Alcoholic Beer", "Non-Alcoholic Wine", "Water", "Soft Drink",
	"Tea", "Coffee", "Fruits", "Fresh Berries", "Frozen Berries",
	"Vegetables", "Herbs", "Spice", "Edible Flowers", "Dairy",
	"Plant Based Milk", "Syrups & Purees", "Syrup", "Puree",
	"Frozen Puree", "Juice", "Packet Juice", "Other",
}

const categorizerSystemPrompt = "You are a helpful assistant that categorizes products for bar and restaurant inventory management. Always respond with valid JSON only."

// Categorizer sugiere categoria y sub categoria de un producto.
type Categorizer interface {
	Categorize(ctx context.Context, description, supplier string) (category, subCategory string, ok bool)
}

// LLMCategorizer consulta un LLM. La sugerencia es orientativa: cualquier
// falla devuelve ok=false y el llamador sigue con sus valores.
type LLMCategorizer struct {
	client llm.Client
	logger *zap.Logger
}

// NewLLMCategorizer devuelve nil si no hay cliente configurado.
func NewLLMCategorizer(client llm.Client, logger *zap.Logger) *LLMCategorizer {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMCategorizer{client: client, logger: logger}
}

func (c *LLMCategorizer) Categorize(ctx context.Context, description, supplier string) (string, string, bool) {
	if c == nil || c.client == nil || strings.TrimSpace(description) == "" {
		return "", "", false
	}

	raw, err := c.client.Generate(ctx, categorizerSystemPrompt, categorizerPrompt(description, supplier))
	if err != nil {
		c.logger.Warn("ai categorization failed", zap.Error(err), zap.String("description", description))
		return "", "", false
	}

	var out struct {
		Category    string `json:"category"`
		SubCategory string `json:"sub_category"`
	}
	if err := decodeLLMJSON(raw, &out); err != nil {
		c.logger.Warn("ai categorization returned invalid json", zap.Error(err), zap.String("description", description))
		return "", "", false
	}

	category := strings.TrimSpace(out.Category)
	subCategory := strings.TrimSpace(out.SubCategory)
	if !slices.Contains(ProductCategories, category) {
		c.logger.Warn("ai returned invalid category, defaulting to Beverage", zap.String("category", category))
		category = "Beverage"
	}
	if !slices.Contains(ProductSubCategories, subCategory) {
		c.logger.Warn("ai returned invalid sub_category, defaulting to Other", zap.String("sub_category", subCategory))
		subCategory = "Other"
	}
	return category, subCategory, true
}

func categorizerPrompt(description, supplier string) string {
	var b strings.Builder
	b.WriteString("Analyze this product and determine its category and sub-category for a bar/restaurant inventory system.\n\n")
	fmt.Fprintf(&b, "Product Description: %s\n", description)
	if s := strings.TrimSpace(supplier); s != "" && s != "N/A" {
		fmt.Fprintf(&b, "Supplier: %s\n", s)
	}
	fmt.Fprintf(&b, "\nCategories available: %s\n", strings.Join(ProductCategories, ", "))
	fmt.Fprintf(&b, "Sub-categories available: %s\n\n", strings.Join(ProductSubCategories, ", "))
	b.WriteString("Based on the product description, identify:\n")
	fmt.Fprintf(&b, "1. The most appropriate category (must be one of: %s)\n", strings.Join(ProductCategories, ", "))
	b.WriteString("2. The most specific sub-category from the list above\n\n")
	b.WriteString("Respond ONLY with a JSON object in this exact format:\n")
	b.WriteString(`{"category": "Beverage or Food", "sub_category": "exact match from the list"}`)
	b.WriteString("\n\nIf you cannot determine with confidence, use \"Other\" for sub-category.\n")
	b.WriteString("Do not include any explanation, only the JSON object.")
	return b.String()
}

// NeedsCategorization indica si falta categoria o sub categoria, contando
// "Other" como faltante.
func NeedsCategorization(category, subCategory string) bool {
	missing := func(s string) bool {
		s = strings.TrimSpace(s)
		return s == "" || s == "Other"
	}
	return missing(category) || missing(subCategory)
}
