package domain

import (
	"slices"
	"strings"
	"time"
)

type Recipe struct {
	ID                       int64              `json:"id"`
	UserID                   int64              `json:"user_id"`
	RecipeCode               string             `json:"recipe_code"`
	Title                    string             `json:"title"`
	Method                   string             `json:"method,omitempty"`
	Garnish                  string             `json:"garnish,omitempty"`
	FoodCategory             string             `json:"food_category,omitempty"`
	RecipeType               string             `json:"recipe_type"` // "Beverage" o "Food"
	Type                     string             `json:"type"`        // etiqueta especifica: "Cocktails", "Mocktails"...
	ItemLevel                string             `json:"item_level"`
	SellingPrice             float64            `json:"selling_price"`
	VATPercentage            float64            `json:"vat_percentage"`
	ServiceChargePercentage  float64            `json:"service_charge_percentage"`
	GovernmentFeesPercentage float64            `json:"government_fees_percentage"`
	CreatedAt                time.Time          `json:"created_at"`
	Ingredients              []RecipeIngredient `json:"ingredients,omitempty"`
}

type RecipeIngredient struct {
	ID           int64               `json:"id"`
	RecipeID     int64               `json:"recipe_id"`
	Kind         IngredientKind      `json:"ingredient_type"`
	IngredientID int64               `json:"ingredient_id"`
	Quantity     float64             `json:"quantity"`
	Unit         string              `json:"unit"`
	QuantityML   float64             `json:"quantity_ml"`
	Product      *Product            `json:"product,omitempty"`
	Homemade     *HomemadeIngredient `json:"homemade,omitempty"`
}

// Name devuelve la descripcion del producto o el nombre del casero.
func (ri RecipeIngredient) Name() string {
	switch {
	case ri.Product != nil:
		return ri.Product.Description
	case ri.Homemade != nil:
		return ri.Homemade.Name
	}
	return ""
}

// Cost es el costo de la cantidad usada; 0 si el ingrediente no se cargo.
func (ri RecipeIngredient) Cost() float64 {
	switch ri.Kind {
	case IngredientProduct:
		if ri.Product != nil {
			return ri.QuantityML * ri.Product.CostPerML()
		}
	case IngredientHomemade:
		if ri.Homemade != nil {
			return ri.QuantityML * ri.Homemade.CostPerUnit()
		}
	}
	return 0
}

// ConvertToML pasa una cantidad expresada en envases a ml cuando el producto
// declara su volumen. Cualquier otra combinacion se toma como ml.
func ConvertToML(quantity float64, unit string, product *Product) float64 {
	if unit != "" && !strings.EqualFold(unit, "ml") && product != nil && product.MLInBottle > 0 {
		return quantity * product.MLInBottle
	}
	return quantity
}

type CostLine struct {
	Kind         IngredientKind `json:"ingredient_type"`
	IngredientID int64          `json:"ingredient_id"`
	Name         string         `json:"name"`
	Quantity     float64        `json:"quantity"`
	Unit         string         `json:"unit"`
	QuantityML   float64        `json:"quantity_ml"`
	Cost         float64        `json:"cost"`
}

// CostBreakdown resume costo y precio final de una receta. Los porcentajes
// se aplican sobre el precio de venta.
type CostBreakdown struct {
	Lines          []CostLine `json:"lines"`
	TotalCost      float64    `json:"total_cost"`
	SellingPrice   float64    `json:"selling_price"`
	VAT            float64    `json:"vat"`
	ServiceCharge  float64    `json:"service_charge"`
	GovernmentFees float64    `json:"government_fees"`
	FinalPrice     float64    `json:"final_price"`
	CostPercent    float64    `json:"cost_percent"`
	GrossProfit    float64    `json:"gross_profit"`
}

func (r Recipe) Breakdown() CostBreakdown {
	b := CostBreakdown{
		Lines:        make([]CostLine, 0, len(r.Ingredients)),
		SellingPrice: r.SellingPrice,
	}
	for _, ri := range r.Ingredients {
		line := CostLine{
			Kind:         ri.Kind,
			IngredientID: ri.IngredientID,
			Name:         ri.Name(),
			Quantity:     ri.Quantity,
			Unit:         ri.Unit,
			QuantityML:   ri.QuantityML,
			Cost:         ri.Cost(),
		}
		b.TotalCost += line.Cost
		b.Lines = append(b.Lines, line)
	}

	b.VAT = r.SellingPrice * r.VATPercentage / 100
	b.ServiceCharge = r.SellingPrice * r.ServiceChargePercentage / 100
	b.GovernmentFees = r.SellingPrice * r.GovernmentFeesPercentage / 100
	b.FinalPrice = r.SellingPrice + b.VAT + b.ServiceCharge + b.GovernmentFees
	b.GrossProfit = r.SellingPrice - b.TotalCost
	if r.SellingPrice > 0 {
		b.CostPercent = b.TotalCost / r.SellingPrice * 100
	}
	return b
}

// RecipeCategory agrupa las etiquetas que se guardaron historicamente para
// un mismo tipo de receta.
type RecipeCategory struct {
	Slug     string   `json:"slug"`
	Display  string   `json:"display"`
	DBLabels []string `json:"db_labels"`
}

var recipeCategories = []RecipeCategory{
	{Slug: "cocktails", Display: "Cocktails", DBLabels: []string{"Cocktails", "Classic"}},
	{Slug: "mocktails", Display: "Mocktails", DBLabels: []string{"Mocktails", "Signature"}},
	{Slug: "beverages", Display: "Beverages", DBLabels: []string{"Beverages", "Beverage"}},
	{Slug: "food", Display: "Food", DBLabels: []string{"Food"}},
}

// RecipeCategories devuelve una copia del catalogo de categorias.
func RecipeCategories() []RecipeCategory {
	return slices.Clone(recipeCategories)
}

// ResolveRecipeCategory acepta el slug, la etiqueta visible o cualquier
// etiqueta guardada, sin distinguir mayusculas; tambien el singular.
func ResolveRecipeCategory(s string) (RecipeCategory, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return RecipeCategory{}, false
	}
	for _, c := range recipeCategories {
		if key == c.Slug || key+"s" == c.Slug {
			return c, true
		}
		for _, l := range c.DBLabels {
			if strings.EqualFold(key, l) {
				return c, true
			}
		}
	}
	return RecipeCategory{}, false
}

// Matches prioriza Type sobre RecipeType: RecipeType es generico
// ("Beverage") y solo sirve cuando Type esta vacio.
func (c RecipeCategory) Matches(r Recipe) bool {
	if r.Type != "" {
		return slices.Contains(c.DBLabels, r.Type)
	}
	return slices.Contains(c.DBLabels, r.RecipeType)
}

// ClassifyRecipe deriva recipe_type y type a partir de la categoria elegida
// y de la sub categoria libre.
func ClassifyRecipe(c RecipeCategory, foodCategory string) (recipeType, typ string) {
	if c.Slug == "food" {
		return "Food", "Food"
	}
	fc := strings.ToLower(foodCategory)
	switch {
	case fc == "":
		return "Beverage", c.DBLabels[0]
	case strings.Contains(fc, "cocktail"):
		return "Beverage", "Cocktails"
	case strings.Contains(fc, "mocktail"):
		return "Beverage", "Mocktails"
	}
	return "Beverage", "Beverages"
}

// DisplayCategory es la etiqueta usada para filtrar y agrupar listados.
func (r Recipe) DisplayCategory() string {
	if r.FoodCategory != "" {
		return r.FoodCategory
	}
	key := r.Type
	if key == "" {
		key = r.RecipeType
	}
	switch strings.ToLower(key) {
	case "cocktails", "classic":
		return "Cocktail"
	case "mocktails", "signature":
		return "Mocktail"
	case "beverages", "beverage":
		return "Beverage"
	case "food":
		return "Food"
	}
	return ""
}
