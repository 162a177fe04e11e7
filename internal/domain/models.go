package domain

import (
	"strings"
	"time"
)

const (
	ItemLevelPrimary   = "Primary"
	ItemLevelSecondary = "Secondary"
)

// IngredientKind distingue de donde sale el costo de un ingrediente.
type IngredientKind string

const (
	IngredientProduct  IngredientKind = "Product"
	IngredientHomemade IngredientKind = "Homemade"
)

// ParseIngredientKind acepta tambien "Secondary", la etiqueta visible de los
// ingredientes caseros.
func ParseIngredientKind(s string) (IngredientKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "product":
		return IngredientProduct, true
	case "homemade", "secondary":
		return IngredientHomemade, true
	}
	return "", false
}

type Product struct {
	ID               int64   `json:"id"`
	UserID           int64   `json:"user_id"`
	UniqueItemNumber string  `json:"unique_item_number,omitempty"`
	BarbuddyCode     string  `json:"barbuddy_code,omitempty"`
	Supplier         string  `json:"supplier,omitempty"`
	Description      string  `json:"description"`
	Category         string  `json:"category,omitempty"`
	SubCategory      string  `json:"sub_category,omitempty"`
	MLInBottle       float64 `json:"ml_in_bottle"`
	ABV              float64 `json:"abv"`
	SellingUnit      string  `json:"selling_unit,omitempty"`
	CostPerUnit      float64 `json:"cost_per_unit"`
	PurchaseType     string  `json:"purchase_type,omitempty"`
	BottlesPerCase   int     `json:"bottles_per_case"`
	ItemLevel        string  `json:"item_level"`
}

// CostPerML reparte el costo del envase entre su volumen. Sin volumen
// conocido el producto se cuesta por unidad.
func (p Product) CostPerML() float64 {
	if p.MLInBottle > 0 {
		return p.CostPerUnit / p.MLInBottle
	}
	return p.CostPerUnit
}

// HomemadeIngredient es un ingrediente secundario preparado en la barra a
// partir de productos.
type HomemadeIngredient struct {
	ID            int64                    `json:"id"`
	UserID        int64                    `json:"user_id"`
	Name          string                   `json:"name"`
	UniqueCode    string                   `json:"unique_code,omitempty"`
	TotalVolumeML float64                  `json:"total_volume_ml"`
	Unit          string                   `json:"unit"`
	Method        string                   `json:"method,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	Items         []HomemadeIngredientItem `json:"items,omitempty"`
}

type HomemadeIngredientItem struct {
	ID         int64    `json:"id"`
	HomemadeID int64    `json:"homemade_id"`
	ProductID  int64    `json:"product_id"`
	QuantityML float64  `json:"quantity_ml"`
	Unit       string   `json:"unit"`
	Product    *Product `json:"product,omitempty"`
}

// Cost suma el costo de cada producto usado en la preparacion.
func (h HomemadeIngredient) Cost() float64 {
	var total float64
	for _, it := range h.Items {
		if it.Product == nil {
			continue
		}
		total += it.QuantityML * it.Product.CostPerML()
	}
	return total
}

// CostPerUnit es el costo por ml del lote; 0 si el volumen no es valido.
func (h HomemadeIngredient) CostPerUnit() float64 {
	if h.TotalVolumeML <= 0 {
		return 0
	}
	return h.Cost() / h.TotalVolumeML
}
