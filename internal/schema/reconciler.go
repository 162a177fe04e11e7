package schema

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bar-bartender/internal/db"
)

// Reconciler lleva el esquema vivo a la forma que espera la aplicacion.
// Es seguro invocarlo en cada request de escritura.
type Reconciler struct {
	runner *Runner
	steps  []Step
	mu     sync.Mutex
}

// NewReconciler usa la lista fija de pasos de Steps.
func NewReconciler(store *db.DB, logger *zap.Logger) *Reconciler {
	return NewReconcilerWithSteps(store, logger, Steps())
}

func NewReconcilerWithSteps(store *db.DB, logger *zap.Logger, steps []Step) *Reconciler {
	return &Reconciler{runner: NewRunner(store, logger), steps: steps}
}

// Ensure corre todos los pasos y devuelve sus resultados. Nunca falla: los
// errores quedan en cada Result y en el log.
func (r *Reconciler) Ensure(ctx context.Context) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runner.Run(ctx, r.steps)
}

// Middleware ejecuta Ensure antes del handler.
func (r *Reconciler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		r.Ensure(c.Request.Context())
		c.Next()
	}
}

// Steps devuelve la lista ordenada de correcciones. Las columnas user_id se
// agregan antes de los reemplazos de unicidad que dependen de ellas.
func Steps() []Step {
	steps := []Step{
		AddColumn("recipe", "item_level", "VARCHAR(20) DEFAULT 'Primary'"),
		AddColumn("recipe", "selling_price", "FLOAT DEFAULT 0"),
		AddColumn("recipe", "vat_percentage", "FLOAT DEFAULT 0"),
		AddColumn("recipe", "service_charge_percentage", "FLOAT DEFAULT 0"),
		AddColumn("recipe", "government_fees_percentage", "FLOAT DEFAULT 0"),
		AddColumn("recipe", "garnish", "TEXT"),
		AddColumn("product", "item_level", "VARCHAR(20) DEFAULT 'Primary'"),

		AddColumn("recipe_ingredient", "ingredient_type", "VARCHAR(20)"),
		AddColumn("recipe_ingredient", "ingredient_id", "INTEGER"),
		AddColumn("recipe_ingredient", "quantity", "FLOAT"),
		AddColumn("recipe_ingredient", "unit", "VARCHAR(20) DEFAULT 'ml'"),
		Backfill("recipe_ingredient", "ingredient_id", []string{"ingredient_id", "product_id"},
			`UPDATE recipe_ingredient SET ingredient_id = product_id
			 WHERE ingredient_id IS NULL AND product_id IS NOT NULL`),
		Backfill("recipe_ingredient", "ingredient_type", []string{"ingredient_type", "product_type"},
			`UPDATE recipe_ingredient SET ingredient_type = product_type
			 WHERE ingredient_type IS NULL AND product_type IS NOT NULL`),
		Backfill("recipe_ingredient", "quantity", []string{"quantity", "quantity_ml"},
			`UPDATE recipe_ingredient SET quantity = quantity_ml
			 WHERE quantity IS NULL AND quantity_ml IS NOT NULL`),
		Backfill("recipe_ingredient", "unit", []string{"unit"},
			`UPDATE recipe_ingredient SET unit = 'ml' WHERE unit IS NULL`),

		AddColumn("homemade_ingredient_item", "quantity", "FLOAT DEFAULT 0"),
		AddColumn("homemade_ingredient_item", "unit", "VARCHAR(20) DEFAULT 'ml'"),
		Backfill("homemade_ingredient_item", "quantity_ml", []string{"quantity_ml", "quantity"},
			`UPDATE homemade_ingredient_item SET quantity_ml = COALESCE(quantity, 0)
			 WHERE quantity_ml IS NULL`),

		AddColumn("product", "user_id", "BIGINT REFERENCES users(id)"),
		AddColumn("homemade_ingredient", "user_id", "BIGINT REFERENCES users(id)"),
		AddColumn("recipe", "user_id", "BIGINT REFERENCES users(id)"),
	}

	for _, u := range TenantUniques() {
		steps = append(steps, ReplaceGlobalUnique(u))
	}
	return steps
}

// TenantUniques enumera las reglas de unicidad por cuenta.
func TenantUniques() []TenantUnique {
	return []TenantUnique{
		{
			Table:  "product",
			Column: "unique_item_number",
			Legacy: []string{"product_unique_item_number_key"},
			Index:  "uq_product_user_unique_item_number",
		},
		{
			Table:  "product",
			Column: "barbuddy_code",
			Legacy: []string{"product_barbuddy_code_key"},
			Index:  "uq_product_user_barbuddy_code",
		},
		{
			Table:  "homemade_ingredient",
			Column: "unique_code",
			Legacy: []string{"homemade_ingredient_unique_code_key"},
			Index:  "uq_homemade_ingredient_user_unique_code",
		},
		{
			Table:  "recipe",
			Column: "recipe_code",
			Legacy: []string{"recipe_recipe_code_key"},
			Index:  "uq_recipe_user_recipe_code",
		},
	}
}
