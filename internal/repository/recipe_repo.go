package repository

import (
	"context"
	"time"

	"bar-bartender/internal/db"
	"bar-bartender/internal/domain"
)

// RecipeRepository persiste recetas con sus ingredientes.
type RecipeRepository interface {
	// Create y Update escriben varias tablas; deben correr dentro de Store.InTx.
	Create(ctx context.Context, r *domain.Recipe) error
	// Update reemplaza los ingredientes de la receta.
	Update(ctx context.Context, r *domain.Recipe) error
	Get(ctx context.Context, userID, id int64) (domain.Recipe, error)
	GetByCode(ctx context.Context, userID int64, code string) (domain.Recipe, error)
	List(ctx context.Context, userID int64) ([]domain.Recipe, error)
	Count(ctx context.Context, userID int64) (int, error)
	CodeExists(ctx context.Context, userID int64, code string) (bool, error)
	Delete(ctx context.Context, userID, id int64) error
}

type SQLRecipeRepository struct {
	q db.DBTX
	d db.Dialect
}

const recipeColumns = `
	id, user_id, COALESCE(recipe_code, ''), title, COALESCE(method, ''), COALESCE(garnish, ''),
	COALESCE(food_category, ''), COALESCE(recipe_type, ''), COALESCE(type, ''),
	COALESCE(item_level, 'Primary'), COALESCE(selling_price, 0), COALESCE(vat_percentage, 0),
	COALESCE(service_charge_percentage, 0), COALESCE(government_fees_percentage, 0), created_at`

func scanRecipe(s scanner) (domain.Recipe, error) {
	var rc domain.Recipe
	err := s.Scan(
		&rc.ID, &rc.UserID, &rc.RecipeCode, &rc.Title, &rc.Method, &rc.Garnish,
		&rc.FoodCategory, &rc.RecipeType, &rc.Type,
		&rc.ItemLevel, &rc.SellingPrice, &rc.VATPercentage,
		&rc.ServiceChargePercentage, &rc.GovernmentFeesPercentage, &rc.CreatedAt,
	)
	return rc, err
}

func (r *SQLRecipeRepository) Create(ctx context.Context, rc *domain.Recipe) error {
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now().UTC()
	}
	id, err := insertReturningID(ctx, r.q, r.d, `
		INSERT INTO recipe (
			user_id, recipe_code, title, method, garnish, food_category, recipe_type, type,
			item_level, selling_price, vat_percentage, service_charge_percentage,
			government_fees_percentage, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rc.UserID, nullable(rc.RecipeCode), rc.Title, rc.Method, rc.Garnish, rc.FoodCategory,
		rc.RecipeType, rc.Type, rc.ItemLevel, rc.SellingPrice, rc.VATPercentage,
		rc.ServiceChargePercentage, rc.GovernmentFeesPercentage, rc.CreatedAt,
	)
	if err != nil {
		return translate(r.d, "insert recipe", err)
	}
	rc.ID = id
	return r.insertIngredients(ctx, rc)
}

func (r *SQLRecipeRepository) Update(ctx context.Context, rc *domain.Recipe) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`
		UPDATE recipe SET
			title = ?, method = ?, garnish = ?, food_category = ?, recipe_type = ?, type = ?,
			item_level = ?, selling_price = ?, vat_percentage = ?,
			service_charge_percentage = ?, government_fees_percentage = ?
		WHERE id = ? AND user_id = ?`),
		rc.Title, rc.Method, rc.Garnish, rc.FoodCategory, rc.RecipeType, rc.Type,
		rc.ItemLevel, rc.SellingPrice, rc.VATPercentage,
		rc.ServiceChargePercentage, rc.GovernmentFeesPercentage,
		rc.ID, rc.UserID,
	)
	if err != nil {
		return translate(r.d, "update recipe", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := r.q.ExecContext(ctx, r.d.Rebind(`DELETE FROM recipe_ingredient WHERE recipe_id = ?`), rc.ID); err != nil {
		return translate(r.d, "clear recipe ingredients", err)
	}
	return r.insertIngredients(ctx, rc)
}

// insertIngredients escribe tambien las columnas heredadas product_type,
// product_id y quantity_ml para lectores anteriores.
func (r *SQLRecipeRepository) insertIngredients(ctx context.Context, rc *domain.Recipe) error {
	for i := range rc.Ingredients {
		ri := &rc.Ingredients[i]
		ri.RecipeID = rc.ID
		if ri.Unit == "" {
			ri.Unit = "ml"
		}
		id, err := insertReturningID(ctx, r.q, r.d, `
			INSERT INTO recipe_ingredient (
				recipe_id, ingredient_type, ingredient_id, quantity, unit,
				quantity_ml, product_type, product_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rc.ID, string(ri.Kind), ri.IngredientID, ri.Quantity, ri.Unit,
			ri.QuantityML, string(ri.Kind), ri.IngredientID,
		)
		if err != nil {
			return translate(r.d, "insert recipe ingredient", err)
		}
		ri.ID = id
	}
	return nil
}

func (r *SQLRecipeRepository) Get(ctx context.Context, userID, id int64) (domain.Recipe, error) {
	return r.getOne(ctx, userID, `id = ?`, id)
}

func (r *SQLRecipeRepository) GetByCode(ctx context.Context, userID int64, code string) (domain.Recipe, error) {
	return r.getOne(ctx, userID, `recipe_code = ?`, code)
}

func (r *SQLRecipeRepository) getOne(ctx context.Context, userID int64, cond string, arg any) (domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipe WHERE user_id = ? AND ` + cond
	rc, err := scanRecipe(r.q.QueryRowContext(ctx, r.d.Rebind(query), userID, arg))
	if err != nil {
		return domain.Recipe{}, translate(r.d, "select recipe", err)
	}
	recipes := []domain.Recipe{rc}
	if err := r.loadIngredients(ctx, userID, recipes); err != nil {
		return domain.Recipe{}, err
	}
	return recipes[0], nil
}

func (r *SQLRecipeRepository) List(ctx context.Context, userID int64) ([]domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipe WHERE user_id = ? ORDER BY title, id`
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(query), userID)
	if err != nil {
		return nil, translate(r.d, "list recipes", err)
	}
	var out []domain.Recipe
	for rows.Next() {
		rc, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, translate(r.d, "scan recipe", err)
		}
		out = append(out, rc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(r.d, "list recipes", err)
	}
	if err := r.loadIngredients(ctx, userID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadIngredients completa Ingredients de cada receta con el producto o
// casero referido, necesarios para el costeo. Las filas previas a la
// reconciliacion se leen por sus columnas heredadas.
func (r *SQLRecipeRepository) loadIngredients(ctx context.Context, userID int64, recipes []domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	byID := make(map[int64]int, len(recipes))
	args := make([]any, 0, len(recipes))
	for i, rc := range recipes {
		byID[rc.ID] = i
		args = append(args, rc.ID)
	}

	query := `
		SELECT id, recipe_id,
			COALESCE(ingredient_type, product_type, ''),
			COALESCE(ingredient_id, product_id, 0),
			COALESCE(quantity, quantity_ml, 0),
			COALESCE(unit, 'ml'),
			COALESCE(quantity_ml, quantity, 0)
		FROM recipe_ingredient
		WHERE recipe_id IN (` + placeholders(len(recipes)) + `)
		ORDER BY id`
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return translate(r.d, "list recipe ingredients", err)
	}
	var (
		productIDs  []int64
		homemadeIDs []int64
	)
	for rows.Next() {
		var (
			ri   domain.RecipeIngredient
			kind string
		)
		if err := rows.Scan(&ri.ID, &ri.RecipeID, &kind, &ri.IngredientID, &ri.Quantity, &ri.Unit, &ri.QuantityML); err != nil {
			rows.Close()
			return translate(r.d, "scan recipe ingredient", err)
		}
		ri.Kind, _ = domain.ParseIngredientKind(kind)
		switch ri.Kind {
		case domain.IngredientProduct:
			productIDs = append(productIDs, ri.IngredientID)
		case domain.IngredientHomemade:
			homemadeIDs = append(homemadeIDs, ri.IngredientID)
		}
		idx := byID[ri.RecipeID]
		recipes[idx].Ingredients = append(recipes[idx].Ingredients, ri)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return translate(r.d, "list recipe ingredients", err)
	}

	products, err := r.productsByID(ctx, userID, productIDs)
	if err != nil {
		return err
	}
	homemade := map[int64]*domain.HomemadeIngredient{}
	if len(homemadeIDs) > 0 {
		hr := &SQLHomemadeRepository{q: r.q, d: r.d}
		list, err := hr.list(ctx, userID, homemadeIDs)
		if err != nil {
			return err
		}
		for i := range list {
			homemade[list[i].ID] = &list[i]
		}
	}

	for i := range recipes {
		for j := range recipes[i].Ingredients {
			ri := &recipes[i].Ingredients[j]
			switch ri.Kind {
			case domain.IngredientProduct:
				ri.Product = products[ri.IngredientID]
			case domain.IngredientHomemade:
				ri.Homemade = homemade[ri.IngredientID]
			}
		}
	}
	return nil
}

func (r *SQLRecipeRepository) productsByID(ctx context.Context, userID int64, ids []int64) (map[int64]*domain.Product, error) {
	out := map[int64]*domain.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	args := []any{userID}
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT ` + productColumns("") + ` FROM product WHERE user_id = ? AND id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return nil, translate(r.d, "load recipe products", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, translate(r.d, "scan product", err)
		}
		out[p.ID] = &p
	}
	return out, translate(r.d, "load recipe products", rows.Err())
}

func (r *SQLRecipeRepository) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM recipe WHERE user_id = ?`), userID).Scan(&n)
	if err != nil {
		return 0, translate(r.d, "count recipes", err)
	}
	return n, nil
}

func (r *SQLRecipeRepository) CodeExists(ctx context.Context, userID int64, code string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		r.d.Rebind(`SELECT COUNT(*) FROM recipe WHERE user_id = ? AND recipe_code = ?`),
		userID, code,
	).Scan(&n)
	if err != nil {
		return false, translate(r.d, "lookup recipe code", err)
	}
	return n > 0, nil
}

func (r *SQLRecipeRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`DELETE FROM recipe WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return translate(r.d, "delete recipe", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
