package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"bar-bartender/internal/domain"
	"bar-bartender/internal/repository"
)

var (
	ErrInvalidRecipe   = errors.New("invalid recipe")
	ErrInvalidCategory = errors.New("unknown recipe category")
)

const recipeCodeAttempts = 100

// RecipeIngredientInput llega tal cual del formulario: id y cantidad pueden
// venir como texto.
type RecipeIngredientInput struct {
	Type     string `json:"type"`
	ID       any    `json:"id"`
	Quantity any    `json:"quantity"`
	Unit     string `json:"unit"`
}

type RecipeInput struct {
	Title                    string                  `json:"title"`
	Method                   string                  `json:"method"`
	Garnish                  string                  `json:"garnish"`
	FoodCategory             string                  `json:"food_category"`
	ItemLevel                string                  `json:"item_level"`
	SellingPrice             float64                 `json:"selling_price"`
	VATPercentage            float64                 `json:"vat_percentage"`
	ServiceChargePercentage  float64                 `json:"service_charge_percentage"`
	GovernmentFeesPercentage float64                 `json:"government_fees_percentage"`
	Ingredients              []RecipeIngredientInput `json:"ingredients"`
}

type RecipeFilter struct {
	Type     string
	Category string
}

// RecipeDetail es la receta con su costeo calculado.
type RecipeDetail struct {
	domain.Recipe
	Cost domain.CostBreakdown `json:"cost"`
}

type RecipeService struct {
	logger *zap.Logger
	store  *repository.Store
	now    func() time.Time
}

func NewRecipeService(logger *zap.Logger, store *repository.Store) *RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeService{
		logger: logger,
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create da de alta una receta en la categoria indicada (slug o etiqueta).
func (s *RecipeService) Create(ctx context.Context, userID int64, category string, in RecipeInput) (RecipeDetail, error) {
	c, ok := domain.ResolveRecipeCategory(category)
	if !ok {
		return RecipeDetail{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	rc := domain.Recipe{UserID: userID, CreatedAt: s.now()}
	if err := in.apply(&rc); err != nil {
		return RecipeDetail{}, err
	}
	rc.RecipeType, rc.Type = domain.ClassifyRecipe(c, rc.FoodCategory)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		ingredients, err := s.resolveIngredients(ctx, tx, userID, in.Ingredients)
		if err != nil {
			return err
		}
		rc.Ingredients = ingredients

		code, err := s.nextRecipeCode(ctx, tx.Recipes(), userID)
		if err != nil {
			return err
		}
		rc.RecipeCode = code
		return tx.Recipes().Create(ctx, &rc)
	})
	if err != nil {
		return RecipeDetail{}, s.wrap("create recipe", err)
	}
	s.logger.Info("recipe created",
		zap.Int64("user_id", userID),
		zap.String("recipe_code", rc.RecipeCode),
		zap.String("type", rc.Type),
	)
	return s.Get(ctx, userID, rc.ID)
}

// Update reemplaza datos e ingredientes. El codigo se conserva y la
// clasificacion se recalcula con la categoria original de la receta.
func (s *RecipeService) Update(ctx context.Context, userID, id int64, in RecipeInput) (RecipeDetail, error) {
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		rc, err := tx.Recipes().Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := in.apply(&rc); err != nil {
			return err
		}
		if c, ok := recipeCategoryOf(rc); ok {
			rc.RecipeType, rc.Type = domain.ClassifyRecipe(c, rc.FoodCategory)
		}
		ingredients, err := s.resolveIngredients(ctx, tx, userID, in.Ingredients)
		if err != nil {
			return err
		}
		rc.Ingredients = ingredients
		return tx.Recipes().Update(ctx, &rc)
	})
	if err != nil {
		return RecipeDetail{}, s.wrap("update recipe", err)
	}
	return s.Get(ctx, userID, id)
}

func (s *RecipeService) Get(ctx context.Context, userID, id int64) (RecipeDetail, error) {
	rc, err := s.store.Recipes().Get(ctx, userID, id)
	if err != nil {
		return RecipeDetail{}, s.wrap("get recipe", err)
	}
	return RecipeDetail{Recipe: rc, Cost: rc.Breakdown()}, nil
}

func (s *RecipeService) GetByCode(ctx context.Context, userID int64, code string) (RecipeDetail, error) {
	rc, err := s.store.Recipes().GetByCode(ctx, userID, strings.TrimSpace(code))
	if err != nil {
		return RecipeDetail{}, s.wrap("get recipe by code", err)
	}
	return RecipeDetail{Recipe: rc, Cost: rc.Breakdown()}, nil
}

// Lookup acepta un id numerico o un codigo REC-.
func (s *RecipeService) Lookup(ctx context.Context, userID int64, ref string) (RecipeDetail, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(strings.ToUpper(ref), "REC-") {
		return s.GetByCode(ctx, userID, ref)
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return RecipeDetail{}, repository.ErrNotFound
	}
	return s.Get(ctx, userID, id)
}

// List filtra por recipe_type exacto y por categoria visible; en la
// categoria los guiones equivalen a espacios.
func (s *RecipeService) List(ctx context.Context, userID int64, f RecipeFilter) ([]RecipeDetail, error) {
	recipes, err := s.store.Recipes().List(ctx, userID)
	if err != nil {
		return nil, s.wrap("list recipes", err)
	}
	category := strings.ReplaceAll(strings.TrimSpace(f.Category), "-", " ")

	out := make([]RecipeDetail, 0, len(recipes))
	for _, rc := range recipes {
		if f.Type != "" && rc.RecipeType != f.Type {
			continue
		}
		if category != "" && !strings.EqualFold(strings.ReplaceAll(rc.DisplayCategory(), "-", " "), category) {
			continue
		}
		out = append(out, RecipeDetail{Recipe: rc, Cost: rc.Breakdown()})
	}
	return out, nil
}

func (s *RecipeService) Delete(ctx context.Context, userID, id int64) error {
	return s.wrap("delete recipe", s.store.Recipes().Delete(ctx, userID, id))
}

// resolveIngredients descarta filas incompletas y resuelve cada ingrediente
// contra la cuenta. Un tipo desconocido se busca primero como producto.
func (s *RecipeService) resolveIngredients(ctx context.Context, tx *repository.Store, userID int64, rows []RecipeIngredientInput) ([]domain.RecipeIngredient, error) {
	var out []domain.RecipeIngredient
	for _, row := range rows {
		id, ok := parseID(row.ID)
		if !ok {
			continue
		}
		qty := parseAmount(row.Quantity)
		if qty <= 0 {
			continue
		}
		unit := orDefault(strings.TrimSpace(row.Unit), "ml")

		kind, known := domain.ParseIngredientKind(row.Type)
		ri := domain.RecipeIngredient{IngredientID: id, Quantity: qty, Unit: unit}

		if !known || kind == domain.IngredientProduct {
			p, err := tx.Products().Get(ctx, userID, id)
			switch {
			case err == nil:
				ri.Kind = domain.IngredientProduct
				ri.Product = &p
				ri.QuantityML = domain.ConvertToML(qty, unit, &p)
				out = append(out, ri)
				continue
			case !errors.Is(err, repository.ErrNotFound):
				return nil, err
			case known:
				return nil, fmt.Errorf("%w: product %d", ErrUnknownIngredient, id)
			}
		}

		h, err := tx.Homemade().Get(ctx, userID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: secondary ingredient %d", ErrUnknownIngredient, id)
		}
		if err != nil {
			return nil, err
		}
		ri.Kind = domain.IngredientHomemade
		ri.Homemade = &h
		ri.QuantityML = qty
		out = append(out, ri)
	}
	if len(out) == 0 {
		return nil, ErrNoIngredients
	}
	return out, nil
}

// nextRecipeCode prueba REC-%04d desde count+1 y cae en un sello de fecha.
func (s *RecipeService) nextRecipeCode(ctx context.Context, recipes repository.RecipeRepository, userID int64) (string, error) {
	n, err := recipes.Count(ctx, userID)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < recipeCodeAttempts; attempt++ {
		candidate := fmt.Sprintf("REC-%04d", n+attempt+1)
		taken, err := recipes.CodeExists(ctx, userID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "REC-" + s.now().Format("20060102150405"), nil
}

func (s *RecipeService) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	s.logger.Error(op+" failed", zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func (in RecipeInput) apply(rc *domain.Recipe) error {
	rc.Title = strings.TrimSpace(in.Title)
	if rc.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRecipe)
	}
	if in.SellingPrice < 0 || in.VATPercentage < 0 || in.ServiceChargePercentage < 0 || in.GovernmentFeesPercentage < 0 {
		return fmt.Errorf("%w: price and percentages must not be negative", ErrInvalidRecipe)
	}
	rc.Method = strings.TrimSpace(in.Method)
	rc.Garnish = strings.TrimSpace(in.Garnish)
	rc.FoodCategory = strings.TrimSpace(in.FoodCategory)
	rc.ItemLevel = normalizeItemLevel(in.ItemLevel)
	rc.SellingPrice = in.SellingPrice
	rc.VATPercentage = in.VATPercentage
	rc.ServiceChargePercentage = in.ServiceChargePercentage
	rc.GovernmentFeesPercentage = in.GovernmentFeesPercentage
	return nil
}

// recipeCategoryOf recupera la categoria con la que se guardo la receta.
func recipeCategoryOf(rc domain.Recipe) (domain.RecipeCategory, bool) {
	if c, ok := domain.ResolveRecipeCategory(rc.Type); ok {
		return c, true
	}
	return domain.ResolveRecipeCategory(rc.RecipeType)
}

func parseID(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if x > 0 && x == float64(int64(x)) {
			return int64(x), true
		}
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}
