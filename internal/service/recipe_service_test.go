package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bar-bartender/internal/dbtest"
	"bar-bartender/internal/domain"
	"bar-bartender/internal/repository"
)

type recipeFixture struct {
	svc     *RecipeService
	catalog *CatalogService
	store   *repository.Store
	alice   int64
	bob     int64
	gin     domain.Product
	syrup   domain.HomemadeIngredient
}

func newRecipes(t *testing.T) recipeFixture {
	t.Helper()
	ctx := context.Background()
	d := dbtest.New(t)
	store := repository.NewStore(d)
	f := recipeFixture{
		svc:     NewRecipeService(zap.NewNop(), store),
		catalog: NewCatalogService(zap.NewNop(), store, nil),
		store:   store,
		alice:   dbtest.CreateUser(t, d, "alice", "alice@x.com"),
		bob:     dbtest.CreateUser(t, d, "bob", "bob@x.com"),
	}

	var err error
	f.gin, err = f.catalog.CreateProduct(ctx, f.alice, ProductInput{Description: "Gin", Category: "Alcohol", SubCategory: "Gin", MLInBottle: 750, CostPerUnit: 30})
	require.NoError(t, err)
	sugar, err := f.catalog.CreateProduct(ctx, f.alice, ProductInput{Description: "Sugar", Category: "Syrup", SubCategory: "Syrup", MLInBottle: 1000, CostPerUnit: 5})
	require.NoError(t, err)
	f.syrup, err = f.catalog.CreateHomemade(ctx, f.alice, HomemadeInput{
		Name: "Simple Syrup", TotalVolumeML: 1000,
		Items: []HomemadeItemInput{{ProductID: sugar.ID, Quantity: 1000}},
	})
	require.NoError(t, err)
	return f
}

func TestRecipeCostingScenario(t *testing.T) {
	ctx := context.Background()
	f := newRecipes(t)

	detail, err := f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{
		Title:                    "Gin Sour",
		Garnish:                  "Lemon twist",
		SellingPrice:             10,
		VATPercentage:            5,
		ServiceChargePercentage:  10,
		GovernmentFeesPercentage: 2,
		Ingredients: []RecipeIngredientInput{
			{Type: "Product", ID: "1", Quantity: "50", Unit: "ml"},
			{Type: "Secondary", ID: float64(f.syrup.ID), Quantity: 20.0},
			{Type: "Product", ID: "", Quantity: "5"},
			{Type: "Product", ID: float64(f.gin.ID), Quantity: "lots"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, f.gin.ID, int64(1))
	require.Equal(t, "REC-0001", detail.RecipeCode)
	require.Equal(t, "Beverage", detail.RecipeType)
	require.Equal(t, "Cocktails", detail.Type)
	require.Equal(t, domain.ItemLevelPrimary, detail.ItemLevel)
	require.Len(t, detail.Ingredients, 2)

	cost := detail.Cost
	require.InDelta(t, 2.1, cost.TotalCost, 1e-9)
	require.InDelta(t, 0.5, cost.VAT, 1e-9)
	require.InDelta(t, 1.0, cost.ServiceCharge, 1e-9)
	require.InDelta(t, 0.2, cost.GovernmentFees, 1e-9)
	require.InDelta(t, 11.7, cost.FinalPrice, 1e-9)
	require.InDelta(t, 21, cost.CostPercent, 1e-9)
	require.InDelta(t, 7.9, cost.GrossProfit, 1e-9)
	require.Equal(t, "Gin", cost.Lines[0].Name)
	require.Equal(t, "Simple Syrup", cost.Lines[1].Name)

	byCode, err := f.svc.Lookup(ctx, f.alice, "REC-0001")
	require.NoError(t, err)
	require.Equal(t, detail.ID, byCode.ID)
	require.InDelta(t, 2.1, byCode.Cost.TotalCost, 1e-9)

	_, err = f.svc.GetByCode(ctx, f.bob, "REC-0001")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecipeIngredientResolution(t *testing.T) {
	ctx := context.Background()
	f := newRecipes(t)

	detail, err := f.svc.Create(ctx, f.alice, "Classic", RecipeInput{
		Title: "Gin Bottle Service",
		Ingredients: []RecipeIngredientInput{
			{Type: "Product", ID: float64(f.gin.ID), Quantity: 1.0, Unit: "bottle"},
			{ID: float64(f.gin.ID), Quantity: "30"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Cocktails", detail.Type)
	require.InDelta(t, 750, detail.Ingredients[0].QuantityML, 1e-9)
	require.Equal(t, domain.IngredientProduct, detail.Ingredients[1].Kind)
	require.InDelta(t, 30, detail.Ingredients[1].QuantityML, 1e-9)

	_, err = f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{
		Title:       "Ghost",
		Ingredients: []RecipeIngredientInput{{Type: "Product", ID: 9999.0, Quantity: 10.0}},
	})
	require.ErrorIs(t, err, ErrUnknownIngredient)

	_, err = f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{
		Title:       "Ghost",
		Ingredients: []RecipeIngredientInput{{ID: 9999.0, Quantity: 10.0}},
	})
	require.ErrorIs(t, err, ErrUnknownIngredient)

	_, err = f.svc.Create(ctx, f.bob, "cocktails", RecipeInput{
		Title:       "Borrowed",
		Ingredients: []RecipeIngredientInput{{Type: "Product", ID: float64(f.gin.ID), Quantity: 10.0}},
	})
	require.ErrorIs(t, err, ErrUnknownIngredient)
}

func TestRecipeValidation(t *testing.T) {
	ctx := context.Background()
	f := newRecipes(t)
	ingredients := []RecipeIngredientInput{{Type: "Product", ID: float64(f.gin.ID), Quantity: 50.0}}

	_, err := f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{Title: " ", Ingredients: ingredients})
	require.ErrorIs(t, err, ErrInvalidRecipe)

	_, err = f.svc.Create(ctx, f.alice, "desserts", RecipeInput{Title: "Tiramisu", Ingredients: ingredients})
	require.ErrorIs(t, err, ErrInvalidCategory)

	_, err = f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{Title: "Nothing", Ingredients: []RecipeIngredientInput{{Type: "Product", ID: "x", Quantity: "1"}}})
	require.ErrorIs(t, err, ErrNoIngredients)

	_, err = f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{Title: "Free", SellingPrice: -1, Ingredients: ingredients})
	require.ErrorIs(t, err, ErrInvalidRecipe)

	n, err := f.store.Recipes().Count(ctx, f.alice)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRecipeCodeSkipsTakenCodes(t *testing.T) {
	ctx := context.Background()
	f := newRecipes(t)

	err := f.store.InTx(ctx, func(tx *repository.Store) error {
		return tx.Recipes().Create(ctx, &domain.Recipe{UserID: f.alice, RecipeCode: "REC-0002", Title: "Legacy"})
	})
	require.NoError(t, err)

	detail, err := f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{
		Title:       "Martini",
		Ingredients: []RecipeIngredientInput{{Type: "Product", ID: float64(f.gin.ID), Quantity: 60.0}},
	})
	require.NoError(t, err)
	require.Equal(t, "REC-0003", detail.RecipeCode)

	other, err := f.svc.Create(ctx, f.bob, "food", RecipeInput{Title: "Fries", Ingredients: []RecipeIngredientInput{}})
	require.ErrorIs(t, err, ErrNoIngredients)
	require.Empty(t, other.RecipeCode)
}

type exhaustedRecipeCodes struct {
	repository.RecipeRepository
}

func (exhaustedRecipeCodes) Count(context.Context, int64) (int, error) { return 0, nil }

func (exhaustedRecipeCodes) CodeExists(context.Context, int64, string) (bool, error) {
	return true, nil
}

func TestRecipeCodeFallback(t *testing.T) {
	svc := NewRecipeService(zap.NewNop(), nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	code, err := svc.nextRecipeCode(context.Background(), exhaustedRecipeCodes{}, 1)
	require.NoError(t, err)
	require.Equal(t, "REC-20240309140507", code)
}

func TestRecipeListFilters(t *testing.T) {
	ctx := context.Background()
	f := newRecipes(t)
	ingredients := []RecipeIngredientInput{{Type: "Product", ID: float64(f.gin.ID), Quantity: 50.0}}

	_, err := f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{Title: "Negroni", Ingredients: ingredients})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.alice, "mocktails", RecipeInput{Title: "Nojito", FoodCategory: "Signature Mocktail", Ingredients: ingredients})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.alice, "food", RecipeInput{Title: "Gin Cured Salmon", Ingredients: ingredients})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, f.alice, RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	beverages, err := f.svc.List(ctx, f.alice, RecipeFilter{Type: "Beverage"})
	require.NoError(t, err)
	require.Len(t, beverages, 2)

	food, err := f.svc.List(ctx, f.alice, RecipeFilter{Type: "Food"})
	require.NoError(t, err)
	require.Len(t, food, 1)
	require.Equal(t, "Gin Cured Salmon", food[0].Title)

	cocktails, err := f.svc.List(ctx, f.alice, RecipeFilter{Category: "cocktail"})
	require.NoError(t, err)
	require.Len(t, cocktails, 1)
	require.Equal(t, "Negroni", cocktails[0].Title)

	signature, err := f.svc.List(ctx, f.alice, RecipeFilter{Category: "signature-mocktail"})
	require.NoError(t, err)
	require.Len(t, signature, 1)
	require.Equal(t, "Mocktails", signature[0].Type)

	none, err := f.svc.List(ctx, f.bob, RecipeFilter{})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRecipeUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newRecipes(t)

	created, err := f.svc.Create(ctx, f.alice, "cocktails", RecipeInput{
		Title:       "Gimlet",
		Ingredients: []RecipeIngredientInput{{Type: "Product", ID: float64(f.gin.ID), Quantity: 50.0}},
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, f.alice, created.ID, RecipeInput{
		Title:        "Virgin Gimlet",
		FoodCategory: "Mocktail",
		SellingPrice: 8,
		Ingredients:  []RecipeIngredientInput{{Type: "Secondary", ID: float64(f.syrup.ID), Quantity: 30.0}},
	})
	require.NoError(t, err)
	require.Equal(t, created.RecipeCode, updated.RecipeCode)
	require.Equal(t, "Virgin Gimlet", updated.Title)
	require.Equal(t, "Mocktails", updated.Type)
	require.Len(t, updated.Ingredients, 1)
	require.Equal(t, domain.IngredientHomemade, updated.Ingredients[0].Kind)
	require.InDelta(t, 0.15, updated.Cost.TotalCost, 1e-9)

	_, err = f.svc.Update(ctx, f.bob, created.ID, RecipeInput{
		Title:       "Hijack",
		Ingredients: []RecipeIngredientInput{{Type: "Product", ID: float64(f.gin.ID), Quantity: 50.0}},
	})
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.svc.Update(ctx, f.alice, created.ID, RecipeInput{Title: "Empty"})
	require.ErrorIs(t, err, ErrNoIngredients)

	require.NoError(t, f.svc.Delete(ctx, f.alice, created.ID))
	require.ErrorIs(t, f.svc.Delete(ctx, f.alice, created.ID), repository.ErrNotFound)
	_, err = f.svc.Lookup(ctx, f.alice, "1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.svc.Lookup(ctx, f.alice, "not-a-ref")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestParseID(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{"12", 12, true},
		{" 7 ", 7, true},
		{3.0, 3, true},
		{3.5, 0, false},
		{"", 0, false},
		{"-1", 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := parseID(c.in)
		require.Equal(t, c.ok, ok, "%v", c.in)
		require.Equal(t, c.want, got, "%v", c.in)
	}
}
