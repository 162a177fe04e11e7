package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"bar-bartender/internal/service"
)

type recipeBody struct {
	Recipe service.RecipeDetail `json:"recipe"`
}

func TestRecipeEndpoints(t *testing.T) {
	api := newTestAPI(t)
	_, alice := api.tokenFor(t, "alice")
	_, bob := api.tokenFor(t, "bob")

	rec := api.do(t, http.MethodPost, "/ingredients", alice, map[string]any{
		"description": "Gin", "category": "Alcohol", "sub_category": "Spirits", "ml_in_bottle": 750, "cost_per_unit": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	gin := decode[productBody](t, rec).Product

	recipe := map[string]any{
		"title":          "Martini",
		"selling_price":  12,
		"vat_percentage": 5,
		"ingredients": []map[string]any{
			{"type": "Product", "id": fmt.Sprint(gin.ID), "quantity": "60", "unit": "ml"},
			{"type": "Product", "id": "", "quantity": "10"},
		},
	}
	rec = api.do(t, http.MethodPost, "/recipes/cocktails", alice, recipe)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[recipeBody](t, rec).Recipe
	require.Equal(t, "REC-0001", created.RecipeCode)
	require.Equal(t, "Cocktails", created.Type)
	require.InDelta(t, 2.4, created.Cost.TotalCost, 1e-9)
	require.InDelta(t, 12.6, created.Cost.FinalPrice, 1e-9)

	rec = api.do(t, http.MethodPost, "/recipes/desserts", alice, recipe)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/recipes/REC-0001", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, created.ID, decode[recipeBody](t, rec).Recipe.ID)

	rec = api.do(t, http.MethodGet, "/recipes/code/REC-0001", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodGet, "/recipes/code/REC-0001", bob, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/recipes?type=Beverage&category=cocktail", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Recipes []service.RecipeDetail `json:"recipes"`
	}](t, rec)
	require.Len(t, list.Recipes, 1)

	rec = api.do(t, http.MethodGet, "/recipes?type=Food", alice, nil)
	require.Contains(t, rec.Body.String(), `"recipes":[]`)

	rec = api.do(t, http.MethodGet, "/recipes/categories", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"slug":"mocktails"`)

	recipe["title"] = "Dry Martini"
	rec = api.do(t, http.MethodPut, fmt.Sprintf("/recipes/%d", created.ID), alice, recipe)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Dry Martini", decode[recipeBody](t, rec).Recipe.Title)

	rec = api.do(t, http.MethodPut, fmt.Sprintf("/recipes/%d", created.ID), bob, recipe)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, fmt.Sprintf("/recipes/%d", created.ID), alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodGet, fmt.Sprintf("/recipes/%d", created.ID), alice, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
