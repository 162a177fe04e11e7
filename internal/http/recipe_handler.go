package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bar-bartender/internal/domain"
	"bar-bartender/internal/service"
)

type RecipeHandler struct {
	logger  *zap.Logger
	recipes *service.RecipeService
}

func NewRecipeHandler(logger *zap.Logger, recipes *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{logger: logger, recipes: recipes}
}

// List maneja GET /recipes?type=&category=.
func (h *RecipeHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recipes, err := h.recipes.List(c.Request.Context(), userID, service.RecipeFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
	})
	if err != nil {
		respondError(c, h.logger, "list recipes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// Categories maneja GET /recipes/categories.
func (h *RecipeHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": domain.RecipeCategories()})
}

// Create maneja POST /recipes/:category.
func (h *RecipeHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req service.RecipeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "create recipe", err)
		return
	}
	recipe, err := h.recipes.Create(c.Request.Context(), userID, c.Param("category"), req)
	if err != nil {
		respondError(c, h.logger, "create recipe", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipe": recipe})
}

// Get maneja GET /recipes/:id; acepta tambien un codigo REC-.
func (h *RecipeHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recipe, err := h.recipes.Lookup(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get recipe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

// GetByCode maneja GET /recipes/code/:code.
func (h *RecipeHandler) GetByCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	recipe, err := h.recipes.GetByCode(c.Request.Context(), userID, c.Param("code"))
	if err != nil {
		respondError(c, h.logger, "get recipe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

// Update maneja PUT /recipes/:id.
func (h *RecipeHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req service.RecipeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update recipe", err)
		return
	}
	recipe, err := h.recipes.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, h.logger, "update recipe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

// Delete maneja DELETE /recipes/:id.
func (h *RecipeHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, "delete recipe", err)
		return
	}
	c.Status(http.StatusNoContent)
}
