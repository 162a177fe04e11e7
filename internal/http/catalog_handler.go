package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bar-bartender/internal/domain"
	"bar-bartender/internal/service"
)

// CatalogHandler expone productos e ingredientes caseros de la cuenta.
type CatalogHandler struct {
	logger  *zap.Logger
	catalog *service.CatalogService
}

func NewCatalogHandler(logger *zap.Logger, catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{logger: logger, catalog: catalog}
}

// ListIngredients maneja GET /ingredients?category=&level=.
func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	list, err := h.catalog.ListIngredients(c.Request.Context(), userID, service.MasterFilter{
		Category: c.Query("category"),
		Level:    c.Query("level"),
	})
	if err != nil {
		respondError(c, h.logger, "list ingredients", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateProduct maneja POST /ingredients.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "create product", err)
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, "create product", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// GetProduct maneja GET /ingredients/:id.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, "get product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// UpdateProduct maneja PUT /ingredients/:id.
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update product", err)
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, h.logger, "update product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct maneja DELETE /ingredients/:id.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, "delete product", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAllProducts maneja DELETE /ingredients.
func (h *CatalogHandler) DeleteAllProducts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	n, err := h.catalog.DeleteAllProducts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "delete products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// DeleteSelected maneja POST /ingredients/delete-selected.
func (h *CatalogHandler) DeleteSelected(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "delete selected", err)
		return
	}
	n, err := h.catalog.DeleteProducts(c.Request.Context(), userID, req.IDs)
	if err != nil {
		respondError(c, h.logger, "delete selected products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// ImportProducts maneja POST /ingredients/import.
func (h *CatalogHandler) ImportProducts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Rows []service.ImportRow `json:"rows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "import", err)
		return
	}
	res, err := h.catalog.ImportProducts(c.Request.Context(), userID, req.Rows)
	if err != nil {
		respondError(c, h.logger, "import products", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListHomemade maneja GET /secondary-ingredients.
func (h *CatalogHandler) ListHomemade(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	items, err := h.catalog.ListHomemade(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "list secondary ingredients", err)
		return
	}
	views := make([]homemadeResponse, 0, len(items))
	for _, it := range items {
		views = append(views, homemadeView(it))
	}
	c.JSON(http.StatusOK, gin.H{"secondary_ingredients": views})
}

// CreateHomemade maneja POST /secondary-ingredients.
func (h *CatalogHandler) CreateHomemade(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req service.HomemadeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "create secondary ingredient", err)
		return
	}
	item, err := h.catalog.CreateHomemade(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, "create secondary ingredient", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"secondary_ingredient": homemadeView(item)})
}

// GetHomemade maneja GET /secondary-ingredients/:id.
func (h *CatalogHandler) GetHomemade(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	item, err := h.catalog.GetHomemade(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, "get secondary ingredient", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secondary_ingredient": homemadeView(item)})
}

// DeleteHomemade maneja DELETE /secondary-ingredients/:id.
func (h *CatalogHandler) DeleteHomemade(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteHomemade(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, "delete secondary ingredient", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

type homemadeResponse struct {
	domain.HomemadeIngredient
	Cost        float64 `json:"cost"`
	CostPerUnit float64 `json:"cost_per_unit"`
}

func homemadeView(h domain.HomemadeIngredient) homemadeResponse {
	return homemadeResponse{HomemadeIngredient: h, Cost: h.Cost(), CostPerUnit: h.CostPerUnit()}
}
