package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bar-bartender/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
// reconcile corre antes de cada ruta que escribe; puede ser nil.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	reconcile gin.HandlerFunc,
	userH *UserHandler,
	catalogH *CatalogHandler,
	recipeH *RecipeHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	write := []gin.HandlerFunc{}
	if reconcile != nil {
		write = append(write, reconcile)
	}
	w := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, write...), h)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.POST("/register", w(userH.Register)...)
	auth.POST("/register/resend", w(userH.ResendCode)...)
	auth.POST("/register/verify", w(userH.VerifyRegistration)...)
	auth.POST("/login", userH.Login)
	auth.POST("/refresh", userH.RefreshToken)
	auth.POST("/logout", userH.Logout)

	api := r.Group("", JWTAuthMiddleware(jwtSvc))
	api.GET("/auth/me", userH.Me)

	ingredients := api.Group("/ingredients")
	ingredients.GET("", catalogH.ListIngredients)
	ingredients.POST("", w(catalogH.CreateProduct)...)
	ingredients.DELETE("", w(catalogH.DeleteAllProducts)...)
	ingredients.POST("/import", w(catalogH.ImportProducts)...)
	ingredients.POST("/delete-selected", w(catalogH.DeleteSelected)...)
	ingredients.GET("/:id", catalogH.GetProduct)
	ingredients.PUT("/:id", w(catalogH.UpdateProduct)...)
	ingredients.DELETE("/:id", w(catalogH.DeleteProduct)...)

	secondary := api.Group("/secondary-ingredients")
	secondary.GET("", catalogH.ListHomemade)
	secondary.POST("", w(catalogH.CreateHomemade)...)
	secondary.GET("/:id", catalogH.GetHomemade)
	secondary.DELETE("/:id", w(catalogH.DeleteHomemade)...)

	recipes := api.Group("/recipes")
	recipes.GET("", recipeH.List)
	recipes.GET("/categories", recipeH.Categories)
	recipes.GET("/code/:code", recipeH.GetByCode)
	recipes.POST("/:category", w(recipeH.Create)...)
	recipes.GET("/:id", recipeH.Get)
	recipes.PUT("/:id", w(recipeH.Update)...)
	recipes.DELETE("/:id", w(recipeH.Delete)...)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
