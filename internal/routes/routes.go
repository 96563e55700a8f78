package routes

import (
	"strings"

	"github.com/gin-gonic/gin"

	"custom-shop/internal/handlers"
	"custom-shop/internal/metrics"
)

type Handlers struct {
	ProductTypes *handlers.ProductTypeHandler
	Products     *handlers.ProductHandler
	Cart         *handlers.CartHandler
	Files        *handlers.FileHandler
	Metrics      *metrics.Metrics

	// FilesPath es el prefijo de las URLs de imágenes, por defecto /api/files/.
	FilesPath string
}

func RegisterRoutes(router *gin.Engine, h Handlers) {
	v1 := router.Group("/v1")
	{
		admin := v1.Group("/admin")
		admin.POST("/product-types", h.ProductTypes.CreateProductType)
		admin.GET("/product-types", h.ProductTypes.ListProductTypes)
		admin.GET("/product-types/:id", h.ProductTypes.GetProductType)
		admin.POST("/product-types/:id/attributes", h.ProductTypes.AddAttributes)
		admin.POST("/product-types/:id/exclusion-rules", h.ProductTypes.AddExclusionRules)

		admin.POST("/products", h.Products.CreateProduct)
		admin.GET("/products", h.Products.ListProducts)
		admin.GET("/products/:id", h.Products.GetProduct)
		admin.DELETE("/products/:id", h.Products.DeleteProduct)
		admin.POST("/products/:id/exclusion-rules", h.Products.AddExclusionRules)
		admin.POST("/products/:id/exclusion-overrides", h.Products.DeactivateExclusionRules)

		v1.GET("/products/:id", h.Products.GetCustomerProduct)
		v1.GET("/products/:id/available-options", h.Products.AvailableOptions)

		v1.POST("/cart/items", h.Cart.AddItem)
		v1.GET("/cart/items", h.Cart.RecentItems)
	}

	if h.Files != nil {
		prefix := strings.TrimSuffix(h.FilesPath, "/")
		if prefix == "" {
			prefix = "/api/files"
		}
		router.GET(prefix+"/:name", h.Files.GetFile)
	}
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}
}
