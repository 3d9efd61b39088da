package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/catalog-images/internal/api/handlers/catalog"
	"github.com/aliskhannn/catalog-images/internal/api/handlers/upload"
	"github.com/aliskhannn/catalog-images/internal/middleware"
)

func Setup(uh *upload.Handler, ch *catalog.Handler, gatherer prometheus.Gatherer) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/health", func(c *ginext.Context) {
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	metrics := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	r.GET("/metrics", func(c *ginext.Context) {
		metrics.ServeHTTP(c.Writer, c.Request)
	})

	api := r.Group("/api/v1")

	api.POST("/uploads", uh.Upload) // uploading images, renditions are derived synchronously

	products := api.Group("/products")
	products.POST("", ch.CreateProduct)
	products.GET("/:id", ch.GetProduct)
	products.PUT("/:id", ch.ReplaceProduct)
	products.PUT("/:id/images", ch.SetProductImages)
	products.PUT("/:id/variants/:index/images", ch.SetVariantImages)
	products.DELETE("/:id", ch.DeleteProduct)

	categories := api.Group("/categories")
	categories.POST("", ch.CreateCategory)
	categories.GET("/:id", ch.GetCategory)
	categories.PUT("/:id", ch.ReplaceCategory)
	categories.PUT("/:id/image", ch.SetCategoryImage)
	categories.DELETE("/:id", ch.DeleteCategory)

	return r
}
