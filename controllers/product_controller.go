package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bulk-order-service/middlewares"
	"bulk-order-service/models"
	"bulk-order-service/services"
)

type ProductController struct {
	products *services.ProductService
	log      zerolog.Logger
}

func NewProductController(products *services.ProductService, log zerolog.Logger) *ProductController {
	return &ProductController{products: products, log: log}
}

func (pc *ProductController) ListProducts(c *gin.Context) {
	products, err := pc.products.List(c.Request.Context())
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	p, err := pc.products.Get(c.Request.Context(), middlewares.CurrentIdentity(c), id)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("create_product", succeeded(c)) }()

	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	p, err := pc.products.Create(c.Request.Context(), middlewares.CurrentIdentity(c), in)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("update_product", succeeded(c)) }()

	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	p, err := pc.products.Update(c.Request.Context(), middlewares.CurrentIdentity(c), id, in)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("delete_product", succeeded(c)) }()

	id, ok := parseID(c, "product")
	if !ok {
		return
	}
	if err := pc.products.Delete(c.Request.Context(), middlewares.CurrentIdentity(c), id); err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted", "id": id})
}
