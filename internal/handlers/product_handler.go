package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"custom-shop/internal/services"
)

type ProductHandler struct {
	products     *services.ProductService
	availability *services.AvailabilityService
	log          *zap.Logger
}

func NewProductHandler(products *services.ProductService, availability *services.AvailabilityService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, availability: availability, log: orNop(log)}
}

type createProductForm struct {
	Name          string `form:"name" binding:"required"`
	SKU           string `form:"sku" binding:"required"`
	Description   string `form:"description"`
	Price         string `form:"price" binding:"required"`
	ProductTypeID string `form:"product_type_id" binding:"required"`
	Overrides     string `form:"overrides"`
}

type deactivateRulesRequest struct {
	RuleIDs []string `json:"rule_ids"`
}

func fileUpload(fh *multipart.FileHeader) services.Upload {
	return services.Upload{Name: fh.Filename, Open: func() (io.ReadCloser, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		return f, nil
	}}
}

// CreateProduct crea un producto desde un formulario multipart
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var form createProductForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}
	price, err := decimal.NewFromString(form.Price)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid price %q", form.Price))
		return
	}

	cmd := services.CreateProductCommand{
		Name:          form.Name,
		SKU:           form.SKU,
		Description:   form.Description,
		Price:         price,
		ProductTypeID: form.ProductTypeID,
	}
	if form.Overrides != "" {
		if err := json.Unmarshal([]byte(form.Overrides), &cmd.Overrides); err != nil {
			badRequest(c, fmt.Errorf("invalid overrides: %w", err))
			return
		}
	}
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		if files := mf.File["main_picture"]; len(files) > 0 {
			up := fileUpload(files[0])
			cmd.MainImage = &up
		}
		for _, fh := range mf.File["gallery"] {
			cmd.Gallery = append(cmd.Gallery, fileUpload(fh))
		}
	}

	product, err := h.products.Create(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": product.ID})
}

// GetProduct devuelve la vista de administración con flags efectivos
func (h *ProductHandler) GetProduct(c *gin.Context) {
	details, err := h.products.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetCustomerProduct omite lo que el producto desactivó
func (h *ProductHandler) GetCustomerProduct(c *gin.Context) {
	details, err := h.products.CustomerDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// ListProducts lista los productos más recientes
func (h *ProductHandler) ListProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	products, err := h.products.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "total": len(products)})
}

// DeleteProduct borra el producto con sus overrides y reglas propias
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (h *ProductHandler) AddExclusionRules(c *gin.Context) {
	var req exclusionRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rules, err := h.products.AddProductExclusionRules(c.Request.Context(), c.Param("id"), req.Rules)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": rules})
}

func (h *ProductHandler) DeactivateExclusionRules(c *gin.Context) {
	var req deactivateRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.products.DeactivateExclusionRules(c.Request.Context(), c.Param("id"), req.RuleIDs); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "exclusion rules deactivated"})
}

// AvailableOptions filtra las opciones de attributeId según selectedOptionIds
func (h *ProductHandler) AvailableOptions(c *gin.Context) {
	attributeID := c.Query("attributeId")
	if attributeID == "" {
		badRequest(c, fmt.Errorf("attributeId is required"))
		return
	}
	selected := splitIDs(c.Query("selectedOptionIds"))

	result, err := h.availability.AvailableOptions(c.Request.Context(), c.Param("id"), attributeID, selected)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
