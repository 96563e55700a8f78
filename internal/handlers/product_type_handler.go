package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"custom-shop/internal/models"
	"custom-shop/internal/services"
)

type ProductTypeHandler struct {
	service *services.ProductTypeService
	log     *zap.Logger
}

func NewProductTypeHandler(service *services.ProductTypeService, log *zap.Logger) *ProductTypeHandler {
	return &ProductTypeHandler{service: service, log: orNop(log)}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

type addAttributesRequest struct {
	Attributes []services.NewAttribute `json:"attributes" binding:"required"`
}

type exclusionRulesRequest struct {
	Rules [][]models.RulePair `json:"rules"`
}

// CreateProductType registra un tipo de producto
func (h *ProductTypeHandler) CreateProductType(c *gin.Context) {
	var req services.CreateProductTypeCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pt, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, pt)
}

func (h *ProductTypeHandler) ListProductTypes(c *gin.Context) {
	types, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": types})
}

func (h *ProductTypeHandler) GetProductType(c *gin.Context) {
	details, err := h.service.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ProductTypeHandler) AddAttributes(c *gin.Context) {
	var req addAttributesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	attrs, err := h.service.AddAttributes(c.Request.Context(), c.Param("id"), req.Attributes)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": attrs})
}

func (h *ProductTypeHandler) AddExclusionRules(c *gin.Context) {
	var req exclusionRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rules, err := h.service.AddExclusionRules(c.Request.Context(), c.Param("id"), req.Rules)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": rules})
}
