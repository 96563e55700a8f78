package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"custom-shop/internal/services"
)

type CartHandler struct {
	cart *services.CartService
	log  *zap.Logger
}

func NewCartHandler(cart *services.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{cart: cart, log: orNop(log)}
}

// AddItem agrega un producto configurado al carrito
func (h *CartHandler) AddItem(c *gin.Context) {
	var req services.AddCartItemCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.cart.AddItem(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// RecentItems devuelve los últimos ítems agregados
func (h *CartHandler) RecentItems(c *gin.Context) {
	lines, err := h.cart.RecentItems(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lines})
}
