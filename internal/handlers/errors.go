package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"custom-shop/internal/apperror"
)

const genericError = "an unexpected error occurred"

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindValidation, apperror.KindState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError traduce la categoría del error a un status. Los errores
// internos se registran y el cliente recibe un mensaje genérico.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(apperror.KindOf(err))
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(status, gin.H{"error": genericError})
		return
	}
	c.JSON(status, gin.H{"error": apperror.Message(err)})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
