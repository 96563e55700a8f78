package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"custom-shop/internal/storage"
)

// FileOpener abre archivos guardados por nombre.
type FileOpener interface {
	Open(fileName string) (*storage.StoredFile, error)
}

type FileHandler struct {
	files FileOpener
	log   *zap.Logger
}

func NewFileHandler(files FileOpener, log *zap.Logger) *FileHandler {
	return &FileHandler{files: files, log: orNop(log)}
}

// GetFile sirve una imagen guardada tal cual, con el Content-Type detectado
func (h *FileHandler) GetFile(c *gin.Context) {
	f, err := h.files.Open(c.Param("name"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer f.Close()
	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, f, nil)
}
