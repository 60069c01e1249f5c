package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/http/dto"
	"optimizer.app/relay/internal/model"
)

type BackendLister interface {
	Backends() []backend.Adapter
}

// CatalogHandler serves the choices a client needs to build a generation request.
type CatalogHandler struct {
	backends BackendLister
}

func NewCatalogHandler(backends BackendLister) *CatalogHandler {
	return &CatalogHandler{backends: backends}
}

func (h *CatalogHandler) Backends(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToBackendResponses(h.backends.Backends()))
}

func (h *CatalogHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, dto.LanguagesResponse{Languages: model.SupportedLanguages()})
}
