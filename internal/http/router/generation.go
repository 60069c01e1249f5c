package router

import (
	"github.com/gin-gonic/gin"

	"optimizer.app/relay/internal/http/handler"
)

func GenerationRouter(router *gin.RouterGroup, handler *handler.GenerationHandler) {
	router.POST("", handler.Generate)
}

func CatalogRouter(router *gin.RouterGroup, handler *handler.CatalogHandler) {
	router.GET("/backends", handler.Backends)
	router.GET("/languages", handler.Languages)
}
