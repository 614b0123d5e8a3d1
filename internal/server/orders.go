package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListOrders(c *gin.Context) {
	orders, err := s.orderSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Server) GetOrderByReference(c *gin.Context) {
	order, err := s.orderSvc.GetByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}
