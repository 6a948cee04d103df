package listing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wayantrails/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/listings/:content_type/:object_id/name", h.DisplayName)
}

func (h *Handler) RegisterStaff(rg *gin.RouterGroup) {
	rg.PUT("/listings/:content_type/:object_id", h.Sync)
}

func (h *Handler) DisplayName(c *gin.Context) {
	objectID, err := strconv.ParseInt(c.Param("object_id"), 10, 64)
	if err != nil {
		response.Validation(c, "object_id must be numeric")
		return
	}
	name := h.service.DisplayName(c.Request.Context(), c.Param("content_type"), objectID)
	response.Success(c, http.StatusOK, gin.H{"name": name})
}

type syncRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) Sync(c *gin.Context) {
	objectID, err := strconv.ParseInt(c.Param("object_id"), 10, 64)
	if err != nil {
		response.Validation(c, "object_id must be numeric")
		return
	}
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "name is required")
		return
	}
	if err := h.service.Sync(c.Request.Context(), c.Param("content_type"), objectID, req.Name); err != nil {
		response.Validation(c, "Invalid listing")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"synced": true})
}
