// Package record exposes the persisted record lifecycle: listing with
// search and status filters, follow-up chat, and status updates.
package record

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbnow/screening-api/internal/handler"
	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/internal/service/record"
	"github.com/tbnow/screening-api/pkg/httputil"
)

type Handler struct {
	service *record.Service
}

func NewHandler(service *record.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/records")
	{
		records.GET("", h.ListRecords)
		records.GET("/summary", h.Summary)
		records.GET("/:id", h.GetRecord)
		records.POST("/:id/chat", h.AppendChat)
		records.PUT("/:id/status", h.UpdateStatus)
	}
}

func (h *Handler) ListRecords(c *gin.Context) {
	filter := model.RecordFilter{
		SearchText: c.Query("search"),
	}
	if status := c.Query("status"); status != "" && status != "all" {
		filter.Status = model.RecordStatus(status)
	}

	records, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, records)
}

func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

// AppendChat submits one follow-up question. The response carries both
// the new turn and the full updated record; the UI replaces its local
// copy wholesale rather than merging.
func (h *Handler) AppendChat(c *gin.Context) {
	var req model.AppendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.AppendChat(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	rec, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Notes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

func (h *Handler) Summary(c *gin.Context) {
	counts, err := h.service.Summary(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, counts)
}
