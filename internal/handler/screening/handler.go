// Package screening exposes the clinical session flow: quick guidance,
// full patient diagnosis, and X-ray analysis.
package screening

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbnow/screening-api/internal/handler"
	"github.com/tbnow/screening-api/internal/model"
	"github.com/tbnow/screening-api/internal/service/session"
	"github.com/tbnow/screening-api/pkg/errors"
	"github.com/tbnow/screening-api/pkg/httputil"
)

// HeaderSessionID identifies one clinical interaction across submits, so
// a resubmission of an in-flight interaction can be rejected. Requests
// without it get a fresh interaction per call.
const HeaderSessionID = "X-Session-ID"

type Handler struct {
	sessions *session.Service
}

func NewHandler(sessions *session.Service) *Handler {
	return &Handler{sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	screening := r.Group("/screening")
	{
		screening.POST("/quick", h.SubmitQuick)
		screening.POST("/diagnosis", h.SubmitDiagnosis)
	}
	xray := r.Group("/xray")
	{
		xray.POST("/analyze", h.AnalyzeXray)
		xray.POST("/save", h.SaveXrayRecord)
	}
}

// SubmitQuick handles a free-text question under quick mode.
func (h *Handler) SubmitQuick(c *gin.Context) {
	var req model.QuickQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	outcome, err := h.sessions.SubmitQuick(c.Request.Context(), sessionID(c), req.Question, req.RecordID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, outcome)
}

// SubmitDiagnosis handles a full patient diagnosis submission.
func (h *Handler) SubmitDiagnosis(c *gin.Context) {
	var req model.DiagnosisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if !model.IsValidDuration(req.PatientInfo.Duration) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid symptom duration"))
		return
	}

	outcome, err := h.sessions.SubmitDiagnosis(c.Request.Context(), sessionID(c), req.PatientInfo)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, outcome)
}

// AnalyzeXray accepts a multipart image upload and returns the verdict.
func (h *Handler) AnalyzeXray(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("image file is required", err))
		return
	}
	defer file.Close()

	outcome, err := h.sessions.AnalyzeXray(c.Request.Context(), sessionID(c), header.Filename, file)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, outcome)
}

// SaveXrayRecord persists a displayed analysis on explicit user action.
// Unlike the best-effort chat save, this failure is surfaced.
func (h *Handler) SaveXrayRecord(c *gin.Context) {
	var req model.SaveXrayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.sessions.SaveXrayRecord(c.Request.Context(), req.PatientInfo, &req.XrayResult)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, record)
}

func sessionID(c *gin.Context) string {
	if sid := c.GetHeader(HeaderSessionID); sid != "" {
		return sid
	}
	return uuid.New().String()
}
