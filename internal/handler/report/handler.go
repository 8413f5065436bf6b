package report

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/service/report"
	"github.com/jwalitptl/followup-api/pkg/httputil"
)

type Handler struct {
	service report.ReportService
}

func NewHandler(service report.ReportService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		reports.GET("/summary", h.Summary)
		reports.GET("/patient/:patientId", h.PatientReport)
	}
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

// PatientReport returns the data behind a patient's printable report.
func (h *Handler) PatientReport(c *gin.Context) {
	patientID, err := httputil.ParseUUIDParam(c, "patientId")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	doc, err := h.service.PatientReport(c.Request.Context(), patientID)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(doc))
}
