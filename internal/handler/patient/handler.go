package patient

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/service/patient"
	"github.com/jwalitptl/followup-api/pkg/httputil"
)

// DashboardProvider serves the patient dashboard counters.
type DashboardProvider interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
}

type Handler struct {
	service patient.PatientService
	reports DashboardProvider
}

func NewHandler(service patient.PatientService, reports DashboardProvider) *Handler {
	return &Handler{
		service: service,
		reports: reports,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.POST("/evaluate", h.EvaluatePatient)
		patients.GET("/stats/dashboard", h.Dashboard)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.PatientInput
	if err := httputil.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.UpdatePatientRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse("Patient deleted successfully"))
}

// ListPatients supports ?eligible=true|false and ?search=<name fragment>.
func (h *Handler) ListPatients(c *gin.Context) {
	eligible, err := httputil.ParseBoolQuery(c, "eligible")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	patients, err := h.service.List(c.Request.Context(), &model.PatientFilters{
		Eligible: eligible,
		Search:   c.Query("search"),
	})
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

// EvaluatePatient returns the verdict for a patient without storing it.
func (h *Handler) EvaluatePatient(c *gin.Context) {
	var req model.PatientInput
	if err := httputil.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	verdict, err := h.service.Evaluate(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(verdict))
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}
