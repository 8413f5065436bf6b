package readmission

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/service/readmission"
	"github.com/jwalitptl/followup-api/pkg/httputil"
)

type Handler struct {
	service readmission.ReadmissionService
}

func NewHandler(service readmission.ReadmissionService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	readmissions := r.Group("/readmissions")
	{
		readmissions.POST("", h.RecordReadmission)
		readmissions.GET("", h.ListReadmissions)
		readmissions.GET("/patient/:patientId", h.ListPatientReadmissions)
		readmissions.GET("/:id", h.GetReadmission)
		readmissions.PUT("/:id", h.UpdateReadmission)
		readmissions.DELETE("/:id", h.DeleteReadmission)
	}
}

func (h *Handler) RecordReadmission(c *gin.Context) {
	var req model.RecordReadmissionRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	r, err := h.service.Record(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(r))
}

func (h *Handler) ListReadmissions(c *gin.Context) {
	list, err := h.service.ListWithPatients(c.Request.Context(), &model.ReadmissionFilters{})
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) ListPatientReadmissions(c *gin.Context) {
	patientID, err := httputil.ParseUUIDParam(c, "patientId")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	list, err := h.service.List(c.Request.Context(), &model.ReadmissionFilters{PatientID: &patientID})
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) GetReadmission(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(r))
}

func (h *Handler) UpdateReadmission(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.UpdateReadmissionRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	r, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(r))
}

func (h *Handler) DeleteReadmission(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse("Readmission deleted successfully"))
}
