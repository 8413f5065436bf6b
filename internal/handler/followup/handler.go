package followup

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/service/followup"
	"github.com/jwalitptl/followup-api/pkg/httputil"
)

type Handler struct {
	service followup.FollowUpService
}

func NewHandler(service followup.FollowUpService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	followUps := r.Group("/followups")
	{
		followUps.POST("", h.ScheduleFollowUp)
		followUps.GET("", h.ListFollowUps)
		followUps.GET("/patient/:patientId", h.ListPatientFollowUps)
		followUps.GET("/:id", h.GetFollowUp)
		followUps.PUT("/:id", h.UpdateFollowUp)
		followUps.PUT("/:id/complete", h.CompleteFollowUp)
		followUps.PUT("/:id/cancel", h.CancelFollowUp)
		followUps.DELETE("/:id", h.DeleteFollowUp)
	}
}

func (h *Handler) ScheduleFollowUp(c *gin.Context) {
	var req model.ScheduleFollowUpRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	f, err := h.service.Schedule(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(f))
}

// ListFollowUps returns every follow-up with its patient expanded, or only
// scheduled ones with ?pending=true.
func (h *Handler) ListFollowUps(c *gin.Context) {
	pending, err := httputil.ParseBoolQuery(c, "pending")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	filters := &model.FollowUpFilters{}
	if pending != nil {
		filters.Pending = *pending
	}

	list, err := h.service.ListWithPatients(c.Request.Context(), filters)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) ListPatientFollowUps(c *gin.Context) {
	patientID, err := httputil.ParseUUIDParam(c, "patientId")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	list, err := h.service.List(c.Request.Context(), &model.FollowUpFilters{PatientID: &patientID})
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) GetFollowUp(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	f, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

func (h *Handler) UpdateFollowUp(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.UpdateFollowUpRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	f, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

func (h *Handler) CompleteFollowUp(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.CompleteFollowUpRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}

	f, err := h.service.Complete(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

// CancelFollowUp accepts an optional body carrying notes.
func (h *Handler) CancelFollowUp(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.CancelFollowUpRequest
	if c.Request.ContentLength != 0 {
		if err := httputil.BindJSON(c, &req); err != nil {
			handler.Fail(c, err)
			return
		}
	}

	f, err := h.service.Cancel(c.Request.Context(), id, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

func (h *Handler) DeleteFollowUp(c *gin.Context) {
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewMessageResponse("Follow-up deleted successfully"))
}
