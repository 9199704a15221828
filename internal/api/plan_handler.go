package api

import (
	"errors"
	"net/http"
	"time"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

type CreatePlanRequest struct {
	EventID      string    `json:"eventId" binding:"required"`
	EventTitle   string    `json:"eventTitle" binding:"required"`
	GroupID      string    `json:"groupId" binding:"required"`
	MinAttendees int       `json:"minAttendees" binding:"required"`
	PlannedDate  time.Time `json:"plannedDate" binding:"required"`
}

type CastVoteRequest struct {
	Vote domain.Vote `json:"vote" binding:"required,oneof=yes maybe no"`
}

// --- Handlers ---

func (h *PlanHandler) CreatePlan(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	groupID, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid groupId format.")
		return
	}

	detail, err := h.planService.CreatePlan(c.Request.Context(), callerID, service.CreatePlanInput{
		EventID:      req.EventID,
		EventTitle:   req.EventTitle,
		GroupID:      groupID,
		MinAttendees: req.MinAttendees,
		PlannedDate:  req.PlannedDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotGroupMember):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrInvalidMinAttendees):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to create plan.")
		}
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	detail, err := h.planService.GetPlan(c.Request.Context(), planID)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load plan.")
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *PlanHandler) GetGroupPlans(c *gin.Context) {
	groupID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	plans, err := h.planService.GetGroupPlans(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load plans.")
		}
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	c.JSON(http.StatusOK, plans)
}

func (h *PlanHandler) CastVote(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	planID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.planService.CastVote(c.Request.Context(), planID, callerID, req.Vote)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrNotParticipant):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidVote):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to record vote.")
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlanHandler) CheckIn(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	planID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	err = h.planService.CheckIn(c.Request.Context(), planID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrNotParticipant):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrPlanNotConfirmed), errors.Is(err, service.ErrParticipantNotConfirmed):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to check in.")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkedIn": true})
}

func (h *PlanHandler) CompletePlan(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	planID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	result, err := h.planService.CompletePlan(c.Request.Context(), planID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotPlanCreator):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrInvalidTransition):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to complete plan.")
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlanHandler) CancelPlan(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	planID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	err = h.planService.CancelPlan(c.Request.Context(), planID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotPlanCreator):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrInvalidTransition):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to cancel plan.")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (h *PlanHandler) SendReminder(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	planID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	summary, err := h.planService.SendReminder(c.Request.Context(), planID, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotPlanCreator):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrPlanNotConfirmed):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to send reminder.")
		}
		return
	}
	c.JSON(http.StatusOK, summary)
}
