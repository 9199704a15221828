package api

import (
	"errors"
	"net/http"

	"huddleup/meetup-app/internal/domain"
	"huddleup/meetup-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GroupHandler struct {
	groupService       service.GroupService
	leaderboardService service.LeaderboardService
}

func NewGroupHandler(groupService service.GroupService, leaderboardService service.LeaderboardService) *GroupHandler {
	return &GroupHandler{
		groupService:       groupService,
		leaderboardService: leaderboardService,
	}
}

// --- DTOs ---

type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddMemberRequest struct {
	UserID string           `json:"userId" binding:"required"`
	Role   domain.GroupRole `json:"role" binding:"omitempty,oneof=member admin"`
}

// --- Handlers ---

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	group, err := h.groupService.CreateGroup(c.Request.Context(), callerID, req.Name)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create group.")
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	groupID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid userId format.")
		return
	}

	err = h.groupService.AddMember(c.Request.Context(), groupID, callerID, userID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound), errors.Is(err, service.ErrUserNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotGroupMember):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrAlreadyMember):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to add member.")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": true})
}

func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	detail, err := h.groupService.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load group.")
		}
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *GroupHandler) GetLeaderboard(c *gin.Context) {
	groupID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	entries, err := h.leaderboardService.GetLeaderboard(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load leaderboard.")
		}
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, entries)
}
