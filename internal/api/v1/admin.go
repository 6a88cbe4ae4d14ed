package v1

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bothive/internal/auth"
	"bothive/internal/logging"
	"bothive/pkg/models"
)

type userListResponse struct {
	Users []models.UserView `json:"users"`
	Total int               `json:"total"`
}

func (h *APIHandlers) listUsers(c *gin.Context) {
	users, err := h.repos.Users.List()
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]models.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}

	c.JSON(http.StatusOK, userListResponse{Users: views, Total: len(views)})
}

func (h *APIHandlers) suspendUser(c *gin.Context) {
	actor, _ := auth.UserFromContext(c)

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid user ID"})
		return
	}

	target, err := h.repos.Users.GetByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	// Only an OWNER may suspend privileged accounts.
	if (target.Role == models.RoleAdmin || target.Role == models.RoleOwner) && actor.Role != models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Only OWNER can suspend ADMIN or OWNER accounts"})
		return
	}

	if err := h.repos.Users.UpdateStatus(userID, models.UserSuspended); err != nil {
		respondError(c, err)
		return
	}

	h.audit.RecordDetail(actor.ID, "user_suspend", strconv.FormatInt(userID, 10), auth.ClientIP(c), "Suspended by "+actor.Email)
	logging.Info("User %d suspended by %s", userID, actor.Email)

	c.JSON(http.StatusOK, gin.H{"message": "User " + target.Email + " has been suspended"})
}

func (h *APIHandlers) activateUser(c *gin.Context) {
	actor, _ := auth.UserFromContext(c)

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid user ID"})
		return
	}

	target, err := h.repos.Users.GetByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.repos.Users.UpdateStatus(userID, models.UserActive); err != nil {
		respondError(c, err)
		return
	}

	h.audit.RecordDetail(actor.ID, "user_activate", strconv.FormatInt(userID, 10), auth.ClientIP(c), "Activated by "+actor.Email)
	logging.Info("User %d activated by %s", userID, actor.Email)

	c.JSON(http.StatusOK, gin.H{"message": "User " + target.Email + " has been activated"})
}
