package v1

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bothive/internal/auth"
	"bothive/internal/logging"
	"bothive/internal/validation"
	"bothive/pkg/models"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *APIHandlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	if !validation.ValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid email format"})
		return
	}

	if _, err := h.repos.Users.GetByEmail(req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"detail": "Email already registered"})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		respondError(c, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.repos.Users.Create(req.Email, hash, models.RoleUser)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(user.ID, "user_register", strconv.FormatInt(user.ID, 10), auth.ClientIP(c))
	logging.Info("New user registered: %s (ID: %d)", user.Email, user.ID)

	token, err := h.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *APIHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	user, err := h.repos.Users.GetByEmail(req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid email or password"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid email or password"})
		return
	}

	if user.Status == models.UserSuspended {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Account suspended. Contact administrator."})
		return
	}

	h.audit.Record(user.ID, "user_login", strconv.FormatInt(user.ID, 10), auth.ClientIP(c))
	logging.Info("User logged in: %s (ID: %d)", user.Email, user.ID)

	token, err := h.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *APIHandlers) me(c *gin.Context) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user.View())
}
