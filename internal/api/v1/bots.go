package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bothive/internal/auth"
	"bothive/pkg/models"
)

type botCreateRequest struct {
	Name     string            `json:"name" binding:"required"`
	Runtime  models.BotRuntime `json:"runtime" binding:"required"`
	StartCmd *string           `json:"start_cmd"`
	PlanID   int64             `json:"plan_id"`
}

type botListResponse struct {
	Bots  []models.BotView `json:"bots"`
	Total int              `json:"total"`
}

func botIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid bot ID"})
		return 0, false
	}
	return id, true
}

func (h *APIHandlers) createBot(c *gin.Context) {
	user, _ := auth.UserFromContext(c)

	var req botCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}
	if req.PlanID == 0 {
		req.PlanID = 1
	}

	bot, err := h.bots.Create(c.Request.Context(), user.ID, req.Name, req.Runtime, req.StartCmd, req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(user.ID, "bot_create", strconv.FormatInt(bot.ID, 10), auth.ClientIP(c))
	c.JSON(http.StatusCreated, bot.View())
}

func (h *APIHandlers) listBots(c *gin.Context) {
	user, _ := auth.UserFromContext(c)

	bots, err := h.bots.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]models.BotView, 0, len(bots))
	for _, bot := range bots {
		views = append(views, bot.View())
	}

	c.JSON(http.StatusOK, botListResponse{Bots: views, Total: len(views)})
}

func (h *APIHandlers) uploadBotFiles(c *gin.Context) {
	user, _ := auth.UserFromContext(c)

	botID, ok := botIDParam(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing file upload"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer src.Close()

	filename, err := h.bots.Upload(c.Request.Context(), user.ID, botID, fileHeader.Filename, src)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.RecordDetail(user.ID, "bot_upload", strconv.FormatInt(botID, 10), auth.ClientIP(c), "Uploaded "+filename)
	c.JSON(http.StatusOK, gin.H{"message": "Files uploaded successfully", "filename": filename})
}

func (h *APIHandlers) startBot(c *gin.Context) {
	user, _ := auth.UserFromContext(c)

	botID, ok := botIDParam(c)
	if !ok {
		return
	}

	bot, err := h.bots.Start(c.Request.Context(), user.ID, botID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(user.ID, "bot_start", strconv.FormatInt(botID, 10), auth.ClientIP(c))
	c.JSON(http.StatusOK, bot.View())
}

func (h *APIHandlers) stopBot(c *gin.Context) {
	user, _ := auth.UserFromContext(c)

	botID, ok := botIDParam(c)
	if !ok {
		return
	}

	bot, err := h.bots.Stop(c.Request.Context(), user.ID, botID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(user.ID, "bot_stop", strconv.FormatInt(botID, 10), auth.ClientIP(c))
	c.JSON(http.StatusOK, bot.View())
}

func (h *APIHandlers) restartBot(c *gin.Context) {
	user, _ := auth.UserFromContext(c)

	botID, ok := botIDParam(c)
	if !ok {
		return
	}

	bot, err := h.bots.Restart(c.Request.Context(), user.ID, botID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(user.ID, "bot_restart", strconv.FormatInt(botID, 10), auth.ClientIP(c))
	c.JSON(http.StatusOK, bot.View())
}

func (h *APIHandlers) deleteBot(c *gin.Context) {
	user, _ := auth.UserFromContext(c)

	botID, ok := botIDParam(c)
	if !ok {
		return
	}

	if err := h.bots.Delete(c.Request.Context(), user.ID, botID); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(user.ID, "bot_delete", strconv.FormatInt(botID, 10), auth.ClientIP(c))
	c.Status(http.StatusNoContent)
}
