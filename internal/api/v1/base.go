package v1

import (
	"github.com/gin-gonic/gin"

	"bothive/internal/auth"
	"bothive/internal/db/repositories"
	"bothive/internal/logging"
	"bothive/internal/sandbox"
	"bothive/internal/services"
	"bothive/pkg/models"
)

type APIHandlers struct {
	repos  *repositories.Repositories
	bots   *services.BotService
	audit  *services.AuditService
	authmw *auth.Middleware
	tokens *auth.TokenManager
	driver sandbox.Driver
}

func NewAPIHandlers(
	repos *repositories.Repositories,
	bots *services.BotService,
	audit *services.AuditService,
	authmw *auth.Middleware,
	tokens *auth.TokenManager,
	driver sandbox.Driver,
) *APIHandlers {
	return &APIHandlers{
		repos:  repos,
		bots:   bots,
		audit:  audit,
		authmw: authmw,
		tokens: tokens,
		driver: driver,
	}
}

// RegisterRoutes mounts every endpoint on the router. Authentication and
// rate limits are applied here so handlers only see resolved actors.
func (h *APIHandlers) RegisterRoutes(router *gin.Engine) {
	strictLimit := auth.NewRateLimiter(5)
	standardLimit := auth.NewRateLimiter(10)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", strictLimit.Middleware(), h.register)
		authGroup.POST("/login", standardLimit.Middleware(), h.login)
		authGroup.GET("/me", h.authmw.Authenticate(), h.me)
	}

	bots := router.Group("/bots", h.authmw.Authenticate())
	{
		bots.POST("", standardLimit.Middleware(), h.createBot)
		bots.GET("", h.listBots)
		bots.POST("/:id/upload", strictLimit.Middleware(), h.uploadBotFiles)
		bots.POST("/:id/start", standardLimit.Middleware(), h.startBot)
		bots.POST("/:id/stop", standardLimit.Middleware(), h.stopBot)
		bots.POST("/:id/restart", standardLimit.Middleware(), h.restartBot)
		bots.DELETE("/:id", standardLimit.Middleware(), h.deleteBot)
	}

	// The websocket endpoint authenticates via query token inside the
	// handler; bearer middleware cannot run before the upgrade.
	router.GET("/bots/:id/logs", h.botLogs)

	admin := router.Group("/admin", h.authmw.Authenticate(), h.authmw.RequireAdmin())
	{
		admin.GET("/users", h.listUsers)
		admin.POST("/users/:id/suspend", standardLimit.Middleware(), h.suspendUser)
		admin.POST("/users/:id/activate", standardLimit.Middleware(), h.activateUser)
	}
}

// respondError maps an error kind to its HTTP status and masks anything
// unclassified behind a generic message.
func respondError(c *gin.Context, err error) {
	kind := models.KindOf(err)
	if kind == models.KindInternal {
		logging.ErrorWithStack("Unhandled error: %v", err)
	}
	c.JSON(statusForKind(kind), gin.H{"detail": models.PublicMessage(err)})
}

func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation, models.KindUnsupportedRuntime,
		models.KindSandboxCreate, models.KindSandboxMissing, models.KindSandboxOp:
		return 400
	case models.KindNotFound:
		return 404
	case models.KindForbidden:
		return 403
	case models.KindConflict:
		return 409
	default:
		return 500
	}
}
