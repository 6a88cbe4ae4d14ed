package repositories

import (
	"bothive/internal/db"
)

type Repositories struct {
	Users     *UserRepo
	Plans     *PlanRepo
	Bots      *BotRepo
	AuditLogs *AuditLogRepo
}

func New(database db.Database) *Repositories {
	conn := database.Conn()

	return &Repositories{
		Users:     NewUserRepo(conn),
		Plans:     NewPlanRepo(conn),
		Bots:      NewBotRepo(conn),
		AuditLogs: NewAuditLogRepo(conn),
	}
}
