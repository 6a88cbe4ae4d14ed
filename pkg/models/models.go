package models

import (
	"time"
)

// UserRole controls access to the admin surface.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
	RoleOwner UserRole = "OWNER"
)

// UserStatus marks whether an account may log in and act.
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
)

// BotStatus is the user-visible lifecycle state of a bot.
type BotStatus string

const (
	BotCreated BotStatus = "CREATED"
	BotRunning BotStatus = "RUNNING"
	BotStopped BotStatus = "STOPPED"
	BotCrashed BotStatus = "CRASHED"
)

// BotRuntime selects an entry in the runtime registry.
type BotRuntime string

const (
	RuntimePython BotRuntime = "python"
	RuntimeNode   BotRuntime = "node"
)

// SourceType records how the bot's source was uploaded.
type SourceType string

const (
	SourceZip  SourceType = "zip"
	SourceFile SourceType = "file"
)

type User struct {
	ID           int64      `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Plan bundles the per-user quota with sandbox resource limits.
type Plan struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	MaxBots  int64  `json:"max_bots" db:"max_bots"`
	CPULimit string `json:"cpu_limit" db:"cpu_limit"` // fraction of one core, e.g. "0.5"
	RAMLimit string `json:"ram_limit" db:"ram_limit"` // human size, e.g. "256m"
}

// Bot is a user-owned long-running program instance.
//
// ContainerID is internal only and must never be serialized through the API.
type Bot struct {
	ID          int64       `json:"id" db:"id"`
	UserID      int64       `json:"user_id" db:"user_id"`
	PlanID      int64       `json:"plan_id" db:"plan_id"`
	Runtime     BotRuntime  `json:"runtime" db:"runtime"`
	Name        string      `json:"name" db:"name"`
	ContainerID *string     `json:"-" db:"container_id"`
	Status      BotStatus   `json:"status" db:"status"`
	StartCmd    *string     `json:"start_cmd" db:"start_cmd"`
	SourceType  *SourceType `json:"source_type" db:"source_type"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// AuditLog records a security-sensitive action for later review.
type AuditLog struct {
	ID        string    `json:"id" db:"id"`
	UserID    *int64    `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	TargetID  string    `json:"target_id" db:"target_id"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	Details   *string   `json:"details,omitempty" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BotView is the API representation of a bot. The container handle is
// deliberately absent.
type BotView struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Runtime    BotRuntime  `json:"runtime"`
	Status     BotStatus   `json:"status"`
	StartCmd   *string     `json:"start_cmd"`
	SourceType *SourceType `json:"source_type"`
	CreatedAt  string      `json:"created_at"`
}

func (b *Bot) View() BotView {
	return BotView{
		ID:         b.ID,
		Name:       b.Name,
		Runtime:    b.Runtime,
		Status:     b.Status,
		StartCmd:   b.StartCmd,
		SourceType: b.SourceType,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type UserView struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt string     `json:"created_at"`
}

func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
