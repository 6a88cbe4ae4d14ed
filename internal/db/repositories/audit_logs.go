package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"bothive/internal/db"
	"bothive/pkg/models"
)

type AuditLogRepo struct {
	db *sql.DB
}

func NewAuditLogRepo(conn *sql.DB) *AuditLogRepo {
	return &AuditLogRepo{db: conn}
}

func (r *AuditLogRepo) Create(userID *int64, action, targetID, ipAddress string, details *string) (*models.AuditLog, error) {
	db.SQLiteWriteMutex.Lock()
	defer db.SQLiteWriteMutex.Unlock()

	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		TargetID:  targetID,
		IPAddress: ipAddress,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}

	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO audit_logs (id, user_id, action, target_id, ip_address, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, uid, entry.Action, entry.TargetID, entry.IPAddress, nullString(details), entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *AuditLogRepo) ListByUser(userID int64, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(
		`SELECT id, user_id, action, target_id, ip_address, details, created_at
		 FROM audit_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		var (
			e       models.AuditLog
			uid     sql.NullInt64
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &uid, &e.Action, &e.TargetID, &e.IPAddress, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if uid.Valid {
			e.UserID = &uid.Int64
		}
		if details.Valid {
			e.Details = &details.String
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
