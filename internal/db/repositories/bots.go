package repositories

import (
	"database/sql"
	"time"

	"bothive/internal/db"
	"bothive/pkg/models"
)

type BotRepo struct {
	db *sql.DB
}

func NewBotRepo(conn *sql.DB) *BotRepo {
	return &BotRepo{db: conn}
}

const botColumns = "id, user_id, plan_id, runtime, name, container_id, status, start_cmd, source_type, created_at"

func scanBot(row interface{ Scan(...any) error }) (*models.Bot, error) {
	var (
		b           models.Bot
		containerID sql.NullString
		startCmd    sql.NullString
		sourceType  sql.NullString
	)
	err := row.Scan(&b.ID, &b.UserID, &b.PlanID, &b.Runtime, &b.Name,
		&containerID, &b.Status, &startCmd, &sourceType, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if containerID.Valid {
		b.ContainerID = &containerID.String
	}
	if startCmd.Valid {
		b.StartCmd = &startCmd.String
	}
	if sourceType.Valid {
		st := models.SourceType(sourceType.String)
		b.SourceType = &st
	}
	return &b, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *BotRepo) Create(userID, planID int64, runtime models.BotRuntime, name string, startCmd *string) (*models.Bot, error) {
	db.SQLiteWriteMutex.Lock()
	defer db.SQLiteWriteMutex.Unlock()

	now := time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO bots (user_id, plan_id, runtime, name, status, start_cmd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, planID, runtime, name, models.BotCreated, nullString(startCmd), now,
	)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Bot{
		ID:        id,
		UserID:    userID,
		PlanID:    planID,
		Runtime:   runtime,
		Name:      name,
		Status:    models.BotCreated,
		StartCmd:  startCmd,
		CreatedAt: now,
	}, nil
}

func (r *BotRepo) GetByID(id int64) (*models.Bot, error) {
	row := r.db.QueryRow(`SELECT `+botColumns+` FROM bots WHERE id = ?`, id)
	return scanBot(row)
}

func (r *BotRepo) GetByUserAndName(userID int64, name string) (*models.Bot, error) {
	row := r.db.QueryRow(`SELECT `+botColumns+` FROM bots WHERE user_id = ? AND name = ?`, userID, name)
	return scanBot(row)
}

func (r *BotRepo) ListByUser(userID int64) ([]*models.Bot, error) {
	rows, err := r.db.Query(`SELECT `+botColumns+` FROM bots WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

func (r *BotRepo) CountByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM bots WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

func (r *BotRepo) UpdateStatus(id int64, status models.BotStatus) error {
	db.SQLiteWriteMutex.Lock()
	defer db.SQLiteWriteMutex.Unlock()

	_, err := r.db.Exec(`UPDATE bots SET status = ? WHERE id = ?`, status, id)
	return err
}

func (r *BotRepo) UpdateContainerID(id int64, containerID *string) error {
	db.SQLiteWriteMutex.Lock()
	defer db.SQLiteWriteMutex.Unlock()

	_, err := r.db.Exec(`UPDATE bots SET container_id = ? WHERE id = ?`, nullString(containerID), id)
	return err
}

func (r *BotRepo) UpdateSourceType(id int64, sourceType models.SourceType) error {
	db.SQLiteWriteMutex.Lock()
	defer db.SQLiteWriteMutex.Unlock()

	_, err := r.db.Exec(`UPDATE bots SET source_type = ? WHERE id = ?`, sourceType, id)
	return err
}

func (r *BotRepo) Delete(id int64) error {
	db.SQLiteWriteMutex.Lock()
	defer db.SQLiteWriteMutex.Unlock()

	_, err := r.db.Exec(`DELETE FROM bots WHERE id = ?`, id)
	return err
}
