package repositories

import (
	"database/sql"
	"time"

	"bothive/internal/db"
	"bothive/pkg/models"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(conn *sql.DB) *UserRepo {
	return &UserRepo{db: conn}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

const userColumns = "id, email, password_hash, role, status, created_at"

func (r *UserRepo) Create(email, passwordHash string, role models.UserRole) (*models.User, error) {
	db.SQLiteWriteMutex.Lock()
	defer db.SQLiteWriteMutex.Unlock()

	now := time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO users (email, password_hash, role, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		email, passwordHash, role, models.UserActive, now,
	)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Status:       models.UserActive,
		CreatedAt:    now,
	}, nil
}

func (r *UserRepo) GetByID(id int64) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepo) GetByEmail(email string) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepo) List() ([]*models.User, error) {
	rows, err := r.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) UpdateStatus(id int64, status models.UserStatus) error {
	db.SQLiteWriteMutex.Lock()
	defer db.SQLiteWriteMutex.Unlock()

	_, err := r.db.Exec(`UPDATE users SET status = ? WHERE id = ?`, status, id)
	return err
}
