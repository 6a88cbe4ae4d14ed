package repositories

import (
	"database/sql"

	"bothive/pkg/models"
)

type PlanRepo struct {
	db *sql.DB
}

func NewPlanRepo(conn *sql.DB) *PlanRepo {
	return &PlanRepo{db: conn}
}

func scanPlan(row interface{ Scan(...any) error }) (*models.Plan, error) {
	var p models.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.MaxBots, &p.CPULimit, &p.RAMLimit); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepo) GetByID(id int64) (*models.Plan, error) {
	row := r.db.QueryRow(`SELECT id, name, max_bots, cpu_limit, ram_limit FROM plans WHERE id = ?`, id)
	return scanPlan(row)
}

func (r *PlanRepo) GetByName(name string) (*models.Plan, error) {
	row := r.db.QueryRow(`SELECT id, name, max_bots, cpu_limit, ram_limit FROM plans WHERE name = ?`, name)
	return scanPlan(row)
}

func (r *PlanRepo) List() ([]*models.Plan, error) {
	rows, err := r.db.Query(`SELECT id, name, max_bots, cpu_limit, ram_limit FROM plans ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}
